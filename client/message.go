package client

import (
	"encoding/json"
	"fmt"
)

// Message is one decoded host message. The wire format is a JSON object per
// line; fields beyond the common ones vary by kind, so the raw map stays
// accessible while typed accessors cover the common lookups.
type Message map[string]any

// ParseMessage decodes a single line of wire data.
func ParseMessage(line []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	return msg, nil
}

func (m Message) str(key string) string {
	value, _ := m[key].(string)
	return value
}

// Type returns the message kind, empty when absent.
func (m Message) Type() string {
	return m.str("type")
}

// PluginID returns the plugin id the message is addressed to.
func (m Message) PluginID() string {
	return m.str("pluginId")
}

// ActionID returns the action id for action, down and up messages.
func (m Message) ActionID() string {
	return m.str("actionId")
}

// ListID returns the list id for listChange messages.
func (m Message) ListID() string {
	return m.str("listId")
}

// InstanceID returns the instance id for listChange messages.
func (m Message) InstanceID() string {
	return m.str("instanceId")
}

// ConnectorID returns the connector id for connectorChange messages.
func (m Message) ConnectorID() string {
	return m.str("connectorId")
}

// Value returns the top-level value field as a string. Numeric values are
// formatted without an exponent.
func (m Message) Value() string {
	switch v := m["value"].(type) {
	case string:
		return v
	case float64:
		return formatNumber(v)
	default:
		return ""
	}
}

// ActionValue returns the value of one action data field by id, scanning the
// message's data array. The second return reports whether the id was found.
func (m Message) ActionValue(dataID string) (string, bool) {
	data, ok := m["data"].([]any)
	if !ok {
		return "", false
	}
	for _, raw := range data {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if entry["id"] != dataID {
			continue
		}
		switch v := entry["value"].(type) {
		case string:
			return v, true
		case float64:
			return formatNumber(v), true
		case bool:
			return fmt.Sprintf("%t", v), true
		default:
			return "", true
		}
	}
	return "", false
}

// SettingValue returns the value of one plugin setting by name from info and
// settings messages, which carry settings as an array of single-entry
// objects.
func (m Message) SettingValue(name string) (string, bool) {
	for _, key := range []string{"values", "settings"} {
		entries, ok := m[key].([]any)
		if !ok {
			continue
		}
		for _, raw := range entries {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if v, present := entry[name]; present {
				switch value := v.(type) {
				case string:
					return value, true
				case float64:
					return formatNumber(value), true
				default:
					return fmt.Sprint(value), true
				}
			}
		}
	}
	return "", false
}

// Settings flattens the settings array of an info or settings message into a
// map. Returns nil when the message carries no settings.
func (m Message) Settings() map[string]string {
	var out map[string]string
	for _, key := range []string{"values", "settings"} {
		entries, ok := m[key].([]any)
		if !ok {
			continue
		}
		for _, raw := range entries {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			for name, v := range entry {
				if out == nil {
					out = make(map[string]string)
				}
				switch value := v.(type) {
				case string:
					out[name] = value
				case float64:
					out[name] = formatNumber(value)
				default:
					out[name] = fmt.Sprint(value)
				}
			}
		}
	}
	return out
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
