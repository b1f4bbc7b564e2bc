package entity

import (
	"fmt"
	"regexp"

	"github.com/surfdeck/surfdeck/errors"
)

// Kind identifies an entity collection in a plugin descriptor.
type Kind string

// Descriptor entity kinds
const (
	KindRoot          Kind = "root"
	KindConfiguration Kind = "configuration"
	KindCategory      Kind = "category"
	KindAction        Kind = "action"
	KindActionData    Kind = "actionData"
	KindState         Kind = "state"
	KindEvent         Kind = "event"
	KindConnector     Kind = "connector"
	KindSetting       Kind = "setting"
)

// ValueType is the closed set of data-item value types the controller
// understands.
type ValueType string

// Data item value types
const (
	ValueText   ValueType = "text"
	ValueNumber ValueType = "number"
	ValueSwitch ValueType = "switch"
	ValueChoice ValueType = "choice"
	ValueColor  ValueType = "color"
	ValueFile   ValueType = "file"
	ValueFolder ValueType = "folder"
)

// AttrType describes the JSON container type an attribute value must have.
type AttrType int

// Attribute container types
const (
	TypeString AttrType = iota
	TypeInt
	TypeBool
	// TypeScalar accepts string, number, or bool (used for data item defaults)
	TypeScalar
	TypeList
	TypeObject
)

// String returns the string representation of AttrType
func (t AttrType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "integer"
	case TypeBool:
		return "boolean"
	case TypeScalar:
		return "scalar"
	case TypeList:
		return "array"
	case TypeObject:
		return "object"
	default:
		return "unknown"
	}
}

// CheckType reports whether a decoded JSON value matches the attribute type.
// Numbers arrive as float64 from encoding/json; integral float64 values
// satisfy TypeInt.
func CheckType(value any, t AttrType) bool {
	switch t {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeInt:
		switch n := value.(type) {
		case int:
			return true
		case int64:
			return true
		case float64:
			return n == float64(int64(n))
		default:
			return false
		}
	case TypeBool:
		_, ok := value.(bool)
		return ok
	case TypeScalar:
		switch value.(type) {
		case string, bool, int, int64, float64:
			return true
		default:
			return false
		}
	case TypeList:
		_, ok := value.([]any)
		if !ok {
			// Permit typed slices from declarative definitions
			_, ok = value.([]string)
		}
		return ok
	case TypeObject:
		_, ok := value.(map[string]any)
		return ok
	default:
		return false
	}
}

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// CheckValueDomain validates a data item's attributes against the rules of
// its declared value type: numeric items need a numeric default and in-order
// min/max bounds, choice items need a non-empty candidate list containing the
// default, and color items need a #RRGGBB default.
//
// item is the data item's attribute map. Returns a descriptive error for the
// first domain violation found; callers that want a complete report invoke it
// once per item and collect.
func CheckValueDomain(item map[string]any) error {
	vt, _ := item["type"].(string)
	switch ValueType(vt) {
	case ValueNumber:
		def, hasDefault := item["default"]
		if hasDefault && !isNumeric(def) {
			return fmt.Errorf("number item requires a numeric default, got %T", def)
		}
		minV, hasMin := numericAttr(item, "minValue")
		maxV, hasMax := numericAttr(item, "maxValue")
		if hasMin && hasMax && minV > maxV {
			return fmt.Errorf("minValue %v exceeds maxValue %v", minV, maxV)
		}
		if hasDefault {
			d, _ := asFloat(def)
			if hasMin && d < minV {
				return fmt.Errorf("default %v below minValue %v", d, minV)
			}
			if hasMax && d > maxV {
				return fmt.Errorf("default %v above maxValue %v", d, maxV)
			}
		}
	case ValueChoice:
		choices := stringList(item["valueChoices"])
		if len(choices) == 0 {
			return fmt.Errorf("choice item requires a non-empty valueChoices list")
		}
		if def, ok := item["default"].(string); ok && def != "" {
			for _, c := range choices {
				if c == def {
					return nil
				}
			}
			return fmt.Errorf("default %q is not a member of valueChoices", def)
		}
	case ValueColor:
		if def, ok := item["default"].(string); ok && def != "" && !colorPattern.MatchString(def) {
			return fmt.Errorf("color default %q is not in #RRGGBB format", def)
		}
	case ValueText, ValueSwitch, ValueFile, ValueFolder, ValueType(""):
		// No extra domain constraints.
	default:
		return fmt.Errorf("%w: data item type %q", errors.ErrUnknownKind, vt)
	}
	return nil
}

func isNumeric(v any) bool {
	_, ok := asFloat(v)
	return ok
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func numericAttr(item map[string]any, key string) (float64, bool) {
	v, ok := item[key]
	if !ok {
		return 0, false
	}
	return asFloat(v)
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
