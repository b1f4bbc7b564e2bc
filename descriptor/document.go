package descriptor

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/surfdeck/surfdeck/errors"
)

// DefaultFileName is the conventional name for a plugin descriptor file.
const DefaultFileName = "entry.sd"

// Document is a plugin descriptor: the JSON document declaring the plugin's
// identity, schema version, and category tree of actions, states, events,
// connectors, and settings.
type Document map[string]any

// Parse decodes a descriptor document from JSON bytes.
func Parse(data []byte) (Document, error) {
	var doc Document
	decoder := json.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&doc); err != nil {
		return nil, errors.WrapValidation(err, "descriptor", "Parse", "JSON decoding")
	}
	return doc, nil
}

// Load reads and decodes a descriptor document from a file.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "descriptor", "Load", "read file")
	}
	return Parse(data)
}

// Bytes serializes the document as indented JSON with a trailing newline,
// the format the controller's import dialog expects.
func (d Document) Bytes() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "descriptor", "Bytes", "JSON encoding")
	}
	return append(data, '\n'), nil
}

// WriteFile serializes the document and writes it to path.
func (d Document) WriteFile(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "descriptor", "WriteFile", "write file")
	}
	return nil
}

// SchemaVersion returns the schema version the document declares, or the
// fallback when the sdk attribute is missing or malformed.
func (d Document) SchemaVersion(fallback int) int {
	switch v := d["sdk"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// PluginID returns the document's plugin identifier, if declared.
func (d Document) PluginID() string {
	id, _ := d["id"].(string)
	return id
}
