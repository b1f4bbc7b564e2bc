package descriptor

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/surfdeck/surfdeck/entity"
)

// Violation represents one validation failure for a specific attribute.
// It provides structured error information that tooling can display and
// sort, naming the entity path, the attribute, and the rule violated.
//
// Error codes are standardized:
//   - "required": attribute is required but missing
//   - "unknown": attribute is not part of the schema at any version
//   - "version": attribute exists but not at the declared schema version
//   - "type": value doesn't match the expected container type
//   - "enum": value not in the attribute's allowed value list
//   - "domain": value violates the data item's value-type rules
//   - "duplicate_id": identifier already used elsewhere in the document
//   - "dangling_ref": format string references an undeclared data item
//   - "structure": a collection member is not an object
type Violation struct {
	Path      string `json:"path"`      // Entity path, e.g. "categories[0]:actions[2]"
	Attribute string `json:"attribute"` // Attribute that failed validation
	Code      string `json:"code"`      // Machine-readable code (see above)
	Message   string `json:"message"`   // Human-readable error message
}

// Violation codes
const (
	CodeRequired    = "required"
	CodeUnknown     = "unknown"
	CodeVersion     = "version"
	CodeType        = "type"
	CodeEnum        = "enum"
	CodeDomain      = "domain"
	CodeDuplicateID = "duplicate_id"
	CodeDanglingRef = "dangling_ref"
	CodeStructure   = "structure"
)

func (v Violation) String() string {
	if v.Attribute == "" {
		return fmt.Sprintf("%s: %s (%s)", v.Path, v.Message, v.Code)
	}
	return fmt.Sprintf("%s:%s: %s (%s)", v.Path, v.Attribute, v.Message, v.Code)
}

// formatToken matches data item references in generated format strings,
// e.g. "{$com.example.plugin.act.data.text$}".
var formatToken = regexp.MustCompile(`\{\$([^${}]+)\$\}`)

// validator walks one document and accumulates every violation. A fresh
// instance is used per Validate call; it is not safe for concurrent reuse.
type validator struct {
	version    int
	violations []Violation
	seenIDs    map[string]string // identifier -> path where first seen
}

// Validate checks a full descriptor document against the versioned attribute
// rule tables. Validation is total: it never stops at the first problem, so
// the returned slice is a complete report. An empty slice means the document
// is valid.
func Validate(doc Document) []Violation {
	v := &validator{
		version: doc.SchemaVersion(entity.DefaultSchemaVersion),
		seenIDs: make(map[string]string),
	}
	v.validateObject(map[string]any(doc), entity.KindRoot, "")
	sort.SliceStable(v.violations, func(i, j int) bool {
		return v.violations[i].Path < v.violations[j].Path
	})
	return v.violations
}

func (v *validator) add(path, attribute, code, message string) {
	v.violations = append(v.violations, Violation{
		Path:      path,
		Attribute: attribute,
		Code:      code,
		Message:   message,
	})
}

func (v *validator) validateObject(obj map[string]any, kind entity.Kind, path string) {
	table, err := entity.RulesFor(kind)
	if err != nil {
		v.add(path, "", CodeUnknown, err.Error())
		return
	}

	idAttr, _ := entity.IdentityAttribute(kind)

	// Walk declared attributes first, in stable order.
	for _, attr := range sortedKeys(obj) {
		value := obj[attr]
		rule, known := table[attr]
		if !known {
			v.add(path, attr, CodeUnknown, fmt.Sprintf("attribute %q is unknown for %s", attr, kind))
			continue
		}
		if !rule.Applicable(v.version) {
			v.add(path, attr, CodeVersion,
				fmt.Sprintf("attribute %q requires schema version %d, document targets %d",
					attr, rule.MinVersion, v.version))
			continue
		}
		if !entity.CheckType(value, rule.Type) {
			v.add(path, attr, CodeType,
				fmt.Sprintf("attribute %q expects %s, got %T", attr, rule.Type, value))
			continue
		}
		if !rule.InChoices(value) {
			v.add(path, attr, CodeEnum,
				fmt.Sprintf("attribute %q value %v is not one of %v", attr, value, rule.Choices))
			continue
		}
		if attr == idAttr {
			v.checkUnique(value, path, attr)
		}
		switch rule.Type {
		case entity.TypeList:
			if rule.Nested != "" {
				v.validateArray(value, rule.Nested, keyPath(path, attr))
			}
		case entity.TypeObject:
			if rule.Nested != "" {
				if nested, ok := value.(map[string]any); ok {
					v.validateObject(nested, rule.Nested, keyPath(path, attr))
				}
			}
		}
	}

	// Then check for missing required attributes.
	for _, attr := range sortedRuleKeys(table) {
		rule := table[attr]
		if rule.Required && rule.Applicable(v.version) {
			if _, present := obj[attr]; !present {
				v.add(path, attr, CodeRequired, fmt.Sprintf("missing required attribute %q", attr))
			}
		}
	}

	switch kind {
	case entity.KindActionData, entity.KindState:
		if err := entity.CheckValueDomain(obj); err != nil {
			v.add(path, "default", CodeDomain, err.Error())
		}
	case entity.KindAction, entity.KindConnector:
		v.checkFormatRefs(obj, path)
	}
}

func (v *validator) validateArray(value any, kind entity.Kind, path string) {
	list, ok := value.([]any)
	if !ok {
		return
	}
	for i, item := range list {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		obj, ok := item.(map[string]any)
		if !ok {
			v.add(itemPath, "", CodeStructure, fmt.Sprintf("collection member is %T, expected object", item))
			continue
		}
		v.validateObject(obj, kind, itemPath)
	}
}

// checkUnique enforces global identifier uniqueness across the whole
// document, regardless of nesting depth.
func (v *validator) checkUnique(value any, path, attr string) {
	id, ok := value.(string)
	if !ok || id == "" {
		return
	}
	if prev, seen := v.seenIDs[id]; seen {
		v.add(path, attr, CodeDuplicateID,
			fmt.Sprintf("identifier %q is not unique, previously seen at %q", id, prev))
		return
	}
	v.seenIDs[id] = keyPath(path, attr)
}

// checkFormatRefs verifies that every data item token in an action's or
// connector's format string resolves to an item declared in that entity's
// own data array.
func (v *validator) checkFormatRefs(obj map[string]any, path string) {
	format, ok := obj["format"].(string)
	if !ok || format == "" {
		return
	}
	declared := make(map[string]bool)
	if data, ok := obj["data"].([]any); ok {
		for _, item := range data {
			if m, ok := item.(map[string]any); ok {
				if id, ok := m["id"].(string); ok {
					declared[id] = true
				}
			}
		}
	}
	for _, match := range formatToken.FindAllStringSubmatch(format, -1) {
		if !declared[match[1]] {
			v.add(path, "format", CodeDanglingRef,
				fmt.Sprintf("format references data item %q which is not declared in this entity", match[1]))
		}
	}
}

func keyPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + ":" + key
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedRuleKeys(table entity.RuleTable) []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FormatViolations renders a violation list as one line per violation,
// suitable for CLI output and error messages.
func FormatViolations(violations []Violation) string {
	lines := make([]string, len(violations))
	for i, violation := range violations {
		lines[i] = violation.String()
	}
	return strings.Join(lines, "\n")
}
