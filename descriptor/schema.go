package descriptor

import (
	"github.com/xeipuuv/gojsonschema"

	"github.com/surfdeck/surfdeck/entity"
	"github.com/surfdeck/surfdeck/errors"
)

// Schema builds a JSON Schema (draft-07) document for descriptors targeting
// the given schema version. The schema is derived from the same attribute
// rule tables the rule validator uses, so the two can never drift apart. It
// is exported for editors and CI pipelines that want structural checking
// without linking this package.
//
// The JSON Schema expresses structure, types, and closed value lists; the
// rule validator remains the authority for identifier uniqueness, value
// domains, and cross references, which JSON Schema cannot express.
func Schema(version int) (map[string]any, error) {
	if version < entity.MinSchemaVersion || version > entity.MaxSchemaVersion {
		return nil, errors.WrapUsage(errors.ErrInvalidConfig, "descriptor", "Schema", "version bounds check")
	}
	root, err := kindSchema(entity.KindRoot, version)
	if err != nil {
		return nil, err
	}
	root["$schema"] = "http://json-schema.org/draft-07/schema#"
	root["title"] = "Plugin descriptor"
	return root, nil
}

func kindSchema(kind entity.Kind, version int) (map[string]any, error) {
	table, err := entity.RulesFor(kind)
	if err != nil {
		return nil, err
	}

	properties := make(map[string]any)
	var required []string
	for _, attr := range sortedRuleKeys(table) {
		rule := table[attr]
		if !rule.Applicable(version) {
			continue
		}
		prop, err := ruleSchema(rule, version)
		if err != nil {
			return nil, err
		}
		properties[attr] = prop
		if rule.Required {
			required = append(required, attr)
		}
	}

	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema, nil
}

func ruleSchema(rule entity.Rule, version int) (map[string]any, error) {
	var prop map[string]any
	switch rule.Type {
	case entity.TypeString:
		prop = map[string]any{"type": "string"}
	case entity.TypeInt:
		prop = map[string]any{"type": "integer"}
	case entity.TypeBool:
		prop = map[string]any{"type": "boolean"}
	case entity.TypeScalar:
		prop = map[string]any{"type": []any{"string", "number", "boolean"}}
	case entity.TypeList:
		prop = map[string]any{"type": "array"}
		if rule.Nested != "" {
			items, err := kindSchema(rule.Nested, version)
			if err != nil {
				return nil, err
			}
			prop["items"] = items
		}
	case entity.TypeObject:
		if rule.Nested != "" {
			nested, err := kindSchema(rule.Nested, version)
			if err != nil {
				return nil, err
			}
			return nested, nil
		}
		prop = map[string]any{"type": "object"}
	}
	if len(rule.Choices) > 0 {
		prop["enum"] = rule.Choices
	}
	return prop, nil
}

// ValidateSchema checks a document against the generated JSON Schema for its
// declared version. It reports structural violations only; use Validate for
// the full rule check.
func ValidateSchema(doc Document) ([]Violation, error) {
	schema, err := Schema(doc.SchemaVersion(entity.DefaultSchemaVersion))
	if err != nil {
		return nil, err
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(map[string]any(doc)),
	)
	if err != nil {
		return nil, errors.WrapValidation(err, "descriptor", "ValidateSchema", "schema evaluation")
	}

	violations := make([]Violation, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		attribute, _ := desc.Details()["property"].(string)
		violations = append(violations, Violation{
			Path:      desc.Field(),
			Attribute: attribute,
			Code:      desc.Type(),
			Message:   desc.Description(),
		})
	}
	return violations, nil
}
