package descriptor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// minimalDocument returns a small descriptor that passes validation.
func minimalDocument() Document {
	return Document{
		"sdk":     float64(6),
		"version": float64(1),
		"id":      "com.example.demo",
		"name":    "Demo Plugin",
		"categories": []any{
			map[string]any{
				"id":   "com.example.demo.main",
				"name": "Main",
				"actions": []any{
					map[string]any{
						"id":     "com.example.demo.main.action.toggle",
						"name":   "Toggle",
						"prefix": "Demo",
						"type":   "communicate",
						"format": "Toggle {$com.example.demo.main.action.toggle.data.target$}",
						"data": []any{
							map[string]any{
								"id":      "com.example.demo.main.action.toggle.data.target",
								"type":    "choice",
								"label":   "Target",
								"default": "a",
								"valueChoices": []any{"a", "b"},
							},
						},
					},
				},
				"states": []any{
					map[string]any{
						"id":      "com.example.demo.main.state.status",
						"type":    "text",
						"desc":    "Current status",
						"default": "",
					},
				},
				"events": []any{},
			},
		},
	}
}

func TestValidate_ValidDocument(t *testing.T) {
	violations := Validate(minimalDocument())
	assert.Empty(t, violations, "expected no violations, got:\n%s", FormatViolations(violations))
}

func TestValidate_MissingRequiredAttribute(t *testing.T) {
	doc := minimalDocument()
	cat := doc["categories"].([]any)[0].(map[string]any)
	action := cat["actions"].([]any)[0].(map[string]any)
	delete(action, "name")

	violations := Validate(doc)
	require.Len(t, violations, 1)
	assert.Equal(t, CodeRequired, violations[0].Code)
	assert.Equal(t, "name", violations[0].Attribute)
	assert.Equal(t, "categories[0]:actions[0]", violations[0].Path)
}

func TestValidate_UnknownAttribute(t *testing.T) {
	doc := minimalDocument()
	cat := doc["categories"].([]any)[0].(map[string]any)
	cat["imagpath"] = "misc/icon.png" // typo must be rejected, not ignored

	violations := Validate(doc)
	require.Len(t, violations, 1)
	assert.Equal(t, CodeUnknown, violations[0].Code)
	assert.Equal(t, "imagpath", violations[0].Attribute)
}

func TestValidate_VersionGatedAttribute(t *testing.T) {
	doc := minimalDocument()
	doc["sdk"] = float64(2)
	cat := doc["categories"].([]any)[0].(map[string]any)
	cat["connectors"] = []any{} // connectors require schema v4

	violations := Validate(doc)
	found := false
	for _, v := range violations {
		if v.Code == CodeVersion && v.Attribute == "connectors" {
			found = true
		}
	}
	assert.True(t, found, "expected a version violation for connectors, got:\n%s", FormatViolations(violations))
}

func TestValidate_TypeAndEnumViolations(t *testing.T) {
	doc := minimalDocument()
	doc["version"] = "one" // must be an integer
	cat := doc["categories"].([]any)[0].(map[string]any)
	action := cat["actions"].([]any)[0].(map[string]any)
	action["type"] = "broadcast" // not in the closed list

	violations := Validate(doc)
	codes := map[string]bool{}
	for _, v := range violations {
		codes[v.Code] = true
	}
	assert.True(t, codes[CodeType], "expected a type violation")
	assert.True(t, codes[CodeEnum], "expected an enum violation")
}

func TestValidate_DuplicateIdentifiersAtAnyDepth(t *testing.T) {
	doc := minimalDocument()
	cat := doc["categories"].([]any)[0].(map[string]any)
	// A state reusing a data item id nested two levels deeper elsewhere.
	cat["states"] = append(cat["states"].([]any), map[string]any{
		"id":      "com.example.demo.main.action.toggle.data.target",
		"type":    "text",
		"desc":    "Colliding state",
		"default": "",
	})

	violations := Validate(doc)
	require.NotEmpty(t, violations)
	var dup *Violation
	for i := range violations {
		if violations[i].Code == CodeDuplicateID {
			dup = &violations[i]
		}
	}
	require.NotNil(t, dup, "expected a duplicate_id violation, got:\n%s", FormatViolations(violations))
	assert.Contains(t, dup.Message, "com.example.demo.main.action.toggle.data.target")
}

func TestValidate_DanglingFormatReference(t *testing.T) {
	doc := minimalDocument()
	cat := doc["categories"].([]any)[0].(map[string]any)
	action := cat["actions"].([]any)[0].(map[string]any)
	action["format"] = "Toggle {$com.example.demo.other.data.missing$}"

	violations := Validate(doc)
	require.Len(t, violations, 1)
	assert.Equal(t, CodeDanglingRef, violations[0].Code)
	assert.Equal(t, "format", violations[0].Attribute)
}

func TestValidate_ValueDomainViolations(t *testing.T) {
	doc := minimalDocument()
	cat := doc["categories"].([]any)[0].(map[string]any)
	action := cat["actions"].([]any)[0].(map[string]any)
	data := action["data"].([]any)[0].(map[string]any)
	data["default"] = "z" // not a member of valueChoices

	violations := Validate(doc)
	require.Len(t, violations, 1)
	assert.Equal(t, CodeDomain, violations[0].Code)
}

func TestValidate_AccumulatesAllViolations(t *testing.T) {
	doc := minimalDocument()
	delete(doc, "name")
	delete(doc, "version")
	cat := doc["categories"].([]any)[0].(map[string]any)
	delete(cat, "name")

	violations := Validate(doc)
	assert.GreaterOrEqual(t, len(violations), 3, "validation must not stop at the first error")
}

func TestValidate_NonObjectCollectionMember(t *testing.T) {
	doc := minimalDocument()
	cat := doc["categories"].([]any)[0].(map[string]any)
	cat["states"] = append(cat["states"].([]any), "not an object")

	violations := Validate(doc)
	require.Len(t, violations, 1)
	assert.Equal(t, CodeStructure, violations[0].Code)
}

// Two entities anywhere in the document sharing an identifier must always
// yield a uniqueness violation, regardless of where the copies live.
func TestValidate_DuplicateIdentifierProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 8).Draw(t, "states")
		dupA := rapid.IntRange(0, n-1).Draw(t, "dupA")
		dupB := rapid.IntRange(0, n-1).Filter(func(i int) bool { return i != dupA }).Draw(t, "dupB")

		states := make([]any, n)
		for i := range states {
			id := fmt.Sprintf("com.example.demo.main.state.s%d", i)
			if i == dupB {
				id = fmt.Sprintf("com.example.demo.main.state.s%d", dupA)
			}
			states[i] = map[string]any{
				"id":      id,
				"type":    "text",
				"desc":    fmt.Sprintf("state %d", i),
				"default": "",
			}
		}

		doc := minimalDocument()
		cat := doc["categories"].([]any)[0].(map[string]any)
		cat["states"] = states

		duplicates := 0
		for _, v := range Validate(doc) {
			if v.Code == CodeDuplicateID {
				duplicates++
			}
		}
		if duplicates != 1 {
			t.Fatalf("expected exactly one duplicate_id violation, got %d", duplicates)
		}
	})
}
