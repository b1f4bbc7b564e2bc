package descriptor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surfdeck/surfdeck/errors"
)

func demoPlugin() Plugin {
	return Plugin{
		ID:      "com.example.demo",
		Name:    "Demo Plugin",
		Version: 3,
		Categories: []Category{
			{
				Name: "Main",
				Actions: []Action{
					{
						Name:   "Toggle Output",
						Format: "Toggle $[target] now",
						Data: []DataItem{
							{
								Label:        "Target",
								Type:         "choice",
								Default:      "a",
								ValueChoices: []string{"a", "b"},
							},
						},
					},
				},
				States: []State{
					{Description: "Current status", Default: "idle"},
				},
			},
		},
		Settings: []Setting{
			{Name: "Host", Default: "127.0.0.1"},
		},
	}
}

func TestGenerate_ProducesValidDocument(t *testing.T) {
	doc, err := demoPlugin().Generate()
	require.NoError(t, err)
	assert.Empty(t, Validate(doc))
}

func TestGenerate_DerivesIdentifiers(t *testing.T) {
	doc, err := demoPlugin().Generate()
	require.NoError(t, err)

	cat := doc["categories"].([]any)[0].(map[string]any)
	assert.Equal(t, "com.example.demo.main", cat["id"])

	action := cat["actions"].([]any)[0].(map[string]any)
	assert.Equal(t, "com.example.demo.main.action.toggleoutput", action["id"])

	data := action["data"].([]any)[0].(map[string]any)
	assert.Equal(t, "com.example.demo.main.action.toggleoutput.data.target", data["id"])

	state := cat["states"].([]any)[0].(map[string]any)
	assert.Equal(t, "com.example.demo.main.state.currentstatus", state["id"])
}

func TestGenerate_ExplicitIdentifierWins(t *testing.T) {
	p := demoPlugin()
	p.Categories[0].Actions[0].ID = "com.example.demo.custom"
	doc, err := p.Generate()
	require.NoError(t, err)

	cat := doc["categories"].([]any)[0].(map[string]any)
	action := cat["actions"].([]any)[0].(map[string]any)
	assert.Equal(t, "com.example.demo.custom", action["id"])
}

func TestGenerate_SubstitutesFormatTokens(t *testing.T) {
	doc, err := demoPlugin().Generate()
	require.NoError(t, err)

	cat := doc["categories"].([]any)[0].(map[string]any)
	action := cat["actions"].([]any)[0].(map[string]any)
	assert.Equal(t,
		"Toggle {$com.example.demo.main.action.toggleoutput.data.target$} now",
		action["format"])
}

func TestGenerate_NumericFormatToken(t *testing.T) {
	p := demoPlugin()
	p.Categories[0].Actions[0].Format = "Toggle $[1] now"
	doc, err := p.Generate()
	require.NoError(t, err)

	cat := doc["categories"].([]any)[0].(map[string]any)
	action := cat["actions"].([]any)[0].(map[string]any)
	assert.Equal(t,
		"Toggle {$com.example.demo.main.action.toggleoutput.data.target$} now",
		action["format"])
}

func TestGenerate_AppliesDefaults(t *testing.T) {
	doc, err := demoPlugin().Generate()
	require.NoError(t, err)

	cat := doc["categories"].([]any)[0].(map[string]any)
	action := cat["actions"].([]any)[0].(map[string]any)

	expected := map[string]any{
		"type":   "communicate",
		"prefix": "Main",
	}
	got := map[string]any{
		"type":   action["type"],
		"prefix": action["prefix"],
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}

	settings := doc["settings"].([]any)
	setting := settings[0].(map[string]any)
	assert.Equal(t, "text", setting["type"])
}

func TestGenerate_InvalidOutputIsHardError(t *testing.T) {
	p := demoPlugin()
	// Duplicate explicit ids force a validation failure in the output.
	p.Categories[0].States = append(p.Categories[0].States,
		State{ID: "com.example.demo.main.state.currentstatus", Description: "Copy", Default: ""},
		State{ID: "com.example.demo.main.state.currentstatus", Description: "Copy2", Default: ""},
	)

	_, err := p.Generate()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidDescriptor)

	var failure *ValidationFailure
	require.ErrorAs(t, err, &failure)
	assert.NotEmpty(t, failure.Violations)
}

func TestGenerate_RequiresIDAndCategories(t *testing.T) {
	_, err := Plugin{Name: "x", Categories: []Category{{Name: "a"}}}.Generate()
	assert.ErrorIs(t, err, errors.ErrEmptyIdentifier)

	_, err = Plugin{ID: "com.example.x", Name: "x"}.Generate()
	assert.ErrorIs(t, err, errors.ErrMissingCategories)
}
