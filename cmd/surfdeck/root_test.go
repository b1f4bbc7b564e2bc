package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validDescriptor = `{
	"sdk": 6,
	"version": 1,
	"id": "com.example.demo",
	"name": "Demo Plugin",
	"categories": [
		{
			"id": "com.example.demo.main",
			"name": "Main",
			"actions": [],
			"states": [],
			"events": []
		}
	]
}`

func TestValidateCommand(t *testing.T) {
	t.Run("valid descriptor", func(t *testing.T) {
		path := writeFile(t, "entry.sd", validDescriptor)
		out, err := execute(t, "validate", path)
		require.NoError(t, err)
		assert.Contains(t, out, "valid")
	})

	t.Run("invalid descriptor lists violations", func(t *testing.T) {
		path := writeFile(t, "entry.sd", `{"sdk": 6, "version": 1, "name": "No ID", "categories": []}`)
		out, err := execute(t, "validate", path)
		require.Error(t, err)
		assert.Contains(t, out, "id")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "validate", filepath.Join(t.TempDir(), "nope.sd"))
		require.Error(t, err)
	})
}

func TestGenerateCommand(t *testing.T) {
	declaration := `{
		"id": "com.example.demo",
		"name": "Demo Plugin",
		"categories": [
			{
				"name": "Main",
				"actions": [
					{
						"name": "Toggle Output",
						"format": "Set $[target] now",
						"data": [
							{"label": "Target", "type": "choice", "default": "a", "valueChoices": ["a", "b"]}
						]
					}
				]
			}
		]
	}`

	t.Run("writes descriptor file", func(t *testing.T) {
		decl := writeFile(t, "plugin.json", declaration)
		out := filepath.Join(t.TempDir(), "entry.sd")

		stdout, err := execute(t, "generate", decl, "--out", out)
		require.NoError(t, err)
		assert.Contains(t, stdout, "wrote")

		generated, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(generated), "com.example.demo.main.action.toggleoutput")

		// The generated file must itself validate.
		_, err = execute(t, "validate", out)
		require.NoError(t, err)
	})

	t.Run("prints to stdout without --out", func(t *testing.T) {
		decl := writeFile(t, "plugin.json", declaration)
		stdout, err := execute(t, "generate", decl)
		require.NoError(t, err)
		assert.Contains(t, stdout, `"id": "com.example.demo"`)
	})

	t.Run("invalid declaration fails", func(t *testing.T) {
		decl := writeFile(t, "plugin.json", `{"name": "No ID"}`)
		_, err := execute(t, "generate", decl)
		require.Error(t, err)
	})
}

func TestSchemaCommand(t *testing.T) {
	t.Run("default version", func(t *testing.T) {
		out, err := execute(t, "schema")
		require.NoError(t, err)
		assert.Contains(t, out, "json-schema.org/draft-07")
		assert.Contains(t, out, "categories")
	})

	t.Run("explicit version", func(t *testing.T) {
		out, err := execute(t, "schema", "--version", "3")
		require.NoError(t, err)
		assert.Contains(t, out, "settings")
	})

	t.Run("out of range version", func(t *testing.T) {
		_, err := execute(t, "schema", "--version", "99")
		require.Error(t, err)
	})
}
