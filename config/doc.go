// Package config loads and validates plugin process configuration from JSON
// or YAML files. Configuration is optional: Default returns a working setup,
// and Options translates a loaded config into client options without the
// caller touching individual fields.
package config
