// Package descriptor implements validation and generation of plugin
// descriptor documents (conventionally "entry.sd").
//
// # Validation
//
// Validate walks a document depth-first against the versioned attribute rule
// tables in the entity package and accumulates every violation in one pass,
// so a caller always gets a complete lint report:
//
//	doc, err := descriptor.Load("entry.sd")
//	if err != nil { ... }
//	if violations := descriptor.Validate(doc); len(violations) > 0 {
//	    fmt.Println(descriptor.FormatViolations(violations))
//	}
//
// Checked: required attributes, unknown and version-gated attributes, value
// types and closed value lists, data item value domains, global identifier
// uniqueness at any nesting depth, and data item references in format
// strings.
//
// # Generation
//
// Generate expands a declarative Plugin definition into a full document,
// deriving identifiers from the plugin/category/entity name path where none
// are given, and then validates the result. A failing validation is a hard
// error carrying the full violation list; an invalid document is never
// returned.
//
// Schema exports the rule tables as a JSON Schema document for external
// structural checking; ValidateSchema runs a document against it.
package descriptor
