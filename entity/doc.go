// Package entity defines the in-memory schema shared by the descriptor
// tooling and the runtime client: entity kinds, data item value types, and
// the versioned attribute rule tables that say which attributes are
// required, optional, or unavailable at a given schema version.
//
// The package is pure data and lookup logic with no I/O. Lookups fail
// closed: an unknown entity kind or attribute name is always an error,
// never silently ignored, so a descriptor with a typo cannot slip through
// generation only to be rejected by the controller later.
package entity
