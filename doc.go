// Package surfdeck is an SDK for building control-surface plugins: small
// programs that pair with a desktop host over a local TCP socket, declare
// their actions, states, events and connectors in a descriptor file, and
// exchange newline-delimited JSON messages at runtime.
//
// The SDK is split along that lifecycle:
//
//   - descriptor builds and validates the entry.sd descriptor document,
//     either from a declarative Plugin definition or from a hand-written
//     file, against the versioned attribute rules in entity.
//   - client connects to the host, dispatches inbound messages to handlers
//     on a worker pool, and exposes the outbound operations (state,
//     choice, setting, connector and notification updates).
//   - statestore caches the last value written per state and setting so
//     repeated identical updates never reach the wire.
//   - config, metric and errors carry the ambient concerns: file-based
//     configuration, optional Prometheus instrumentation, and a small
//     error taxonomy separating transport, protocol, validation and usage
//     failures.
//
// The surfdeck command wraps the descriptor layer for use outside Go:
// validating descriptors, generating them from declarations, and exporting
// the rules as JSON Schema.
package surfdeck
