// Package errors provides standardized error handling patterns for the
// SurfDeck SDK.
//
// # Overview
//
// The package implements a four-class error classification system matching
// the failure taxonomy of the plugin runtime: Transport (socket-level, ends
// the run loop), Protocol (attributable to a single wire message, connection
// survives), Validation (descriptor documents violating the schema rules),
// and Usage (incorrect API calls by the plugin author).
//
// Classification drives the propagation policy: only Transport errors tear
// down the connection loop; everything else is isolated and reported through
// the client's error event without interrupting other traffic.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Four wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransport(err, "Client", "Connect", "dial")
//	errors.WrapProtocol(err, "Client", "dispatch", "decode line")
//	errors.WrapValidation(err, "Generator", "Generate", "validate output")
//	errors.WrapUsage(err, "Store", "UpdateState", "empty id")
//
// The generic Wrap() applies the format without assigning a class.
//
// # Integration with errors.Is/As
//
// All error types support standard library inspection. Classification is
// preserved through wrapping chains:
//
//	wrapped := errors.WrapTransport(errors.ErrConnectionClosed, "Client", "run", "read")
//	errors.IsTransport(wrapped) // true
//
// Error variables are immutable and safe for concurrent use.
package errors
