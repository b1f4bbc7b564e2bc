// Package errors provides standardized error handling for the SurfDeck SDK.
// It includes error classification, standard error variables, and helper
// functions for consistent error wrapping across the runtime and the
// descriptor tooling.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransport represents socket-level failures that end the run loop
	ErrorTransport ErrorClass = iota
	// ErrorProtocol represents malformed or unexpected wire traffic; the
	// connection survives these
	ErrorProtocol
	// ErrorValidation represents descriptor documents that violate the
	// schema rules
	ErrorValidation
	// ErrorUsage represents incorrect API usage by the calling plugin
	ErrorUsage
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransport:
		return "transport"
	case ErrorProtocol:
		return "protocol"
	case ErrorValidation:
		return "validation"
	case ErrorUsage:
		return "usage"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Connection lifecycle errors
	ErrAlreadyConnected = errors.New("client already connected")
	ErrNotConnected     = errors.New("client not connected")
	ErrConnectionClosed = errors.New("connection closed by peer")
	ErrSendBufferFull   = errors.New("send buffer full")

	// Wire protocol errors
	ErrMalformedMessage = errors.New("malformed message")
	ErrPluginIDMismatch = errors.New("plugin id mismatch")
	ErrMissingType      = errors.New("message has no type field")

	// Entity and state errors
	ErrUnknownState    = errors.New("unknown state id")
	ErrUnknownKind     = errors.New("unknown entity kind")
	ErrEmptyIdentifier = errors.New("empty identifier")

	// Descriptor errors
	ErrInvalidDescriptor = errors.New("descriptor failed validation")
	ErrMissingCategories = errors.New("descriptor has no categories")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsTransport checks whether an error is a socket-level failure
func IsTransport(err error) bool {
	return classIs(err, ErrorTransport) ||
		errors.Is(err, ErrConnectionClosed) ||
		errors.Is(err, ErrNotConnected)
}

// IsProtocol checks whether an error is attributable to a single wire message
func IsProtocol(err error) bool {
	return classIs(err, ErrorProtocol) ||
		errors.Is(err, ErrMalformedMessage) ||
		errors.Is(err, ErrPluginIDMismatch) ||
		errors.Is(err, ErrMissingType)
}

// IsValidation checks whether an error came from descriptor validation
func IsValidation(err error) bool {
	return classIs(err, ErrorValidation) || errors.Is(err, ErrInvalidDescriptor)
}

// IsUsage checks whether an error is caller misuse of the API
func IsUsage(err error) bool {
	return classIs(err, ErrorUsage) ||
		errors.Is(err, ErrEmptyIdentifier) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig)
}

func classIs(err error, class ErrorClass) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == class
	}
	return false
}

// Classify returns the error class for an error. Unclassified errors default
// to transport since those are the only ones that terminate the run loop.
func Classify(err error) ErrorClass {
	switch {
	case IsProtocol(err):
		return ErrorProtocol
	case IsValidation(err):
		return ErrorValidation
	case IsUsage(err):
		return ErrorUsage
	default:
		return ErrorTransport
	}
}

// newClassified creates a new classified error.
// Internal helper - use the WrapXxx functions instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransport wraps an error as a transport failure with context
func WrapTransport(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransport, wrappedErr, component, method, wrappedErr.Error())
}

// WrapProtocol wraps an error as a per-message protocol failure with context
func WrapProtocol(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorProtocol, wrappedErr, component, method, wrappedErr.Error())
}

// WrapValidation wraps an error as a descriptor validation failure with context
func WrapValidation(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorValidation, wrappedErr, component, method, wrappedErr.Error())
}

// WrapUsage wraps an error as caller misuse with context
func WrapUsage(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorUsage, wrappedErr, component, method, wrappedErr.Error())
}
