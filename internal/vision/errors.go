package vision

import (
	"errors"
	"fmt"
)

// Kind classifies an analysis failure.
type Kind int

const (
	KindAnalysis Kind = iota
	KindInvalidInput
	KindMalformedResponse
	KindMissingField
	KindInvalidEnumValue
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindMalformedResponse:
		return "malformed_response"
	case KindMissingField:
		return "missing_field"
	case KindInvalidEnumValue:
		return "invalid_enum_value"
	default:
		return "analysis_error"
	}
}

// Sentinels for errors.Is. Every *Error matches the sentinel of its kind.
var (
	ErrAnalysis          = errors.New("analysis failed")
	ErrInvalidInput      = errors.New("invalid input")
	ErrMalformedResponse = errors.New("malformed response")
	ErrMissingField      = errors.New("missing required field")
	ErrInvalidEnumValue  = errors.New("invalid enum value")
)

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindMalformedResponse:
		return ErrMalformedResponse
	case KindMissingField:
		return ErrMissingField
	case KindInvalidEnumValue:
		return ErrInvalidEnumValue
	default:
		return ErrAnalysis
	}
}

// Error is the error type returned by the analyzer and the parser.
type Error struct {
	Kind    Kind
	Field   string // MissingField, InvalidEnumValue
	Value   any    // InvalidEnumValue
	Message string
	// Response holds the raw model text for MalformedResponse errors.
	Response string
	Cause    error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindMissingField:
		msg = "Missing required field: " + e.Field
	case KindInvalidEnumValue:
		msg = fmt.Sprintf("Invalid value for %s: %v", e.Field, e.Value)
	default:
		msg = e.Message
	}
	if e.Cause != nil {
		if msg == "" {
			msg = e.Cause.Error()
		} else {
			msg += ": " + e.Cause.Error()
		}
	}
	if e.Response != "" {
		msg += ". Response: " + e.Response
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf returns the most specific kind found in err's chain. Errors that
// carry no *Error report KindAnalysis.
func KindOf(err error) Kind {
	kind := KindAnalysis
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			break
		}
		if e.Kind != KindAnalysis {
			kind = e.Kind
		}
		err = e.Cause
	}
	return kind
}

func missingField(field string) *Error {
	return &Error{Kind: KindMissingField, Field: field}
}

func invalidEnumValue(field string, value any) *Error {
	return &Error{Kind: KindInvalidEnumValue, Field: field, Value: value}
}

func malformedResponse(text string, cause error) *Error {
	return &Error{
		Kind:     KindMalformedResponse,
		Message:  "Failed to parse AI response",
		Response: text,
		Cause:    cause,
	}
}

func invalidInput(cause error, format string, a ...any) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, a...), Cause: cause}
}

// analysisError flattens any failure at the analyzer boundary. The cause
// keeps its own kind, reachable through errors.Is and KindOf.
func analysisError(cause error) *Error {
	return &Error{Kind: KindAnalysis, Message: "Failed to analyze image", Cause: cause}
}
