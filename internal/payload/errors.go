package payload

import (
	"errors"
	"fmt"
)

// Parse failures. All of these are recoverable: callers fall back to the
// recognized-text pipeline when the payload cannot be decoded.
var (
	// ErrMalformedPayload is returned when the payload has fewer than the
	// minimum four delimited segments.
	ErrMalformedPayload = errors.New("malformed code payload")

	// ErrInvalidDocumentNumber is returned when the first segment does not
	// match the fixed document number shape (2 digits, 1 uppercase letter,
	// 8 digits).
	ErrInvalidDocumentNumber = errors.New("invalid document number")

	// ErrInvalidRandomCode is returned when the second segment is not exactly
	// 4 alphanumeric characters.
	ErrInvalidRandomCode = errors.New("invalid random code")

	// ErrInvalidDate is returned when the third segment matches none of the
	// accepted date encodings.
	ErrInvalidDate = errors.New("invalid issue date")

	// ErrInvalidAmount is returned when the fourth segment is not a strictly
	// positive minor-unit integer.
	ErrInvalidAmount = errors.New("invalid total amount")
)

// ParseError wraps a parse failure with the offending segment for diagnostics.
type ParseError struct {
	// Segment is the zero-based index of the segment that failed validation,
	// or -1 for structural failures.
	Segment int

	// Value is the raw segment text.
	Value string

	// Err is the underlying sentinel error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Segment < 0 {
		return fmt.Sprintf("payload: %v", e.Err)
	}
	return fmt.Sprintf("payload: segment %d %q: %v", e.Segment, e.Value, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ParseError) Unwrap() error {
	return e.Err
}
