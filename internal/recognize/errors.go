package recognize

import (
	"errors"
	"fmt"
)

// Common recognition errors
var (
	// ErrImageTooLarge is returned when the image exceeds the maximum size
	// for synchronous processing (20MB).
	ErrImageTooLarge = errors.New("image size exceeds the maximum limit (20MB)")

	// ErrEmptyImage is returned when no image data was provided.
	ErrEmptyImage = errors.New("empty image data")

	// ErrRecognitionFailed is returned when the recognition engine fails to
	// process the image.
	ErrRecognitionFailed = errors.New("text recognition failed")

	// ErrMissingCredentials is returned when neither GOOGLE_APPLICATION_CREDENTIALS
	// nor GOOGLE_CREDENTIALS environment variables are configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrNoTextFound is returned when the image contains no readable text.
	ErrNoTextFound = errors.New("image contains no readable text")

	// ErrQuotaExceeded is returned when the recognition API quota is exhausted.
	ErrQuotaExceeded = errors.New("recognition API quota exceeded")

	// ErrProcessorNotFound is returned when the configured Document AI
	// processor does not exist.
	ErrProcessorNotFound = errors.New("document processor not found")

	// ErrInvalidConfiguration is returned when required engine settings are absent.
	ErrInvalidConfiguration = errors.New("invalid recognizer configuration")

	// ErrContextCanceled is returned when the context is canceled during processing.
	ErrContextCanceled = errors.New("text recognition was canceled")
)

// RecognitionError wraps errors with additional context about the failure.
type RecognitionError struct {
	// Op is the operation that failed.
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *RecognitionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("recognize: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("recognize: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *RecognitionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapRecognitionError wraps an error as a RecognitionError if it isn't already one.
func WrapRecognitionError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var recErr *RecognitionError
	if errors.As(err, &recErr) {
		return err
	}

	return &RecognitionError{Op: op, Err: err, Details: details}
}
