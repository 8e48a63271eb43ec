package lookup

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential indicates the client was constructed without the
	// app ID or API key the verification service requires.
	ErrMissingCredential = errors.New("missing lookup credential")

	// ErrNotFound indicates the service has no record for the queried
	// invoice number and random code pair.
	ErrNotFound = errors.New("invoice not found")

	// ErrUnauthorized indicates the service rejected the credentials.
	ErrUnauthorized = errors.New("lookup unauthorized")

	// ErrLookupFailed covers transport failures and unexpected service
	// responses. Callers treat it as a soft failure and fall back to the
	// unverified code data.
	ErrLookupFailed = errors.New("lookup failed")
)

// LookupError provides detailed context about a verification failure.
type LookupError struct {
	// Op is the operation that failed.
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional service context, such as the remote
	// response code and message.
	Details string
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("lookup %s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("lookup %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *LookupError) Unwrap() error {
	return e.Err
}
