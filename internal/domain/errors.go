package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for catalog operations
var (
	// ErrServerOffline indicates the metadata or operation server is unreachable
	ErrServerOffline = errors.New("store server is unreachable")

	// ErrUnexpectedStatus indicates the server answered with a non-200 status
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrMalformedPayload indicates a server record could not be decoded
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrNativeUnavailable indicates no store daemon is configured or reachable
	ErrNativeUnavailable = errors.New("store daemon is not available")

	// ErrSoftwareNotFound indicates the requested entry does not exist
	ErrSoftwareNotFound = errors.New("software not found")

	// ErrJobNotFound indicates the requested job does not exist
	ErrJobNotFound = errors.New("job not found")
)

// NormalizeError reports a server record field that failed to decode
type NormalizeError struct {
	Name  string // Entry name
	Field string // Raw field that failed, e.g. "packageURI"
	Err   error  // Underlying decode error
}

func (e *NormalizeError) Error() string {
	return fmt.Sprintf("normalize %s: field %s: %v", e.Name, e.Field, e.Err)
}

func (e *NormalizeError) Unwrap() []error {
	return []error{ErrMalformedPayload, e.Err}
}

// OpError wraps a failed daemon operation with the entries it targeted
type OpError struct {
	Op    string   // Operation that failed
	Names []string // Entry names if applicable
	Err   error    // Underlying error
}

func (e *OpError) Error() string {
	if len(e.Names) > 0 {
		return fmt.Sprintf("%s %s: %v", e.Op, strings.Join(e.Names, ","), e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
