// Package api is the client for the device file-service HTTP API.
package api

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError means no HTTP response was received: connection refused,
// DNS failure, reset before headers, or a cancelled context.
type TransportError struct {
	Op  string // operation, e.g. "list"
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError is a non-2xx response. Body holds the server's text.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: server returned %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// StreamError is a failure while reading a download body after headers
// arrived. Any partial data has been discarded.
type StreamError struct {
	Op     string
	Path   string
	Loaded uint64 // bytes received before the failure
	Err    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s %s: stream failed after %d bytes: %v", e.Op, e.Path, e.Loaded, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// IsTransportError reports whether err (or anything it wraps) is a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsStreamError reports whether err (or anything it wraps) is a StreamError.
func IsStreamError(err error) bool {
	var se *StreamError
	return errors.As(err, &se)
}

// AsRemoteError extracts a RemoteError from err.
func AsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsNotFound reports a 404 from the device.
func IsNotFound(err error) bool {
	re, ok := AsRemoteError(err)
	return ok && re.StatusCode == http.StatusNotFound
}

// IsConflict reports a 409 from the device (target already exists).
func IsConflict(err error) bool {
	re, ok := AsRemoteError(err)
	return ok && re.StatusCode == http.StatusConflict
}
