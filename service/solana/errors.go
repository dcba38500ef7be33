package solana

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError means the request never produced a usable JSON-RPC
// envelope: the connection failed, the call timed out, or the endpoint
// answered with a non-2xx status. Transport errors are retryable.
type TransportError struct {
	Method     string
	StatusCode int // zero when no HTTP response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: transport error (HTTP %d): %v", e.Method, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transport error: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RateLimited reports whether the endpoint answered 429.
func (e *TransportError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// MalformedResponseError means the endpoint answered but the response is
// unusable: the body could not be decoded, an expected field was missing, or
// the envelope carried an application-level error object.
type MalformedResponseError struct {
	Method  string
	Code    int // JSON-RPC error code, zero for decode failures
	Message string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: rpc error %d: %s", e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: malformed response: %v", e.Method, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transport-class failure.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
