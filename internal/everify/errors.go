package everify

import (
	"errors"
	"fmt"
)

var (
	ErrNoCredential = errors.New("no access token or API key available")
	ErrBusy         = errors.New("request already in flight")
	ErrAuthFailed   = errors.New("authentication failed")
	ErrUnknownField = errors.New("unknown configuration field")
)

// Messages shown to the operator next to the response pane.
const (
	NoCredentialMessage = "No access token or API key available"
	NoticeAuthFailed    = "Authentication failed"
	NoticeNetworkError  = "Network error occurred"
)

// TransportError covers anything that kept us from getting a JSON body back:
// dial/TLS/timeout failures and responses that do not parse as JSON.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a parsed response with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: api returned status %d", e.Op, e.StatusCode)
}
