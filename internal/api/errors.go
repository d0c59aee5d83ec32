package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed API call
type Kind int

const (
	// KindNetwork covers transport failures: refused connections, timeouts, cancellation
	KindNetwork Kind = iota
	// KindUnauthorized is a 401; the session has already been dropped when it is returned
	KindUnauthorized
	// KindValidation is any other 4xx
	KindValidation
	// KindServer is a 5xx
	KindServer
	// KindDecode means a successful response carried a body we could not read
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	}
	return "unknown"
}

// Error is returned by every Client method that fails
type Error struct {
	Kind      Kind
	Op        string // "POST /projects"
	Status    int    // 0 when no response was received
	Message   string // server supplied message, if any
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("api: ")
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": %d", e.Status)
	}
	if e.Message != "" {
		b.WriteString(" ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

var errMissingEntity = errors.New("response carried no entity")

// missingEntity reports a successful write whose body did not contain the
// stored entity
func missingEntity(method, path string) *Error {
	return &Error{Kind: KindDecode, Op: method + " " + path, Err: errMissingEntity}
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status >= 500:
		return KindServer
	default:
		return KindValidation
	}
}

// errorBody is the error payload shape of the API. Laravel style backends
// send "message"; others send "error".
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func messageFromBody(data []byte) string {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

// OpError is what the stores return: the failed operation, the message to
// show the user, and the underlying cause
type OpError struct {
	Op      string
	Message string
	Err     error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Message
	}
	return e.Op + ": " + e.Message + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// NewOpError wraps err, taking the user message from the server response
// when there is one and from fallback otherwise
func NewOpError(op string, err error, fallback string) *OpError {
	return &OpError{Op: op, Message: UserMessage(err, fallback), Err: err}
}

// UserMessage picks the human readable message for err
func UserMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsUnauthorized reports whether err came from a 401
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindUnauthorized
}
