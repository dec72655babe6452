package post

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrEmptyContent    = errors.New("post content cannot be empty")
	ErrContentTooLong  = fmt.Errorf("post content exceeds %d characters", MaxContentLength)
	ErrUnauthenticated = errors.New("user not authenticated")
	ErrNotFound        = errors.New("post not found")
	ErrForbidden       = errors.New("post belongs to another user")
)

// Kind groups errors by how a caller should react to them.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuth
	KindRejected
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindRejected:
		return "rejected"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// APIError is a non-2xx answer of the posts API.
type APIError struct {
	Status  int
	Message string
	Reason  string
	err     error
}

// NewAPIError maps an HTTP status onto the matching sentinel.
func NewAPIError(status int, message, reason string) *APIError {
	e := &APIError{Status: status, Message: message, Reason: reason}
	switch status {
	case http.StatusUnauthorized:
		e.err = ErrUnauthenticated
	case http.StatusForbidden:
		e.err = ErrForbidden
	case http.StatusNotFound:
		e.err = ErrNotFound
	}
	return e
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("api: %d %s", e.Status, msg)
}

func (e *APIError) Unwrap() error { return e.err }

// TransportError means the request never produced an HTTP answer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, ErrEmptyContent) || errors.Is(err, ErrContentTooLong) {
		return KindValidation
	}
	if errors.Is(err, ErrUnauthenticated) {
		return KindAuth
	}
	var te *TransportError
	if errors.As(err, &te) {
		return KindTransport
	}
	var ae *APIError
	if errors.As(err, &ae) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) {
		return KindRejected
	}
	return KindUnknown
}
