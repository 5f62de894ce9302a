package client

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a RequestError.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidRequest
	KindNotAuthenticated
	KindInvalidCredentials
	KindNetwork
	KindServer
	KindNotFound
	KindValidation
	KindDecoding
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid request"
	case KindNotAuthenticated:
		return "not authenticated"
	case KindInvalidCredentials:
		return "invalid credentials"
	case KindNetwork:
		return "network error"
	case KindServer:
		return "server error"
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation error"
	case KindDecoding:
		return "decoding error"
	case KindStorage:
		return "storage error"
	}
	return "unknown error"
}

// Sentinels for errors.Is. A *RequestError matches the sentinel of its Kind.
var (
	ErrInvalidRequest     = &RequestError{Kind: KindInvalidRequest}
	ErrNotAuthenticated   = &RequestError{Kind: KindNotAuthenticated}
	ErrInvalidCredentials = &RequestError{Kind: KindInvalidCredentials}
	ErrNetwork            = &RequestError{Kind: KindNetwork}
	ErrServer             = &RequestError{Kind: KindServer}
	ErrNotFound           = &RequestError{Kind: KindNotFound}
	ErrValidation         = &RequestError{Kind: KindValidation}
	ErrDecoding           = &RequestError{Kind: KindDecoding}
	ErrStorage            = &RequestError{Kind: KindStorage}
)

// RequestError is the single error type returned by the session, pipeline
// and services layers.
type RequestError struct {
	Kind Kind
	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int
	// Fields holds per-field messages for KindValidation.
	Fields map[string][]string
	// Detail is a short human readable summary of the response body.
	Detail string
	Err    error
}

func (e *RequestError) Error() string {
	if e == nil {
		return "request failed"
	}

	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (%d)", e.StatusCode)
	}
	if len(e.Fields) > 0 {
		b.WriteString(": ")
		b.WriteString(formatFields(e.Fields))
	} else if strings.TrimSpace(e.Detail) != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RequestError) Unwrap() error { return e.Err }

// Is reports whether target is a *RequestError of the same Kind.
func (e *RequestError) Is(target error) bool {
	t, ok := target.(*RequestError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

func formatFields(fields map[string][]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(fields[name], " ")))
	}
	return strings.Join(parts, "; ")
}

func InvalidRequestError(err error) *RequestError {
	return &RequestError{Kind: KindInvalidRequest, Err: err}
}

func NotAuthenticatedError(err error) *RequestError {
	return &RequestError{Kind: KindNotAuthenticated, Err: err}
}

func InvalidCredentialsError(statusCode int, detail string) *RequestError {
	return &RequestError{Kind: KindInvalidCredentials, StatusCode: statusCode, Detail: detail}
}

func NetworkError(err error) *RequestError {
	return &RequestError{Kind: KindNetwork, Err: err}
}

func ServerError(statusCode int, detail string) *RequestError {
	return &RequestError{Kind: KindServer, StatusCode: statusCode, Detail: detail}
}

func NotFoundError(detail string) *RequestError {
	return &RequestError{Kind: KindNotFound, StatusCode: 404, Detail: detail}
}

func ValidationError(statusCode int, fields map[string][]string) *RequestError {
	return &RequestError{Kind: KindValidation, StatusCode: statusCode, Fields: fields}
}

func DecodingError(statusCode int, err error) *RequestError {
	return &RequestError{Kind: KindDecoding, StatusCode: statusCode, Err: err}
}

func StorageError(err error) *RequestError {
	return &RequestError{Kind: KindStorage, Err: err}
}

// KindOf returns the Kind of the first *RequestError in err's chain.
func KindOf(err error) Kind {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

// FieldErrors returns the validation messages carried by err, if any.
func FieldErrors(err error) map[string][]string {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Fields
	}
	return nil
}
