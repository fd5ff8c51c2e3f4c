package optimus

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed Optimize call.
type ErrorKind int

const (
	// KindNotFound is HTTP 404: invalid API key or wrong endpoint.
	KindNotFound ErrorKind = iota + 1
	// KindTooManyRequests is HTTP 429: the key exceeded its request rate.
	KindTooManyRequests
	// KindClient is any other HTTP 4xx.
	KindClient
	// KindServer is any HTTP 5xx.
	KindServer
	// KindTransport is a transport failure or a successful status with an empty body.
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindTooManyRequests:
		return "too_many_requests"
	case KindClient:
		return "client_error"
	case KindServer:
		return "server_error"
	case KindTransport:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Sentinels usable with errors.Is against any *Error of the same kind.
var (
	ErrNotFound        = errors.New("optimus: not found")
	ErrTooManyRequests = errors.New("optimus: too many requests")
	ErrClient          = errors.New("optimus: client error")
	ErrServer          = errors.New("optimus: server error")
	ErrTransport       = errors.New("optimus: transport error or empty response")
)

// Error is returned by Optimize for every failure.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	// Detail summarizes a textual error body, if the service sent one.
	Detail string
	Body   []byte
	// Err is the underlying transport error for KindTransport.
	Err error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Message
	}
	return e.Message + ": " + e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindTooManyRequests:
		return ErrTooManyRequests
	case KindClient:
		return ErrClient
	case KindServer:
		return ErrServer
	case KindTransport:
		return ErrTransport
	}
	return nil
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// classifyStatus maps 4xx and 5xx statuses to an *Error. Any other status
// returns nil and is handled as a success candidate.
func classifyStatus(status int, header http.Header, body []byte) *Error {
	var e *Error
	switch {
	case status >= 400 && status <= 499:
		switch status {
		case http.StatusNotFound:
			e = &Error{
				Kind:    KindNotFound,
				Message: fmt.Sprintf("optimus client error: invalid API key or wrong API endpoint [status %d]", status),
			}
		case http.StatusTooManyRequests:
			e = &Error{
				Kind:    KindTooManyRequests,
				Message: fmt.Sprintf("optimus client error: API requests are rate limited at 3 requests per second [status %d]", status),
			}
		default:
			e = &Error{
				Kind:    KindClient,
				Message: fmt.Sprintf("optimus client error [status %d]", status),
			}
		}
	case status >= 500 && status <= 599:
		e = &Error{
			Kind:    KindServer,
			Message: fmt.Sprintf("optimus server error [status %d]", status),
		}
	default:
		return nil
	}
	e.StatusCode = status
	e.Body = body
	e.Detail = responseDetail(header, body)
	return e
}

func transportError(status int, cause error, body []byte) *Error {
	causeText := ""
	if cause != nil {
		causeText = cause.Error()
	}
	return &Error{
		Kind:       KindTransport,
		StatusCode: status,
		Message:    fmt.Sprintf("optimus error: %s, output: %s", causeText, bodySnippet(body)),
		Body:       body,
		Err:        cause,
	}
}
