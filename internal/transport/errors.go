package transport

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an upstream fetch failed
type ErrorKind int

const (
	// KindNetwork indicates the request could not be sent or the body could not be read
	KindNetwork ErrorKind = iota
	// KindTimeout indicates the request exceeded its deadline
	KindTimeout
	// KindStatus indicates a non-2xx HTTP status
	KindStatus
	// KindNotJSON indicates the body is not valid JSON
	KindNotJSON
	// KindEmpty indicates an empty or null body
	KindEmpty
	// KindBlocked indicates the upstream answered with an HTML challenge page
	KindBlocked
	// KindCircuitOpen indicates the call was refused by the circuit breaker
	KindCircuitOpen
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindStatus:
		return "status"
	case KindNotJSON:
		return "not_json"
	case KindEmpty:
		return "empty"
	case KindBlocked:
		return "blocked"
	case KindCircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is the cause of every KindCircuitOpen error
var ErrCircuitOpen = errors.New("circuit breaker is open")

// FetchError is returned by FetchJSON for every failure
type FetchError struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Detail     string
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	msg := e.Kind.String()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s %d", msg, e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, msg)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// KindOf returns the kind of a FetchError anywhere in err's chain
func KindOf(err error) (ErrorKind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is a FetchError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
