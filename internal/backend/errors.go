package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnreachable wraps transport failures: DNS, refused connections, timeouts.
	ErrUnreachable = errors.New("backend unreachable")
	// ErrMalformed wraps 2xx responses whose body could not be decoded.
	ErrMalformed = errors.New("backend response malformed")
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
}

func (e *StatusError) Retryable() bool { return e.Code >= 500 }

func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// IsClientError reports a 4xx answer, i.e. the backend understood and refused.
func IsClientError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 400 && se.Code < 500
}
