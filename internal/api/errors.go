package api

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned when the remote API rejects the session.
var ErrUnauthenticated = errors.New("api: not authenticated")

// StatusError reports a non-2xx response from the remote API together with
// the server-provided message, when one was decodable.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: server returned status %d", e.Status)
	}
	return fmt.Sprintf("api: server returned status %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is a StatusError with the given status code.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}
