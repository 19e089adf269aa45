package catalog

import (
	"errors"
	"fmt"
)

// ErrNotFound means the remote confirmed the entity does not exist.
var ErrNotFound = errors.New("catalog: not found")

// ErrUnauthorized means the remote rejected the credentials (401).
var ErrUnauthorized = errors.New("catalog: unauthorized")

// ErrForbidden means the credentials are valid but access to one entity was
// denied (403).
var ErrForbidden = errors.New("catalog: forbidden")

// ServerError is any other non-2xx response from the catalog server.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("catalog server error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("catalog server error: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err carries ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
