package upstream

import (
	"fmt"
	"net/http"

	"github.com/msomdec/recipe-console/internal/domain"
)

// Error is a structured upstream failure: the HTTP status the server
// answered with and, when the body carried one, its message.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream: %d %s", e.Status, http.StatusText(e.Status))
}

// Unwrap maps well-known statuses onto the domain sentinels so callers can
// branch with errors.Is without knowing about this package.
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrUnauthorized
	case http.StatusNotFound:
		return domain.ErrNotFound
	}
	return nil
}
