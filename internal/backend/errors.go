package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrTransport marks network failures and dropped connections.
	ErrTransport = errors.New("transport error")
	// ErrApplication marks an {error} payload returned by the backend.
	ErrApplication = errors.New("backend error")
	// ErrValidation marks input rejected before or by the backend.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing project or resource.
	ErrNotFound = errors.New("not found")
	// ErrNotGenerated marks a storyboard block that has not been produced yet.
	ErrNotGenerated = errors.New("not yet generated")
	// ErrBusy marks a trigger ignored because another generation is running.
	ErrBusy = errors.New("generation in progress")
	// ErrCancelled marks a destructive action the user declined.
	ErrCancelled = errors.New("cancelled")
)

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker for later classification.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "backend failure"
	}
	return strings.Join(parts, ": ")
}

// APIError carries a non-success response. Message is the backend's {error}
// string verbatim when one was supplied.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.TrimSpace(e.Body)
	}
	if e.StatusCode == 0 || e.StatusCode == http.StatusOK {
		return msg
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, msg)
}

// Is maps the response onto the sentinel markers.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrApplication:
		return true
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrValidation:
		return e.StatusCode == http.StatusBadRequest
	default:
		return false
	}
}

// ApplicationMessage extracts the backend's message from err, or returns
// err's text when no backend message is present.
func ApplicationMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// IsTransport reports whether err is a network-level failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
