package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying: network errors, unparsable
	// responses, temporary service unavailability.
	ErrTransient = errors.New("transient failure")
	// ErrValidation marks server-reported 4xx responses carrying a
	// human-readable message.
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized marks 401 responses that survived the refresh protocol.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConfiguration marks failures caused by local misconfiguration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks missing remote resources.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
