package netapi

import (
	"fmt"

	"github.com/pkg/errors"
)

// An error returned when the network service reports that a requested
// resource does not exist. The resolution code treats it as an empty
// match set rather than a failure.
type NotFoundError struct {
	resource string
}

// Creates new instance of the NotFoundError.
func NewNotFoundError(resource string) error {
	return &NotFoundError{
		resource: resource,
	}
}

// Returns error string.
func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found in the network service", e.resource)
}

// An error returned when the network service rejects a creation call
// because the resource already exists, e.g. a fabric VLAN id raced away
// to a concurrent provisioner.
type ConflictError struct {
	message string
}

// Creates new instance of the ConflictError.
func NewConflictError(message string) error {
	return &ConflictError{
		message: message,
	}
}

// Returns error string.
func (e ConflictError) Error() string {
	return e.message
}

// Checks if the error or any error in its chain reports a missing resource.
func IsNotFound(err error) bool {
	var notFoundError *NotFoundError
	return errors.As(err, &notFoundError)
}

// Checks if the error or any error in its chain reports a creation conflict.
func IsConflict(err error) bool {
	var conflictError *ConflictError
	return errors.As(err, &conflictError)
}
