package recon

import (
	"errors"
	"fmt"

	"taskie/backend/internal/gateway"
)

// ErrNotOwner is returned when a mutation names a record that belongs to a
// different user. The record is left untouched and no remote call is made.
var ErrNotOwner = errors.New("record belongs to another user")

// ValidationError is raised before any I/O; the store is untouched when the
// caller sees one.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// degradeMessage distinguishes "could not reach" from "was refused" in the
// status message shown alongside the still-successful local mutation.
func degradeMessage(err error) string {
	if errors.Is(err, gateway.ErrRejected) || errors.Is(err, gateway.ErrNotFound) {
		return fmt.Sprintf("remote store refused the operation (%v); switched to local data", err)
	}
	return fmt.Sprintf("remote store unreachable (%v); switched to local data", err)
}
