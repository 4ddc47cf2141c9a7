package sync

import (
	"errors"
	"fmt"
	"strings"

	"zabbix-sync/core/zabbix"
)

// Error is the uniform failure kind produced by one sync attempt. Callers
// never need to distinguish remote-protocol errors from local-resolution
// errors; the entity kind and the original cause are always attached.
type Error struct {
	Entity string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("error syncing %s: %v", e.Entity, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(entity string, err error) *Error {
	return &Error{Entity: entity, Err: err}
}

// ErrNoIdentifier means the remote platform acknowledged a creation but
// returned no identifier, a contract violation.
var ErrNoIdentifier = errors.New("creation returned no identifier")

// isAlreadyExists detects a duplicate-creation race from the remote error
// payload. The remote platform exposes no structured code for this
// condition, so detection is a substring match across the message and data
// payloads; keep every caller behind this one predicate.
func isAlreadyExists(err error) bool {
	apiErr, ok := zabbix.AsAPIError(err)
	if !ok {
		return false
	}
	combined := strings.ToLower(apiErr.Message + " " + apiErr.Data)
	return strings.Contains(combined, "already exists")
}

// isCannotSwitchHost detects the remote invariant that an interface cannot
// be reassigned between hosts; the interface syncer recreates instead.
func isCannotSwitchHost(err error) bool {
	apiErr, ok := zabbix.AsAPIError(err)
	if !ok {
		return false
	}
	combined := strings.ToLower(apiErr.Message + " " + apiErr.Data)
	return strings.Contains(combined, "cannot switch host for interface")
}
