package healthcheck

import (
	"errors"
	"fmt"

	"github.com/portal/gateway/internal/platform/systems"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrDuplicateCampaign = errors.New("campaign already exists")
	ErrConflict          = errors.New("concurrent modification")
	ErrStorage           = errors.New("storage failure")
	ErrLedgerClosed      = errors.New("sync log entry already finished")
	ErrAppointmentClosed = errors.New("appointment already in a terminal state")

	ErrUpstreamFailure = systems.ErrUpstreamFailure
	ErrUpstreamTimeout = systems.ErrUpstreamTimeout
)

// validationError carries a client-facing message and matches ErrValidation.
func validationError(format string, args ...any) error {
	return &messageError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...any) error {
	return &messageError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

// storageError wraps unexpected repository failures. Domain errors raised by
// the repository pass through untouched.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrNotFound, ErrDuplicateCampaign, ErrConflict, ErrLedgerClosed, ErrStorage} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

// Message returns the client-facing text of a domain error.
func Message(err error) string {
	var m *messageError
	if errors.As(err, &m) {
		return m.msg
	}
	return err.Error()
}

// messageError is a sentinel error with its own client-facing message.
type messageError struct {
	kind error
	msg  string
}

func (e *messageError) Error() string { return e.msg }
func (e *messageError) Unwrap() error { return e.kind }

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
