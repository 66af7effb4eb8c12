package terminal

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("terminal: aborted")
	// ErrNotReady is returned when the form has not finished mounting or was
	// closed.
	ErrNotReady = errors.New("terminal: form is not ready")
	// ErrTooManyAttempts is returned when a field stays invalid after the
	// configured number of answers.
	ErrTooManyAttempts = errors.New("terminal: too many invalid answers")
)
