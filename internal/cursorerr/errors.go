// Package cursorerr defines the error taxonomy shared by the reader and
// cursor packages. Each sentinel corresponds to one failure mode from the
// error handling design: config-time failures are fatal, operation-level
// failures (LagUnavailable) are not.
package cursorerr

import "errors"

var (
	// ErrConfig covers invalid or contradictory Reader construction
	// parameters.
	ErrConfig = errors.New("tailcursor: invalid configuration")

	// ErrCursorMissing is returned when a cursor file exists but is empty.
	// An absent cursor file is not an error: it reads as no record.
	ErrCursorMissing = errors.New("tailcursor: cursor missing")

	// ErrCursorCorrupt is returned when a cursor file cannot be parsed.
	ErrCursorCorrupt = errors.New("tailcursor: cursor corrupt")

	// ErrLogfileMismatch is returned when a cursor's recorded logfile
	// disagrees with the supplied log path and check_log is enabled.
	ErrLogfileMismatch = errors.New("tailcursor: cursor logfile mismatch")

	// ErrUnreadableLog is returned when a segment file exists but cannot
	// be opened.
	ErrUnreadableLog = errors.New("tailcursor: log segment unreadable")

	// ErrPositionLost is returned when rotation-recovery exhausts every
	// candidate segment without a match.
	ErrPositionLost = errors.New("tailcursor: position lost across rotation")

	// ErrLockBusy is returned by a nonblocking lock attempt on an
	// already-held cursor lock file.
	ErrLockBusy = errors.New("tailcursor: cursor lock busy")

	// ErrLagUnavailable is returned by Lag() when no segment handle is
	// open.
	ErrLagUnavailable = errors.New("tailcursor: lag unavailable, no open handle")
)
