package expect

import (
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	// ErrTimeout reports that the deadline elapsed before the marker appeared.
	ErrTimeout = errors.New("timeout waiting for marker")
	// ErrStreamClosed reports that the console reached EOF before the marker appeared.
	ErrStreamClosed = errors.New("console closed before marker")
	// ErrEmptyMarker is returned when ExpectExact is called without a marker.
	ErrEmptyMarker = errors.New("empty marker")
)

// MatchError describes a failed wait. Err is ErrTimeout, ErrStreamClosed or
// the context error that interrupted the wait.
type MatchError struct {
	Marker  string
	Timeout time.Duration
	Err     error
	// Cause is the read error that ended the stream, if any.
	Cause error
	// Tail holds the most recent unmatched console output.
	Tail string
}

func (e *MatchError) Error() string {
	msg := fmt.Sprintf("expect %q: %v", e.Marker, e.Err)
	if errors.Is(e.Err, ErrTimeout) {
		msg += fmt.Sprintf(" after %s", e.Timeout)
	}
	if e.Cause != nil && !errors.Is(e.Cause, io.EOF) {
		msg += fmt.Sprintf(" (%v)", e.Cause)
	}
	return msg
}

func (e *MatchError) Unwrap() error { return e.Err }
