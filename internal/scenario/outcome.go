package scenario

import (
	"context"
	"errors"

	"github.com/illusionfield/floattest/internal/expect"
)

// Outcome classifies the result of a Run for reporting.
type Outcome int

const (
	Pass Outcome = iota
	Timeout
	StreamClosed
	Cancelled
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case Timeout:
		return "timeout"
	case StreamClosed:
		return "stream closed"
	case Cancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// ExitCode maps the outcome to a process exit status.
func (o Outcome) ExitCode() int {
	if o == Pass {
		return 0
	}
	return 1
}

// Classify maps an error returned by Run to its Outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return Pass
	case errors.Is(err, expect.ErrTimeout):
		return Timeout
	case errors.Is(err, expect.ErrStreamClosed):
		return StreamClosed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Cancelled
	default:
		return Failed
	}
}
