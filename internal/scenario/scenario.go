// Package scenario drives the floating point board test: it waits for the
// workload's start announcement and then for its success line.
package scenario

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// StartMarker is printed by the device when the workload begins.
	StartMarker = "Testing floating point arithmetics..."
	// CompletionMarker is printed once every check passed.
	CompletionMarker = "[SUCCESS]"
	// CompletionTimeout bounds the wait for CompletionMarker. The slowest
	// supported board needs about 35 seconds.
	CompletionTimeout = 45 * time.Second
	// DefaultStartTimeout bounds the wait for StartMarker unless overridden.
	DefaultStartTimeout = 10 * time.Second
)

// Expecter blocks until a literal marker appears on a console. A zero timeout
// means the wait is bounded only by ctx and the stream itself.
type Expecter interface {
	ExpectExact(ctx context.Context, marker string, timeout time.Duration) error
}

// Scenario holds the deadlines of the two waits.
type Scenario struct {
	StartTimeout      time.Duration
	CompletionTimeout time.Duration
}

// New returns a Scenario with the given start deadline and the standard
// completion deadline.
func New(startTimeout time.Duration) Scenario {
	return Scenario{
		StartTimeout:      startTimeout,
		CompletionTimeout: CompletionTimeout,
	}
}

// Run waits for StartMarker and then CompletionMarker on console. Errors from
// console are returned unchanged.
func (s Scenario) Run(ctx context.Context, console Expecter) error {
	log.WithFields(log.Fields{
		"marker":  StartMarker,
		"timeout": s.StartTimeout,
	}).Debug("awaiting start marker")
	if err := console.ExpectExact(ctx, StartMarker, s.StartTimeout); err != nil {
		return err
	}
	log.Info("floating point test started")

	log.WithFields(log.Fields{
		"marker":  CompletionMarker,
		"timeout": s.CompletionTimeout,
	}).Debug("awaiting completion marker")
	if err := console.ExpectExact(ctx, CompletionMarker, s.CompletionTimeout); err != nil {
		return err
	}
	log.Info("floating point test completed")
	return nil
}
