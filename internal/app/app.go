package app

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/illusionfield/floattest/internal/config"
	"github.com/illusionfield/floattest/internal/expect"
	"github.com/illusionfield/floattest/internal/process"
	"github.com/illusionfield/floattest/internal/scenario"
)

// App runs one floating point test session against a device console.
type App struct {
	cfg      config.Config
	session  string
	scenario scenario.Scenario
	stdout   io.Writer

	termCmd  *exec.Cmd
	termExit chan error
	console  *expect.Console
	logFile  *os.File
	err      error

	shutdownOnce sync.Once
}

// New constructs a ready-to-run App for the provided configuration.
func New(cfg config.Config) *App {
	return &App{
		cfg:      cfg,
		session:  uuid.NewString(),
		scenario: scenario.New(cfg.StartTimeout),
		stdout:   os.Stdout,
		termExit: make(chan error, 1),
	}
}

// Run attaches to the console, resets the board if configured, runs the
// scenario and returns the process exit code.
func (a *App) Run(ctx context.Context) int {
	entry := log.WithField("session", a.session)
	entry.WithFields(log.Fields{
		"term":          a.cfg.TermCommand,
		"reset":         a.cfg.ResetCommand,
		"start_timeout": a.scenario.StartTimeout,
		"pty":           !a.cfg.NoPTY,
	}).Debug("starting test session")

	console, err := a.attachConsole()
	if err != nil {
		a.err = err
		entry.WithError(err).Error("failed to attach to device console")
		return 1
	}
	entry.Info("attached to device console")

	if err := a.resetBoard(ctx); err != nil {
		a.err = err
		if scenario.Classify(err) == scenario.Cancelled {
			entry.WithError(err).Warn("board reset interrupted")
		} else {
			entry.WithError(err).Error("failed to reset board")
		}
		return 1
	}

	err = a.scenario.Run(ctx, console)
	a.err = err

	outcome := scenario.Classify(err)
	result := entry.WithField("outcome", outcome.String())
	switch outcome {
	case scenario.Pass:
		result.Info("test passed")
	case scenario.Cancelled:
		result.Warn("test interrupted")
	default:
		var matchErr *expect.MatchError
		if errors.As(err, &matchErr) && matchErr.Tail != "" {
			result = result.WithField("last_output", matchErr.Tail)
		}
		result.WithError(err).Error("test failed")
	}
	return outcome.ExitCode()
}

// Err returns the error that ended the last Run, or nil if it passed.
func (a *App) Err() error { return a.err }

// Shutdown stops the console process and releases the console and log file.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		entry := log.WithField("session", a.session)
		entry.Debug("shutting down test session")

		if a.termCmd != nil {
			if err := process.Terminate(a.termCmd, terminateGrace); err != nil {
				entry.WithError(err).Debug("console process termination error")
			}
			select {
			case err := <-a.termExit:
				entry.WithError(err).Trace("console process exited")
			case <-time.After(exitWait):
				entry.Debug("console process did not exit in time")
			}
			a.termCmd = nil
		}

		if a.console != nil {
			if err := a.console.Close(); err != nil {
				entry.WithError(err).Trace("console close failed")
			}
			a.console = nil
		}

		if a.logFile != nil {
			if err := a.logFile.Close(); err != nil {
				entry.WithError(err).Debug("log file close failed")
			}
			a.logFile = nil
		}
	})
}
