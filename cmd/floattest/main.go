package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/illusionfield/floattest/internal/app"
	"github.com/illusionfield/floattest/internal/config"
	"github.com/illusionfield/floattest/internal/logging"
)

var (
	Version string
	Commit  string
)

func main() {
	parsed, err := config.Parse(os.Args[1:])
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	if parsed.ShowVersion {
		fmt.Println(versionString())
		return
	}

	logging.Configure(os.Stderr, parsed.Config.Verbosity)
	log.WithFields(log.Fields{
		"term":          parsed.Config.TermCommand,
		"reset":         parsed.Config.ResetCommand,
		"start_timeout": parsed.Config.StartTimeout,
		"log_file":      parsed.Config.LogFile,
		"no_pty":        parsed.Config.NoPTY,
		"verbosity":     parsed.Config.Verbosity,
	}).Trace("effective configuration parsed from CLI")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(parsed.Config)
	exitCode := application.Run(ctx)
	log.WithField("exit_code", exitCode).Debug("test session complete")
	application.Shutdown()
	os.Exit(exitCode)
}

func versionString() string {
	version := Version
	if version == "" {
		version = "dev"
	}

	commit := Commit
	if commit == "" {
		commit = "local"
	}

	return fmt.Sprintf("floattest %s (commit %s)", version, commit)
}
