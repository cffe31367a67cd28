package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/illusionfield/floattest/internal/logging"
	"github.com/illusionfield/floattest/internal/scenario"
)

const (
	defaultVerbosity   = 3
	defaultTermCommand = "make term"

	// EnvTermCommand overrides the default terminal command.
	EnvTermCommand = "FLOATTEST_TERM"
	// EnvResetCommand supplies a default reset command.
	EnvResetCommand = "FLOATTEST_RESET"
)

var (
	// ErrEmptyTermCommand indicates that --term was set to an empty command.
	ErrEmptyTermCommand = errors.New("empty terminal command; supply --term/-t")
	// ErrNegativeTimeout indicates a negative --start-timeout.
	ErrNegativeTimeout = errors.New("start timeout must not be negative")
	// ErrHelpRequested mirrors pflag.ErrHelp so callers can handle --help uniformly.
	ErrHelpRequested = errors.New("help requested")
)

// Config captures the options that control a test session.
type Config struct {
	// TermCommand attaches to the device console; its output is the stream
	// the markers are matched against.
	TermCommand string
	// ResetCommand, when set, is run once the console is attached.
	ResetCommand string
	LogFile      string
	// StartTimeout bounds the wait for the start marker. Zero disables it.
	StartTimeout time.Duration
	// NoPTY attaches through plain pipes instead of a pseudo-terminal.
	NoPTY     bool
	Verbosity int
}

// Result aggregates the parsed configuration together with metadata about CLI actions.
type Result struct {
	Config      Config
	ShowVersion bool
}

// Parse interprets command-line arguments, falling back to the FLOATTEST_*
// environment variables for commands not given on the command line.
func Parse(args []string) (Result, error) {
	var (
		cfg         Config
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("floattest", pflag.ContinueOnError)
	flagSet.SortFlags = false
	flagSet.SetOutput(os.Stdout)

	flagSet.StringVarP(&cfg.TermCommand, "term", "t", envOr(EnvTermCommand, defaultTermCommand), "Command attaching to the device console")
	flagSet.StringVarP(&cfg.ResetCommand, "reset", "r", os.Getenv(EnvResetCommand), "Command resetting the board once the console is attached")
	flagSet.DurationVar(&cfg.StartTimeout, "start-timeout", scenario.DefaultStartTimeout, "Deadline for the start marker (0 waits indefinitely)")
	flagSet.StringVarP(&cfg.LogFile, "log-file", "l", "", "Write the console transcript to this file")
	flagSet.BoolVar(&cfg.NoPTY, "no-pty", false, "Attach through pipes instead of a pseudo-terminal")
	flagSet.VarP(logging.NewVerbosityValue(&cfg.Verbosity, defaultVerbosity), "verbose", "v", logging.VerbosityUsage)
	if f := flagSet.Lookup("verbose"); f != nil {
		f.NoOptDefVal = "+"
	}
	flagSet.BoolVarP(&showVersion, "version", "V", false, "Print version and exit")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return Result{}, ErrHelpRequested
		}
		return Result{}, err
	}

	if showVersion {
		return Result{Config: cfg, ShowVersion: true}, nil
	}

	if extra := flagSet.Args(); len(extra) > 0 {
		return Result{}, fmt.Errorf("unexpected arguments: %s", strings.Join(extra, " "))
	}

	cfg.TermCommand = strings.TrimSpace(cfg.TermCommand)
	if cfg.TermCommand == "" {
		return Result{}, ErrEmptyTermCommand
	}
	if cfg.StartTimeout < 0 {
		return Result{}, ErrNegativeTimeout
	}
	if runtime.GOOS == "windows" {
		cfg.NoPTY = true
	}

	return Result{Config: cfg}, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}
