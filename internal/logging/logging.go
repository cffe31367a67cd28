// Package logging configures the shared logrus logger from CLI verbosity.
package logging

import (
	"io"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	timestampFormat = "2006-01-02 15:04:05"
	maxVerbosity    = 5
	// VerbosityUsage describes CLI expectations for the verbosity flag.
	VerbosityUsage = "Verbosity: default info (3). Use -v for debug, -vv for trace, or --verbose=0..5 (0 none, 1 error, 2 warn, 3 info, 4 debug, 5 trace)."
)

var verbosityNames = map[string]int{
	"none":    0,
	"silent":  0,
	"off":     0,
	"error":   1,
	"err":     1,
	"warn":    2,
	"warning": 2,
	"info":    3,
	"debug":   4,
	"trace":   5,
}

// Level maps a verbosity number to the logrus level it enables.
func Level(verbosity int) log.Level {
	switch {
	case verbosity <= 0:
		return log.PanicLevel
	case verbosity == 1:
		return log.ErrorLevel
	case verbosity == 2:
		return log.WarnLevel
	case verbosity == 3:
		return log.InfoLevel
	case verbosity == 4:
		return log.DebugLevel
	default:
		return log.TraceLevel
	}
}

// Configure points the global logger at out with the level requested on the
// CLI. Verbosity 0 discards all output. Logs stay off stdout so the console
// transcript is not interleaved with them.
func Configure(out io.Writer, verbosity int) {
	if verbosity <= 0 {
		out = io.Discard
	}
	log.SetOutput(out)
	log.SetLevel(Level(verbosity))
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: timestampFormat,
	})
	log.SetReportCaller(verbosity >= maxVerbosity)
}

// VerbosityValue implements pflag.Value to support combined semantics for -v/-vv and --verbose=NUM.
type VerbosityValue struct {
	target *int
}

// NewVerbosityValue links a VerbosityValue to target and initialises it to def.
func NewVerbosityValue(target *int, def int) *VerbosityValue {
	if target != nil {
		*target = def
	}
	return &VerbosityValue{target: target}
}

func (v *VerbosityValue) String() string {
	if v == nil || v.target == nil {
		return ""
	}
	return strconv.Itoa(*v.target)
}

// Set accepts "+" (increment, saturating at trace), a number, or a level name.
// Unknown names leave the level untouched.
func (v *VerbosityValue) Set(s string) error {
	if v == nil || v.target == nil {
		return nil
	}

	s = strings.TrimSpace(s)
	switch {
	case s == "":
	case s == "+":
		if *v.target < maxVerbosity {
			*v.target++
		}
	default:
		if n, err := strconv.Atoi(s); err == nil {
			*v.target = n
		} else if n, ok := verbosityNames[strings.ToLower(s)]; ok {
			*v.target = n
		}
	}
	return nil
}

func (v *VerbosityValue) Type() string { return "verbosity" }
