//go:build windows

package app

import (
	"errors"
	"io"
	"os/exec"
)

func startPTY(*exec.Cmd) (io.ReadCloser, error) {
	return nil, errors.New("pseudo-terminal consoles are not supported on windows; use --no-pty")
}
