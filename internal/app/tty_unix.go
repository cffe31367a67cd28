//go:build !windows

package app

import (
	"io"
	"os/exec"

	"github.com/creack/pty"
)

// startPTY runs cmd on a new pseudo-terminal and returns the master side.
// pty.Start makes the child a session leader, which also gives it its own
// process group.
func startPTY(cmd *exec.Cmd) (io.ReadCloser, error) {
	master, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	return master, nil
}
