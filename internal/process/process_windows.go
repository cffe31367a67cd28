//go:build windows

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

// Configure starts the command in a new process group on Windows.
func Configure(cmd *exec.Cmd) {
	if cmd == nil {
		return
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags = syscall.CREATE_NEW_PROCESS_GROUP
	log.WithField("command", cmd.String()).Trace("child placed in a new process group")
}

// Terminate kills the command process. Windows offers no graceful signal for
// console programs started this way, so grace is ignored.
func Terminate(cmd *exec.Cmd, _ time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	log.WithField("pid", cmd.Process.Pid).Debug("killing console process")
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
