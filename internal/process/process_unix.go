//go:build !windows

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

// Configure starts the command in its own process group so Terminate can
// reach the terminal program and anything it spawned.
func Configure(cmd *exec.Cmd) {
	if cmd == nil {
		return
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	log.WithField("command", cmd.String()).Trace("child placed in its own process group")
}

// Terminate sends SIGTERM to the command's process group, waits for grace and
// then sends SIGKILL. Processes that already exited are not an error.
func Terminate(cmd *exec.Cmd, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	entry := log.WithField("pid", cmd.Process.Pid)
	pgid, ok := groupOf(cmd)
	if ok {
		entry = entry.WithField("pgid", pgid)
		entry.Debug("terminating console process group")
		if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil {
			if gone(err) {
				return nil
			}
			return err
		}
		time.Sleep(grace)
		entry.Trace("escalating to SIGKILL")
		if err := syscall.Kill(-pgid, syscall.SIGKILL); err != nil && !gone(err) {
			return err
		}
		return nil
	}

	entry.Debug("terminating console process")
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !gone(err) {
		entry.WithError(err).Trace("SIGTERM failed, escalating to SIGKILL")
		if err := cmd.Process.Kill(); err != nil && !gone(err) {
			return err
		}
	}
	return nil
}

// groupOf returns the process group led by cmd. A child started with
// Setpgid or Setsid leads a group whose id is its pid, which stays valid for
// the remaining members after the leader has been reaped.
func groupOf(cmd *exec.Cmd) (int, bool) {
	if attr := cmd.SysProcAttr; attr != nil && ((attr.Setpgid && attr.Pgid == 0) || attr.Setsid) {
		return cmd.Process.Pid, true
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil || pgid <= 0 || pgid == syscall.Getpgrp() {
		return 0, false
	}
	return pgid, true
}

func gone(err error) bool {
	return errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH)
}
