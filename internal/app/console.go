package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/illusionfield/floattest/internal/expect"
	"github.com/illusionfield/floattest/internal/process"
)

func (a *App) attachConsole() (*expect.Console, error) {
	echo, err := a.echoWriter()
	if err != nil {
		return nil, err
	}

	cmd := shellCommand(context.Background(), a.cfg.TermCommand)
	log.WithField("command", cmd.String()).Debug("starting console command")

	var stream io.ReadCloser
	if a.cfg.NoPTY {
		stream, err = startPiped(cmd)
	} else {
		stream, err = startPTY(cmd)
	}
	if err != nil {
		return nil, fmt.Errorf("start %q: %w", a.cfg.TermCommand, err)
	}
	log.WithField("pid", cmd.Process.Pid).Debug("console process started")

	console := expect.NewConsole(stream, expect.WithEcho(echo), expect.WithCloser(stream))
	a.termCmd = cmd
	a.console = console

	go func() {
		log.Trace("waiting for console command to exit")
		err := cmd.Wait()
		a.termExit <- err

		// Background children of the term command may keep the stream open
		// after it exits; the session ends with the command regardless.
		time.Sleep(exitDrain)
		log.WithError(err).Debug("console command exited; closing console")
		if closeErr := console.Close(); closeErr != nil {
			log.WithError(closeErr).Trace("console close failed")
		}
	}()

	return console, nil
}

func (a *App) echoWriter() (io.Writer, error) {
	if a.cfg.LogFile == "" {
		return a.stdout, nil
	}
	f, err := os.Create(a.cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("open console log: %w", err)
	}
	a.logFile = f
	log.WithField("path", a.cfg.LogFile).Debug("writing console transcript")
	return io.MultiWriter(a.stdout, f), nil
}

func (a *App) resetBoard(ctx context.Context) error {
	if a.cfg.ResetCommand == "" {
		return nil
	}

	out := log.WithField("session", a.session).WriterLevel(log.DebugLevel)
	defer out.Close()

	cmd := shellCommand(ctx, a.cfg.ResetCommand)
	cmd.Stdout = out
	cmd.Stderr = out
	process.Configure(cmd)
	cmd.Cancel = func() error { return process.Terminate(cmd, terminateGrace) }
	cmd.WaitDelay = exitWait

	log.WithField("command", cmd.String()).Info("resetting board")
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("reset %q: %w", a.cfg.ResetCommand, ctxErr)
		}
		return fmt.Errorf("reset %q: %w", a.cfg.ResetCommand, err)
	}
	return nil
}

// startPiped runs cmd with stdout and stderr merged into one pipe and returns
// its read end.
func startPiped(cmd *exec.Cmd) (io.ReadCloser, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = w
	cmd.Stderr = w
	process.Configure(cmd)

	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return nil, err
	}
	// The child holds its own copy; closing ours lets EOF through on exit.
	_ = w.Close()
	return r, nil
}

func shellCommand(ctx context.Context, line string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		comspec := os.Getenv("COMSPEC")
		if comspec == "" {
			comspec = "cmd.exe"
		}
		return exec.CommandContext(ctx, comspec, "/c", line)
	}
	return exec.CommandContext(ctx, "sh", "-c", line)
}
