package app

import "time"

const (
	// terminateGrace is the pause between SIGTERM and SIGKILL for the console.
	terminateGrace = 300 * time.Millisecond
	exitWait       = 2 * time.Second
	// exitDrain is how long console output may still arrive after the term
	// command exited before the console is closed.
	exitDrain = 200 * time.Millisecond
)
