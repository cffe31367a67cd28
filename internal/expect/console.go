// Package expect implements expect-style waits over a device console stream.
package expect

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	readSize         = 4096
	defaultMaxBuffer = 1 << 20
	tailSize         = 256
)

// Option customises a Console.
type Option func(*Console)

// WithEcho copies every byte read from the console to w.
func WithEcho(w io.Writer) Option {
	return func(c *Console) { c.echo = w }
}

// WithCloser registers the resource released by Close, typically the pty
// master or the read end of a pipe.
func WithCloser(closer io.Closer) Option {
	return func(c *Console) { c.closer = closer }
}

// WithBufferLimit caps the amount of unmatched output retained between waits.
func WithBufferLimit(n int) Option {
	return func(c *Console) {
		if n > 0 {
			c.maxBuffer = n
		}
	}
}

// Console buffers output read from a device and matches literal markers
// against it. A marker match consumes the buffer up to the end of the match,
// so consecutive waits observe the stream strictly in order.
type Console struct {
	chunks    chan []byte
	stop      chan struct{}
	echo      io.Writer
	closer    io.Closer
	maxBuffer int

	// readErr is written by the reader goroutine before chunks is closed.
	readErr error

	mu  sync.Mutex
	buf []byte
	eof bool

	closeOnce sync.Once
}

// NewConsole starts reading r in the background and returns the Console
// wrapping it.
func NewConsole(r io.Reader, opts ...Option) *Console {
	c := &Console{
		chunks:    make(chan []byte, 64),
		stop:      make(chan struct{}),
		maxBuffer: defaultMaxBuffer,
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop(r)
	return c
}

func (c *Console) readLoop(r io.Reader) {
	defer close(c.chunks)
	scratch := make([]byte, readSize)
	for {
		n, err := r.Read(scratch)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, scratch[:n])
			if c.echo != nil {
				if _, writeErr := c.echo.Write(chunk); writeErr != nil {
					log.WithError(writeErr).Debug("failed to echo console output")
				}
			}
			select {
			case c.chunks <- chunk:
			case <-c.stop:
				return
			}
		}
		if err != nil {
			if err == io.EOF {
				log.Trace("console reached EOF")
			} else {
				log.WithError(err).Debug("console read ended")
			}
			c.readErr = err
			return
		}
	}
}

// ExpectExact blocks until marker appears in the console output. A positive
// timeout bounds the wait; zero waits until the stream closes or ctx is done.
func (c *Console) ExpectExact(ctx context.Context, marker string, timeout time.Duration) error {
	if marker == "" {
		return ErrEmptyMarker
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	entry := log.WithFields(log.Fields{"marker": marker, "timeout": timeout})
	entry.Debug("waiting for marker")

	needle := []byte(marker)
	for {
		if c.consume(needle) {
			entry.Debug("marker matched")
			return nil
		}
		if c.eof {
			return c.fail(marker, timeout, ErrStreamClosed)
		}

		select {
		case chunk, ok := <-c.chunks:
			if !ok {
				c.eof = true
				continue
			}
			entry.WithField("bytes", len(chunk)).Trace("console chunk received")
			c.append(chunk)
		case <-deadline:
			// Output already queued when the deadline fired still counts.
			c.drainQueued()
			if c.consume(needle) {
				entry.Debug("marker matched at deadline")
				return nil
			}
			return c.fail(marker, timeout, ErrTimeout)
		case <-ctx.Done():
			return c.fail(marker, timeout, ctx.Err())
		}
	}
}

func (c *Console) consume(needle []byte) bool {
	i := bytes.Index(c.buf, needle)
	if i < 0 {
		return false
	}
	c.buf = c.buf[i+len(needle):]
	return true
}

func (c *Console) drainQueued() {
	for {
		select {
		case chunk, ok := <-c.chunks:
			if !ok {
				c.eof = true
				return
			}
			c.append(chunk)
		default:
			return
		}
	}
}

func (c *Console) append(chunk []byte) {
	c.buf = append(c.buf, chunk...)
	if over := len(c.buf) - c.maxBuffer; over > 0 {
		c.buf = append([]byte(nil), c.buf[over:]...)
	}
}

func (c *Console) fail(marker string, timeout time.Duration, reason error) error {
	tail := c.buf
	if len(tail) > tailSize {
		tail = tail[len(tail)-tailSize:]
	}
	err := &MatchError{
		Marker:  marker,
		Timeout: timeout,
		Err:     reason,
		Tail:    string(tail),
	}
	if c.eof {
		err.Cause = c.readErr
	}
	log.WithError(err).Debug("marker wait failed")
	return err
}

// Close stops the reader and releases the registered closer. Pending and
// later waits report ErrStreamClosed once the buffered output is exhausted.
func (c *Console) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stop)
		if c.closer != nil {
			err = c.closer.Close()
		}
	})
	return err
}
