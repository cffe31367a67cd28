package expect

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feed writes parts to w in order from a background goroutine and closes w
// afterwards when closeAfter is set.
func feed(w *io.PipeWriter, closeAfter bool, parts ...string) {
	go func() {
		for _, p := range parts {
			if _, err := w.Write([]byte(p)); err != nil {
				return
			}
		}
		if closeAfter {
			_ = w.Close()
		}
	}()
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestExpectExactMatchesAcrossChunks(t *testing.T) {
	pr, pw := io.Pipe()
	console := NewConsole(pr, WithCloser(pr))
	t.Cleanup(func() { _ = console.Close() })

	feed(pw, false, "boot\nTesting float", "ing point arith", "metics...\n")

	err := console.ExpectExact(context.Background(), "Testing floating point arithmetics...", time.Second)
	require.NoError(t, err)
}

func TestExpectExactConsumesThroughMatch(t *testing.T) {
	pr, pw := io.Pipe()
	console := NewConsole(pr)

	feed(pw, true, "second first\n")

	require.NoError(t, console.ExpectExact(context.Background(), "first", time.Second))

	err := console.ExpectExact(context.Background(), "second", time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStreamClosed)
}

func TestExpectExactSequentialMarkers(t *testing.T) {
	pr, pw := io.Pipe()
	console := NewConsole(pr)

	feed(pw, true, "Testing floating point arithmetics...\n...[SUCCESS]\n")

	ctx := context.Background()
	require.NoError(t, console.ExpectExact(ctx, "Testing floating point arithmetics...", 0))
	require.NoError(t, console.ExpectExact(ctx, "[SUCCESS]", time.Second))
}

func TestExpectExactTimeout(t *testing.T) {
	pr, pw := io.Pipe()
	console := NewConsole(pr, WithCloser(pr))
	t.Cleanup(func() {
		_ = console.Close()
		_ = pw.Close()
	})

	feed(pw, false, "still computing\n")

	start := time.Now()
	err := console.ExpectExact(context.Background(), "[SUCCESS]", 50*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, time.Since(start) >= 50*time.Millisecond)

	var matchErr *MatchError
	require.True(t, errors.As(err, &matchErr))
	assert.Equal(t, "[SUCCESS]", matchErr.Marker)
	assert.Equal(t, 50*time.Millisecond, matchErr.Timeout)
	assert.Contains(t, matchErr.Error(), "after 50ms")
}

func TestExpectExactStreamClosed(t *testing.T) {
	pr, pw := io.Pipe()
	console := NewConsole(pr)

	feed(pw, true, "Testing floating point arithmetics...\n")

	ctx := context.Background()
	require.NoError(t, console.ExpectExact(ctx, "Testing floating point arithmetics...", 0))

	err := console.ExpectExact(ctx, "[SUCCESS]", time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStreamClosed)
	assert.NotErrorIs(t, err, ErrTimeout)

	var matchErr *MatchError
	require.True(t, errors.As(err, &matchErr))
	assert.ErrorIs(t, matchErr.Cause, io.EOF)
	assert.Equal(t, "\n", matchErr.Tail)
}

func TestExpectExactReportsReadCause(t *testing.T) {
	pr, pw := io.Pipe()
	console := NewConsole(pr)

	cause := errors.New("input/output error")
	_ = pw.CloseWithError(cause)

	err := console.ExpectExact(context.Background(), "[SUCCESS]", time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStreamClosed)

	var matchErr *MatchError
	require.True(t, errors.As(err, &matchErr))
	assert.Equal(t, cause, matchErr.Cause)
	assert.Contains(t, err.Error(), "input/output error")
}

func TestExpectExactContextCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	console := NewConsole(pr, WithCloser(pr))
	t.Cleanup(func() {
		_ = console.Close()
		_ = pw.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err := console.ExpectExact(ctx, "[SUCCESS]", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExpectExactRejectsEmptyMarker(t *testing.T) {
	console := NewConsole(strings.NewReader(""))
	assert.ErrorIs(t, console.ExpectExact(context.Background(), "", time.Second), ErrEmptyMarker)
}

func TestEchoReceivesConsoleOutput(t *testing.T) {
	pr, pw := io.Pipe()
	echo := &lockedBuffer{}
	console := NewConsole(pr, WithEcho(echo))

	feed(pw, true, "main(): start\n[SUCCESS]\n")

	require.NoError(t, console.ExpectExact(context.Background(), "[SUCCESS]", time.Second))
	assert.Contains(t, echo.String(), "main(): start\n[SUCCESS]")
}

func TestBufferLimitKeepsTail(t *testing.T) {
	console := NewConsole(strings.NewReader(strings.Repeat("x", 100)+"tail"), WithBufferLimit(16))

	err := console.ExpectExact(context.Background(), "[SUCCESS]", time.Second)
	require.Error(t, err)

	var matchErr *MatchError
	require.True(t, errors.As(err, &matchErr))
	assert.LessOrEqual(t, len(matchErr.Tail), 16)
	assert.True(t, strings.HasSuffix(matchErr.Tail, "tail"))
}

func TestCloseEndsPendingWait(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	console := NewConsole(pr, WithCloser(pr))

	time.AfterFunc(20*time.Millisecond, func() { _ = console.Close() })

	err := console.ExpectExact(context.Background(), "[SUCCESS]", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStreamClosed)
	assert.NoError(t, console.Close())
}

// newQueuedConsole returns a Console without a reader whose chunk queue
// already holds chunks.
func newQueuedConsole(chunks ...string) *Console {
	c := &Console{
		chunks:    make(chan []byte, len(chunks)),
		stop:      make(chan struct{}),
		maxBuffer: defaultMaxBuffer,
	}
	for _, chunk := range chunks {
		c.chunks <- []byte(chunk)
	}
	return c
}

func TestExpectExactPrefersQueuedOutputOverDeadline(t *testing.T) {
	for i := 0; i < 200; i++ {
		console := newQueuedConsole("Testing floating point ", "arithmetics...\n")

		err := console.ExpectExact(context.Background(), "Testing floating point arithmetics...", time.Nanosecond)
		require.NoError(t, err, "iteration %d", i)
	}
}
