package logger

import (
	"bytes"
	"log"
	"strings"
	"sync"
	"testing"
)

// syncBuffer is a bytes.Buffer safe for the background flusher
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func createTestLogger(sampleRate int) (*FrameLogger, *syncBuffer) {
	out := &syncBuffer{}
	return New(log.New(out, "", 0), false, sampleRate), out
}

func TestSampling(t *testing.T) {
	fl, out := createTestLogger(3)

	logged := 0
	for i := 0; i < 9; i++ {
		l := fl.StartFrame()
		if l != nil {
			logged++
		}
		l.Printf("frame %d", i)
		l.Commit()
	}
	fl.Flush()

	if logged != 3 {
		t.Errorf("Expected 3 sampled frames, got %d", logged)
	}
	if n := strings.Count(out.String(), "[frame#"); n != 3 {
		t.Errorf("Expected 3 entries written, got %d: %s", n, out.String())
	}
}

func TestNilFrameLogIsSafe(t *testing.T) {
	var l *FrameLog
	l.Printf("ignored %d", 1)
	l.Commit()
}

func TestWarningsBypassSampling(t *testing.T) {
	fl, out := createTestLogger(1000)

	fl.Warnf("buffer pool exhausted: %s", "out of memory")
	fl.Flush()

	if !strings.Contains(out.String(), "warning: buffer pool exhausted: out of memory") {
		t.Errorf("Warning missing from output: %q", out.String())
	}
	if s := fl.Stats(); s.Warnings != 1 {
		t.Errorf("Expected 1 warning counted, got %d", s.Warnings)
	}
}

func TestDisabled(t *testing.T) {
	fl, out := createTestLogger(0)
	fl.SetEnabled(false)

	if fl.StartFrame() != nil {
		t.Error("Disabled logger must not start frames")
	}
	fl.Warnf("dropped")
	fl.Flush()
	if out.String() != "" {
		t.Errorf("Expected no output, got %q", out.String())
	}
}

func TestAutoFlushStop(t *testing.T) {
	out := &syncBuffer{}
	fl := New(log.New(out, "", 0), true, 0)

	l := fl.StartFrame()
	l.Printf("skin sampled")
	l.Commit()
	fl.Stop()
	fl.Stop()

	if !strings.Contains(out.String(), "skin sampled") {
		t.Errorf("Expected entry flushed on Stop, got %q", out.String())
	}
	if s := fl.Stats(); s.BufferSize != 0 {
		t.Errorf("Expected empty buffer after Stop, got %d", s.BufferSize)
	}
}
