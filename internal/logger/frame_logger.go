package logger

import (
	"bytes"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// FrameLogger accumulates per-frame log entries in memory and writes them to
// the underlying logger asynchronously, so the frame path never blocks on
// output. Only one in SampleRate frames is logged; warnings always are.
type FrameLogger struct {
	out        *log.Logger
	buffer     bytes.Buffer
	mu         sync.Mutex
	autoFlush  bool
	flushChan  chan struct{}
	stopChan   chan struct{}
	stopOnce   sync.Once
	done       chan struct{}
	enabled    atomic.Bool
	frameNum   atomic.Uint64
	sampleRate atomic.Int64 // 0 = log all, N = log 1 in N frames
	warnings   atomic.Uint64
}

// New creates a frame logger writing to out. With autoFlush a background
// goroutine flushes every interval and whenever a frame commits.
func New(out *log.Logger, autoFlush bool, sampleRate int) *FrameLogger {
	fl := &FrameLogger{
		out:       out,
		autoFlush: autoFlush,
		flushChan: make(chan struct{}, 100),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	fl.enabled.Store(true)
	fl.sampleRate.Store(int64(sampleRate))

	if autoFlush {
		go fl.flusher(100 * time.Millisecond)
	} else {
		close(fl.done)
	}
	return fl
}

// FrameLog collects the entries of one frame. A nil *FrameLog discards
// everything, so callers never need to check the sampling decision.
type FrameLog struct {
	parent   *FrameLogger
	buffer   bytes.Buffer
	frameNum uint64
}

// StartFrame returns the log for the next frame, or nil if this frame is
// not sampled
func (fl *FrameLogger) StartFrame() *FrameLog {
	if fl == nil || !fl.enabled.Load() {
		return nil
	}
	n := fl.frameNum.Add(1)
	rate := fl.sampleRate.Load()
	if rate > 0 && n%uint64(rate) != 0 {
		return nil
	}
	return &FrameLog{parent: fl, frameNum: n}
}

// Printf adds a formatted entry to the frame buffer
func (l *FrameLog) Printf(format string, args ...any) {
	if l == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(&l.buffer, "[%s] [frame#%d] %s\n", timestamp, l.frameNum, fmt.Sprintf(format, args...))
}

// Commit hands the frame entries to the parent buffer
func (l *FrameLog) Commit() {
	if l == nil || l.buffer.Len() == 0 {
		return
	}
	l.parent.write(l.buffer.Bytes())
}

// Printf logs a sampled entry outside of any frame
func (fl *FrameLogger) Printf(format string, args ...any) {
	if l := fl.StartFrame(); l != nil {
		l.Printf(format, args...)
		l.Commit()
	}
}

// Warnf logs a warning regardless of sampling
func (fl *FrameLogger) Warnf(format string, args ...any) {
	if fl == nil || !fl.enabled.Load() {
		return
	}
	fl.warnings.Add(1)
	timestamp := time.Now().Format("15:04:05.000")
	fl.write([]byte(fmt.Sprintf("[%s] warning: %s\n", timestamp, fmt.Sprintf(format, args...))))
}

func (fl *FrameLogger) write(p []byte) {
	fl.mu.Lock()
	fl.buffer.Write(p)
	fl.mu.Unlock()

	if fl.autoFlush {
		select {
		case fl.flushChan <- struct{}{}:
		default:
			// a flush is already pending
		}
	}
}

// Flush writes all buffered entries to the underlying logger
func (fl *FrameLogger) Flush() {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.buffer.Len() > 0 {
		fl.out.Print(fl.buffer.String())
		fl.buffer.Reset()
	}
}

func (fl *FrameLogger) flusher(interval time.Duration) {
	defer close(fl.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-fl.flushChan:
			fl.Flush()
		case <-ticker.C:
			fl.Flush()
		case <-fl.stopChan:
			fl.Flush()
			return
		}
	}
}

// Stop flushes remaining entries and stops the background flusher
func (fl *FrameLogger) Stop() {
	fl.stopOnce.Do(func() { close(fl.stopChan) })
	<-fl.done
	fl.Flush()
}

// SetEnabled turns logging on or off
func (fl *FrameLogger) SetEnabled(enabled bool) {
	fl.enabled.Store(enabled)
}

// SetSampleRate changes the sampling rate
func (fl *FrameLogger) SetSampleRate(rate int) {
	fl.sampleRate.Store(int64(rate))
}

// Stats is a snapshot of logger counters
type Stats struct {
	Frames     uint64 `json:"frames"`
	Warnings   uint64 `json:"warnings"`
	BufferSize int    `json:"bufferSize"`
	SampleRate int    `json:"sampleRate"`
	Enabled    bool   `json:"enabled"`
}

// Stats returns current logging statistics
func (fl *FrameLogger) Stats() Stats {
	fl.mu.Lock()
	size := fl.buffer.Len()
	fl.mu.Unlock()

	return Stats{
		Frames:     fl.frameNum.Load(),
		Warnings:   fl.warnings.Load(),
		BufferSize: size,
		SampleRate: int(fl.sampleRate.Load()),
		Enabled:    fl.enabled.Load(),
	}
}
