// Package notify delivers transient user-visible notices about export jobs.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Display durations.
const (
	DefaultDuration = 5 * time.Second
	FailureDuration = 15 * time.Second
)

// Kind classifies a notice.
type Kind string

const (
	KindStarted   Kind = "started"
	KindSucceeded Kind = "succeeded"
	KindFailed    Kind = "failed"
)

// Notice is one user-visible message.
type Notice struct {
	Kind     Kind          `json:"kind"`
	Text     string        `json:"text"`
	Duration time.Duration `json:"duration"`
	BatchID  string        `json:"batch_id,omitempty"`
	Input    string        `json:"input,omitempty"`
	Output   string        `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Sink receives notices. Implementations must not block for long.
type Sink interface {
	Notify(n Notice)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Notice)

// Notify implements Sink.
func (f SinkFunc) Notify(n Notice) { f(n) }

// Multi fans a notice out to every sink in order.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(n Notice) {
		for _, s := range sinks {
			if s != nil {
				s.Notify(n)
			}
		}
	})
}

// Log returns a sink that writes notices to logger.
func Log(logger *slog.Logger) Sink {
	return SinkFunc(func(n Notice) {
		attrs := []any{
			slog.String("kind", string(n.Kind)),
			slog.String("batch_id", n.BatchID),
		}
		if n.Input != "" {
			attrs = append(attrs, slog.String("input", n.Input))
		}
		if n.Output != "" {
			attrs = append(attrs, slog.String("output", n.Output))
		}
		if n.Kind == KindFailed {
			logger.Warn(n.Text, append(attrs, slog.String("error", n.Error))...)
			return
		}
		logger.Info(n.Text, attrs...)
	})
}

// Writer returns a sink that prints one line per notice, for terminal use.
func Writer(w io.Writer) Sink {
	var mu sync.Mutex
	return SinkFunc(func(n Notice) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "[%s] %s\n", n.Kind, n.Text)
	})
}

// Recorder keeps every notice it receives.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify implements Sink.
func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Count returns how many recorded notices have kind k.
func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.notices {
		if x.Kind == k {
			n++
		}
	}
	return n
}
