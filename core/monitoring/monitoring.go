// Package monitoring forwards unexpected errors to an error tracker.
package monitoring

import (
	"sync"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

// Capture is one recorded exception.
type Capture struct {
	Err  error
	Tags map[string]string
}

// Recorder keeps captured exceptions in memory.
type Recorder struct {
	mu       sync.Mutex
	captures []Capture
}

func (r *Recorder) CaptureException(err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captures = append(r.captures, Capture{Err: err, Tags: tags})
}

func (r *Recorder) Recover()            {}
func (r *Recorder) Flush(time.Duration) {}

// Captures returns a copy of what was recorded.
func (r *Recorder) Captures() []Capture {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Capture(nil), r.captures...)
}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation. A nil m is ignored.
func Init(m Monitor) {
	if m == nil {
		return
	}
	mu.Lock()
	current = m
	mu.Unlock()
}

// Current returns the global monitor. Goroutines guard themselves with
// defer monitoring.Current().Recover() so that recover runs in the
// deferred call itself.
func Current() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	Current().CaptureException(err, tags)
}

// Flush flushes buffered events.
func Flush(d time.Duration) { Current().Flush(d) }
