// Package screensavertest provides an in-memory screensaver.Display.
package screensavertest

import (
	"sync"

	"github.com/hopboxdev/webgreeter/internal/screensaver"
)

// Recorder is a screensaver.Display that keeps its parameters in memory and
// records every call in order ("get", "force", "set").
type Recorder struct {
	mu      sync.Mutex
	current screensaver.Params
	calls   []string
	sets    []screensaver.Params
	forced  int

	// GetErr, ForceErr and SetErr are returned by the matching calls when set.
	GetErr   error
	ForceErr error
	SetErr   error
}

// NewRecorder returns a Recorder starting with initial.
func NewRecorder(initial screensaver.Params) *Recorder {
	return &Recorder{current: initial}
}

func (r *Recorder) Params() (screensaver.Params, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "get")
	if r.GetErr != nil {
		return screensaver.Params{}, r.GetErr
	}
	return r.current, nil
}

func (r *Recorder) ForceActive() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "force")
	if r.ForceErr != nil {
		return r.ForceErr
	}
	r.forced++
	return nil
}

func (r *Recorder) SetParams(p screensaver.Params) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "set")
	if r.SetErr != nil {
		return r.SetErr
	}
	r.current = p
	r.sets = append(r.sets, p)
	return nil
}

// Calls returns the call log.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Sets returns every successfully applied parameter set.
func (r *Recorder) Sets() []screensaver.Params {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]screensaver.Params(nil), r.sets...)
}

// Forced returns how many times the screensaver was forced active.
func (r *Recorder) Forced() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.forced
}
