// Package lockhint makes the greeter behave like a screensaver when a theme
// reports that it was started as a lock screen.
package lockhint

import (
	"errors"
	"fmt"

	"github.com/hopboxdev/webgreeter/internal/screensaver"
)

// DefaultTimeout is used when no screensaver timeout is configured.
const DefaultTimeout = 300

// Handler applies the lock-screen screensaver policy. It is owned by the
// supervisor loop and not safe for concurrent use.
type Handler struct {
	display  screensaver.Display
	timeout  int
	snapshot *screensaver.Params
}

// New returns a Handler. A timeout of zero or less means DefaultTimeout.
func New(display screensaver.Display, timeout int) *Handler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Handler{display: display, timeout: timeout}
}

// Apply blanks the screen now and sets the configured timeout. It runs the
// same way on every call. The parameters found on the first successful
// read are kept as the snapshot; they are not restored. A failing display
// call does not stop the calls after it; all failures are returned joined.
func (h *Handler) Apply() error {
	var errs []error
	current, err := h.display.Params()
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("read screensaver params: %w", err))
	case h.snapshot == nil:
		h.snapshot = &current
	}
	if err := h.display.ForceActive(); err != nil {
		errs = append(errs, err)
	}
	if err := h.display.SetParams(h.Policy()); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Policy returns the parameters Apply sets.
func (h *Handler) Policy() screensaver.Params {
	return screensaver.Params{
		Timeout:        h.timeout,
		Interval:       0,
		PreferBlanking: true,
		AllowExposures: false,
	}
}

// Snapshot returns the parameters captured before the first lock hint, or
// nil if none was applied yet.
func (h *Handler) Snapshot() *screensaver.Params {
	if h.snapshot == nil {
		return nil
	}
	s := *h.snapshot
	return &s
}
