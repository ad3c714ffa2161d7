package watchdog

import "time"

// Window is how long a theme has, after the arming heartbeat, to prove its
// script runtime is still alive.
const Window = 8 * time.Second

// State is the liveness state of the theme. The zero value is IDLE.
type State struct {
	Armed          bool `json:"armed"`
	PingedSinceArm bool `json:"pinged_since_arm"`
	Exiting        bool `json:"exiting"`
}

// Watchdog tracks theme heartbeats. It is not safe for concurrent use: the
// supervisor loop owns it and is the only caller.
type Watchdog struct {
	window time.Duration
	state  State
	timer  *time.Timer // pending single-shot timer, nil while IDLE
}

// New creates an idle Watchdog. A zero window means Window.
func New(window time.Duration) *Watchdog {
	if window == 0 {
		window = Window
	}
	return &Watchdog{window: window}
}

// Ping records a heartbeat. While IDLE it arms a fresh window and returns
// true; while ARMED it only marks the window as satisfied.
func (w *Watchdog) Ping() bool {
	if w.state.Armed {
		w.state.PingedSinceArm = true
		return false
	}
	w.timer = time.NewTimer(w.window)
	w.state.Armed = true
	w.state.PingedSinceArm = false
	return true
}

// Exit latches the exiting flag. Once set, no expiry raises a fault for
// the rest of the process.
func (w *Watchdog) Exit() {
	w.state.Exiting = true
}

// C returns the expiry channel of the pending timer, or nil while IDLE so
// a select on it never fires.
func (w *Watchdog) C() <-chan time.Time {
	if w.timer == nil {
		return nil
	}
	return w.timer.C
}

// Expire consumes the pending timer and reports whether the window closed
// without a heartbeat. The watchdog is IDLE afterwards either way.
func (w *Watchdog) Expire() bool {
	fault := w.state.Armed && !w.state.PingedSinceArm && !w.state.Exiting
	w.timer = nil
	w.state.Armed = false
	w.state.PingedSinceArm = false
	return fault
}

// State returns a copy of the current state.
func (w *Watchdog) State() State {
	return w.state
}
