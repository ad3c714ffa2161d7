package supervisor_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hopboxdev/webgreeter/internal/lockhint"
	"github.com/hopboxdev/webgreeter/internal/metrics"
	"github.com/hopboxdev/webgreeter/internal/screensaver"
	"github.com/hopboxdev/webgreeter/internal/screensaver/screensavertest"
	"github.com/hopboxdev/webgreeter/internal/supervisor"
	"github.com/hopboxdev/webgreeter/internal/watchdog"
)

type fakeFallback struct {
	mu    sync.Mutex
	loads int
}

func (f *fakeFallback) LoadFallback() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return nil
}

func (f *fakeFallback) Current() string { return "file:///themes/material/index.html" }

func (f *fakeFallback) Loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
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

type harness struct {
	sup      *supervisor.Supervisor
	fallback *fakeFallback
	display  *screensavertest.Recorder
	metrics  *metrics.Metrics
	cancel   context.CancelFunc
	done     chan error
}

func start(t *testing.T, out io.Writer) *harness {
	t.Helper()
	h := &harness{
		fallback: &fakeFallback{},
		display:  screensavertest.NewRecorder(screensaver.Params{Timeout: 600, Interval: 600, AllowExposures: true}),
		metrics:  metrics.New(),
		done:     make(chan error, 1),
	}
	h.sup = supervisor.New(supervisor.Config{
		LockHint: lockhint.New(h.display, 0),
		Fallback: h.fallback,
		Metrics:  h.metrics,
		Logger:   log.New(out),
	})
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.sup.Run(ctx) }()
	return h
}

func (h *harness) post(t *testing.T, msgs ...string) {
	t.Helper()
	for _, m := range msgs {
		if err := h.sup.Post(context.Background(), []byte(m)); err != nil {
			t.Fatalf("Post(%s): %v", m, err)
		}
	}
}

func (h *harness) status(t *testing.T) supervisor.Status {
	t.Helper()
	st, err := h.sup.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	return st
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	if err := <-h.done; err != nil {
		t.Errorf("Run: %v", err)
	}
}

// Scenario: one heartbeat, then silence for the whole window.
func TestSilentThemeFallsBackOnce(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := start(t, io.Discard)
		h.post(t, `"Heartbeat"`)
		synctest.Wait()
		if st := h.status(t); !st.Watchdog.Armed {
			t.Fatalf("watchdog not armed after heartbeat: %+v", st.Watchdog)
		}

		time.Sleep(watchdog.Window + time.Millisecond)
		synctest.Wait()
		if got := h.fallback.Loads(); got != 1 {
			t.Fatalf("fallback loads = %d, want 1", got)
		}

		// A dead runtime sends nothing more; the watchdog stays idle.
		time.Sleep(10 * watchdog.Window)
		synctest.Wait()
		if got := h.fallback.Loads(); got != 1 {
			t.Errorf("fallback loads = %d after idling, want 1", got)
		}
		st := h.status(t)
		if st.Watchdog.Armed || st.Watchdog.PingedSinceArm {
			t.Errorf("watchdog = %+v, want idle", st.Watchdog)
		}
		if st.Fallbacks != 1 {
			t.Errorf("status fallbacks = %d, want 1", st.Fallbacks)
		}
		if got := testutil.ToFloat64(h.metrics.Fallbacks); got != 1 {
			t.Errorf("fallback metric = %v, want 1", got)
		}
		h.stop(t)
	})
}

// Scenario: heartbeats at 0s, 4s and 7.9s, repeated.
func TestLiveThemeNeverFallsBack(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := start(t, io.Discard)
		for range 20 {
			h.post(t, `"Heartbeat"`)
			time.Sleep(4 * time.Second)
			h.post(t, `"Heartbeat"`)
			time.Sleep(3900 * time.Millisecond)
			h.post(t, `"Heartbeat"`)
			time.Sleep(600 * time.Millisecond)
		}
		synctest.Wait()
		if got := h.fallback.Loads(); got != 0 {
			t.Errorf("fallback loads = %d, want 0", got)
		}
		h.stop(t)
	})
}

func TestSteadyHeartbeatNeverFallsBack(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := start(t, io.Discard)
		for range 100 {
			h.post(t, `"Heartbeat"`)
			time.Sleep(3 * time.Second)
		}
		synctest.Wait()
		if got := h.fallback.Loads(); got != 0 {
			t.Errorf("fallback loads = %d, want 0", got)
		}
		h.stop(t)
	})
}

// Scenario: heartbeat then exit, then silence.
func TestExitSuppressesFallback(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := start(t, io.Discard)
		h.post(t, `"Heartbeat"`, `"Heartbeat::Exit"`)
		time.Sleep(watchdog.Window + time.Millisecond)
		synctest.Wait()
		if got := h.fallback.Loads(); got != 0 {
			t.Fatalf("fallback loads = %d, want 0", got)
		}

		// Later windows stay suppressed, whatever the pings do.
		for range 5 {
			h.post(t, `"Heartbeat"`)
			time.Sleep(watchdog.Window + time.Millisecond)
		}
		synctest.Wait()
		if got := h.fallback.Loads(); got != 0 {
			t.Errorf("fallback loads = %d after exit, want 0", got)
		}
		if !h.status(t).Watchdog.Exiting {
			t.Error("exiting latch was cleared")
		}
		h.stop(t)
	})
}

func TestExitQueuedBeforeExpiryIsSeen(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := start(t, io.Discard)
		h.post(t, `"Heartbeat"`)
		time.Sleep(watchdog.Window - time.Millisecond)
		h.post(t, `"Heartbeat::Exit"`)
		time.Sleep(2 * time.Millisecond)
		synctest.Wait()
		if got := h.fallback.Loads(); got != 0 {
			t.Errorf("fallback loads = %d, want 0", got)
		}
		h.stop(t)
	})
}

func TestFallbackRepeatsWhenThemeRevives(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := start(t, io.Discard)
		for range 3 {
			h.post(t, `"Heartbeat"`)
			time.Sleep(watchdog.Window + time.Second)
		}
		synctest.Wait()
		if got := h.fallback.Loads(); got != 3 {
			t.Errorf("fallback loads = %d, want 3", got)
		}
		h.stop(t)
	})
}

// Scenario: lock hint with no configured timeout.
func TestLockHintAppliesDefaultPolicy(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := start(t, io.Discard)
		h.post(t, `"LockHint"`, `"LockHint"`)
		synctest.Wait()

		want := screensaver.Params{Timeout: 300, Interval: 0, PreferBlanking: true, AllowExposures: false}
		sets := h.display.Sets()
		if len(sets) != 2 {
			t.Fatalf("screensaver set %d times, want 2", len(sets))
		}
		for _, p := range sets {
			if p != want {
				t.Errorf("set %+v, want %+v", p, want)
			}
		}
		if h.display.Forced() != 2 {
			t.Errorf("forced = %d, want 2", h.display.Forced())
		}
		st := h.status(t)
		if st.LockHints != 2 {
			t.Errorf("lock hints = %d, want 2", st.LockHints)
		}
		if st.Screensaver == nil || st.Screensaver.Timeout != 600 {
			t.Errorf("snapshot = %+v, want original params", st.Screensaver)
		}
		if st.Watchdog != (watchdog.State{}) {
			t.Errorf("lock hint changed watchdog state: %+v", st.Watchdog)
		}
		h.stop(t)
	})
}

func TestLockHintDisplayErrorIsNotFatal(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := start(t, io.Discard)
		h.display.SetErr = errors.New("BadAccess")
		h.post(t, `"LockHint"`, `"Heartbeat"`)
		synctest.Wait()
		if got := testutil.ToFloat64(h.metrics.DisplayErrors); got != 1 {
			t.Errorf("display errors = %v, want 1", got)
		}
		if !h.status(t).Watchdog.Armed {
			t.Error("loop stopped handling messages after a display error")
		}
		h.stop(t)
	})
}

// Scenario: non-string payloads and unknown strings.
func TestUnknownAndMalformedAreIgnored(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		out := &lockedBuffer{}
		h := start(t, out)
		h.post(t, `42`, `{"Heartbeat":true}`, `null`, `"heartbeat"`, `"Lock Hint"`, `"Heartbeat::Exit "`)
		time.Sleep(10 * watchdog.Window)
		synctest.Wait()

		st := h.status(t)
		if st.Watchdog != (watchdog.State{}) {
			t.Errorf("watchdog = %+v, want untouched", st.Watchdog)
		}
		if st.DecodeErrors != 3 || st.Unknown != 3 {
			t.Errorf("decode errors = %d, unknown = %d, want 3 and 3", st.DecodeErrors, st.Unknown)
		}
		if h.fallback.Loads() != 0 || len(h.display.Calls()) != 0 {
			t.Error("ignored messages reached a handler")
		}
		logs := out.String()
		if !strings.Contains(logs, "unexpected message value") {
			t.Errorf("decode error not logged: %s", logs)
		}
		if !strings.Contains(logs, "Lock Hint") {
			t.Errorf("unknown message not logged with its text: %s", logs)
		}
		h.stop(t)
	})
}

func TestPostAfterStop(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := start(t, io.Discard)
		h.stop(t)
		if err := h.sup.Post(context.Background(), []byte(`"Heartbeat"`)); !errors.Is(err, supervisor.ErrStopped) {
			t.Errorf("Post after stop err = %v, want ErrStopped", err)
		}
		if _, err := h.sup.Status(context.Background()); !errors.Is(err, supervisor.ErrStopped) {
			t.Errorf("Status after stop err = %v, want ErrStopped", err)
		}
	})
}
