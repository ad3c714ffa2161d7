// Package supervisor runs the theme supervision loop: it decodes messages
// from the content process, feeds heartbeats to the watchdog, applies lock
// hints and swaps in the fallback theme when the watchdog reports a fault.
//
// All supervisor state is owned by the goroutine running Run. Transports
// hand messages over with Post and never touch that state directly.
package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hopboxdev/webgreeter/internal/command"
	"github.com/hopboxdev/webgreeter/internal/metrics"
	"github.com/hopboxdev/webgreeter/internal/screensaver"
	"github.com/hopboxdev/webgreeter/internal/watchdog"
)

// ErrStopped is returned by Post and Status once Run has returned.
var ErrStopped = errors.New("supervisor stopped")

const inboxSize = 64

// LockHinter applies the lock-screen screensaver policy.
type LockHinter interface {
	Apply() error
	Snapshot() *screensaver.Params
}

// FallbackLoader replaces the running theme with the bundled fallback.
type FallbackLoader interface {
	LoadFallback() error
	Current() string
}

// Config wires a Supervisor to its collaborators.
type Config struct {
	Window   time.Duration // heartbeat window, default watchdog.Window
	LockHint LockHinter
	Fallback FallbackLoader
	Metrics  *metrics.Metrics
	Logger   *log.Logger
}

// Status is a point-in-time view of the supervisor.
type Status struct {
	Watchdog     watchdog.State      `json:"watchdog"`
	Theme        string              `json:"theme"`
	Fallbacks    int                 `json:"fallbacks"`
	LockHints    int                 `json:"lock_hints"`
	Unknown      int                 `json:"unknown"`
	DecodeErrors int                 `json:"decode_errors"`
	Screensaver  *screensaver.Params `json:"screensaver,omitempty"` // captured before the first lock hint
}

// Supervisor is the single-threaded event loop.
type Supervisor struct {
	lockHint LockHinter
	fallback FallbackLoader
	metrics  *metrics.Metrics
	logger   *log.Logger

	inbox   chan []byte
	queries chan chan Status
	done    chan struct{}

	wd    *watchdog.Watchdog
	stats Status
}

// New creates a Supervisor. Call Run to start it.
func New(cfg Config) *Supervisor {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Supervisor{
		lockHint: cfg.LockHint,
		fallback: cfg.Fallback,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.With("component", "supervisor"),
		inbox:    make(chan []byte, inboxSize),
		queries:  make(chan chan Status),
		done:     make(chan struct{}),
		wd:       watchdog.New(cfg.Window),
	}
}

// Post hands a raw channel message to the loop. Messages are handled in
// the order Post is called.
func (s *Supervisor) Post(ctx context.Context, raw []byte) error {
	select {
	case <-s.done:
		return ErrStopped
	default:
	}
	select {
	case s.inbox <- raw:
		return nil
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status asks the loop for its current state.
func (s *Supervisor) Status(ctx context.Context) (Status, error) {
	reply := make(chan Status, 1)
	select {
	case <-s.done:
		return Status{}, ErrStopped
	default:
	}
	select {
	case s.queries <- reply:
	case <-s.done:
		return Status{}, ErrStopped
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
	return <-reply, nil
}

// Run processes messages and watchdog expiries until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw := <-s.inbox:
			s.handle(raw)
		case <-s.wd.C():
			// Messages that were already queued when the timer fired count
			// as arriving before the expiry.
			s.drain()
			s.expire()
		case reply := <-s.queries:
			reply <- s.snapshot()
		}
	}
}

func (s *Supervisor) drain() {
	for {
		select {
		case raw := <-s.inbox:
			s.handle(raw)
		default:
			return
		}
	}
}

func (s *Supervisor) handle(raw []byte) {
	cmd, err := command.FromMessage(raw)
	if err != nil {
		s.stats.DecodeErrors++
		s.metrics.DecodeErrors.Inc()
		s.logger.Warn("unexpected message value", "err", err)
		return
	}
	s.metrics.Messages.WithLabelValues(cmd.Kind.String()).Inc()

	switch cmd.Kind {
	case command.LockHint:
		s.applyLockHint()
	case command.HeartbeatPing:
		if s.wd.Ping() {
			s.metrics.Armed.Set(1)
			s.logger.Debug("heartbeat window armed")
		}
	case command.HeartbeatExit:
		s.wd.Exit()
		s.logger.Debug("theme is exiting, heartbeat checks suppressed")
	default:
		s.stats.Unknown++
		s.logger.Warn("no handler for message", "message", cmd.Raw)
	}
}

func (s *Supervisor) applyLockHint() {
	s.stats.LockHints++
	s.metrics.LockHints.Inc()
	if err := s.lockHint.Apply(); err != nil {
		s.metrics.DisplayErrors.Inc()
		s.logger.Error("apply lock hint", "err", err)
	}
}

func (s *Supervisor) expire() {
	fault := s.wd.Expire()
	s.metrics.Armed.Set(0)
	if !fault {
		return
	}
	s.logger.Error("A problem was detected with the current theme. Falling back to simple theme...")
	s.stats.Fallbacks++
	s.metrics.Fallbacks.Inc()
	if err := s.fallback.LoadFallback(); err != nil {
		s.logger.Error("load fallback theme", "err", err)
	}
}

func (s *Supervisor) snapshot() Status {
	st := s.stats
	st.Watchdog = s.wd.State()
	st.Theme = s.fallback.Current()
	st.Screensaver = s.lockHint.Snapshot()
	return st
}
