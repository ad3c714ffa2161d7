package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hopboxdev/webgreeter/internal/bridge"
	"github.com/hopboxdev/webgreeter/internal/config"
	"github.com/hopboxdev/webgreeter/internal/lockhint"
	"github.com/hopboxdev/webgreeter/internal/metrics"
	"github.com/hopboxdev/webgreeter/internal/screensaver"
	"github.com/hopboxdev/webgreeter/internal/supervisor"
	"github.com/hopboxdev/webgreeter/internal/theme"
)

const (
	statusTimeout  = 2 * time.Second
	surfaceTimeout = 30 * time.Second
)

// Options holds everything the greeter host needs to start.
type Options struct {
	Config *config.Config
	Logger *log.Logger
	// Display overrides the X11 connection. Nil dials Config.Host.Display.
	Display screensaver.Display
	// NoMemoryLock skips mlockall, for development runs.
	NoMemoryLock bool
}

// Run starts the greeter host and blocks until it is told to quit.
// This is the main entry point for `web-greeter run`.
func Run(ctx context.Context, opts Options) error {
	cfg, logger := opts.Config, opts.Logger

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	if !opts.NoMemoryLock {
		if err := lockMemory(); err != nil {
			logger.Warn("could not lock memory, passwords may be swapped out", "err", err)
		}
	}

	if err := os.MkdirAll(cfg.Host.RuntimeDir, 0o700); err != nil {
		return fmt.Errorf("create runtime dir: %w", err)
	}

	display := opts.Display
	if display == nil {
		x, err := screensaver.DialX11(cfg.Host.Display)
		if err != nil {
			logger.Warn("lock hints disabled", "err", err)
			display = screensaver.Unavailable{Err: err}
		} else {
			defer x.Close()
			display = x
		}
	}

	m := metrics.New()
	var sup *supervisor.Supervisor
	sink := func(ctx context.Context, raw []byte) error { return sup.Post(ctx, raw) }

	socket := bridge.NewSocketBridge(cfg.BridgeSocket(), sink, logger)
	bridges := []bridge.Bridge{socket}

	var (
		surface theme.Surface
		cdp     *bridge.CDP
	)
	if cfg.Host.CDPURL != "" {
		cdp = bridge.NewCDP(cfg.Host.CDPURL, sink, logger)
		bridges = append(bridges, cdp)
		surface = cdp
	} else {
		es := bridge.NewExecSurface(cfg.Host.BrowserCommand, logger)
		bridges = append(bridges, es)
		go func() { _ = es.Start(ctx) }()
		defer es.Stop()
		surface = es
	}

	loader := theme.NewLoader(surface, cfg.Host.ThemeDir, cfg.Greeter.Theme, logger)
	sup = supervisor.New(supervisor.Config{
		LockHint: lockhint.New(display, cfg.Greeter.ScreensaverTimeout),
		Fallback: loader,
		Metrics:  m,
		Logger:   logger,
	})

	// Start bridges. Messages that arrive before the supervisor runs wait
	// in its inbox.
	bridgeErr := make(chan error, 2)
	socketReady := make(chan struct{})
	go func() {
		if err := socket.StartWithNotify(ctx, socketReady); err != nil {
			bridgeErr <- fmt.Errorf("socket bridge: %w", err)
		}
	}()
	if cdp != nil {
		go func() {
			if err := cdp.Start(ctx); err != nil {
				bridgeErr <- fmt.Errorf("devtools bridge: %w", err)
			}
		}()
		select {
		case <-cdp.Ready():
		case err := <-bridgeErr:
			return err
		case <-time.After(surfaceTimeout):
			return fmt.Errorf("devtools bridge not ready within %s", surfaceTimeout)
		case <-ctx.Done():
			return nil
		}
	}
	select {
	case <-socketReady:
	case err := <-bridgeErr:
		return err
	case <-ctx.Done():
		return nil
	}

	// The configured theme is loaded before the supervisor loop starts;
	// from then on only the loop touches the loader.
	if err := loader.LoadConfigured(); err != nil {
		logger.Error("load theme", "err", err)
	}

	supDone := make(chan error, 1)
	go func() { supDone <- sup.Run(ctx) }()

	if cfg.Host.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Host.MetricsAddr); err != nil {
				logger.Error("metrics server", "addr", cfg.Host.MetricsAddr, "err", err)
			}
		}()
	}

	h := &daemonHandler{
		pid:       os.Getpid(),
		startedAt: time.Now(),
		sup:       sup,
		bridges:   bridges,
		cancel:    cancel,
	}
	srv := NewServer(cfg.ControlSocket(), h)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start control server: %w", err)
	}
	defer srv.Stop()

	logger.Info("greeter ready", "pid", h.pid, "theme", cfg.Greeter.Theme)

	// Block until shutdown.
	select {
	case <-ctx.Done():
		logger.Info("shutting down...")
	case err := <-bridgeErr:
		cancel()
		<-supDone
		return err
	}
	<-supDone
	return nil
}

// daemonHandler implements Handler for the control server.
type daemonHandler struct {
	pid       int
	startedAt time.Time
	sup       *supervisor.Supervisor
	bridges   []bridge.Bridge
	cancel    context.CancelFunc
}

func (d *daemonHandler) HandleStatus() (*DaemonStatus, error) {
	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()
	st, err := d.sup.Status(ctx)
	if err != nil {
		return nil, err
	}
	var bridgeNames []string
	for _, b := range d.bridges {
		bridgeNames = append(bridgeNames, b.Status())
	}
	return &DaemonStatus{
		PID:        d.pid,
		StartedAt:  d.startedAt,
		Supervisor: st,
		Bridges:    bridgeNames,
	}, nil
}

func (d *daemonHandler) HandleShutdown() {
	d.cancel()
}
