// Package metrics exposes supervisor counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the greeter's collectors.
type Metrics struct {
	Registry      *prometheus.Registry
	Messages      *prometheus.CounterVec
	DecodeErrors  prometheus.Counter
	Fallbacks     prometheus.Counter
	LockHints     prometheus.Counter
	DisplayErrors prometheus.Counter
	Armed         prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Messages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "greeter_bridge_messages_total",
			Help: "Messages received on the GreeterBridge channel, by command.",
		}, []string{"command"}),
		DecodeErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "greeter_bridge_decode_errors_total",
			Help: "Messages that were not strings.",
		}),
		Fallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "greeter_theme_fallbacks_total",
			Help: "Times the fallback theme was loaded after a missed heartbeat.",
		}),
		LockHints: f.NewCounter(prometheus.CounterOpts{
			Name: "greeter_lock_hints_total",
			Help: "Lock hints applied.",
		}),
		DisplayErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "greeter_display_errors_total",
			Help: "Failed screensaver calls to the display server.",
		}),
		Armed: f.NewGauge(prometheus.GaugeOpts{
			Name: "greeter_watchdog_armed",
			Help: "1 while a heartbeat window is open.",
		}),
	}
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
