package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hopboxdev/webgreeter/internal/metrics"
)

func TestCollectorsRegistered(t *testing.T) {
	m := metrics.New()
	m.Messages.WithLabelValues("heartbeat").Inc()
	m.Fallbacks.Inc()
	m.Armed.Set(1)

	n, err := testutil.GatherAndCount(m.Registry,
		"greeter_bridge_messages_total",
		"greeter_theme_fallbacks_total",
		"greeter_watchdog_armed",
	)
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 3 {
		t.Errorf("gathered %d series, want 3", n)
	}
	if got := testutil.ToFloat64(m.Messages.WithLabelValues("heartbeat")); got != 1 {
		t.Errorf("heartbeat messages = %v, want 1", got)
	}
}
