package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRunMetrics(t *testing.T) {
	beforeInflight := testutil.ToFloat64(runsInflight)
	before := testutil.ToFloat64(runsTotal.WithLabelValues("connect", "completed"))

	RunStarted()
	if got := testutil.ToFloat64(runsInflight); got != beforeInflight+1 {
		t.Fatalf("inflight = %v, want %v", got, beforeInflight+1)
	}
	RunFinished("connect", "completed", 3*time.Second)

	if got := testutil.ToFloat64(runsInflight); got != beforeInflight {
		t.Fatalf("inflight = %v after finish, want %v", got, beforeInflight)
	}
	if got := testutil.ToFloat64(runsTotal.WithLabelValues("connect", "completed")); got != before+1 {
		t.Fatalf("runs_total = %v, want %v", got, before+1)
	}
	if n := testutil.CollectAndCount(runDuration); n < 1 {
		t.Fatalf("expected duration series, got %d", n)
	}
}

func TestCounters(t *testing.T) {
	q := testutil.ToFloat64(quotaDenials.WithLabelValues("connection"))
	QuotaDenied("connection")
	if got := testutil.ToFloat64(quotaDenials.WithLabelValues("connection")); got != q+1 {
		t.Fatalf("quota denials = %v", got)
	}

	b := testutil.ToFloat64(breakerTrips)
	BreakerTripped()
	if got := testutil.ToFloat64(breakerTrips); got != b+1 {
		t.Fatalf("breaker trips = %v", got)
	}

	p := testutil.ToFloat64(pollerDispatches)
	PollerDispatched(3)
	if got := testutil.ToFloat64(pollerDispatches); got != p+3 {
		t.Fatalf("poller dispatches = %v", got)
	}

	s := testutil.ToFloat64(scheduleFirings.WithLabelValues("created"))
	ScheduleFired("created")
	if got := testutil.ToFloat64(scheduleFirings.WithLabelValues("created")); got != s+1 {
		t.Fatalf("schedule firings = %v", got)
	}

	f := testutil.ToFloat64(funnelTransitions.WithLabelValues("enriched"))
	FunnelTransition("enriched")
	if got := testutil.ToFloat64(funnelTransitions.WithLabelValues("enriched")); got != f+1 {
		t.Fatalf("funnel transitions = %v", got)
	}
}
