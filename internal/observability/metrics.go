package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Domain collectors. Label values come from closed sets (touchpoint
// types, run statuses, quota categories) so cardinality stays bounded.
var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_runs_total",
			Help: "Finished runs by touchpoint type and final status.",
		},
		[]string{"type", "status"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outreach_run_duration_seconds",
			Help:    "Wall time of a run from lock acquisition to persistence.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"type"},
	)

	runsInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "outreach_runs_inflight",
			Help: "Runs dispatched and not yet persisted.",
		},
	)

	quotaDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_quota_denials_total",
			Help: "Quota checks that denied an action, by quota category.",
		},
		[]string{"category"},
	)

	breakerTrips = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_breaker_trips_total",
			Help: "Accounts paused by the consecutive-failure breaker.",
		},
	)

	scheduleFirings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_schedule_firings_total",
			Help: "Due schedules processed by the scheduler, by outcome.",
		},
		[]string{"outcome"},
	)

	pollerDispatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_poller_dispatches_total",
			Help: "Pending runs dispatched by the poller.",
		},
	)

	funnelTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_funnel_transitions_total",
			Help: "Profile state changes persisted by the funnel, by target state.",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(
		runsTotal, runDuration, runsInflight, quotaDenials, breakerTrips,
		scheduleFirings, pollerDispatches, funnelTransitions,
	)
}

// RunStarted marks a dispatched run as in flight.
func RunStarted() { runsInflight.Inc() }

// RunFinished records the outcome of a run and ends its in-flight span.
func RunFinished(touchpointType, status string, d time.Duration) {
	runsInflight.Dec()
	runsTotal.WithLabelValues(touchpointType, status).Inc()
	runDuration.WithLabelValues(touchpointType).Observe(d.Seconds())
}

// QuotaDenied counts a denied quota check.
func QuotaDenied(category string) { quotaDenials.WithLabelValues(category).Inc() }

// BreakerTripped counts an account paused by the breaker.
func BreakerTripped() { breakerTrips.Inc() }

// ScheduleFired counts a processed due schedule; outcome is "created" or "error".
func ScheduleFired(outcome string) { scheduleFirings.WithLabelValues(outcome).Inc() }

// PollerDispatched counts runs handed to the pipeline by the poller.
func PollerDispatched(n int) { pollerDispatches.Add(float64(n)) }

// FunnelTransition counts a persisted profile state change.
func FunnelTransition(state string) { funnelTransitions.WithLabelValues(state).Inc() }
