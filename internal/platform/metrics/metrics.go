// Package metrics exposes session observability through Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lunarfang/werewolf-arena/internal/decider"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Name:      "decisions_total",
		Help:      "Decisions requested, by action kind and outcome.",
	}, []string{"action", "outcome"})

	invalidDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Name:      "invalid_decisions_total",
		Help:      "Decisions rejected for naming an illegal option.",
	}, []string{"action"})

	decisionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arena",
		Name:      "decision_latency_seconds",
		Help:      "Wall time per decision, by action kind.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"action"})

	roundsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arena",
		Name:      "rounds_completed_total",
		Help:      "Rounds driven to completion.",
	})

	gamesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Name:      "games_completed_total",
		Help:      "Sessions driven to a winner, by faction.",
	}, []string{"winner"})
)

// RecordRound marks one round completed.
func RecordRound() {
	roundsCompleted.Inc()
}

// RecordGame marks one session completed with the given winner.
func RecordGame(winner string) {
	gamesCompleted.WithLabelValues(winner).Inc()
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Decider instruments an inner decider with counters and latency.
type Decider struct {
	inner decider.Decider
}

// Instrument wraps a decider so every call is counted and timed.
func Instrument(inner decider.Decider) *Decider {
	return &Decider{inner: inner}
}

func (m *Decider) Decide(ctx context.Context, req *decider.Request) (*decider.Decision, error) {
	action := string(req.Action)
	start := time.Now()
	dec, err := m.inner.Decide(ctx, req)
	decisionLatency.WithLabelValues(action).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		decisionsTotal.WithLabelValues(action, "ok").Inc()
	case errors.Is(err, decider.ErrInvalidDecision):
		decisionsTotal.WithLabelValues(action, "invalid").Inc()
		invalidDecisionsTotal.WithLabelValues(action).Inc()
	default:
		decisionsTotal.WithLabelValues(action, "error").Inc()
	}
	return dec, err
}

var _ decider.Decider = (*Decider)(nil)
