// Package metrics records sharing engine activity as Prometheus collectors.
//
// A Recorder owns its own registry so that short-lived processes such as the
// CLI can push a snapshot to a Pushgateway when they finish.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "cardsplit"

// Recorder holds the engine's collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	sharesCreated  prometheus.Counter
	sharesRemoved  prometheus.Counter
	payments       *prometheus.CounterVec
	recalculations prometheus.Counter
	itemsModified  prometheus.Counter
	failures       *prometheus.CounterVec
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		sharesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shares_created_total",
			Help:      "Shares written by split requests.",
		}),
		sharesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shares_removed_total",
			Help:      "Shares deleted by replacing or removing a split.",
		}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "share_payments_total",
			Help:      "Payment status changes, by resulting status.",
		}, []string{"status"}),
		recalculations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recalculations_total",
			Help:      "Completed recalculation sweeps.",
		}),
		itemsModified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recalculated_items_total",
			Help:      "Items whose share amounts changed during recalculation.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Failed engine operations, by operation.",
		}, []string{"op"}),
	}

	r.registry.MustRegister(
		r.sharesCreated,
		r.sharesRemoved,
		r.payments,
		r.recalculations,
		r.itemsModified,
		r.failures,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) SharesCreated(n int) {
	if r == nil {
		return
	}
	r.sharesCreated.Add(float64(n))
}

func (r *Recorder) SharesRemoved(n int) {
	if r == nil {
		return
	}
	r.sharesRemoved.Add(float64(n))
}

// SharesPaid counts shares marked paid (paid=true) or unpaid.
func (r *Recorder) SharesPaid(n int, paid bool) {
	if r == nil {
		return
	}
	status := "unpaid"
	if paid {
		status = "paid"
	}
	r.payments.WithLabelValues(status).Add(float64(n))
}

func (r *Recorder) Recalculated(modified int) {
	if r == nil {
		return
	}
	r.recalculations.Inc()
	r.itemsModified.Add(float64(modified))
}

func (r *Recorder) Failed(op string) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(op).Inc()
}

// Push sends the current values to a Pushgateway under the given job name.
func (r *Recorder) Push(url, job string) error {
	if r == nil {
		return nil
	}
	if err := push.New(url, job).Gatherer(r.registry).Push(); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
