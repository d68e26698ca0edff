// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package doeffvm

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is optional Prometheus instrumentation for [SchedulerHandler].
// A Program built without a Metrics value (the default) pays no
// instrumentation cost at all — every call site in scheduler.go already
// guards on h.metrics being non-nil.
type Metrics struct {
	queueDepth prometheus.Gauge
	spawned    *prometheus.CounterVec
	completed  prometheus.Counter
	failed     prometheus.Counter
	cancelled  prometheus.Counter
	semWait    prometheus.Histogram
}

// NewMetrics creates the scheduler's Prometheus collectors and, if reg is
// non-nil, registers them. Pass nil to construct collectors you intend to
// register yourself, or when running in a test that doesn't care about
// the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "doeffvm",
			Subsystem: "scheduler",
			Name:      "ready_queue_depth",
			Help:      "Number of tasks currently waiting in the ready-queue.",
		}),
		spawned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "doeffvm",
			Subsystem: "scheduler",
			Name:      "tasks_spawned_total",
			Help:      "Total tasks spawned, labeled by priority.",
		}, []string{"priority"}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "doeffvm",
			Subsystem: "scheduler",
			Name:      "tasks_completed_total",
			Help:      "Total tasks that ran to completion.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "doeffvm",
			Subsystem: "scheduler",
			Name:      "tasks_failed_total",
			Help:      "Total tasks that ended with an unrecovered error.",
		}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "doeffvm",
			Subsystem: "scheduler",
			Name:      "tasks_cancelled_total",
			Help:      "Total tasks cancelled before completion.",
		}),
		semWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "doeffvm",
			Subsystem: "scheduler",
			Name:      "semaphore_wait_queue_depth",
			Help:      "Depth of a semaphore's waiter queue observed at Acquire time.",
			Buckets:   prometheus.LinearBuckets(0, 2, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.queueDepth, m.spawned, m.completed, m.failed, m.cancelled, m.semWait)
	}
	return m
}

// SetMetrics attaches m to the scheduler; pass nil to disable
// instrumentation again.
func (h *SchedulerHandler) SetMetrics(m *Metrics) { h.metrics = m }

func (m *Metrics) observeSpawn(priority int) {
	m.spawned.WithLabelValues(strconv.Itoa(priority)).Inc()
}

func (m *Metrics) observeComplete() { m.completed.Inc() }
func (m *Metrics) observeFail()     { m.failed.Inc() }
func (m *Metrics) observeCancel()   { m.cancelled.Inc() }
func (m *Metrics) observeQueueDepth(n int) { m.queueDepth.Set(float64(n)) }
