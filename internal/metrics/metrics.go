// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments the worker and scheduler
// update as they process leads and queue entries.
type Metrics struct {
	SendsTotal               prometheus.Counter
	DuplicatesSuppressed     prometheus.Counter
	OutOfOrderArchived       prometheus.Counter
	OrphanedArchived         prometheus.Counter
	ScheduleOverflowTotal    prometheus.Counter
	LeadsCompleted           prometheus.Counter
	QueueReadErrors          prometheus.Counter
}

// New registers and returns a fresh Metrics set against the default
// registry.
func New() *Metrics {
	return &Metrics{
		SendsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hyperdrip_sends_total",
			Help: "Total number of committed message advances (actual sends).",
		}),
		DuplicatesSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hyperdrip_duplicates_suppressed_total",
			Help: "Queue entries archived without effect because the lead's counter already covered them.",
		}),
		OutOfOrderArchived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hyperdrip_out_of_order_archived_total",
			Help: "Queue entries archived without effect because they arrived ahead of the expected message number.",
		}),
		OrphanedArchived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hyperdrip_orphaned_archived_total",
			Help: "Queue entries archived because their lead no longer exists.",
		}),
		ScheduleOverflowTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hyperdrip_schedule_overflow_total",
			Help: "Times the scheduler exhausted its overflow horizon and clamped to the last day.",
		}),
		LeadsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hyperdrip_leads_completed_total",
			Help: "Leads whose message_count reached max_messages.",
		}),
		QueueReadErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hyperdrip_queue_read_errors_total",
			Help: "Transient queue read failures observed by the worker poll loop.",
		}),
	}
}
