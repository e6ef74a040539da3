package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 流水线指标
type Metrics struct {
	TasksSubmitted prometheus.Counter
	TasksDeduped   prometheus.Counter
	TasksCompleted prometheus.Counter
	TasksFailed    prometheus.Counter
	TaskDuration   prometheus.Histogram

	ImagesMaterialized prometheus.Counter
	ImagesFailed       prometheus.Counter
}

// NewMetrics 创建流水线指标并注册到 reg
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TasksSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_submitted_total",
			Help:      "Total tasks submitted for processing",
		}),
		TasksDeduped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_deduped_total",
			Help:      "Total submissions answered with an existing task",
		}),
		TasksCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_completed_total",
			Help:      "Total tasks finished in completed state",
		}),
		TasksFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_failed_total",
			Help:      "Total tasks finished in failed state",
		}),
		TaskDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Task processing duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		ImagesMaterialized: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_materialized_total",
			Help:      "Total images archived into the owned store",
		}),
		ImagesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_failed_total",
			Help:      "Total images that could not be archived",
		}),
	}
}
