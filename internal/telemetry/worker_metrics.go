// Package internaltelemetry holds the OpenTelemetry instruments the engine
// exposes about its own worker pool and transaction manager.
package internaltelemetry

import (
	"go.opentelemetry.io/otel/metric"
)

// WorkerPoolMetrics holds the metric instruments for the thread pool and the
// transaction manager it drives.
type WorkerPoolMetrics struct {
	TasksStartedCounter    metric.Int64Counter
	TasksHandledCounter    metric.Int64Counter
	TaskLatencyHistogram   metric.Int64Histogram
	ActiveWorkersUpDown    metric.Int64UpDownCounter
	CommitsCounter         metric.Int64Counter
	RaceAbortsCounter      metric.Int64Counter
	ImpersonateFailCounter metric.Int64Counter
}

// NewWorkerPoolMetrics creates and registers all metrics for the thread pool.
func NewWorkerPoolMetrics(meter metric.Meter) (*WorkerPoolMetrics, error) {
	tasksStarted, err := meter.Int64Counter(
		"ember.pool.tasks_started_total",
		metric.WithDescription("Total number of tasks handed to a worker via impersonate."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	tasksHandled, err := meter.Int64Counter(
		"ember.pool.tasks_handled_total",
		metric.WithDescription("Total number of tasks a worker finished running."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	taskLatency, err := meter.Int64Histogram(
		"ember.pool.task_duration",
		metric.WithDescription("Wall-clock time a task spent running on a worker."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	activeWorkers, err := meter.Int64UpDownCounter(
		"ember.pool.active_workers",
		metric.WithDescription("Number of workers currently impersonated."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	commits, err := meter.Int64Counter(
		"ember.xct.commits_total",
		metric.WithDescription("Total number of tasks run through Engine.Run that returned without error; individual transactions inside a task are not counted."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	raceAborts, err := meter.Int64Counter(
		"ember.xct.race_aborts_total",
		metric.WithDescription("Total number of tasks run through Engine.Run whose final result was a race-abort; race-aborts retried inside a task are not counted."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	impersonateFail, err := meter.Int64Counter(
		"ember.pool.impersonate_failures_total",
		metric.WithDescription("Total number of impersonate calls that found no idle worker."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolMetrics{
		TasksStartedCounter:    tasksStarted,
		TasksHandledCounter:    tasksHandled,
		TaskLatencyHistogram:   taskLatency,
		ActiveWorkersUpDown:    activeWorkers,
		CommitsCounter:         commits,
		RaceAbortsCounter:      raceAborts,
		ImpersonateFailCounter: impersonateFail,
	}, nil
}
