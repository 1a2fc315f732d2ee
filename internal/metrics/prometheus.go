package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Workflow metrics
	WorkflowRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentflow_workflow_runs_total",
			Help: "Total number of workflow executions",
		},
		[]string{"workflow", "status"}, // status: success|failed|aborted
	)

	WorkflowDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentflow_workflow_duration_seconds",
			Help:    "Workflow execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"workflow"},
	)

	WorkflowSteps = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentflow_workflow_steps",
			Help:    "Number of steps per workflow execution",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"workflow"},
	)

	// Step metrics
	StepExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentflow_step_executions_total",
			Help: "Total number of step executions",
		},
		[]string{"capability", "status"}, // status: succeeded|failed|skipped
	)

	StepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentflow_step_duration_seconds",
			Help:    "Step execution duration across all attempts in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"capability"},
	)

	StepAttempts = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentflow_step_attempts",
			Help:    "Invocation attempts per step execution",
			Buckets: []float64{1, 2, 3, 5, 10},
		},
		[]string{"capability"},
	)

	// Capability registry metrics
	CapabilityInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentflow_capability_invocations_total",
			Help: "Total number of capability invocations",
		},
		[]string{"capability", "status"}, // status: success|error
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentflow_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentflow_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "agentflow_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentflow_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: postgres|redis
	)

	// Event metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentflow_kafka_messages_total",
			Help: "Total Kafka messages produced",
		},
		[]string{"topic", "status"},
	)
)

// Init registers all metrics with the default registry
func Init() {
	prometheus.MustRegister(WorkflowRuns)
	prometheus.MustRegister(WorkflowDuration)
	prometheus.MustRegister(WorkflowSteps)

	prometheus.MustRegister(StepExecutions)
	prometheus.MustRegister(StepDuration)
	prometheus.MustRegister(StepAttempts)

	prometheus.MustRegister(CapabilityInvocations)

	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)

	prometheus.MustRegister(DBQueries)
	prometheus.MustRegister(KafkaMessages)
}

// Handler returns the HTTP handler for the /metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkflowRun records one workflow execution
func RecordWorkflowRun(workflow, status string, duration time.Duration, steps int) {
	WorkflowRuns.WithLabelValues(workflow, status).Inc()
	WorkflowDuration.WithLabelValues(workflow).Observe(duration.Seconds())
	WorkflowSteps.WithLabelValues(workflow).Observe(float64(steps))
}

// RecordStepExecution records one step execution with its attempt count
func RecordStepExecution(capability, status string, duration time.Duration, attempts int) {
	StepExecutions.WithLabelValues(capability, status).Inc()
	StepDuration.WithLabelValues(capability).Observe(duration.Seconds())
	StepAttempts.WithLabelValues(capability).Observe(float64(attempts))
}

// RecordCapabilityInvocation records one registry invocation
func RecordCapabilityInvocation(capability string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	CapabilityInvocations.WithLabelValues(capability, status).Inc()
}

// RecordWorkerExecution records one worker iteration
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordDBQuery records one repository call
func RecordDBQuery(database, operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DBQueries.WithLabelValues(database, operation, status).Inc()
}

// RecordKafkaMessage records one produced message
func RecordKafkaMessage(topic string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	KafkaMessages.WithLabelValues(topic, status).Inc()
}
