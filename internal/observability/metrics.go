package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	apiRequestsTotal   *prometheus.CounterVec
	apiLatencySeconds  *prometheus.HistogramVec
	apiErrorsTotal     *prometheus.CounterVec
	examsCreatedTotal  prometheus.Counter
	examImportsTotal   *prometheus.CounterVec
	submissionsSaved   *prometheus.CounterVec
	gradesSavedTotal   *prometheus.CounterVec
	simulatedRunsTotal *prometheus.CounterVec
	questionCacheTotal *prometheus.CounterVec
	eventsPublished    *prometheus.CounterVec
	feedConnections    prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codesarge_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codesarge_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codesarge_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		examsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codesarge_exams_created_total",
			Help: "Exams created, including imported ones.",
		})

		examImportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codesarge_exam_imports_total",
			Help: "Exam import attempts, by result.",
		}, []string{"result"})

		submissionsSaved = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codesarge_submissions_saved_total",
			Help: "Submissions saved while navigating attempts, by direction.",
		}, []string{"direction"})

		gradesSavedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codesarge_grades_saved_total",
			Help: "Grades written, by resulting submission status and operation.",
		}, []string{"status", "operation"})

		simulatedRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codesarge_simulated_runs_total",
			Help: "Simulated test runs, by outcome.",
		}, []string{"outcome"})

		questionCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codesarge_question_cache_total",
			Help: "Exam question cache lookups, by result.",
		}, []string{"result"})

		eventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codesarge_events_published_total",
			Help: "Domain events published, by event type.",
		}, []string{"type"})

		feedConnections = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "codesarge_results_feed_connections",
			Help: "Active results feed websocket connections.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			examsCreatedTotal,
			examImportsTotal,
			submissionsSaved,
			gradesSavedTotal,
			simulatedRunsTotal,
			questionCacheTotal,
			eventsPublished,
			feedConnections,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// ExamsCreated counts created exams.
func ExamsCreated() prometheus.Counter {
	RegisterMetrics()
	return examsCreatedTotal
}

// ExamImports counts import attempts by result.
func ExamImports() *prometheus.CounterVec {
	RegisterMetrics()
	return examImportsTotal
}

// SubmissionsSaved counts persisted submissions.
func SubmissionsSaved() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsSaved
}

// GradesSaved counts grade writes.
func GradesSaved() *prometheus.CounterVec {
	RegisterMetrics()
	return gradesSavedTotal
}

// SimulatedRuns counts simulated test runs.
func SimulatedRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return simulatedRunsTotal
}

// QuestionCache counts cache hits and misses for exam questions.
func QuestionCache() *prometheus.CounterVec {
	RegisterMetrics()
	return questionCacheTotal
}

// EventsPublished counts domain events handed to the brokers.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublished
}

// ResultsFeedConnections tracks open websocket feed clients.
func ResultsFeedConnections() prometheus.Gauge {
	RegisterMetrics()
	return feedConnections
}
