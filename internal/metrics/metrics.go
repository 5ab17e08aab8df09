package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	classifierReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfsplitter",
			Name:      "classifier_requests_total",
			Help:      "Total classifier requests by provider, model and result",
		},
		[]string{"provider", "model", "result"},
	)

	classifierLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pdfsplitter",
			Name:      "classifier_request_duration_seconds",
			Help:      "Duration of classifier requests by provider and model",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "model"},
	)

	segmentsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfsplitter",
			Name:      "segments_written_total",
			Help:      "Split files written, by plan origin (ai, explicit)",
		},
		[]string{"origin"},
	)

	staleDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pdfsplitter",
			Name:      "stale_outputs_deleted_total",
			Help:      "Stale split files removed by cleanup",
		},
	)

	passThrough = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfsplitter",
			Name:      "passthrough_files_total",
			Help:      "Files reported unchanged, by kind",
		},
		[]string{"kind"},
	)

	splitErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfsplitter",
			Name:      "errors_total",
			Help:      "Recorded job errors by kind",
		},
		[]string{"kind"},
	)

	tokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfsplitter",
			Name:      "classifier_tokens_total",
			Help:      "Classifier tokens by direction (input, output)",
		},
		[]string{"direction"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pdfsplitter",
			Name:      "job_duration_seconds",
			Help:      "Duration of split jobs by mode and status",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"mode", "status"},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(classifierReqs, classifierLatency, segmentsWritten, staleDeleted, passThrough, splitErrors, tokens, jobDuration)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveClassifier(provider, model, result string, dur time.Duration) {
	classifierReqs.WithLabelValues(provider, model, result).Inc()
	classifierLatency.WithLabelValues(provider, model).Observe(dur.Seconds())
}

func ObserveSegments(origin string, n int) { segmentsWritten.WithLabelValues(origin).Add(float64(n)) }
func ObserveDeleted(n int)                 { staleDeleted.Add(float64(n)) }
func IncPassThrough(kind string)           { passThrough.WithLabelValues(kind).Inc() }
func IncError(kind string)                 { splitErrors.WithLabelValues(kind).Inc() }

func AddTokens(in, out int64) {
	tokens.WithLabelValues("input").Add(float64(in))
	tokens.WithLabelValues("output").Add(float64(out))
}

func ObserveJob(mode, status string, dur time.Duration) {
	jobDuration.WithLabelValues(mode, status).Observe(dur.Seconds())
}
