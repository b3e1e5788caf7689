package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Success labels for metrics
const (
	SuccessTrue  = "true"
	SuccessFalse = "false"
)

var (
	// HTTP request metrics for the local shell server
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "luatchat_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status_code"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "luatchat_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "endpoint", "status_code"})

	// Backend question round-trip metrics
	AskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "luatchat_ask_duration_seconds",
		Help:    "Duration of backend question round trips in seconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 15, 30, 60, 120},
	}, []string{"mode", "success"})

	AskRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "luatchat_ask_requests_total",
		Help: "Total number of questions sent to the backend",
	}, []string{"mode", "success"})

	// PDF document fetch metrics
	PDFFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "luatchat_pdf_fetch_duration_seconds",
		Help:    "Duration of PDF document fetches in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"success"})

	PDFFetchBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "luatchat_pdf_fetch_bytes",
		Help:    "Size of fetched PDF documents in bytes",
		Buckets: []float64{10000, 50000, 100000, 500000, 1000000, 5000000, 20000000},
	}, []string{})

	// Page location metrics
	PageScanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "luatchat_page_scan_duration_seconds",
		Help:    "Duration of client-side article page scans in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"outcome"}) // explicit, lookup, cache, scan, heuristic

	PagesScanned = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "luatchat_pages_scanned",
		Help:    "Number of pages read before a scan terminated",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
	}, []string{})

	// Highlight metrics
	HighlightSpansMarked = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "luatchat_highlight_spans_marked",
		Help:    "Number of text-layer spans marked per highlight pass",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	}, []string{})

	// Feedback metrics
	FeedbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "luatchat_feedback_total",
		Help: "Total number of feedback submissions",
	}, []string{"status", "success"})

	// Conversation state metrics
	ConversationsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "luatchat_conversations_total",
		Help: "Number of conversations held in the local store",
	}, []string{})
)

// RecordHTTPRequest records a served HTTP request with timing.
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	labels := prometheus.Labels{
		"method":      method,
		"endpoint":    endpoint,
		"status_code": strconv.Itoa(statusCode),
	}
	HTTPRequestDuration.With(labels).Observe(duration.Seconds())
	HTTPRequestsTotal.With(labels).Inc()
}

// RecordAsk records one backend question round trip.
func RecordAsk(duration time.Duration, mode string, success bool) {
	successLabel := SuccessFalse
	if success {
		successLabel = SuccessTrue
	}
	AskDuration.WithLabelValues(mode, successLabel).Observe(duration.Seconds())
	AskRequestsTotal.WithLabelValues(mode, successLabel).Inc()
}

// RecordPDFFetch records one document fetch.
func RecordPDFFetch(duration time.Duration, success bool, sizeBytes int) {
	successLabel := SuccessFalse
	if success {
		successLabel = SuccessTrue
	}
	PDFFetchDuration.WithLabelValues(successLabel).Observe(duration.Seconds())
	if success {
		PDFFetchBytes.WithLabelValues().Observe(float64(sizeBytes))
	}
}

// RecordPageLocate records how a page was determined and how long it took.
// Outcome is one of "explicit", "lookup", "cache", "scan" or "heuristic".
func RecordPageLocate(duration time.Duration, outcome string, pagesScanned int) {
	PageScanDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if pagesScanned > 0 {
		PagesScanned.WithLabelValues().Observe(float64(pagesScanned))
	}
}

// RecordHighlight records the span count of one highlight pass.
func RecordHighlight(spansMarked int) {
	HighlightSpansMarked.WithLabelValues().Observe(float64(spansMarked))
}

// RecordFeedback records one feedback submission attempt.
func RecordFeedback(status string, success bool) {
	successLabel := SuccessFalse
	if success {
		successLabel = SuccessTrue
	}
	FeedbackTotal.WithLabelValues(status, successLabel).Inc()
}

// UpdateConversationCount publishes the current store size.
func UpdateConversationCount(count int) {
	ConversationsActive.WithLabelValues().Set(float64(count))
}
