package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	signTranslations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echolearn_sign_translations_total",
		Help: "Total number of text-to-sign translations, by provider that produced the result",
	}, []string{"provider"})

	signPrimaryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echolearn_sign_primary_failures_total",
		Help: "Failures of the primary sign translation provider",
	}, []string{"reason"})

	tutorRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echolearn_tutor_requests_total",
		Help: "Total number of LLM tutor requests",
	}, []string{"operation", "status"})

	transcriptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echolearn_transcriptions_total",
		Help: "Total number of audio transcriptions",
	}, []string{"status"})

	activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "echolearn_websocket_connections",
		Help: "Number of open WebSocket connections",
	})
)

// RecordSignTranslation counts a translation served by provider ("primary" or "fallback")
func RecordSignTranslation(provider string) {
	signTranslations.WithLabelValues(provider).Inc()
}

// RecordSignPrimaryFailure counts a primary provider failure
func RecordSignPrimaryFailure(reason string) {
	signPrimaryFailures.WithLabelValues(reason).Inc()
}

// RecordTutorRequest counts a tutor call; status is "success" or "fallback"
func RecordTutorRequest(operation, status string) {
	tutorRequests.WithLabelValues(operation, status).Inc()
}

// RecordTranscription counts a transcription; status is "success" or "error"
func RecordTranscription(status string) {
	transcriptions.WithLabelValues(status).Inc()
}

// ConnectionOpened increments the open WebSocket gauge
func ConnectionOpened() {
	activeConnections.Inc()
}

// ConnectionClosed decrements the open WebSocket gauge
func ConnectionClosed() {
	activeConnections.Dec()
}
