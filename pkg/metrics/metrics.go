package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReadinessEvaluations counts readiness assessments by verdict
	ReadinessEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_readiness_evaluations_total",
			Help: "Total number of readiness assessments by verdict",
		},
		[]string{"ready"},
	)

	// ReadinessWarnings counts emitted readiness warnings by id
	ReadinessWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_readiness_warnings_total",
			Help: "Total number of readiness warnings by warning id",
		},
		[]string{"warning"},
	)

	// FrameDecodeDuration tracks time spent decoding a single frame
	FrameDecodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qr_frame_decode_duration_seconds",
			Help:    "Duration of single-frame QR decode attempts in seconds",
			Buckets: []float64{0.001, 0.002, 0.005, 0.01, 0.016, 0.033, 0.05, 0.1, 0.25},
		},
		[]string{"outcome"},
	)

	// DecodeFailures counts frames whose decoder faulted and were absorbed as no detection
	DecodeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qr_frame_decode_failures_total",
			Help: "Total number of decoder faults absorbed as no detection",
		},
	)

	// StatusTransitions counts verification state machine transitions
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_verify_status_transitions_total",
			Help: "Total number of verification status transitions",
		},
		[]string{"from", "to"},
	)

	// ActiveSessions reports whether a verification session holds a camera stream
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "qr_verify_active_sessions",
			Help: "Number of verification sessions currently holding a camera stream",
		},
	)

	// SymbolExports counts rendered exports by format
	SymbolExports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_symbol_exports_total",
			Help: "Total number of rendered QR exports by format and status",
		},
		[]string{"format", "status"},
	)
)

// RecordReadiness records one assessment and the warnings it produced
func RecordReadiness(ready bool, warningIDs []string) {
	verdict := "false"
	if ready {
		verdict = "true"
	}
	ReadinessEvaluations.WithLabelValues(verdict).Inc()

	for _, id := range warningIDs {
		ReadinessWarnings.WithLabelValues(id).Inc()
	}
}

// RecordFrameDecode records the duration of a decode attempt
func RecordFrameDecode(outcome string, duration float64) {
	FrameDecodeDuration.WithLabelValues(outcome).Observe(duration)
}

// RecordDecodeFailure records a decoder fault that was absorbed
func RecordDecodeFailure() {
	DecodeFailures.Inc()
}

// RecordStatusTransition records a verification status change
func RecordStatusTransition(from, to string) {
	StatusTransitions.WithLabelValues(from, to).Inc()
}

// SessionOpened marks a camera stream as acquired
func SessionOpened() {
	ActiveSessions.Inc()
}

// SessionClosed marks a camera stream as released
func SessionClosed() {
	ActiveSessions.Dec()
}

// RecordExport records a symbol export
func RecordExport(format, status string) {
	SymbolExports.WithLabelValues(format, status).Inc()
}
