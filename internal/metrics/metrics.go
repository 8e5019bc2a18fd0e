// Package metrics holds the Prometheus collectors of the complaint service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "wastewatch"
	subsystem = "complaints"
)

// Result labels for ComplaintsCreated.
const (
	ResultRegistered  = "registered"
	ResultNoDetection = "no_detection"
)

// Reason labels for ComplaintsRejected.
const (
	ReasonValidation   = "validation"
	ReasonDuplicate    = "duplicate"
	ReasonSegmentation = "segmentation"
	ReasonTimeout      = "timeout"
	ReasonStore        = "store"
)

var (
	once sync.Once

	ComplaintsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "created_total",
		Help:      "Complaints persisted, labeled by whether garbage was detected.",
	}, []string{"result"})

	ComplaintsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "rejected_total",
		Help:      "Complaint submissions that did not create a record, labeled by reason.",
	}, []string{"reason"})

	ComplaintsResolved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "resolved_total",
		Help:      "Resolve operations that matched a record.",
	})

	SegmentationDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "segmentation_duration_seconds",
		Help:      "Time spent in the segmentation engine per submission.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	EventSinkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "event_sink_errors_total",
		Help:      "Complaint events that a sink failed to deliver.",
	}, []string{"sink"})

	DashboardClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "dashboard_clients",
		Help:      "Live dashboard websocket connections on this instance.",
	})
)

// Register registers the collectors with the default registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			ComplaintsCreated,
			ComplaintsRejected,
			ComplaintsResolved,
			SegmentationDurationSeconds,
			EventSinkErrors,
			DashboardClients,
		)
	})
}
