package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vaxportal"

var (
	// httpRequests counts served requests.
	// Labels: method, route (the gin route template), status
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests served",
	}, []string{"method", "route", "status"})

	// httpLatency measures request handling time.
	// Labels: method, route
	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "route"})

	// vaccinationsRecorded counts committed vaccination records
	vaccinationsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "drives",
		Name:      "vaccinations_recorded_total",
		Help:      "Vaccination records created",
	})

	// vaccinationsRemoved counts deleted vaccination records
	vaccinationsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "drives",
		Name:      "vaccinations_removed_total",
		Help:      "Vaccination records removed",
	})

	// recordRejections counts refused vaccination attempts.
	// Labels: reason (capacity, duplicate, immutable)
	recordRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "drives",
		Name:      "record_rejections_total",
		Help:      "Vaccination records refused by a business rule",
	}, []string{"reason"})

	// driveTransitions counts drive status changes.
	// Labels: from, to
	driveTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "drives",
		Name:      "status_transitions_total",
		Help:      "Drive status transitions, including automatic completion",
	}, []string{"from", "to"})

	// studentsImported counts rows accepted by CSV import
	studentsImported = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "students",
		Name:      "imported_total",
		Help:      "Students created through CSV import",
	})

	// eventsPublished counts activity events sent to the message bus.
	// Labels: status (ok, error)
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Activity events published to NATS",
	}, []string{"status"})
)

// Rejection reasons
const (
	ReasonCapacity  = "capacity"
	ReasonDuplicate = "duplicate"
	ReasonImmutable = "immutable"
)

// RecordVaccination counts a committed vaccination
func RecordVaccination() { vaccinationsRecorded.Inc() }

// RemoveVaccination counts a removed vaccination record
func RemoveVaccination() { vaccinationsRemoved.Inc() }

// RejectRecord counts a refused vaccination attempt
func RejectRecord(reason string) { recordRejections.WithLabelValues(reason).Inc() }

// DriveTransition counts a status change
func DriveTransition(from, to string) { driveTransitions.WithLabelValues(from, to).Inc() }

// StudentsImported adds n imported students
func StudentsImported(n int) { studentsImported.Add(float64(n)) }

// EventPublished counts one publish attempt
func EventPublished(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	eventsPublished.WithLabelValues(status).Inc()
}

// Middleware records request count and latency per route template
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
