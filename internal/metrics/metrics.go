package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the portal's Prometheus registry
type Collector struct {
	reg *prometheus.Registry

	FixesAccepted prometheus.Counter
	FixesRejected *prometheus.CounterVec // reason label: stale|stopped
	GPSErrors     *prometheus.CounterVec // kind label: timeout|unavailable

	ReportsDelivered   prometheus.Counter
	ReportErrors       prometheus.Counter
	ReportsSuperseded  prometheus.Counter
	DeliveryDuration   prometheus.Histogram
	TripActive         prometheus.Gauge
	LiveStreams        prometheus.Gauge
	Logins             *prometheus.CounterVec // role, result labels
	HTTPRequests       *prometheus.CounterVec // method, route, status labels
	HTTPRequestSeconds *prometheus.HistogramVec
}

// NewCollector creates and registers every metric
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		FixesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transport_gps_fixes_total",
			Help: "GPS fixes processed by the trip tracker.",
		}),
		FixesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transport_gps_fixes_rejected_total",
			Help: "GPS fixes pushed but not processed.",
		}, []string{"reason"}),
		GPSErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transport_gps_errors_total",
			Help: "Location watch failures that halted tracking.",
		}, []string{"kind"}),
		ReportsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transport_location_reports_delivered_total",
			Help: "Location reports written to the store.",
		}),
		ReportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transport_location_report_errors_total",
			Help: "Location report writes that failed.",
		}),
		ReportsSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transport_location_reports_superseded_total",
			Help: "Pending reports replaced by a newer fix before delivery.",
		}),
		DeliveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transport_location_report_delivery_seconds",
			Help:    "Time to write one location report.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		TripActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transport_trip_active",
			Help: "1 while the driver has a trip running, 0 otherwise.",
		}),
		LiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transport_live_streams",
			Help: "Open bus location streams.",
		}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transport_logins_total",
			Help: "Login attempts by role and result.",
		}, []string{"role", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transport_http_requests_total",
			Help: "HTTP requests served.",
		}, []string{"method", "route", "status"}),
		HTTPRequestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transport_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.FixesAccepted, c.FixesRejected, c.GPSErrors,
		c.ReportsDelivered, c.ReportErrors, c.ReportsSuperseded, c.DeliveryDuration,
		c.TripActive, c.LiveStreams, c.Logins,
		c.HTTPRequests, c.HTTPRequestSeconds,
	)

	return c
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// FixAccepted counts a processed fix
func (c *Collector) FixAccepted() { c.FixesAccepted.Inc() }

// FixRejected counts a fix that was dropped
func (c *Collector) FixRejected(reason string) { c.FixesRejected.WithLabelValues(reason).Inc() }

// GPSError counts a halted watch
func (c *Collector) GPSError(kind string) { c.GPSErrors.WithLabelValues(kind).Inc() }

// ReportDelivered records a successful write
func (c *Collector) ReportDelivered(d time.Duration) {
	c.ReportsDelivered.Inc()
	c.DeliveryDuration.Observe(d.Seconds())
}

// ReportFailed records a failed write
func (c *Collector) ReportFailed(d time.Duration) {
	c.ReportErrors.Inc()
	c.DeliveryDuration.Observe(d.Seconds())
}

// ReportSuperseded records a pending report replaced before delivery
func (c *Collector) ReportSuperseded() { c.ReportsSuperseded.Inc() }

// SetTripActive flips the trip gauge
func (c *Collector) SetTripActive(active bool) {
	if active {
		c.TripActive.Set(1)
		return
	}
	c.TripActive.Set(0)
}

// StreamOpened and StreamClosed track live stream connections
func (c *Collector) StreamOpened() { c.LiveStreams.Inc() }

// StreamClosed decrements the live stream gauge
func (c *Collector) StreamClosed() { c.LiveStreams.Dec() }

// LoginAttempt counts a login by role and result
func (c *Collector) LoginAttempt(role, result string) { c.Logins.WithLabelValues(role, result).Inc() }

// ObserveRequest records one served HTTP request
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPRequestSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}
