package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the service's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	DBOperationDuration *prometheus.HistogramVec
	UnitsCreated        prometheus.Counter
	UnitOperations      *prometheus.CounterVec
	AllocationConflicts *prometheus.CounterVec
	OverdueNotified     prometheus.Counter
	AccountRequests     *prometheus.CounterVec
	EmailsSent          *prometheus.CounterVec
	WebsocketClients    prometheus.Gauge
}

// New registers every collector on reg under namespace.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		DBOperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_operation_duration_seconds",
			Help:      "Duration of database operations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		UnitsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_units_created_total",
			Help:      "Total number of inventory units minted",
		}),
		UnitOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_unit_operations_total",
			Help:      "Inventory unit operations by kind",
		}, []string{"operation"}),
		AllocationConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_conflicts_total",
			Help:      "Code or tag collisions seen while allocating",
		}, []string{"outcome"}),
		OverdueNotified: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overdue_notifications_total",
			Help:      "Overdue notifications pushed",
		}),
		AccountRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_requests_total",
			Help:      "Account requests by outcome",
		}, []string{"status"}),
		EmailsSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Outbound emails by template and result",
		}, []string{"template", "result"}),
		WebsocketClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Currently connected websocket clients",
		}),
	}
}

// TrackDBOperation returns a function that records the duration of a database operation.
func (m *Metrics) TrackDBOperation(operation string) func(time.Time) {
	return func(start time.Time) {
		if m == nil {
			return
		}
		m.DBOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) RecordUnitsCreated(n int) {
	if m == nil {
		return
	}
	m.UnitsCreated.Add(float64(n))
}

func (m *Metrics) RecordUnitOperation(op string) {
	if m == nil {
		return
	}
	m.UnitOperations.WithLabelValues(op).Inc()
}

func (m *Metrics) RecordAllocationConflict(outcome string) {
	if m == nil {
		return
	}
	m.AllocationConflicts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordOverdueNotified() {
	if m == nil {
		return
	}
	m.OverdueNotified.Inc()
}

func (m *Metrics) RecordAccountRequest(status string) {
	if m == nil {
		return
	}
	m.AccountRequests.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordEmail(template string, err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.EmailsSent.WithLabelValues(template, result).Inc()
}

func (m *Metrics) SetWebsocketClients(n int) {
	if m == nil {
		return
	}
	m.WebsocketClients.Set(float64(n))
}
