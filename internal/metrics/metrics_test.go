package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry(), "inventory_test")

	m.RecordUnitsCreated(3)
	m.RecordUnitOperation("borrow")
	m.RecordUnitOperation("borrow")
	m.RecordEmail("otp", nil)
	m.RecordEmail("otp", errors.New("smtp down"))
	m.TrackDBOperation("list_units")(time.Now())

	assert.Equal(t, 3.0, testutil.ToFloat64(m.UnitsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UnitOperations.WithLabelValues("borrow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmailsSent.WithLabelValues("otp", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmailsSent.WithLabelValues("otp", "failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.DBOperationDuration))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordUnitsCreated(1)
		m.RecordOverdueNotified()
		m.RecordAllocationConflict("retried")
		m.SetWebsocketClients(4)
		m.TrackDBOperation("x")(time.Now())
	})
}
