package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()
	m.ObserveDelivery("scheduled", "sent")
	m.ObserveDelivery("scheduled", "sent")
	m.ObserveDelivery("scheduled", "failed")
	m.ObserveDispatch("scheduled", "ok", 2*time.Second)
	m.ObserveUpdate("message", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReminderDelivered.WithLabelValues("scheduled", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReminderDelivered.WithLabelValues("scheduled", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchRuns.WithLabelValues("scheduled", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookUpdates.WithLabelValues("message", "ok")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveDelivery("manual", "sent")
	m.ObserveDispatch("manual", "ok", time.Second)
	m.ObserveUpdate("callback", "ok")
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveDelivery("manual", "sent")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `khatma_reminder_deliveries_total{status="sent",type="manual"} 1`)
}
