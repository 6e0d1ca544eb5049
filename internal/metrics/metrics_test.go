package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RecordsAndReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := New(reg)
	require.NoError(t, err)
	b, err := New(reg)
	require.NoError(t, err, "second connection on the same registry")

	a.FramePublished()
	b.FramePublished()
	a.FramesOverwritten(3)
	a.FramesOverwritten(0)
	b.FrameThrottled()
	a.FrameDelivered()
	a.SubscriberAdded()
	a.SubscriberAdded()
	b.SubscriberRemoved()
	a.SessionRevision()
	a.ObserveRead(20 * time.Microsecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(a.framesPublished))
	assert.Equal(t, 3.0, testutil.ToFloat64(b.framesOverwritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.framesThrottled))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.subscribers))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.sessionRevisions))

	n, err := testutil.GatherAndCount(reg, "pitwall_source_read_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FramePublished()
		m.FrameDelivered()
		m.FramesOverwritten(1)
		m.FrameThrottled()
		m.SubscriberAdded()
		m.SubscriberRemoved()
		m.SessionRevision()
		m.ObserveRead(time.Millisecond)
	})
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.FramePublished()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "pitwall_hub_frames_published_total 1"), body)
	assert.Contains(t, body, "go_goroutines")
}
