package observability

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_CustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.FeedRequests.WithLabelValues("metrics", "ok").Inc()
	m.WarningsTotal.WithLabelValues("degenerate_computation", "activity").Add(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedRequests.WithLabelValues("metrics", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.WarningsTotal.WithLabelValues("degenerate_computation", "activity")))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_feed_requests_total")
	assert.Contains(t, names, "test_pipeline_warnings_total")
}

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.CacheLookups.WithLabelValues("hit"))
	RecordCacheLookup(true)
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.CacheLookups.WithLabelValues("hit")))

	SetLatestIndex(64, 71, 82.5)
	assert.Equal(t, 64.0, testutil.ToFloat64(DefaultMetrics.LatestActivity))
	assert.Equal(t, 71.0, testutil.ToFloat64(DefaultMetrics.LatestIntent))
	assert.Equal(t, 82.5, testutil.ToFloat64(DefaultMetrics.LatestConfidence))

	errBefore := testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "insert"))
	RecordDBQuery("postgres", "insert", 0.01, errors.New("boom"))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "insert")))
}

func TestHandler(t *testing.T) {
	RecordPipelineRun("success")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "whale_index_lab_pipeline_runs_total"))
}
