package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/loopapp/loop-vision/internal/vision"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAnalysis(t *testing.T) {
	m := New()

	m.ObserveAnalysis(2*time.Second, &vision.AIAnalysis{
		RawResponse: &vision.RawResponse{Usage: vision.Usage{InputTokens: 1000, OutputTokens: 200, CostUSD: 0.0008}},
	}, nil)

	_, parseErr := vision.ParseResponse("not json")
	m.ObserveAnalysis(time.Second, nil, parseErr)
	m.ObserveAnalysis(time.Second, nil, errors.New("network down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("malformed_response")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("analysis_error")))
	assert.Equal(t, 1000.0, testutil.ToFloat64(m.TokensTotal.WithLabelValues("input")))
	assert.Equal(t, 200.0, testutil.ToFloat64(m.TokensTotal.WithLabelValues("output")))
	assert.InDelta(t, 0.0008, testutil.ToFloat64(m.CostUSDTotal), 1e-12)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var samples uint64
	for _, f := range families {
		if f.GetName() == "loop_vision_analysis_duration_seconds" {
			samples = f.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(3), samples)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ItemsRecorded.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "loop_vision_items_recorded_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
