package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mtlprog/taskindexer/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveEvent_CountsByOutcome(t *testing.T) {
	m := metrics.New()

	m.ObserveEvent("bidding", "TaskCreated", metrics.OutcomeApplied, 0.001)
	m.ObserveEvent("bidding", "TaskCreated", metrics.OutcomeApplied, 0.001)
	m.ObserveEvent("bidding", "TaskCreated", metrics.OutcomeSkipped, 0.001)

	assert.Equal(t, 2.0, m.EventCount("bidding", "TaskCreated", metrics.OutcomeApplied))
	assert.Equal(t, 1.0, m.EventCount("bidding", "TaskCreated", metrics.OutcomeSkipped))
	assert.Equal(t, 0.0, m.EventCount("bidding", "TaskCreated", metrics.OutcomeDropped))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveEvent("user", "UserSkillsUpdated", metrics.OutcomeApplied, 0)
	m.SetCheckpoint("user", 10)
	assert.Zero(t, m.EventCount("user", "UserSkillsUpdated", metrics.OutcomeApplied))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := metrics.New()
	m.SetCheckpoint("dispute", 42)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `taskindexer_checkpoint_block{stream="dispute"} 42`)
}
