package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_CountsGenerationAttempts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGenerationAttempt("model-a", OutcomeCallError)
	c.RecordGenerationAttempt("model-b", OutcomeSuccess)
	c.RecordGenerationAttempt("model-b", OutcomeSuccess)

	if got := testutil.ToFloat64(c.generationAttempts.WithLabelValues("model-b", OutcomeSuccess)); got != 2 {
		t.Errorf("Expected 2 successes for model-b, got %v", got)
	}
	if got := testutil.ToFloat64(c.generationAttempts.WithLabelValues("model-a", OutcomeCallError)); got != 1 {
		t.Errorf("Expected 1 failure for model-a, got %v", got)
	}
}

func TestCollector_ReviewCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSessionRecorded()
	c.RecordCardReviewInsertFailure()
	c.RecordCardReviewInsertFailure()

	if got := testutil.ToFloat64(c.sessionsRecorded); got != 1 {
		t.Errorf("Expected 1 session, got %v", got)
	}
	if got := testutil.ToFloat64(c.reviewInsertFailure); got != 2 {
		t.Errorf("Expected 2 insert failures, got %v", got)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveHTTPRequest(http.MethodGet, "/api/decks", http.StatusOK, 20*time.Millisecond)

	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), `revi_http_requests_total{method="GET",route="/api/decks",status="200"} 1`) {
		t.Errorf("Expected request counter in exposition, got:\n%s", body)
	}
}
