package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMiddlewareCountsByRoute(t *testing.T) {
	r := gin.New()
	r.Use(Middleware())
	r.GET("/expenses/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	matched := httpRequests.WithLabelValues("GET", "/expenses/:id", "200")
	unmatched := httpRequests.WithLabelValues("GET", "unmatched", "404")
	beforeMatched := testutil.ToFloat64(matched)
	beforeUnmatched := testutil.ToFloat64(unmatched)

	for _, path := range []string{"/expenses/a", "/expenses/b", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}

	if got := testutil.ToFloat64(matched) - beforeMatched; got != 2 {
		t.Errorf("expected 2 requests on the templated route, got %v", got)
	}
	if got := testutil.ToFloat64(unmatched) - beforeUnmatched; got != 1 {
		t.Errorf("expected 1 unmatched request, got %v", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	GateDecisions.WithLabelValues("accepted").Inc()
	RecurrenceRuns.Inc()

	r := gin.New()
	r.GET("/metrics", Handler())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{"expense_gate_decisions_total", "recurrence_runs_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %s in exposition", name)
		}
	}
}
