package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCanonicalPath(t *testing.T) {
	tests := map[string]string{
		"":                              "/",
		"/":                             "/",
		"/metrics":                      "/metrics",
		"/api/invoices":                 "/api/invoices",
		"/api/invoices/123field":        "/api/invoices/:id",
		"/api/invoices/123field/factor": "/api/invoices/:id/factor",
		"/api/factors/aleo1xyz/status/": "/api/factors/:id/status",
		"/ws/transactions":              "/ws",
	}
	for in, want := range tests {
		if got := canonicalPath(in); got != want {
			t.Errorf("canonicalPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInstrumentHandler(t *testing.T) {
	h := InstrumentHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/invoices/:id", "418"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/invoices/1field", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", rec.Code)
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/invoices/:id", "418"))
	if after != before+1 {
		t.Errorf("requests_total = %v, want %v", after, before+1)
	}
}

func TestLifecycleRecorder(t *testing.T) {
	var l Lifecycle
	before := testutil.ToFloat64(txTransitions.WithLabelValues("accepted"))
	polls := testutil.ToFloat64(txPolls)

	l.Transition("accepted")
	l.Poll()
	l.Finished("accepted", 2*time.Second)

	if got := testutil.ToFloat64(txTransitions.WithLabelValues("accepted")); got != before+1 {
		t.Errorf("transitions_total = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(txPolls); got != polls+1 {
		t.Errorf("polls_total = %v, want %v", got, polls+1)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordSync("credits.aleo", 10*time.Millisecond, true)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, name := range []string{"zkfactor_tx_polls_total", "zkfactor_sync_runs_total"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
