package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/webitel/eee-runtime/internal/effect"
	"github.com/webitel/eee-runtime/internal/supervisor"
	"github.com/webitel/eee-runtime/internal/trigger"
)

func newTestServer(t *testing.T) (*Server, *supervisor.Supervisor, context.Context) {
	t.Helper()
	shut := trigger.New()
	sv, err := supervisor.New(shut.Handle(), 4, nil)
	if err != nil {
		t.Fatalf("new supervisor: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go sv.Run(ctx)

	s := NewServer(sv, ":0", 16, nil)
	return s, sv, ctx
}

// S8: admin diagnostics reflect the same counters the core itself
// maintains, read entirely through Supervisor's public surface.
func TestScenarioS8HealthzAndEnvironmentDiagnostics(t *testing.T) {
	s, sv, ctx := newTestServer(t)

	if _, err := sv.CreateEnvironment(ctx, "diag"); err != nil {
		t.Fatalf("create environment: %v", err)
	}
	s.WatchEnvironment("diag")

	if err := sv.SubmitEffect(effect.ASCII("observed"), "diag"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.httpSrv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rr.Code)
	}

	deadline := time.Now().Add(time.Second)
	for {
		rr = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, "/environments/diag", nil)
		s.httpSrv.Handler.ServeHTTP(rr, req)

		var body map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		// the recent-effects sample is recorded by WatchEnvironment's own
		// goroutine after the broadcast, so it may lag the counter briefly.
		if n, ok := body["num_received_effects"].(float64); ok && n == 1 {
			recent, _ := body["recent_effects"].([]any)
			if len(recent) > 0 {
				if len(recent) != 1 || recent[0] != "observed" {
					t.Fatalf("expected recent_effects to contain \"observed\", got %v", recent)
				}
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for diagnostics to reflect the submitted effect, last body: %v", body)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHandleGetEnvironmentUnknownReturns404(t *testing.T) {
	s, _, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/environments/nope", nil)
	s.httpSrv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestHandleGetEntityUnknownReturns404(t *testing.T) {
	s, _, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/entities/nope", nil)
	s.httpSrv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
