package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"budgetinsights/internal/core"
	"budgetinsights/internal/insights"
	"budgetinsights/internal/log"
	"budgetinsights/internal/services"
	"budgetinsights/internal/storage/memory"
)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	if err := store.UpsertCategory(ctx, core.Category{ID: "dining", UserID: "u1", Name: "Dining", Type: core.Expense}); err != nil {
		t.Fatal(err)
	}
	for _, tx := range []core.Transaction{
		{UserID: "u1", CategoryID: "dining", Amount: core.Money{Cents: 10000}, Type: core.Expense, Date: core.NewDate(2024, 12, 5)},
		{UserID: "u1", CategoryID: "dining", Amount: core.Money{Cents: 15000}, Type: core.Expense, Date: core.NewDate(2025, 1, 5)},
	} {
		if _, err := store.AddTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}

	logger := log.New(log.Config{Output: io.Discard})
	svc := services.NewInsightService(insights.DefaultEngine(), store, services.WithLogger(logger))
	srv := NewServer(":0", svc, logger, opts)
	srv.now = func() time.Time { return time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, r)
	return rr
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s missing middleware headers: %v", path, rr.Header())
		}
	}
}

func TestGenerateListDismiss(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(srv, http.MethodPost, "/users/u1/insights/generate", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("generate status=%d body=%s", rr.Code, rr.Body.String())
	}
	var gen generateView
	if err := json.Unmarshal(rr.Body.Bytes(), &gen); err != nil {
		t.Fatal(err)
	}
	if gen.Month != "2025-01" || gen.Created != 1 || len(gen.Categories) != 1 {
		t.Fatalf("generate = %+v", gen)
	}

	rr = do(srv, http.MethodGet, "/users/u1/insights", "")
	var list struct {
		Insights []struct {
			ID       string        `json:"id"`
			Type     insights.Type `json:"type"`
			Month    string        `json:"month"`
			Metadata struct {
				PercentChange float64 `json:"percent_change"`
			} `json:"metadata"`
		} `json:"insights"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v: %s", err, rr.Body.String())
	}
	if len(list.Insights) != 1 || list.Insights[0].Type != insights.TypeSpendingIncrease || list.Insights[0].Metadata.PercentChange != 50 {
		t.Fatalf("list = %+v", list)
	}
	id := list.Insights[0].ID

	if rr := do(srv, http.MethodPost, "/users/u1/insights/"+id+"/dismiss", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("dismiss status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr := do(srv, http.MethodPost, "/users/u1/insights/nope/dismiss", ""); rr.Code != http.StatusNotFound {
		t.Errorf("dismiss unknown status=%d", rr.Code)
	}

	rr = do(srv, http.MethodGet, "/users/u1/insights", "")
	if !strings.Contains(rr.Body.String(), `"insights":[]`) {
		t.Errorf("dismissed insight still listed: %s", rr.Body.String())
	}
	rr = do(srv, http.MethodGet, "/users/u1/insights?all=true", "")
	if !strings.Contains(rr.Body.String(), `"dismissed":true`) || !strings.Contains(rr.Body.String(), `"dismissed_at"`) {
		t.Errorf("all=true should include the dismissed insight: %s", rr.Body.String())
	}
}

func TestGenerateErrors(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{name: "bad month", target: "/users/u1/insights/generate?month=January", want: http.StatusBadRequest},
		{name: "unknown category", target: "/users/u1/insights/generate?category=travel", want: http.StatusNotFound},
		{name: "single category", target: "/users/u1/insights/generate?category=dining&month=2025-01", want: http.StatusOK},
		{name: "wrong method", target: "/users/u1/insights/generate", want: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := http.MethodPost
			if tt.want == http.StatusMethodNotAllowed {
				method = http.MethodGet
			}
			rr := do(srv, method, tt.target, "")
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestSetBudget(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(srv, http.MethodPut, "/users/u1/categories/dining/budget", `{"amount": "200,00", "month": "2025-01"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"amount":"200.00"`) {
		t.Errorf("body = %s", rr.Body.String())
	}

	// The budget is picked up by the next evaluation.
	rr = do(srv, http.MethodPost, "/users/u1/insights/generate?category=dining", "")
	if !strings.Contains(rr.Body.String(), string(insights.TypePositiveReinforcement)) {
		t.Errorf("positive reinforcement missing after budget: %s", rr.Body.String())
	}

	for _, body := range []string{`{"amount": "-5"}`, `{"amount": "10", "month": "2025-13"}`} {
		if rr := do(srv, http.MethodPut, "/users/u1/categories/dining/budget", body); rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: status=%d, want 422", body, rr.Code)
		}
	}
	if rr := do(srv, http.MethodPut, "/users/u1/categories/dining/budget", `{"amount":`); rr.Code != http.StatusBadRequest {
		t.Errorf("broken body status=%d, want 400", rr.Code)
	}
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	srv := newTestServer(t, Options{RequestsPerMinute: 2})

	for i := 0; i < 2; i++ {
		if rr := do(srv, http.MethodPost, "/users/u1/insights/generate", ""); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := do(srv, http.MethodPost, "/users/u1/insights/generate", "")
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Errorf("status=%d Retry-After=%q, want 429", rr.Code, rr.Header().Get("Retry-After"))
	}
	if rr := do(srv, http.MethodGet, "/users/u1/insights", ""); rr.Code != http.StatusOK {
		t.Errorf("reads should not be limited, got %d", rr.Code)
	}

	traced, limited := srv.Metrics()
	if traced.TotalRequests != 4 || limited.Rejected != 1 {
		t.Errorf("metrics = %+v %+v", traced, limited)
	}
}

func TestSuspiciousRequestRejected(t *testing.T) {
	srv := newTestServer(t, Options{})
	if rr := do(srv, http.MethodGet, "/users/u1/insights?x=../../etc/passwd", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("status=%d, want 400", rr.Code)
	}
}
