package scenario

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/saylrun/internal/httpclient"
	"github.com/Amr-9/saylrun/pkg/models"
)

func newTestEngine(t *testing.T, srv *httptest.Server) *Engine {
	t.Helper()
	host := models.HostConfig{BaseURL: srv.URL, Timeout: 2 * time.Second, VerifySSL: true}
	return New(httpclient.NewClient(host), host)
}

func TestExecute_SingleSuccessfulStep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": 7, "token": "abc"}`))
	}))
	defer srv.Close()

	eng := newTestEngine(t, srv)
	sc := models.Scenario{
		Name: "login",
		Steps: []models.Step{
			{
				Name:   "get-token",
				Method: models.MethodGET,
				Path:   "/login",
				Assertions: []models.Assertion{
					{Field: "status", Operator: models.OpEQ, Value: float64(200)},
				},
				Extract: map[string]string{"token": "token"},
			},
		},
	}

	result := eng.Execute(context.Background(), sc, nil)
	assert.Equal(t, models.OutcomeSuccess, result.Outcome)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Success)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, "abc", result.Variables["token"])
}

func TestExecute_ExtractedVariablesFlowToNextStep(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			w.Write([]byte(`{"token": "tok-123"}`))
		case "/profile":
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte(`{"name": "alice"}`))
		}
	}))
	defer srv.Close()

	eng := newTestEngine(t, srv)
	sc := models.Scenario{
		Name: "chain",
		Steps: []models.Step{
			{Name: "login", Method: models.MethodGET, Path: "/login", Extract: map[string]string{"token": "token"}},
			{Name: "profile", Method: models.MethodGET, Path: "/profile", Headers: map[string]string{"Authorization": "Bearer {{token}}"}},
		},
	}

	result := eng.Execute(context.Background(), sc, nil)
	assert.Equal(t, models.OutcomeSuccess, result.Outcome)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestExecute_FailedAssertionStopsWithoutSkip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	eng := newTestEngine(t, srv)
	sc := models.Scenario{
		Name: "assert-fail",
		Steps: []models.Step{
			{
				Name:   "step1",
				Method: models.MethodGET,
				Path:   "/a",
				Assertions: []models.Assertion{
					{Field: "status", Operator: models.OpEQ, Value: float64(404)},
				},
			},
			{Name: "step2", Method: models.MethodGET, Path: "/b"},
		},
	}

	result := eng.Execute(context.Background(), sc, nil)
	assert.Equal(t, models.OutcomeFailure, result.Outcome)
	assert.Len(t, result.Steps, 1)
}

func TestExecute_SkipOnFailureContinues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	eng := newTestEngine(t, srv)
	sc := models.Scenario{
		Name: "skip",
		Steps: []models.Step{
			{
				Name:          "step1",
				Method:        models.MethodGET,
				Path:          "/a",
				SkipOnFailure: true,
				Assertions:    []models.Assertion{{Field: "status", Operator: models.OpEQ, Value: float64(404)}},
			},
			{Name: "step2", Method: models.MethodGET, Path: "/b"},
		},
	}

	result := eng.Execute(context.Background(), sc, nil)
	assert.Equal(t, models.OutcomeFailure, result.Outcome)
	assert.Len(t, result.Steps, 2)
	assert.Equal(t, models.OutcomeSuccess, result.Steps[1].Outcome)
}

func TestExecute_FailedStepExtractionsDiscarded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token": "leaked-token"}`))
	}))
	defer srv.Close()

	eng := newTestEngine(t, srv)
	sc := models.Scenario{
		Name: "leak-check",
		Steps: []models.Step{
			{
				Name:          "bad-assert",
				Method:        models.MethodGET,
				Path:          "/a",
				SkipOnFailure: true,
				Assertions:    []models.Assertion{{Field: "status", Operator: models.OpEQ, Value: float64(404)}},
				Extract:       map[string]string{"token": "token"},
			},
			{Name: "step2", Method: models.MethodGET, Path: "/b"},
		},
	}

	result := eng.Execute(context.Background(), sc, nil)
	assert.Equal(t, models.OutcomeFailure, result.Steps[0].Outcome)
	assert.Equal(t, "leaked-token", result.Steps[0].ExtractedVars["token"])
	_, present := result.Variables["token"]
	assert.False(t, present, "extraction from a non-success step must not merge into the execution context")
}

func TestExecute_RetriesOnTransportErrorThenSucceeds(t *testing.T) {
	var attempts int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&attempts, 1)
		if n == 1 {
			panic("simulated connection failure")
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	eng := newTestEngine(t, srv)
	sc := models.Scenario{
		Name: "retry",
		Steps: []models.Step{
			{Name: "flaky", Method: models.MethodGET, Path: "/flaky", Retry: 1},
		},
	}

	result := eng.Execute(context.Background(), sc, nil)
	assert.Equal(t, models.OutcomeSuccess, result.Outcome)
	assert.Equal(t, int64(2), atomic.LoadInt64(&attempts))
}

func TestExecute_ExhaustedRetriesReturnsError(t *testing.T) {
	eng := newTestEngine(t, httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))
	sc := models.Scenario{
		Name: "dead",
		Steps: []models.Step{
			{Name: "unreachable", Method: models.MethodGET, Path: "/x", Retry: 0},
		},
	}
	// Point at a closed port to force a transport error with no retries left.
	eng.host.BaseURL = "http://127.0.0.1:1"
	eng.client = httpclient.NewClient(eng.host)

	result := eng.Execute(context.Background(), sc, nil)
	assert.Equal(t, models.OutcomeError, result.Outcome)
	assert.NotEmpty(t, result.Steps[0].ErrorMessage)
}

func TestExecute_ProgressCallbackInvokedPerStep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	eng := newTestEngine(t, srv)
	sc := models.Scenario{
		Name: "progress",
		Steps: []models.Step{
			{Name: "a", Method: models.MethodGET, Path: "/a"},
			{Name: "b", Method: models.MethodGET, Path: "/b"},
		},
	}

	var seen []string
	eng.Execute(context.Background(), sc, func(name string, idx, total int) {
		seen = append(seen, name)
		assert.Equal(t, 2, total)
	})
	assert.Equal(t, []string{"a", "b"}, seen)
}
