package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zcox/messagedb-agent/internal/adapter/httpapi"
	"github.com/zcox/messagedb-agent/internal/adapter/memstore"
	"github.com/zcox/messagedb-agent/internal/engine"
	"github.com/zcox/messagedb-agent/internal/llm/llmtest"
	"github.com/zcox/messagedb-agent/internal/service"
	"github.com/zcox/messagedb-agent/internal/tool"
)

func newTestRouter(t *testing.T, turns ...llmtest.Turn) (chi.Router, *memstore.Store) {
	t.Helper()

	store := memstore.New()
	registry := tool.NewRegistry()
	if err := tool.RegisterBuiltins(registry); err != nil {
		t.Fatal(err)
	}

	eng := engine.New(store, llmtest.NewScripted("test-model", turns...), registry,
		engine.Options{AutoApproveTools: true})

	handlers := &httpapi.Handlers{
		Engine:   eng,
		Sessions: service.NewSessionService(store, "", ""),
	}

	r := chi.NewRouter()
	httpapi.MountRoutes(r, handlers)
	return r, store
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode %s %s response: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec, decoded
}

func TestStartSessionEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, llmtest.Text("Hi!"))

	rec, body := doJSON(t, r, http.MethodPost, "/api/sessions", `{"message": "Hello"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	threadID, _ := body["thread_id"].(string)
	if threadID == "" {
		t.Fatalf("no thread_id in %v", body)
	}

	// Background processing appends the response; poll the events endpoint.
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec, body = doJSON(t, r, http.MethodGet, "/api/sessions/"+threadID+"/events", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("events status = %d", rec.Code)
		}
		events := body["events"].([]any)
		if len(events) >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("processing never completed; events = %d", len(events))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStartSessionRequiresMessage(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, _ := doJSON(t, r, http.MethodPost, "/api/sessions", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAddMessageUnknownThread(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, _ := doJSON(t, r, http.MethodPost, "/api/sessions/nope/messages", `{"message": "hi"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, body := doJSON(t, r, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", rec.Code, body)
	}
}

func TestListEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, llmtest.Text("Hi!"))

	if rec, _ := doJSON(t, r, http.MethodPost, "/api/sessions", `{"message": "Hello"}`); rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d", rec.Code)
	}

	rec, body := doJSON(t, r, http.MethodGet, "/api/sessions?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	sessions := body["sessions"].([]any)
	if len(sessions) != 1 {
		t.Errorf("sessions = %d, want 1", len(sessions))
	}
}
