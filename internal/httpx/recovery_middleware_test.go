package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecoveryMiddleware_WritesJSON500(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler := RequestIDMiddleware(AccessLogMiddleware(logger)(RecoveryMiddleware(logger)(panicky)))

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", w.Code)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Errorf("Expected one panic log entry, got %d", logs.FilterMessage("panic recovered").Len())
	}

	access := logs.FilterMessage("request").All()
	if len(access) != 1 {
		t.Fatalf("Expected one access log entry, got %d", len(access))
	}
	fields := access[0].ContextMap()
	if fields["status"] != int64(http.StatusInternalServerError) {
		t.Errorf("Expected logged status 500, got %v", fields["status"])
	}
	if fields["request_id"] == "" {
		t.Error("Expected request_id in access log")
	}
}

func TestRecoveryMiddleware_KeepsStatusAlreadyWritten(t *testing.T) {
	logger := zap.NewNop()

	handler := AccessLogMiddleware(logger)(RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late")
	})))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusAccepted {
		t.Errorf("Expected 202 to be kept, got %d", w.Code)
	}
}
