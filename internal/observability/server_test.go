package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestDebugRouterEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewDebugRouter(func() any {
		return map[string]string{"transport": "tcp", "format": "binary"}
	})

	for _, path := range []string{"/health", "/metrics", "/statusz"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, w.Code)
		}
	}
}

func TestStatuszPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewDebugRouter(func() any {
		return map[string]string{"format": "csv"}
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/statusz", nil))

	var got map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("statusz body: %v", err)
	}
	if got["format"] != "csv" {
		t.Fatalf("statusz payload: %v", got)
	}
}

func TestMetricsExposeCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	RecordSend("binary", "new-order")
	RecordNegotiation("tcp", "binary")

	r := NewDebugRouter(nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := w.Body.String()
	if !strings.Contains(body, "orderwire_wire_messages_sent_total") {
		t.Fatal("send counter not exposed")
	}
	if !strings.Contains(body, "orderwire_session_negotiations_total") {
		t.Fatal("negotiation counter not exposed")
	}
}
