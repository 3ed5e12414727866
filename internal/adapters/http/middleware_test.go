package httpadapter

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusRecorderTracksStatusAndBytes(t *testing.T) {
	res := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: res, statusCode: http.StatusOK}

	rec.WriteHeader(http.StatusAccepted)
	_, _ = rec.Write([]byte("hello"))

	if rec.statusCode != http.StatusAccepted || rec.bytesWritten != 5 {
		t.Fatalf("unexpected recorder state %d / %d", rec.statusCode, rec.bytesWritten)
	}
	var w http.ResponseWriter = rec
	if _, ok := w.(http.Hijacker); ok {
		t.Fatalf("recorder must not advertise connection hijacking")
	}
	if _, ok := w.(http.Flusher); ok {
		t.Fatalf("recorder must not advertise streaming")
	}
}

func TestAccessLogKeepsRequestID(t *testing.T) {
	handler := requestIDMiddleware(accessLogMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestIDFromContext(r.Context()) != "req-1" {
			t.Errorf("request id not propagated")
		}
		w.WriteHeader(http.StatusNoContent)
	})))
	req := httptest.NewRequest(http.MethodGet, "/v1/lookup", nil)
	req.Header.Set(requestIDHeader, "req-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNoContent || res.Header().Get(requestIDHeader) != "req-1" {
		t.Fatalf("unexpected response %d %q", res.Code, res.Header().Get(requestIDHeader))
	}
}
