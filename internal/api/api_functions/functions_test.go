package api_functions

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/HannahMarsh/onion-circuit/internal/api/structs"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

func newReceiver(t *testing.T, fail bool) (*httptest.Server, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var received []string
	mux := http.NewServeMux()
	mux.HandleFunc("/message", func(w http.ResponseWriter, r *http.Request) {
		HandleReceiveMessage(w, r, func(_ context.Context, payload []byte) error {
			if fail {
				return errors.New("cannot peel")
			}
			mu.Lock()
			defer mu.Unlock()
			received = append(received, string(payload))
			return nil
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), received...)
	}
}

func TestSendMessage(t *testing.T) {
	server, received := newReceiver(t, false)

	for _, compress := range []bool{false, true} {
		if err := SendMessage(context.Background(), server.Client(), server.URL, []byte("0000003007hi"), compress); err != nil {
			t.Fatalf("SendMessage(compress=%v) error: %v", compress, err)
		}
	}

	got := received()
	if len(got) != 2 || got[0] != "0000003007hi" || got[1] != "0000003007hi" {
		t.Fatalf("unexpected messages received: %v", got)
	}
}

func TestSendMessageSurfacesFailures(t *testing.T) {
	server, _ := newReceiver(t, true)
	if err := SendMessage(context.Background(), server.Client(), server.URL, []byte("x"), false); err == nil {
		t.Fatalf("expected an error for a 500 response")
	}

	server.Close()
	if err := SendMessage(context.Background(), server.Client(), server.URL, []byte("x"), false); err == nil {
		t.Fatalf("expected an error for an unreachable receiver")
	}
}

func TestHandleReceiveMessageRejectsBadBodies(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		HandleReceiveMessage(w, r, func(context.Context, []byte) error { return nil })
	}

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/message", strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/message", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/message", strings.NewReader("not gzip"))
	req.Header.Set("Content-Encoding", "gzip")
	handler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleReceiveMessageRejectsOversizedBodies(t *testing.T) {
	saved := MaxMessageBytes
	MaxMessageBytes = 1024
	defer func() { MaxMessageBytes = saved }()

	called := false
	handler := func(w http.ResponseWriter, r *http.Request) {
		HandleReceiveMessage(w, r, func(context.Context, []byte) error {
			called = true
			return nil
		})
	}

	big, _ := json.Marshal(structs.MessageApi{Message: strings.Repeat("a", 4096)})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/message", bytes.NewReader(big)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for a raw body, got %d", rec.Code)
	}

	// Compresses well below the limit but inflates past it.
	compressed := &bytes.Buffer{}
	zw := gzip.NewWriter(compressed)
	_, _ = zw.Write(big)
	_ = zw.Close()
	if int64(compressed.Len()) >= MaxMessageBytes {
		t.Fatalf("compressed body should fit the limit, got %d bytes", compressed.Len())
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/message", compressed)
	req.Header.Set("Content-Encoding", "gzip")
	handler(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for an inflated body, got %d", rec.Code)
	}
	if called {
		t.Fatalf("oversized messages must not reach the receiver")
	}

	small, _ := json.Marshal(structs.MessageApi{Message: "ok"})
	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/message", bytes.NewReader(small)))
	if rec.Code != http.StatusOK || !called {
		t.Fatalf("expected a small message to pass, got %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	limited := RateLimit(rate.NewLimiter(0, 1), HandleStatus)

	rec := httptest.NewRecorder()
	limited(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "live" {
		t.Fatalf("expected first request to pass, got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	limited(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestWriteResultAndGetJSON(t *testing.T) {
	destination := 4002
	mux := http.NewServeMux()
	mux.HandleFunc("/set", func(w http.ResponseWriter, r *http.Request) { WriteResult(w, &destination) })
	mux.HandleFunc("/unset", func(w http.ResponseWriter, r *http.Request) { WriteResult[int](w, nil) })
	server := httptest.NewServer(mux)
	defer server.Close()

	var set structs.ResultApi[int]
	if err := GetJSON(context.Background(), server.Client(), server.URL+"/set", &set); err != nil {
		t.Fatalf("GetJSON() error: %v", err)
	}
	if set.Result == nil || *set.Result != 4002 {
		t.Fatalf("unexpected result %+v", set)
	}

	var unset structs.ResultApi[int]
	if err := GetJSON(context.Background(), server.Client(), server.URL+"/unset", &unset); err != nil {
		t.Fatalf("GetJSON() error: %v", err)
	}
	if unset.Result != nil {
		t.Fatalf("expected null result, got %d", *unset.Result)
	}

	if err := GetJSON(context.Background(), server.Client(), server.URL+"/missing", &unset); err == nil {
		t.Fatalf("expected error for 404")
	}
}
