package api_functions

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/HannahMarsh/onion-circuit/internal/api/structs"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// SendMessage posts payload as {"message": payload} to <baseURL>/message.
// When compress is set the body is gzipped, which HandleReceiveMessage understands.
func SendMessage(ctx context.Context, client *http.Client, baseURL string, payload []byte, compress bool) error {
	url := fmt.Sprintf("%s/message", baseURL)
	slog.Debug("Sending message...", "to", url, "size", len(payload))

	data, err := json.Marshal(structs.MessageApi{Message: string(payload)})
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	body := &bytes.Buffer{}
	if compress {
		zw := gzip.NewWriter(body)
		if _, err = zw.Write(data); err != nil {
			return errors.Wrap(err, "failed to compress message")
		}
		if err = zw.Close(); err != nil {
			return errors.Wrap(err, "failed to compress message")
		}
	} else {
		body.Write(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if compress {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to send POST request to %s", url)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("failed to send to %s, status code: %d, status: %s", url, resp.StatusCode, resp.Status)
	}

	slog.Debug("✅ Successfully sent message.", "to", url)
	return nil
}

// MaxMessageBytes caps a /message body, before and after gzip decoding.
var MaxMessageBytes int64 = 1 << 20

// HandleReceiveMessage decodes a (possibly gzipped) {"message": ...} body and hands it to receive.
// Bodies larger than MaxMessageBytes are rejected with 413.
func HandleReceiveMessage(w http.ResponseWriter, r *http.Request, receive func(ctx context.Context, payload []byte) error) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := MaxMessageBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var body []byte
	var err error

	if r.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err2 := gzip.NewReader(r.Body)
		if err2 != nil {
			if tooLarge(w, err2) {
				return
			}
			slog.Error("Error creating gzip reader", "err", err2)
			http.Error(w, "Failed to read gzip content", http.StatusBadRequest)
			return
		}
		defer func(gzipReader *gzip.Reader) {
			if err3 := gzipReader.Close(); err3 != nil {
				slog.Error("Error closing gzip reader", "err", err3)
			}
		}(gzipReader)

		if body, err = io.ReadAll(io.LimitReader(gzipReader, limit+1)); err != nil {
			if tooLarge(w, err) {
				return
			}
			slog.Error("Error reading gzip content", "err", err)
			http.Error(w, "Failed to read gzip content", http.StatusBadRequest)
			return
		}
		if int64(len(body)) > limit {
			slog.Warn("Rejected oversized message", "decoded_limit", limit)
			http.Error(w, "message too large", http.StatusRequestEntityTooLarge)
			return
		}
	} else if body, err = io.ReadAll(r.Body); err != nil {
		if tooLarge(w, err) {
			return
		}
		http.Error(w, "unable to read body", http.StatusInternalServerError)
		return
	}

	var m structs.MessageApi
	if err = json.Unmarshal(body, &m); err != nil {
		slog.Error("Error decoding message", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err = receive(r.Context(), []byte(m.Message)); err != nil {
		slog.Error("Error processing message", "err", err)
		WriteJSON(w, http.StatusInternalServerError, structs.ErrorApi{Error: "Failed to process message"})
		return
	}
	WriteText(w, http.StatusOK, "success")
}

func tooLarge(w http.ResponseWriter, err error) bool {
	var maxErr *http.MaxBytesError
	if !errors.As(err, &maxErr) {
		return false
	}
	slog.Warn("Rejected oversized message", "limit", maxErr.Limit)
	http.Error(w, "message too large", http.StatusRequestEntityTooLarge)
	return true
}

// RateLimit rejects requests beyond limiter's budget with 429.
func RateLimit(limiter *rate.Limiter, next http.HandlerFunc) http.HandlerFunc {
	if limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// HandleStatus answers liveness checks.
func HandleStatus(w http.ResponseWriter, _ *http.Request) {
	WriteText(w, http.StatusOK, "live")
}

// WriteResult writes {"result": value}, with null for a nil value.
func WriteResult[T any](w http.ResponseWriter, value *T) {
	WriteJSON(w, http.StatusOK, structs.ResultApi[T]{Result: value})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error writing response", "err", err)
	}
}

func WriteText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("Error writing response", "err", err)
	}
}

// PostJSON posts in as JSON and decodes a 2xx response into out, if out is not nil.
func PostJSON(ctx context.Context, client *http.Client, url string, in any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	return doJSON(client, req, out)
}

// GetJSON fetches url and decodes a 2xx response into out.
func GetJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	return doJSON(client, req, out)
}

func doJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "error making %s request to %s", req.Method, req.URL)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode/100 != 2 {
		return errors.Errorf("%s %s: unexpected status code: %d", req.Method, req.URL, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "error decoding response body")
	}
	return nil
}

func closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		slog.Error("Error closing response body", "err", err)
	}
}
