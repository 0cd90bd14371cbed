package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDoRequest_JSONRoundTrip(t *testing.T) {
	type echo struct {
		Name string `json:"name"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		if got := r.Header.Get("X-Custom"); got != "yes" {
			t.Errorf("X-Custom = %q, want yes", got)
		}
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	defer srv.Close()

	c := NewConnector(&ConnectorConfig{BaseURL: srv.URL})

	var out echo
	err := c.DoRequest(context.Background(), http.MethodPost, "/echo", echo{Name: "voiceqa"}, &out, WithHeader("X-Custom", "yes"))
	if err != nil {
		t.Fatalf("DoRequest() error = %v", err)
	}
	if out.Name != "voiceqa" {
		t.Errorf("Name = %q, want voiceqa", out.Name)
	}
}

func TestDoRequest_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such session", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewConnector(&ConnectorConfig{BaseURL: srv.URL})

	err := c.DoRequest(context.Background(), http.MethodGet, "/missing", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error = %T, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", httpErr.StatusCode)
	}
}

func TestDoRequest_NetworkError(t *testing.T) {
	// Connect to a closed server to force a dial failure.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewConnector(&ConnectorConfig{BaseURL: url})

	err := c.DoRequest(context.Background(), http.MethodGet, "/", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("error = %T, want *NetworkError", err)
	}
}

func TestDoRawRequest_BinaryBody(t *testing.T) {
	audio := []byte{0x49, 0x44, 0x33, 0x04, 0x00}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/ssml+xml" {
			t.Errorf("Content-Type = %q, want application/ssml+xml", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "<speak>hi</speak>" {
			t.Errorf("body = %q", body)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(audio)
	}))
	defer srv.Close()

	c := NewConnector(&ConnectorConfig{BaseURL: srv.URL})

	got, err := c.DoRawRequest(context.Background(), http.MethodPost, "/tts", "application/ssml+xml", []byte("<speak>hi</speak>"))
	if err != nil {
		t.Fatalf("DoRawRequest() error = %v", err)
	}
	if !bytes.Equal(got, audio) {
		t.Errorf("response = %v, want %v", got, audio)
	}
}

func TestDoRawRequest_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewConnector(&ConnectorConfig{BaseURL: srv.URL})

	_, err := c.DoRawRequest(context.Background(), http.MethodPost, "/tts", "application/json", []byte("{}"))
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error = %T (%v), want *HTTPError", err, err)
	}
	if httpErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", httpErr.StatusCode)
	}
}

func TestDoMultipartRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("session_id"); got != "abc" {
			t.Errorf("session_id = %q, want abc", got)
		}
		file, _, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "RIFFdata" {
			t.Errorf("file content = %q", data)
		}
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer srv.Close()

	c := NewConnector(&ConnectorConfig{BaseURL: srv.URL})

	var out struct {
		Success bool `json:"success"`
	}
	err := c.DoMultipartRequest(context.Background(), http.MethodPost, "/upload", func(w *multipart.Writer) error {
		if err := w.WriteField("session_id", "abc"); err != nil {
			return err
		}
		part, err := w.CreateFormFile("audio", "answer.wav")
		if err != nil {
			return err
		}
		_, err = part.Write([]byte("RIFFdata"))
		return err
	}, &out)
	if err != nil {
		t.Fatalf("DoMultipartRequest() error = %v", err)
	}
	if !out.Success {
		t.Errorf("success = false, want true")
	}
}

func TestWithURL_OverridesBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	// Base URL points nowhere; the override must win.
	c := NewConnector(&ConnectorConfig{BaseURL: "http://unreachable.invalid"})

	var out struct {
		OK bool `json:"ok"`
	}
	err := c.DoRequest(context.Background(), http.MethodGet, "/ignored", nil, &out, WithURL(srv.URL+"/real"))
	if err != nil {
		t.Fatalf("DoRequest() error = %v", err)
	}
	if !out.OK {
		t.Errorf("ok = false, want true")
	}
}

func TestWithAPIKeyAuth_SetsHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("xi-api-key"); got != "secret" {
			t.Errorf("xi-api-key = %q, want secret", got)
		}
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	c := NewConnector(&ConnectorConfig{BaseURL: srv.URL}, WithAPIKeyAuth("xi-api-key", "secret"))

	if err := c.DoRequest(context.Background(), http.MethodGet, "/", nil, nil); err != nil {
		t.Fatalf("DoRequest() error = %v", err)
	}
}
