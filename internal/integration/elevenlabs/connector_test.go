package elevenlabs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voxline/voiceqa-backend/internal/config"
	"github.com/voxline/voiceqa-backend/internal/entity"
	pkghttp "github.com/voxline/voiceqa-backend/pkg/http"
)

func TestSynthesize_RequestShape(t *testing.T) {
	mp3 := []byte{0xFF, 0xFB, 0x90, 0x00}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-abc" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("xi-api-key"); got != "sk-test" {
			t.Errorf("xi-api-key = %q", got)
		}

		var req struct {
			Text          string `json:"text"`
			ModelID       string `json:"model_id"`
			VoiceSettings struct {
				Stability       float64 `json:"stability"`
				SimilarityBoost float64 `json:"similarity_boost"`
			} `json:"voice_settings"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Text != "Hello there" {
			t.Errorf("text = %q", req.Text)
		}
		if req.ModelID != "eleven_multilingual_v2" {
			t.Errorf("model_id = %q", req.ModelID)
		}
		if req.VoiceSettings.Stability != 0.5 || req.VoiceSettings.SimilarityBoost != 0.75 {
			t.Errorf("voice settings = %+v", req.VoiceSettings)
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(mp3)
	}))
	defer srv.Close()

	cfg := config.ElevenLabsConfig{
		APIKey:  "sk-test",
		VoiceID: "voice-abc",
		ModelID: "eleven_multilingual_v2",
	}
	cfg.Url = srv.URL

	c := NewConnector(cfg)

	audio, err := c.Synthesize(context.Background(), "Hello there", entity.DefaultVoiceStyle())
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if audio.Provider != "elevenlabs" {
		t.Errorf("provider = %q, want elevenlabs", audio.Provider)
	}
	if audio.MIMEType != "audio/mpeg" {
		t.Errorf("mime = %q, want audio/mpeg", audio.MIMEType)
	}
}

func TestSynthesize_APIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cfg := config.ElevenLabsConfig{APIKey: "sk-test", VoiceID: "voice-abc"}
	cfg.Url = srv.URL

	c := NewConnector(cfg)

	_, err := c.Synthesize(context.Background(), "Hello", entity.DefaultVoiceStyle())
	if err == nil {
		t.Fatal("expected error")
	}

	var httpErr *pkghttp.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error = %T, want *pkghttp.HTTPError in chain", err)
	}
	if httpErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", httpErr.StatusCode)
	}
}
