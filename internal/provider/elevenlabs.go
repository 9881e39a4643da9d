package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"vivekabot/internal/domain"
)

// speechTextLimit caps the synthesized text, in runes.
const speechTextLimit = 900

// SpeechFailedMsg is the fixed friendly line for a configured-but-failing
// voice feature. An unconfigured feature stays silent instead.
const SpeechFailedMsg = "The voice is resting at this moment..."

// ElevenLabs is the text-to-speech adapter.
type ElevenLabs struct {
	apiKey  string
	apiBase string
	voiceID string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

type ElevenLabsConfig struct {
	APIKey  string
	APIBase string
	VoiceID string
	Model   string
	Logger  *slog.Logger
}

func NewElevenLabs(cfg ElevenLabsConfig) *ElevenLabs {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.elevenlabs.io/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "eleven_multilingual_v2"
	}
	return &ElevenLabs{
		apiKey:  cfg.APIKey,
		apiBase: cfg.APIBase,
		voiceID: cfg.VoiceID,
		model:   cfg.Model,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  cfg.Logger,
	}
}

// Configured reports whether both the API key and a voice identity are set.
func (e *ElevenLabs) Configured() bool { return e.apiKey != "" && e.voiceID != "" }

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize converts text to speech audio (MP3 bytes). Text is capped at
// 900 runes to stay within backend limits.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) domain.Result[[]byte] {
	if !e.Configured() {
		return domain.Unavailable[[]byte]()
	}

	if runes := []rune(text); len(runes) > speechTextLimit {
		text = string(runes[:speechTextLimit])
	}

	body, err := json.Marshal(ttsRequest{Text: text, ModelID: e.model})
	if err != nil {
		e.logger.Error("speech: marshal failed", "err", err)
		return domain.Failed[[]byte](SpeechFailedMsg)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", e.apiBase, e.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		e.logger.Error("speech: new request failed", "err", err)
		return domain.Failed[[]byte](SpeechFailedMsg)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Error("speech: request failed", "err", err)
		return domain.Failed[[]byte](SpeechFailedMsg)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		e.logger.Error("speech: API error", "status", resp.StatusCode, "body", string(respBody))
		return domain.Failed[[]byte](SpeechFailedMsg)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		e.logger.Error("speech: read response failed", "err", err)
		return domain.Failed[[]byte](SpeechFailedMsg)
	}
	return domain.Ok(audio)
}
