package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"vivekabot/internal/domain"
)

// probeTimeout bounds each startup liveness probe. Regular generation calls
// carry no caller-imposed timeout; the backend enforces its own.
const probeTimeout = 20 * time.Second

// Gemini is the chat/reasoning adapter. A model is elected once at startup
// from a priority list; if none answers the probe the adapter stays
// Unavailable for the process lifetime.
type Gemini struct {
	apiKey  string
	apiBase string
	models  []string
	model   string // elected by SelectModel; empty = unavailable
	client  *http.Client
	logger  *slog.Logger
}

type GeminiConfig struct {
	APIKey  string
	APIBase string
	Models  []string
	Logger  *slog.Logger
}

func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://generativelanguage.googleapis.com/v1beta"
	}
	if len(cfg.Models) == 0 {
		cfg.Models = []string{"gemini-2.5-pro", "gemini-1.5-pro", "gemini-2.0-flash", "gemini-1.5-flash"}
	}
	return &Gemini{
		apiKey:  cfg.APIKey,
		apiBase: cfg.APIBase,
		models:  cfg.Models,
		client:  &http.Client{},
		logger:  cfg.Logger,
	}
}

// Configured reports whether an API key is present.
func (g *Gemini) Configured() bool { return g.apiKey != "" }

// Ready reports whether a model has been elected.
func (g *Gemini) Ready() bool { return g.model != "" }

// Model returns the elected model identifier, or "" when unavailable.
func (g *Gemini) Model() string { return g.model }

// SelectModel probes the priority list with a trivial generation request and
// elects the first model that answers. No per-request retry across models
// happens later: the election holds for the process lifetime.
func (g *Gemini) SelectModel(ctx context.Context) {
	if !g.Configured() {
		g.logger.Warn("brain: API key not configured")
		return
	}

	for _, model := range g.models {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		_, err := g.generate(probeCtx, model, []domain.Segment{domain.TextSegment("Hola")})
		cancel()
		if err != nil {
			g.logger.Warn("brain: model not available", "model", model, "err", err)
			continue
		}
		g.model = model
		g.logger.Info("brain active", "model", model)
		return
	}

	g.logger.Error("brain: no model available")
}

// Generate runs the elected model over the ordered prompt segments.
func (g *Gemini) Generate(ctx context.Context, segments []domain.Segment) domain.Result[string] {
	if !g.Ready() {
		return domain.Unavailable[string]()
	}

	text, err := g.generate(ctx, g.model, segments)
	if err != nil {
		g.logger.Error("brain: generation failed", "model", g.model, "err", err)
		return domain.Failed[string]("")
	}
	return domain.Ok(text)
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) generate(ctx context.Context, model string, segments []domain.Segment) (string, error) {
	parts := make([]geminiPart, 0, len(segments))
	for _, seg := range segments {
		if seg.Blob != nil {
			parts = append(parts, geminiPart{InlineData: &geminiInlineData{
				MIMEType: seg.Blob.MIME,
				Data:     base64.StdEncoding.EncodeToString(seg.Blob.Data),
			}})
			continue
		}
		parts = append(parts, geminiPart{Text: seg.Text})
	}

	body, err := json.Marshal(geminiRequest{Contents: []geminiContent{{Parts: parts}}})
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.apiBase, model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gemini %d: %s", resp.StatusCode, string(respBody))
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}

	var out bytes.Buffer
	for _, p := range gr.Candidates[0].Content.Parts {
		out.WriteString(p.Text)
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("gemini: empty text")
	}
	return out.String(), nil
}
