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

const artPollInterval = 2 * time.Second

// Fixed friendly lines for the image feature.
const (
	ArtUnconfiguredMsg = "The painter is resting... (image backend not configured)"
	ArtFailedMsg       = "The painter is resting at this moment... Try again later."
)

// Replicate is the image generation adapter (FLUX).
type Replicate struct {
	token           string
	apiBase         string
	model           string
	aspectRatio     string
	safetyTolerance int
	client          *http.Client
	logger          *slog.Logger
}

type ReplicateConfig struct {
	Token           string
	APIBase         string
	Model           string
	AspectRatio     string
	SafetyTolerance int
	Logger          *slog.Logger
}

func NewReplicate(cfg ReplicateConfig) *Replicate {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.replicate.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "black-forest-labs/flux-1.1-pro"
	}
	if cfg.AspectRatio == "" {
		cfg.AspectRatio = "16:9"
	}
	if cfg.SafetyTolerance == 0 {
		cfg.SafetyTolerance = 5
	}
	return &Replicate{
		token:           cfg.Token,
		apiBase:         cfg.APIBase,
		model:           cfg.Model,
		aspectRatio:     cfg.AspectRatio,
		safetyTolerance: cfg.SafetyTolerance,
		client:          &http.Client{},
		logger:          cfg.Logger,
	}
}

// Configured reports whether an API token is present.
func (r *Replicate) Configured() bool { return r.token != "" }

type predictionRequest struct {
	Input predictionInput `json:"input"`
}

type predictionInput struct {
	Prompt          string `json:"prompt"`
	AspectRatio     string `json:"aspect_ratio"`
	SafetyTolerance int    `json:"safety_tolerance"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// Generate produces an image for the prompt and returns its URL.
func (r *Replicate) Generate(ctx context.Context, prompt string) domain.Result[string] {
	if !r.Configured() {
		return domain.Unavailable[string]()
	}

	pred, err := r.createPrediction(ctx, prompt)
	if err == nil {
		pred, err = r.waitForPrediction(ctx, pred)
	}
	if err != nil {
		r.logger.Error("art: generation failed", "model", r.model, "err", err)
		return domain.Failed[string](ArtFailedMsg)
	}

	url, err := normalizeOutput(pred.Output)
	if err != nil {
		r.logger.Error("art: cannot normalize output", "err", err)
		return domain.Failed[string](ArtFailedMsg)
	}
	return domain.Ok(url)
}

func (r *Replicate) createPrediction(ctx context.Context, prompt string) (*prediction, error) {
	body, err := json.Marshal(predictionRequest{Input: predictionInput{
		Prompt:          prompt,
		AspectRatio:     r.aspectRatio,
		SafetyTolerance: r.safetyTolerance,
	}})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s/predictions", r.apiBase, r.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.token)
	req.Header.Set("Content-Type", "application/json")
	// Ask the backend to hold the connection until the prediction settles.
	req.Header.Set("Prefer", "wait")

	return r.doPrediction(req)
}

// waitForPrediction polls the prediction until it reaches a terminal status.
// The hosted backend has no caller-imposed deadline; cancellation comes from ctx.
func (r *Replicate) waitForPrediction(ctx context.Context, pred *prediction) (*prediction, error) {
	for {
		switch pred.Status {
		case "succeeded":
			return pred, nil
		case "failed", "canceled":
			return nil, fmt.Errorf("prediction %s: %s", pred.Status, pred.Error)
		}
		if pred.URLs.Get == "" {
			return nil, fmt.Errorf("prediction pending with no poll URL")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(artPollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pred.URLs.Get, nil)
		if err != nil {
			return nil, fmt.Errorf("new poll request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+r.token)

		pred, err = r.doPrediction(req)
		if err != nil {
			return nil, err
		}
	}
}

func (r *Replicate) doPrediction(req *http.Request) (*prediction, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replicate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("replicate %d: %s", resp.StatusCode, string(respBody))
	}

	var pred prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &pred, nil
}

// outputShape tags the heterogeneous shapes the backend returns.
type outputShape int

const (
	shapeEmpty outputShape = iota
	shapeString
	shapeList
	shapeObject
	shapeUnknown
)

// normalizeOutput maps the backend's output field into a single URL string.
// Known shapes: a bare string, a list whose first element is a string, or an
// object exposing a "url" field.
func normalizeOutput(raw json.RawMessage) (string, error) {
	shape, url := classifyOutput(raw)
	switch shape {
	case shapeString, shapeList, shapeObject:
		if url == "" {
			return "", fmt.Errorf("output shape carried no URL")
		}
		return url, nil
	case shapeEmpty:
		return "", fmt.Errorf("empty output")
	default:
		return "", fmt.Errorf("unrecognized output shape: %s", string(raw))
	}
}

func classifyOutput(raw json.RawMessage) (outputShape, string) {
	if len(raw) == 0 || string(raw) == "null" {
		return shapeEmpty, ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return shapeString, s
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return shapeEmpty, ""
		}
		var first string
		if err := json.Unmarshal(list[0], &first); err == nil {
			return shapeList, first
		}
		return shapeUnknown, ""
	}

	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.URL != "" {
		return shapeObject, obj.URL
	}

	return shapeUnknown, ""
}
