package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"vivekabot/internal/domain"
)

// --- normalizeOutput ---

func TestNormalizeOutput_String(t *testing.T) {
	url, err := normalizeOutput(json.RawMessage(`"https://img.example/a.jpg"`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://img.example/a.jpg" {
		t.Fatalf("got %q", url)
	}
}

func TestNormalizeOutput_ListTakesFirst(t *testing.T) {
	url, err := normalizeOutput(json.RawMessage(`["https://img.example/1.jpg","https://img.example/2.jpg"]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://img.example/1.jpg" {
		t.Fatalf("got %q", url)
	}
}

func TestNormalizeOutput_ObjectURLField(t *testing.T) {
	url, err := normalizeOutput(json.RawMessage(`{"url":"https://img.example/o.jpg","seed":42}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://img.example/o.jpg" {
		t.Fatalf("got %q", url)
	}
}

func TestNormalizeOutput_Empty(t *testing.T) {
	for _, raw := range []string{``, `null`, `[]`} {
		if _, err := normalizeOutput(json.RawMessage(raw)); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestNormalizeOutput_UnknownShape(t *testing.T) {
	for _, raw := range []string{`42`, `[1,2,3]`, `{"seed":42}`} {
		if _, err := normalizeOutput(json.RawMessage(raw)); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

// --- Generate ---

func TestReplicate_UnconfiguredIsUnavailable(t *testing.T) {
	r := NewReplicate(ReplicateConfig{Logger: testLogger()})
	res := r.Generate(context.Background(), "a temple")
	if res.Status != domain.StatusUnavailable {
		t.Fatalf("expected Unavailable, got %v", res.Status)
	}
}

func TestReplicate_Generate_ImmediateSuccess(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Prefer") != "wait" {
			t.Error("expected Prefer: wait header")
		}
		gotBody, _ = io.ReadAll(r.Body)
		fmt.Fprint(w, `{"id":"p1","status":"succeeded","output":["https://img.example/x.jpg"]}`)
	}))
	defer srv.Close()

	r := NewReplicate(ReplicateConfig{Token: "tok", APIBase: srv.URL, Logger: testLogger()})
	res := r.Generate(context.Background(), "a temple at dawn")
	if res.Status != domain.StatusOK {
		t.Fatalf("expected OK, got %v (%q)", res.Status, res.Message)
	}
	if res.Value != "https://img.example/x.jpg" {
		t.Fatalf("got %q", res.Value)
	}

	var req predictionRequest
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if req.Input.Prompt != "a temple at dawn" {
		t.Fatalf("prompt not forwarded: %+v", req.Input)
	}
	if req.Input.AspectRatio != "16:9" || req.Input.SafetyTolerance != 5 {
		t.Fatalf("defaults not applied: %+v", req.Input)
	}
}

func TestReplicate_Generate_PollsUntilSucceeded(t *testing.T) {
	calls := 0
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprintf(w, `{"id":"p1","status":"processing","urls":{"get":"%s/poll"}}`, srv.URL)
			return
		}
		fmt.Fprint(w, `{"id":"p1","status":"succeeded","output":"https://img.example/y.jpg"}`)
	}))
	defer srv.Close()

	r := NewReplicate(ReplicateConfig{Token: "tok", APIBase: srv.URL, Logger: testLogger()})
	res := r.Generate(context.Background(), "prompt")
	if res.Status != domain.StatusOK {
		t.Fatalf("expected OK after polling, got %v", res.Status)
	}
	if res.Value != "https://img.example/y.jpg" {
		t.Fatalf("got %q", res.Value)
	}
	if calls < 2 {
		t.Fatalf("expected at least one poll, got %d calls", calls)
	}
}

func TestReplicate_Generate_PredictionFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"p1","status":"failed","error":"nsfw"}`)
	}))
	defer srv.Close()

	r := NewReplicate(ReplicateConfig{Token: "tok", APIBase: srv.URL, Logger: testLogger()})
	res := r.Generate(context.Background(), "prompt")
	if res.Status != domain.StatusFailed {
		t.Fatalf("expected Failed, got %v", res.Status)
	}
	if res.Message != ArtFailedMsg {
		t.Fatalf("expected the fixed friendly line, got %q", res.Message)
	}
}

func TestReplicate_Generate_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	r := NewReplicate(ReplicateConfig{Token: "tok", APIBase: srv.URL, Logger: testLogger()})
	res := r.Generate(context.Background(), "prompt")
	if res.Status != domain.StatusFailed {
		t.Fatalf("expected Failed, got %v", res.Status)
	}
	if res.Message != ArtFailedMsg {
		t.Fatalf("expected the fixed friendly line, got %q", res.Message)
	}
}
