package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSearcher(t *testing.T, handler http.HandlerFunc) *DuckDuckGo {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{APIBase: srv.URL, MaxResults: 3, Logger: testLogger()})
}

func TestSearch_AbstractAndAnswer(t *testing.T) {
	d := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "copper price" {
			t.Errorf("query not forwarded, got %q", got)
		}
		fmt.Fprint(w, `{
			"Heading": "Copper",
			"Abstract": "Copper is a chemical element.",
			"Answer": "9500 USD/t",
			"RelatedTopics": []
		}`)
	})

	got := d.Search(context.Background(), "copper price")
	if !strings.HasPrefix(got, "\n=== NETWORK DATA ===\n") {
		t.Fatalf("missing context header: %q", got)
	}
	if !strings.Contains(got, "• Copper: Copper is a chemical element....") {
		t.Fatalf("missing abstract line: %q", got)
	}
	if !strings.Contains(got, "• Answer: 9500 USD/t...") {
		t.Fatalf("missing answer line: %q", got)
	}
}

func TestSearch_CapsAtMaxResults(t *testing.T) {
	d := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"Heading": "H",
			"Abstract": "abstract",
			"Answer": "answer",
			"RelatedTopics": [
				{"Text": "topic one"},
				{"Text": "topic two"},
				{"Text": "topic three"}
			]
		}`)
	})

	got := d.Search(context.Background(), "q")
	if n := strings.Count(got, "• "); n != 3 {
		t.Fatalf("expected 3 bullets, got %d in %q", n, got)
	}
}

func TestSearch_TruncatesSnippets(t *testing.T) {
	long := strings.Repeat("a", 500)
	d := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"Heading": "X", "Abstract": %q}`, long)
	})

	got := d.Search(context.Background(), "q")
	if strings.Contains(got, long) {
		t.Fatal("snippets should be truncated")
	}
	if !strings.Contains(got, strings.Repeat("a", 200)+"...") {
		t.Fatalf("expected 200-rune snippet with ellipsis: %q", got)
	}
}

func TestSearch_EmptyResponseYieldsNothing(t *testing.T) {
	d := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"RelatedTopics": []}`)
	})
	if got := d.Search(context.Background(), "q"); got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}
}

func TestSearch_BackendErrorYieldsNothing(t *testing.T) {
	d := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	})
	if got := d.Search(context.Background(), "q"); got != "" {
		t.Fatalf("faults must degrade to empty context, got %q", got)
	}
}

func TestSearch_MalformedJSONYieldsNothing(t *testing.T) {
	d := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not json</html>")
	})
	if got := d.Search(context.Background(), "q"); got != "" {
		t.Fatalf("parse faults must degrade to empty context, got %q", got)
	}
}

func TestSearch_UnreachableBackendYieldsNothing(t *testing.T) {
	d := New(Config{APIBase: "http://127.0.0.1:1", MaxResults: 3, Logger: testLogger()})
	if got := d.Search(context.Background(), "q"); got != "" {
		t.Fatalf("network faults must degrade to empty context, got %q", got)
	}
}
