package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"vivekabot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertFlow_AndMatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.InsertFlow(ctx, domain.FlowRecord{
		Type:        domain.FlowOffer,
		Description: "guitar lessons",
		AuthorID:    "alice",
		AuthorName:  "Alice",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	// A demand matches open offers.
	matches, err := s.MatchOpposing(ctx, domain.FlowDemand, "bob", 3)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Description != "guitar lessons" || matches[0].AuthorName != "Alice" {
		t.Fatalf("unexpected match: %+v", matches[0])
	}
}

func TestMatchOpposing_ExcludesAuthor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.InsertFlow(ctx, domain.FlowRecord{
		Type: domain.FlowOffer, Description: "own offer", AuthorID: "alice",
	})

	matches, err := s.MatchOpposing(ctx, domain.FlowDemand, "alice", 3)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("author's own flows should never match, got %d", len(matches))
	}
}

func TestMatchOpposing_SameTypeNeverMatches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.InsertFlow(ctx, domain.FlowRecord{
		Type: domain.FlowDemand, Description: "also seeking", AuthorID: "alice",
	})

	matches, err := s.MatchOpposing(ctx, domain.FlowDemand, "bob", 3)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("a demand should only match offers, got %d", len(matches))
	}
}

func TestMatchOpposing_LimitAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		s.InsertFlow(ctx, domain.FlowRecord{
			Type:        domain.FlowOffer,
			Description: fmt.Sprintf("offer %d", i),
			AuthorID:    "alice",
		})
	}

	matches, err := s.MatchOpposing(ctx, domain.FlowDemand, "bob", 3)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	// Newest first.
	if matches[0].Description != "offer 5" || matches[2].Description != "offer 3" {
		t.Fatalf("expected newest-first order, got %q, %q, %q",
			matches[0].Description, matches[1].Description, matches[2].Description)
	}
}

func TestMatchOpposing_IgnoresClosedFlows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.InsertFlow(ctx, domain.FlowRecord{
		Type: domain.FlowOffer, Description: "done deal", Status: "CLOSED", AuthorID: "alice",
	})

	matches, err := s.MatchOpposing(ctx, domain.FlowDemand, "bob", 3)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("closed flows should never match, got %d", len(matches))
	}
}

func TestInsertFlow_DefaultsStatusOpen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.InsertFlow(ctx, domain.FlowRecord{
		Type: domain.FlowOffer, Description: "x", AuthorID: "alice",
	})

	matches, err := s.MatchOpposing(ctx, domain.FlowDemand, "bob", 1)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) != 1 || matches[0].Status != domain.FlowOpen {
		t.Fatalf("inserted flow should default to OPEN, got %+v", matches)
	}
}

func TestAppendMemory_TruncatesLongContent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	long := strings.Repeat("é", 3000)
	err := s.AppendMemory(ctx, domain.MemoryRecord{
		UserID: "alice", Role: "assistant", Content: long,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	var content string
	if err := s.db.QueryRow(`SELECT content FROM memories WHERE user_id = 'alice'`).Scan(&content); err != nil {
		t.Fatalf("query: %v", err)
	}
	if got := len([]rune(content)); got != 2000 {
		t.Fatalf("expected 2000 runes, got %d", got)
	}
}

func TestAppendMemory_ShortContentUnchanged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AppendMemory(ctx, domain.MemoryRecord{
		UserID: "bob", Role: "user", Content: "hello",
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	var content string
	if err := s.db.QueryRow(`SELECT content FROM memories WHERE user_id = 'bob'`).Scan(&content); err != nil {
		t.Fatalf("query: %v", err)
	}
	if content != "hello" {
		t.Fatalf("expected 'hello', got %q", content)
	}
}
