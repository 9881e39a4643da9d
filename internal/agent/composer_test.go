package agent

import (
	"context"
	"strings"
	"testing"

	"vivekabot/internal/domain"
)

// mockBrain records the segments it is handed and returns a canned result.
type mockBrain struct {
	ready    bool
	result   domain.Result[string]
	segments []domain.Segment
}

func (m *mockBrain) Ready() bool { return m.ready }

func (m *mockBrain) Generate(ctx context.Context, segments []domain.Segment) domain.Result[string] {
	m.segments = segments
	return m.result
}

func TestAnswer_OK(t *testing.T) {
	brain := &mockBrain{ready: true, result: domain.Ok("a reply")}
	c := NewComposer(brain, "SYSTEM")

	got := c.Answer(context.Background(), "hi", "", nil)
	if got != "a reply" {
		t.Fatalf("got %q", got)
	}
}

func TestAnswer_SegmentOrder(t *testing.T) {
	brain := &mockBrain{ready: true, result: domain.Ok("ok")}
	c := NewComposer(brain, "SYSTEM")

	blob := &domain.Blob{MIME: "image/jpeg", Data: []byte{1}}
	c.Answer(context.Background(), "what is this", "CTX-BLOCK", blob)

	segs := brain.segments
	if len(segs) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(segs))
	}
	if segs[0].Text != "SYSTEM" {
		t.Fatalf("persona must come first, got %q", segs[0].Text)
	}
	if !strings.Contains(segs[1].Text, "CONTEXT:") || !strings.Contains(segs[1].Text, "CTX-BLOCK") {
		t.Fatalf("context block misplaced: %q", segs[1].Text)
	}
	if !strings.Contains(segs[2].Text, "USER SAYS: what is this") {
		t.Fatalf("user text misplaced: %q", segs[2].Text)
	}
	if segs[3].Blob == nil {
		t.Fatal("media blob must come last")
	}
}

func TestAnswer_EmptyContextOmitsBlock(t *testing.T) {
	brain := &mockBrain{ready: true, result: domain.Ok("ok")}
	c := NewComposer(brain, "SYSTEM")

	c.Answer(context.Background(), "hi", "", nil)

	if len(brain.segments) != 2 {
		t.Fatalf("expected 2 segments without context, got %d", len(brain.segments))
	}
	for _, s := range brain.segments {
		if strings.Contains(s.Text, "CONTEXT:") {
			t.Fatal("empty context must not produce a CONTEXT block")
		}
	}
}

func TestAnswer_UnavailableBrain(t *testing.T) {
	brain := &mockBrain{ready: false, result: domain.Unavailable[string]()}
	c := NewComposer(brain, "SYSTEM")

	got := c.Answer(context.Background(), "hi", "", nil)
	if got != BrainRestingMsg {
		t.Fatalf("expected resting apology, got %q", got)
	}
}

func TestAnswer_FailedBrain(t *testing.T) {
	brain := &mockBrain{ready: true, result: domain.Failed[string]("")}
	c := NewComposer(brain, "SYSTEM")

	got := c.Answer(context.Background(), "hi", "", nil)
	if got != EtherDisturbanceMsg {
		t.Fatalf("expected disturbance apology, got %q", got)
	}
}
