package bus

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"vivekabot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishSubscribe(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	b.Publish(domain.InboundMessage{Channel: "telegram", Text: "hello"})

	select {
	case msg := <-b.Subscribe():
		if msg.Text != "hello" {
			t.Fatalf("got %q", msg.Text)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestSendOutbound_RoutesByChannel(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	got := make(chan domain.OutboundMessage, 1)
	b.OnOutbound("telegram", func(msg domain.OutboundMessage) {
		got <- msg
	})

	b.SendOutbound(domain.OutboundMessage{Channel: "telegram", Kind: domain.KindText, Content: "reply"})

	select {
	case msg := <-got:
		if msg.Content != "reply" {
			t.Fatalf("got %q", msg.Content)
		}
	case <-time.After(time.Second):
		t.Fatal("handler not invoked")
	}
}

func TestSendOutbound_UnknownChannelIsDropped(t *testing.T) {
	b := New(10, testLogger())
	defer b.Close()

	// No handler registered: must not panic.
	b.SendOutbound(domain.OutboundMessage{Channel: "matrix", Content: "x"})
}

func TestPublish_AfterCloseIsNoOp(t *testing.T) {
	b := New(10, testLogger())
	b.Close()

	// Must not panic on a closed bus.
	b.Publish(domain.InboundMessage{Channel: "telegram", Text: "late"})
}

func TestClose_Idempotent(t *testing.T) {
	b := New(10, testLogger())
	b.Close()
	b.Close()
}
