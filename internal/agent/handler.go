package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"vivekabot/internal/domain"
	"vivekabot/internal/intent"
	"vivekabot/internal/ledger"
	"vivekabot/internal/metrics"
	"vivekabot/internal/provider"
)

// Synthesized prompts for media-only messages.
const (
	visionPrompt = "What do you see in this image?"
	listenPrompt = "Listen to this audio, transcribe it and reply with love."
)

const photoCaption = "Vision materialized by Viveka."

// Artist is the image generation adapter.
type Artist interface {
	Configured() bool
	Generate(ctx context.Context, prompt string) domain.Result[string]
}

// Speaker is the text-to-speech adapter.
type Speaker interface {
	Configured() bool
	Synthesize(ctx context.Context, text string) domain.Result[[]byte]
}

// Searcher provides best-effort web context; it never fails the caller.
type Searcher interface {
	Search(ctx context.Context, query string) string
}

// ImageFetcher downloads generated image bytes.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// EconomyLedger records offers/demands and returns a match annotation.
type EconomyLedger interface {
	Available() bool
	RecordAndMatch(ctx context.Context, user ledger.User, text string, intents intent.Set) string
}

// Services bundles every backend the handler needs. Constructed once at
// startup and passed by reference; there is no other process-wide state.
type Services struct {
	Brain      Brain
	Artist     Artist
	Speaker    Speaker
	Searcher   Searcher // nil when search is disabled
	Fetcher    ImageFetcher
	Ledger     EconomyLedger
	Store      domain.FlowStore // nil when persistence is unconfigured
	Classifier *intent.Classifier
	Bus        domain.MessageBus
	Logger     *slog.Logger
}

// Handler runs the fixed per-message pipeline: ingest, presence, economy,
// art-or-search, chat, memory, delivery, voice.
type Handler struct {
	composer *Composer
	svc      Services
	logger   *slog.Logger
}

func NewHandler(composer *Composer, svc Services) *Handler {
	return &Handler{composer: composer, svc: svc, logger: svc.Logger}
}

// Run consumes the bus until the context is cancelled or the bus closes.
// Each message is handled on its own goroutine; the system imposes no
// ordering across users or across one user's consecutive messages.
func (h *Handler) Run(ctx context.Context) {
	inbound := h.svc.Bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			go h.Handle(ctx, msg)
		}
	}
}

// Handle processes one inbound message start to finish.
func (h *Handler) Handle(ctx context.Context, msg domain.InboundMessage) {
	metrics.MessagesTotal.Inc()

	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		h.handleCommand(msg, text)
		return
	}

	// Ingest: at most one media attachment; photo wins over voice.
	voiceReply := false
	var media *domain.Blob
	switch {
	case len(msg.Photo) > 0:
		media = &domain.Blob{MIME: "image/jpeg", Data: msg.Photo}
		if text == "" {
			text = visionPrompt
		}
		h.logger.Info("photo received", "bytes", len(msg.Photo), "sender", msg.SenderID)
	case len(msg.Voice) > 0:
		media = &domain.Blob{MIME: "audio/ogg", Data: msg.Voice}
		text = listenPrompt
		voiceReply = true
		h.logger.Info("voice note received", "bytes", len(msg.Voice), "sender", msg.SenderID)
	}

	h.sendAction(msg, "typing")

	intents := h.svc.Classifier.Classify(text)

	// Economy side-effect runs unconditionally; its annotation is carried
	// as context whatever branch follows.
	annotation := h.svc.Ledger.RecordAndMatch(ctx,
		ledger.User{ID: msg.SenderID, Name: msg.SenderName}, text, intents)
	if annotation != "" {
		metrics.FlowsRecordedTotal.Inc()
	}

	// Art branch: bypasses the chat stage entirely.
	if intents.Has(intent.Art) {
		h.handleArt(ctx, msg, text)
		return
	}

	webContext := ""
	if intents.Has(intent.Search) && h.svc.Searcher != nil {
		metrics.SearchRequestsTotal.Inc()
		webContext = h.svc.Searcher.Search(ctx, text)
	}

	fullContext := strings.TrimSpace(annotation + "\n" + webContext)

	reply := h.composer.Answer(ctx, text, fullContext, media)

	// Fire-and-forget memory: one record per turn side.
	h.appendMemory(ctx, msg.SenderID, "user", text)
	h.appendMemory(ctx, msg.SenderID, "assistant", reply)

	h.sendText(msg, reply)

	// Voice branch: inbound voice note, or the voice trigger in user text.
	if voiceReply || intents.Has(intent.Voice) {
		h.handleVoice(ctx, msg, reply)
	}
}

func (h *Handler) handleArt(ctx context.Context, msg domain.InboundMessage, text string) {
	h.sendAction(msg, "upload_photo")
	metrics.ArtRequestsTotal.Inc()

	res := h.svc.Artist.Generate(ctx, text)
	switch res.Status {
	case domain.StatusUnavailable:
		h.sendText(msg, provider.ArtUnconfiguredMsg)
		return
	case domain.StatusFailed:
		h.sendText(msg, res.Message)
		return
	}

	data, err := h.svc.Fetcher.Fetch(ctx, res.Value)
	if err != nil {
		h.logger.Error("image fetch failed, sending URL instead", "url", res.Value, "err", err)
		h.sendText(msg, fmt.Sprintf("*Image generated*\n\n[View image](%s)", res.Value))
		return
	}

	h.svc.Bus.SendOutbound(domain.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Kind:    domain.KindPhoto,
		Caption: photoCaption,
		Payload: data,
	})
	h.appendMemory(ctx, msg.SenderID, "assistant", "[IMG] "+text)
}

func (h *Handler) handleVoice(ctx context.Context, msg domain.InboundMessage, reply string) {
	metrics.SpeechRequestsTotal.Inc()

	res := h.svc.Speaker.Synthesize(ctx, reply)
	switch res.Status {
	case domain.StatusOK:
		h.svc.Bus.SendOutbound(domain.OutboundMessage{
			Channel: msg.Channel,
			ChatID:  msg.ChatID,
			Kind:    domain.KindVoice,
			Payload: res.Value,
		})
	case domain.StatusFailed:
		h.sendText(msg, res.Message)
	}
	// Unavailable: the feature is unconfigured, stay silent.
}

func (h *Handler) appendMemory(ctx context.Context, userID, role, content string) {
	if h.svc.Store == nil {
		return
	}
	err := h.svc.Store.AppendMemory(ctx, domain.MemoryRecord{
		UserID:  userID,
		Role:    role,
		Content: content,
	})
	if err != nil {
		h.logger.Error("memory append failed", "user", userID, "role", role, "err", err)
	}
}

func (h *Handler) sendText(msg domain.InboundMessage, text string) {
	h.svc.Bus.SendOutbound(domain.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Kind:    domain.KindText,
		Content: text,
	})
}

func (h *Handler) sendAction(msg domain.InboundMessage, action string) {
	h.svc.Bus.SendOutbound(domain.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Kind:    domain.KindAction,
		Content: action,
	})
}
