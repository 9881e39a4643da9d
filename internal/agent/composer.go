package agent

import (
	"context"
	"time"

	"vivekabot/internal/domain"
	"vivekabot/internal/metrics"
)

// Fixed apologies for the chat stage. Both are terminal for the turn; the
// distinction is purely cosmetic (unconfigured brain vs failed call).
const (
	BrainRestingMsg     = "My brain is resting... Try again in a few moments."
	EtherDisturbanceMsg = "I feel a disturbance in the ether. Say it again, love."
)

// Brain is the chat/reasoning adapter the composer delegates to.
type Brain interface {
	Ready() bool
	Generate(ctx context.Context, segments []domain.Segment) domain.Result[string]
}

// Composer assembles the chat prompt and normalizes the brain's outcome
// into a reply string.
type Composer struct {
	brain        Brain
	systemPrompt string
}

func NewComposer(brain Brain, systemPrompt string) *Composer {
	return &Composer{brain: brain, systemPrompt: systemPrompt}
}

// Answer builds the ordered prompt (persona preamble, optional context
// block, user text, optional media blob) and consults the brain. There is
// no retry: a failed turn ends with one of the fixed apologies.
func (c *Composer) Answer(ctx context.Context, userText, extraContext string, media *domain.Blob) string {
	segments := []domain.Segment{domain.TextSegment(c.systemPrompt)}

	if extraContext != "" {
		segments = append(segments, domain.TextSegment("\nCONTEXT:\n"+extraContext))
	}

	segments = append(segments, domain.TextSegment("\nUSER SAYS: "+userText))

	if media != nil {
		segments = append(segments, domain.Segment{Blob: media})
	}

	start := time.Now()
	res := c.brain.Generate(ctx, segments)
	metrics.BrainRequestsTotal.Inc()
	metrics.BrainLatency.Observe(time.Since(start).Seconds())

	switch res.Status {
	case domain.StatusOK:
		return res.Value
	case domain.StatusUnavailable:
		return BrainRestingMsg
	default:
		return EtherDisturbanceMsg
	}
}
