// Package ledger records offer/demand declarations and matches them against
// recent opposing flows. The whole feature is auxiliary: every persistence
// fault degrades to an empty annotation, never to a user-visible error.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"vivekabot/internal/domain"
	"vivekabot/internal/intent"
	"vivekabot/internal/metrics"
)

const (
	matchLimit     = 3
	descTruncLimit = 60
)

// User identifies the author of a declaration.
type User struct {
	ID   string
	Name string
}

// Ledger is the economy record-and-match component.
type Ledger struct {
	store  domain.FlowStore // nil when persistence is unconfigured
	logger *slog.Logger
}

func New(store domain.FlowStore, logger *slog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// Available reports whether the persistence backend is configured.
func (l *Ledger) Available() bool { return l.store != nil }

// RecordAndMatch persists a flow when text declares an offer or demand and
// returns a context annotation with any opposing matches. Returns "" when no
// economy intent fired or on any persistence fault.
func (l *Ledger) RecordAndMatch(ctx context.Context, user User, text string, intents intent.Set) string {
	if l.store == nil {
		return ""
	}

	var flowType domain.FlowType
	switch {
	case intents.Has(intent.Offer):
		flowType = domain.FlowOffer
	case intents.Has(intent.Demand):
		flowType = domain.FlowDemand
	default:
		return ""
	}

	name := user.Name
	if name == "" {
		name = "Anonymous"
	}

	err := l.store.InsertFlow(ctx, domain.FlowRecord{
		Type:        flowType,
		Description: text,
		Status:      domain.FlowOpen,
		AuthorID:    user.ID,
		AuthorName:  name,
	})
	if err != nil {
		l.logger.Error("economy: insert flow failed", "err", err)
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n[CRUCIBLE] I have recorded your %s in the Economic Heart.",
		strings.ToLower(string(flowType)))

	matches, err := l.store.MatchOpposing(ctx, flowType, user.ID, matchLimit)
	if err != nil {
		l.logger.Error("economy: matchmaking query failed", "err", err)
		return ""
	}

	if len(matches) > 0 {
		metrics.MatchesFoundTotal.Add(int64(len(matches)))
		sb.WriteString("\n\n*RESONANCE DETECTED!* I found compatible souls:\n")
		for _, m := range matches {
			sb.WriteString(formatMatch(m))
		}
	}

	return sb.String()
}

func formatMatch(m domain.FlowRecord) string {
	desc := m.Description
	if runes := []rune(desc); len(runes) > descTruncLimit {
		desc = string(runes[:descTruncLimit])
	}
	name := m.AuthorName
	if name == "" {
		name = "Anonymous"
	}
	return fmt.Sprintf("• _%s..._ (@%s)\n", desc, name)
}
