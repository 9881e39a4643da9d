package domain

import "context"

// FlowStore persists economy flows and conversation memories.
// All consumers treat calls as best-effort: on fault they log and degrade
// silently rather than surfacing persistence errors to the user.
type FlowStore interface {
	InsertFlow(ctx context.Context, flow FlowRecord) error
	// MatchOpposing returns up to limit OPEN flows of the opposite type to
	// flowType, excluding excludeAuthorID, newest first by creation id.
	MatchOpposing(ctx context.Context, flowType FlowType, excludeAuthorID string, limit int) ([]FlowRecord, error)
	AppendMemory(ctx context.Context, rec MemoryRecord) error
	Close() error
}
