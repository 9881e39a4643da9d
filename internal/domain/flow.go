package domain

import "time"

// FlowType is the direction of an economy declaration.
type FlowType string

const (
	FlowOffer  FlowType = "OFFER"
	FlowDemand FlowType = "DEMAND"
)

// Opposite returns the flow type that a declaration matches against.
func (t FlowType) Opposite() FlowType {
	if t == FlowOffer {
		return FlowDemand
	}
	return FlowOffer
}

const (
	FlowOpen   = "OPEN"
	FlowClosed = "CLOSED" // persisted but never set by this system
)

// FlowRecord is a persisted offer-or-demand declaration used for
// recency-based matchmaking.
type FlowRecord struct {
	ID          int64
	Type        FlowType
	Description string
	Status      string
	AuthorID    string
	AuthorName  string
	CreatedAt   time.Time
}

// MemoryRecord is one conversational turn, appended after every exchange.
// Records are write-only: nothing in this system reads them back.
type MemoryRecord struct {
	UserID  string
	Role    string // "user" | "assistant"
	Content string
}
