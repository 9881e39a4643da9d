package domain

import "time"

// InboundMessage is a single user message delivered by a channel.
// At most one media attachment is carried; when both a photo and a voice
// note somehow arrive together, the photo wins.
type InboundMessage struct {
	Channel    string
	ChatID     string
	SenderID   string
	SenderName string
	Text       string // message text or caption; may be empty for pure media
	Photo      []byte // JPEG bytes, when the message carried a photo
	Voice      []byte // OGG bytes, when the message carried a voice note
	Timestamp  time.Time
}

// OutboundKind selects how a channel should deliver an outbound message.
type OutboundKind string

const (
	KindText   OutboundKind = "text"
	KindPhoto  OutboundKind = "photo"
	KindVoice  OutboundKind = "voice"
	KindAction OutboundKind = "action" // presence signal: Content is "typing" or "upload_photo"
)

type OutboundMessage struct {
	Channel string
	ChatID  string
	Kind    OutboundKind
	Content string // text body, or action name for KindAction
	Caption string // optional caption for KindPhoto
	Payload []byte // media bytes for KindPhoto / KindVoice
}

// Blob is a binary prompt segment for multimodal reasoning.
type Blob struct {
	MIME string
	Data []byte
}

// Segment is one ordered piece of a chat prompt: either text or a blob.
type Segment struct {
	Text string
	Blob *Blob
}

func TextSegment(s string) Segment { return Segment{Text: s} }
func BlobSegment(b Blob) Segment   { return Segment{Blob: &b} }
