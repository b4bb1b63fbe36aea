package domain

import (
	"strings"
	"time"
)

// SegmentType distinguishes the parts of an incoming message.
type SegmentType string

const (
	SegmentText    SegmentType = "text"
	SegmentMention SegmentType = "mention"
	SegmentImage   SegmentType = "image"
)

// Segment is one piece of an incoming message. Keyword matching only ever
// runs inside text segments; mentions and images are rendered as opaque
// placeholder tokens in the combined view.
type Segment struct {
	Type     SegmentType
	Text     string // set for text segments
	UserID   string // set for mention segments
	UserName string // set for mention segments
}

// IncomingMessage is a group message as seen by the notification engine.
type IncomingMessage struct {
	Bot         string // receiving bot's own ID
	GroupID     string
	MessageID   string
	SenderID    string
	SenderName  string
	SenderIsBot bool
	Segments    []Segment
	Mentions    []string // mentioned user IDs, in order of appearance
	CreatedAt   time.Time
}

// TextSegments returns the literal text parts of the message.
func (m *IncomingMessage) TextSegments() []string {
	var texts []string
	for _, seg := range m.Segments {
		if seg.Type == SegmentText && seg.Text != "" {
			texts = append(texts, seg.Text)
		}
	}
	return texts
}

// CombinedText renders the whole message as one string, substituting
// placeholder tokens for non-text segments.
func (m *IncomingMessage) CombinedText() string {
	var b strings.Builder
	for _, seg := range m.Segments {
		switch seg.Type {
		case SegmentText:
			b.WriteString(seg.Text)
		case SegmentMention:
			b.WriteString("@" + seg.UserName)
		case SegmentImage:
			b.WriteString("[image]")
		}
	}
	return b.String()
}
