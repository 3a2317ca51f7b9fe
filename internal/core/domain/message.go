package domain

import "time"

// Media kinds reported by the source collaborator.
const (
	MediaNone     = ""
	MediaPhoto    = "photo"
	MediaDocument = "document"
	MediaWebPage  = "webpage"
	MediaOther    = "other"
)

// Message is a source channel message as seen by the relay.
type Message struct {
	ID        int64
	ChannelID int64
	Text      string
	Date      time.Time
	MediaKind string
	// Media is the platform media payload, opaque to the relay.
	Media any
	// Raw is the platform message, kept for native forwarding.
	Raw any
}

// HasMedia reports whether the message carries an attachment worth re-sending.
// Web page previews are not attachments.
func (m Message) HasMedia() bool {
	return m.Media != nil && m.MediaKind != MediaNone && m.MediaKind != MediaWebPage
}

// Delivery is a request to the delivery collaborator.
type Delivery struct {
	Message Message
	// Text is the body or caption to send. Ignored when Cleaned is false.
	Text string
	// Cleaned selects a fresh send of Text instead of a native forward.
	Cleaned bool
}

// Evidence describes the cached message a duplicate was matched against.
type Evidence struct {
	Similarity  float64
	MatchedID   int64
	MatchedAt   time.Time
	MatchedText string
	Key         string
}

// Verdict is the outcome of duplicate detection for one message.
type Verdict struct {
	Duplicate bool
	Evidence  Evidence
}

// ForwardRecord is kept for every successfully relayed message.
type ForwardRecord struct {
	ID           int64
	Timestamp    time.Time
	ForwardedAt  time.Time
	Delay        time.Duration
	OriginalText string
	CleanedText  string
	Cleaned      bool
	CharsRemoved int
}

// Outcome classifies what the relay did with a message.
type Outcome string

const (
	OutcomeForwarded   Outcome = "forwarded"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeFiltered    Outcome = "filtered"
	OutcomePromotional Outcome = "promotional"
	OutcomeFailed      Outcome = "failed"
)

// Decision is a journal row describing one handled message.
type Decision struct {
	RunID        string
	MessageID    int64
	Outcome      Outcome
	Reason       string
	Similarity   float64
	MatchedID    int64
	Delay        time.Duration
	CharsRemoved int
	DecidedAt    time.Time
}
