package memory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one persisted turn. It is never modified after being appended.
type Message struct {
	Role      Role    `json:"role" jsonschema:"enum=user,enum=assistant"`
	Content   string  `json:"content"`
	Timestamp Instant `json:"timestamp"`
}

// Conversation is an ordered run of messages. Ended is nil while the conversation is active.
type Conversation struct {
	ID       string    `json:"id" jsonschema_description:"Short token, unique within the record."`
	Started  Instant   `json:"started"`
	Ended    *Instant  `json:"ended"`
	Messages []Message `json:"messages"`
}

// Active reports whether the conversation has not been ended.
func (c *Conversation) Active() bool {
	return c.Ended == nil
}

// UserRecord is the complete document stored for one user.
type UserRecord struct {
	Version       int            `json:"version" jsonschema_description:"Document schema version."`
	Conversations []Conversation `json:"conversations"`
}

// Active returns the last conversation lacking an end time, or nil.
func (r *UserRecord) Active() *Conversation {
	for i := len(r.Conversations) - 1; i >= 0; i-- {
		if r.Conversations[i].Active() {
			return &r.Conversations[i]
		}
	}
	return nil
}

// Find returns the conversation with the given id, or nil.
func (r *UserRecord) Find(id string) *Conversation {
	for i := range r.Conversations {
		if r.Conversations[i].ID == id {
			return &r.Conversations[i]
		}
	}
	return nil
}

// Summary describes a conversation without its messages.
type Summary struct {
	ID           string   `json:"id"`
	Started      Instant  `json:"started"`
	Ended        *Instant `json:"ended"`
	MessageCount int      `json:"message_count"`
}

// Summaries lists every conversation in record order.
func (r *UserRecord) Summaries() []Summary {
	out := make([]Summary, 0, len(r.Conversations))
	for _, c := range r.Conversations {
		out = append(out, Summary{
			ID:           c.ID,
			Started:      c.Started,
			Ended:        c.Ended,
			MessageCount: len(c.Messages),
		})
	}
	return out
}

// Instant is a timestamp that reads RFC 3339 as well as the naive ISO-8601
// form (no zone, local time) found in older documents. It writes RFC 3339.
// A value that is null or not a recognized timestamp is kept verbatim and
// written back unchanged, with a zero Time.
type Instant struct {
	time.Time
	raw json.RawMessage
}

// naiveLayouts are tried after RFC 3339, in order.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// At wraps t.
func At(t time.Time) Instant {
	return Instant{Time: t}
}

// ParseInstant parses s as RFC 3339 or naive ISO-8601 local time.
func ParseInstant(s string) (Instant, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Instant{Time: t}, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Instant{Time: t}, nil
		}
	}
	return Instant{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Raw returns the stored JSON of a value that could not be parsed, or "".
func (i Instant) Raw() string {
	return string(i.raw)
}

func (i Instant) MarshalJSON() ([]byte, error) {
	if len(i.raw) > 0 {
		return i.raw, nil
	}
	if i.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(i.Time.Format(time.RFC3339Nano))
}

func (i *Instant) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if parsed, err := ParseInstant(s); err == nil {
			*i = parsed
			return nil
		}
	}
	*i = Instant{}
	if string(b) != "null" {
		i.raw = append(json.RawMessage(nil), b...)
	}
	return nil
}

// JSONSchema describes Instant as a date-time string.
func (Instant) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Format: "date-time"}
}
