package core

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// NewID returns a random unique identifier.
func NewID() string { return uuid.NewString() }

// Message is one participant contribution. Once appended to a Transcript a
// message is never modified.
type Message struct {
	ID        string    `json:"id"`
	Speaker   string    `json:"speaker"`
	Role      string    `json:"role"`
	Position  int       `json:"position"`
	Round     int       `json:"round"`
	Sequence  int       `json:"sequence"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	LengthOK  bool      `json:"length_ok"`
	Attempts  int       `json:"attempts"`
}

// Length returns the message length in characters (runes).
func (m Message) Length() int { return utf8.RuneCountInString(m.Text) }

// Transcript is the append-only ordered sequence of messages of one session.
// Sequence numbers are assigned on append and are strictly increasing from 1.
// It is safe for concurrent access.
//
// Contract:
//   - Append never reorders or rewrites earlier messages
//   - Messages and Tail return defensive copies
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{messages: []Message{}}
}

// Append assigns the next sequence number (plus ID and timestamp when unset)
// and stores the message. The stored copy is returned.
func (t *Transcript) Append(m Message) Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	m.Sequence = len(t.messages) + 1
	if m.ID == "" {
		m.ID = NewID()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	t.messages = append(t.messages, m)
	return m
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Messages returns a copy of all messages in order.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Tail returns a copy of the last n messages; n <= 0 returns all of them.
func (t *Transcript) Tail(n int) []Message {
	return Window(t.Messages(), n)
}

// Window returns the last n messages of msgs; n <= 0 returns msgs unchanged.
func Window(msgs []Message, n int) []Message {
	if n <= 0 || n >= len(msgs) {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

// FormatMessages renders messages one per line as "Speaker: text".
func FormatMessages(msgs []Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", m.Speaker, m.Text)
	}
	return b.String()
}
