package chat

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageBodyLen caps a single chat message body, in runes.
const MaxMessageBodyLen = 4000

var (
	ErrEmptyMessage   = errors.New("chat: message body is empty")
	ErrMessageTooLong = errors.New("chat: message body exceeds the allowed length")
)

// Message is an immutable log entry in a conversation. Messages are append
// only: no edits, no per-message deletes, removed only when the purger drops
// the whole conversation.
type Message struct {
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	SenderID       string    `db:"sender_id"`
	Body           string    `db:"body"`
	CreatedAt      time.Time `db:"created_at"`
}

// NewMessage validates and normalizes a message ready to persist. The body is
// trimmed; CreatedAt defaults to now when zero.
func NewMessage(m Message) (*Message, error) {
	if m.ConversationID == "" || m.SenderID == "" {
		return nil, errors.New("chat: conversation_id and sender_id are required")
	}

	m.Body = strings.TrimSpace(m.Body)
	if m.Body == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(m.Body) > MaxMessageBodyLen {
		return nil, ErrMessageTooLong
	}

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	return &m, nil
}
