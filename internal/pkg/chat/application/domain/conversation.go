package chat

import "time"

// ConversationKind distinguishes how a thread came to exist
// 0 = direct customer<->vendor chat, 1 = system-initiated help center thread
type ConversationKind int16

const (
	KindDirect  ConversationKind = 0
	KindSupport ConversationKind = 1
)

// Conversation is a two-party thread between a customer and a vendor within a
// tenant. Admins are never stored as participants; they act through the
// takeover flag and the admin retention window.
//
// ClosedAt is the single source of truth for the closed state; every derived
// permission (visibility, sendability, notices) is computed from it by
// EvaluateClosure and never persisted.
type Conversation struct {
	ID             string           `db:"id"`
	TenantID       string           `db:"tenant_id"`
	Kind           ConversationKind `db:"kind"`
	VendorUserID   string           `db:"vendor_user_id"`
	CustomerUserID string           `db:"customer_user_id"`
	AdminTakeover  bool             `db:"admin_takeover"`
	ClosedAt       *time.Time       `db:"closed_at"`
	LastMessageAt  *time.Time       `db:"last_message_at"`
	CreatedAt      time.Time        `db:"created_at"`

	// Per-viewer read watermarks, advanced best-effort by the receipt task.
	VendorLastReadAt   *time.Time `db:"vendor_last_read_at"`
	CustomerLastReadAt *time.Time `db:"customer_last_read_at"`
}

// IsParticipant tells whether userID occupies one of the two participant slots.
func (c *Conversation) IsParticipant(userID string) bool {
	if c == nil || userID == "" {
		return false
	}
	return userID == c.VendorUserID || userID == c.CustomerUserID
}

// CounterpartOf returns the other participant's user id, or "" when userID is
// not a participant.
func (c *Conversation) CounterpartOf(userID string) string {
	switch {
	case c == nil:
		return ""
	case userID == c.VendorUserID:
		return c.CustomerUserID
	case userID == c.CustomerUserID:
		return c.VendorUserID
	default:
		return ""
	}
}

// LastActivityAt is the timestamp the inactivity auto-close measures from:
// the last message if any, otherwise creation.
func (c *Conversation) LastActivityAt() time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}
