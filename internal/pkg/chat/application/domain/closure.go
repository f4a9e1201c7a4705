package chat

import (
	"errors"
	"fmt"
	"time"
)

// Domain-level errors for conversation lifecycle behaviors
var (
	ErrNotParticipant     = errors.New("chat: user is not a participant in the conversation")
	ErrConversationClosed = errors.New("chat: conversation is closed")
	ErrVendorLockedOut    = errors.New("chat: vendor sending is disabled while an admin has taken over")
)

// ClosureState is the derived, never-persisted view of a conversation's
// lifecycle for one viewer. Snapshot + viewer + now + policy in, permissions
// out; no side effects.
type ClosureState struct {
	IsClosed          bool       `json:"isClosed"`
	CanView           bool       `json:"canView"`
	CanSend           bool       `json:"canSend"`
	ParticipantNotice string     `json:"participantNotice"`
	// Both timestamps are nil while the conversation is open.
	ParticipantVisibleUntil *time.Time `json:"participantVisibleUntil,omitempty"`
	AdminRetentionUntil     *time.Time `json:"adminRetentionUntil,omitempty"`
}

// EvaluateClosure computes the closure state of c as seen by viewer at now.
//
// Rules:
//   - Open conversations are viewable by everyone the gateway already admitted
//     and sendable by both participants, except a vendor while admin takeover
//     is enabled.
//   - Closed conversations are never sendable. Participants keep visibility
//     until closedAt + participant window; admins until closedAt + admin
//     window. Past the admin window the purger owns the row.
func EvaluateClosure(c Conversation, viewer Viewer, now time.Time, policy RetentionPolicy) ClosureState {
	vendorBlocked := c.AdminTakeover && viewer.Role.IsVendor()

	if c.ClosedAt == nil {
		return ClosureState{
			IsClosed: false,
			CanView:  true,
			CanSend:  !vendorBlocked,
		}
	}

	visibleUntil := c.ClosedAt.Add(policy.ParticipantWindow)
	retainedUntil := c.ClosedAt.Add(policy.AdminWindow)

	canView := now.Before(visibleUntil)
	if viewer.Role.IsAdmin() {
		canView = now.Before(retainedUntil)
	}

	return ClosureState{
		IsClosed:                true,
		CanView:                 canView,
		CanSend:                 false,
		ParticipantNotice:       fmt.Sprintf("This chat is closed and will disappear in %d days.", policy.ParticipantDays()),
		ParticipantVisibleUntil: &visibleUntil,
		AdminRetentionUntil:     &retainedUntil,
	}
}

// ShouldAutoClose reports whether the inactivity rule would close c at now.
// Already-closed conversations never qualify, which is what makes the trigger
// idempotent.
func ShouldAutoClose(c Conversation, now time.Time, policy RetentionPolicy) bool {
	if c.ClosedAt != nil {
		return false
	}
	if policy.AutoCloseAfter <= 0 {
		return false
	}
	return now.Sub(c.LastActivityAt()) >= policy.AutoCloseAfter
}
