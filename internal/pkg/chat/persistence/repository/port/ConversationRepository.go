package repository

import (
	"context"
	"time"

	chat "shopchat/internal/pkg/chat/application/domain"
)

// ConversationRepository defines persistence operations for the conversation
// lifecycle domain.
//
// Lookup methods return (nil, nil) for absent rows; a non-nil error always
// means an infrastructure failure, never "not found". Callers map missing
// rows and invisible rows to the same outward result.
type ConversationRepository interface {
	// CreateConversation persists c and returns the generated id.
	CreateConversation(ctx context.Context, c chat.Conversation) (string, error)

	// FindOpenConversation returns the open (closed_at IS NULL) thread of the
	// given kind between the two participants within a tenant, if any.
	FindOpenConversation(ctx context.Context, tenantID, vendorUserID, customerUserID string, kind chat.ConversationKind) (*chat.Conversation, error)

	GetConversationByID(ctx context.Context, id string) (*chat.Conversation, error)

	// ListConversations returns candidate rows for a viewer's inbox, most
	// recent activity first. Admin viewers see the whole tenant; participants
	// see only their own threads. Visibility windows are the evaluator's
	// business, not the repository's.
	ListConversations(ctx context.Context, tenantID string, viewer chat.Viewer, limit int) ([]chat.Conversation, error)

	// CloseConversation sets closed_at exactly once. It returns false without
	// error when the conversation was already closed, or does not exist.
	CloseConversation(ctx context.Context, id string, closedAt time.Time) (bool, error)

	SetAdminTakeover(ctx context.Context, id string, enabled bool) error

	// SaveMessage persists m and advances the conversation's last activity in
	// the same transaction. Returns the generated message id.
	SaveMessage(ctx context.Context, m chat.Message) (string, error)

	// ListMessages returns up to limit messages, oldest first.
	ListMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error)

	// MarkMessageReceipts advances the viewer's read watermark. No-op when the
	// viewer is not a participant.
	MarkMessageReceipts(ctx context.Context, conversationID, viewerID string, readAt time.Time) error

	// PurgeExpired hard-deletes conversations closed before cutoff together
	// with their messages and returns the ids of the conversations that went
	// away, so callers can invalidate derived state (snapshots, rooms).
	PurgeExpired(ctx context.Context, cutoff time.Time) ([]string, error)
}
