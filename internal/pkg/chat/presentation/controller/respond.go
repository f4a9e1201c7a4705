package controller

import (
	"errors"
	"net/http"

	chat "shopchat/internal/pkg/chat/application/domain"
	"shopchat/internal/pkg/chat/application/usecase"

	"github.com/gin-gonic/gin"
)

// statusForError maps use case and domain errors onto the HTTP taxonomy.
// Anything unrecognized is treated as a bad request with the error text,
// matching how input validation errors bubble out of the use cases.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, chat.ErrNotParticipant),
		errors.Is(err, chat.ErrVendorLockedOut),
		errors.Is(err, chat.ErrConversationClosed):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrMessageTooLong):
		return http.StatusBadRequest, "Invalid payload"
	case errors.Is(err, usecase.ErrPersistence):
		return http.StatusInternalServerError, "Unable to load conversation"
	default:
		return http.StatusBadRequest, err.Error()
	}
}

func respondError(c *gin.Context, err error) {
	status, msg := statusForError(err)
	c.JSON(status, gin.H{"error": msg})
}

// conversationJSON serializes a conversation together with the viewer's
// derived closure state. Derived fields sit beside stored ones so clients
// never compute retention math themselves.
func conversationJSON(conv chat.Conversation, state chat.ClosureState) gin.H {
	return gin.H{
		"id":                      conv.ID,
		"tenantId":                conv.TenantID,
		"kind":                    conv.Kind,
		"vendorUserId":            conv.VendorUserID,
		"customerUserId":          conv.CustomerUserID,
		"adminTakeoverEnabled":    conv.AdminTakeover,
		"closedAt":                conv.ClosedAt,
		"lastMessageAt":           conv.LastMessageAt,
		"createdAt":               conv.CreatedAt,
		"isClosed":                state.IsClosed,
		"canView":                 state.CanView,
		"canSend":                 state.CanSend,
		"participantNotice":       state.ParticipantNotice,
		"participantVisibleUntil": state.ParticipantVisibleUntil,
		"adminRetentionUntil":     state.AdminRetentionUntil,
	}
}

func messageJSON(m chat.Message) gin.H {
	return gin.H{
		"id":             m.ID,
		"conversationId": m.ConversationID,
		"senderId":       m.SenderID,
		"body":           m.Body,
		"createdAt":      m.CreatedAt,
	}
}
