package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	qport "shopchat/internal/infrastructure/queue/port"
	"shopchat/internal/infrastructure/realtime"
	"shopchat/internal/pkg/auth"
	chat "shopchat/internal/pkg/chat/application/domain"
	"shopchat/internal/pkg/chat/application/task"
	"shopchat/internal/pkg/chat/application/usecase"

	"github.com/gin-gonic/gin"
)

// SendMessageController handles posting a message into a conversation (one
// controller per endpoint).
type SendMessageController struct {
	UC *usecase.SendMessageUseCase
	Q  qport.Client
	RT *realtime.Router
}

func NewSendMessageController(p *usecase.Pipeline, q qport.Client, rt *realtime.Router) *SendMessageController {
	return &SendMessageController{UC: usecase.NewSendMessageUseCase(p), Q: q, RT: rt}
}

// sendMessageRequest is the DTO for the HTTP request body
type sendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		actx, ok := auth.FromGin(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		conversationID := c.Param("conversationId")

		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		res, err := h.UC.Execute(ctx, usecase.SendMessageInput{
			ConversationID: conversationID,
			Viewer:         actx.Viewer(),
			Body:           req.Body,
		})
		if err != nil {
			// A closed thread answers with its participant notice so the
			// storefront can explain the disabled composer.
			if errors.Is(err, chat.ErrConversationClosed) && res != nil && res.State.ParticipantNotice != "" {
				c.JSON(http.StatusForbidden, gin.H{"error": res.State.ParticipantNotice})
				return
			}
			respondError(c, err)
			return
		}

		h.fanOut(c.Request.Context(), res)

		c.JSON(http.StatusOK, gin.H{
			"currentUserId": actx.UserID,
			"role":          actx.Role,
			"conversation":  conversationJSON(res.Conversation, res.State),
			"message":       messageJSON(res.Message),
		})
	}
}

// fanOut pushes the new message to realtime subscribers and queues the
// notification for the counterpart. Both are best-effort side channels.
func (h *SendMessageController) fanOut(ctx context.Context, res *usecase.SendMessageResult) {
	msg := res.Message

	if h.RT != nil {
		event := messageEvent{
			Type:           "message",
			ConversationID: msg.ConversationID,
			Message:        toMessagePayload(msg),
		}
		if payload, err := json.Marshal(event); err == nil {
			h.RT.Broadcast(msg.ConversationID, payload, msg.SenderID)
		}
	}

	recipient := res.Conversation.CounterpartOf(msg.SenderID)
	if recipient == "" {
		// Admin takeover sends go to the customer side.
		recipient = res.Conversation.CustomerUserID
	}
	task.EnqueueNotifyMessage(ctx, h.Q, task.NotifyMessageTaskPayload{
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		SenderID:       msg.SenderID,
		RecipientID:    recipient,
		Preview:        preview(msg.Body),
	})
}

func preview(body string) string {
	const max = 120
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max])
}
