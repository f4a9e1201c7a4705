package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"shopchat/internal/infrastructure/realtime"
	"shopchat/internal/pkg/auth"
	"shopchat/internal/pkg/chat/application/usecase"

	"github.com/gin-gonic/gin"
)

// CloseConversationController handles the explicit close action. Closing is
// idempotent; closing an already-closed thread succeeds without change.
type CloseConversationController struct {
	UC *usecase.CloseConversationUseCase
	RT *realtime.Router
}

func NewCloseConversationController(p *usecase.Pipeline, rt *realtime.Router) *CloseConversationController {
	return &CloseConversationController{UC: usecase.NewCloseConversationUseCase(p), RT: rt}
}

func (h *CloseConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		actx, ok := auth.FromGin(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		res, err := h.UC.Execute(ctx, usecase.CloseConversationInput{
			ConversationID: c.Param("conversationId"),
			Viewer:         actx.Viewer(),
		})
		if err != nil {
			respondError(c, err)
			return
		}

		if res.Changed && h.RT != nil {
			// Tell live subscribers the thread went read-only, then drop the
			// participants from the room. Admins keep their subscription.
			if payload, err := json.Marshal(ackFrame{Type: "closed", ConversationID: res.Conversation.ID}); err == nil {
				h.RT.Broadcast(res.Conversation.ID, payload, "")
			}
			h.RT.EvictRoom(res.Conversation.ID, true)
		}

		c.JSON(http.StatusOK, gin.H{
			"currentUserId": actx.UserID,
			"role":          actx.Role,
			"changed":       res.Changed,
			"conversation":  conversationJSON(res.Conversation, res.State),
		})
	}
}
