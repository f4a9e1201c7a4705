package controller

import (
	"context"
	"net/http"
	"time"

	"shopchat/internal/pkg/auth"
	"shopchat/internal/pkg/chat/application/usecase"

	"github.com/gin-gonic/gin"
)

// TakeoverController toggles exclusive admin control of a conversation.
// Mounted behind the admin role guard.
type TakeoverController struct {
	UC *usecase.TakeoverUseCase
}

func NewTakeoverController(p *usecase.Pipeline) *TakeoverController {
	return &TakeoverController{UC: usecase.NewTakeoverUseCase(p)}
}

type takeoverRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *TakeoverController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		actx, ok := auth.FromGin(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req takeoverRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		res, err := h.UC.Execute(ctx, usecase.TakeoverInput{
			ConversationID: c.Param("conversationId"),
			Viewer:         actx.Viewer(),
			Enabled:        *req.Enabled,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"currentUserId": actx.UserID,
			"role":          actx.Role,
			"conversation":  conversationJSON(res.Conversation, res.State),
		})
	}
}
