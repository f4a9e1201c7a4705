package controller

import (
	"context"
	"net/http"
	"strconv"
	"time"

	qport "shopchat/internal/infrastructure/queue/port"
	"shopchat/internal/pkg/auth"
	"shopchat/internal/pkg/chat/application/task"
	"shopchat/internal/pkg/chat/application/usecase"

	"github.com/gin-gonic/gin"
)

// GetMessagesController handles reading a conversation's messages (one
// controller per endpoint).
type GetMessagesController struct {
	UC *usecase.GetMessagesUseCase
	Q  qport.Client
}

func NewGetMessagesController(p *usecase.Pipeline, q qport.Client) *GetMessagesController {
	return &GetMessagesController{UC: usecase.NewGetMessagesUseCase(p), Q: q}
}

func (h *GetMessagesController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		actx, ok := auth.FromGin(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		conversationID := c.Param("conversationId")
		limit := 50
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
				limit = n
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		res, err := h.UC.Execute(ctx, usecase.GetMessagesInput{
			ConversationID: conversationID,
			Viewer:         actx.Viewer(),
			Limit:          limit,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		// Read receipts are a side channel; the response does not wait on them.
		task.EnqueueMarkReceipts(c.Request.Context(), h.Q, conversationID, actx.UserID, time.Now().UTC())

		out := make([]gin.H, 0, len(res.Messages))
		for _, m := range res.Messages {
			out = append(out, messageJSON(m))
		}

		c.JSON(http.StatusOK, gin.H{
			"currentUserId": actx.UserID,
			"role":          actx.Role,
			"conversation":  conversationJSON(res.Conversation, res.State),
			"messages":      out,
		})
	}
}
