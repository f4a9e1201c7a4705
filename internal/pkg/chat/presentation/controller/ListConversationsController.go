package controller

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"shopchat/internal/pkg/auth"
	"shopchat/internal/pkg/chat/application/usecase"

	"github.com/gin-gonic/gin"
)

// ListConversationsController serves the inbox for whichever surface the
// caller belongs to: own threads for participants, tenant overview for
// admins.
type ListConversationsController struct {
	UC *usecase.ListConversationsUseCase
}

func NewListConversationsController(p *usecase.Pipeline) *ListConversationsController {
	return &ListConversationsController{UC: usecase.NewListConversationsUseCase(p)}
}

func (h *ListConversationsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		actx, ok := auth.FromGin(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		limit := 50
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
				limit = n
			}
		}
		tenantID := c.Query("tenantId")
		if !actx.IsAdmin() {
			tenantID = actx.TenantID
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		entries, err := h.UC.Execute(ctx, usecase.ListConversationsInput{
			TenantID: tenantID,
			Viewer:   actx.Viewer(),
			Limit:    limit,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		out := make([]gin.H, 0, len(entries))
		for _, e := range entries {
			out = append(out, conversationJSON(e.Conversation, e.State))
		}

		c.JSON(http.StatusOK, gin.H{
			"currentUserId": actx.UserID,
			"role":          actx.Role,
			"conversations": out,
		})
	}
}
