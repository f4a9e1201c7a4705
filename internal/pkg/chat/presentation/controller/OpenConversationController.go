package controller

import (
	"context"
	"net/http"
	"time"

	"shopchat/internal/pkg/auth"
	chat "shopchat/internal/pkg/chat/application/domain"
	"shopchat/internal/pkg/chat/application/usecase"

	"github.com/gin-gonic/gin"
)

// OpenConversationController creates (or reuses) the thread between a
// customer and a vendor.
type OpenConversationController struct {
	UC     *usecase.OpenConversationUseCase
	Policy chat.RetentionPolicy
}

func NewOpenConversationController(uc *usecase.OpenConversationUseCase, policy chat.RetentionPolicy) *OpenConversationController {
	return &OpenConversationController{UC: uc, Policy: policy}
}

type openConversationRequest struct {
	TenantID       string `json:"tenantId"`
	VendorUserID   string `json:"vendorUserId"`
	CustomerUserID string `json:"customerUserId"`
	Kind           *int16 `json:"kind"`
}

func (h *OpenConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		actx, ok := auth.FromGin(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req openConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
			return
		}

		// Non-admin callers fill their own slot from the auth context.
		switch actx.Role {
		case chat.RoleCustomer:
			req.CustomerUserID = actx.UserID
		case chat.RoleVendor:
			req.VendorUserID = actx.UserID
		}
		if req.TenantID == "" {
			req.TenantID = actx.TenantID
		}

		kind := chat.KindDirect
		if req.Kind != nil {
			kind = chat.ConversationKind(*req.Kind)
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		res, err := h.UC.Execute(ctx, usecase.OpenConversationInput{
			TenantID:       req.TenantID,
			VendorUserID:   req.VendorUserID,
			CustomerUserID: req.CustomerUserID,
			Kind:           kind,
			Caller:         actx.Viewer(),
		})
		if err != nil {
			respondError(c, err)
			return
		}

		status := http.StatusOK
		if res.Created {
			status = http.StatusCreated
		}
		state := chat.EvaluateClosure(res.Conversation, actx.Viewer(), time.Now().UTC(), h.Policy)
		c.JSON(status, gin.H{
			"currentUserId": actx.UserID,
			"role":          actx.Role,
			"conversation":  conversationJSON(res.Conversation, state),
		})
	}
}
