package usecase

import (
	"context"
	"fmt"
	"time"

	chat "shopchat/internal/pkg/chat/application/domain"
	repository "shopchat/internal/pkg/chat/persistence/repository/port"
)

// OpenConversationInput opens (or reuses) the thread between a customer and a
// vendor within a tenant. Customers and vendors must occupy their own slot;
// admins may open support threads on a customer's behalf.
type OpenConversationInput struct {
	TenantID       string
	VendorUserID   string
	CustomerUserID string
	Kind           chat.ConversationKind
	Caller         chat.Viewer
}

type OpenConversationResult struct {
	Conversation chat.Conversation
	Created      bool
}

// OpenConversationUseCase creates a conversation on first contact. An open
// thread between the same pair (same kind) is reused instead of duplicated,
// so repeated "message the seller" clicks land in one place.
type OpenConversationUseCase struct {
	Repo repository.ConversationRepository

	now func() time.Time
}

func NewOpenConversationUseCase(repo repository.ConversationRepository) *OpenConversationUseCase {
	return &OpenConversationUseCase{Repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (uc *OpenConversationUseCase) Execute(ctx context.Context, in OpenConversationInput) (*OpenConversationResult, error) {
	if in.TenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if in.VendorUserID == "" || in.CustomerUserID == "" {
		return nil, fmt.Errorf("vendor_user_id and customer_user_id are required")
	}
	if in.VendorUserID == in.CustomerUserID {
		return nil, fmt.Errorf("a conversation needs two distinct participants")
	}

	// Non-admin callers must be one of the two participants.
	switch in.Caller.Role {
	case chat.RoleCustomer:
		if in.Caller.UserID != in.CustomerUserID {
			return nil, chat.ErrNotParticipant
		}
	case chat.RoleVendor:
		if in.Caller.UserID != in.VendorUserID {
			return nil, chat.ErrNotParticipant
		}
	case chat.RoleAdmin:
		// help center threads are system/admin initiated
	default:
		return nil, chat.ErrNotParticipant
	}

	existing, err := uc.Repo.FindOpenConversation(ctx, in.TenantID, in.VendorUserID, in.CustomerUserID, in.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if existing != nil {
		return &OpenConversationResult{Conversation: *existing, Created: false}, nil
	}

	conv := chat.Conversation{
		TenantID:       in.TenantID,
		Kind:           in.Kind,
		VendorUserID:   in.VendorUserID,
		CustomerUserID: in.CustomerUserID,
		CreatedAt:      uc.now(),
	}
	id, err := uc.Repo.CreateConversation(ctx, conv)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	conv.ID = id

	return &OpenConversationResult{Conversation: conv, Created: true}, nil
}
