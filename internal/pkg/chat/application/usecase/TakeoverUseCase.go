package usecase

import (
	"context"
	"fmt"
	"time"

	chat "shopchat/internal/pkg/chat/application/domain"
)

// TakeoverInput toggles exclusive admin control over a conversation. While
// enabled the vendor cannot send; the customer is unaffected.
type TakeoverInput struct {
	ConversationID string
	Viewer         chat.Viewer
	Enabled        bool
}

type TakeoverResult struct {
	Conversation chat.Conversation
	State        chat.ClosureState
}

// TakeoverUseCase flips the admin takeover flag. Admin-only; the route guard
// enforces the role and this use case re-checks it.
type TakeoverUseCase struct {
	Pipeline *Pipeline

	now func() time.Time
}

func NewTakeoverUseCase(p *Pipeline) *TakeoverUseCase {
	return &TakeoverUseCase{Pipeline: p, now: func() time.Time { return time.Now().UTC() }}
}

func (uc *TakeoverUseCase) Execute(ctx context.Context, in TakeoverInput) (*TakeoverResult, error) {
	if in.ConversationID == "" {
		return nil, fmt.Errorf("conversationId is required")
	}
	if !in.Viewer.Role.IsAdmin() {
		return nil, chat.ErrNotParticipant
	}

	conv, state, err := uc.Pipeline.Resolve(ctx, in.ConversationID, in.Viewer)
	if err != nil {
		return nil, err
	}
	if !state.CanView {
		return nil, ErrNotFound
	}

	if conv.AdminTakeover != in.Enabled {
		if err := uc.Pipeline.Repo.SetAdminTakeover(ctx, conv.ID, in.Enabled); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		uc.Pipeline.Snapshots.Drop(ctx, conv.ID)
		conv.AdminTakeover = in.Enabled
	}

	state = chat.EvaluateClosure(*conv, in.Viewer, uc.now(), uc.Pipeline.Policy)
	return &TakeoverResult{Conversation: *conv, State: state}, nil
}
