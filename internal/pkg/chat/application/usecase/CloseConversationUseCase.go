package usecase

import (
	"context"
	"fmt"
	"time"

	chat "shopchat/internal/pkg/chat/application/domain"
)

// CloseConversationInput is an explicit close request from a participant or
// an admin.
type CloseConversationInput struct {
	ConversationID string
	Viewer         chat.Viewer
}

type CloseConversationResult struct {
	Conversation chat.Conversation
	State        chat.ClosureState
	// Changed is false when the conversation was already closed; closing is
	// idempotent and repeat requests succeed without touching the row.
	Changed bool
}

// CloseConversationUseCase is the explicit branch of the close transition;
// the inactivity branch lives in AutoCloseTrigger.
type CloseConversationUseCase struct {
	Pipeline *Pipeline

	now func() time.Time
}

func NewCloseConversationUseCase(p *Pipeline) *CloseConversationUseCase {
	return &CloseConversationUseCase{Pipeline: p, now: func() time.Time { return time.Now().UTC() }}
}

func (uc *CloseConversationUseCase) Execute(ctx context.Context, in CloseConversationInput) (*CloseConversationResult, error) {
	if in.ConversationID == "" {
		return nil, fmt.Errorf("conversationId is required")
	}

	conv, state, err := uc.Pipeline.Resolve(ctx, in.ConversationID, in.Viewer)
	if err != nil {
		return nil, err
	}
	if !state.CanView {
		return nil, ErrNotFound
	}
	if state.IsClosed {
		return &CloseConversationResult{Conversation: *conv, State: state, Changed: false}, nil
	}

	changed, err := uc.Pipeline.Repo.CloseConversation(ctx, conv.ID, uc.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	uc.Pipeline.Snapshots.Drop(ctx, conv.ID)

	conv, err = uc.Pipeline.reload(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}
	state = chat.EvaluateClosure(*conv, in.Viewer, uc.now(), uc.Pipeline.Policy)

	return &CloseConversationResult{Conversation: *conv, State: state, Changed: changed}, nil
}
