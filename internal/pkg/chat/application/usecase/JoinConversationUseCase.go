package usecase

import (
	"context"
	"fmt"

	chat "shopchat/internal/pkg/chat/application/domain"
)

// JoinConversationInput validates a request to attach a realtime session to a
// conversation room.
type JoinConversationInput struct {
	ConversationID string
	Viewer         chat.Viewer
}

// JoinConversationUseCase gates realtime room membership with the same
// pipeline as HTTP reads: participants (or admins) only, and never a thread
// the viewer can no longer see.
type JoinConversationUseCase struct {
	Pipeline *Pipeline
}

func NewJoinConversationUseCase(p *Pipeline) *JoinConversationUseCase {
	return &JoinConversationUseCase{Pipeline: p}
}

func (uc *JoinConversationUseCase) Execute(ctx context.Context, in JoinConversationInput) error {
	if in.ConversationID == "" || in.Viewer.UserID == "" {
		return fmt.Errorf("conversation_id and user_id are required")
	}

	_, state, err := uc.Pipeline.Resolve(ctx, in.ConversationID, in.Viewer)
	if err != nil {
		return err
	}
	if !state.CanView {
		return ErrNotFound
	}
	return nil
}
