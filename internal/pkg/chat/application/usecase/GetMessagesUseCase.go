package usecase

import (
	"context"
	"fmt"

	chat "shopchat/internal/pkg/chat/application/domain"
)

// GetMessagesInput carries parameters to read a conversation's messages.
type GetMessagesInput struct {
	ConversationID string
	Viewer         chat.Viewer
	Limit          int
}

// GetMessagesResult is the read surface's payload: the messages plus the
// conversation with its derived state, so clients can render notices and
// disable composers without a second round trip.
type GetMessagesResult struct {
	Conversation chat.Conversation
	State        chat.ClosureState
	Messages     []chat.Message
}

// GetMessagesUseCase runs the gateway read pipeline. A conversation the
// viewer can no longer see reports ErrNotFound, same as an absent one.
type GetMessagesUseCase struct {
	Pipeline *Pipeline
}

func NewGetMessagesUseCase(p *Pipeline) *GetMessagesUseCase {
	return &GetMessagesUseCase{Pipeline: p}
}

func (uc *GetMessagesUseCase) Execute(ctx context.Context, in GetMessagesInput) (*GetMessagesResult, error) {
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

	msgs, err := uc.Pipeline.Repo.ListMessages(ctx, in.ConversationID, in.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return &GetMessagesResult{Conversation: *conv, State: state, Messages: msgs}, nil
}
