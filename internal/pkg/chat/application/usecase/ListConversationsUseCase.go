package usecase

import (
	"context"
	"fmt"
	"time"

	chat "shopchat/internal/pkg/chat/application/domain"
)

// ListConversationsInput scopes an inbox listing. TenantID narrows admin
// listings and is ignored for participants, who always see only their own
// threads.
type ListConversationsInput struct {
	TenantID string
	Viewer   chat.Viewer
	Limit    int
}

// ConversationEntry pairs a row with the viewer's derived state.
type ConversationEntry struct {
	Conversation chat.Conversation
	State        chat.ClosureState
}

// ListConversationsUseCase builds the inbox: purge housekeeping, candidate
// rows from the store, then per-row closure evaluation. Rows outside the
// viewer's visibility window are dropped, not annotated.
type ListConversationsUseCase struct {
	Pipeline *Pipeline

	now func() time.Time
}

func NewListConversationsUseCase(p *Pipeline) *ListConversationsUseCase {
	return &ListConversationsUseCase{Pipeline: p, now: func() time.Time { return time.Now().UTC() }}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, in ListConversationsInput) ([]ConversationEntry, error) {
	uc.Pipeline.Purger.RunBestEffort(ctx)

	convs, err := uc.Pipeline.Repo.ListConversations(ctx, in.TenantID, in.Viewer, in.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	now := uc.now()
	entries := make([]ConversationEntry, 0, len(convs))
	for _, c := range convs {
		state := chat.EvaluateClosure(c, in.Viewer, now, uc.Pipeline.Policy)
		if !state.CanView {
			continue
		}
		entries = append(entries, ConversationEntry{Conversation: c, State: state})
	}
	return entries, nil
}
