package usecase

import (
	"context"
	"fmt"
	"time"

	chat "shopchat/internal/pkg/chat/application/domain"
	repository "shopchat/internal/pkg/chat/persistence/repository/port"
)

// AutoCloseTrigger transitions a conversation to closed when the inactivity
// rule fires. It writes closed_at at most once per conversation: the check on
// the loaded snapshot plus the conditional update in the repository make a
// second invocation a no-op.
type AutoCloseTrigger struct {
	Repo   repository.ConversationRepository
	Policy chat.RetentionPolicy

	now func() time.Time
}

func NewAutoCloseTrigger(repo repository.ConversationRepository, policy chat.RetentionPolicy) *AutoCloseTrigger {
	return &AutoCloseTrigger{Repo: repo, Policy: policy, now: func() time.Time { return time.Now().UTC() }}
}

// Run evaluates the inactivity rule for the loaded conversation and persists
// the transition when due. It reports whether the stored state changed; on a
// persistence failure the conversation is left as the caller saw it.
func (t *AutoCloseTrigger) Run(ctx context.Context, conv *chat.Conversation) (bool, error) {
	if conv == nil {
		return false, nil
	}
	if !chat.ShouldAutoClose(*conv, t.now(), t.Policy) {
		return false, nil
	}
	changed, err := t.Repo.CloseConversation(ctx, conv.ID, t.now())
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	// changed=false here means a concurrent closer won the conditional
	// update; either way the stored state is closed now.
	return changed, nil
}
