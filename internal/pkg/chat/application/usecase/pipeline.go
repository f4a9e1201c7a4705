package usecase

import (
	"context"
	"fmt"
	"time"

	chat "shopchat/internal/pkg/chat/application/domain"
	repository "shopchat/internal/pkg/chat/persistence/repository/port"
)

// Pipeline bundles the guarded steps every conversation-scoped operation
// shares: opportunistic purge, load, participant check, auto-close, reload on
// transition, closure evaluation. Read and send use cases run it first and
// then apply their own permission on the derived state.
type Pipeline struct {
	Repo      repository.ConversationRepository
	Policy    chat.RetentionPolicy
	Purger    *RetentionPurger
	Trigger   *AutoCloseTrigger
	Snapshots *SnapshotCache

	now func() time.Time
}

func NewPipeline(repo repository.ConversationRepository, policy chat.RetentionPolicy, purger *RetentionPurger, snapshots *SnapshotCache) *Pipeline {
	return &Pipeline{
		Repo:      repo,
		Policy:    policy,
		Purger:    purger,
		Trigger:   NewAutoCloseTrigger(repo, policy),
		Snapshots: snapshots,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Resolve loads the conversation and computes the viewer's closure state.
//
// Errors: ErrNotFound (absent row), chat.ErrNotParticipant (viewer is neither
// participant nor admin), ErrPersistence (store failure anywhere in the
// chain). Visibility is NOT enforced here; callers decide what !CanView means
// for their operation.
func (p *Pipeline) Resolve(ctx context.Context, conversationID string, viewer chat.Viewer) (*chat.Conversation, chat.ClosureState, error) {
	var zero chat.ClosureState

	p.Purger.RunBestEffort(ctx)

	conv, err := p.load(ctx, conversationID)
	if err != nil {
		return nil, zero, err
	}
	if conv == nil {
		return nil, zero, ErrNotFound
	}

	if !viewer.Role.IsAdmin() && !conv.IsParticipant(viewer.UserID) {
		return nil, zero, chat.ErrNotParticipant
	}

	changed, err := p.Trigger.Run(ctx, conv)
	if err != nil {
		return nil, zero, err
	}
	if changed {
		p.Snapshots.Drop(ctx, conv.ID)
		conv, err = p.reload(ctx, conversationID)
		if err != nil {
			return nil, zero, err
		}
	}

	state := chat.EvaluateClosure(*conv, viewer, p.now(), p.Policy)
	return conv, state, nil
}

func (p *Pipeline) load(ctx context.Context, id string) (*chat.Conversation, error) {
	if c := p.Snapshots.Get(ctx, id); c != nil {
		return c, nil
	}
	conv, err := p.Repo.GetConversationByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if conv != nil {
		p.Snapshots.Put(ctx, conv)
	}
	return conv, nil
}

// reload bypasses the snapshot cache after a state transition.
func (p *Pipeline) reload(ctx context.Context, id string) (*chat.Conversation, error) {
	conv, err := p.Repo.GetConversationByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if conv == nil {
		// Purged between the two loads; treat like any other missing row.
		return nil, ErrNotFound
	}
	p.Snapshots.Put(ctx, conv)
	return conv, nil
}
