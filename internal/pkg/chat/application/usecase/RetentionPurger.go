package usecase

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	chat "shopchat/internal/pkg/chat/application/domain"
	repository "shopchat/internal/pkg/chat/persistence/repository/port"

	"github.com/rs/zerolog/log"
)

// RetentionPurger hard-deletes conversations whose closedAt is past the admin
// retention window, messages included. It runs opportunistically at the top
// of request paths, so it must be cheap to call and must never fail the
// request that happened to trigger it.
type RetentionPurger struct {
	Repo   repository.ConversationRepository
	Policy chat.RetentionPolicy

	// Snapshots, when set, gets the purged ids dropped so a cached row never
	// outlives its database counterpart.
	Snapshots *SnapshotCache

	// Every throttles opportunistic sweeps; zero sweeps on every call.
	Every time.Duration

	now     func() time.Time
	lastRun atomic.Int64
}

func NewRetentionPurger(repo repository.ConversationRepository, policy chat.RetentionPolicy) *RetentionPurger {
	return &RetentionPurger{
		Repo:   repo,
		Policy: policy,
		Every:  30 * time.Second,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run deletes everything past retention and returns the count. Used by the
// worker's deep sweep, where failures should surface.
func (p *RetentionPurger) Run(ctx context.Context) (int64, error) {
	ids, err := p.Repo.PurgeExpired(ctx, p.Policy.PurgeCutoff(p.now()))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	p.Snapshots.Drop(ctx, ids...)
	return int64(len(ids)), nil
}

// RunBestEffort is the request-path entry point: throttled, errors swallowed
// after logging. Housekeeping never blocks the primary operation.
func (p *RetentionPurger) RunBestEffort(ctx context.Context) {
	if p == nil {
		return
	}
	if p.Every > 0 {
		now := p.now().UnixNano()
		last := p.lastRun.Load()
		if now-last < int64(p.Every) || !p.lastRun.CompareAndSwap(last, now) {
			return
		}
	}
	n, err := p.Run(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("retention purge failed")
		return
	}
	if n > 0 {
		log.Info().Int64("purged", n).Msg("retention purge removed expired conversations")
	}
}
