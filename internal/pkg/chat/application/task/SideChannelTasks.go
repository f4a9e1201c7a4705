package task

import (
	"context"
	"encoding/json"
	"time"

	qport "shopchat/internal/infrastructure/queue/port"
	chat "shopchat/internal/pkg/chat/application/domain"
	"shopchat/internal/pkg/chat/application/usecase"
	repoAdapter "shopchat/internal/pkg/chat/persistence/repository/adapter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Side-channel work dispatched fire-and-forget from the gateway. None of
// these tasks may influence the outcome of the request that enqueued them;
// enqueue failures are logged and dropped.
const (
	MarkReceiptsTaskType  = "chat:mark_receipts"
	NotifyMessageTaskType = "chat:notify_message"
	PurgeSweepTaskType    = "chat:purge_sweep"
)

const sideworkQueue = "chat-sidework"

// MarkReceiptsTaskPayload advances a viewer's read watermark after a
// successful read.
type MarkReceiptsTaskPayload struct {
	ConversationID string    `json:"conversationId"`
	ViewerID       string    `json:"viewerId"`
	ReadAt         time.Time `json:"readAt"`
}

// NotifyMessageTaskPayload asks the worker to dispatch a new-message
// notification to the counterpart participant. Actual delivery transport
// (mail, push) is an external collaborator.
type NotifyMessageTaskPayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	SenderID       string `json:"senderId"`
	RecipientID    string `json:"recipientId"`
	Preview        string `json:"preview"`
}

// RegisterSideChannelTasks binds the worker-side handlers. Handlers are
// idempotent: watermarks only move forward, a repeated purge finds nothing
// left to delete, and duplicate notifications are tolerated.
func RegisterSideChannelTasks(srv qport.Server, pool *pgxpool.Pool, policy chat.RetentionPolicy) {
	repo := repoAdapter.NewPgConversationRepository(pool)

	srv.Register(MarkReceiptsTaskType, func(ctx context.Context, t qport.Task) error {
		var p MarkReceiptsTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return repo.MarkMessageReceipts(ctx, p.ConversationID, p.ViewerID, p.ReadAt)
	})

	srv.Register(NotifyMessageTaskType, func(ctx context.Context, t qport.Task) error {
		var p NotifyMessageTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return err
		}
		// Delivery transport is out of scope; record the dispatch so the
		// notification service can be attached later.
		log.Info().
			Str("conversation_id", p.ConversationID).
			Str("message_id", p.MessageID).
			Str("recipient_id", p.RecipientID).
			Msg("notify: new chat message")
		return nil
	})

	purger := usecase.NewRetentionPurger(repo, policy)
	srv.Register(PurgeSweepTaskType, func(ctx context.Context, t qport.Task) error {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		n, err := purger.Run(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info().Int64("purged", n).Msg("purge sweep removed expired conversations")
		}
		return nil
	})
}

// EnqueueMarkReceipts schedules a read watermark update. Best-effort.
func EnqueueMarkReceipts(ctx context.Context, q qport.Client, conversationID, viewerID string, readAt time.Time) {
	if q == nil {
		return
	}
	enqueue(ctx, q, MarkReceiptsTaskType, MarkReceiptsTaskPayload{
		ConversationID: conversationID,
		ViewerID:       viewerID,
		ReadAt:         readAt,
	}, qport.EnqueueOption{Queue: sideworkQueue, MaxRetry: 3})
}

// EnqueueNotifyMessage schedules a new-message notification. Best-effort.
func EnqueueNotifyMessage(ctx context.Context, q qport.Client, p NotifyMessageTaskPayload) {
	if q == nil {
		return
	}
	enqueue(ctx, q, NotifyMessageTaskType, p, qport.EnqueueOption{Queue: sideworkQueue, MaxRetry: 5})
}

// EnqueuePurgeSweep schedules a deep retention sweep. The uniqueness window
// keeps concurrent gateways from piling up identical sweeps.
func EnqueuePurgeSweep(ctx context.Context, q qport.Client, every time.Duration) {
	if q == nil {
		return
	}
	enqueue(ctx, q, PurgeSweepTaskType, struct{}{}, qport.EnqueueOption{
		Queue:     sideworkQueue,
		MaxRetry:  1,
		UniqueTTL: every,
	})
}

func enqueue(ctx context.Context, q qport.Client, taskType string, payload any, opt qport.EnqueueOption) {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Str("task", taskType).Msg("sidework: encode payload failed")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := q.Enqueue(ctx, qport.Task{Type: taskType, Payload: b}, opt); err != nil {
		log.Warn().Err(err).Str("task", taskType).Msg("sidework: enqueue failed")
	}
}
