package usecase

import (
	"context"
	"fmt"
	"time"

	chat "shopchat/internal/pkg/chat/application/domain"
)

// SendMessageInput carries the data needed to post a new message.
type SendMessageInput struct {
	ConversationID string
	Viewer         chat.Viewer
	Body           string
}

// SendMessageResult returns the persisted message together with the refreshed
// conversation state. On permission errors the result is still populated when
// the conversation resolved, so callers can surface the participant notice.
type SendMessageResult struct {
	Conversation chat.Conversation
	State        chat.ClosureState
	Message      chat.Message
}

// SendMessageUseCase runs the gateway send pipeline on top of Pipeline's
// shared steps:
//   - closed conversations reject every non-admin send permanently
//   - vendors are locked out while admin takeover is enabled, closed or not
//   - admins may only send into a takeover they hold
type SendMessageUseCase struct {
	Pipeline *Pipeline

	now func() time.Time
}

func NewSendMessageUseCase(p *Pipeline) *SendMessageUseCase {
	return &SendMessageUseCase{Pipeline: p, now: func() time.Time { return time.Now().UTC() }}
}

func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*SendMessageResult, error) {
	if in.ConversationID == "" || in.Viewer.UserID == "" {
		return nil, fmt.Errorf("conversationId and sender are required")
	}

	conv, state, err := uc.Pipeline.Resolve(ctx, in.ConversationID, in.Viewer)
	if err != nil {
		return nil, err
	}

	res := &SendMessageResult{Conversation: *conv, State: state}

	if state.IsClosed {
		return res, chat.ErrConversationClosed
	}
	if in.Viewer.Role.IsVendor() && conv.AdminTakeover {
		return res, chat.ErrVendorLockedOut
	}
	if in.Viewer.Role.IsAdmin() && !conv.AdminTakeover {
		// Admins are not participants; without a takeover they read, not write.
		return res, chat.ErrNotParticipant
	}
	if !state.CanSend {
		return res, chat.ErrConversationClosed
	}

	msg, err := chat.NewMessage(chat.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.Viewer.UserID,
		Body:           in.Body,
		CreatedAt:      uc.now(),
	})
	if err != nil {
		return res, err
	}

	id, err := uc.Pipeline.Repo.SaveMessage(ctx, *msg)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	msg.ID = id

	// Keep the returned snapshot in step with what was just written.
	conv.LastMessageAt = &msg.CreatedAt
	uc.Pipeline.Snapshots.Drop(ctx, conv.ID)

	res.Conversation = *conv
	res.State = chat.EvaluateClosure(*conv, in.Viewer, uc.now(), uc.Pipeline.Policy)
	res.Message = *msg
	return res, nil
}
