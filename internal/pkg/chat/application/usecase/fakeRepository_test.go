package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	chat "shopchat/internal/pkg/chat/application/domain"
	repository "shopchat/internal/pkg/chat/persistence/repository/port"
)

// fakeRepository is an in-memory ConversationRepository with the same
// contract as the postgres adapter: (nil, nil) for absent rows, conditional
// close, message saves advancing last activity.
type fakeRepository struct {
	mu            sync.Mutex
	conversations map[string]chat.Conversation
	messages      map[string][]chat.Message
	seq           int

	// failWith, when set, is returned by every method to simulate an outage.
	failWith error

	purgeCalls int
}

var _ repository.ConversationRepository = (*fakeRepository)(nil)

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		conversations: make(map[string]chat.Conversation),
		messages:      make(map[string][]chat.Message),
	}
}

func (f *fakeRepository) add(c chat.Conversation) chat.Conversation {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		f.seq++
		c.ID = fmt.Sprintf("conv-%d", f.seq)
	}
	f.conversations[c.ID] = c
	return c
}

func (f *fakeRepository) get(id string) (chat.Conversation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	return c, ok
}

func (f *fakeRepository) CreateConversation(_ context.Context, c chat.Conversation) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}
	return f.add(c).ID, nil
}

func (f *fakeRepository) FindOpenConversation(_ context.Context, tenantID, vendorUserID, customerUserID string, kind chat.ConversationKind) (*chat.Conversation, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conversations {
		if c.TenantID == tenantID && c.VendorUserID == vendorUserID && c.CustomerUserID == customerUserID && c.Kind == kind && c.ClosedAt == nil {
			cp := c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepository) GetConversationByID(_ context.Context, id string) (*chat.Conversation, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return nil, nil
	}
	cp := c
	return &cp, nil
}

func (f *fakeRepository) ListConversations(_ context.Context, tenantID string, viewer chat.Viewer, limit int) ([]chat.Conversation, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Conversation
	for _, c := range f.conversations {
		if tenantID != "" && c.TenantID != tenantID {
			continue
		}
		if !viewer.Role.IsAdmin() && !c.IsParticipant(viewer.UserID) {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRepository) CloseConversation(_ context.Context, id string, closedAt time.Time) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok || c.ClosedAt != nil {
		return false, nil
	}
	c.ClosedAt = &closedAt
	f.conversations[id] = c
	return true, nil
}

func (f *fakeRepository) SetAdminTakeover(_ context.Context, id string, enabled bool) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return errors.New("conversation not found")
	}
	c.AdminTakeover = enabled
	f.conversations[id] = c
	return nil
}

func (f *fakeRepository) SaveMessage(_ context.Context, m chat.Message) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[m.ConversationID]
	if !ok {
		return "", errors.New("conversation not found")
	}
	f.seq++
	m.ID = fmt.Sprintf("msg-%d", f.seq)
	f.messages[m.ConversationID] = append(f.messages[m.ConversationID], m)
	at := m.CreatedAt
	c.LastMessageAt = &at
	f.conversations[m.ConversationID] = c
	return m.ID, nil
}

func (f *fakeRepository) ListMessages(_ context.Context, conversationID string, limit int) ([]chat.Message, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	out := make([]chat.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (f *fakeRepository) MarkMessageReceipts(_ context.Context, conversationID, viewerID string, readAt time.Time) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[conversationID]
	if !ok {
		return nil
	}
	switch viewerID {
	case c.VendorUserID:
		c.VendorLastReadAt = &readAt
	case c.CustomerUserID:
		c.CustomerLastReadAt = &readAt
	default:
		return nil
	}
	f.conversations[conversationID] = c
	return nil
}

func (f *fakeRepository) PurgeExpired(_ context.Context, cutoff time.Time) ([]string, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purgeCalls++
	var ids []string
	for id, c := range f.conversations {
		if c.ClosedAt != nil && c.ClosedAt.Before(cutoff) {
			delete(f.conversations, id)
			delete(f.messages, id)
			ids = append(ids, id)
		}
	}
	return ids, nil
}
