package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	chat "shopchat/internal/pkg/chat/application/domain"
	repository "shopchat/internal/pkg/chat/persistence/repository/port"
)

// stubRepository backs the handler tests with an in-memory store honoring the
// repository contract: (nil, nil) for absent rows and a conditional close.
type stubRepository struct {
	mu            sync.Mutex
	conversations map[string]chat.Conversation
	messages      map[string][]chat.Message
	seq           int
}

var _ repository.ConversationRepository = (*stubRepository)(nil)

func newStubRepository() *stubRepository {
	return &stubRepository{
		conversations: make(map[string]chat.Conversation),
		messages:      make(map[string][]chat.Message),
	}
}

func (s *stubRepository) add(c chat.Conversation) chat.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		s.seq++
		c.ID = fmt.Sprintf("conv-%d", s.seq)
	}
	s.conversations[c.ID] = c
	return c
}

func (s *stubRepository) CreateConversation(_ context.Context, c chat.Conversation) (string, error) {
	return s.add(c).ID, nil
}

func (s *stubRepository) FindOpenConversation(_ context.Context, tenantID, vendorUserID, customerUserID string, kind chat.ConversationKind) (*chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.TenantID == tenantID && c.VendorUserID == vendorUserID && c.CustomerUserID == customerUserID && c.Kind == kind && c.ClosedAt == nil {
			cp := c
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubRepository) GetConversationByID(_ context.Context, id string) (*chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, nil
	}
	cp := c
	return &cp, nil
}

func (s *stubRepository) ListConversations(_ context.Context, tenantID string, viewer chat.Viewer, limit int) ([]chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []chat.Conversation
	for _, c := range s.conversations {
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

func (s *stubRepository) CloseConversation(_ context.Context, id string, closedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok || c.ClosedAt != nil {
		return false, nil
	}
	c.ClosedAt = &closedAt
	s.conversations[id] = c
	return true, nil
}

func (s *stubRepository) SetAdminTakeover(_ context.Context, id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return errors.New("conversation not found")
	}
	c.AdminTakeover = enabled
	s.conversations[id] = c
	return nil
}

func (s *stubRepository) SaveMessage(_ context.Context, m chat.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[m.ConversationID]
	if !ok {
		return "", errors.New("conversation not found")
	}
	s.seq++
	m.ID = fmt.Sprintf("msg-%d", s.seq)
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], m)
	at := m.CreatedAt
	c.LastMessageAt = &at
	s.conversations[m.ConversationID] = c
	return m.ID, nil
}

func (s *stubRepository) ListMessages(_ context.Context, conversationID string, limit int) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	out := make([]chat.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *stubRepository) MarkMessageReceipts(_ context.Context, conversationID, viewerID string, readAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[conversationID]
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
	s.conversations[conversationID] = c
	return nil
}

func (s *stubRepository) PurgeExpired(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, c := range s.conversations {
		if c.ClosedAt != nil && c.ClosedAt.Before(cutoff) {
			delete(s.conversations, id)
			delete(s.messages, id)
			ids = append(ids, id)
		}
	}
	return ids, nil
}
