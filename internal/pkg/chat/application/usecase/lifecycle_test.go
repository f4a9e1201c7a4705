package usecase

import (
	"context"
	"testing"
	"time"

	chat "shopchat/internal/pkg/chat/application/domain"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func testPolicy() chat.RetentionPolicy {
	return chat.RetentionPolicy{
		ParticipantWindow: 7 * 24 * time.Hour,
		AutoCloseAfter:    14 * 24 * time.Hour,
		AdminWindow:       30 * 24 * time.Hour,
	}
}

// newTestPipeline wires a pipeline onto the fake repository with a frozen
// clock and no snapshot cache.
func newTestPipeline(repo *fakeRepository, at time.Time) *Pipeline {
	p := NewPipeline(repo, testPolicy(), NewRetentionPurger(repo, testPolicy()), nil)
	clock := func() time.Time { return at }
	p.now = clock
	p.Trigger.now = clock
	p.Purger.now = clock
	p.Purger.Every = 0
	return p
}

func activeConversation() chat.Conversation {
	last := testNow.Add(-time.Hour)
	return chat.Conversation{
		TenantID:       "tenant-1",
		VendorUserID:   "vendor-1",
		CustomerUserID: "customer-1",
		LastMessageAt:  &last,
		CreatedAt:      testNow.Add(-72 * time.Hour),
	}
}

func closedAgo(d time.Duration) chat.Conversation {
	c := activeConversation()
	closedAt := testNow.Add(-d)
	c.ClosedAt = &closedAt
	return c
}

var (
	customer = chat.Viewer{UserID: "customer-1", Role: chat.RoleCustomer}
	vendor   = chat.Viewer{UserID: "vendor-1", Role: chat.RoleVendor}
	admin    = chat.Viewer{UserID: "admin-1", Role: chat.RoleAdmin}
)

func TestAutoCloseTriggerClosesInactiveExactlyOnce(t *testing.T) {
	repo := newFakeRepository()
	stale := activeConversation()
	last := testNow.Add(-15 * 24 * time.Hour)
	stale.LastMessageAt = &last
	stale = repo.add(stale)

	trigger := NewAutoCloseTrigger(repo, testPolicy())
	trigger.now = func() time.Time { return testNow }

	loaded, err := repo.GetConversationByID(context.Background(), stale.ID)
	require.NoError(t, err)

	changed, err := trigger.Run(context.Background(), loaded)
	require.NoError(t, err)
	require.True(t, changed)

	after, _ := repo.get(stale.ID)
	require.NotNil(t, after.ClosedAt)
	require.Equal(t, testNow, *after.ClosedAt)

	// Second run sees the closed row and does not touch closed_at.
	loaded, err = repo.GetConversationByID(context.Background(), stale.ID)
	require.NoError(t, err)
	changed, err = trigger.Run(context.Background(), loaded)
	require.NoError(t, err)
	require.False(t, changed)

	again, _ := repo.get(stale.ID)
	require.Equal(t, testNow, *again.ClosedAt)
}

func TestAutoCloseTriggerLeavesActiveConversationsAlone(t *testing.T) {
	repo := newFakeRepository()
	conv := repo.add(activeConversation())

	trigger := NewAutoCloseTrigger(repo, testPolicy())
	trigger.now = func() time.Time { return testNow }

	loaded, err := repo.GetConversationByID(context.Background(), conv.ID)
	require.NoError(t, err)
	changed, err := trigger.Run(context.Background(), loaded)
	require.NoError(t, err)
	require.False(t, changed)

	after, _ := repo.get(conv.ID)
	require.Nil(t, after.ClosedAt)
}

func TestRetentionPurgerDeletesOnlyExpired(t *testing.T) {
	repo := newFakeRepository()
	expired := repo.add(closedAgo(31 * 24 * time.Hour))
	recent := repo.add(closedAgo(5 * 24 * time.Hour))
	open := repo.add(activeConversation())

	_, err := repo.SaveMessage(context.Background(), chat.Message{
		ConversationID: expired.ID, SenderID: "customer-1", Body: "old", CreatedAt: testNow.Add(-40 * 24 * time.Hour),
	})
	require.NoError(t, err)

	purger := NewRetentionPurger(repo, testPolicy())
	purger.now = func() time.Time { return testNow }

	n, err := purger.Run(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, gone := repo.get(expired.ID)
	require.False(t, gone, "expired conversation must be deleted")
	require.Empty(t, repo.messages[expired.ID], "messages must go with the conversation")

	_, ok := repo.get(recent.ID)
	require.True(t, ok, "recently closed stays for the admin window")
	_, ok = repo.get(open.ID)
	require.True(t, ok, "open conversations are never purged")
}

func TestRetentionPurgerBestEffortThrottles(t *testing.T) {
	repo := newFakeRepository()
	purger := NewRetentionPurger(repo, testPolicy())
	purger.Every = time.Hour

	purger.RunBestEffort(context.Background())
	purger.RunBestEffort(context.Background())
	purger.RunBestEffort(context.Background())

	require.Equal(t, 1, repo.purgeCalls)
}

func TestRetentionPurgerBestEffortSwallowsFailures(t *testing.T) {
	repo := newFakeRepository()
	repo.failWith = context.DeadlineExceeded
	purger := NewRetentionPurger(repo, testPolicy())
	purger.Every = 0

	// Must not panic or surface the error.
	purger.RunBestEffort(context.Background())
}

func TestPipelineResolveUnknownConversation(t *testing.T) {
	p := newTestPipeline(newFakeRepository(), testNow)

	_, _, err := p.Resolve(context.Background(), "missing", customer)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPipelineResolveRejectsOutsiders(t *testing.T) {
	repo := newFakeRepository()
	conv := repo.add(activeConversation())
	p := newTestPipeline(repo, testNow)

	_, _, err := p.Resolve(context.Background(), conv.ID, chat.Viewer{UserID: "stranger", Role: chat.RoleCustomer})
	require.ErrorIs(t, err, chat.ErrNotParticipant)

	// Admins pass the participant gate without holding a slot.
	_, state, err := p.Resolve(context.Background(), conv.ID, admin)
	require.NoError(t, err)
	require.True(t, state.CanView)
}

func TestPipelineResolveAutoClosesInactiveThread(t *testing.T) {
	repo := newFakeRepository()
	stale := activeConversation()
	last := testNow.Add(-20 * 24 * time.Hour)
	stale.LastMessageAt = &last
	stale = repo.add(stale)

	p := newTestPipeline(repo, testNow)

	conv, state, err := p.Resolve(context.Background(), stale.ID, customer)
	require.NoError(t, err)
	require.True(t, state.IsClosed)
	require.NotNil(t, conv.ClosedAt)
	require.True(t, state.CanView, "participant window starts at the transition")
	require.False(t, state.CanSend)
}

func TestPipelineResolvePurgesBeforeLoading(t *testing.T) {
	repo := newFakeRepository()
	expired := repo.add(closedAgo(31 * 24 * time.Hour))
	p := newTestPipeline(repo, testNow)

	// Even an admin gets a 404-shaped answer once retention has run out.
	_, _, err := p.Resolve(context.Background(), expired.ID, admin)
	require.ErrorIs(t, err, ErrNotFound)
	_, ok := repo.get(expired.ID)
	require.False(t, ok)
}

func TestSendMessageHappyPath(t *testing.T) {
	repo := newFakeRepository()
	conv := repo.add(activeConversation())
	p := newTestPipeline(repo, testNow)
	uc := NewSendMessageUseCase(p)
	uc.now = func() time.Time { return testNow }

	res, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: conv.ID,
		Viewer:         customer,
		Body:           "Hello",
	})
	require.NoError(t, err)
	require.Equal(t, "Hello", res.Message.Body)
	require.NotEmpty(t, res.Message.ID)
	require.True(t, res.State.CanSend)

	stored, _ := repo.get(conv.ID)
	require.NotNil(t, stored.LastMessageAt)
	require.Equal(t, testNow, *stored.LastMessageAt)

	msgs, err := repo.ListMessages(context.Background(), conv.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "customer-1", msgs[0].SenderID)
}

func TestSendMessageIntoClosedConversation(t *testing.T) {
	repo := newFakeRepository()
	conv := repo.add(closedAgo(24 * time.Hour))
	p := newTestPipeline(repo, testNow)
	uc := NewSendMessageUseCase(p)
	uc.now = func() time.Time { return testNow }

	res, err := uc.Execute(context.Background(), SendMessageInput{
		ConversationID: conv.ID,
		Viewer:         customer,
		Body:           "anyone there?",
	})
	require.ErrorIs(t, err, chat.ErrConversationClosed)
	require.NotNil(t, res)
	require.Equal(t, "This chat is closed and will disappear in 7 days.", res.State.ParticipantNotice)

	msgs, _ := repo.ListMessages(context.Background(), conv.ID, 10)
	require.Empty(t, msgs, "rejected sends must not persist")
}

func TestSendMessageVendorLockedOutDuringTakeover(t *testing.T) {
	repo := newFakeRepository()
	conv := activeConversation()
	conv.AdminTakeover = true
	conv = repo.add(conv)
	p := newTestPipeline(repo, testNow)
	uc := NewSendMessageUseCase(p)
	uc.now = func() time.Time { return testNow }

	_, err := uc.Execute(context.Background(), SendMessageInput{ConversationID: conv.ID, Viewer: vendor, Body: "hi"})
	require.ErrorIs(t, err, chat.ErrVendorLockedOut)

	// The customer side is unaffected.
	_, err = uc.Execute(context.Background(), SendMessageInput{ConversationID: conv.ID, Viewer: customer, Body: "hi"})
	require.NoError(t, err)

	// And so is the admin who holds the takeover.
	_, err = uc.Execute(context.Background(), SendMessageInput{ConversationID: conv.ID, Viewer: admin, Body: "support here"})
	require.NoError(t, err)
}

func TestSendMessageAdminNeedsTakeover(t *testing.T) {
	repo := newFakeRepository()
	conv := repo.add(activeConversation())
	p := newTestPipeline(repo, testNow)
	uc := NewSendMessageUseCase(p)
	uc.now = func() time.Time { return testNow }

	_, err := uc.Execute(context.Background(), SendMessageInput{ConversationID: conv.ID, Viewer: admin, Body: "hi"})
	require.ErrorIs(t, err, chat.ErrNotParticipant)
}

func TestSendMessageValidatesBody(t *testing.T) {
	repo := newFakeRepository()
	conv := repo.add(activeConversation())
	p := newTestPipeline(repo, testNow)
	uc := NewSendMessageUseCase(p)
	uc.now = func() time.Time { return testNow }

	_, err := uc.Execute(context.Background(), SendMessageInput{ConversationID: conv.ID, Viewer: customer, Body: "   "})
	require.ErrorIs(t, err, chat.ErrEmptyMessage)
}

func TestGetMessagesVisibilityWindows(t *testing.T) {
	repo := newFakeRepository()
	conv := repo.add(closedAgo(8 * 24 * time.Hour))
	p := newTestPipeline(repo, testNow)
	uc := NewGetMessagesUseCase(p)

	// Eight days past closing with a seven day participant window: the
	// customer's view is gone, indistinguishable from a missing thread.
	_, err := uc.Execute(context.Background(), GetMessagesInput{ConversationID: conv.ID, Viewer: customer, Limit: 50})
	require.ErrorIs(t, err, ErrNotFound)

	res, err := uc.Execute(context.Background(), GetMessagesInput{ConversationID: conv.ID, Viewer: admin, Limit: 50})
	require.NoError(t, err)
	require.True(t, res.State.IsClosed)
	require.False(t, res.State.CanSend)
}

func TestOpenConversationCreatesThenReuses(t *testing.T) {
	repo := newFakeRepository()
	uc := NewOpenConversationUseCase(repo)
	uc.now = func() time.Time { return testNow }

	in := OpenConversationInput{
		TenantID:       "tenant-1",
		VendorUserID:   "vendor-1",
		CustomerUserID: "customer-1",
		Caller:         customer,
	}

	first, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)
	require.True(t, first.Created)
	require.NotEmpty(t, first.Conversation.ID)

	second, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.Conversation.ID, second.Conversation.ID)
}

func TestOpenConversationClosedThreadIsNotReused(t *testing.T) {
	repo := newFakeRepository()
	repo.add(closedAgo(24 * time.Hour))
	uc := NewOpenConversationUseCase(repo)
	uc.now = func() time.Time { return testNow }

	res, err := uc.Execute(context.Background(), OpenConversationInput{
		TenantID:       "tenant-1",
		VendorUserID:   "vendor-1",
		CustomerUserID: "customer-1",
		Caller:         customer,
	})
	require.NoError(t, err)
	require.True(t, res.Created, "a closed thread stays closed; first contact starts over")
}

func TestOpenConversationEnforcesCallerSlot(t *testing.T) {
	repo := newFakeRepository()
	uc := NewOpenConversationUseCase(repo)

	_, err := uc.Execute(context.Background(), OpenConversationInput{
		TenantID:       "tenant-1",
		VendorUserID:   "vendor-1",
		CustomerUserID: "customer-1",
		Caller:         chat.Viewer{UserID: "customer-2", Role: chat.RoleCustomer},
	})
	require.ErrorIs(t, err, chat.ErrNotParticipant)

	_, err = uc.Execute(context.Background(), OpenConversationInput{
		TenantID:       "tenant-1",
		VendorUserID:   "vendor-1",
		CustomerUserID: "customer-1",
		Kind:           chat.KindSupport,
		Caller:         admin,
	})
	require.NoError(t, err, "admins open help center threads on behalf of customers")
}

func TestListConversationsDropsInvisibleRows(t *testing.T) {
	repo := newFakeRepository()
	open := repo.add(activeConversation())
	visible := repo.add(closedAgo(2 * 24 * time.Hour))
	hidden := repo.add(closedAgo(10 * 24 * time.Hour))

	p := newTestPipeline(repo, testNow)
	p.Purger.Every = time.Hour // keep the purge from racing this listing
	uc := NewListConversationsUseCase(p)
	uc.now = func() time.Time { return testNow }

	entries, err := uc.Execute(context.Background(), ListConversationsInput{TenantID: "tenant-1", Viewer: customer, Limit: 50})
	require.NoError(t, err)

	ids := make(map[string]bool, len(entries))
	for _, e := range entries {
		ids[e.Conversation.ID] = true
	}
	require.True(t, ids[open.ID])
	require.True(t, ids[visible.ID])
	require.False(t, ids[hidden.ID], "rows past the participant window never reach the wire")

	// The admin inbox still carries the row the customer lost.
	entries, err = uc.Execute(context.Background(), ListConversationsInput{TenantID: "tenant-1", Viewer: admin, Limit: 50})
	require.NoError(t, err)
	ids = make(map[string]bool, len(entries))
	for _, e := range entries {
		ids[e.Conversation.ID] = true
	}
	require.True(t, ids[hidden.ID])
}

func TestCloseConversationIsIdempotent(t *testing.T) {
	repo := newFakeRepository()
	conv := repo.add(activeConversation())
	p := newTestPipeline(repo, testNow)
	uc := NewCloseConversationUseCase(p)
	uc.now = func() time.Time { return testNow }

	first, err := uc.Execute(context.Background(), CloseConversationInput{ConversationID: conv.ID, Viewer: vendor})
	require.NoError(t, err)
	require.True(t, first.Changed)
	require.True(t, first.State.IsClosed)
	require.NotNil(t, first.Conversation.ClosedAt)

	second, err := uc.Execute(context.Background(), CloseConversationInput{ConversationID: conv.ID, Viewer: vendor})
	require.NoError(t, err)
	require.False(t, second.Changed)
	require.Equal(t, *first.Conversation.ClosedAt, *second.Conversation.ClosedAt)
}

func TestTakeoverTogglesFlag(t *testing.T) {
	repo := newFakeRepository()
	conv := repo.add(activeConversation())
	p := newTestPipeline(repo, testNow)
	uc := NewTakeoverUseCase(p)
	uc.now = func() time.Time { return testNow }

	_, err := uc.Execute(context.Background(), TakeoverInput{ConversationID: conv.ID, Viewer: vendor, Enabled: true})
	require.ErrorIs(t, err, chat.ErrNotParticipant, "takeover is admin-only")

	res, err := uc.Execute(context.Background(), TakeoverInput{ConversationID: conv.ID, Viewer: admin, Enabled: true})
	require.NoError(t, err)
	require.True(t, res.Conversation.AdminTakeover)

	stored, _ := repo.get(conv.ID)
	require.True(t, stored.AdminTakeover)

	res, err = uc.Execute(context.Background(), TakeoverInput{ConversationID: conv.ID, Viewer: admin, Enabled: false})
	require.NoError(t, err)
	require.False(t, res.Conversation.AdminTakeover)
}

func TestJoinConversationGatesRealtimeAccess(t *testing.T) {
	repo := newFakeRepository()
	conv := repo.add(activeConversation())
	hidden := repo.add(closedAgo(8 * 24 * time.Hour))

	p := newTestPipeline(repo, testNow)
	p.Purger.Every = time.Hour
	uc := NewJoinConversationUseCase(p)

	require.NoError(t, uc.Execute(context.Background(), JoinConversationInput{ConversationID: conv.ID, Viewer: customer}))

	err := uc.Execute(context.Background(), JoinConversationInput{ConversationID: hidden.ID, Viewer: customer})
	require.ErrorIs(t, err, ErrNotFound)

	err = uc.Execute(context.Background(), JoinConversationInput{ConversationID: conv.ID, Viewer: chat.Viewer{UserID: "stranger", Role: chat.RoleVendor}})
	require.ErrorIs(t, err, chat.ErrNotParticipant)
}
