package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bazaar/internal/domain"
	"bazaar/internal/store/sqlite"
)

func newMessageService(t *testing.T) (*MessageService, *testMessageDeps) {
	t.Helper()
	db := newTestDB(t)
	deps := &testMessageDeps{
		alice: seedUser(t, db, "alice"),
		bob:   seedUser(t, db, "bob"),
	}
	svc := NewMessageService(sqlite.NewMessageRepo(db), sqlite.NewUserRepo(db), sqlite.NewProductRepo(db))
	return svc, deps
}

type testMessageDeps struct {
	alice *domain.User
	bob   *domain.User
}

func TestSendTrimsContent(t *testing.T) {
	svc, deps := newMessageService(t)

	msg, err := svc.Send(context.Background(), deps.alice.ID, deps.bob.ID, nil, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.False(t, msg.IsRead)
	assert.False(t, msg.CreatedAt.IsZero())
}

func TestSendRejectsBlankContent(t *testing.T) {
	svc, deps := newMessageService(t)

	_, err := svc.Send(context.Background(), deps.alice.ID, deps.bob.ID, nil, "   \n\t ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSendRequiresExistingRecipient(t *testing.T) {
	svc, deps := newMessageService(t)

	_, err := svc.Send(context.Background(), deps.alice.ID, 9999, nil, "hello")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSendToleratesDanglingProduct(t *testing.T) {
	svc, deps := newMessageService(t)

	gone := int64(4242)
	msg, err := svc.Send(context.Background(), deps.alice.ID, deps.bob.ID, &gone, "about that thing")
	require.NoError(t, err)
	assert.Nil(t, msg.ProductID)
}

func TestHistoryMarksPartnerMessagesRead(t *testing.T) {
	svc, deps := newMessageService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, deps.alice.ID, deps.bob.ID, nil, "one")
	require.NoError(t, err)
	_, err = svc.Send(ctx, deps.bob.ID, deps.alice.ID, nil, "two")
	require.NoError(t, err)
	_, err = svc.Send(ctx, deps.alice.ID, deps.bob.ID, nil, "three")
	require.NoError(t, err)

	// Bob opens the conversation: chronological, both directions.
	msgs, err := svc.History(ctx, deps.bob.ID, deps.alice.ID, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)
	assert.Equal(t, "three", msgs[2].Content)

	// Alice's messages to bob are now read; bob's own stay untouched.
	msgs, err = svc.History(ctx, deps.alice.ID, deps.bob.ID, nil)
	require.NoError(t, err)
	for _, m := range msgs {
		if m.SenderID == deps.alice.ID {
			assert.True(t, m.IsRead, "message %q", m.Content)
		} else {
			assert.False(t, m.IsRead, "message %q", m.Content)
		}
	}
}

func TestUnreadCountIsCumulative(t *testing.T) {
	svc, deps := newMessageService(t)
	ctx := context.Background()

	for _, content := range []string{"a", "b", "c"} {
		_, err := svc.Send(ctx, deps.alice.ID, deps.bob.ID, nil, content)
		require.NoError(t, err)
	}

	count, err := svc.UnreadCount(ctx, deps.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// Reading the conversation does not decrease the badge; it counts all
	// messages ever addressed to the user.
	_, err = svc.History(ctx, deps.bob.ID, deps.alice.ID, nil)
	require.NoError(t, err)

	count, err = svc.UnreadCount(ctx, deps.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", Snippet("short"))

	exact := strings.Repeat("a", 140)
	assert.Equal(t, exact, Snippet(exact))

	long := strings.Repeat("b", 141)
	assert.Equal(t, strings.Repeat("b", 140)+"...", Snippet(long))

	// Truncation counts runes, not bytes.
	wide := strings.Repeat("é", 150)
	assert.Equal(t, strings.Repeat("é", 140)+"...", Snippet(wide))
}
