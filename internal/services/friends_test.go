package services

import (
	"context"
	"testing"
	"time"

	"mainmuse-backend/internal/models"
	"mainmuse-backend/internal/repository"
	"mainmuse-backend/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFriendIsOneDirectional(t *testing.T) {
	env := newTestEnv(t, time.Hour)
	ctx := context.Background()

	alice := env.mustInitUser(t, "alice", "Alice")
	bob := env.mustInitUser(t, "bob", "Bob")

	// Bob accepts Alice's code: only Bob's inbound-from-Alice cursor flips.
	name, err := env.friends.AddFriend(ctx, "bob", bob.Token, alice.FriendCode)
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)

	cursor, err := env.queues.GetCursor(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, cursor.Status)
	assert.Equal(t, "Alice", cursor.Name)
	assert.Zero(t, cursor.Head)
	assert.Zero(t, cursor.Tail)

	// Alice's inbound-from-Bob cursor stays absent until she reciprocates.
	_, err = env.queues.GetCursor(ctx, "alice", "bob")
	assert.ErrorIs(t, err, store.ErrNotExist)

	_, err = env.friends.AddFriend(ctx, "alice", alice.Token, bob.FriendCode)
	require.NoError(t, err)
	cursor, err = env.queues.GetCursor(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, cursor.Status)
}

func TestAddFriendFlipsExistingPendingCursor(t *testing.T) {
	env := newTestEnv(t, time.Hour)
	ctx := context.Background()

	alice := env.mustInitUser(t, "alice", "Alice")
	bob := env.mustInitUser(t, "bob", "Bob")

	// Alice sends first: Bob's inbound cursor is created pending.
	_, err := env.queue.Append(ctx, "alice", alice.Token, "bob", "hello")
	require.NoError(t, err)

	cursor, err := env.queues.GetCursor(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, cursor.Status)
	assert.EqualValues(t, 1, cursor.Tail)

	// Accepting keeps the window, only the status changes.
	_, err = env.friends.AddFriend(ctx, "bob", bob.Token, alice.FriendCode)
	require.NoError(t, err)

	cursor, err = env.queues.GetCursor(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, cursor.Status)
	assert.EqualValues(t, 1, cursor.Tail)
}

func TestAddFriendErrors(t *testing.T) {
	env := newTestEnv(t, time.Hour)
	ctx := context.Background()
	alice := env.mustInitUser(t, "alice", "Alice")

	_, err := env.friends.AddFriend(ctx, "alice", alice.Token, "NOSUCH")
	assert.ErrorIs(t, err, ErrUnknownCode)

	_, err = env.friends.AddFriend(ctx, "alice", "wrong", "NOSUCH")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.friends.AddFriend(ctx, "alice", alice.Token, "BAD.CD")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestEnsureQueueCreatesPendingQueueOnce(t *testing.T) {
	env := newTestEnv(t, time.Hour)
	ctx := context.Background()

	alice := env.mustInitUser(t, "alice", "Alice")
	env.mustInitUser(t, "bob", "Bob")

	require.NoError(t, env.friends.EnsureQueue(ctx, "alice", alice.Token, "bob"))

	cursor, err := env.queues.GetCursor(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, cursor.Status)
	assert.Equal(t, "Alice", cursor.Name)
	assert.Equal(t, time.Hour.Milliseconds(), cursor.Interval)

	// The placeholder proves the log exists but is not a message.
	raw, err := env.queues.GetEntry(ctx, "bob", "alice", repository.PlaceholderIndex)
	require.NoError(t, err)
	assert.Equal(t, "placeholder", raw)

	entries, err := env.queues.Entries(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Idempotent: a second call must not reset an advanced cursor.
	_, err = env.queue.Append(ctx, "alice", alice.Token, "bob", "hi")
	require.NoError(t, err)
	require.NoError(t, env.friends.EnsureQueue(ctx, "alice", alice.Token, "bob"))

	cursor, err = env.queues.GetCursor(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1, cursor.Tail)
}

func TestEnsureQueueUnknownReceiver(t *testing.T) {
	env := newTestEnv(t, time.Hour)
	ctx := context.Background()
	alice := env.mustInitUser(t, "alice", "Alice")

	err := env.friends.EnsureQueue(ctx, "alice", alice.Token, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = env.friends.EnsureQueue(ctx, "alice", alice.Token, "gh.ost")
	assert.ErrorIs(t, err, ErrInvalidID)
}
