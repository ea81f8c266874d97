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

type testEnv struct {
	store   *store.Memory
	users   *repository.UserRepository
	queues  *repository.QueueRepository
	userSvc *UserService
	friends *FriendService
	queue   *QueueService
}

func newTestEnv(t *testing.T, interval time.Duration) *testEnv {
	t.Helper()
	st := store.NewMemory()
	users := repository.NewUserRepository(st)
	queues := repository.NewQueueRepository(st)
	userSvc := NewUserService(users)
	friends := NewFriendService(users, queues, userSvc, interval)
	queue := NewQueueService(queues, friends, userSvc, interval)
	return &testEnv{
		store:   st,
		users:   users,
		queues:  queues,
		userSvc: userSvc,
		friends: friends,
		queue:   queue,
	}
}

func (e *testEnv) mustInitUser(t *testing.T, id, name string) *models.User {
	t.Helper()
	user, created, err := e.userSvc.InitUser(context.Background(), id, name, id+"@example.com")
	require.NoError(t, err)
	require.True(t, created)
	return user
}

func TestInitUserCreatesCredentials(t *testing.T) {
	env := newTestEnv(t, 0)

	user := env.mustInitUser(t, "alice", "Alice")
	assert.Equal(t, "alice", user.ID)
	assert.Equal(t, "Alice", user.Name)
	assert.Len(t, user.Token, 24)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, user.FriendCode)

	resolved, err := env.users.ResolveCode(context.Background(), user.FriendCode)
	require.NoError(t, err)
	assert.Equal(t, "alice", resolved)
}

func TestInitUserIsIdempotent(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()

	first := env.mustInitUser(t, "alice", "Alice")

	second, created, err := env.userSvc.InitUser(ctx, "alice", "Someone Else", "other@example.com")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.Token, second.Token)
	assert.Equal(t, first.FriendCode, second.FriendCode)
	assert.Equal(t, "Alice", second.Name)

	// The directory still holds exactly the original entry.
	resolved, err := env.users.ResolveCode(ctx, first.FriendCode)
	require.NoError(t, err)
	assert.Equal(t, "alice", resolved)
}

func TestInitUserRejectsInvalidID(t *testing.T) {
	env := newTestEnv(t, 0)

	for _, id := range []string{"al.ice", "al#ice", "al[ice]", "al$ice", "al,ice", "al/ice"} {
		_, _, err := env.userSvc.InitUser(context.Background(), id, "Name", "e@example.com")
		assert.ErrorIs(t, err, ErrInvalidID, "id %q should be rejected", id)
	}
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	user := env.mustInitUser(t, "alice", "Alice")

	name, err := env.userSvc.Authenticate(ctx, "alice", user.Token)
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)

	_, err = env.userSvc.Authenticate(ctx, "alice", "wrong-token")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.userSvc.Authenticate(ctx, "nobody", user.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.userSvc.Authenticate(ctx, "al.ice", user.Token)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestGetUser(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	user := env.mustInitUser(t, "alice", "Alice")

	got, err := env.userSvc.GetUser(ctx, "alice", user.Token)
	require.NoError(t, err)
	assert.Equal(t, user.FriendCode, got.FriendCode)
	assert.Equal(t, user.Token, got.Token)

	_, err = env.userSvc.GetUser(ctx, "alice", "bad")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
