package services

import (
	"context"
	"errors"
	"time"

	"mainmuse-backend/internal/models"
	"mainmuse-backend/internal/repository"
	"mainmuse-backend/internal/store"
)

// FriendService orchestrates the friend-request handshake and lazy queue
// creation. Each direction of a relationship is independent: accepting a
// friend only ever touches the caller's own inbound cursor, so a fully
// mutual relationship needs both friend codes to be exchanged.
type FriendService struct {
	users    *repository.UserRepository
	queues   *repository.QueueRepository
	userSvc  *UserService
	interval time.Duration
}

// NewFriendService creates a new friend service
func NewFriendService(
	users *repository.UserRepository,
	queues *repository.QueueRepository,
	userSvc *UserService,
	interval time.Duration,
) *FriendService {
	return &FriendService{
		users:    users,
		queues:   queues,
		userSvc:  userSvc,
		interval: interval,
	}
}

// AddFriend resolves the friend code and marks the caller's inbound cursor
// from that user as accepted, creating it if absent. Returns the friend's
// display name.
func (s *FriendService) AddFriend(ctx context.Context, userID, token, friendCode string) (string, error) {
	if err := store.CheckSegment(userID); err != nil {
		return "", ErrInvalidID
	}
	if err := store.CheckSegment(friendCode); err != nil {
		return "", ErrInvalidID
	}

	if _, err := s.userSvc.Authenticate(ctx, userID, token); err != nil {
		return "", err
	}

	otherID, err := s.users.ResolveCode(ctx, friendCode)
	if err != nil {
		if errors.Is(err, store.ErrNotExist) {
			return "", ErrUnknownCode
		}
		return "", err
	}

	other, err := s.users.Get(ctx, otherID)
	if err != nil {
		if errors.Is(err, store.ErrNotExist) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	_, err = s.queues.UpdateCursor(ctx, userID, otherID, func(cursor *models.SyncCursor) (*models.SyncCursor, error) {
		if cursor == nil {
			fresh := models.NewSyncCursor(s.interval, other.Name)
			fresh.Status = models.StatusAccepted
			return &fresh, nil
		}
		cursor.Status = models.StatusAccepted
		return cursor, nil
	})
	if err != nil {
		return "", err
	}
	return other.Name, nil
}

// EnsureQueue lazily creates, under the receiver's namespace, a pending
// cursor keyed by the sender together with an initialized message log.
// A no-op when the queue already exists.
func (s *FriendService) EnsureQueue(ctx context.Context, senderID, token, receiverID string) error {
	if err := store.CheckSegment(senderID); err != nil {
		return ErrInvalidID
	}
	if err := store.CheckSegment(receiverID); err != nil {
		return ErrInvalidID
	}

	senderName, err := s.userSvc.Authenticate(ctx, senderID, token)
	if err != nil {
		return err
	}

	if _, err := s.queues.GetCursor(ctx, receiverID, senderID); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotExist) {
		return err
	}

	if _, err := s.users.Get(ctx, receiverID); err != nil {
		if errors.Is(err, store.ErrNotExist) {
			return ErrUserNotFound
		}
		return err
	}

	return s.queues.InitQueue(ctx, receiverID, senderID, models.NewSyncCursor(s.interval, senderName))
}
