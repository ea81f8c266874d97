package services

import (
	"context"
	"errors"
	"time"

	"mainmuse-backend/internal/models"
	"mainmuse-backend/internal/repository"
	"mainmuse-backend/internal/store"
)

// QueueService implements the transactional queue operations. All cursor
// mutations go through the store's single-record transaction; there is no
// other serialization mechanism.
type QueueService struct {
	queues   *repository.QueueRepository
	friends  *FriendService
	userSvc  *UserService
	interval time.Duration
}

// NewQueueService creates a new queue service
func NewQueueService(
	queues *repository.QueueRepository,
	friends *FriendService,
	userSvc *UserService,
	interval time.Duration,
) *QueueService {
	return &QueueService{
		queues:   queues,
		friends:  friends,
		userSvc:  userSvc,
		interval: interval,
	}
}

// Append adds a message to the queue the sender keeps under the receiver's
// namespace, creating the queue first if needed. The tail increment is
// transactional, so concurrently assigned indices are unique and strictly
// increasing; the body write at the new index happens after the commit. A
// crash between the two leaves a reserved slot whose body readers treat as
// not yet available.
func (s *QueueService) Append(ctx context.Context, senderID, token, receiverID, message string) (int64, error) {
	if err := s.friends.EnsureQueue(ctx, senderID, token, receiverID); err != nil {
		return 0, err
	}

	final, err := s.queues.UpdateCursor(ctx, receiverID, senderID, func(cursor *models.SyncCursor) (*models.SyncCursor, error) {
		if cursor == nil {
			// The record vanished between EnsureQueue and here;
			// reinitialize before incrementing.
			fresh := models.NewSyncCursor(s.interval, "")
			cursor = &fresh
		}
		cursor.Tail++
		return cursor, nil
	})
	if err != nil {
		return 0, err
	}

	if err := s.queues.SetEntry(ctx, receiverID, senderID, final.Tail, message); err != nil {
		return 0, err
	}
	return final.Tail, nil
}

// Edit overwrites a message that has not been delivered yet. The range check
// runs inside the cursor transaction: the commit proves head < index <= tail
// held against the freshest cursor state, and only then is the body
// overwritten.
func (s *QueueService) Edit(ctx context.Context, senderID, token, receiverID string, index int64, message string) error {
	if err := store.CheckSegment(senderID); err != nil {
		return ErrInvalidID
	}
	if err := store.CheckSegment(receiverID); err != nil {
		return ErrInvalidID
	}
	if _, err := s.userSvc.Authenticate(ctx, senderID, token); err != nil {
		return err
	}

	_, err := s.queues.UpdateCursor(ctx, receiverID, senderID, func(cursor *models.SyncCursor) (*models.SyncCursor, error) {
		if cursor == nil {
			return nil, ErrQueueNotFound
		}
		if index <= cursor.Head || index > cursor.Tail {
			return nil, ErrOutOfRange
		}
		return cursor, nil
	})
	if err != nil {
		return err
	}

	return s.queues.SetEntry(ctx, receiverID, senderID, index, message)
}

// Read delivers the next message from a sender, advancing the head at most
// once per interval. When the gate has not elapsed or no new message is
// queued, the cursor is left unchanged and the entry at the current head is
// served instead; if that entry is absent the caller gets ErrNotYetAvailable
// and should retry later.
func (s *QueueService) Read(ctx context.Context, readerID, token, senderID string) (int64, string, error) {
	if err := store.CheckSegment(readerID); err != nil {
		return 0, "", ErrInvalidID
	}
	if err := store.CheckSegment(senderID); err != nil {
		return 0, "", ErrInvalidID
	}
	if _, err := s.userSvc.Authenticate(ctx, readerID, token); err != nil {
		return 0, "", err
	}

	final, err := s.queues.UpdateCursor(ctx, readerID, senderID, func(cursor *models.SyncCursor) (*models.SyncCursor, error) {
		if cursor == nil {
			return nil, ErrQueueNotFound
		}
		now := time.Now().UnixMilli()
		if canAdvance(cursor, now) {
			cursor.Head++
			cursor.Timestamp = now
		}
		return cursor, nil
	})
	if err != nil {
		return 0, "", err
	}

	message, err := s.queues.GetEntry(ctx, readerID, senderID, final.Head)
	if err != nil {
		if errors.Is(err, store.ErrNotExist) {
			return 0, "", ErrNotYetAvailable
		}
		return 0, "", err
	}
	return final.Head, message, nil
}

// canAdvance reports whether the head may move: a new message must be
// queued and the rate-limit gate must have elapsed.
func canAdvance(cursor *models.SyncCursor, nowMillis int64) bool {
	if cursor.Head >= cursor.Tail {
		return false
	}
	return nowMillis-cursor.Timestamp >= cursor.Interval
}

// ListQueued returns the window [head, tail] of the messages the caller has
// queued to the target: what the target can currently or will next see.
// Read-only; the cursor is not touched.
func (s *QueueService) ListQueued(ctx context.Context, userID, token, targetID string) (map[int64]string, error) {
	return s.list(ctx, userID, token, targetID, targetID, userID, func(cursor *models.SyncCursor, index int64) bool {
		return index >= cursor.Head && index <= cursor.Tail
	})
}

// ListReceived returns the messages a source has already delivered to the
// caller: every log entry at index <= head of the caller's inbound cursor.
func (s *QueueService) ListReceived(ctx context.Context, userID, token, sourceID string) (map[int64]string, error) {
	return s.list(ctx, userID, token, sourceID, userID, sourceID, func(cursor *models.SyncCursor, index int64) bool {
		return index <= cursor.Head
	})
}

func (s *QueueService) list(
	ctx context.Context,
	userID, token, otherID string,
	logOwner, logOther string,
	visible func(cursor *models.SyncCursor, index int64) bool,
) (map[int64]string, error) {
	if err := store.CheckSegment(userID); err != nil {
		return nil, ErrInvalidID
	}
	if err := store.CheckSegment(otherID); err != nil {
		return nil, ErrInvalidID
	}
	if _, err := s.userSvc.Authenticate(ctx, userID, token); err != nil {
		return nil, err
	}

	cursor, err := s.queues.GetCursor(ctx, logOwner, logOther)
	if err != nil {
		if errors.Is(err, store.ErrNotExist) {
			return nil, ErrQueueNotFound
		}
		return nil, err
	}

	entries, err := s.queues.Entries(ctx, logOwner, logOther)
	if err != nil {
		return nil, err
	}

	messages := make(map[int64]string)
	for index, message := range entries {
		if visible(cursor, index) {
			messages[index] = message
		}
	}
	return messages, nil
}
