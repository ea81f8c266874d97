package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"mainmuse-backend/internal/models"
	"mainmuse-backend/internal/store"
)

// PlaceholderIndex is written to a fresh message log to prove the log node
// exists. It must never be served as a real message.
const PlaceholderIndex int64 = -1

const placeholderValue = "placeholder"

// QueueRepository handles sync cursors and message logs. Both live under
// the queue owner's namespace: the cursor for (owner reading from other) is
// stored at users/{owner}/queues/{other}/sync, its log entries at
// users/{owner}/messages/{other}/log/{index}.
type QueueRepository struct {
	store store.Store
}

// NewQueueRepository creates a new queue repository
func NewQueueRepository(st store.Store) *QueueRepository {
	return &QueueRepository{store: st}
}

func syncPath(owner, other string) (store.Path, error) {
	return store.NewPath("users", owner, "queues", other, "sync")
}

func logPath(owner, other string) (store.Path, error) {
	return store.NewPath("users", owner, "messages", other, "log")
}

func entryPath(owner, other string, index int64) (store.Path, error) {
	p, err := logPath(owner, other)
	if err != nil {
		return store.Path{}, err
	}
	return p.Child(strconv.FormatInt(index, 10))
}

// GetCursor reads the sync cursor for (owner reading from other)
func (r *QueueRepository) GetCursor(ctx context.Context, owner, other string) (*models.SyncCursor, error) {
	p, err := syncPath(owner, other)
	if err != nil {
		return nil, err
	}
	raw, err := r.store.Get(ctx, p)
	if err != nil {
		return nil, err
	}
	var cursor models.SyncCursor
	if err := json.Unmarshal(raw, &cursor); err != nil {
		return nil, fmt.Errorf("failed to decode sync cursor: %w", err)
	}
	return &cursor, nil
}

// InitQueue writes a fresh cursor and the placeholder log entry. It does not
// check for an existing queue; callers decide when creation is due.
func (r *QueueRepository) InitQueue(ctx context.Context, owner, other string, cursor models.SyncCursor) error {
	sp, err := syncPath(owner, other)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(cursor)
	if err != nil {
		return fmt.Errorf("failed to encode sync cursor: %w", err)
	}
	if err := r.store.Set(ctx, sp, raw); err != nil {
		return fmt.Errorf("failed to create queue: %w", err)
	}
	ep, err := entryPath(owner, other, PlaceholderIndex)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, ep, []byte(placeholderValue)); err != nil {
		return fmt.Errorf("failed to create message log: %w", err)
	}
	return nil
}

// UpdateCursor runs fn inside a store transaction on the cursor record.
// fn receives nil when no cursor exists and returns the cursor to commit;
// returning store.ErrAbort aborts cleanly, any other error aborts and is
// propagated. The committed cursor is returned on success.
func (r *QueueRepository) UpdateCursor(
	ctx context.Context,
	owner, other string,
	fn func(cursor *models.SyncCursor) (*models.SyncCursor, error),
) (*models.SyncCursor, error) {
	p, err := syncPath(owner, other)
	if err != nil {
		return nil, err
	}

	committed, final, err := r.store.Transact(ctx, p, func(current []byte) ([]byte, error) {
		var cursor *models.SyncCursor
		if current != nil {
			cursor = &models.SyncCursor{}
			if err := json.Unmarshal(current, cursor); err != nil {
				return nil, fmt.Errorf("failed to decode sync cursor: %w", err)
			}
		}
		next, err := fn(cursor)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("failed to encode sync cursor: %w", err)
		}
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	if !committed {
		return nil, store.ErrTxnFailed
	}

	var cursor models.SyncCursor
	if err := json.Unmarshal(final, &cursor); err != nil {
		return nil, fmt.Errorf("failed to decode sync cursor: %w", err)
	}
	return &cursor, nil
}

// GetEntry reads one message blob from the log of (owner reading from other)
func (r *QueueRepository) GetEntry(ctx context.Context, owner, other string, index int64) (string, error) {
	p, err := entryPath(owner, other, index)
	if err != nil {
		return "", err
	}
	raw, err := r.store.Get(ctx, p)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// SetEntry writes one message blob. The blob is opaque to the store.
func (r *QueueRepository) SetEntry(ctx context.Context, owner, other string, index int64, message string) error {
	p, err := entryPath(owner, other, index)
	if err != nil {
		return err
	}
	if err := r.store.Set(ctx, p, []byte(message)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Entries returns the whole message log keyed by index. The placeholder
// entry is excluded.
func (r *QueueRepository) Entries(ctx context.Context, owner, other string) (map[int64]string, error) {
	p, err := logPath(owner, other)
	if err != nil {
		return nil, err
	}
	children, err := r.store.Children(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to list message log: %w", err)
	}
	entries := make(map[int64]string, len(children))
	for key, value := range children {
		index, err := strconv.ParseInt(key, 10, 64)
		if err != nil || index < 0 {
			continue
		}
		entries[index] = string(value)
	}
	return entries, nil
}
