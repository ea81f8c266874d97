package models

import "time"

// User represents a registered user in the system
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Token      string    `json:"token"`
	FriendCode string    `json:"friendcode"`
	CreatedAt  time.Time `json:"created_at"`
}

// QueueStatus is the relationship state of one direction of a queue
type QueueStatus string

const (
	StatusPending  QueueStatus = "pending"
	StatusAccepted QueueStatus = "accepted"
)

// SyncCursor tracks the delivery window of one directional message queue.
// Head is the index of the last delivered message, Tail the last appended
// one; 0 <= Head <= Tail holds at all times and both only move forward.
// Timestamp records when Head last advanced, in unix milliseconds.
type SyncCursor struct {
	Status    QueueStatus `json:"status"`
	Head      int64       `json:"head"`
	Tail      int64       `json:"tail"`
	Timestamp int64       `json:"timestamp"`
	Interval  int64       `json:"interval"`
	Name      string      `json:"name"`
}

// NewSyncCursor returns a fresh pending cursor. The timestamp starts at the
// creation time so the first delivery waits out a full interval.
func NewSyncCursor(interval time.Duration, name string) SyncCursor {
	return SyncCursor{
		Status:    StatusPending,
		Timestamp: time.Now().UnixMilli(),
		Interval:  interval.Milliseconds(),
		Name:      name,
	}
}
