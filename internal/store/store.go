package store

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotExist is returned by Get when no record is stored at the path.
	ErrNotExist = errors.New("record does not exist")

	// ErrInvalidSegment is returned when a path segment contains characters
	// reserved by the store addressing scheme.
	ErrInvalidSegment = errors.New("path segment contains reserved characters")

	// ErrAbort can be returned from a TxnFunc to abort the transaction
	// without writing anything.
	ErrAbort = errors.New("transaction aborted")

	// ErrTxnFailed is returned when a transaction could not commit within
	// the retry budget because of conflicting concurrent writers.
	ErrTxnFailed = errors.New("transaction failed to commit")
)

const reservedChars = "[]#$.,/"

// CheckSegment reports whether s is usable as a path segment. Identifiers
// holding reserved characters are rejected outright, never rewritten.
func CheckSegment(s string) error {
	if s == "" || strings.ContainsAny(s, reservedChars) {
		return ErrInvalidSegment
	}
	return nil
}

// Path addresses a record in the hierarchical store. A Path can only be
// built from valid segments, so holding a Path proves the key is safe.
type Path struct {
	segments []string
}

// NewPath builds a path from the given segments.
func NewPath(segments ...string) (Path, error) {
	for _, s := range segments {
		if err := CheckSegment(s); err != nil {
			return Path{}, err
		}
	}
	return Path{segments: segments}, nil
}

// Child returns the path extended by one segment.
func (p Path) Child(segment string) (Path, error) {
	if err := CheckSegment(segment); err != nil {
		return Path{}, err
	}
	child := make([]string, 0, len(p.segments)+1)
	child = append(child, p.segments...)
	child = append(child, segment)
	return Path{segments: child}, nil
}

// Parent returns the path with its last segment removed.
func (p Path) Parent() Path {
	if len(p.segments) == 0 {
		return Path{}
	}
	return Path{segments: p.segments[:len(p.segments)-1]}
}

// String renders the path as a slash-joined key.
func (p Path) String() string {
	return strings.Join(p.segments, "/")
}

// TxnFunc computes the next value of a record from its current value.
// current is nil when the record does not exist. Returning ErrAbort leaves
// the record untouched; any other error also aborts and is propagated.
type TxnFunc func(current []byte) ([]byte, error)

// Store is the keyed storage substrate the core operates against. Transact
// is the only concurrency-correctness mechanism: it re-invokes fn against
// fresh reads when a concurrent writer touched the record, up to a bounded
// number of attempts.
type Store interface {
	// Get performs a point read. Returns ErrNotExist when absent.
	Get(ctx context.Context, p Path) ([]byte, error)

	// Set unconditionally overwrites the record.
	Set(ctx context.Context, p Path, value []byte) error

	// Transact runs fn against the current value of exactly one record and
	// attempts to commit its result. committed is false when fn aborted or
	// the retry budget was exhausted (ErrTxnFailed).
	Transact(ctx context.Context, p Path, fn TxnFunc) (committed bool, final []byte, err error)

	// Children returns the immediate children of a node, keyed by their
	// last path segment.
	Children(ctx context.Context, p Path) (map[string][]byte, error)
}
