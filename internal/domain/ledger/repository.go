package ledger

import (
	"context"
	"time"
)

// HistoryFilter selects a slice of a group's log. Nil bounds are open.
type HistoryFilter struct {
	GroupID  string
	MemberID *string
	From     *time.Time
	To       *time.Time
}

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByEntryID(ctx context.Context, entryID string) (*Entry, error)

	// Last returns the highest-seq entry of the group (gorm.ErrRecordNotFound when empty).
	Last(ctx context.Context, groupID string) (*Entry, error)

	// GetReversalOf returns the REVERSED entry pointing at entryID, if any.
	GetReversalOf(ctx context.Context, entryID string) (*Entry, error)

	// List returns matching entries ordered by seq ascending.
	List(ctx context.Context, f HistoryFilter) ([]Entry, error)

	// LockHead creates the group's head when missing and locks it for update.
	LockHead(ctx context.Context, groupID string) (*Head, error)

	// AdvanceHead moves the head to e; ErrConcurrentPosting when h.Version is stale.
	AdvanceHead(ctx context.Context, h *Head, e *Entry) error
}
