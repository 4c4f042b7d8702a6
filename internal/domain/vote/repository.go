package vote

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, v *Vote) error
	Save(ctx context.Context, v *Vote) error
	GetByVoteID(ctx context.Context, voteID string) (*Vote, error)
	GetByVoteIDForUpdate(ctx context.Context, voteID string) (*Vote, error)
	// ListByGroup returns the group's votes oldest first.
	ListByGroup(ctx context.Context, groupID string) ([]Vote, error)
	// ListElapsed returns ACTIVE votes whose window ended before asOf.
	ListElapsed(ctx context.Context, asOf time.Time) ([]Vote, error)

	CreateBallot(ctx context.Context, b *Ballot) error
	GetBallot(ctx context.Context, voteID, memberID string) (*Ballot, error)
	// Ballots returns ballots in cast order.
	Ballots(ctx context.Context, voteID string) ([]Ballot, error)
}
