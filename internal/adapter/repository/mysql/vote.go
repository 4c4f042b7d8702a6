package mysql

import (
	"context"
	"time"

	voteDomain "vsla-ledger/internal/domain/vote"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VoteRepository struct{ db *gorm.DB }

func NewVoteRepository(db *gorm.DB) *VoteRepository { return &VoteRepository{db: db} }

func (r *VoteRepository) Create(ctx context.Context, v *voteDomain.Vote) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *VoteRepository) Save(ctx context.Context, v *voteDomain.Vote) error {
	return r.db.WithContext(ctx).Save(v).Error
}

func (r *VoteRepository) GetByVoteID(ctx context.Context, voteID string) (*voteDomain.Vote, error) {
	var out voteDomain.Vote
	res := r.db.WithContext(ctx).Where("vote_id = ?", voteID).First(&out)
	return &out, res.Error
}

func (r *VoteRepository) GetByVoteIDForUpdate(ctx context.Context, voteID string) (*voteDomain.Vote, error) {
	var out voteDomain.Vote
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("vote_id = ?", voteID).
		First(&out)
	return &out, res.Error
}

func (r *VoteRepository) ListByGroup(ctx context.Context, groupID string) ([]voteDomain.Vote, error) {
	var out []voteDomain.Vote
	res := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *VoteRepository) ListElapsed(ctx context.Context, asOf time.Time) ([]voteDomain.Vote, error) {
	var out []voteDomain.Vote
	res := r.db.WithContext(ctx).
		Where("status = ? AND voting_end <= ?", voteDomain.StatusActive, asOf.UTC()).
		Order("voting_end ASC, id ASC").
		Find(&out)
	return out, res.Error
}

func (r *VoteRepository) CreateBallot(ctx context.Context, b *voteDomain.Ballot) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *VoteRepository) GetBallot(ctx context.Context, voteID, memberID string) (*voteDomain.Ballot, error) {
	var out voteDomain.Ballot
	res := r.db.WithContext(ctx).
		Where("vote_id = ? AND member_id = ?", voteID, memberID).
		First(&out)
	return &out, res.Error
}

func (r *VoteRepository) Ballots(ctx context.Context, voteID string) ([]voteDomain.Ballot, error) {
	var out []voteDomain.Ballot
	res := r.db.WithContext(ctx).
		Where("vote_id = ?", voteID).
		Order("cast_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}
