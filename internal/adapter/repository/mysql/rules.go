package mysql

import (
	"context"
	"errors"

	rulesDomain "vsla-ledger/internal/domain/rules"

	"gorm.io/gorm"
)

type RulesRepository struct{ db *gorm.DB }

func NewRulesRepository(db *gorm.DB) *RulesRepository { return &RulesRepository{db: db} }

func (r *RulesRepository) GetByGroupID(ctx context.Context, groupID string) (*rulesDomain.GroupBusinessRules, error) {
	var out rulesDomain.GroupBusinessRules
	res := r.db.WithContext(ctx).Where("group_id = ?", groupID).First(&out)
	return &out, res.Error
}

func (r *RulesRepository) Upsert(ctx context.Context, g *rulesDomain.GroupBusinessRules) error {
	existing, err := r.GetByGroupID(ctx, g.GroupID)
	switch {
	case err == nil:
		g.ID, g.CreatedAt = existing.ID, existing.CreatedAt
		return r.db.WithContext(ctx).Save(g).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		// gorm inserts the column default in place of a zero value
		// (requires_member_vote=false, cycle_number=0); rewrite the row as given.
		want := *g
		if err := r.db.WithContext(ctx).Create(g).Error; err != nil {
			return err
		}
		want.ID, want.CreatedAt, want.UpdatedAt = g.ID, g.CreatedAt, g.UpdatedAt
		*g = want
		return r.db.WithContext(ctx).Save(g).Error
	default:
		return err
	}
}
