package rules

import "context"

type Repository interface {
	GetByGroupID(ctx context.Context, groupID string) (*GroupBusinessRules, error)
	// Upsert inserts or replaces the group's row.
	Upsert(ctx context.Context, r *GroupBusinessRules) error
}
