package approvalmock

import (
	"context"

	domain "vsla-ledger/internal/domain/approval"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn               func(ctx context.Context, a *domain.OfficerApproval) error
	GetByApplicationRoleFn func(ctx context.Context, applicationID string, role domain.Role) (*domain.OfficerApproval, error)
	ListByApplicationFn    func(ctx context.Context, applicationID string) ([]domain.OfficerApproval, error)
}

func (m *Repo) Create(ctx context.Context, a *domain.OfficerApproval) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	return nil
}

func (m *Repo) GetByApplicationRole(ctx context.Context, applicationID string, role domain.Role) (*domain.OfficerApproval, error) {
	if m.GetByApplicationRoleFn != nil {
		return m.GetByApplicationRoleFn(ctx, applicationID, role)
	}
	return nil, context.Canceled
}

func (m *Repo) ListByApplication(ctx context.Context, applicationID string) ([]domain.OfficerApproval, error) {
	if m.ListByApplicationFn != nil {
		return m.ListByApplicationFn(ctx, applicationID)
	}
	return nil, context.Canceled
}
