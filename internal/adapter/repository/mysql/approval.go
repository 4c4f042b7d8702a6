package mysql

import (
	"context"

	approvalDomain "vsla-ledger/internal/domain/approval"

	"gorm.io/gorm"
)

type ApprovalRepository struct{ db *gorm.DB }

func NewApprovalRepository(db *gorm.DB) *ApprovalRepository { return &ApprovalRepository{db: db} }

func (r *ApprovalRepository) Create(ctx context.Context, a *approvalDomain.OfficerApproval) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *ApprovalRepository) GetByApplicationRole(ctx context.Context, applicationID string, role approvalDomain.Role) (*approvalDomain.OfficerApproval, error) {
	var out approvalDomain.OfficerApproval
	res := r.db.WithContext(ctx).
		Where("application_id = ? AND role = ?", applicationID, role).
		First(&out)
	return &out, res.Error
}

func (r *ApprovalRepository) ListByApplication(ctx context.Context, applicationID string) ([]approvalDomain.OfficerApproval, error) {
	var out []approvalDomain.OfficerApproval
	res := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("approved_at ASC, id ASC").
		Find(&out)
	return out, res.Error
}
