package approval

import "context"

type Repository interface {
	// Create a new approval (DB uniqueness ensures at most one per application and role)
	Create(ctx context.Context, a *OfficerApproval) error

	// Get the approval a role gave an application
	GetByApplicationRole(ctx context.Context, applicationID string, role Role) (*OfficerApproval, error)

	// List approvals of an application, oldest first
	ListByApplication(ctx context.Context, applicationID string) ([]OfficerApproval, error)
}
