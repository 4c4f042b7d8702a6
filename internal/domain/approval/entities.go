package approval

import (
	"fmt"
	"time"

	"vsla-ledger/internal/domain/apperr"
)

var (
	ErrNotFound        = apperr.NotFound("officer approval")
	ErrAlreadyRecorded = fmt.Errorf("%w: this role already approved the application", apperr.ErrConflict)
	ErrRoleNotAllowed  = fmt.Errorf("%w: member does not hold an approving office", apperr.ErrValidation)
)

// Role is the office that signs off an application.
type Role string

const (
	RoleChairperson Role = "CHAIRPERSON"
	RoleTreasurer   Role = "TREASURER"
	RoleCommittee   Role = "COMMITTEE"
)

func (r Role) Valid() bool {
	switch r {
	case RoleChairperson, RoleTreasurer, RoleCommittee:
		return true
	}
	return false
}

// Table: loan_officer_approvals. One row per (application, role).
type OfficerApproval struct {
	// Internal numeric PK
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	// Public identifier (32-char lowercase hex)
	ApprovalID    string    `gorm:"column:approval_id;size:32;not null;uniqueIndex" json:"approval_id"`
	ApplicationID string    `gorm:"column:application_id;size:32;not null;uniqueIndex:ux_officer_approvals_app_role,priority:1" json:"application_id"`
	Role          Role      `gorm:"column:role;size:16;not null;uniqueIndex:ux_officer_approvals_app_role,priority:2" json:"role"`
	OfficerID     string    `gorm:"column:officer_id;size:32;not null" json:"officer_id"`
	Note          string    `gorm:"column:note;type:text" json:"note,omitempty"`
	ApprovedAt    time.Time `gorm:"column:approved_at;not null" json:"approved_at"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (OfficerApproval) TableName() string { return "loan_officer_approvals" }
