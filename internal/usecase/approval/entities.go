package approval

import (
	"time"

	"vsla-ledger/internal/domain/approval"
)

type RecordInput struct {
	ApplicationID string        `json:"application_id"`
	OfficerID     string        `json:"officer_id"` // 32-char hex member id
	Role          approval.Role `json:"role"`
	Note          string        `json:"note,omitempty"`
	ApprovedAt    time.Time     `json:"approved_at"` // zero means now
}

type ApprovalDTO struct {
	ApprovalID    string        `json:"approval_id"`
	ApplicationID string        `json:"application_id"`
	Role          approval.Role `json:"role"`
	OfficerID     string        `json:"officer_id"`
	ApprovedAt    time.Time     `json:"approved_at"`
	// AllOfficers is true once chairperson, treasurer and committee have all signed.
	AllOfficers bool `json:"all_officers"`
}
