package member

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"vsla-ledger/internal/domain/apperr"
)

var (
	ErrNotFound     = apperr.NotFound("member")
	ErrFineNotFound = apperr.NotFound("fine")
	ErrFinePaid     = fmt.Errorf("%w: fine already paid", apperr.ErrInvariant)
	ErrNotActive    = fmt.Errorf("%w: member is not active in the group", apperr.ErrValidation)
)

type Role string

const (
	RoleMember      Role = "MEMBER"
	RoleChairperson Role = "CHAIRPERSON"
	RoleTreasurer   Role = "TREASURER"
	RoleSecretary   Role = "SECRETARY"
	RoleCommittee   Role = "COMMITTEE"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

// Table: group_members
type Member struct {
	ID        uint64    `gorm:"primaryKey;column:id;autoIncrement" json:"-"`
	MemberID  string    `gorm:"column:member_id;size:32;uniqueIndex" json:"member_id"`
	GroupID   string    `gorm:"column:group_id;size:32;not null;index" json:"group_id"`
	Name      string    `gorm:"column:name;size:128" json:"name"`
	Role      Role      `gorm:"column:role;size:16;not null;default:'MEMBER'" json:"role"`
	Status    Status    `gorm:"column:status;size:16;not null;default:'ACTIVE'" json:"status"`
	JoinedAt  time.Time `gorm:"column:joined_at;not null" json:"joined_at"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Member) TableName() string { return "group_members" }

func (m *Member) Active() bool { return m.Status == StatusActive }

// MonthsActive counts whole months between joining and now.
func (m *Member) MonthsActive(now time.Time) int {
	if now.Before(m.JoinedAt) {
		return 0
	}
	y1, mo1, d1 := m.JoinedAt.Date()
	y2, mo2, d2 := now.Date()
	months := (y2-y1)*12 + int(mo2-mo1)
	if d2 < d1 {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// Table: meeting_attendance
type Attendance struct {
	ID          uint64    `gorm:"primaryKey;column:id;autoIncrement"`
	GroupID     string    `gorm:"column:group_id;size:32;not null;index:idx_attendance_group_member,priority:1"`
	MemberID    string    `gorm:"column:member_id;size:32;not null;index:idx_attendance_group_member,priority:2"`
	MeetingDate time.Time `gorm:"column:meeting_date;not null"`
	Present     bool      `gorm:"column:present;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Attendance) TableName() string { return "meeting_attendance" }

// Table: member_fines
type Fine struct {
	ID          uint64          `gorm:"primaryKey;column:id;autoIncrement" json:"-"`
	FineID      string          `gorm:"column:fine_id;size:32;uniqueIndex" json:"fine_id"`
	GroupID     string          `gorm:"column:group_id;size:32;not null;index" json:"group_id"`
	MemberID    string          `gorm:"column:member_id;size:32;not null;index" json:"member_id"`
	Amount      decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	Reason      string          `gorm:"column:reason;type:text" json:"reason"`
	IssuedAt    time.Time       `gorm:"column:issued_at;not null" json:"issued_at"`
	PaidEntryID *string         `gorm:"column:paid_entry_id;size:32" json:"paid_entry_id,omitempty"`
	PaidAt      *time.Time      `gorm:"column:paid_at" json:"paid_at,omitempty"`
}

func (Fine) TableName() string { return "member_fines" }
