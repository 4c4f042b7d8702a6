package member

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"vsla-ledger/internal/domain/apperr"
	"vsla-ledger/internal/domain/ledger"
	domain "vsla-ledger/internal/domain/member"
	"vsla-ledger/internal/domain/uow"
	"vsla-ledger/internal/log"
	ledgeruc "vsla-ledger/internal/usecase/ledger"
	"vsla-ledger/pkg/id"
)

type RegisterInput struct {
	GroupID  string      `json:"group_id"`
	Name     string      `json:"name"`
	Role     domain.Role `json:"role"`
	JoinedAt time.Time   `json:"joined_at"`
}

type AttendanceInput struct {
	GroupID     string    `json:"group_id"`
	MemberID    string    `json:"member_id"`
	MeetingDate time.Time `json:"meeting_date"`
	Present     bool      `json:"present"`
}

type FineInput struct {
	GroupID  string          `json:"group_id"`
	MemberID string          `json:"member_id"`
	Amount   decimal.Decimal `json:"amount"`
	Reason   string          `json:"reason"`
	IssuedAt time.Time       `json:"issued_at"`
}

type PayFineInput struct {
	FineID    string    `json:"fine_id"`
	PaidAt    time.Time `json:"paid_at"`
	CreatedBy string    `json:"created_by"`
}

type Usecase struct {
	repo domain.Repository
	uow  uow.UnitOfWork
	log  *log.Logger
}

func NewUsecase(repo domain.Repository, tx uow.UnitOfWork, logger *log.Logger) *Usecase {
	return &Usecase{repo: repo, uow: tx, log: log.OrDiscard(logger).WithComponent(log.ComponentMember)}
}

func validRole(r domain.Role) bool {
	switch r {
	case domain.RoleMember, domain.RoleChairperson, domain.RoleTreasurer, domain.RoleSecretary, domain.RoleCommittee:
		return true
	}
	return false
}

func (u *Usecase) Register(ctx context.Context, in RegisterInput) (*domain.Member, error) {
	var v apperr.Violations
	if !id.Valid(in.GroupID) {
		v = v.Add("group_id", "must be a 32-char hex id")
	}
	if strings.TrimSpace(in.Name) == "" {
		v = v.Add("name", "required")
	}
	if in.Role == "" {
		in.Role = domain.RoleMember
	}
	if !validRole(in.Role) {
		v = v.Add("role", "unknown role "+string(in.Role))
	}
	if in.JoinedAt.IsZero() {
		v = v.Add("joined_at", "required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	m := &domain.Member{
		MemberID: id.NewID32(),
		GroupID:  in.GroupID,
		Name:     strings.TrimSpace(in.Name),
		Role:     in.Role,
		Status:   domain.StatusActive,
		JoinedAt: in.JoinedAt.UTC(),
	}
	if err := u.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	u.log.InfoContext(ctx, "member registered", log.FieldGroupID, m.GroupID, log.FieldMemberID, m.MemberID)
	return m, nil
}

func (u *Usecase) Get(ctx context.Context, memberID string) (*domain.Member, error) {
	return Lookup(ctx, u.repo, memberID)
}

// Lookup maps a missing row to ErrNotFound.
func Lookup(ctx context.Context, repo domain.Repository, memberID string) (*domain.Member, error) {
	m, err := repo.GetByMemberID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// ActiveIn returns the member when it is active in groupID.
func ActiveIn(ctx context.Context, repo domain.Repository, groupID, memberID string) (*domain.Member, error) {
	m, err := Lookup(ctx, repo, memberID)
	if err != nil {
		return nil, err
	}
	if m.GroupID != groupID || !m.Active() {
		return nil, domain.ErrNotActive
	}
	return m, nil
}

func (u *Usecase) SetStatus(ctx context.Context, memberID string, status domain.Status) (*domain.Member, error) {
	switch status {
	case domain.StatusActive, domain.StatusInactive, domain.StatusSuspended:
	default:
		return nil, apperr.Violations{}.Add("status", "unknown status "+string(status))
	}
	m, err := Lookup(ctx, u.repo, memberID)
	if err != nil {
		return nil, err
	}
	m.Status = status
	if err := u.repo.Save(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (u *Usecase) RecordAttendance(ctx context.Context, in AttendanceInput) error {
	if in.MeetingDate.IsZero() {
		return apperr.Violations{}.Add("meeting_date", "required")
	}
	if _, err := ActiveIn(ctx, u.repo, in.GroupID, in.MemberID); err != nil {
		return err
	}
	return u.repo.RecordAttendance(ctx, &domain.Attendance{
		GroupID:     in.GroupID,
		MemberID:    in.MemberID,
		MeetingDate: in.MeetingDate.UTC(),
		Present:     in.Present,
	})
}

func (u *Usecase) IssueFine(ctx context.Context, in FineInput) (*domain.Fine, error) {
	var v apperr.Violations
	if !in.Amount.IsPositive() || !in.Amount.Equal(in.Amount.Round(2)) {
		v = v.Add("amount", "must be > 0 with at most 2 decimal places")
	}
	if strings.TrimSpace(in.Reason) == "" {
		v = v.Add("reason", "required")
	}
	if in.IssuedAt.IsZero() {
		v = v.Add("issued_at", "required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	if _, err := ActiveIn(ctx, u.repo, in.GroupID, in.MemberID); err != nil {
		return nil, err
	}

	f := &domain.Fine{
		FineID:   id.NewID32(),
		GroupID:  in.GroupID,
		MemberID: in.MemberID,
		Amount:   in.Amount,
		Reason:   in.Reason,
		IssuedAt: in.IssuedAt.UTC(),
	}
	if err := u.repo.CreateFine(ctx, f); err != nil {
		return nil, err
	}
	u.log.InfoContext(ctx, "fine issued", log.FieldGroupID, f.GroupID, log.FieldMemberID, f.MemberID)
	return f, nil
}

// PayFine posts the FINE ledger entry and marks the fine paid in one transaction.
func (u *Usecase) PayFine(ctx context.Context, in PayFineInput) (*domain.Fine, error) {
	if in.PaidAt.IsZero() || in.CreatedBy == "" {
		return nil, apperr.Violations{}.Add("paid_at", "paid_at and created_by are required")
	}

	var out *domain.Fine
	err := ledgeruc.Retry(ctx, func() error {
		return u.uow.WithinTx(ctx, func(r uow.Repos) error {
			f, err := r.Members.GetFineForUpdate(ctx, in.FineID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domain.ErrFineNotFound
				}
				return err
			}
			if f.PaidEntryID != nil {
				return domain.ErrFinePaid
			}

			memberID := f.MemberID
			e := &ledger.Entry{
				GroupID:         f.GroupID,
				MemberID:        &memberID,
				TransactionDate: in.PaidAt,
				Description:     "Fine: " + f.Reason,
				Reference:       f.FineID,
				EntryType:       ledger.EntryFine,
				Amounts:         ledger.Amounts{Fines: f.Amount},
				CreatedBy:       in.CreatedBy,
			}
			if err := ledgeruc.Append(ctx, r.Ledger, e); err != nil {
				return err
			}

			paidAt := in.PaidAt.UTC()
			f.PaidEntryID, f.PaidAt = &e.EntryID, &paidAt
			if err := r.Members.SaveFine(ctx, f); err != nil {
				return err
			}
			out = f
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	u.log.InfoContext(ctx, "fine paid", log.FieldGroupID, out.GroupID, log.FieldEntryID, *out.PaidEntryID)
	return out, nil
}
