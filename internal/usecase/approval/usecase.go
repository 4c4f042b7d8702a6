package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"vsla-ledger/internal/domain/apperr"
	domainApproval "vsla-ledger/internal/domain/approval"
	domainLoan "vsla-ledger/internal/domain/loan"
	"vsla-ledger/internal/domain/uow"
	"vsla-ledger/internal/log"
	memberuc "vsla-ledger/internal/usecase/member"
	"vsla-ledger/pkg/id"
)

type Usecase struct {
	loanRepo     domainLoan.Repository
	approvalRepo domainApproval.Repository
	uow          uow.UnitOfWork
	log          *log.Logger
	now          func() time.Time
}

// NewUsecase: pass both repos and a UoW for tx flows.
func NewUsecase(loans domainLoan.Repository, approvals domainApproval.Repository, tx uow.UnitOfWork, logger *log.Logger) *Usecase {
	return &Usecase{
		loanRepo:     loans,
		approvalRepo: approvals,
		uow:          tx,
		log:          log.OrDiscard(logger).WithComponent(log.ComponentApproval),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func validate(in RecordInput) apperr.Violations {
	var v apperr.Violations
	if !in.Role.Valid() {
		v = v.Add("role", "must be CHAIRPERSON, TREASURER or COMMITTEE")
	}
	if !id.Valid(in.OfficerID) {
		v = v.Add("officer_id", "must be a 32-char hex id")
	}
	return v
}

// flag points at the application flag a role controls.
func flag(a *domainLoan.Application, role domainApproval.Role) *bool {
	switch role {
	case domainApproval.RoleChairperson:
		return &a.ChairpersonApproved
	case domainApproval.RoleTreasurer:
		return &a.TreasurerApproved
	default:
		return &a.CommitteeApproved
	}
}

// Record stores one officer's sign-off on an application under review and
// raises the matching flag. Each office signs at most once.
func (u *Usecase) Record(ctx context.Context, in RecordInput) (*ApprovalDTO, error) {
	if err := validate(in).Err(); err != nil {
		return nil, err
	}
	at := in.ApprovedAt.UTC()
	if in.ApprovedAt.IsZero() {
		at = u.now()
	}

	var dto *ApprovalDTO
	err := u.uow.WithinApplicationTx(ctx, in.ApplicationID, func(r uow.Repos, a *domainLoan.Application) error {
		if a.Status != domainLoan.AppUnderReview {
			return fmt.Errorf("%w: application is %s, approvals need %s",
				apperr.ErrIllegalTransition, a.Status, domainLoan.AppUnderReview)
		}

		if _, err := r.Approvals.GetByApplicationRole(ctx, a.ApplicationID, in.Role); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				// real query error → surface upward
				return err
			}
		} else {
			return domainApproval.ErrAlreadyRecorded
		}

		officer, err := memberuc.ActiveIn(ctx, r.Members, a.GroupID, in.OfficerID)
		if err != nil {
			return err
		}
		if string(officer.Role) != string(in.Role) {
			return fmt.Errorf("%w: member holds %s", domainApproval.ErrRoleNotAllowed, officer.Role)
		}
		if officer.MemberID == a.ApplicantID {
			return fmt.Errorf("%w: applicants cannot approve their own loan", domainApproval.ErrRoleNotAllowed)
		}

		ap := &domainApproval.OfficerApproval{
			ApprovalID:    id.NewID32(),
			ApplicationID: a.ApplicationID,
			Role:          in.Role,
			OfficerID:     in.OfficerID,
			Note:          in.Note,
			ApprovedAt:    at,
		}
		if err := r.Approvals.Create(ctx, ap); err != nil {
			return err
		}

		*flag(a, in.Role) = true
		if err := r.Loans.SaveApplication(ctx, a); err != nil {
			return err
		}

		dto = &ApprovalDTO{
			ApprovalID:    ap.ApprovalID,
			ApplicationID: a.ApplicationID,
			Role:          ap.Role,
			OfficerID:     ap.OfficerID,
			ApprovedAt:    ap.ApprovedAt,
			AllOfficers:   a.OfficersApproved(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.log.InfoContext(ctx, "officer approval recorded",
		log.FieldApplication, dto.ApplicationID, "role", dto.Role, log.FieldMemberID, dto.OfficerID)
	return dto, nil
}

// List returns the application's approvals, oldest first.
func (u *Usecase) List(ctx context.Context, applicationID string) ([]domainApproval.OfficerApproval, error) {
	if _, err := u.loanRepo.GetApplication(ctx, applicationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainLoan.ErrApplicationNotFound
		}
		return nil, err
	}
	return u.approvalRepo.ListByApplication(ctx, applicationID)
}
