package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"vsla-ledger/internal/domain/apperr"
	domain "vsla-ledger/internal/domain/ledger"
	"vsla-ledger/internal/domain/uow"
	"vsla-ledger/internal/log"
	"vsla-ledger/pkg/id"
)

// postAttempts bounds the retries of a posting that lost the head race.
const postAttempts = 3

type Usecase struct {
	repo domain.Repository
	uow  uow.UnitOfWork
	log  *log.Logger
	now  func() time.Time
}

// NewUsecase: repo serves reads; every write goes through the UoW.
func NewUsecase(repo domain.Repository, tx uow.UnitOfWork, logger *log.Logger) *Usecase {
	return &Usecase{
		repo: repo,
		uow:  tx,
		log:  log.OrDiscard(logger).WithComponent(log.ComponentLedger),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Retry runs fn again while it fails with ErrConcurrentPosting.
func Retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < postAttempts; attempt++ {
		if err = fn(); !errors.Is(err, domain.ErrConcurrentPosting) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

// Append posts e as the next entry of its group. It must run inside a
// transaction; repo is the tx-bound ledger repository. e.Amounts are
// assumed validated; the balance invariants are checked here.
func Append(ctx context.Context, repo domain.Repository, e *domain.Entry) error {
	head, err := repo.LockHead(ctx, e.GroupID)
	if err != nil {
		return err
	}
	if head.LastDate != nil && e.TransactionDate.Before(*head.LastDate) {
		return domain.ErrBackdated
	}

	var prev domain.Balances
	if head.LastSeq > 0 {
		last, err := repo.Last(ctx, e.GroupID)
		if err != nil {
			return err
		}
		if last.Seq != head.LastSeq {
			return domain.ErrConcurrentPosting
		}
		prev = last.Balances
	}

	next := prev.Apply(domain.SignedDelta(e))
	if neg := next.NegativeFunds(); len(neg) > 0 {
		return fmt.Errorf("%w: %v", domain.ErrNegativeBalance, neg)
	}

	if e.EntryID == "" {
		e.EntryID = id.NewID32()
	}
	if e.Status == "" {
		e.Status = domain.StatusActive
	}
	e.TransactionDate = e.TransactionDate.UTC()
	e.Seq = head.LastSeq + 1
	e.Balances = next
	if err := repo.Create(ctx, e); err != nil {
		return err
	}
	return repo.AdvanceHead(ctx, head, e)
}

// ValidatePost checks the input record of a posting without touching storage.
func ValidatePost(in PostInput) apperr.Violations {
	var v apperr.Violations
	if !id.Valid(in.GroupID) {
		v = v.Add("group_id", "must be a 32-char hex id")
	}
	if in.MemberID != nil && !id.Valid(*in.MemberID) {
		v = v.Add("member_id", "must be a 32-char hex id")
	}
	if in.TransactionDate.IsZero() {
		v = v.Add("transaction_date", "required")
	}
	if in.CreatedBy == "" {
		v = v.Add("created_by", "required")
	}
	return apperr.Merge(v, domain.ValidateAmounts(in.EntryType, in.Amounts, in.TransferFrom))
}

func (u *Usecase) Post(ctx context.Context, in PostInput) (*domain.Entry, error) {
	if err := ValidatePost(in).Err(); err != nil {
		return nil, err
	}

	var out *domain.Entry
	err := Retry(ctx, func() error {
		e := &domain.Entry{
			GroupID:         in.GroupID,
			MemberID:        in.MemberID,
			TransactionDate: in.TransactionDate,
			Description:     in.Description,
			Reference:       in.Reference,
			EntryType:       in.EntryType,
			Status:          domain.StatusActive,
			TransferFrom:    in.TransferFrom,
			Amounts:         in.Amounts,
			CreatedBy:       in.CreatedBy,
		}
		return u.uow.WithinTx(ctx, func(r uow.Repos) error {
			if err := Append(ctx, r.Ledger, e); err != nil {
				return err
			}
			out = e
			return nil
		})
	})
	if err != nil {
		u.log.WarnContext(ctx, "ledger posting rejected",
			log.FieldGroupID, in.GroupID, log.FieldEntryType, in.EntryType, log.FieldError, err)
		return nil, err
	}

	u.log.InfoContext(ctx, "ledger entry posted",
		log.FieldGroupID, out.GroupID, log.FieldEntryID, out.EntryID, log.FieldEntryType, out.EntryType)
	return out, nil
}

// reversible loads the original and checks it can still be offset.
func reversible(ctx context.Context, repo domain.Repository, entryID string) (*domain.Entry, error) {
	orig, err := repo.GetByEntryID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if orig.Status == domain.StatusReversed {
		return nil, domain.ErrNotReversible
	}
	_, err = repo.GetReversalOf(ctx, orig.EntryID)
	switch {
	case err == nil:
		return nil, domain.ErrAlreadyReversed
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	return orig, nil
}

func reversalOf(orig *domain.Entry, date time.Time, reason, by string) *domain.Entry {
	desc := "Reversal of " + orig.EntryID
	if reason != "" {
		desc += ": " + reason
	}
	origID := orig.EntryID
	return &domain.Entry{
		GroupID:         orig.GroupID,
		MemberID:        orig.MemberID,
		TransactionDate: date,
		Description:     desc,
		Reference:       orig.Reference,
		EntryType:       orig.EntryType,
		Status:          domain.StatusReversed,
		TransferFrom:    orig.TransferFrom,
		ReversesEntryID: &origID,
		Amounts:         orig.Amounts,
		CreatedBy:       by,
	}
}

// Reverse posts the equal-and-opposite entry of in.EntryID; history is never edited.
func (u *Usecase) Reverse(ctx context.Context, in ReverseInput) (*domain.Entry, error) {
	if in.CreatedBy == "" {
		return nil, apperr.Violations{}.Add("created_by", "required")
	}
	date := u.now()
	if in.Date != nil {
		date = in.Date.UTC()
	}

	var out *domain.Entry
	err := Retry(ctx, func() error {
		return u.uow.WithinTx(ctx, func(r uow.Repos) error {
			orig, err := reversible(ctx, r.Ledger, in.EntryID)
			if err != nil {
				return err
			}
			rev := reversalOf(orig, date, in.Reason, in.CreatedBy)
			if err := Append(ctx, r.Ledger, rev); err != nil {
				return err
			}
			out = rev
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	u.log.InfoContext(ctx, "ledger entry reversed",
		log.FieldGroupID, out.GroupID, log.FieldEntryID, *out.ReversesEntryID)
	return out, nil
}

// Correct reverses an entry and posts its replacement in one transaction.
func (u *Usecase) Correct(ctx context.Context, in CorrectInput) (*Correction, error) {
	if in.CreatedBy == "" {
		return nil, apperr.Violations{}.Add("created_by", "required")
	}
	date := u.now()

	var out *Correction
	err := Retry(ctx, func() error {
		return u.uow.WithinTx(ctx, func(r uow.Repos) error {
			orig, err := reversible(ctx, r.Ledger, in.EntryID)
			if err != nil {
				return err
			}
			if err := domain.ValidateAmounts(orig.EntryType, in.Amounts, in.TransferFrom).Err(); err != nil {
				return err
			}

			rev := reversalOf(orig, date, "correction", in.CreatedBy)
			if err := Append(ctx, r.Ledger, rev); err != nil {
				return err
			}

			desc := in.Description
			if desc == "" {
				desc = orig.Description
			}
			origID := orig.EntryID
			repl := &domain.Entry{
				GroupID:         orig.GroupID,
				MemberID:        orig.MemberID,
				TransactionDate: date,
				Description:     desc,
				Reference:       orig.Reference,
				EntryType:       orig.EntryType,
				Status:          domain.StatusCorrected,
				TransferFrom:    in.TransferFrom,
				CorrectsEntryID: &origID,
				Amounts:         in.Amounts,
				CreatedBy:       in.CreatedBy,
			}
			if err := Append(ctx, r.Ledger, repl); err != nil {
				return err
			}
			out = &Correction{Reversal: rev, Replacement: repl}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	u.log.InfoContext(ctx, "ledger entry corrected",
		log.FieldGroupID, out.Replacement.GroupID, log.FieldEntryID, in.EntryID)
	return out, nil
}

// Balances returns the group's running balances after its latest entry.
func (u *Usecase) Balances(ctx context.Context, groupID string) (domain.Balances, error) {
	last, err := u.repo.Last(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Balances{}, nil
		}
		return domain.Balances{}, err
	}
	return last.Balances, nil
}

func (u *Usecase) Balance(ctx context.Context, groupID string, fund domain.Fund) (decimal.Decimal, error) {
	if _, ok := domain.ParseFund(string(fund)); !ok {
		return decimal.Zero, apperr.Violations{}.Add("fund", "unknown fund "+string(fund))
	}
	b, err := u.Balances(ctx, groupID)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Get(fund), nil
}

func (u *Usecase) History(ctx context.Context, f domain.HistoryFilter) ([]domain.Entry, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, apperr.Violations{}.Add("to", "must not precede from")
	}
	return u.repo.List(ctx, f)
}

func (u *Usecase) GetEntry(ctx context.Context, entryID string) (*domain.Entry, error) {
	e, err := u.repo.GetByEntryID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// Verify replays the group's whole log against the stored running balances.
func (u *Usecase) Verify(ctx context.Context, groupID string) (*VerifyReport, error) {
	entries, err := u.repo.List(ctx, domain.HistoryFilter{GroupID: groupID})
	if err != nil {
		return nil, err
	}
	final, bad := domain.Replay(entries)
	rep := &VerifyReport{GroupID: groupID, Entries: len(entries), Balances: final, OK: bad == nil}
	if bad != nil {
		rep.MismatchSeq = bad.Seq
		u.log.ErrorContext(ctx, domain.ErrChainMismatch.Error(),
			log.FieldGroupID, groupID, log.FieldEntryID, bad.EntryID)
	}
	return rep, nil
}

// MemberFundTotal sums the member's signed contributions to fund.
func (u *Usecase) MemberFundTotal(ctx context.Context, groupID, memberID string, fund domain.Fund) (*FundTotal, error) {
	if _, ok := domain.ParseFund(string(fund)); !ok {
		return nil, apperr.Violations{}.Add("fund", "unknown fund "+string(fund))
	}
	entries, err := u.repo.List(ctx, domain.HistoryFilter{GroupID: groupID, MemberID: &memberID})
	if err != nil {
		return nil, err
	}
	return &FundTotal{
		GroupID:  groupID,
		MemberID: memberID,
		Fund:     fund,
		Total:    SumFund(entries, fund),
	}, nil
}

// SumFund adds up the signed contributions of entries to fund.
func SumFund(entries []domain.Entry, fund domain.Fund) decimal.Decimal {
	total := decimal.Zero
	for i := range entries {
		total = total.Add(domain.SignedDelta(&entries[i]).Get(fund))
	}
	return total
}
