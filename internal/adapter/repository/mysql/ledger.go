package mysql

import (
	"context"

	ledgerDomain "vsla-ledger/internal/domain/ledger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LedgerRepository struct{ db *gorm.DB }

func NewLedgerRepository(db *gorm.DB) *LedgerRepository { return &LedgerRepository{db: db} }

func (r *LedgerRepository) Create(ctx context.Context, e *ledgerDomain.Entry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *LedgerRepository) GetByEntryID(ctx context.Context, entryID string) (*ledgerDomain.Entry, error) {
	var out ledgerDomain.Entry
	res := r.db.WithContext(ctx).Where("entry_id = ?", entryID).First(&out)
	return &out, res.Error
}

func (r *LedgerRepository) Last(ctx context.Context, groupID string) (*ledgerDomain.Entry, error) {
	var out ledgerDomain.Entry
	res := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("seq DESC").
		First(&out)
	return &out, res.Error
}

func (r *LedgerRepository) GetReversalOf(ctx context.Context, entryID string) (*ledgerDomain.Entry, error) {
	var out ledgerDomain.Entry
	res := r.db.WithContext(ctx).
		Where("reverses_entry_id = ? AND status = ?", entryID, ledgerDomain.StatusReversed).
		First(&out)
	return &out, res.Error
}

func (r *LedgerRepository) List(ctx context.Context, f ledgerDomain.HistoryFilter) ([]ledgerDomain.Entry, error) {
	q := r.db.WithContext(ctx).Where("group_id = ?", f.GroupID)
	if f.MemberID != nil {
		q = q.Where("member_id = ?", *f.MemberID)
	}
	if f.From != nil {
		q = q.Where("transaction_date >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("transaction_date <= ?", f.To.UTC())
	}
	var out []ledgerDomain.Entry
	res := q.Order("seq ASC").Find(&out)
	return out, res.Error
}

func (r *LedgerRepository) LockHead(ctx context.Context, groupID string) (*ledgerDomain.Head, error) {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ledgerDomain.Head{GroupID: groupID}).Error; err != nil {
		return nil, err
	}
	var out ledgerDomain.Head
	res := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("group_id = ?", groupID).
		First(&out)
	return &out, res.Error
}

func (r *LedgerRepository) AdvanceHead(ctx context.Context, h *ledgerDomain.Head, e *ledgerDomain.Entry) error {
	res := r.db.WithContext(ctx).
		Model(&ledgerDomain.Head{}).
		Where("group_id = ? AND version = ?", h.GroupID, h.Version).
		Updates(map[string]any{
			"last_seq":      e.Seq,
			"last_entry_id": e.EntryID,
			"last_date":     e.TransactionDate,
			"version":       h.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ledgerDomain.ErrConcurrentPosting
	}
	d := e.TransactionDate
	h.LastSeq, h.LastEntryID, h.LastDate = e.Seq, e.EntryID, &d
	h.Version++
	return nil
}
