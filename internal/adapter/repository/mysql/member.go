package mysql

import (
	"context"

	memberDomain "vsla-ledger/internal/domain/member"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MemberRepository struct{ db *gorm.DB }

func NewMemberRepository(db *gorm.DB) *MemberRepository { return &MemberRepository{db: db} }

func (r *MemberRepository) Create(ctx context.Context, m *memberDomain.Member) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MemberRepository) Save(ctx context.Context, m *memberDomain.Member) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *MemberRepository) GetByMemberID(ctx context.Context, memberID string) (*memberDomain.Member, error) {
	var out memberDomain.Member
	res := r.db.WithContext(ctx).Where("member_id = ?", memberID).First(&out)
	return &out, res.Error
}

func (r *MemberRepository) CountActive(ctx context.Context, groupID string) (int64, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&memberDomain.Member{}).
		Where("group_id = ? AND status = ?", groupID, memberDomain.StatusActive).
		Count(&n)
	return n, res.Error
}

func (r *MemberRepository) RecordAttendance(ctx context.Context, a *memberDomain.Attendance) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *MemberRepository) AttendanceStats(ctx context.Context, groupID, memberID string) (present, total int64, err error) {
	base := r.db.WithContext(ctx).
		Model(&memberDomain.Attendance{}).
		Where("group_id = ? AND member_id = ?", groupID, memberID)
	if err = base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = base.Session(&gorm.Session{}).Where("present = ?", true).Count(&present).Error
	return present, total, err
}

func (r *MemberRepository) CreateFine(ctx context.Context, f *memberDomain.Fine) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *MemberRepository) GetFineForUpdate(ctx context.Context, fineID string) (*memberDomain.Fine, error) {
	var out memberDomain.Fine
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("fine_id = ?", fineID).
		First(&out)
	return &out, res.Error
}

func (r *MemberRepository) SaveFine(ctx context.Context, f *memberDomain.Fine) error {
	return r.db.WithContext(ctx).Save(f).Error
}

// OutstandingFines sums the unpaid fines of a member.
func (r *MemberRepository) OutstandingFines(ctx context.Context, groupID, memberID string) (decimal.Decimal, error) {
	var fines []memberDomain.Fine
	res := r.db.WithContext(ctx).
		Where("group_id = ? AND member_id = ? AND paid_entry_id IS NULL", groupID, memberID).
		Find(&fines)
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	sum := decimal.Zero
	for _, f := range fines {
		sum = sum.Add(f.Amount)
	}
	return sum, nil
}
