package member

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsla-ledger/internal/adapter/repository/mysql"
	"vsla-ledger/internal/domain/apperr"
	"vsla-ledger/internal/domain/ledger"
	domain "vsla-ledger/internal/domain/member"
	"vsla-ledger/internal/testutil/dbtest"
	"vsla-ledger/pkg/id"
)

type fixture struct {
	u     *Usecase
	books ledger.Repository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := dbtest.Open(t)
	r := mysql.Repos(db)
	return fixture{u: NewUsecase(r.Members, mysql.NewGormUoW(db), nil), books: r.Ledger}
}

var joined = time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)

func TestRegister_ValidatesAndDefaultsRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.u.Register(ctx, RegisterInput{GroupID: "nope", Name: " ", Role: "BOSS"})
	var v apperr.Violations
	require.True(t, errors.As(err, &v))
	assert.Len(t, v, 4)

	m, err := f.u.Register(ctx, RegisterInput{GroupID: id.NewID32(), Name: "Amina", JoinedAt: joined})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, m.Role)
	assert.True(t, m.Active())
	assert.True(t, id.Valid(m.MemberID))

	got, err := f.u.Get(ctx, m.MemberID)
	require.NoError(t, err)
	assert.Equal(t, "Amina", got.Name)

	_, err = f.u.Get(ctx, id.NewID32())
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestRecordAttendance_RequiresActiveMemberOfGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	group := id.NewID32()
	m, err := f.u.Register(ctx, RegisterInput{GroupID: group, Name: "Baraka", JoinedAt: joined})
	require.NoError(t, err)

	for i, present := range []bool{true, true, false} {
		err := f.u.RecordAttendance(ctx, AttendanceInput{
			GroupID: group, MemberID: m.MemberID, MeetingDate: joined.AddDate(0, 0, 7*i), Present: present,
		})
		require.NoError(t, err)
	}

	err = f.u.RecordAttendance(ctx, AttendanceInput{GroupID: id.NewID32(), MemberID: m.MemberID, MeetingDate: joined})
	assert.True(t, errors.Is(err, domain.ErrNotActive))

	_, err = f.u.SetStatus(ctx, m.MemberID, domain.StatusSuspended)
	require.NoError(t, err)
	err = f.u.RecordAttendance(ctx, AttendanceInput{GroupID: group, MemberID: m.MemberID, MeetingDate: joined})
	assert.True(t, errors.Is(err, domain.ErrNotActive))
}

func TestPayFine_PostsLedgerEntryOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	group := id.NewID32()
	m, err := f.u.Register(ctx, RegisterInput{GroupID: group, Name: "Chausiku", JoinedAt: joined})
	require.NoError(t, err)

	_, err = f.u.IssueFine(ctx, FineInput{GroupID: group, MemberID: m.MemberID, Amount: decimal.NewFromInt(-1), Reason: "late"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	fine, err := f.u.IssueFine(ctx, FineInput{
		GroupID: group, MemberID: m.MemberID, Amount: decimal.RequireFromString("500"), Reason: "late arrival", IssuedAt: joined,
	})
	require.NoError(t, err)
	assert.Nil(t, fine.PaidEntryID)

	outstanding, err := f.u.repo.OutstandingFines(ctx, group, m.MemberID)
	require.NoError(t, err)
	assert.Equal(t, "500.00", outstanding.StringFixed(2))

	paid, err := f.u.PayFine(ctx, PayFineInput{FineID: fine.FineID, PaidAt: joined.AddDate(0, 0, 1), CreatedBy: "treasurer"})
	require.NoError(t, err)
	require.NotNil(t, paid.PaidEntryID)

	e, err := f.books.GetByEntryID(ctx, *paid.PaidEntryID)
	require.NoError(t, err)
	assert.Equal(t, ledger.EntryFine, e.EntryType)
	assert.Equal(t, "500.00", e.Balances.Fines.StringFixed(2))
	assert.Equal(t, fine.FineID, e.Reference)

	_, err = f.u.PayFine(ctx, PayFineInput{FineID: fine.FineID, PaidAt: joined.AddDate(0, 0, 2), CreatedBy: "treasurer"})
	assert.True(t, errors.Is(err, domain.ErrFinePaid))

	outstanding, err = f.u.repo.OutstandingFines(ctx, group, m.MemberID)
	require.NoError(t, err)
	assert.True(t, outstanding.IsZero())

	_, err = f.u.PayFine(ctx, PayFineInput{FineID: id.NewID32(), PaidAt: joined, CreatedBy: "treasurer"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
