package member

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, m *Member) error
	Save(ctx context.Context, m *Member) error
	GetByMemberID(ctx context.Context, memberID string) (*Member, error)
	CountActive(ctx context.Context, groupID string) (int64, error)

	RecordAttendance(ctx context.Context, a *Attendance) error
	// AttendanceStats returns (meetings present, meetings recorded) for the member.
	AttendanceStats(ctx context.Context, groupID, memberID string) (present, total int64, err error)

	CreateFine(ctx context.Context, f *Fine) error
	GetFineForUpdate(ctx context.Context, fineID string) (*Fine, error)
	SaveFine(ctx context.Context, f *Fine) error
	OutstandingFines(ctx context.Context, groupID, memberID string) (decimal.Decimal, error)
}
