package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// AddMonthsClamped adds n calendar months, clamping the day to the end of the target month
// (Jan 31 + 1 month = Feb 28/29).
func AddMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// BuildSchedule splits principal into `term` monthly installments, the first due one month after start.
// Principal portions are P/n truncated to cents with the last one absorbing the remainder, so they
// always sum to P. annualRate is a percentage.
func BuildSchedule(principal, annualRate decimal.Decimal, term int, method InterestMethod, start time.Time) []Installment {
	if term <= 0 {
		return nil
	}
	n := decimal.NewFromInt(int64(term))
	monthly := annualRate.Div(hundred).Div(twelve)
	portion := principal.Div(n).Truncate(2)

	rows := make([]Installment, 0, term)
	outstanding := principal
	allocated := decimal.Zero
	for k := 1; k <= term; k++ {
		p := portion
		if k == term {
			p = principal.Sub(allocated)
		}
		var interest decimal.Decimal
		if method == Flat {
			interest = principal.Mul(monthly).Round(2)
		} else {
			interest = outstanding.Mul(monthly).Round(2)
		}
		rows = append(rows, Installment{
			Number:          k,
			DueDate:         AddMonthsClamped(start, k),
			PrincipalAmount: p,
			InterestAmount:  interest,
			TotalAmount:     p.Add(interest),
			AmountPaid:      decimal.Zero,
			LateFee:         decimal.Zero,
			LateFeePaid:     decimal.Zero,
			Status:          InstallmentPending,
		})
		allocated = allocated.Add(p)
		outstanding = outstanding.Sub(p)
	}
	return rows
}

// TotalInterest sums the scheduled interest portions.
func TotalInterest(rows []Installment) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.InterestAmount)
	}
	return sum
}

// daysBetween counts calendar days from a to b, ignoring time of day.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// Refresh recomputes days overdue, the accrued late fee and the status as of asOf.
// The fee accrues only while principal or interest is unpaid and never decreases.
// It reports whether anything changed.
func (i *Installment) Refresh(asOf time.Time, feePerDay decimal.Decimal) bool {
	before := *i
	if i.Remaining().IsPositive() {
		if days := daysBetween(i.DueDate, asOf); days > 0 {
			i.DaysOverdue = days
			if fee := feePerDay.Mul(decimal.NewFromInt(int64(days))); fee.GreaterThan(i.LateFee) {
				i.LateFee = fee
			}
		}
	}
	i.settleStatus()
	return before.Status != i.Status || before.DaysOverdue != i.DaysOverdue || !before.LateFee.Equal(i.LateFee)
}

func (i *Installment) settleStatus() {
	switch {
	case i.Settled():
		i.Status = InstallmentPaid
	case i.DaysOverdue > 0:
		i.Status = InstallmentOverdue
	case i.AmountPaid.IsPositive():
		i.Status = InstallmentPartial
	default:
		i.Status = InstallmentPending
	}
}

// Allocation is how one payment was spread over the schedule.
type Allocation struct {
	LateFee   decimal.Decimal
	Interest  decimal.Decimal
	Principal decimal.Decimal
	// Touched holds the indexes of rows that received money.
	Touched []int
}

func (a Allocation) Total() decimal.Decimal {
	return a.LateFee.Add(a.Interest).Add(a.Principal)
}

// Allocate applies amount to rows in installment order: per row the accrued late fee first,
// then interest, then principal. Rows are updated in place. Any amount left once every row is
// settled is rejected with ErrOverpayment and rows are left untouched.
func Allocate(rows []Installment, amount decimal.Decimal, paidAt time.Time) (Allocation, error) {
	work := make([]Installment, len(rows))
	copy(work, rows)

	out := Allocation{LateFee: decimal.Zero, Interest: decimal.Zero, Principal: decimal.Zero}
	left := amount
	for idx := range work {
		if !left.IsPositive() {
			break
		}
		r := &work[idx]
		if r.Settled() {
			continue
		}
		fee := decimal.Min(left, r.LateFeeDue())
		r.LateFeePaid = r.LateFeePaid.Add(fee)
		left = left.Sub(fee)

		interest := decimal.Min(left, r.InterestAmount.Sub(r.InterestPaid()))
		principal := decimal.Min(left.Sub(interest), r.Remaining().Sub(interest))
		r.AmountPaid = r.AmountPaid.Add(interest).Add(principal)
		left = left.Sub(interest).Sub(principal)

		out.LateFee = out.LateFee.Add(fee)
		out.Interest = out.Interest.Add(interest)
		out.Principal = out.Principal.Add(principal)
		if fee.Add(interest).Add(principal).IsPositive() {
			out.Touched = append(out.Touched, idx)
		}
		r.settleStatus()
		if r.Status == InstallmentPaid {
			t := paidAt
			r.PaidAt = &t
		}
	}
	if left.IsPositive() {
		return Allocation{}, ErrOverpayment
	}
	copy(rows, work)
	return out, nil
}

// AllPaid reports whether every row is PAID.
func AllPaid(rows []Installment) bool {
	for _, r := range rows {
		if r.Status != InstallmentPaid {
			return false
		}
	}
	return len(rows) > 0
}
