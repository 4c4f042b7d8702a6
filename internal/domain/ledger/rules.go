package ledger

import (
	"github.com/shopspring/decimal"

	"vsla-ledger/internal/domain/apperr"
)

var (
	poolFunds      = map[Fund]bool{FundSavings: true, FundECD: true, FundSocial: true, FundTarget: true}
	balanceColumns = append(append([]Fund{}, Funds...), FundTotal)
)

// Get returns the amount carried for f. Loan amounts are reported by field, not by fund.
func (a Amounts) Get(f Fund) decimal.Decimal {
	switch f {
	case FundSavings:
		return a.Savings
	case FundECD:
		return a.ECD
	case FundSocial:
		return a.Social
	case FundTarget:
		return a.TargetSavings
	case FundFines:
		return a.Fines
	case FundInterest:
		return a.InterestEarned
	}
	return decimal.Zero
}

type namedAmount struct {
	name string
	amt  decimal.Decimal
}

func (a Amounts) fields() []namedAmount {
	return []namedAmount{
		{"savings", a.Savings},
		{"ecd", a.ECD},
		{"social", a.Social},
		{"target_savings", a.TargetSavings},
		{"fines", a.Fines},
		{"loan_disbursed", a.LoanDisbursed},
		{"loan_repaid", a.LoanRepaid},
		{"interest_earned", a.InterestEarned},
	}
}

// poolSum sizes the source debit of a TRANSFER.
func (a Amounts) poolSum() decimal.Decimal {
	return a.Savings.Add(a.ECD).Add(a.Social).Add(a.TargetSavings)
}

// ValidateAmounts checks signs, precision and the entry_type/fund combination.
// It never touches storage.
func ValidateAmounts(t EntryType, a Amounts, from *Fund) apperr.Violations {
	var v apperr.Violations
	if !t.Valid() {
		return v.Add("entry_type", "unknown entry type "+string(t))
	}
	for _, f := range a.fields() {
		if f.amt.IsNegative() {
			v = v.Add(f.name, "must be >= 0")
		}
		if !f.amt.Equal(f.amt.Round(2)) {
			v = v.Add(f.name, "must have at most 2 decimal places")
		}
	}
	if len(v) > 0 {
		return v
	}

	pool := a.poolSum()
	loanSide := a.LoanDisbursed.Add(a.LoanRepaid)
	if from != nil && t != EntryTransfer {
		v = v.Add("transfer_from", "only TRANSFER entries name a source fund")
	}

	switch t {
	case EntryDeposit:
		if !pool.IsPositive() {
			v = v.Add("amounts", "DEPOSIT requires savings, ecd, social or target_savings")
		}
		if a.Fines.IsPositive() || loanSide.IsPositive() || a.InterestEarned.IsPositive() {
			v = v.Add("amounts", "DEPOSIT may only carry savings-type funds")
		}
	case EntryWithdrawal:
		if !pool.Add(a.Fines).IsPositive() {
			v = v.Add("amounts", "WITHDRAWAL requires a savings-type or fines amount")
		}
		if loanSide.IsPositive() || a.InterestEarned.IsPositive() {
			v = v.Add("amounts", "WITHDRAWAL may not carry loan or interest amounts")
		}
	case EntryLoan:
		if pool.IsPositive() {
			v = v.Add("amounts", "LOAN entries must carry a loan-fund amount, not a savings amount")
		}
		switch {
		case a.LoanDisbursed.IsPositive():
			if a.LoanRepaid.IsPositive() || a.InterestEarned.IsPositive() || a.Fines.IsPositive() {
				v = v.Add("amounts", "a disbursement carries loan_disbursed only")
			}
		case a.LoanRepaid.IsPositive() || a.InterestEarned.IsPositive():
			// repayment; fines here are the late-fee share
		default:
			v = v.Add("amounts", "LOAN requires loan_disbursed, or loan_repaid/interest_earned")
		}
	case EntryFine:
		if !a.Fines.IsPositive() {
			v = v.Add("fines", "FINE requires a fines amount")
		}
		if pool.IsPositive() || loanSide.IsPositive() || a.InterestEarned.IsPositive() {
			v = v.Add("amounts", "FINE may only carry fines")
		}
	case EntryInterest:
		if !a.InterestEarned.IsPositive() {
			v = v.Add("interest_earned", "INTEREST requires interest_earned")
		}
		if pool.IsPositive() || loanSide.IsPositive() || a.Fines.IsPositive() {
			v = v.Add("amounts", "INTEREST may only carry interest_earned")
		}
	case EntryTransfer:
		if from == nil || !poolFunds[*from] {
			v = v.Add("transfer_from", "TRANSFER needs a savings-type source fund")
		} else if a.Get(*from).IsPositive() {
			v = v.Add("transfer_from", "source fund cannot also be a destination")
		}
		if !pool.IsPositive() {
			v = v.Add("amounts", "TRANSFER requires a savings-type destination amount")
		}
		if a.Fines.IsPositive() || loanSide.IsPositive() || a.InterestEarned.IsPositive() {
			v = v.Add("amounts", "TRANSFER moves savings-type funds only")
		}
	}
	return v
}

// Delta is the signed contribution of an entry with these amounts.
// Total is cash on hand: pooled funds minus the outstanding loan portfolio.
func Delta(t EntryType, a Amounts, from *Fund) Balances {
	var d Balances
	switch t {
	case EntryWithdrawal:
		d.Savings = a.Savings.Neg()
		d.ECD = a.ECD.Neg()
		d.Social = a.Social.Neg()
		d.TargetSavings = a.TargetSavings.Neg()
		d.Fines = a.Fines.Neg()
	case EntryTransfer:
		d.Savings, d.ECD, d.Social, d.TargetSavings = a.Savings, a.ECD, a.Social, a.TargetSavings
		if from != nil {
			d = d.add(*from, a.poolSum().Neg())
		}
	default:
		d.Savings, d.ECD, d.Social, d.TargetSavings = a.Savings, a.ECD, a.Social, a.TargetSavings
		d.Fines = a.Fines
		d.Loan = a.LoanDisbursed.Sub(a.LoanRepaid)
		d.Interest = a.InterestEarned
	}
	d.Total = d.pooled().Sub(d.Loan)
	return d
}

// SignedDelta is the contribution of a stored entry; REVERSED entries offset the original.
func SignedDelta(e *Entry) Balances {
	d := Delta(e.EntryType, e.Amounts, e.TransferFrom)
	if e.Status == StatusReversed {
		return d.Neg()
	}
	return d
}

func (b Balances) pooled() decimal.Decimal {
	return b.Savings.Add(b.ECD).Add(b.Social).Add(b.TargetSavings).Add(b.Fines).Add(b.Interest)
}

func (b Balances) add(f Fund, amt decimal.Decimal) Balances {
	switch f {
	case FundSavings:
		b.Savings = b.Savings.Add(amt)
	case FundECD:
		b.ECD = b.ECD.Add(amt)
	case FundSocial:
		b.Social = b.Social.Add(amt)
	case FundTarget:
		b.TargetSavings = b.TargetSavings.Add(amt)
	case FundFines:
		b.Fines = b.Fines.Add(amt)
	case FundLoan:
		b.Loan = b.Loan.Add(amt)
	case FundInterest:
		b.Interest = b.Interest.Add(amt)
	}
	return b
}

// Apply returns b + d with Total recomputed from the fund columns.
func (b Balances) Apply(d Balances) Balances {
	out := Balances{
		Savings:       b.Savings.Add(d.Savings),
		ECD:           b.ECD.Add(d.ECD),
		Social:        b.Social.Add(d.Social),
		TargetSavings: b.TargetSavings.Add(d.TargetSavings),
		Fines:         b.Fines.Add(d.Fines),
		Loan:          b.Loan.Add(d.Loan),
		Interest:      b.Interest.Add(d.Interest),
	}
	out.Total = out.pooled().Sub(out.Loan)
	return out
}

func (b Balances) Neg() Balances {
	return Balances{
		Savings:       b.Savings.Neg(),
		ECD:           b.ECD.Neg(),
		Social:        b.Social.Neg(),
		TargetSavings: b.TargetSavings.Neg(),
		Fines:         b.Fines.Neg(),
		Loan:          b.Loan.Neg(),
		Interest:      b.Interest.Neg(),
		Total:         b.Total.Neg(),
	}
}

// Get returns the running balance of f (FundTotal included).
func (b Balances) Get(f Fund) decimal.Decimal {
	switch f {
	case FundSavings:
		return b.Savings
	case FundECD:
		return b.ECD
	case FundSocial:
		return b.Social
	case FundTarget:
		return b.TargetSavings
	case FundFines:
		return b.Fines
	case FundLoan:
		return b.Loan
	case FundInterest:
		return b.Interest
	case FundTotal:
		return b.Total
	}
	return decimal.Zero
}

// NegativeFunds lists the funds (and total) below zero.
func (b Balances) NegativeFunds() []Fund {
	var out []Fund
	for _, f := range balanceColumns {
		if b.Get(f).IsNegative() {
			out = append(out, f)
		}
	}
	return out
}

// Equal compares every column at cent precision.
func (b Balances) Equal(o Balances) bool {
	for _, f := range balanceColumns {
		if b.Get(f).StringFixed(2) != o.Get(f).StringFixed(2) {
			return false
		}
	}
	return true
}

// Replay folds entries (seq order) from zero balances. It returns the final balances
// and the first entry whose stored balances disagree with the fold, or nil.
func Replay(entries []Entry) (Balances, *Entry) {
	var running Balances
	var bad *Entry
	for i := range entries {
		running = running.Apply(SignedDelta(&entries[i]))
		if bad == nil && !running.Equal(entries[i].Balances) {
			bad = &entries[i]
		}
	}
	return running, bad
}
