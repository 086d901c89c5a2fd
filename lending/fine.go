package lending

import "github.com/shopspring/decimal"

// =============================================================================
// FINE CALCULATOR - Pure mapping (due date, evaluation date, policy) -> amount
// =============================================================================

// FinePolicy is external configuration, not hard-coded rules. MaxFine is an
// optional cap; nil means uncapped.
type FinePolicy struct {
	RatePerDay   decimal.Decimal
	MaxFine      *decimal.Decimal
	LostBookFine decimal.Decimal
}

// DefaultFinePolicy matches the source system: 1.00 per overdue day,
// no cap, 50.00 for a lost copy with unknown price.
func DefaultFinePolicy() FinePolicy {
	return FinePolicy{
		RatePerDay:   decimal.NewFromInt(1),
		LostBookFine: decimal.NewFromInt(50),
	}
}

// Fine returns max(0, whole days overdue) * rate, optionally capped.
// Linear, no compounding. Used both by the sweeper (evaluationDate = today,
// accruing) and by Return (evaluationDate = actual return date, final).
func Fine(dueDate, evaluationDate Date, policy FinePolicy) decimal.Decimal {
	days := DaysBetween(dueDate, evaluationDate)
	if days <= 0 {
		return decimal.Zero
	}
	amount := policy.RatePerDay.Mul(decimal.NewFromInt(int64(days)))
	if policy.MaxFine != nil && amount.GreaterThan(*policy.MaxFine) {
		amount = *policy.MaxFine
	}
	return amount
}

// ReplacementFine returns the fine for a lost copy: the book's price when
// known and positive, otherwise the policy's flat lost-book fine.
func ReplacementFine(price *decimal.Decimal, policy FinePolicy) decimal.Decimal {
	if price != nil && price.IsPositive() {
		return *price
	}
	return policy.LostBookFine
}
