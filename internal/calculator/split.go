package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

var (
	hundred  = decimal.NewFromInt(100)
	halfCent = decimal.RequireFromString("0.005")
)

// Tolerances used when checking that a split reconciles.
var (
	// AmountTolerance is the allowed drift between split amounts and the total.
	AmountTolerance = decimal.RequireFromString("0.01")
	// PercentTolerance is the allowed drift between split percentages and 100.
	PercentTolerance = decimal.RequireFromString("0.1")
)

// ErrCoverage is returned when splits do not name each participant exactly once.
var ErrCoverage = errors.New("splits do not cover every participant exactly once")

// ReconciliationError reports split sums that fall outside tolerance.
type ReconciliationError struct {
	Total      decimal.Decimal
	AmountSum  decimal.Decimal
	PercentSum decimal.Decimal
	AmountOff  bool
	PercentOff bool
}

func (e *ReconciliationError) Error() string {
	switch {
	case e.AmountOff && e.PercentOff:
		return fmt.Sprintf("split amounts sum to %s (total %s) and percentages to %s%%",
			e.AmountSum.StringFixed(2), e.Total.StringFixed(2), e.PercentSum.String())
	case e.AmountOff:
		return fmt.Sprintf("split amounts sum to %s, total is %s",
			e.AmountSum.StringFixed(2), e.Total.StringFixed(2))
	default:
		return fmt.Sprintf("split percentages sum to %s%%, want 100%%", e.PercentSum.String())
	}
}

// RoundAmount rounds a monetary amount to cents.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ShareOf returns total × percentage / 100 rounded to cents.
func ShareOf(total, percentage decimal.Decimal) decimal.Decimal {
	return RoundAmount(total.Mul(percentage).Div(hundred))
}

// EqualSplit divides total evenly across participants.
// Every participant gets round(total/n, 2) and 100/n percent, so the amounts
// may drift from total by up to half a cent per participant.
// The caller guarantees participants is non-empty.
func EqualSplit(total decimal.Decimal, participants []models.Participant) []models.SplitCandidate {
	n := decimal.NewFromInt(int64(len(participants)))
	share := RoundAmount(total.Div(n))
	percentage := hundred.DivRound(n, 4)

	splits := make([]models.SplitCandidate, len(participants))
	for i, p := range participants {
		splits[i] = models.SplitCandidate{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Amount:        share,
			Percentage:    percentage,
		}
	}
	return splits
}

// CheckCoverage verifies that splits hold exactly one entry per participant
// and nothing else.
func CheckCoverage(splits []models.SplitCandidate, participants []models.Participant) error {
	want := make(map[string]bool, len(participants))
	for _, p := range participants {
		want[p.ID] = true
	}
	if len(splits) != len(want) {
		return fmt.Errorf("%w: %d splits for %d participants", ErrCoverage, len(splits), len(want))
	}

	seen := make(map[string]bool, len(splits))
	for _, s := range splits {
		if !want[s.ParticipantID] {
			return fmt.Errorf("%w: unknown participant %q", ErrCoverage, s.ParticipantID)
		}
		if seen[s.ParticipantID] {
			return fmt.Errorf("%w: duplicate participant %q", ErrCoverage, s.ParticipantID)
		}
		seen[s.ParticipantID] = true
	}
	return nil
}

// RoundingSlack is the most that n amounts, each rounded to the cent, can
// drift from the value they were rounded from.
func RoundingSlack(n int) decimal.Decimal {
	return halfCent.Mul(decimal.NewFromInt(int64(n)))
}

// AbsorbRounding moves the drift between total and the summed split amounts
// onto splits[i], so shares rounded to cents add up to total exactly. Drift
// larger than half a cent per share is not rounding and is left for
// CheckSums to reject.
func AbsorbRounding(total decimal.Decimal, splits []models.SplitCandidate, i int) {
	if i < 0 || i >= len(splits) {
		return
	}
	sum := decimal.Zero
	for _, s := range splits {
		sum = sum.Add(s.Amount)
	}
	residual := total.Sub(sum)
	if residual.IsZero() || residual.Abs().GreaterThan(RoundingSlack(len(splits))) {
		return
	}
	splits[i].Amount = splits[i].Amount.Add(residual)
}

// CheckSums verifies that split amounts sum to total within amountTol and
// percentages sum to 100 within percentTol.
func CheckSums(total decimal.Decimal, splits []models.SplitCandidate, amountTol, percentTol decimal.Decimal) error {
	amountSum := decimal.Zero
	percentSum := decimal.Zero
	for _, s := range splits {
		amountSum = amountSum.Add(s.Amount)
		percentSum = percentSum.Add(s.Percentage)
	}

	amountOff := amountSum.Sub(total).Abs().GreaterThan(amountTol)
	percentOff := percentSum.Sub(hundred).Abs().GreaterThan(percentTol)
	if !amountOff && !percentOff {
		return nil
	}
	return &ReconciliationError{
		Total:      total,
		AmountSum:  amountSum,
		PercentSum: percentSum,
		AmountOff:  amountOff,
		PercentOff: percentOff,
	}
}
