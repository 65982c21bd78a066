package models

import "github.com/shopspring/decimal"

// Expense is a confirmed SplitResult paid by PayerID.
// It is persisted together with one ExpenseSplitRecord per entry in Splits.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	// Populated by the store when empty.
	ID string

	// PayerID is the user who paid and created the expense.
	PayerID string

	Description string
	Category    string
	Subcategory string

	// Total is the full amount paid.
	Total decimal.Decimal

	// Currency is an ISO code used for display only; no conversion happens.
	Currency string

	// Source is the resolution stage that proposed the splits.
	Source SplitSource

	Reasoning string

	// Splits holds every participant's share, including the payer's own.
	Splits []SplitCandidate

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// ExpenseSplitRecord is one participant's persisted share of an expense.
type ExpenseSplitRecord struct {
	ExpenseID       string          `json:"expenseId"`
	PayerID         string          `json:"payerId"`
	PayerName       string          `json:"payerName"`
	ParticipantID   string          `json:"participantId"`
	ParticipantName string          `json:"participantName"`
	Amount          decimal.Decimal `json:"amount"`
	Paid            bool            `json:"paid"`
	CreatedAt       int64           `json:"createdAt"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
}

// IsSelfSplit reports whether the record is the payer's own share.
func (r ExpenseSplitRecord) IsSelfSplit() bool {
	return r.PayerID == r.ParticipantID
}
