package models

import "github.com/shopspring/decimal"

// SplitSource records which resolution stage produced a SplitResult.
type SplitSource string

const (
	// SourceParsed means the deterministic percentage parser produced the split.
	SourceParsed SplitSource = "parsed"
	// SourceAIGenerated means the language model produced the split.
	SourceAIGenerated SplitSource = "ai_generated"
	// SourceFallback means the total was divided equally.
	SourceFallback SplitSource = "fallback"
)

// Valid reports whether s is one of the known sources.
func (s SplitSource) Valid() bool {
	switch s {
	case SourceParsed, SourceAIGenerated, SourceFallback:
		return true
	}
	return false
}

// SplitCandidate is one participant's share of an expense.
type SplitCandidate struct {
	ParticipantID string          `json:"participantId"`
	DisplayName   string          `json:"displayName"`
	Amount        decimal.Decimal `json:"amount"`
	Percentage    decimal.Decimal `json:"percentage"`
}

// SplitResult is a proposed distribution of TotalAmount across participants.
//
// Splits holds exactly one entry per participant of the request. For parsed
// results the amounts reconcile to TotalAmount within 0.02 and percentages to
// 100 within 0.1. AI results are trusted as given and carry a warning when they
// do not reconcile. Fallback results are derived, not reconciled.
type SplitResult struct {
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Subcategory string           `json:"subcategory,omitempty"`
	TotalAmount decimal.Decimal  `json:"totalAmount"`
	Currency    string           `json:"currency"`
	Splits      []SplitCandidate `json:"splits"`
	Reasoning   string           `json:"reasoning"`
	Source      SplitSource      `json:"source"`
	Warnings    []string         `json:"warnings,omitempty"`
}

// SumAmounts returns the sum of all split amounts.
func (r *SplitResult) SumAmounts() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range r.Splits {
		sum = sum.Add(s.Amount)
	}
	return sum
}

// SumPercentages returns the sum of all split percentages.
func (r *SplitResult) SumPercentages() decimal.Decimal {
	sum := decimal.Zero
	for _, s := range r.Splits {
		sum = sum.Add(s.Percentage)
	}
	return sum
}
