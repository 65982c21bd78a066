package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// ResolveSplitRequest asks for a proposed split of one expense. The caller is
// always a participant; ParticipantIDs names the others.
type ResolveSplitRequest struct {
	Text           string              `json:"text"`
	ParticipantIDs []string            `json:"participantIds"`
	TotalAmount    decimal.NullDecimal `json:"totalAmount"`
	Category       string              `json:"category,omitempty"`
	Subcategory    string              `json:"subcategory,omitempty"`
	Currency       string              `json:"currency,omitempty"`
	Description    string              `json:"description,omitempty"`
}

type ResolveSplitResponse struct {
	Result     *models.SplitResult `json:"result"`
	Source     models.SplitSource  `json:"source"`
	Unresolved []UnresolvedName    `json:"unresolved"`
	Warnings   []string            `json:"warnings"`
}

// UnresolvedName is a name in the request text that matched no participant,
// with the closest directory entries.
type UnresolvedName struct {
	Name        string               `json:"name"`
	Suggestions []models.Participant `json:"suggestions"`
}

// CreateExpenseRequest persists a split the caller has confirmed. The caller
// is recorded as the payer.
type CreateExpenseRequest struct {
	Result *models.SplitResult `json:"result"`
}

type CreateExpenseResponse struct {
	ExpenseID string `json:"expenseId"`
}

type GetBalancesRequest struct{}

type GetBalancesResponse struct {
	models.Balances
}
