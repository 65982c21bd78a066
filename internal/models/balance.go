package models

import "github.com/shopspring/decimal"

// ContributingExpense is one expense line behind a BalanceEntry.
type ContributingExpense struct {
	ExpenseID   string          `json:"expenseId"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	// OwedToYou is true when the counterparty owes the viewer this amount.
	OwedToYou bool  `json:"owedToYou"`
	CreatedAt int64 `json:"createdAt"`
}

// BalanceEntry summarises the viewer's debts with one counterparty.
// NetBalance is positive when the counterparty owes the viewer.
type BalanceEntry struct {
	CounterpartyID       string                `json:"counterpartyId"`
	CounterpartyName     string                `json:"counterpartyName"`
	OwesYou              decimal.Decimal       `json:"owesYou"`
	YouOwe               decimal.Decimal       `json:"youOwe"`
	NetBalance           decimal.Decimal       `json:"netBalance"`
	ContributingExpenses []ContributingExpense `json:"contributingExpenses"`
}

// BalanceSummary totals all of the viewer's BalanceEntries.
type BalanceSummary struct {
	TotalOwedToYou decimal.Decimal `json:"totalOwedToYou"`
	TotalYouOwe    decimal.Decimal `json:"totalYouOwe"`
	NetBalance     decimal.Decimal `json:"netBalance"`
	FriendCount    int             `json:"friendCount"`
}

// Balances is the derived ledger view for one viewer. It is recomputed from
// unpaid split records on every read and never stored as its own row.
type Balances struct {
	Summary  BalanceSummary `json:"summary"`
	Balances []BalanceEntry `json:"balances"`
}
