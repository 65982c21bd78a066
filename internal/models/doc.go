// Package models defines the core domain models for Splitledger.
//
// # Split resolution
//
// A split request is resolved into a SplitResult. Results are transient:
//   - Participant: an entry in a user's directory (the user plus their friends)
//   - SplitCandidate: one participant's proposed share of an expense
//   - SplitResult: a full proposed distribution, tagged with the SplitSource
//     that produced it (parser, AI model or equal-split fallback)
//
// # Ledger
//
// Once a user confirms a SplitResult it is persisted as an Expense with one
// ExpenseSplitRecord per participant, including the payer's own share.
// Balances are derived from unpaid records on every read:
//   - BalanceEntry: what one counterparty owes the viewer and vice versa
//   - Balances: all entries plus a BalanceSummary
//
// # Money
//
// Amounts and percentages are decimal.Decimal values. Amounts are kept at two
// decimal places; percentages may carry more.
package models
