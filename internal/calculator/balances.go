package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

// CalculateBalances nets a viewer's unpaid split records into one BalanceEntry
// per counterparty plus an overall summary.
//
// Algorithm:
// - Skip paid records, records not involving the viewer, and self-splits
// - Viewer paid, someone else participates: that person owes the viewer
// - Viewer participates, someone else paid: the viewer owes the payer
// - Summary: totals across all counterparties
//
// The result does not depend on record order.
func CalculateBalances(viewerID string, records []models.ExpenseSplitRecord) models.Balances {
	entries := make(map[string]*models.BalanceEntry)

	entryFor := func(id, name string) *models.BalanceEntry {
		e, ok := entries[id]
		if !ok {
			e = &models.BalanceEntry{
				CounterpartyID:   id,
				CounterpartyName: name,
				OwesYou:          decimal.Zero,
				YouOwe:           decimal.Zero,
				NetBalance:       decimal.Zero,
			}
			entries[id] = e
		}
		// Records may disagree on a name if it changed; keep the smallest for stability.
		if name != "" && (e.CounterpartyName == "" || name < e.CounterpartyName) {
			e.CounterpartyName = name
		}
		return e
	}

	for _, r := range records {
		if r.Paid || r.IsSelfSplit() {
			continue
		}

		line := models.ContributingExpense{
			ExpenseID:   r.ExpenseID,
			Description: r.Description,
			Category:    r.Category,
			Amount:      r.Amount,
			CreatedAt:   r.CreatedAt,
		}

		switch viewerID {
		case r.PayerID:
			e := entryFor(r.ParticipantID, r.ParticipantName)
			e.OwesYou = e.OwesYou.Add(r.Amount)
			e.NetBalance = e.NetBalance.Add(r.Amount)
			line.OwedToYou = true
			e.ContributingExpenses = append(e.ContributingExpenses, line)
		case r.ParticipantID:
			e := entryFor(r.PayerID, r.PayerName)
			e.YouOwe = e.YouOwe.Add(r.Amount)
			e.NetBalance = e.NetBalance.Sub(r.Amount)
			e.ContributingExpenses = append(e.ContributingExpenses, line)
		}
	}

	result := models.Balances{
		Summary: models.BalanceSummary{
			TotalOwedToYou: decimal.Zero,
			TotalYouOwe:    decimal.Zero,
			NetBalance:     decimal.Zero,
		},
		Balances: make([]models.BalanceEntry, 0, len(entries)),
	}

	for _, e := range entries {
		sort.Slice(e.ContributingExpenses, func(i, j int) bool {
			a, b := e.ContributingExpenses[i], e.ContributingExpenses[j]
			if a.CreatedAt != b.CreatedAt {
				return a.CreatedAt < b.CreatedAt
			}
			if a.ExpenseID != b.ExpenseID {
				return a.ExpenseID < b.ExpenseID
			}
			if a.OwedToYou != b.OwedToYou {
				return !a.OwedToYou
			}
			return a.Amount.LessThan(b.Amount)
		})

		result.Summary.TotalOwedToYou = result.Summary.TotalOwedToYou.Add(e.OwesYou)
		result.Summary.TotalYouOwe = result.Summary.TotalYouOwe.Add(e.YouOwe)
		result.Balances = append(result.Balances, *e)
	}
	result.Summary.NetBalance = result.Summary.TotalOwedToYou.Sub(result.Summary.TotalYouOwe)
	result.Summary.FriendCount = len(result.Balances)

	sort.Slice(result.Balances, func(i, j int) bool {
		a, b := result.Balances[i], result.Balances[j]
		if a.CounterpartyName != b.CounterpartyName {
			return a.CounterpartyName < b.CounterpartyName
		}
		return a.CounterpartyID < b.CounterpartyID
	})

	return result
}
