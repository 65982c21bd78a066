// Package engine resolves split requests into a SplitResult and nets
// persisted split records into balances.
//
// Resolution runs three stages and stops at the first that produces a
// result covering every participant:
//  1. the deterministic percentage parser
//  2. the split generator, when one is configured
//  3. an equal split, which cannot fail
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/aisplit"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/matcher"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/parser"
)

// SplitGenerator proposes a split when the text has no explicit percentages.
// *aisplit.Generator implements it.
type SplitGenerator interface {
	Generate(ctx context.Context, req aisplit.Request) (*models.SplitResult, error)
}

// Request is a split request from CurrentUser naming Others.
type Request struct {
	Text        string
	CurrentUser models.Participant
	Others      []models.Participant
	// Total is optional; the text is searched for an amount when it is absent.
	Total       decimal.NullDecimal
	Category    string
	Subcategory string
	Currency    string
	Description string
}

// Outcome is the result of ResolveSplit tagged with the stage that produced it.
type Outcome struct {
	Result *models.SplitResult
	Source models.SplitSource
	// Unresolved lists names in the text that matched no participant.
	Unresolved []*matcher.UnmatchedNameError
	Warnings   []string
}

// Engine resolves splits. It holds no per-request state and is safe for
// concurrent use.
type Engine struct {
	parser    *parser.Parser
	generator SplitGenerator
	metrics   *metrics.Metrics
}

// New creates an Engine. gen may be nil, in which case requests the parser
// declines go straight to the equal split. m may be nil.
func New(gen SplitGenerator, m *metrics.Metrics) *Engine {
	return &Engine{parser: parser.New(), generator: gen, metrics: m}
}

// ResolveSplit always returns a result with one entry per participant.
// Failures in the parser or generator degrade to the next stage and never
// surface as errors.
func (e *Engine) ResolveSplit(ctx context.Context, req Request) Outcome {
	participants := participantSet(req)
	if len(participants) == 0 {
		slog.Warn("Split request has no participants")
		return e.finish(Outcome{
			Result: &models.SplitResult{
				Description: req.Description,
				Category:    parser.DefaultCategory,
				TotalAmount: req.Total.Decimal,
				Currency:    "USD",
				Splits:      []models.SplitCandidate{},
				Source:      models.SourceFallback,
				Warnings:    []string{"no participants to split between"},
			},
		})
	}

	out, err := e.parser.Parse(parser.Input{
		Text:          req.Text,
		Participants:  participants,
		CurrentUserID: req.CurrentUser.ID,
		Total:         req.Total,
		Category:      req.Category,
		Subcategory:   req.Subcategory,
		Currency:      req.Currency,
		Description:   req.Description,
	})
	outcome := Outcome{Unresolved: out.Unresolved}
	if err == nil {
		outcome.Result = out.Result
		return e.finish(outcome)
	}
	slog.Debug("Parser declined split request", "reason", err)

	total, currency := knownTotal(req)

	if e.generator != nil {
		result, err := e.generator.Generate(ctx, aisplit.Request{
			Text:          req.Text,
			Participants:  participants,
			CurrentUserID: req.CurrentUser.ID,
			Total:         total,
			Category:      req.Category,
			Currency:      currency,
		})
		if err == nil {
			err = calculator.CheckCoverage(result.Splits, participants)
		}
		if err == nil {
			if req.Description != "" {
				result.Description = req.Description
			}
			if req.Subcategory != "" {
				result.Subcategory = req.Subcategory
			}
			outcome.Result = result
			return e.finish(outcome)
		}
		slog.Warn("Split generation failed, falling back to equal split", "error", err)
	}

	outcome.Result = equalSplit(req, participants, total, currency)
	return e.finish(outcome)
}

// finish fills the outcome tags from the result and records it.
func (e *Engine) finish(o Outcome) Outcome {
	o.Source = o.Result.Source
	o.Warnings = o.Result.Warnings
	e.metrics.IncrementResolution(string(o.Source))
	slog.Info("Resolved split",
		"source", o.Source,
		"participants", len(o.Result.Splits),
		"total", o.Result.TotalAmount.StringFixed(2),
		"unresolved", len(o.Unresolved),
		"warnings", len(o.Warnings))
	return o
}

// ComputeBalances nets userID's unpaid split records into per-counterparty balances.
func (e *Engine) ComputeBalances(userID string, records []models.ExpenseSplitRecord) models.Balances {
	return calculator.CalculateBalances(userID, records)
}

// participantSet is the current user followed by the others, deduplicated by ID.
func participantSet(req Request) []models.Participant {
	seen := make(map[string]bool, len(req.Others)+1)
	out := make([]models.Participant, 0, len(req.Others)+1)
	for _, p := range append([]models.Participant{req.CurrentUser}, req.Others...) {
		if p.ID == "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

// knownTotal returns the caller's total, or an amount found in the text.
func knownTotal(req Request) (decimal.NullDecimal, string) {
	amount, textCurrency, found := parser.ExtractAmount(req.Text)
	currency := parser.NormalizeCurrency(req.Currency)
	if currency == "" {
		currency = textCurrency
	}
	if req.Total.Valid {
		return req.Total, currency
	}
	if found {
		return decimal.NewNullDecimal(amount), currency
	}
	return decimal.NullDecimal{}, currency
}

func equalSplit(req Request, participants []models.Participant, total decimal.NullDecimal, currency string) *models.SplitResult {
	var warnings []string
	if !total.Valid {
		warnings = append(warnings, "no total amount found, shares are zero")
	}
	if currency == "" {
		currency = "USD"
	}
	category := req.Category
	if category == "" {
		category = parser.DefaultCategory
	}
	description := req.Description
	if description == "" {
		description = strings.TrimSpace(req.Text)
	}

	return &models.SplitResult{
		Description: description,
		Category:    category,
		Subcategory: req.Subcategory,
		TotalAmount: total.Decimal,
		Currency:    currency,
		Splits:      calculator.EqualSplit(total.Decimal, participants),
		Reasoning:   fmt.Sprintf("Split equally between %d participants", len(participants)),
		Source:      models.SourceFallback,
		Warnings:    warnings,
	}
}
