// Package aisplit asks a language model for a split when the request text
// has no explicit percentages, and turns its loosely formatted answer into
// a typed SplitResult.
package aisplit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/matcher"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
)

var (
	// ErrMalformedOutput means the model answer could not be used even after
	// repair and salvage.
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrTransient marks generator failures worth retrying, such as rate
	// limits and server errors.
	ErrTransient = errors.New("transient generator failure")
)

// TextGenerator sends a prompt to a language model and returns its reply.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config bounds calls to the TextGenerator.
type Config struct {
	// Timeout applies to each attempt.
	Timeout time.Duration
	// Retries is the number of extra attempts after a transient failure.
	Retries int
	// Backoff is the pause before a retry.
	Backoff time.Duration
}

// DefaultConfig returns a 20 second timeout with one retry.
func DefaultConfig() Config {
	return Config{Timeout: 20 * time.Second, Retries: 1, Backoff: 500 * time.Millisecond}
}

// Request is what the model is asked to split.
type Request struct {
	Text          string
	Participants  []models.Participant
	CurrentUserID string
	Total         decimal.NullDecimal
	Category      string
	Currency      string
}

func (r Request) currency() string {
	if r.Currency == "" {
		return "USD"
	}
	return r.Currency
}

// Generator produces splits with a TextGenerator.
type Generator struct {
	client  TextGenerator
	cfg     Config
	metrics *metrics.Metrics
}

// New creates a Generator. Zero Config fields take their defaults; m may be nil.
func New(client TextGenerator, cfg Config, m *metrics.Metrics) *Generator {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = def.Backoff
	}
	return &Generator{client: client, cfg: cfg, metrics: m}
}

// Generate asks the model for a split of req.
// The result always holds one entry per participant. Sums that do not
// reconcile are reported in Warnings, never corrected.
func (g *Generator) Generate(ctx context.Context, req Request) (*models.SplitResult, error) {
	prompt := BuildPrompt(req)

	text, err := g.call(ctx, prompt)
	if err != nil {
		return nil, err
	}

	raw, err := g.decode(text)
	if err != nil {
		return nil, err
	}

	return g.build(req, raw)
}

// call runs the generator with a per-attempt timeout, retrying transient failures.
func (g *Generator) call(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= g.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(g.cfg.Backoff):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		start := time.Now()
		text, err := g.client.Generate(attemptCtx, prompt)
		cancel()

		if err == nil {
			g.metrics.ObserveGenerateLatency("ok", time.Since(start))
			return text, nil
		}
		if ctx.Err() != nil {
			g.metrics.ObserveGenerateLatency("error", time.Since(start))
			return "", fmt.Errorf("failed to generate split: %w", ctx.Err())
		}

		timedOut := errors.Is(err, context.DeadlineExceeded)
		if timedOut {
			g.metrics.ObserveGenerateLatency("timeout", time.Since(start))
		} else {
			g.metrics.ObserveGenerateLatency("error", time.Since(start))
		}

		lastErr = err
		if !timedOut && !errors.Is(err, ErrTransient) {
			break
		}
		slog.Warn("Split generation attempt failed", "attempt", attempt+1, "error", err)
	}
	return "", fmt.Errorf("failed to generate split: %w", lastErr)
}

// decode extracts, repairs and parses the model's answer, salvaging
// individual splits when the whole document will not parse.
func (g *Generator) decode(text string) (rawResponse, error) {
	var resp rawResponse

	body, ok := ExtractJSON(text)
	if !ok {
		g.metrics.IncrementModelOutput(metrics.OutputMalformed)
		slog.Error("Model output has no JSON object", "raw", text)
		return resp, fmt.Errorf("%w: no JSON object found", ErrMalformedOutput)
	}

	repaired := Repair(body)
	err := json.Unmarshal([]byte(repaired), &resp)
	if err == nil && len(resp.Splits) > 0 {
		if repaired == body {
			g.metrics.IncrementModelOutput(metrics.OutputClean)
		} else {
			g.metrics.IncrementModelOutput(metrics.OutputRepaired)
			slog.Debug("Repaired model output", "raw", body, "repaired", repaired)
		}
		return resp, nil
	}
	if err == nil {
		err = errors.New("no splits")
	}

	if splits := salvage(repaired); len(splits) > 0 {
		g.metrics.IncrementModelOutput(metrics.OutputSalvaged)
		slog.Warn("Salvaged splits from malformed model output",
			"splits", len(splits), "error", err, "raw", body, "repaired", repaired)
		return rawResponse{Splits: splits}, nil
	}

	g.metrics.IncrementModelOutput(metrics.OutputMalformed)
	slog.Error("Failed to parse model output", "error", err, "raw", body, "repaired", repaired)
	return resp, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
}

// build maps the model's splits onto the request participants.
func (g *Generator) build(req Request, raw rawResponse) (*models.SplitResult, error) {
	total := req.Total.Decimal
	if !req.Total.Valid {
		if !raw.TotalAmount.Valid {
			total = decimal.Zero
			for _, s := range raw.Splits {
				total = total.Add(s.Amount.Value)
			}
		} else {
			total = raw.TotalAmount.Value
		}
	}
	total = calculator.RoundAmount(total)

	var warnings []string
	claimed := make(map[string]bool)
	byID := make(map[string]models.SplitCandidate)

	for _, s := range raw.Splits {
		p, ok := g.participantFor(s, req.Participants, claimed)
		if !ok {
			label := firstNonEmpty(s.ParticipantID, s.Name)
			if claimedBy(label, req.Participants, claimed) {
				warnings = append(warnings, fmt.Sprintf("ignored duplicate share for %q", label))
			} else {
				warnings = append(warnings, fmt.Sprintf("ignored share for unknown participant %q", label))
			}
			continue
		}
		claimed[p.ID] = true

		amount, pct, warn := shareValues(s, total, p.DisplayName)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		byID[p.ID] = models.SplitCandidate{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Amount:        amount,
			Percentage:    pct,
		}
	}

	if len(byID) == 0 {
		g.metrics.IncrementModelOutput(metrics.OutputMalformed)
		return nil, fmt.Errorf("%w: no split matched a participant", ErrMalformedOutput)
	}

	splits := make([]models.SplitCandidate, 0, len(req.Participants))
	for _, p := range req.Participants {
		c, ok := byID[p.ID]
		if !ok {
			c = models.SplitCandidate{
				ParticipantID: p.ID,
				DisplayName:   p.DisplayName,
				Amount:        decimal.Zero,
				Percentage:    decimal.Zero,
			}
			warnings = append(warnings, fmt.Sprintf("no share returned for %s, recorded as zero", p.DisplayName))
		}
		splits = append(splits, c)
	}

	if err := calculator.CheckSums(total, splits, calculator.AmountTolerance, calculator.PercentTolerance); err != nil {
		g.metrics.IncrementSumMismatch()
		slog.Warn("Model split does not reconcile", "error", err, "total", total.StringFixed(2))
		warnings = append(warnings, err.Error())
	}

	category := req.Category
	if category == "" {
		category = strings.ToLower(strings.TrimSpace(raw.Category))
	}
	if category == "" {
		category = "general"
	}
	description := strings.TrimSpace(raw.Description)
	if description == "" {
		description = strings.TrimSpace(req.Text)
	}
	currency := req.Currency
	if currency == "" {
		currency = strings.ToUpper(strings.TrimSpace(raw.Currency))
	}
	if currency == "" {
		currency = "USD"
	}

	return &models.SplitResult{
		Description: description,
		Category:    category,
		Subcategory: strings.TrimSpace(raw.Subcategory),
		TotalAmount: total,
		Currency:    currency,
		Splits:      splits,
		Reasoning:   strings.TrimSpace(raw.Reasoning),
		Source:      models.SourceAIGenerated,
		Warnings:    warnings,
	}, nil
}

// participantFor finds the unclaimed participant a model split refers to,
// by id first and then by name.
func (g *Generator) participantFor(s rawSplit, participants []models.Participant, claimed map[string]bool) (models.Participant, bool) {
	if s.ParticipantID != "" {
		for _, p := range participants {
			if p.ID == s.ParticipantID {
				return p, !claimed[p.ID]
			}
		}
	}
	name := s.Name
	if name == "" {
		// Some models put the name in the id field.
		name = s.ParticipantID
	}
	m, ok := matcher.Resolve(name, participants, claimed)
	return m.Participant, ok
}

// claimedBy reports whether label names a participant that already has a share.
func claimedBy(label string, participants []models.Participant, claimed map[string]bool) bool {
	for _, p := range participants {
		if claimed[p.ID] && (p.ID == label || matcher.Score(label, p.DisplayName) >= matcher.Threshold) {
			return true
		}
	}
	return false
}

// shareValues fills in whichever of amount and percentage the model left
// out. Amounts are rounded to cents.
func shareValues(s rawSplit, total decimal.Decimal, name string) (decimal.Decimal, decimal.Decimal, string) {
	amount, pct := s.Amount.Value, s.Percentage.Value
	switch {
	case s.Amount.Valid && s.Percentage.Valid:
	case s.Amount.Valid:
		if !total.IsZero() {
			pct = amount.Mul(decimal.NewFromInt(100)).DivRound(total, 2)
		}
	case s.Percentage.Valid:
		amount = calculator.ShareOf(total, pct)
	default:
		return decimal.Zero, decimal.Zero, fmt.Sprintf("share for %s had no amount or percentage, recorded as zero", name)
	}
	return calculator.RoundAmount(amount), pct, ""
}
