// Package service exposes the split engine and ledger over Connect RPC.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/mmynk/splitledger/internal/cache"
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/engine"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/parser"
	"github.com/mmynk/splitledger/internal/storage"
)

var _ ExpenseServiceHandler = (*ExpenseService)(nil)

// balanceCache is the part of *cache.BalanceCache the service uses.
type balanceCache interface {
	Enabled() bool
	Get(ctx context.Context, userID string) (models.Balances, bool, error)
	Generation(ctx context.Context, userID string) (int64, error)
	SetIfGeneration(ctx context.Context, userID string, gen int64, balances models.Balances) (bool, error)
	Invalidate(ctx context.Context, userIDs ...string) error
}

// ExpenseService implements ExpenseServiceHandler.
type ExpenseService struct {
	store   storage.Store
	engine  *engine.Engine
	cache   balanceCache
	metrics *metrics.Metrics

	// recomputes collapses concurrent balance rebuilds for the same user.
	recomputes singleflight.Group
}

// NewExpenseService creates the service. balances and m may be nil.
func NewExpenseService(store storage.Store, eng *engine.Engine, balances *cache.BalanceCache, m *metrics.Metrics) *ExpenseService {
	return &ExpenseService{store: store, engine: eng, cache: balances, metrics: m}
}

// ResolveSplit proposes a split between the caller and the named participants.
func (s *ExpenseService) ResolveSplit(ctx context.Context, req *connect.Request[ResolveSplitRequest]) (*connect.Response[ResolveSplitResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	msg := req.Msg
	if strings.TrimSpace(msg.Text) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("text is required"))
	}
	if msg.TotalAmount.Valid && !msg.TotalAmount.Decimal.IsPositive() {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("totalAmount must be positive"))
	}

	current, directory, err := s.directory(ctx, userID)
	if err != nil {
		return nil, err
	}

	others, err := selectParticipants(userID, msg.ParticipantIDs, directory)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	outcome := s.engine.ResolveSplit(ctx, engine.Request{
		Text:        msg.Text,
		CurrentUser: current,
		Others:      others,
		Total:       msg.TotalAmount,
		Category:    strings.ToLower(strings.TrimSpace(msg.Category)),
		Subcategory: msg.Subcategory,
		Currency:    msg.Currency,
		Description: msg.Description,
	})

	unresolved := make([]UnresolvedName, len(outcome.Unresolved))
	for i, u := range outcome.Unresolved {
		suggestions := u.Suggestions
		if suggestions == nil {
			suggestions = []models.Participant{}
		}
		unresolved[i] = UnresolvedName{Name: u.Name, Suggestions: suggestions}
	}
	warnings := outcome.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	return connect.NewResponse(&ResolveSplitResponse{
		Result:     outcome.Result,
		Source:     outcome.Source,
		Unresolved: unresolved,
		Warnings:   warnings,
	}), nil
}

// CreateExpense persists a confirmed split with the caller as payer.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	current, directory, err := s.directory(ctx, userID)
	if err != nil {
		return nil, err
	}

	expense, err := expenseFromResult(req.Msg.Result, current, directory)
	if err != nil {
		slog.Warn("CreateExpense rejected", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("CreateExpense failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	// the payer is always among the splits
	participantIDs := make([]string, len(expense.Splits))
	for i, split := range expense.Splits {
		participantIDs[i] = split.ParticipantID
	}
	if err := s.cache.Invalidate(ctx, participantIDs...); err != nil {
		slog.Warn("Failed to invalidate cached balances", "expense_id", expense.ID, "error", err)
	}

	slog.Info("Expense created",
		"expense_id", expense.ID,
		"payer_id", userID,
		"source", expense.Source,
		"total", expense.Total.StringFixed(2),
		"participants", len(expense.Splits))

	return connect.NewResponse(&CreateExpenseResponse{ExpenseID: expense.ID}), nil
}

// GetBalances returns the caller's balances with every counterparty.
func (s *ExpenseService) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache.Enabled() {
		balances, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			slog.Warn("Balance cache read failed", "user_id", userID, "error", err)
		}
		if ok {
			s.metrics.IncrementBalanceRead(metrics.CacheHit)
			return connect.NewResponse(&GetBalancesResponse{Balances: balances}), nil
		}
		s.metrics.IncrementBalanceRead(metrics.CacheMiss)
	} else {
		s.metrics.IncrementBalanceRead(metrics.CacheDisabled)
	}

	v, err, _ := s.recomputes.Do(userID, func() (any, error) {
		// joined callers share this call, so one caller going away must not fail it
		return s.recomputeBalances(context.WithoutCancel(ctx), userID)
	})
	if err != nil {
		slog.Error("GetBalances failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&GetBalancesResponse{Balances: v.(models.Balances)}), nil
}

// recomputeBalances rebuilds balances from the ledger and caches them unless
// an expense touching userID was written in the meantime.
func (s *ExpenseService) recomputeBalances(ctx context.Context, userID string) (models.Balances, error) {
	gen, genErr := s.cache.Generation(ctx, userID)
	if genErr != nil {
		slog.Warn("Balance cache generation read failed", "user_id", userID, "error", genErr)
	}

	records, err := s.store.ListUnpaidSplits(ctx, userID)
	if err != nil {
		return models.Balances{}, err
	}
	balances := s.engine.ComputeBalances(userID, records)

	if genErr != nil {
		return balances, nil
	}
	stored, err := s.cache.SetIfGeneration(ctx, userID, gen, balances)
	if err != nil {
		slog.Warn("Balance cache write failed", "user_id", userID, "error", err)
	} else if !stored && s.cache.Enabled() {
		slog.Debug("Ledger changed during recompute, not caching", "user_id", userID)
	}
	return balances, nil
}

func callerID(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}
	return userID, nil
}

// directory loads the caller and the participants they may split with.
func (s *ExpenseService) directory(ctx context.Context, userID string) (models.Participant, map[string]models.Participant, error) {
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Participant{}, nil, connect.NewError(connect.CodeNotFound, err)
	}
	if err != nil {
		slog.Error("Failed to load user", "user_id", userID, "error", err)
		return models.Participant{}, nil, connect.NewError(connect.CodeInternal, err)
	}

	friends, err := s.store.ListParticipants(ctx, userID)
	if err != nil {
		slog.Error("Failed to load participant directory", "user_id", userID, "error", err)
		return models.Participant{}, nil, connect.NewError(connect.CodeInternal, err)
	}

	directory := make(map[string]models.Participant, len(friends))
	for _, f := range friends {
		directory[f.ID] = f
	}
	return user.Participant(), directory, nil
}

// selectParticipants resolves ids against the directory, dropping the caller
// and duplicates. At least one other participant is required.
func selectParticipants(userID string, ids []string, directory map[string]models.Participant) ([]models.Participant, error) {
	seen := make(map[string]bool, len(ids))
	others := make([]models.Participant, 0, len(ids))
	for _, id := range ids {
		if id == userID || seen[id] {
			continue
		}
		seen[id] = true
		p, ok := directory[id]
		if !ok {
			return nil, fmt.Errorf("participant %q is not in your directory", id)
		}
		others = append(others, p)
	}
	if len(others) == 0 {
		return nil, errors.New("at least one other participant is required")
	}
	return others, nil
}

// expenseFromResult validates a confirmed result and converts it to an
// Expense. Display names are taken from the directory, not the client.
// The payer must hold a share. Parsed and fallback splits must add up to the
// total; model splits were already checked and flagged at resolve time.
func expenseFromResult(result *models.SplitResult, payer models.Participant, directory map[string]models.Participant) (*models.Expense, error) {
	if result == nil {
		return nil, errors.New("result is required")
	}
	if !result.Source.Valid() {
		return nil, fmt.Errorf("unknown source %q", result.Source)
	}
	if !result.TotalAmount.IsPositive() {
		return nil, errors.New("totalAmount must be positive")
	}
	if len(result.Splits) == 0 {
		return nil, errors.New("result has no splits")
	}

	seen := make(map[string]bool, len(result.Splits))
	splits := make([]models.SplitCandidate, len(result.Splits))
	for i, split := range result.Splits {
		if seen[split.ParticipantID] {
			return nil, fmt.Errorf("participant %q appears more than once", split.ParticipantID)
		}
		seen[split.ParticipantID] = true

		p, ok := directory[split.ParticipantID]
		if split.ParticipantID == payer.ID {
			p, ok = payer, true
		}
		if !ok {
			return nil, fmt.Errorf("participant %q is not in your directory", split.ParticipantID)
		}
		if split.Amount.IsNegative() || split.Percentage.IsNegative() {
			return nil, fmt.Errorf("share for %s is negative", p.DisplayName)
		}

		splits[i] = models.SplitCandidate{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Amount:        split.Amount,
			Percentage:    split.Percentage,
		}
	}

	if !seen[payer.ID] {
		return nil, fmt.Errorf("payer %s has no share", payer.DisplayName)
	}
	if err := checkReconciled(result.Source, result.TotalAmount, splits); err != nil {
		return nil, err
	}

	currency := parser.NormalizeCurrency(result.Currency)
	if currency == "" {
		currency = "USD"
	}
	category := strings.ToLower(strings.TrimSpace(result.Category))
	if category == "" {
		category = parser.DefaultCategory
	}

	return &models.Expense{
		PayerID:     payer.ID,
		Description: strings.TrimSpace(result.Description),
		Category:    category,
		Subcategory: result.Subcategory,
		Total:       result.TotalAmount,
		Currency:    currency,
		Source:      result.Source,
		Reasoning:   result.Reasoning,
		Splits:      splits,
	}, nil
}

func checkReconciled(source models.SplitSource, total decimal.Decimal, splits []models.SplitCandidate) error {
	switch source {
	case models.SourceParsed:
		return calculator.CheckSums(total, splits, calculator.AmountTolerance, calculator.PercentTolerance)
	case models.SourceFallback:
		// a cent per share
		slack := calculator.AmountTolerance.Mul(decimal.NewFromInt(int64(len(splits))))
		return calculator.CheckSums(total, splits, slack, calculator.PercentTolerance)
	default:
		return nil
	}
}
