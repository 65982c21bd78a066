// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas in the DSN apply to every pooled connection
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateExpense persists an expense and all of its split records in one transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.PayerID == "" {
		return errors.New("expense has no payer")
	}
	if len(expense.Splits) == 0 {
		return errors.New("expense has no splits")
	}

	// Generate ID if not set
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	if expense.Description == "" {
		expense.Description = generateDescription(expense.Splits)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Insert expense
	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, payer_id, description, category, subcategory, total, currency, source, reasoning, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.PayerID, expense.Description, expense.Category, expense.Subcategory,
		expense.Total.StringFixed(2), expense.Currency, string(expense.Source), expense.Reasoning, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	// Insert one split per participant, including the payer's own share
	for _, split := range expense.Splits {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, participant_id, amount, percentage) VALUES (?, ?, ?, ?)",
			expense.ID, split.ParticipantID, split.Amount.StringFixed(2), split.Percentage.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert split for %s: %w", split.ParticipantID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetExpense retrieves an expense by ID, including all of its splits.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense := &models.Expense{}
	var source string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, payer_id, description, category, subcategory, total, currency, source, reasoning, created_at
		 FROM expenses WHERE id = ?`,
		expenseID,
	).Scan(&expense.ID, &expense.PayerID, &expense.Description, &expense.Category, &expense.Subcategory,
		&expense.Total, &expense.Currency, &source, &expense.Reasoning, &expense.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: expense %s", storage.ErrNotFound, expenseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	expense.Source = models.SplitSource(source)

	rows, err := s.db.QueryContext(ctx,
		`SELECT s.participant_id, u.display_name, s.amount, s.percentage
		 FROM expense_splits s
		 JOIN users u ON u.id = s.participant_id
		 WHERE s.expense_id = ?
		 ORDER BY u.display_name, s.participant_id`,
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var split models.SplitCandidate
		if err := rows.Scan(&split.ParticipantID, &split.DisplayName, &split.Amount, &split.Percentage); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		expense.Splits = append(expense.Splits, split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}

	return expense, nil
}

// ListUnpaidSplits returns the unpaid split records visible to userID, with
// payer and participant names joined in.
func (s *SQLiteStore) ListUnpaidSplits(ctx context.Context, userID string) ([]models.ExpenseSplitRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.expense_id, e.payer_id, payer.display_name, s.participant_id, member.display_name,
		        s.amount, s.paid, e.created_at, e.description, e.category
		 FROM expense_splits s
		 JOIN expenses e ON e.id = s.expense_id
		 JOIN users payer ON payer.id = e.payer_id
		 JOIN users member ON member.id = s.participant_id
		 WHERE s.paid = 0 AND (e.payer_id = ? OR s.participant_id = ?)
		 ORDER BY e.created_at, s.expense_id, s.participant_id`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list unpaid splits: %w", err)
	}
	defer rows.Close()

	var records []models.ExpenseSplitRecord
	for rows.Next() {
		var r models.ExpenseSplitRecord
		if err := rows.Scan(&r.ExpenseID, &r.PayerID, &r.PayerName, &r.ParticipantID, &r.ParticipantName,
			&r.Amount, &r.Paid, &r.CreatedAt, &r.Description, &r.Category); err != nil {
			return nil, fmt.Errorf("failed to scan split record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate split records: %w", err)
	}

	return records, nil
}

// generateDescription creates a description from the split participants.
func generateDescription(splits []models.SplitCandidate) string {
	names := make([]string, 0, len(splits))
	for _, s := range splits {
		if s.DisplayName != "" {
			names = append(names, s.DisplayName)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("Expense - %s", time.Now().Format("Jan 2, 2006"))
	}
	if len(names) <= 3 {
		return fmt.Sprintf("Split with %s", strings.Join(names, ", "))
	}
	return fmt.Sprintf("Split with %s and %d others",
		strings.Join(names[:2], ", "),
		len(names)-2,
	)
}
