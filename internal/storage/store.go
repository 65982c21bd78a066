// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitledger/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for user, directory and expense storage.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// CreateUser persists a new user. The user.ID field is populated when empty.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUser retrieves a user by ID. Returns ErrNotFound if missing.
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// AddFriend links two users in both directions. Adding an existing
	// friendship is not an error.
	AddFriend(ctx context.Context, userID, friendID string) error

	// ListParticipants returns the participant directory of userID: every
	// friend, ordered by display name. The user themself is not included.
	ListParticipants(ctx context.Context, userID string) ([]models.Participant, error)

	// CreateExpense persists an expense and one split record per entry in
	// expense.Splits in a single transaction. Either everything is written
	// or nothing is. The expense.ID field is populated when empty.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense with its splits. Returns ErrNotFound if missing.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListUnpaidSplits returns every unpaid split record in which userID is
	// the payer or the participant, including self-splits.
	ListUnpaidSplits(ctx context.Context, userID string) ([]models.ExpenseSplitRecord, error)

	// Close releases any resources held by the store.
	Close() error
}
