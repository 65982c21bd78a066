package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func createUsers(t *testing.T, store *SQLiteStore, names ...string) []*models.User {
	t.Helper()
	users := make([]*models.User, len(names))
	for i, name := range names {
		u := &models.User{DisplayName: name, Email: strings.ToLower(name) + "@example.com"}
		if err := store.CreateUser(context.Background(), u); err != nil {
			t.Fatalf("CreateUser(%s) failed: %v", name, err)
		}
		users[i] = u
	}
	return users
}

func TestSQLiteStore_Users(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateUser generates ID and timestamp", func(t *testing.T) {
		u := createUsers(t, store, "Alice")[0]
		if u.ID == "" {
			t.Error("Expected user ID to be generated")
		}
		if u.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}

		got, err := store.GetUser(ctx, u.ID)
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if got.DisplayName != "Alice" || got.Email != "alice@example.com" {
			t.Errorf("unexpected user %+v", got)
		}
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		err := store.CreateUser(ctx, &models.User{DisplayName: "Other Alice", Email: "alice@example.com"})
		if err == nil {
			t.Error("Expected error for duplicate email")
		}
	})

	t.Run("GetUser returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetUser(ctx, "missing")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestSQLiteStore_Friends(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	users := createUsers(t, store, "Me", "Zoe", "Bob", "Carl")
	me, zoe, bob := users[0], users[1], users[2]

	for _, f := range []*models.User{zoe, bob} {
		if err := store.AddFriend(ctx, me.ID, f.ID); err != nil {
			t.Fatalf("AddFriend failed: %v", err)
		}
	}
	if err := store.AddFriend(ctx, me.ID, bob.ID); err != nil {
		t.Errorf("Adding an existing friend should not fail: %v", err)
	}
	if err := store.AddFriend(ctx, me.ID, me.ID); err == nil {
		t.Error("Expected error when adding yourself")
	}

	got, err := store.ListParticipants(ctx, me.ID)
	if err != nil {
		t.Fatalf("ListParticipants failed: %v", err)
	}
	if len(got) != 2 || got[0].DisplayName != "Bob" || got[1].DisplayName != "Zoe" {
		t.Errorf("unexpected participants %+v", got)
	}

	back, err := store.ListParticipants(ctx, zoe.ID)
	if err != nil {
		t.Fatalf("ListParticipants failed: %v", err)
	}
	if len(back) != 1 || back[0].ID != me.ID {
		t.Errorf("friendship should be symmetric, got %+v", back)
	}

	none, err := store.ListParticipants(ctx, users[3].ID)
	if err != nil {
		t.Fatalf("ListParticipants failed: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected an empty, non-nil directory, got %+v", none)
	}
}

func TestSQLiteStore_Expenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	users := createUsers(t, store, "Alice", "Bob", "Carol")
	a, b, c := users[0], users[1], users[2]

	participants := []models.Participant{a.Participant(), b.Participant(), c.Participant()}

	t.Run("CreateExpense generates ID and description", func(t *testing.T) {
		expense := &models.Expense{
			PayerID:  a.ID,
			Category: "food",
			Total:    dec("90"),
			Currency: "USD",
			Source:   models.SourceFallback,
			Splits:   calculator.EqualSplit(dec("90"), participants),
		}
		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if expense.ID == "" || expense.CreatedAt == 0 {
			t.Error("Expected ID and CreatedAt to be set")
		}
		if expense.Description != "Split with Alice, Bob, Carol" {
			t.Errorf("Description = %q", expense.Description)
		}

		got, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if !got.Total.Equal(dec("90")) || got.Source != models.SourceFallback || got.PayerID != a.ID {
			t.Errorf("unexpected expense %+v", got)
		}
		if len(got.Splits) != 3 {
			t.Fatalf("Expected 3 splits, got %d", len(got.Splits))
		}
		for _, s := range got.Splits {
			if !s.Amount.Equal(dec("30")) || !s.Percentage.Equal(dec("33.3333")) {
				t.Errorf("split %s = %s / %s", s.DisplayName, s.Amount, s.Percentage)
			}
		}
	})

	t.Run("CreateExpense is atomic", func(t *testing.T) {
		tests := []struct {
			name   string
			splits []models.SplitCandidate
		}{
			{"unknown participant", []models.SplitCandidate{
				{ParticipantID: a.ID, Amount: dec("5"), Percentage: dec("50")},
				{ParticipantID: "ghost", Amount: dec("5"), Percentage: dec("50")},
			}},
			{"duplicate participant", []models.SplitCandidate{
				{ParticipantID: b.ID, Amount: dec("5"), Percentage: dec("50")},
				{ParticipantID: b.ID, Amount: dec("5"), Percentage: dec("50")},
			}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				expense := &models.Expense{
					ID:          "atomic-" + strings.ReplaceAll(tt.name, " ", "-"),
					PayerID:     a.ID,
					Description: tt.name,
					Category:    "general",
					Total:       dec("10"),
					Currency:    "USD",
					Source:      models.SourceParsed,
					Splits:      tt.splits,
				}
				if err := store.CreateExpense(ctx, expense); err == nil {
					t.Fatal("Expected CreateExpense to fail")
				}
				if _, err := store.GetExpense(ctx, expense.ID); !errors.Is(err, storage.ErrNotFound) {
					t.Errorf("Expected no expense after failed write, got %v", err)
				}
			})
		}
	})

	t.Run("CreateExpense validates input", func(t *testing.T) {
		if err := store.CreateExpense(ctx, &models.Expense{PayerID: a.ID}); err == nil {
			t.Error("Expected error for expense without splits")
		}
		if err := store.CreateExpense(ctx, &models.Expense{Splits: []models.SplitCandidate{{ParticipantID: a.ID}}}); err == nil {
			t.Error("Expected error for expense without payer")
		}
	})

	t.Run("GetExpense returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetExpense(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestSQLiteStore_ListUnpaidSplits(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	users := createUsers(t, store, "Alice", "Bob", "Carol", "Dave")
	a, b, c, d := users[0], users[1], users[2], users[3]

	mustCreate := func(id string, payer *models.User, createdAt int64, splits ...models.SplitCandidate) {
		t.Helper()
		err := store.CreateExpense(ctx, &models.Expense{
			ID:          id,
			PayerID:     payer.ID,
			Description: "expense " + id,
			Category:    "food",
			Total:       dec("0"),
			Currency:    "USD",
			Source:      models.SourceParsed,
			Splits:      splits,
			CreatedAt:   createdAt,
		})
		if err != nil {
			t.Fatalf("CreateExpense(%s) failed: %v", id, err)
		}
	}
	share := func(u *models.User, amount string) models.SplitCandidate {
		return models.SplitCandidate{ParticipantID: u.ID, Amount: dec(amount), Percentage: dec("0")}
	}

	mustCreate("e1", a, 100, share(a, "30"), share(b, "30"), share(c, "30"))
	mustCreate("e2", b, 200, share(b, "10"), share(a, "10"))
	mustCreate("e3", c, 300, share(c, "5"), share(d, "5"))

	// Bob settles his share of e1 out of band.
	if _, err := store.db.ExecContext(ctx,
		"UPDATE expense_splits SET paid = 1 WHERE expense_id = ? AND participant_id = ?", "e1", b.ID); err != nil {
		t.Fatalf("failed to mark split paid: %v", err)
	}

	records, err := store.ListUnpaidSplits(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListUnpaidSplits failed: %v", err)
	}

	// e1: Alice's own share and Carol's; Bob's is paid. e2: Alice's share only. e3 does not involve Alice.
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d: %+v", len(records), records)
	}
	for _, r := range records {
		if r.ExpenseID == "e3" || r.Paid {
			t.Errorf("unexpected record %+v", r)
		}
		if r.PayerName == "" || r.ParticipantName == "" || r.Description == "" {
			t.Errorf("record is missing joined fields: %+v", r)
		}
	}
	if records[0].ExpenseID != "e1" || records[len(records)-1].ExpenseID != "e2" {
		t.Errorf("records should be ordered by creation time")
	}

	balances := calculator.CalculateBalances(a.ID, records)
	if balances.Summary.FriendCount != 2 {
		t.Errorf("FriendCount = %d, want 2", balances.Summary.FriendCount)
	}
	if !balances.Summary.TotalOwedToYou.Equal(dec("30")) || !balances.Summary.TotalYouOwe.Equal(dec("10")) {
		t.Errorf("unexpected summary %+v", balances.Summary)
	}
}

func TestGenerateDescription(t *testing.T) {
	named := func(names ...string) []models.SplitCandidate {
		out := make([]models.SplitCandidate, len(names))
		for i, n := range names {
			out[i] = models.SplitCandidate{DisplayName: n}
		}
		return out
	}

	tests := []struct {
		splits       []models.SplitCandidate
		wantContains string
	}{
		{nil, "Expense -"},
		{named("Alice"), "Split with Alice"},
		{named("Alice", "Bob"), "Split with Alice, Bob"},
		{named("Alice", "Bob", "Charlie"), "Split with Alice, Bob, Charlie"},
		{named("Alice", "Bob", "Charlie", "Diana"), "and 2 others"},
	}

	for _, tt := range tests {
		t.Run(tt.wantContains, func(t *testing.T) {
			got := generateDescription(tt.splits)
			if !strings.Contains(got, tt.wantContains) {
				t.Errorf("generateDescription() = %q, want to contain %q", got, tt.wantContains)
			}
		})
	}
}
