package calculator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func people(names ...string) []models.Participant {
	out := make([]models.Participant, len(names))
	for i, n := range names {
		out[i] = models.Participant{ID: fmt.Sprintf("u%d", i+1), DisplayName: n}
	}
	return out
}

func TestEqualSplit(t *testing.T) {
	tests := []struct {
		name         string
		total        string
		participants []models.Participant
		wantShare    string
		wantPercent  string
	}{
		{"two people", "100", people("Alice", "Bob"), "50", "50"},
		{"three people even", "60", people("Me", "Alice", "Bob"), "20", "33.3333"},
		{"three people uneven", "100", people("A", "B", "C"), "33.33", "33.3333"},
		{"seven people", "10", people("A", "B", "C", "D", "E", "F", "G"), "1.43", "14.2857"},
		{"single participant", "42.50", people("Me"), "42.5", "100"},
		{"zero total", "0", people("A", "B"), "0", "50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := dec(tt.total)
			splits := EqualSplit(total, tt.participants)

			if len(splits) != len(tt.participants) {
				t.Fatalf("expected %d splits, got %d", len(tt.participants), len(splits))
			}
			if err := CheckCoverage(splits, tt.participants); err != nil {
				t.Errorf("coverage: %v", err)
			}

			sum := decimal.Zero
			for i, s := range splits {
				if s.ParticipantID != tt.participants[i].ID {
					t.Errorf("split %d participant = %s, want %s", i, s.ParticipantID, tt.participants[i].ID)
				}
				if !s.Amount.Equal(dec(tt.wantShare)) {
					t.Errorf("split %d amount = %s, want %s", i, s.Amount, tt.wantShare)
				}
				if !s.Percentage.Equal(dec(tt.wantPercent)) {
					t.Errorf("split %d percentage = %s, want %s", i, s.Percentage, tt.wantPercent)
				}
				sum = sum.Add(s.Amount)
			}

			slack := AmountTolerance.Mul(decimal.NewFromInt(int64(len(splits))))
			if sum.Sub(total).Abs().GreaterThan(slack) {
				t.Errorf("sum %s drifts from total %s by more than %s", sum, total, slack)
			}
		})
	}
}

func TestCheckCoverage(t *testing.T) {
	ps := people("Alice", "Bob")

	tests := []struct {
		name    string
		splits  []models.SplitCandidate
		wantErr bool
	}{
		{"exactly once", []models.SplitCandidate{{ParticipantID: "u1"}, {ParticipantID: "u2"}}, false},
		{"missing participant", []models.SplitCandidate{{ParticipantID: "u1"}}, true},
		{"duplicate participant", []models.SplitCandidate{{ParticipantID: "u1"}, {ParticipantID: "u1"}}, true},
		{"stranger", []models.SplitCandidate{{ParticipantID: "u1"}, {ParticipantID: "u9"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCoverage(tt.splits, ps)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckCoverage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrCoverage) {
				t.Errorf("expected ErrCoverage, got %v", err)
			}
		})
	}
}

func TestCheckSums(t *testing.T) {
	split := func(amount, pct string) models.SplitCandidate {
		return models.SplitCandidate{Amount: dec(amount), Percentage: dec(pct)}
	}

	tests := []struct {
		name        string
		total       string
		splits      []models.SplitCandidate
		amountTol   decimal.Decimal
		wantAmount  bool
		wantPercent bool
	}{
		{"exact", "100", []models.SplitCandidate{split("30", "30"), split("70", "70")}, AmountTolerance, false, false},
		{"rounding within tolerance", "100", []models.SplitCandidate{split("33.33", "33.33"), split("33.33", "33.33"), split("33.33", "33.34")}, AmountTolerance, false, false},
		{"amount off", "100", []models.SplitCandidate{split("30", "30"), split("60", "70")}, AmountTolerance, true, false},
		{"two cents fails", "10", []models.SplitCandidate{split("3.34", "33.4"), split("3.34", "33.4"), split("3.34", "33.2")}, AmountTolerance, true, false},
		{"percent off", "100", []models.SplitCandidate{split("50", "40"), split("50", "40")}, AmountTolerance, false, true},
		{"both off", "100", []models.SplitCandidate{split("10", "10")}, AmountTolerance, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSums(dec(tt.total), tt.splits, tt.amountTol, PercentTolerance)
			if !tt.wantAmount && !tt.wantPercent {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var recErr *ReconciliationError
			if !errors.As(err, &recErr) {
				t.Fatalf("expected ReconciliationError, got %v", err)
			}
			if recErr.AmountOff != tt.wantAmount || recErr.PercentOff != tt.wantPercent {
				t.Errorf("AmountOff=%v PercentOff=%v, want %v %v", recErr.AmountOff, recErr.PercentOff, tt.wantAmount, tt.wantPercent)
			}
			if recErr.Error() == "" {
				t.Error("expected a message")
			}
		})
	}
}

func TestShareOf(t *testing.T) {
	tests := []struct {
		total, pct, want string
	}{
		{"100", "30", "30"},
		{"60", "33.333", "20"},
		{"10", "12.5", "1.25"},
		{"0.1", "50", "0.05"},
		{"19.99", "15", "3"},
	}
	for _, tt := range tests {
		if got := ShareOf(dec(tt.total), dec(tt.pct)); !got.Equal(dec(tt.want)) {
			t.Errorf("ShareOf(%s, %s) = %s, want %s", tt.total, tt.pct, got, tt.want)
		}
	}
}

func TestAbsorbRounding(t *testing.T) {
	share := func(amount string) models.SplitCandidate {
		return models.SplitCandidate{Amount: dec(amount)}
	}

	tests := []struct {
		name   string
		total  string
		splits []models.SplitCandidate
		into   int
		want   []string
	}{
		{"two cents over onto last", "10.10", []models.SplitCandidate{share("2.53"), share("2.53"), share("2.53"), share("2.53")}, 3, []string{"2.53", "2.53", "2.53", "2.51"}},
		{"one cent under onto first", "100", []models.SplitCandidate{share("33.33"), share("33.33"), share("33.33")}, 0, []string{"33.34", "33.33", "33.33"}},
		{"already exact", "100", []models.SplitCandidate{share("30"), share("70")}, 1, []string{"30", "70"}},
		{"real mismatch left alone", "100", []models.SplitCandidate{share("30"), share("60")}, 1, []string{"30", "60"}},
		{"index out of range", "10", []models.SplitCandidate{share("9.99")}, 4, []string{"9.99"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			AbsorbRounding(dec(tt.total), tt.splits, tt.into)
			for i, w := range tt.want {
				if !tt.splits[i].Amount.Equal(dec(w)) {
					t.Errorf("split %d = %s, want %s", i, tt.splits[i].Amount, w)
				}
			}
		})
	}
}

func TestRoundingSlack(t *testing.T) {
	tests := map[int]string{0: "0", 1: "0.005", 3: "0.015", 10: "0.05"}
	for n, want := range tests {
		if got := RoundingSlack(n); !got.Equal(dec(want)) {
			t.Errorf("RoundingSlack(%d) = %s, want %s", n, got, want)
		}
	}
}
