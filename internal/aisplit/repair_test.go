package aisplit

import (
	"encoding/json"
	"testing"
)

func TestRepair(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "unquoted keys single quotes trailing commas",
			input: `{description: 'Lunch', splits: [{userId:'1',amount:10.00,},]}`,
			want:  `{"description": "Lunch", "splits": [{"userId":"1","amount":10.00}]}`,
		},
		{
			name:  "already valid",
			input: `{"a": "b", "n": [1, 2.5]}`,
			want:  `{"a": "b", "n": [1, 2.5]}`,
		},
		{
			name:  "smart quotes",
			input: `{“name”: “Bob’s share”}`,
			want:  `{"name": "Bob's share"}`,
		},
		{
			name:  "undefined and NaN",
			input: `{"amount": NaN, "percentage": undefined, "ok": True}`,
			want:  `{"amount": 0, "percentage": null, "ok": true}`,
		},
		{
			name:  "decimal spacing",
			input: `{"a": 25. 50, "b": 25., "c": .5, "d": [1.]}`,
			want:  `{"a": 25.50, "b": 25.0, "c": 0.5, "d": [1.0]}`,
		},
		{
			name:  "strings are left alone",
			input: `{"reasoning": "rest, {split} evenly, undefined: NaN. 5"}`,
			want:  `{"reasoning": "rest, {split} evenly, undefined: NaN. 5"}`,
		},
		{
			name:  "double quotes inside single quoted string",
			input: `{note: 'he said "hi"'}`,
			want:  `{"note": "he said \"hi\""}`,
		},
		{
			name:  "escaped apostrophe in single quoted string",
			input: `{note: 'Bob\'s'}`,
			want:  `{"note": "Bob's"}`,
		},
		{
			name:  "raw newline inside string",
			input: "{\"note\": \"line one\nline two\"}",
			want:  `{"note": "line one\nline two"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Repair(tt.input)
			if got != tt.want {
				t.Errorf("Repair() =\n%s\nwant:\n%s", got, tt.want)
			}
			if again := Repair(got); again != got {
				t.Errorf("Repair is not idempotent:\n%s\n%s", got, again)
			}
			if !json.Valid([]byte(got)) {
				t.Errorf("repaired output is not valid JSON: %s", got)
			}
		})
	}
}

func TestRepair_MalformedSplitsDecode(t *testing.T) {
	var resp rawResponse
	if err := json.Unmarshal([]byte(Repair(`{description: 'Lunch', splits: [{userId:'1',amount:10.00,},]}`)), &resp); err != nil {
		t.Fatalf("failed to decode repaired output: %v", err)
	}
	if resp.Description != "Lunch" {
		t.Errorf("Description = %q, want Lunch", resp.Description)
	}
	if len(resp.Splits) != 1 {
		t.Fatalf("expected 1 split, got %d", len(resp.Splits))
	}
	s := resp.Splits[0]
	if s.ParticipantID != "1" {
		t.Errorf("ParticipantID = %q, want 1", s.ParticipantID)
	}
	if !s.Amount.Valid || s.Amount.Value.StringFixed(2) != "10.00" {
		t.Errorf("Amount = %+v, want 10.00", s.Amount)
	}
	if s.Percentage.Valid {
		t.Errorf("expected no percentage, got %s", s.Percentage.Value)
	}
}

func TestSalvage(t *testing.T) {
	text := Repair(`{"description": "x", "splits": [{"userId": "1", "amount": 10}, {"userId": "2", "amount": oops}, {userId: '3', amount: 5,}], "reasoning": "cut off`)

	var resp rawResponse
	if err := json.Unmarshal([]byte(text), &resp); err == nil {
		t.Fatal("expected the whole document to fail")
	}

	splits := salvage(text)
	if len(splits) != 2 {
		t.Fatalf("expected 2 salvaged splits, got %d: %+v", len(splits), splits)
	}
	if splits[0].ParticipantID != "1" || splits[1].ParticipantID != "3" {
		t.Errorf("unexpected ids %q %q", splits[0].ParticipantID, splits[1].ParticipantID)
	}
}

func TestSalvage_NothingUsable(t *testing.T) {
	tests := []string{
		`{"description": "x"`,
		`{"splits": [{"amount": 1}, {"broken": }]`,
		`no json at all`,
	}
	for _, text := range tests {
		if got := salvage(text); len(got) != 0 {
			t.Errorf("salvage(%q) = %+v, want nothing", text, got)
		}
	}
}

func TestRawSplit_FieldAliases(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantID  string
		wantNm  string
		wantPct string
	}{
		{"participantId", `{"participantId": "u1", "name": "Bob", "percentage": 50}`, "u1", "Bob", "50"},
		{"numeric user id", `{"user_id": 7, "displayName": "Ann", "percent": "25%"}`, "7", "Ann", "25"},
		{"plain id", `{"id": "u2", "display_name": "Cy", "percentage": "12.5"}`, "u2", "Cy", "12.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s rawSplit
			if err := json.Unmarshal([]byte(tt.input), &s); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if s.ParticipantID != tt.wantID || s.Name != tt.wantNm {
				t.Errorf("got id=%q name=%q, want %q %q", s.ParticipantID, s.Name, tt.wantID, tt.wantNm)
			}
			if !s.Percentage.Valid || s.Percentage.Value.String() != tt.wantPct {
				t.Errorf("percentage = %+v, want %s", s.Percentage, tt.wantPct)
			}
		})
	}
}
