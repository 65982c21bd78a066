package aisplit

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// rawResponse is the model's answer as decoded, before it is checked
// against the request.
type rawResponse struct {
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Subcategory string      `json:"subcategory"`
	TotalAmount flexDecimal `json:"totalAmount"`
	Currency    string      `json:"currency"`
	Splits      []rawSplit  `json:"splits"`
	Reasoning   string      `json:"reasoning"`
}

// rawSplit accepts the field spellings models commonly produce.
type rawSplit struct {
	ParticipantID string
	Name          string
	Amount        flexDecimal
	Percentage    flexDecimal
}

func (s *rawSplit) UnmarshalJSON(b []byte) error {
	var w struct {
		ParticipantID      flexString  `json:"participantId"`
		ParticipantIDSnake flexString  `json:"participant_id"`
		UserID             flexString  `json:"userId"`
		UserIDSnake        flexString  `json:"user_id"`
		ID                 flexString  `json:"id"`
		Name               string      `json:"name"`
		DisplayName        string      `json:"displayName"`
		DisplayNameSnake   string      `json:"display_name"`
		Amount             flexDecimal `json:"amount"`
		Percentage         flexDecimal `json:"percentage"`
		Percent            flexDecimal `json:"percent"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	s.ParticipantID = firstNonEmpty(string(w.ParticipantID), string(w.ParticipantIDSnake),
		string(w.UserID), string(w.UserIDSnake), string(w.ID))
	s.Name = firstNonEmpty(w.Name, w.DisplayName, w.DisplayNameSnake)
	s.Amount = w.Amount
	s.Percentage = w.Percentage
	if !s.Percentage.Valid {
		s.Percentage = w.Percent
	}
	return nil
}

// usable reports whether the split names someone.
func (s rawSplit) usable() bool {
	return s.ParticipantID != "" || s.Name != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// flexString decodes a JSON string or number into a string.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

// flexDecimal decodes a JSON number, a numeric string such as "$10.50" or
// "30%", or null.
type flexDecimal struct {
	Value decimal.Decimal
	Valid bool
}

func (f *flexDecimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = flexDecimal{}
		return nil
	}
	text := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
		text = strings.Trim(strings.TrimSpace(text), "$€£% ")
		text = strings.ReplaceAll(text, ",", "")
		if text == "" {
			*f = flexDecimal{}
			return nil
		}
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return err
	}
	*f = flexDecimal{Value: d, Valid: true}
	return nil
}
