// Package parser extracts explicit percentage splits such as
// "split $100 with John (30%) and rest on me" from request text.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/matcher"
	"github.com/mmynk/splitledger/internal/models"
)

// ErrNoDeterministicMatch means the text did not yield a valid, reconciled split.
// It is a signal to try another strategy, not a failure.
var ErrNoDeterministicMatch = errors.New("no deterministic split")

// DefaultCategory is used when the caller supplies none.
const DefaultCategory = "general"

var (
	// "<name phrase> (<N>%)" with up to four words in the phrase.
	rePercentShare = regexp.MustCompile(`((?:\p{L}[\p{L}'.\-]*\s+){0,3}\p{L}[\p{L}'.\-]*)\s*\(\s*(\d+(?:[.,]\d+)?)\s*%\s*\)`)

	// Conjunctions and commas that may lead a captured phrase.
	reFiller = regexp.MustCompile(`(?i)(?:^|\s)(?:with|and|between|among|for|to)(?:\s|$)|,`)

	reRemainder = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:the\s+)?(?:rest|remainder|remaining|balance)\s+(?:is\s+)?(?:on|to|for|with|by)\s+me\b`),
		regexp.MustCompile(`(?i)\b(?:i|i'll|i\s+will)\s+(?:pay|cover|take)\s+(?:the\s+)?(?:rest|remainder)\b`),
	}

	reAmount = regexp.MustCompile(`(?i)([$€£])\s*(\d+(?:,\d{3})*(?:\.\d{1,2})?)|(\d+(?:,\d{3})*(?:\.\d{1,2})?)\s*(usd|eur|gbp|dollars?|euros?|pounds?)\b`)

	// reBareAmount matches a number with no currency right after a spending
	// verb, as in "split 100 with John". Group 2 catches a trailing percent sign.
	reBareAmount = regexp.MustCompile(`(?i)\b(?:split|pay|paid|spent|costs?|total(?:\s+of)?)\s+(\d+(?:,\d{3})*(?:\.\d{1,2})?)(\s*%)?`)
)

// Input is a split request for the parser.
type Input struct {
	Text          string
	Participants  []models.Participant
	CurrentUserID string
	// Total is optional; when absent the parser looks for an amount in Text.
	Total       decimal.NullDecimal
	Category    string
	Subcategory string
	Currency    string
	Description string
}

// Output carries a reconciled split, or only the unresolved names when the
// parser declined.
type Output struct {
	Result     *models.SplitResult
	Unresolved []*matcher.UnmatchedNameError
}

// Parser is the deterministic percentage split parser.
// It holds no state and is safe for concurrent use.
type Parser struct{}

// New creates a Parser.
func New() *Parser {
	return &Parser{}
}

type share struct {
	phrase     string
	percentage decimal.Decimal
}

// extractShares finds every "<name> (<N>%)" occurrence in text.
func extractShares(text string) []share {
	var shares []share
	for _, m := range rePercentShare.FindAllStringSubmatch(text, -1) {
		phrase := stripFiller(m[1])
		if phrase == "" {
			continue
		}
		pct, err := decimal.NewFromString(strings.ReplaceAll(m[2], ",", "."))
		if err != nil {
			continue
		}
		shares = append(shares, share{phrase: phrase, percentage: pct})
	}
	return shares
}

// stripFiller keeps the part of a captured phrase after its last conjunction or comma.
func stripFiller(phrase string) string {
	parts := reFiller.Split(phrase, -1)
	for i := len(parts) - 1; i >= 0; i-- {
		if p := strings.TrimSpace(parts[i]); p != "" {
			return p
		}
	}
	return ""
}

// hasRemainderPhrase reports whether text assigns the rest of the total to the speaker.
func hasRemainderPhrase(text string) bool {
	for _, re := range reRemainder {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// ExtractAmount returns the first monetary amount in text and its currency code.
func ExtractAmount(text string) (decimal.Decimal, string, bool) {
	m := reAmount.FindStringSubmatch(text)
	if m == nil {
		return extractBareAmount(text)
	}
	symbol, number := m[1], m[2]
	if number == "" {
		symbol, number = m[4], m[3]
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(number, ",", ""))
	if err != nil {
		return decimal.Zero, "", false
	}
	return amount, NormalizeCurrency(symbol), true
}

// extractBareAmount finds an amount without a currency, which the caller
// defaults.
func extractBareAmount(text string) (decimal.Decimal, string, bool) {
	m := reBareAmount.FindStringSubmatch(text)
	if m == nil || m[2] != "" {
		return decimal.Zero, "", false
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return decimal.Zero, "", false
	}
	return amount, "", true
}

// NormalizeCurrency maps a symbol or word to an ISO code. Unknown input maps to "".
func NormalizeCurrency(cur string) string {
	switch strings.ToLower(strings.TrimSpace(cur)) {
	case "$", "usd", "dollar", "dollars":
		return "USD"
	case "€", "eur", "euro", "euros":
		return "EUR"
	case "£", "gbp", "pound", "pounds":
		return "GBP"
	case "":
		return ""
	default:
		return strings.ToUpper(cur)
	}
}

// Parse returns a fully reconciled split or an error wrapping ErrNoDeterministicMatch.
// Names that could not be resolved are reported in Output.Unresolved either way.
func (p *Parser) Parse(in Input) (Output, error) {
	var out Output

	total, currency, ok := resolveTotal(in)
	if !ok {
		return out, fmt.Errorf("%w: no total amount", ErrNoDeterministicMatch)
	}

	shares := extractShares(in.Text)
	claimed := make(map[string]bool)
	var splits []models.SplitCandidate
	percentSum := decimal.Zero

	for _, s := range shares {
		m, ok := resolve(s.phrase, in, claimed)
		if !ok {
			out.Unresolved = append(out.Unresolved, matcher.Unmatched(s.phrase, in.Participants))
			continue
		}
		claimed[m.Participant.ID] = true
		splits = append(splits, models.SplitCandidate{
			ParticipantID: m.Participant.ID,
			DisplayName:   m.Participant.DisplayName,
			Amount:        calculator.ShareOf(total, s.percentage),
			Percentage:    s.percentage,
		})
		percentSum = percentSum.Add(s.percentage)
	}

	if in.CurrentUserID != "" && !claimed[in.CurrentUserID] && hasRemainderPhrase(in.Text) {
		if me, ok := findParticipant(in.Participants, in.CurrentUserID); ok {
			rest := decimal.NewFromInt(100).Sub(percentSum)
			claimed[me.ID] = true
			// the remainder share is last, so it takes the rounding residual
			splits = append(splits, models.SplitCandidate{
				ParticipantID: me.ID,
				DisplayName:   me.DisplayName,
				Amount:        calculator.ShareOf(total, rest),
				Percentage:    rest,
			})
		}
	}

	if len(splits) == 0 {
		return out, fmt.Errorf("%w: no percentage shares found", ErrNoDeterministicMatch)
	}
	calculator.AbsorbRounding(total, splits, len(splits)-1)
	for _, s := range splits {
		if s.Percentage.IsNegative() || s.Amount.IsNegative() {
			return out, fmt.Errorf("%w: negative share for %s", ErrNoDeterministicMatch, s.DisplayName)
		}
	}
	if err := calculator.CheckCoverage(splits, in.Participants); err != nil {
		return out, fmt.Errorf("%w: %v", ErrNoDeterministicMatch, err)
	}
	if err := calculator.CheckSums(total, splits, calculator.AmountTolerance, calculator.PercentTolerance); err != nil {
		return out, fmt.Errorf("%w: %v", ErrNoDeterministicMatch, err)
	}

	category := in.Category
	if category == "" {
		category = DefaultCategory
	}
	description := in.Description
	if description == "" {
		description = strings.TrimSpace(in.Text)
	}

	out.Result = &models.SplitResult{
		Description: description,
		Category:    category,
		Subcategory: in.Subcategory,
		TotalAmount: total,
		Currency:    currency,
		Splits:      splits,
		Reasoning:   describe(splits, currency),
		Source:      models.SourceParsed,
	}
	return out, nil
}

// resolveTotal prefers the caller's total and falls back to an amount in the text.
func resolveTotal(in Input) (decimal.Decimal, string, bool) {
	amount, textCurrency, found := ExtractAmount(in.Text)
	currency := NormalizeCurrency(in.Currency)
	if currency == "" {
		currency = textCurrency
	}
	if currency == "" {
		currency = "USD"
	}
	if in.Total.Valid {
		return in.Total.Decimal, currency, true
	}
	return amount, currency, found
}

// selfWords refer to the person making the request.
var selfWords = map[string]bool{"me": true, "myself": true, "i": true, "mine": true}

// resolve maps a name phrase to an unclaimed participant. Words like "me"
// resolve to the current user.
func resolve(phrase string, in Input, claimed map[string]bool) (matcher.Match, bool) {
	if selfWords[matcher.Normalize(phrase)] && in.CurrentUserID != "" && !claimed[in.CurrentUserID] {
		if me, ok := findParticipant(in.Participants, in.CurrentUserID); ok {
			return matcher.Match{Participant: me, Score: 100}, true
		}
	}
	return matcher.Resolve(phrase, in.Participants, claimed)
}

func findParticipant(participants []models.Participant, id string) (models.Participant, bool) {
	for _, p := range participants {
		if p.ID == id {
			return p, true
		}
	}
	return models.Participant{}, false
}

// describe renders one line per share, e.g. "John pays 30% (30.00 USD)".
func describe(splits []models.SplitCandidate, currency string) string {
	lines := make([]string, len(splits))
	for i, s := range splits {
		lines[i] = fmt.Sprintf("%s pays %s%% (%s %s)", s.DisplayName, s.Percentage.String(), s.Amount.StringFixed(2), currency)
	}
	return strings.Join(lines, "; ")
}
