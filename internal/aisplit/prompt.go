package aisplit

import (
	"fmt"
	"strings"
)

// BuildPrompt renders the instructions sent to the text generator.
func BuildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("You split shared expenses between people. Work out how the expense below is split.\n\n")

	fmt.Fprintf(&b, "Expense description: %s\n", strings.TrimSpace(req.Text))
	if req.Total.Valid {
		fmt.Fprintf(&b, "Total amount: %s %s\n", req.Total.Decimal.StringFixed(2), req.currency())
	} else {
		b.WriteString("Total amount: unknown, take it from the description\n")
	}
	if req.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", req.Category)
	}

	b.WriteString("\nParticipants (use these ids exactly):\n")
	for _, p := range req.Participants {
		fmt.Fprintf(&b, "- id: %q, name: %q", p.ID, p.DisplayName)
		if p.ID == req.CurrentUserID {
			b.WriteString(" (this is the current user, \"me\" in the description)")
		}
		b.WriteString("\n")
	}

	b.WriteString(`
Rules:
- Include every participant exactly once, with 0 if they pay nothing.
- Amounts have two decimal places and must add up exactly to the total amount.
- Percentages must add up exactly to 100.
- Answer with a single JSON object and nothing else.
- Use double quoted keys and strings, no trailing commas, no comments.

Respond with JSON in this shape:
{
  "description": "short description of the expense",
  "category": "category",
  "subcategory": "optional subcategory",
  "totalAmount": 0.00,
  "currency": "USD",
  "splits": [
    {"participantId": "id", "name": "name", "amount": 0.00, "percentage": 0.0}
  ],
  "reasoning": "one sentence explaining the split"
}
`)
	return b.String()
}
