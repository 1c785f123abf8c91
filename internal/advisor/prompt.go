package advisor

import (
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/report"
)

// SystemInstruction frames every advice request.
const SystemInstruction = "You are a supportive financial advisor for student budgeting. Keep answers concise and under 200 words."

// BuildPrompt summarises txns and appends the user's question. The summary is
// computed fresh from txns on every call.
func BuildPrompt(txns []core.Transaction, question string) string {
	income := report.TotalByType(txns, core.Income)
	expense := report.TotalByType(txns, core.Expense)

	var b strings.Builder
	b.WriteString("Here is my current financial summary:\n")
	b.WriteString("Total Income: $" + income.String() + "\n")
	b.WriteString("Total Expenses: $" + expense.String() + "\n")
	b.WriteString("Net Balance: $" + income.Sub(expense).String() + "\n")
	b.WriteString("\nExpenses by Category:\n")
	categories := report.ExpenseByCategory(txns)
	if len(categories) == 0 {
		b.WriteString("(none)\n")
	}
	for _, c := range categories {
		b.WriteString(c.Name + ": $" + c.Amount.String() + "\n")
	}
	b.WriteString("\nQuestion: " + strings.TrimSpace(question) + "\n")
	return b.String()
}
