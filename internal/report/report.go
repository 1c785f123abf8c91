// Package report derives totals and time series from a snapshot of
// transactions. Every function is pure: results depend only on the
// arguments, and nothing is cached between calls.
package report

import (
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

var hundred = decimal.NewFromInt(100)

// TotalByType sums the amounts of all transactions of type t.
func TotalByType(txns []core.Transaction, t core.TxType) core.Money {
	var total core.Money
	for _, tx := range txns {
		if tx.Type == t {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// NetBalance is total income minus total expense. It may be negative.
func NetBalance(txns []core.Transaction) core.Money {
	return TotalByType(txns, core.Income).Sub(TotalByType(txns, core.Expense))
}

// ExpenseByCategory sums expenses per category. Categories without expenses
// are omitted; the result keeps the order in which categories first appear
// in txns.
func ExpenseByCategory(txns []core.Transaction) []core.CategoryAmount {
	index := map[string]int{}
	var out []core.CategoryAmount
	for _, tx := range txns {
		if tx.Type != core.Expense {
			continue
		}
		name := tx.Category.String()
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, core.CategoryAmount{Name: name})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
	}
	return out
}

// Shares converts category amounts into percentages of total. When total is
// zero there is no data to compare against and ok is false.
func Shares(categories []core.CategoryAmount, total core.Money) (shares []core.CategoryShare, ok bool) {
	if total.IsZero() {
		return nil, false
	}
	shares = make([]core.CategoryShare, 0, len(categories))
	for _, c := range categories {
		pct, _ := c.Amount.Decimal().Mul(hundred).Div(total.Decimal()).Round(2).Float64()
		shares = append(shares, core.CategoryShare{Name: c.Name, Amount: c.Amount, Percent: pct})
	}
	return shares, true
}

// Summarize builds the dashboard summary of txns.
func Summarize(txns []core.Transaction) core.Summary {
	income := TotalByType(txns, core.Income)
	expense := TotalByType(txns, core.Expense)
	byCat := ExpenseByCategory(txns)
	shares, ok := Shares(byCat, expense)
	return core.Summary{
		TotalIncome:    income,
		TotalExpense:   expense,
		NetBalance:     income.Sub(expense),
		ByCategory:     byCat,
		Shares:         shares,
		HasExpenseData: ok,
	}
}
