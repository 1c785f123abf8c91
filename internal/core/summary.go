package core

import "time"

// Granularity selects the bucket width of a time series.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// CategoryShare is a category amount with its percentage of the total.
type CategoryShare struct {
	Name    string  `json:"name"`
	Amount  Money   `json:"amount"`
	Percent float64 `json:"percent"`
}

// Bucket holds the income and expense sums of one period.
type Bucket struct {
	Label   string    `json:"label"`
	Start   time.Time `json:"start"`
	Income  Money     `json:"income"`
	Expense Money     `json:"expense"`
}

// Summary is the dashboard view of a transaction set.
type Summary struct {
	TotalIncome    Money            `json:"total_income"`
	TotalExpense   Money            `json:"total_expense"`
	NetBalance     Money            `json:"net_balance"`
	ByCategory     []CategoryAmount `json:"by_category"`
	Shares         []CategoryShare  `json:"shares"`
	HasExpenseData bool             `json:"has_expense_data"`
}
