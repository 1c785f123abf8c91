package core

import "strings"

// IncomeKind and ExpenseKind are the closed category sets for each
// transaction type.
type (
	IncomeKind  string
	ExpenseKind string
)

const (
	Scholarship IncomeKind = "Scholarship"
	Parents     IncomeKind = "Parents"
	PartTimeJob IncomeKind = "Part-time Job"
	Gifts       IncomeKind = "Gifts"
	OtherIncome IncomeKind = "Other"
)

const (
	TuitionFees    ExpenseKind = "Tuition/Fees"
	RentHousing    ExpenseKind = "Rent/Housing"
	FoodGroceries  ExpenseKind = "Food/Groceries"
	BooksSupplies  ExpenseKind = "Books/Supplies"
	Transportation ExpenseKind = "Transportation"
	Reload         ExpenseKind = "Reload"
	SocialLeisure  ExpenseKind = "Social/Leisure"
	Savings        ExpenseKind = "Savings"
	OtherExpense   ExpenseKind = "Other"
)

var (
	incomeKinds  = []IncomeKind{Scholarship, Parents, PartTimeJob, Gifts, OtherIncome}
	expenseKinds = []ExpenseKind{TuitionFees, RentHousing, FoodGroceries, BooksSupplies, Transportation, Reload, SocialLeisure, Savings, OtherExpense}
)

// Category is a tagged union: it is either an income category or an expense
// category, never both. The zero value is not a valid category.
type Category struct {
	kind TxType
	name string
}

// IncomeCategory builds an income category, rejecting names outside the set.
func IncomeCategory(k IncomeKind) (Category, error) {
	for _, v := range incomeKinds {
		if v == k {
			return Category{kind: Income, name: string(k)}, nil
		}
	}
	return Category{}, invalid("category", ErrUnknownCategory)
}

// ExpenseCategory builds an expense category, rejecting names outside the set.
func ExpenseCategory(k ExpenseKind) (Category, error) {
	for _, v := range expenseKinds {
		if v == k {
			return Category{kind: Expense, name: string(k)}, nil
		}
	}
	return Category{}, invalid("category", ErrUnknownCategory)
}

// ParseCategory resolves a category name for the given transaction type.
func ParseCategory(t TxType, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, invalid("category", ErrEmptyCategory)
	}
	switch t {
	case Income:
		c, err := IncomeCategory(IncomeKind(name))
		if err != nil && isExpenseName(name) {
			return Category{}, invalid("category", ErrCategoryMismatch)
		}
		return c, err
	case Expense:
		c, err := ExpenseCategory(ExpenseKind(name))
		if err != nil && isIncomeName(name) {
			return Category{}, invalid("category", ErrCategoryMismatch)
		}
		return c, err
	}
	return Category{}, invalid("type", ErrInvalidType)
}

// MustParseCategory is ParseCategory for static values; it panics on error.
func MustParseCategory(t TxType, name string) Category {
	c, err := ParseCategory(t, name)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Category) Type() TxType   { return c.kind }
func (c Category) String() string { return c.name }
func (c Category) IsZero() bool   { return c.kind == "" }

// IncomeCategories lists the income set in display order.
func IncomeCategories() []string {
	out := make([]string, len(incomeKinds))
	for i, k := range incomeKinds {
		out[i] = string(k)
	}
	return out
}

// ExpenseCategories lists the expense set in display order.
func ExpenseCategories() []string {
	out := make([]string, len(expenseKinds))
	for i, k := range expenseKinds {
		out[i] = string(k)
	}
	return out
}

func isIncomeName(name string) bool {
	for _, k := range incomeKinds {
		if string(k) == name {
			return true
		}
	}
	return false
}

func isExpenseName(name string) bool {
	for _, k := range expenseKinds {
		if string(k) == name {
			return true
		}
	}
	return false
}
