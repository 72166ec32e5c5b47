package domain

// CategoryKind is the direction a category applies to.
type CategoryKind string

const (
	CategoryExpense CategoryKind = "expense"
	CategoryIncome  CategoryKind = "income"
)

// Default category names used when classification produces an unknown name.
// The rows themselves live in the categories table; these constants only name
// the fallback per direction.
const (
	DefaultExpenseCategory = "Otros"
	DefaultIncomeCategory  = "Otros ingresos"
)

// Category is the single source of truth for valid category names. Validation
// and classifier prompts always read the live table, never a hardcoded list.
type Category struct {
	ID       int64
	Name     string
	Kind     CategoryKind
	Emoji    string
	IsActive bool
}
