package texts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/plata-bot/plata/internal/domain"
	"github.com/plata-bot/plata/internal/fixedexpense"
)

// fakeTranslator resolves a fixed key set, enough to exercise the renderers
// without loading a catalog.
type fakeTranslator map[string]string

func (f fakeTranslator) T(key string) string {
	if value, ok := f[key]; ok {
		return value
	}
	return key
}

func (f fakeTranslator) Variants(string) []string { return nil }

func (f fakeTranslator) Lang() string { return "es" }

func TestMoney(t *testing.T) {
	testCases := []struct {
		amount   int64
		expected string
	}{
		{0, "$0"},
		{999, "$999"},
		{1000, "$1.000"},
		{25000, "$25.000"},
		{1234567, "$1.234.567"},
		{-80000, "-$80.000"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, Money(tc.amount))
	}
}

func TestMonthName(t *testing.T) {
	assert.Equal(t, "enero", MonthName(time.January))
	assert.Equal(t, "diciembre", MonthName(time.December))
	assert.Equal(t, "", MonthName(time.Month(13)))
}

func TestTransactionList_NumbersMatchPositions(t *testing.T) {
	tr := fakeTranslator{
		"transaction.list_header":  "Movimientos de %s:",
		"transaction.list_row":     "%d. %s — %s (%s)",
		"transaction.kind_expense": "gasto",
		"transaction.kind_income":  "ingreso",
	}

	month := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	out := TransactionList(tr, month, []domain.Transaction{
		{ID: 31, Description: "almuerzo", Amount: 25000},
		{ID: 12, Description: "sueldo", Amount: 2000000, IsIncome: true},
	})

	assert.Equal(t,
		"Movimientos de marzo:\n1. almuerzo — $25.000 (gasto)\n2. sueldo — $2.000.000 (ingreso)",
		out)
}

func TestTransactionList_Empty(t *testing.T) {
	tr := fakeTranslator{"transaction.list_empty": "No tienes movimientos este mes."}
	out := TransactionList(tr, time.Now(), nil)
	assert.Equal(t, "No tienes movimientos este mes.", out)
}

func TestFixedExpenseList(t *testing.T) {
	tr := fakeTranslator{
		"fixedexpense.list_header":       "Tus gastos fijos:",
		"fixedexpense.list_row":          "%d. %s — %s%s",
		"fixedexpense.list_row_reminder": " (recordatorio el día %d)",
		"fixedexpense.list_row_paused":   " [pausado]",
	}

	day5 := 5
	out := FixedExpenseList(tr, []domain.FixedExpense{
		{Description: "arriendo", Amount: 800000, ReminderDay: &day5, IsActive: true},
		{Description: "gym", Amount: 60000, IsActive: false},
	})

	assert.Equal(t,
		"Tus gastos fijos:\n1. arriendo — $800.000 (recordatorio el día 5)\n2. gym — $60.000 [pausado]",
		out)
}

func TestReminderMessage(t *testing.T) {
	tr := fakeTranslator{
		"reminder.header": "📅 Hoy vencen estos pagos:",
		"reminder.row":    "• %s — %s",
		"reminder.total":  "Total: %s",
		"reminder.footer": "Responde \"registra todos\", \"ajustar\" u \"omitir\".",
	}

	group := fixedexpense.DueGroup{
		User: &domain.User{ID: 1, Phone: "+573001112233"},
		Items: []domain.FixedExpense{
			{Description: "arriendo", Amount: 800000},
			{Description: "internet", Amount: 90000},
		},
		Total: 890000,
	}

	out := ReminderMessage(tr, group)
	assert.Contains(t, out, "• arriendo — $800.000")
	assert.Contains(t, out, "• internet — $90.000")
	assert.Contains(t, out, "Total: $890.000")
	assert.Contains(t, out, "registra todos")
}
