package alerts

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/plata-bot/plata/internal/domain"
	"github.com/plata-bot/plata/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockBudgets struct {
	mock.Mock
}

func (m *mockBudgets) Upsert(ctx context.Context, b *domain.Budget) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockBudgets) FindByCategory(ctx context.Context, userID, categoryID int64) (*domain.Budget, error) {
	args := m.Called(ctx, userID, categoryID)
	budget, _ := args.Get(0).(*domain.Budget)
	return budget, args.Error(1)
}

func (m *mockBudgets) ListByUser(ctx context.Context, userID int64) ([]domain.Budget, error) {
	args := m.Called(ctx, userID)
	budgets, _ := args.Get(0).([]domain.Budget)
	return budgets, args.Error(1)
}

func (m *mockBudgets) Delete(ctx context.Context, userID, categoryID int64) error {
	args := m.Called(ctx, userID, categoryID)
	return args.Error(0)
}

type mockTransactions struct {
	mock.Mock
}

func (m *mockTransactions) Create(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockTransactions) Update(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockTransactions) Delete(ctx context.Context, userID, id int64) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *mockTransactions) FindByID(ctx context.Context, userID, id int64) (*domain.Transaction, error) {
	args := m.Called(ctx, userID, id)
	tx, _ := args.Get(0).(*domain.Transaction)
	return tx, args.Error(1)
}

func (m *mockTransactions) MostRecent(ctx context.Context, userID int64) (*domain.Transaction, error) {
	args := m.Called(ctx, userID)
	tx, _ := args.Get(0).(*domain.Transaction)
	return tx, args.Error(1)
}

func (m *mockTransactions) ListMonth(ctx context.Context, userID int64, ref time.Time) ([]domain.Transaction, error) {
	args := m.Called(ctx, userID, ref)
	txs, _ := args.Get(0).([]domain.Transaction)
	return txs, args.Error(1)
}

func (m *mockTransactions) MonthTotals(ctx context.Context, userID int64, ref time.Time) (int64, int64, error) {
	args := m.Called(ctx, userID, ref)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *mockTransactions) CategoryExpensesMonth(ctx context.Context, userID, categoryID int64, ref time.Time) (int64, error) {
	args := m.Called(ctx, userID, categoryID, ref)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTransactions) CategoryTotalsMonth(ctx context.Context, userID int64, ref time.Time) ([]repository.CategoryTotal, error) {
	args := m.Called(ctx, userID, ref)
	totals, _ := args.Get(0).([]repository.CategoryTotal)
	return totals, args.Error(1)
}

func (m *mockTransactions) IncomeByMonth(ctx context.Context, userID int64, months int, ref time.Time) ([]repository.MonthIncome, error) {
	args := m.Called(ctx, userID, months, ref)
	history, _ := args.Get(0).([]repository.MonthIncome)
	return history, args.Error(1)
}

func (m *mockTransactions) ExistsForFixedExpenseInMonth(ctx context.Context, userID, fixedExpenseID int64, ref time.Time) (bool, error) {
	args := m.Called(ctx, userID, fixedExpenseID, ref)
	return args.Bool(0), args.Error(1)
}

func (m *mockTransactions) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	args := m.Called(ctx, phone)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockUsers) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

func (m *mockUsers) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUsers) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUsers) UpdateLastShown(ctx context.Context, userID int64, ids []int64) error {
	args := m.Called(ctx, userID, ids)
	return args.Error(0)
}

func (m *mockUsers) Delete(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockUsers) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsers) AllPhones(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	phones, _ := args.Get(0).([]string)
	return phones, args.Error(1)
}

type mockAlerts struct {
	mock.Mock
}

func (m *mockAlerts) TryClaim(ctx context.Context, userID int64, alertType domain.AlertType, day time.Time) (bool, error) {
	args := m.Called(ctx, userID, alertType, day)
	return args.Bool(0), args.Error(1)
}

type mockAdvisor struct {
	mock.Mock
}

func (m *mockAdvisor) Tip(ctx context.Context, prompt, topic string) string {
	args := m.Called(ctx, prompt, topic)
	return args.String(0)
}

func newTestEngine(t *testing.T, now time.Time) (*Engine, *mockBudgets, *mockTransactions, *mockUsers, *mockAlerts, *mockAdvisor) {
	t.Helper()

	budgets := &mockBudgets{}
	transactions := &mockTransactions{}
	users := &mockUsers{}
	claims := &mockAlerts{}
	advisor := &mockAdvisor{}

	engine := NewEngine(budgets, transactions, users, claims, advisor, testLogger()).
		WithClock(func() time.Time { return now })

	return engine, budgets, transactions, users, claims, advisor
}

func onboardedUser() *domain.User {
	return &domain.User{
		ID:             1,
		Phone:          "+573001112233",
		Name:           "Laura",
		OnboardingStep: domain.StepComplete,
		MonthlyIncome:  800000,
		SavingsGoal:    100000,
	}
}

func TestBudgetAlert_Thresholds(t *testing.T) {
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	category := &domain.Category{ID: 3, Name: "Restaurantes", Kind: domain.CategoryExpense}

	testCases := []struct {
		name     string
		limit    int64
		spent    int64
		contains string
	}{
		{name: "below warn threshold", limit: 100000, spent: 79999, contains: ""},
		{name: "warn at 80 percent", limit: 100000, spent: 80000, contains: "⚠️"},
		{name: "exceeded at 100 percent", limit: 100000, spent: 100000, contains: "🚨"},
		{name: "exceeded above limit", limit: 100000, spent: 150000, contains: "🚨"},
		{name: "zero limit never fires", limit: 0, spent: 999999, contains: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			engine, budgets, transactions, _, _, _ := newTestEngine(t, now)

			budgets.On("FindByCategory", mock.Anything, int64(1), category.ID).
				Return(&domain.Budget{ID: 9, UserID: 1, CategoryID: category.ID, MonthlyLimit: tc.limit}, nil).Once()
			transactions.On("CategoryExpensesMonth", mock.Anything, int64(1), category.ID, now).
				Return(tc.spent, nil).Once()

			msg, err := engine.BudgetAlert(ctx, 1, category)
			assert.NoError(t, err)
			if tc.contains == "" {
				assert.Empty(t, msg)
			} else {
				assert.Contains(t, msg, tc.contains)
				assert.Contains(t, msg, category.Name)
			}

			budgets.AssertExpectations(t)
			transactions.AssertExpectations(t)
		})
	}
}

func TestBudgetAlert_NoBudgetConfigured(t *testing.T) {
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	engine, budgets, _, _, _, _ := newTestEngine(t, now)
	category := &domain.Category{ID: 3, Name: "Restaurantes"}

	budgets.On("FindByCategory", mock.Anything, int64(1), category.ID).
		Return(nil, repository.ErrNotFound).Once()

	msg, err := engine.BudgetAlert(context.Background(), 1, category)
	assert.NoError(t, err)
	assert.Empty(t, msg)
}

func TestHealthAlert_OverspendWinsOverConcentration(t *testing.T) {
	// Spend pace and category concentration both qualify; the pace alert has
	// priority, so the category totals are never even consulted.
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	engine, _, transactions, _, claims, advisor := newTestEngine(t, now)
	user := onboardedUser()

	transactions.On("IncomeByMonth", mock.Anything, user.ID, 3, now).
		Return([]repository.MonthIncome{}, nil).Once()
	transactions.On("MonthTotals", mock.Anything, user.ID, now).
		Return(int64(0), int64(560000), nil).Twice()
	claims.On("TryClaim", mock.Anything, user.ID, domain.AlertFinancialHealth, now).
		Return(true, nil).Once()
	advisor.On("Tip", mock.Anything, mock.Anything, mock.Anything).
		Return("Revisa tus gastos hormiga.").Once()

	msg, err := engine.HealthAlert(context.Background(), user)
	assert.NoError(t, err)
	assert.Contains(t, msg, "80%")
	assert.Contains(t, msg, "💡 Revisa tus gastos hormiga.")
	transactions.AssertNotCalled(t, "CategoryTotalsMonth", mock.Anything, mock.Anything, mock.Anything)
	claims.AssertExpectations(t)
}

func TestHealthAlert_Concentration(t *testing.T) {
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	engine, _, transactions, _, claims, advisor := newTestEngine(t, now)
	user := onboardedUser()
	user.SavingsGoal = 0

	transactions.On("IncomeByMonth", mock.Anything, user.ID, 3, now).
		Return([]repository.MonthIncome{}, nil).Once()
	transactions.On("MonthTotals", mock.Anything, user.ID, now).
		Return(int64(0), int64(300000), nil).Twice()
	transactions.On("CategoryTotalsMonth", mock.Anything, user.ID, now).
		Return([]repository.CategoryTotal{
			{CategoryID: 2, CategoryName: "Mercado", Total: 100000},
			{CategoryID: 3, CategoryName: "Restaurantes", Total: 250000},
		}, nil).Once()
	claims.On("TryClaim", mock.Anything, user.ID, domain.AlertFinancialHealth, now).
		Return(true, nil).Once()
	advisor.On("Tip", mock.Anything, mock.Anything, "Restaurantes").
		Return("Cocina más en casa.").Once()

	msg, err := engine.HealthAlert(context.Background(), user)
	assert.NoError(t, err)
	assert.Contains(t, msg, "Restaurantes")
	assert.Contains(t, msg, "💡 Cocina más en casa.")
}

func TestHealthAlert_DedupOncePerDay(t *testing.T) {
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	engine, _, transactions, _, claims, advisor := newTestEngine(t, now)
	user := onboardedUser()

	transactions.On("IncomeByMonth", mock.Anything, user.ID, 3, now).
		Return([]repository.MonthIncome{}, nil).Once()
	transactions.On("MonthTotals", mock.Anything, user.ID, now).
		Return(int64(0), int64(560000), nil).Twice()
	claims.On("TryClaim", mock.Anything, user.ID, domain.AlertFinancialHealth, now).
		Return(false, nil).Once()

	msg, err := engine.HealthAlert(context.Background(), user)
	assert.NoError(t, err)
	assert.Empty(t, msg)
	advisor.AssertNotCalled(t, "Tip", mock.Anything, mock.Anything, mock.Anything)
}

func TestHealthAlert_NothingFires(t *testing.T) {
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	engine, _, transactions, _, claims, _ := newTestEngine(t, now)
	user := onboardedUser()
	user.SavingsGoal = 0

	transactions.On("IncomeByMonth", mock.Anything, user.ID, 3, now).
		Return([]repository.MonthIncome{}, nil).Once()
	transactions.On("MonthTotals", mock.Anything, user.ID, now).
		Return(int64(0), int64(50000), nil).Twice()
	transactions.On("CategoryTotalsMonth", mock.Anything, user.ID, now).
		Return([]repository.CategoryTotal{
			{CategoryID: 2, CategoryName: "Mercado", Total: 50000},
		}, nil).Once()

	msg, err := engine.HealthAlert(context.Background(), user)
	assert.NoError(t, err)
	assert.Empty(t, msg)
	claims.AssertNotCalled(t, "TryClaim", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBudget_PercentUsed(t *testing.T) {
	budget := &domain.Budget{MonthlyLimit: 200000}
	assert.InDelta(t, 50.0, budget.PercentUsed(100000), 0.001)

	zero := &domain.Budget{MonthlyLimit: 0}
	assert.Zero(t, zero.PercentUsed(100000))

	negative := &domain.Budget{MonthlyLimit: -5}
	assert.Zero(t, negative.PercentUsed(100000))
}
