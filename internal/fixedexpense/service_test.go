package fixedexpense

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/plata-bot/plata/internal/domain"
	"github.com/plata-bot/plata/internal/pending"
	"github.com/plata-bot/plata/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockFixed struct {
	mock.Mock
}

func (m *mockFixed) Create(ctx context.Context, fe *domain.FixedExpense) error {
	args := m.Called(ctx, fe)
	return args.Error(0)
}

func (m *mockFixed) Update(ctx context.Context, fe *domain.FixedExpense) error {
	args := m.Called(ctx, fe)
	return args.Error(0)
}

func (m *mockFixed) Delete(ctx context.Context, userID, id int64) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *mockFixed) FindByID(ctx context.Context, userID, id int64) (*domain.FixedExpense, error) {
	args := m.Called(ctx, userID, id)
	fe, _ := args.Get(0).(*domain.FixedExpense)
	return fe, args.Error(1)
}

func (m *mockFixed) FindByDescription(ctx context.Context, userID int64, description string) (*domain.FixedExpense, error) {
	args := m.Called(ctx, userID, description)
	fe, _ := args.Get(0).(*domain.FixedExpense)
	return fe, args.Error(1)
}

func (m *mockFixed) ListByUser(ctx context.Context, userID int64, activeOnly bool) ([]domain.FixedExpense, error) {
	args := m.Called(ctx, userID, activeOnly)
	list, _ := args.Get(0).([]domain.FixedExpense)
	return list, args.Error(1)
}

func (m *mockFixed) DueOnDay(ctx context.Context, day int) ([]domain.FixedExpense, error) {
	args := m.Called(ctx, day)
	list, _ := args.Get(0).([]domain.FixedExpense)
	return list, args.Error(1)
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

type mockPendingStorage struct {
	mock.Mock
}

func (m *mockPendingStorage) Get(ctx context.Context, phone string) (pending.Action, error) {
	args := m.Called(ctx, phone)
	action, _ := args.Get(0).(pending.Action)
	return action, args.Error(1)
}

func (m *mockPendingStorage) Set(ctx context.Context, phone string, action pending.Action) error {
	args := m.Called(ctx, phone, action)
	return args.Error(0)
}

func (m *mockPendingStorage) Clear(ctx context.Context, phone string) error {
	args := m.Called(ctx, phone)
	return args.Error(0)
}

var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *mockFixed, *mockTransactions) {
	t.Helper()

	fixed := &mockFixed{}
	transactions := &mockTransactions{}

	svc := NewService(fixed, transactions, testLogger()).
		WithClock(func() time.Time { return testNow })

	return svc, fixed, transactions
}

func TestCreate_AlreadyActive(t *testing.T) {
	svc, fixed, _ := newTestService(t)

	existing := &domain.FixedExpense{
		ID: 4, UserID: 1, Description: "arriendo", Amount: 800000, IsActive: true,
	}
	fixed.On("FindByDescription", mock.Anything, int64(1), "arriendo").
		Return(existing, nil).Once()

	fe, err := svc.Create(context.Background(), 1, "arriendo", 850000, 2, nil)
	assert.ErrorIs(t, err, ErrAlreadyActive)
	assert.Equal(t, existing, fe)
	fixed.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	fixed.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestCreate_ReactivatesInactiveRow(t *testing.T) {
	svc, fixed, _ := newTestService(t)

	day := 5
	inactive := &domain.FixedExpense{
		ID: 4, UserID: 1, Description: "arriendo", Amount: 700000, IsActive: false,
	}
	fixed.On("FindByDescription", mock.Anything, int64(1), "arriendo").
		Return(inactive, nil).Once()
	fixed.On("Update", mock.Anything, mock.MatchedBy(func(fe *domain.FixedExpense) bool {
		return fe.IsActive && fe.Amount == 850000 && fe.ReminderDay != nil && *fe.ReminderDay == 5
	})).Return(nil).Once()

	fe, err := svc.Create(context.Background(), 1, "arriendo", 850000, 2, &day)
	assert.NoError(t, err)
	assert.True(t, fe.IsActive)
	fixed.AssertExpectations(t)
}

func TestCreate_New(t *testing.T) {
	svc, fixed, _ := newTestService(t)

	fixed.On("FindByDescription", mock.Anything, int64(1), "internet").
		Return(nil, repository.ErrNotFound).Once()
	fixed.On("Create", mock.Anything, mock.MatchedBy(func(fe *domain.FixedExpense) bool {
		return fe.Description == "internet" && fe.Amount == 90000 && fe.IsActive && fe.ReminderDay == nil
	})).Return(nil).Once()

	fe, err := svc.Create(context.Background(), 1, "internet", 90000, 2, nil)
	assert.NoError(t, err)
	assert.Equal(t, "internet", fe.Description)
	fixed.AssertExpectations(t)
}

func TestCreate_RejectsBadDay(t *testing.T) {
	svc, _, _ := newTestService(t)

	day := 32
	_, err := svc.Create(context.Background(), 1, "internet", 90000, 2, &day)
	assert.Error(t, err)
}

func TestShouldSuggest(t *testing.T) {
	testCases := []struct {
		name     string
		tx       *domain.Transaction
		existing *domain.FixedExpense
		expected bool
	}{
		{
			name:     "keyword match with no prior row",
			tx:       &domain.Transaction{UserID: 1, Description: "pago arriendo", ExpenseType: domain.ExpenseTypeVariable},
			expected: true,
		},
		{
			name: "rejected placeholder suppresses the prompt",
			tx:   &domain.Transaction{UserID: 1, Description: "netflix", ExpenseType: domain.ExpenseTypeVariable},
			existing: &domain.FixedExpense{
				ID: 4, UserID: 1, Description: "netflix", IsActive: false,
			},
			expected: false,
		},
		{
			name:     "no keyword",
			tx:       &domain.Transaction{UserID: 1, Description: "almuerzo", ExpenseType: domain.ExpenseTypeVariable},
			expected: false,
		},
		{
			name:     "income never suggests",
			tx:       &domain.Transaction{UserID: 1, Description: "arriendo", IsIncome: true, ExpenseType: domain.ExpenseTypeVariable},
			expected: false,
		},
		{
			name:     "fixed transaction never suggests",
			tx:       &domain.Transaction{UserID: 1, Description: "arriendo", ExpenseType: domain.ExpenseTypeFixed},
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, fixed, _ := newTestService(t)

			if tc.existing != nil {
				fixed.On("FindByDescription", mock.Anything, tc.tx.UserID, tc.tx.Description).
					Return(tc.existing, nil).Maybe()
			} else {
				fixed.On("FindByDescription", mock.Anything, tc.tx.UserID, tc.tx.Description).
					Return(nil, repository.ErrNotFound).Maybe()
			}

			got, err := svc.ShouldSuggest(context.Background(), tc.tx)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestMarkAsFixed_AlreadyActiveStillLinks(t *testing.T) {
	svc, fixed, transactions := newTestService(t)

	existing := &domain.FixedExpense{
		ID: 4, UserID: 1, Description: "arriendo", Amount: 800000, IsActive: true,
	}
	tx := &domain.Transaction{ID: 9, UserID: 1, Description: "arriendo", Amount: 800000}

	fixed.On("FindByDescription", mock.Anything, int64(1), "arriendo").
		Return(existing, nil).Once()
	transactions.On("Update", mock.Anything, mock.MatchedBy(func(updated *domain.Transaction) bool {
		return updated.ExpenseType == domain.ExpenseTypeFixed &&
			updated.FixedExpenseID != nil && *updated.FixedExpenseID == 4
	})).Return(nil).Once()

	fe, err := svc.MarkAsFixed(context.Background(), tx)
	assert.ErrorIs(t, err, ErrAlreadyActive)
	assert.Equal(t, existing, fe)
	transactions.AssertExpectations(t)
}

func TestRejectSuggestion_IsIdempotent(t *testing.T) {
	svc, fixed, _ := newTestService(t)
	tx := &domain.Transaction{ID: 9, UserID: 1, Description: "netflix", Amount: 35000}

	fixed.On("FindByDescription", mock.Anything, int64(1), "netflix").
		Return(&domain.FixedExpense{ID: 4, IsActive: false}, nil).Once()

	assert.NoError(t, svc.RejectSuggestion(context.Background(), tx))
	fixed.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterAll_SkipsAlreadyBookedThisMonth(t *testing.T) {
	svc, fixed, transactions := newTestService(t)
	user := &domain.User{ID: 1, Phone: "+573001112233"}

	day5, day10 := 5, 10
	fixed.On("ListByUser", mock.Anything, int64(1), true).
		Return([]domain.FixedExpense{
			{ID: 4, UserID: 1, Description: "arriendo", Amount: 800000, CategoryID: 2, ReminderDay: &day5, IsActive: true},
			{ID: 7, UserID: 1, Description: "internet", Amount: 90000, CategoryID: 2, ReminderDay: &day10, IsActive: true},
			{ID: 8, UserID: 1, Description: "gym", Amount: 60000, CategoryID: 2, IsActive: true},
		}, nil).Once()

	transactions.On("ExistsForFixedExpenseInMonth", mock.Anything, int64(1), int64(4), testNow).
		Return(true, nil).Once()
	transactions.On("ExistsForFixedExpenseInMonth", mock.Anything, int64(1), int64(7), testNow).
		Return(false, nil).Once()
	transactions.On("Create", mock.Anything, mock.MatchedBy(func(tx *domain.Transaction) bool {
		return tx.FixedExpenseID != nil && *tx.FixedExpenseID == 7 &&
			tx.ExpenseType == domain.ExpenseTypeFixed && tx.Amount == 90000
	})).Return(nil).Once()

	created, skipped, err := svc.RegisterAll(context.Background(), user)
	assert.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, skipped)
	transactions.AssertExpectations(t)
}

func TestRegisterAll_SecondRunCreatesNothing(t *testing.T) {
	svc, fixed, transactions := newTestService(t)
	user := &domain.User{ID: 1}

	day5 := 5
	fixed.On("ListByUser", mock.Anything, int64(1), true).
		Return([]domain.FixedExpense{
			{ID: 4, UserID: 1, Description: "arriendo", Amount: 800000, CategoryID: 2, ReminderDay: &day5, IsActive: true},
		}, nil).Once()
	transactions.On("ExistsForFixedExpenseInMonth", mock.Anything, int64(1), int64(4), testNow).
		Return(true, nil).Once()

	created, skipped, err := svc.RegisterAll(context.Background(), user)
	assert.NoError(t, err)
	assert.Zero(t, created)
	assert.Equal(t, 1, skipped)
	transactions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAtIndex_OutOfRange(t *testing.T) {
	svc, fixed, _ := newTestService(t)

	fixed.On("ListByUser", mock.Anything, int64(1), false).
		Return([]domain.FixedExpense{{ID: 4}}, nil)

	_, err := svc.AtIndex(context.Background(), 1, 2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = svc.AtIndex(context.Background(), 1, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestSetReminderDay_Validates(t *testing.T) {
	svc, fixed, _ := newTestService(t)

	_, err := svc.SetReminderDay(context.Background(), 1, 4, 0)
	assert.Error(t, err)
	_, err = svc.SetReminderDay(context.Background(), 1, 4, 32)
	assert.Error(t, err)

	fixed.On("FindByID", mock.Anything, int64(1), int64(4)).
		Return(&domain.FixedExpense{ID: 4, UserID: 1, Description: "arriendo"}, nil).Once()
	fixed.On("Update", mock.Anything, mock.MatchedBy(func(fe *domain.FixedExpense) bool {
		return fe.ReminderDay != nil && *fe.ReminderDay == 5
	})).Return(nil).Once()

	fe, err := svc.SetReminderDay(context.Background(), 1, 4, 5)
	assert.NoError(t, err)
	assert.Equal(t, 5, *fe.ReminderDay)
}
