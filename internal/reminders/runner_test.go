package reminders

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/plata-bot/plata/internal/domain"
	"github.com/plata-bot/plata/internal/fixedexpense"
	"github.com/plata-bot/plata/internal/i18n"
	"github.com/plata-bot/plata/internal/idempotency"
	"github.com/plata-bot/plata/internal/pending"
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

type countingNotifier struct {
	mu    sync.Mutex
	sends int
}

func (n *countingNotifier) Send(context.Context, string, string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends++
	return nil
}

var batchNow = time.Date(2025, time.March, 15, 9, 0, 0, 0, time.UTC)

func newTestRunner(t *testing.T) (*Runner, *mockFixed, *mockUsers, *countingNotifier) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	catalogs, err := i18n.LoadFromDir(filepath.Join("..", "..", "configs", "i18n"), "es")
	require.NoError(t, err)

	log := testLogger()
	fixed := &mockFixed{}
	users := &mockUsers{}
	notifier := &countingNotifier{}

	reminder := fixedexpense.NewReminder(fixed, users, pending.NewRedisStorage(client, log), log)
	idem := idempotency.NewManager(idempotency.NewRedisStore(client, log), log)

	runner := NewRunner(reminder, notifier, catalogs, idem, log).
		WithClock(func() time.Time { return batchNow })

	return runner, fixed, users, notifier
}

func TestRunDay_NotifiesEachUserOnce(t *testing.T) {
	runner, fixed, users, notifier := newTestRunner(t)

	day := 15
	fixed.On("DueOnDay", mock.Anything, day).Return([]domain.FixedExpense{
		{ID: 1, UserID: 1, Description: "arriendo", Amount: 800000, ReminderDay: &day, IsActive: true},
		{ID: 2, UserID: 1, Description: "internet", Amount: 90000, ReminderDay: &day, IsActive: true},
		{ID: 3, UserID: 2, Description: "gym", Amount: 60000, ReminderDay: &day, IsActive: true},
	}, nil).Once()
	users.On("FindByID", mock.Anything, int64(1)).
		Return(&domain.User{ID: 1, Phone: "+57300111", OnboardingStep: domain.StepComplete}, nil).Once()
	users.On("FindByID", mock.Anything, int64(2)).
		Return(&domain.User{ID: 2, Phone: "+57300222", OnboardingStep: domain.StepComplete}, nil).Once()

	result, err := runner.RunDay(context.Background(), day)

	assert.NoError(t, err)
	assert.Equal(t, fixedexpense.BatchResult{Notified: 2}, result)
	assert.Equal(t, 2, notifier.sends, "one consolidated message per user")
	fixed.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestRunDay_SecondTriggerReturnsRecordedResult(t *testing.T) {
	runner, fixed, users, notifier := newTestRunner(t)

	day := 5
	fixed.On("DueOnDay", mock.Anything, day).Return([]domain.FixedExpense{
		{ID: 1, UserID: 1, Description: "arriendo", Amount: 800000, ReminderDay: &day, IsActive: true},
	}, nil).Once()
	users.On("FindByID", mock.Anything, int64(1)).
		Return(&domain.User{ID: 1, Phone: "+57300111", OnboardingStep: domain.StepComplete}, nil).Once()

	first, err := runner.RunDay(context.Background(), day)
	require.NoError(t, err)
	require.Equal(t, fixedexpense.BatchResult{Notified: 1}, first)

	// The HTTP trigger and the cron entry racing on the same day must share
	// the first outcome instead of re-notifying.
	second, err := runner.RunDay(context.Background(), day)

	assert.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, notifier.sends)
	fixed.AssertExpectations(t)
}

func TestRunDay_OneUserFailingDoesNotAbort(t *testing.T) {
	runner, fixed, users, notifier := newTestRunner(t)

	day := 20
	fixed.On("DueOnDay", mock.Anything, day).Return([]domain.FixedExpense{
		{ID: 1, UserID: 1, Description: "arriendo", Amount: 800000, ReminderDay: &day, IsActive: true},
		{ID: 2, UserID: 2, Description: "gym", Amount: 60000, ReminderDay: &day, IsActive: true},
	}, nil).Once()
	users.On("FindByID", mock.Anything, int64(1)).
		Return(nil, assert.AnError).Once()
	users.On("FindByID", mock.Anything, int64(2)).
		Return(&domain.User{ID: 2, Phone: "+57300222", OnboardingStep: domain.StepComplete}, nil).Once()

	result, err := runner.RunDay(context.Background(), day)

	assert.NoError(t, err)
	assert.Equal(t, fixedexpense.BatchResult{Notified: 1, Errors: 1}, result)
	assert.Equal(t, 1, notifier.sends)
}
