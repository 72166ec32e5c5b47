package domain

import "time"

// OnboardingStep tracks how far a user has progressed through first-contact setup.
type OnboardingStep string

const (
	StepAwaitingName         OnboardingStep = "awaiting_name"
	StepAwaitingNameResponse OnboardingStep = "awaiting_name_response"
	StepAwaitingIncome       OnboardingStep = "awaiting_income"
	StepAwaitingSavingsGoal  OnboardingStep = "awaiting_savings_goal"
	StepComplete             OnboardingStep = "complete"
)

// User represents an application user addressed by phone number.
type User struct {
	ID                       int64
	Phone                    string
	Name                     string
	OnboardingStep           OnboardingStep
	MonthlyIncome            int64
	SavingsGoal              int64
	Plan                     string
	LastIncomeUpdatePromptAt *time.Time
	IncomeUpdateDeclined     bool
	// LastShownTransactionIDs records the most recent transaction list the
	// user was shown, in display order. Positional references ("delete #3")
	// resolve against it.
	LastShownTransactionIDs []int64
	CreatedAt               time.Time
}

// Onboarded reports whether the user finished the onboarding flow.
func (u *User) Onboarded() bool {
	return u != nil && u.OnboardingStep == StepComplete
}
