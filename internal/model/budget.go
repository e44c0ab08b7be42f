package model

// BudgetPeriod represents the period a budget limit applies to.
type BudgetPeriod string

// Budget period constants.
const (
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodWeekly  BudgetPeriod = "weekly"
)

// Valid reports whether p is a known period.
func (p BudgetPeriod) Valid() bool {
	return p == BudgetPeriodMonthly || p == BudgetPeriodWeekly
}

// Budget is a per-user, per-category spending limit.
// Spent is derived from transactions on every read and is never persisted as truth.
type Budget struct {
	ID       string       `json:"id"`
	UserID   string       `json:"userId"`
	Category Category     `json:"category"`
	Period   BudgetPeriod `json:"period"`
	Limit    float64      `json:"limit"`
	Spent    float64      `json:"spent"`
}

// Remaining returns how much of the limit is left; negative when over budget.
func (b Budget) Remaining() float64 {
	return b.Limit - b.Spent
}
