package insights

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/fatali-fataliyev/spending_insights/errors"
)

type Category string

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryEntertainment Category = "entertainment"
	CategoryUtilities     Category = "utilities"
	CategoryHealthcare    Category = "healthcare"
	CategoryShopping      Category = "shopping"
	CategoryOther         Category = "other"
)

var categoryOrder = [...]Category{
	CategoryFood,
	CategoryTransport,
	CategoryEntertainment,
	CategoryUtilities,
	CategoryHealthcare,
	CategoryShopping,
	CategoryOther,
}

// Categories returns the supported categories in their fixed order.
func Categories() []Category {
	return append([]Category(nil), categoryOrder[:]...)
}

func (c Category) rank() int {
	for i, known := range categoryOrder {
		if known == c {
			return i
		}
	}
	return -1
}

func (c Category) Valid() bool {
	return c.rank() >= 0
}

// ParseCategory matches case-insensitively and ignores surrounding spaces.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown category '%s'", appErrors.ErrInvalidInput, s)
	}
	return c, nil
}

type TransactionType string

const (
	TypeExpense TransactionType = "EXPENSE"
	TypeIncome  TransactionType = "INCOME"
)

// ParseTransactionType treats an empty value as an expense.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToUpper(strings.TrimSpace(s))) {
	case "", TypeExpense:
		return TypeExpense, nil
	case TypeIncome:
		return TypeIncome, nil
	}
	return "", fmt.Errorf("%w: unknown transaction type '%s'", appErrors.ErrInvalidInput, s)
}

type Transaction struct {
	ID          string          `json:"id"`
	Amount      float64         `json:"amount"`
	Category    Category        `json:"category"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	UserID      string          `json:"userId"`
	Type        TransactionType `json:"type"`
}

// IsExpense classifies t the way ValidateTransactions reads its type.
func (t Transaction) IsExpense() bool {
	typ, err := ParseTransactionType(string(t.Type))
	return err != nil || typ == TypeExpense
}

type CategoryStat struct {
	Category         Category `json:"category"`
	TotalAmount      float64  `json:"totalAmount"`
	TransactionCount int      `json:"transactionCount"`
	AverageAmount    float64  `json:"averageAmount"`
	Percentage       float64  `json:"percentage"`
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type BudgetRecommendation struct {
	Category          Category `json:"category"`
	RecommendedAmount float64  `json:"recommendedAmount"`
	CurrentSpending   float64  `json:"currentSpending"`
	Reason            string   `json:"reason"`
	Priority          Priority `json:"priority"`
}

type Anomaly struct {
	TransactionID string    `json:"transactionId"`
	Amount        float64   `json:"amount"`
	Category      Category  `json:"category"`
	Date          time.Time `json:"date"`
	AnomalyScore  float64   `json:"anomalyScore"`
	Reason        string    `json:"reason"`
}

type BalanceStatus string

const (
	BalanceHealthy    BalanceStatus = "healthy"
	BalanceConcerning BalanceStatus = "concerning"
	BalanceCritical   BalanceStatus = "critical"
)

type IncomeVsExpense struct {
	TotalIncome  float64       `json:"totalIncome"`
	TotalExpense float64       `json:"totalExpense"`
	NetBalance   float64       `json:"netBalance"`
	SavingsRate  float64       `json:"savingsRate"`
	Status       BalanceStatus `json:"status"`
}

type HealthStatus string

const (
	HealthGood    HealthStatus = "good"
	HealthWarning HealthStatus = "warning"
	HealthBad     HealthStatus = "bad"
)

type CategoryHealth struct {
	Category       Category     `json:"category"`
	Status         HealthStatus `json:"status"`
	Reason         string       `json:"reason"`
	Spending       float64      `json:"spending"`
	Recommendation string       `json:"recommendation"`
}

type InsightsReport struct {
	UserID                   string                 `json:"userId"`
	IncomeVsExpense          IncomeVsExpense        `json:"incomeVsExpense"`
	SpendingPatterns         []CategoryStat         `json:"spendingPatterns"`
	CategoryHealth           []CategoryHealth       `json:"categoryHealth"`
	BudgetRecommendations    []BudgetRecommendation `json:"budgetRecommendations"`
	Anomalies                []Anomaly              `json:"anomalies"`
	TotalSpending            float64                `json:"totalSpending"`
	AverageDailySpending     float64                `json:"averageDailySpending"`
	ProjectedMonthlySpending float64                `json:"projectedMonthlySpending"`
	SavingsOpportunities     []string               `json:"savingsOpportunities"`
}

type SpendingPrediction struct {
	UserID          string    `json:"userId"`
	Category        *Category `json:"category"`
	PredictedAmount float64   `json:"predictedAmount"`
	Confidence      float64   `json:"confidence"`
	Period          string    `json:"period"`
}
