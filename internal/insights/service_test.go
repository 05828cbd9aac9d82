package insights

import (
	"encoding/json"
	"math"
	"sync"
	"testing"

	appErrors "github.com/fatali-fataliyev/spending_insights/errors"
	"github.com/fatali-fataliyev/spending_insights/internal/iforest"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzer(t *testing.T, cache ModelCache) *Analyzer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	a, err := NewAnalyzer(DefaultConfig(), cache, logger)
	require.NoError(t, err)
	return a
}

func TestAnalyzeConcreteScenario(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	txs := []Transaction{
		tx("1", 50, CategoryFood, day1),
		tx("2", 450, CategoryFood, day1),
		tx("3", 500, CategoryEntertainment, day1),
	}

	report, err := a.Analyze("user-1", txs)
	require.NoError(t, err)

	assert.Equal(t, "user-1", report.UserID)
	assert.Equal(t, 1000.0, report.TotalSpending)
	assert.Equal(t, 1000.0, report.AverageDailySpending)
	assert.Equal(t, 30000.0, report.ProjectedMonthlySpending)
	require.Len(t, report.SpendingPatterns, 2)
	assert.Equal(t, CategoryFood, report.SpendingPatterns[0].Category)
	assert.Equal(t, 50.0, report.SpendingPatterns[0].Percentage)
	assert.Equal(t, CategoryEntertainment, report.SpendingPatterns[1].Category)

	require.Len(t, report.BudgetRecommendations, 2)
	assert.Equal(t, CategoryFood, report.BudgetRecommendations[0].Category)
	ent := report.BudgetRecommendations[1]
	assert.Equal(t, PriorityHigh, ent.Priority)
	assert.Equal(t, "Spending is 67% over recommended budget", ent.Reason)

	assert.Equal(t, []string{"Reduce entertainment spending by $200.00/month to meet budget goals"}, report.SavingsOpportunities)
	assert.Empty(t, report.Anomalies)
	assert.Equal(t, BalanceCritical, report.IncomeVsExpense.Status)
	require.Len(t, report.CategoryHealth, 2)
	assert.Equal(t, HealthBad, report.CategoryHealth[0].Status)
}

func TestAnalyzeEmpty(t *testing.T) {
	a := newTestAnalyzer(t, nil)

	report, err := a.Analyze("user-1", []Transaction{})
	require.NoError(t, err)

	assert.Equal(t, EmptyReport("user-1"), report)
	raw, err := json.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"userId": "user-1",
		"incomeVsExpense": {"totalIncome": 0, "totalExpense": 0, "netBalance": 0, "savingsRate": 0, "status": "healthy"},
		"spendingPatterns": [],
		"categoryHealth": [],
		"budgetRecommendations": [],
		"anomalies": [],
		"totalSpending": 0,
		"averageDailySpending": 0,
		"projectedMonthlySpending": 0,
		"savingsOpportunities": []
	}`, string(raw))
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	first, err := newTestAnalyzer(t, nil).Analyze("user-1", mixedBatch())
	require.NoError(t, err)
	second, err := newTestAnalyzer(t, newFakeCache()).Analyze("user-1", mixedBatch())
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	require.NotEmpty(t, first.Anomalies)
	assert.Equal(t, "t-tv", first.Anomalies[0].TransactionID)
}

func TestAnalyzeProperties(t *testing.T) {
	report, err := newTestAnalyzer(t, nil).Analyze("user-1", mixedBatch())
	require.NoError(t, err)

	var total, pct float64
	for _, s := range report.SpendingPatterns {
		total += s.TotalAmount
		pct += s.Percentage
	}
	assert.InDelta(t, report.TotalSpending, total, 1e-9)
	assert.InDelta(t, 100.0, pct, 0.01)

	require.Len(t, report.BudgetRecommendations, len(report.SpendingPatterns))
	for i, rec := range report.BudgetRecommendations {
		assert.Equal(t, report.SpendingPatterns[i].Category, rec.Category)
	}
	assert.LessOrEqual(t, len(report.Anomalies), len(mixedBatch()))
	for _, an := range report.Anomalies {
		assert.GreaterOrEqual(t, an.AnomalyScore, 0.0)
		assert.LessOrEqual(t, an.AnomalyScore, 1.0)
	}
}

func TestAnalyzeDoesNotMutateInput(t *testing.T) {
	txs := mixedBatch()
	_, err := newTestAnalyzer(t, nil).Analyze("user-1", txs)
	require.NoError(t, err)
	assert.Equal(t, mixedBatch(), txs)
}

func TestAnalyzeRejectsInvalidBatch(t *testing.T) {
	a := newTestAnalyzer(t, nil)

	tests := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"zero amount", func(t *Transaction) { t.Amount = 0 }},
		{"negative amount", func(t *Transaction) { t.Amount = -4 }},
		{"nan amount", func(t *Transaction) { t.Amount = math.NaN() }},
		{"unknown category", func(t *Transaction) { t.Category = "rent" }},
		{"unknown type", func(t *Transaction) { t.Type = "TRANSFER" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs := mixedBatch()
			tt.mutate(&txs[3])
			_, err := a.Analyze("user-1", txs)
			require.ErrorIs(t, err, appErrors.ErrInvalidInput)
			assert.Contains(t, err.Error(), "transaction 3")
		})
	}
}

func TestAnalyzeNonFiniteTotal(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	txs := []Transaction{
		tx("1", math.MaxFloat64, CategoryFood, day1),
		tx("2", math.MaxFloat64, CategoryFood, day1),
	}

	_, err := a.Analyze("user-1", txs)
	require.ErrorIs(t, err, appErrors.ErrComputation)
	assert.Contains(t, err.Error(), "failed to analyze transactions")
}

func TestAnalyzeZeroVarianceHasNoAnomalies(t *testing.T) {
	txs := make([]Transaction, 6)
	for i := range txs {
		txs[i] = tx("", 42, CategoryFood, day1.AddDate(0, 0, i))
	}

	report, err := newTestAnalyzer(t, nil).Analyze("user-1", txs)
	require.NoError(t, err)
	assert.Empty(t, report.Anomalies)
	assert.NotNil(t, report.Anomalies)
}

func TestAnalyzeReadsPaddedIncomeType(t *testing.T) {
	salary := tx("salary", 5000, CategoryOther, day1)
	salary.Type = " income"
	txs := []Transaction{salary, tx("lunch", 100, CategoryFood, day1)}

	report, err := newTestAnalyzer(t, nil).Analyze("user-1", txs)
	require.NoError(t, err)

	assert.Equal(t, 100.0, report.TotalSpending)
	assert.Equal(t, 5000.0, report.IncomeVsExpense.TotalIncome)
	assert.Equal(t, 100.0, report.IncomeVsExpense.TotalExpense)
	require.Len(t, report.SpendingPatterns, 1)
	assert.Equal(t, CategoryFood, report.SpendingPatterns[0].Category)
}

func expenseAmounts(txs []Transaction) []float64 {
	var amounts []float64
	for _, t := range txs {
		if t.IsExpense() {
			amounts = append(amounts, t.Amount)
		}
	}
	return amounts
}

func TestAnalyzeRefitsMalformedCachedModel(t *testing.T) {
	want, err := newTestAnalyzer(t, nil).Analyze("user-1", mixedBatch())
	require.NoError(t, err)

	cache := newFakeCache()
	key := ModelKey("user-1", DefaultConfig(), expenseAmounts(mixedBatch()))
	cache.models[key] = &iforest.Forest{Dims: 1, Psi: 9, Trees: []iforest.Tree{{}}}

	got, err := newTestAnalyzer(t, cache).Analyze("user-1", mixedBatch())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// the broken entry is replaced by the refitted model
	assert.Equal(t, 1, cache.puts)
	assert.NoError(t, cache.models[key].Validate())
}

type panickingCache struct{}

func (panickingCache) Get(string) (*iforest.Forest, bool) { panic("cache exploded") }

func (panickingCache) Put(string, *iforest.Forest) error { return nil }

func TestAnalyzeSurvivesScorerPanic(t *testing.T) {
	logger, hook := test.NewNullLogger()
	a, err := NewAnalyzer(DefaultConfig(), panickingCache{}, logger)
	require.NoError(t, err)

	report, err := a.Analyze("user-1", mixedBatch())
	require.NoError(t, err)
	assert.NotNil(t, report.Anomalies)
	assert.Empty(t, report.Anomalies)
	assert.NotZero(t, report.TotalSpending)
	assert.NotEmpty(t, report.SpendingPatterns)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.ErrorIs(t, hook.LastEntry().Data[logrus.ErrorKey].(error), appErrors.ErrComputation)
}

func TestWithConfigSharesCache(t *testing.T) {
	cache := newFakeCache()
	a := newTestAnalyzer(t, cache)

	cfg := DefaultConfig()
	cfg.AnomalyThreshold = 0.99
	strict, err := a.WithConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 0.5, a.Config().AnomalyThreshold)

	_, err = a.Analyze("user-1", outlierBatch())
	require.NoError(t, err)
	_, err = strict.Analyze("user-1", outlierBatch())
	require.NoError(t, err)

	// the threshold is not part of the model identity
	assert.Equal(t, 1, cache.puts)
	assert.Equal(t, 1, cache.hits)

	cfg.NeedsShare = 0.9
	_, err = a.WithConfig(cfg)
	require.ErrorIs(t, err, appErrors.ErrInvalidInput)
}

func TestAnalyzeConcurrent(t *testing.T) {
	a := newTestAnalyzer(t, newFakeCache())
	want, err := a.Analyze("user-1", mixedBatch())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]InsightsReport, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = a.Analyze("user-1", mixedBatch())
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, want, r)
	}
}

func TestPredictValidates(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	bad := Category("rent")

	_, err := a.Predict("user-1", mixedBatch(), &bad, 30)
	require.ErrorIs(t, err, appErrors.ErrInvalidInput)

	_, err = a.Predict("user-1", mixedBatch(), nil, -1)
	require.ErrorIs(t, err, appErrors.ErrInvalidInput)

	got, err := a.Predict("user-1", mixedBatch(), nil, 30)
	require.NoError(t, err)
	assert.Greater(t, got.PredictedAmount, 0.0)
}
