package insights

import (
	"fmt"
	"math"

	appErrors "github.com/fatali-fataliyev/spending_insights/errors"
	"github.com/fatali-fataliyev/spending_insights/logging"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Analyzer runs the insights pipeline. It keeps no per-call state and is
// safe for concurrent use.
type Analyzer struct {
	cfg    Config
	cache  ModelCache
	fits   *singleflight.Group
	logger logrus.FieldLogger
}

// NewAnalyzer validates cfg. cache may be nil, in which case every call
// fits its own model.
func NewAnalyzer(cfg Config, cache ModelCache, logger logrus.FieldLogger) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Logger
	}
	return &Analyzer{
		cfg:    cfg,
		cache:  cache,
		fits:   &singleflight.Group{},
		logger: logger,
	}, nil
}

// WithConfig returns an analyzer with its own thresholds that shares the
// model cache of a.
func (a *Analyzer) WithConfig(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{
		cfg:    cfg,
		cache:  a.cache,
		fits:   a.fits,
		logger: a.logger,
	}, nil
}

func (a *Analyzer) Config() Config {
	return a.cfg
}

func (a *Analyzer) scorer() *AnomalyScorer {
	return &AnomalyScorer{cfg: a.cfg, cache: a.cache, fits: a.fits, logger: a.logger}
}

// Analyze builds the full report for one user's batch. txs is not modified.
func (a *Analyzer) Analyze(userID string, txs []Transaction) (report InsightsReport, err error) {
	if err := ValidateTransactions(txs); err != nil {
		return InsightsReport{}, err
	}
	if len(txs) == 0 {
		return EmptyReport(userID), nil
	}

	defer func() {
		if r := recover(); r != nil {
			report = InsightsReport{}
			err = fmt.Errorf("failed to analyze transactions: %w: %v", appErrors.ErrComputation, r)
		}
	}()

	summary, err := Aggregate(txs)
	if err != nil {
		return InsightsReport{}, err
	}
	if math.IsInf(summary.Total, 0) || math.IsNaN(summary.Total) {
		return InsightsReport{}, fmt.Errorf("failed to analyze transactions: %w: total spending is not finite", appErrors.ErrComputation)
	}

	recs := RecommendBudgets(summary.Stats, summary.Total, a.cfg)

	anomalies, err := a.scorer().Score(userID, txs)
	if err != nil {
		a.logger.WithError(err).WithField("user_id", userID).Warn("anomaly detection failed, continuing without anomalies")
		anomalies = []Anomaly{}
	}

	return InsightsReport{
		UserID:                   userID,
		IncomeVsExpense:          CompareIncome(txs),
		SpendingPatterns:         summary.Stats,
		CategoryHealth:           AssessCategoryHealth(summary.Stats),
		BudgetRecommendations:    recs,
		Anomalies:                anomalies,
		TotalSpending:            summary.Total,
		AverageDailySpending:     summary.AverageDaily,
		ProjectedMonthlySpending: ProjectMonthly(summary.Total, summary.SpanDays),
		SavingsOpportunities:     SuggestSavings(summary.Stats, recs, a.cfg),
	}, nil
}

// Predict validates txs and forecasts spending for the next daysAhead days.
func (a *Analyzer) Predict(userID string, txs []Transaction, category *Category, daysAhead int) (SpendingPrediction, error) {
	if err := ValidateTransactions(txs); err != nil {
		return SpendingPrediction{}, err
	}
	if category != nil && !category.Valid() {
		return SpendingPrediction{}, fmt.Errorf("%w: unknown category '%s'", appErrors.ErrInvalidInput, *category)
	}
	if daysAhead < 0 {
		return SpendingPrediction{}, fmt.Errorf("%w: daysAhead must not be negative", appErrors.ErrInvalidInput)
	}
	return PredictSpending(userID, txs, category, daysAhead), nil
}

// EmptyReport is the report for a batch without transactions.
func EmptyReport(userID string) InsightsReport {
	return InsightsReport{
		UserID:                userID,
		IncomeVsExpense:       IncomeVsExpense{Status: BalanceHealthy},
		SpendingPatterns:      []CategoryStat{},
		CategoryHealth:        []CategoryHealth{},
		BudgetRecommendations: []BudgetRecommendation{},
		Anomalies:             []Anomaly{},
		SavingsOpportunities:  []string{},
	}
}

// ValidateTransactions rejects the whole batch on the first bad entry.
func ValidateTransactions(txs []Transaction) error {
	for i, t := range txs {
		if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
			return fmt.Errorf("%w: transaction %d: amount must be a finite number", appErrors.ErrInvalidInput, i)
		}
		if t.Amount <= 0 {
			return fmt.Errorf("%w: transaction %d: amount must be greater than 0", appErrors.ErrInvalidInput, i)
		}
		if !t.Category.Valid() {
			return fmt.Errorf("%w: transaction %d: unknown category '%s'", appErrors.ErrInvalidInput, i, t.Category)
		}
		if _, err := ParseTransactionType(string(t.Type)); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
		if t.Date.IsZero() {
			return fmt.Errorf("%w: transaction %d: date is required", appErrors.ErrInvalidInput, i)
		}
	}
	return nil
}
