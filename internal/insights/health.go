package insights

import (
	"fmt"
	"sort"
)

// recommendedPercentage is the healthy share of total expenses per category.
var recommendedPercentage = map[Category]float64{
	CategoryFood:          15,
	CategoryUtilities:     10,
	CategoryTransport:     10,
	CategoryHealthcare:    5,
	CategoryEntertainment: 5,
	CategoryShopping:      10,
	CategoryOther:         5,
}

// CompareIncome totals income against expenses. Without income the
// savings rate is 0; an empty batch is reported as healthy.
func CompareIncome(txs []Transaction) IncomeVsExpense {
	if len(txs) == 0 {
		return IncomeVsExpense{Status: BalanceHealthy}
	}

	var result IncomeVsExpense
	for _, t := range txs {
		if t.IsExpense() {
			result.TotalExpense += t.Amount
		} else {
			result.TotalIncome += t.Amount
		}
	}
	result.NetBalance = result.TotalIncome - result.TotalExpense
	if result.TotalIncome > 0 {
		result.SavingsRate = result.NetBalance / result.TotalIncome * 100
	}

	switch {
	case result.SavingsRate >= 20:
		result.Status = BalanceHealthy
	case result.SavingsRate >= 10:
		result.Status = BalanceConcerning
	default:
		result.Status = BalanceCritical
	}
	return result
}

var healthOrder = map[HealthStatus]int{
	HealthBad:     0,
	HealthWarning: 1,
	HealthGood:    2,
}

// AssessCategoryHealth grades each category share against its recommended
// percentage, worst first.
func AssessCategoryHealth(stats []CategoryStat) []CategoryHealth {
	health := make([]CategoryHealth, 0, len(stats))
	for _, stat := range stats {
		recommended, ok := recommendedPercentage[stat.Category]
		if !ok {
			recommended = 5
		}
		current := stat.Percentage

		h := CategoryHealth{Category: stat.Category, Spending: stat.TotalAmount}
		switch {
		case current <= recommended:
			h.Status = HealthGood
			h.Reason = fmt.Sprintf("Spending is within healthy limits (%s%% of total)", percentOneDecimal(current))
			h.Recommendation = fmt.Sprintf("Great job managing your %s expenses!", stat.Category)
		case current <= recommended*1.5:
			h.Status = HealthWarning
			h.Reason = fmt.Sprintf("Spending is %s%% over recommended", percent((current/recommended-1)*100))
			h.Recommendation = fmt.Sprintf("Try to reduce %s spending by $%s", stat.Category, money(stat.TotalAmount*0.2))
		default:
			h.Status = HealthBad
			h.Reason = fmt.Sprintf("Spending is significantly over recommended (%s%% vs %s%%)",
				percentOneDecimal(current), percent(recommended))
			h.Recommendation = fmt.Sprintf("Priority: Cut %s expenses by $%s or more", stat.Category, money(stat.TotalAmount*0.3))
		}
		health = append(health, h)
	}

	sort.SliceStable(health, func(a, b int) bool {
		return healthOrder[health[a].Status] < healthOrder[health[b].Status]
	})
	return health
}
