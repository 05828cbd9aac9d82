package insights

import "fmt"

// SuggestSavings turns over-budget categories and runs of small purchases
// into suggestions. No matching rule yields an empty list.
func SuggestSavings(stats []CategoryStat, recs []BudgetRecommendation, cfg Config) []string {
	suggestions := []string{}

	for _, rec := range recs {
		if rec.Priority != PriorityHigh {
			continue
		}
		excess := rec.CurrentSpending - rec.RecommendedAmount
		suggestions = append(suggestions,
			fmt.Sprintf("Reduce %s spending by $%s/month to meet budget goals", rec.Category, money(excess)))
	}

	for _, stat := range stats {
		if stat.TransactionCount < cfg.SmallTransactionCount || stat.AverageAmount >= cfg.SmallTicketAmount {
			continue
		}
		saving := stat.TotalAmount * cfg.ConsolidationRate
		suggestions = append(suggestions,
			fmt.Sprintf("Consolidate small %s purchases to save up to $%s/month", stat.Category, money(saving)))
	}

	return suggestions
}
