package insights

import (
	"fmt"
	"math"
)

type bucket int

const (
	bucketNeeds bucket = iota
	bucketWants
	bucketSavings
)

var categoryBucket = map[Category]bucket{
	CategoryUtilities:     bucketNeeds,
	CategoryHealthcare:    bucketNeeds,
	CategoryFood:          bucketNeeds,
	CategoryTransport:     bucketNeeds,
	CategoryEntertainment: bucketWants,
	CategoryShopping:      bucketWants,
	CategoryOther:         bucketSavings,
}

func (c Config) share(cat Category) float64 {
	switch categoryBucket[cat] {
	case bucketNeeds:
		return c.NeedsShare
	case bucketWants:
		return c.WantsShare
	default:
		return c.SavingsShare
	}
}

// RecommendBudgets applies the 50/30/20 rule to every present category.
// The output follows the order of stats.
func RecommendBudgets(stats []CategoryStat, total float64, cfg Config) []BudgetRecommendation {
	recs := make([]BudgetRecommendation, 0, len(stats))
	for _, stat := range stats {
		recommended := cfg.share(stat.Category) * total
		current := stat.TotalAmount
		recs = append(recs, BudgetRecommendation{
			Category:          stat.Category,
			RecommendedAmount: recommended,
			CurrentSpending:   current,
			Reason:            budgetReason(current, recommended),
			Priority:          budgetPriority(current, recommended),
		})
	}
	return recs
}

func budgetPriority(current, recommended float64) Priority {
	switch {
	case current > recommended*1.2:
		return PriorityHigh
	case current > recommended*1.1:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func budgetReason(current, recommended float64) string {
	if recommended <= 0 {
		if current > 0 {
			return "Spending exceeds a zero budget"
		}
		return "Spending matches recommended budget"
	}
	deviation := (current/recommended - 1) * 100
	if math.Abs(deviation) < 0.5 {
		return "Spending matches recommended budget"
	}
	if deviation > 0 {
		return fmt.Sprintf("Spending is %s%% over recommended budget", percent(deviation))
	}
	return fmt.Sprintf("Spending is %s%% under recommended budget", percent(-deviation))
}
