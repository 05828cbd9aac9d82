package insights

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const DefaultDaysAhead = 30

// PredictSpending projects the mean daily expense over daysAhead days.
// Confidence is 1 minus the coefficient of variation of daily totals,
// clamped to [0, 1]; it is 0 with fewer than two distinct days.
func PredictSpending(userID string, txs []Transaction, category *Category, daysAhead int) SpendingPrediction {
	if daysAhead <= 0 {
		daysAhead = DefaultDaysAhead
	}
	prediction := SpendingPrediction{
		UserID:   userID,
		Category: category,
		Period:   fmt.Sprintf("%d days", daysAhead),
	}

	daily := map[time.Time]float64{}
	for _, t := range txs {
		if !t.IsExpense() {
			continue
		}
		if category != nil && t.Category != *category {
			continue
		}
		daily[day(t.Date)] += t.Amount
	}
	if len(daily) == 0 {
		return prediction
	}

	// sum in date order so the result does not depend on map iteration
	days := make([]time.Time, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Slice(days, func(a, b int) bool { return days[a].Before(days[b]) })

	var sum float64
	for _, d := range days {
		sum += daily[d]
	}
	mean := sum / float64(len(days))
	prediction.PredictedAmount = mean * float64(daysAhead)

	if len(days) < 2 || mean <= 0 {
		return prediction
	}
	var squares float64
	for _, d := range days {
		diff := daily[d] - mean
		squares += diff * diff
	}
	stdev := math.Sqrt(squares / float64(len(days)-1))
	prediction.Confidence = math.Max(0, math.Min(1, 1-stdev/mean))
	return prediction
}
