package insights

import (
	"fmt"
	"sort"
	"time"

	appErrors "github.com/fatali-fataliyev/spending_insights/errors"
)

// Summary is the aggregator output shared by the downstream stages.
type Summary struct {
	Stats        []CategoryStat
	Total        float64
	SpanDays     int
	AverageDaily float64
}

// Aggregate groups expense transactions by category. Income is ignored
// for spending figures but still counts towards the date span. An unknown
// category fails the whole batch with ErrInvalidInput.
func Aggregate(txs []Transaction) (Summary, error) {
	if len(txs) == 0 {
		return Summary{Stats: []CategoryStat{}}, nil
	}

	var (
		totals [len(categoryOrder)]float64
		counts [len(categoryOrder)]int
		total  float64
	)
	for n, t := range txs {
		if !t.IsExpense() {
			continue
		}
		i := t.Category.rank()
		if i < 0 {
			return Summary{}, fmt.Errorf("%w: transaction %d: unknown category '%s'", appErrors.ErrInvalidInput, n, t.Category)
		}
		totals[i] += t.Amount
		counts[i]++
		total += t.Amount
	}

	stats := make([]CategoryStat, 0, len(categoryOrder))
	for i, c := range categoryOrder {
		if counts[i] == 0 {
			continue
		}
		stat := CategoryStat{
			Category:         c,
			TotalAmount:      totals[i],
			TransactionCount: counts[i],
			AverageAmount:    totals[i] / float64(counts[i]),
		}
		if total > 0 {
			stat.Percentage = totals[i] / total * 100
		}
		stats = append(stats, stat)
	}
	// stats start in category order, so a stable sort settles ties by it
	sort.SliceStable(stats, func(a, b int) bool {
		return stats[a].TotalAmount > stats[b].TotalAmount
	})

	span := spanDays(txs)
	return Summary{
		Stats:        stats,
		Total:        total,
		SpanDays:     span,
		AverageDaily: total / float64(span),
	}, nil
}

// spanDays counts calendar days (UTC) from the earliest to the latest
// transaction, both included. Never less than 1.
func spanDays(txs []Transaction) int {
	if len(txs) == 0 {
		return 1
	}
	first, last := day(txs[0].Date), day(txs[0].Date)
	for _, t := range txs[1:] {
		d := day(t.Date)
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	days := int(last.Sub(first).Hours()/24) + 1
	return max(days, 1)
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
