package insights

const daysPerMonth = 30

// ProjectMonthly extrapolates spending to a 30 day month. For spans under
// 30 days this is the daily average scaled up, otherwise the total
// rescaled by span. Both reduce to total * 30 / span.
func ProjectMonthly(total float64, spanDays int) float64 {
	span := max(spanDays, 1)
	if span < daysPerMonth {
		return total / float64(span) * daysPerMonth
	}
	return total * daysPerMonth / float64(span)
}
