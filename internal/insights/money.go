package insights

import "github.com/shopspring/decimal"

// money renders an amount with two decimals, rounding half away from zero.
func money(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

// percent renders a whole percentage the same way.
func percent(value float64) string {
	return decimal.NewFromFloat(value).StringFixed(0)
}

func percentOneDecimal(value float64) string {
	return decimal.NewFromFloat(value).StringFixed(1)
}
