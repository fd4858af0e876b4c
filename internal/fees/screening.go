package fees

import (
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
)

// RatioClass is the affordability bucket of an income-to-rent ratio.
type RatioClass string

const (
	RatioHealthy    RatioClass = "healthy"
	RatioBorderline RatioClass = "borderline"
	RatioRisk       RatioClass = "risk"
)

var ratioColors = map[RatioClass]string{
	RatioHealthy:    "green",
	RatioBorderline: "yellow",
	RatioRisk:       "red",
}

// Classification is a ratio with its bucket and display color.
type Classification struct {
	Ratio float64    `json:"ratio"`
	Class RatioClass `json:"class"`
	Color string     `json:"color"`
}

// IncomeToRentRatio divides income by rent. Both must share a currency and rent must
// be positive.
func IncomeToRentRatio(income, rent models.Money) (float64, error) {
	if !rent.IsPositive() {
		return 0, models.NewValidationError("rent must be greater than zero")
	}
	if !income.SameCurrency(rent) {
		return 0, models.NewValidationError("income and rent must use the same currency")
	}
	return float64(income.Amount) / float64(rent.Amount), nil
}

// Classify buckets a ratio against the policy thresholds:
// >= healthy is healthy, >= borderline is borderline, anything lower is risk.
func (c *Calculator) Classify(ratio float64) Classification {
	class := RatioRisk
	switch {
	case ratio >= c.policy.HealthyRatio:
		class = RatioHealthy
	case ratio >= c.policy.BorderlineRatio:
		class = RatioBorderline
	}
	return Classification{Ratio: ratio, Class: class, Color: ratioColors[class]}
}

// Screen computes and classifies the ratio in one call.
func (c *Calculator) Screen(income, rent models.Money) (Classification, error) {
	ratio, err := IncomeToRentRatio(income, rent)
	if err != nil {
		return Classification{}, err
	}
	return c.Classify(ratio), nil
}
