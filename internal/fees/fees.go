// Package fees computes platform fees, landlord payouts, affordability ratios and
// lease values. All amounts are integer minor units; decimal math is used only for
// the intermediate products.
package fees

import (
	"fmt"
	"time"

	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/lifecycle"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/models"
	"github.com/shopspring/decimal"
)

// Default policy values.
const (
	DefaultPlatformFeeRate = "0.029"
	DefaultHealthyRatio    = 40.0
	DefaultBorderlineRatio = 30.0
	// DaysPerMonth is the fixed month length used for lease value proration.
	DaysPerMonth = 30
)

// Policy holds the configurable fee and screening parameters.
type Policy struct {
	PlatformFeeRate decimal.Decimal
	HealthyRatio    float64
	BorderlineRatio float64
	// CalendarProration switches TotalLeaseValue to whole calendar months plus
	// actual-day proration of the remainder.
	CalendarProration bool
}

// DefaultPolicy returns the marketplace defaults.
func DefaultPolicy() Policy {
	return Policy{
		PlatformFeeRate: decimal.RequireFromString(DefaultPlatformFeeRate),
		HealthyRatio:    DefaultHealthyRatio,
		BorderlineRatio: DefaultBorderlineRatio,
	}
}

// Validate rejects policies that would produce nonsense fees or classifications.
func (p Policy) Validate() error {
	if p.PlatformFeeRate.IsNegative() || p.PlatformFeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("platform fee rate must be in [0, 1), got %s", p.PlatformFeeRate)
	}
	if p.BorderlineRatio <= 0 || p.HealthyRatio <= p.BorderlineRatio {
		return fmt.Errorf("ratio thresholds must satisfy 0 < borderline (%.2f) < healthy (%.2f)", p.BorderlineRatio, p.HealthyRatio)
	}
	return nil
}

// Calculator applies a Policy. It is safe for concurrent use.
type Calculator struct {
	policy Policy
}

// NewCalculator validates the policy and returns a calculator for it.
func NewCalculator(policy Policy) (*Calculator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{policy: policy}, nil
}

// Policy returns the policy in effect.
func (c *Calculator) Policy() Policy {
	return c.policy
}

// PlatformFee is amount × rate, rounded half-up to a whole minor unit.
func (c *Calculator) PlatformFee(amount models.Money) (models.Money, error) {
	if amount.IsNegative() {
		return models.Money{}, models.NewValidationError("amount must not be negative")
	}
	fee, err := amount.MulRate(c.policy.PlatformFeeRate)
	if err != nil {
		return models.Money{}, models.NewValidationError(err.Error())
	}
	return fee, nil
}

// LandlordNet is what the landlord receives after platform and processing fees.
func (c *Calculator) LandlordNet(amount, processingFee models.Money) (models.Money, error) {
	if processingFee.IsNegative() {
		return models.Money{}, models.NewValidationError("processing fee must not be negative")
	}
	fee, err := c.PlatformFee(amount)
	if err != nil {
		return models.Money{}, err
	}
	net, err := amount.Sub(fee)
	if err != nil {
		return models.Money{}, err
	}
	return net.Sub(processingFee)
}

// Quote is the fee breakdown for one payment.
type Quote struct {
	Amount        models.Money `json:"amount"`
	PlatformFee   models.Money `json:"platform_fee"`
	ProcessingFee models.Money `json:"processing_fee"`
	LandlordNet   models.Money `json:"landlord_net"`
	Display       string       `json:"display"`
}

// Quote bundles the platform fee, processing fee and landlord net for amount.
func (c *Calculator) Quote(amount, processingFee models.Money) (*Quote, error) {
	fee, err := c.PlatformFee(amount)
	if err != nil {
		return nil, err
	}
	net, err := c.LandlordNet(amount, processingFee)
	if err != nil {
		return nil, err
	}
	return &Quote{
		Amount:        amount,
		PlatformFee:   fee,
		ProcessingFee: models.NewMoney(processingFee.Amount, amount.Cur()),
		LandlordNet:   net,
		Display:       fmt.Sprintf("%s (fee %s, you receive %s)", amount.DisplayString(), fee.DisplayString(), net.DisplayString()),
	}, nil
}

// TotalLeaseValue prorates rent over the term using fixed 30-day months:
// rent × days / 30, rounded to a whole minor unit.
func TotalLeaseValue(rent models.Money, start, end time.Time) (models.Money, error) {
	days := lifecycle.DaysBetween(start, end)
	if days <= 0 {
		return models.Money{}, models.NewValidationError("lease end date must be after start date")
	}
	v := decimal.NewFromInt(rent.Amount).
		Mul(decimal.NewFromInt(int64(days))).
		Div(decimal.NewFromInt(DaysPerMonth)).
		Round(0)
	return leaseTotal(v, rent.Cur())
}

// CalendarLeaseValue charges whole calendar months at full rent and prorates the
// remainder by the actual length of the month it falls in.
func CalendarLeaseValue(rent models.Money, start, end time.Time) (models.Money, error) {
	start, end = lifecycle.DateOnly(start), lifecycle.DateOnly(end)
	if !end.After(start) {
		return models.Money{}, models.NewValidationError("lease end date must be after start date")
	}

	months := 0
	for !start.AddDate(0, months+1, 0).After(end) {
		months++
	}
	cursor := start.AddDate(0, months, 0)
	remaining := lifecycle.DaysBetween(cursor, end)
	monthLen := lifecycle.DaysBetween(cursor, cursor.AddDate(0, 1, 0))

	total := decimal.NewFromInt(rent.Amount).Mul(decimal.NewFromInt(int64(months)))
	if remaining > 0 {
		partial := decimal.NewFromInt(rent.Amount).
			Mul(decimal.NewFromInt(int64(remaining))).
			Div(decimal.NewFromInt(int64(monthLen)))
		total = total.Add(partial)
	}
	return leaseTotal(total.Round(0), rent.Cur())
}

func leaseTotal(v decimal.Decimal, currency string) (models.Money, error) {
	total, err := models.FromMinorDecimal(v, currency)
	if err != nil {
		return models.Money{}, models.NewValidationError("lease value " + err.Error())
	}
	return total, nil
}

// LeaseValue picks the proration method configured in the policy.
func (c *Calculator) LeaseValue(rent models.Money, start, end time.Time, calendar bool) (models.Money, error) {
	if calendar || c.policy.CalendarProration {
		return CalendarLeaseValue(rent, start, end)
	}
	return TotalLeaseValue(rent, start, end)
}
