// Package amortize computes declining-balance payment schedules in integer cents.
package amortize

import (
	"errors"
	"math"
)

// Input errors for schedule computation.
var (
	ErrInvalidPrincipal = errors.New("principal must be positive")
	ErrInvalidRate      = errors.New("rate must be non-negative")
	ErrInvalidPeriods   = errors.New("periods must be positive")
)

// Period is one row of a payment schedule. All amounts are in cents.
type Period struct {
	Index     int   `json:"index"`
	Payment   int64 `json:"payment"`
	Principal int64 `json:"principal"`
	Interest  int64 `json:"interest"`
	Balance   int64 `json:"balance"`
}

// Schedule is a computed declining-balance amortization schedule.
type Schedule struct {
	Principal     int64    `json:"principal"`
	RatePerPeriod float64  `json:"rate_per_period"`
	Periods       []Period `json:"periods"`
	TotalPayment  int64    `json:"total_payment"`
	TotalInterest int64    `json:"total_interest"`
}

// Compute builds a declining-balance schedule for the given principal (cents),
// per-period interest rate (e.g. 0.005 for 0.5% per period), and period count.
//
// Each period accrues interest on the remaining balance; the fixed payment
// covers interest first and the remainder retires principal. The final period
// absorbs accumulated rounding so the closing balance is exactly zero.
func Compute(principal int64, ratePerPeriod float64, periods int) (*Schedule, error) {
	if principal <= 0 {
		return nil, ErrInvalidPrincipal
	}
	if ratePerPeriod < 0 {
		return nil, ErrInvalidRate
	}
	if periods <= 0 {
		return nil, ErrInvalidPeriods
	}

	payment := fixedPayment(principal, ratePerPeriod, periods)

	schedule := &Schedule{
		Principal:     principal,
		RatePerPeriod: ratePerPeriod,
		Periods:       make([]Period, 0, periods),
	}

	balance := principal
	for i := 1; i <= periods && balance > 0; i++ {
		interest := int64(math.Round(float64(balance) * ratePerPeriod))

		principalPortion := payment - interest
		if i == periods || principalPortion >= balance {
			// final period retires whatever remains
			principalPortion = balance
		}
		if principalPortion < 0 {
			principalPortion = 0
		}

		balance -= principalPortion
		p := Period{
			Index:     i,
			Payment:   principalPortion + interest,
			Principal: principalPortion,
			Interest:  interest,
			Balance:   balance,
		}
		schedule.Periods = append(schedule.Periods, p)
		schedule.TotalPayment += p.Payment
		schedule.TotalInterest += p.Interest
	}

	return schedule, nil
}

// fixedPayment computes the level payment via the standard annuity formula,
// degrading to straight division at zero interest.
func fixedPayment(principal int64, rate float64, periods int) int64 {
	if rate == 0 {
		return int64(math.Ceil(float64(principal) / float64(periods)))
	}

	p := float64(principal)
	factor := math.Pow(1+rate, float64(periods))
	return int64(math.Round(p * rate * factor / (factor - 1)))
}
