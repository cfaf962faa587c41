// Package finance contains the deterministic calculator: pure functions mapping
// financial inputs to tax, net income, savings-rate and goal figures. The tax
// math is a simplified educational approximation of the German system; the
// brackets and class modifiers are fixed versioned constants, not tunable at
// call time.
package finance

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalidInput = errors.New("invalid calculator input")

// Class is a German tax class (Steuerklasse I-VI).
type Class string

const (
	ClassI   Class = "I"
	ClassII  Class = "II"
	ClassIII Class = "III"
	ClassIV  Class = "IV"
	ClassV   Class = "V"
	ClassVI  Class = "VI"
)

// Classes lists all valid tax classes in order.
var Classes = []Class{ClassI, ClassII, ClassIII, ClassIV, ClassV, ClassVI}

// classModifiers adjusts the base progressive tax per Steuerklasse.
var classModifiers = map[Class]float64{
	ClassI:   1.00, // single
	ClassII:  0.90, // single parent
	ClassIII: 0.80, // married higher earner
	ClassIV:  1.00, // married equal earners
	ClassV:   1.20, // married lower earner
	ClassVI:  1.30, // second job
}

// Progressive bracket boundaries and rates (annual, EUR).
const (
	taxFreeThreshold  = 11604.0
	midBandThreshold  = 66760.0
	topBandThreshold  = 277825.0
	midBandRate       = 0.20
	highBandRate      = 0.42
	topBandRate       = 0.45
	midBandFullAmount = (midBandThreshold - taxFreeThreshold) * midBandRate
	highBandFull      = (topBandThreshold - midBandThreshold) * highBandRate
)

// RecommendedShare maps expense categories to rule-of-thumb maximum shares of
// net income.
var RecommendedShare = map[string]float64{
	"Rent / Housing":             0.30,
	"Food & Groceries":           0.15,
	"Transport":                  0.10,
	"Utilities & Bills":          0.10,
	"Entertainment & Eating Out": 0.10,
	"Shopping & Other":           0.10,
}

// defaultRecommendedShare applies to categories without an explicit guideline.
const defaultRecommendedShare = 0.10

// Step is one labelled intermediate value of a verbose calculation.
type Step struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ParseClass validates a tax class string.
func ParseClass(s string) (Class, error) {
	c := Class(s)
	if _, ok := classModifiers[c]; !ok {
		return "", fmt.Errorf("%w: unknown tax class %q", ErrInvalidInput, s)
	}
	return c, nil
}

// Annualize converts monthly income to annual income.
func Annualize(monthly float64) (float64, error) {
	if monthly < 0 {
		return 0, fmt.Errorf("%w: monthly income must not be negative", ErrInvalidInput)
	}
	return monthly * 12, nil
}

func AnnualizeSteps(monthly float64) (float64, []Step, error) {
	annual, err := Annualize(monthly)
	if err != nil {
		return 0, nil, err
	}
	steps := []Step{
		{Label: "monthly gross income", Value: monthly},
		{Label: "annual gross income (x12)", Value: annual},
	}
	return annual, steps, nil
}

// EstimateTax estimates annual income tax: progressive bracket lookup followed
// by the per-Steuerklasse modifier.
func EstimateTax(annual float64, class Class) (float64, error) {
	tax, _, err := EstimateTaxSteps(annual, class)
	return tax, err
}

func EstimateTaxSteps(annual float64, class Class) (float64, []Step, error) {
	if annual < 0 {
		return 0, nil, fmt.Errorf("%w: annual income must not be negative", ErrInvalidInput)
	}
	modifier, ok := classModifiers[class]
	if !ok {
		return 0, nil, fmt.Errorf("%w: unknown tax class %q", ErrInvalidInput, class)
	}

	var base float64
	switch {
	case annual <= taxFreeThreshold:
		base = 0
	case annual <= midBandThreshold:
		base = (annual - taxFreeThreshold) * midBandRate
	case annual <= topBandThreshold:
		base = midBandFullAmount + (annual-midBandThreshold)*highBandRate
	default:
		base = midBandFullAmount + highBandFull + (annual-topBandThreshold)*topBandRate
	}

	tax := base * modifier
	steps := []Step{
		{Label: "annual gross income", Value: annual},
		{Label: "base progressive tax", Value: base},
		{Label: fmt.Sprintf("class %s modifier", class), Value: modifier},
		{Label: "estimated annual tax", Value: tax},
	}
	return tax, steps, nil
}

// NetIncome subtracts tax from annual income.
func NetIncome(annual, tax float64) float64 {
	return annual - tax
}

func NetIncomeSteps(annual, tax float64) (float64, []Step) {
	net := NetIncome(annual, tax)
	steps := []Step{
		{Label: "annual gross income", Value: annual},
		{Label: "estimated annual tax", Value: tax},
		{Label: "annual net income", Value: net},
	}
	return net, steps
}

// SavingsRate returns the share of net income left after expenses. The second
// return is false when net income is non-positive or expenses exceed net
// income: a defined negative-savings signal, never a NaN or a negative ratio
// presented as valid.
func SavingsRate(net, totalExpenses float64) (float64, bool) {
	rate, _, ok := SavingsRateSteps(net, totalExpenses)
	return rate, ok
}

func SavingsRateSteps(net, totalExpenses float64) (float64, []Step, bool) {
	steps := []Step{
		{Label: "net income", Value: net},
		{Label: "total expenses", Value: totalExpenses},
	}
	if net <= 0 {
		return 0, append(steps, Step{Label: "savings", Value: 0}), false
	}
	savings := net - totalExpenses
	steps = append(steps, Step{Label: "savings", Value: savings})
	if savings < 0 {
		return 0, steps, false
	}
	rate := savings / net
	steps = append(steps, Step{Label: "savings rate", Value: rate})
	return rate, steps, true
}

// RequiredMonthlySavings returns the amount to save each month to reach the
// goal in the remaining months.
func RequiredMonthlySavings(goal float64, months int) (float64, error) {
	amount, _, err := RequiredMonthlySavingsSteps(goal, months)
	return amount, err
}

func RequiredMonthlySavingsSteps(goal float64, months int) (float64, []Step, error) {
	if goal < 0 {
		return 0, nil, fmt.Errorf("%w: goal amount must not be negative", ErrInvalidInput)
	}
	if months <= 0 {
		return 0, nil, fmt.Errorf("%w: months remaining must be positive", ErrInvalidInput)
	}
	amount := goal / float64(months)
	steps := []Step{
		{Label: "goal amount", Value: goal},
		{Label: "months remaining", Value: float64(months)},
		{Label: "required monthly savings", Value: amount},
	}
	return amount, steps, nil
}

// MonthsRemaining counts whole months from now until the target date, rounding
// partial months up.
func MonthsRemaining(target, now time.Time) (int, error) {
	if !target.After(now) {
		return 0, fmt.Errorf("%w: goal date must be in the future", ErrInvalidInput)
	}
	days := target.Sub(now).Hours() / 24
	months := int(math.Ceil(days / 30.4375))
	if months < 1 {
		months = 1
	}
	return months, nil
}

// TaxByClass computes the estimated annual tax for every Steuerklasse, for
// side-by-side comparison.
func TaxByClass(annual float64) (map[Class]float64, error) {
	out := make(map[Class]float64, len(Classes))
	for _, c := range Classes {
		tax, err := EstimateTax(annual, c)
		if err != nil {
			return nil, err
		}
		out[c] = tax
	}
	return out, nil
}

// OverspendTip flags one expense category above its recommended share.
type OverspendTip struct {
	Category    string
	ActualShare float64
	MaxShare    float64
}

// OverspendingReport lists categories whose share of monthly net income
// exceeds the guideline by more than five percentage points.
func OverspendingReport(expenses map[string]float64, monthlyNet float64) []OverspendTip {
	if monthlyNet <= 0 {
		return nil
	}
	var tips []OverspendTip
	for cat, amount := range expenses {
		share := amount / monthlyNet
		max, ok := RecommendedShare[cat]
		if !ok {
			max = defaultRecommendedShare
		}
		if share > max+0.05 {
			tips = append(tips, OverspendTip{Category: cat, ActualShare: share, MaxShare: max})
		}
	}
	return tips
}
