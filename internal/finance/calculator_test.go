package finance

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestEstimateTaxBrackets(t *testing.T) {
	cases := []struct {
		annual float64
		want   float64
	}{
		{10000, 0},
		{11604, 0},
		{31604, (31604 - 11604) * 0.20},
		{66760, (66760 - 11604) * 0.20},
		{100000, (66760-11604)*0.20 + (100000-66760)*0.42},
		{300000, (66760-11604)*0.20 + (277825-66760)*0.42 + (300000-277825)*0.45},
	}
	for _, tc := range cases {
		got, err := EstimateTax(tc.annual, ClassI)
		if err != nil {
			t.Fatalf("EstimateTax(%v) error = %v", tc.annual, err)
		}
		if math.Abs(got-tc.want) > 0.01 {
			t.Fatalf("EstimateTax(%v) = %v, want %v", tc.annual, got, tc.want)
		}
	}
}

func TestEstimateTaxClassModifiers(t *testing.T) {
	base, err := EstimateTax(50000, ClassI)
	if err != nil {
		t.Fatalf("EstimateTax() error = %v", err)
	}
	iii, err := EstimateTax(50000, ClassIII)
	if err != nil {
		t.Fatalf("EstimateTax(III) error = %v", err)
	}
	if math.Abs(iii-base*0.80) > 0.01 {
		t.Fatalf("class III tax = %v, want %v", iii, base*0.80)
	}
	vi, err := EstimateTax(50000, ClassVI)
	if err != nil {
		t.Fatalf("EstimateTax(VI) error = %v", err)
	}
	if math.Abs(vi-base*1.30) > 0.01 {
		t.Fatalf("class VI tax = %v, want %v", vi, base*1.30)
	}
}

func TestEstimateTaxMonotoneInIncome(t *testing.T) {
	for _, class := range Classes {
		prev := -1.0
		for annual := 0.0; annual <= 400000; annual += 1000 {
			tax, err := EstimateTax(annual, class)
			if err != nil {
				t.Fatalf("EstimateTax(%v, %s) error = %v", annual, class, err)
			}
			if tax < prev {
				t.Fatalf("tax decreased at income %v class %s: %v < %v", annual, class, tax, prev)
			}
			prev = tax
		}
	}
}

func TestNetIncomeNeverNegativeForValidInputs(t *testing.T) {
	for _, class := range Classes {
		for annual := 0.0; annual <= 400000; annual += 2500 {
			tax, err := EstimateTax(annual, class)
			if err != nil {
				t.Fatalf("EstimateTax() error = %v", err)
			}
			if net := NetIncome(annual, tax); net < 0 {
				t.Fatalf("net income negative at annual=%v class=%s: %v", annual, class, net)
			}
		}
	}
}

func TestEstimateTaxInvalidInputs(t *testing.T) {
	if _, err := EstimateTax(-1, ClassI); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative income error = %v, want ErrInvalidInput", err)
	}
	if _, err := EstimateTax(50000, Class("VII")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad class error = %v, want ErrInvalidInput", err)
	}
	if _, err := Annualize(-100); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative monthly error = %v, want ErrInvalidInput", err)
	}
}

func TestSavingsRateNegativeSignal(t *testing.T) {
	if _, ok := SavingsRate(0, 100); ok {
		t.Fatalf("SavingsRate(0, 100) ok = true, want negative-savings signal")
	}
	if _, ok := SavingsRate(2000, 2500); ok {
		t.Fatalf("SavingsRate(2000, 2500) ok = true, want negative-savings signal")
	}
	rate, ok := SavingsRate(2000, 1500)
	if !ok {
		t.Fatalf("SavingsRate(2000, 1500) ok = false, want true")
	}
	if math.Abs(rate-0.25) > 1e-9 {
		t.Fatalf("SavingsRate(2000, 1500) = %v, want 0.25", rate)
	}
	if rate < 0 || rate > 1 {
		t.Fatalf("rate %v outside [0,1]", rate)
	}
}

func TestRequiredMonthlySavingsRoundTrip(t *testing.T) {
	goal := 12345.67
	months := 17
	monthly, err := RequiredMonthlySavings(goal, months)
	if err != nil {
		t.Fatalf("RequiredMonthlySavings() error = %v", err)
	}
	saved := 0.0
	for i := 0; i < months; i++ {
		saved += monthly
	}
	if math.Abs(saved-goal) > 0.01 {
		t.Fatalf("saved %v after %d months, want %v", saved, months, goal)
	}
}

func TestRequiredMonthlySavingsInvalid(t *testing.T) {
	if _, err := RequiredMonthlySavings(1000, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero months error = %v, want ErrInvalidInput", err)
	}
	if _, err := RequiredMonthlySavings(-1, 12); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative goal error = %v, want ErrInvalidInput", err)
	}
}

func TestMonthsRemainingPastDate(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	if _, err := MonthsRemaining(now.AddDate(0, 0, -1), now); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("past date error = %v, want ErrInvalidInput", err)
	}
	months, err := MonthsRemaining(now.AddDate(1, 0, 0), now)
	if err != nil {
		t.Fatalf("MonthsRemaining() error = %v", err)
	}
	if months != 12 {
		t.Fatalf("MonthsRemaining(+1y) = %d, want 12", months)
	}
}

func TestVerboseStepsOrdered(t *testing.T) {
	tax, steps, err := EstimateTaxSteps(50000, ClassII)
	if err != nil {
		t.Fatalf("EstimateTaxSteps() error = %v", err)
	}
	if len(steps) != 4 {
		t.Fatalf("len(steps) = %d, want 4", len(steps))
	}
	if steps[0].Label != "annual gross income" {
		t.Fatalf("steps[0].Label = %q, want annual gross income", steps[0].Label)
	}
	if steps[len(steps)-1].Value != tax {
		t.Fatalf("final step value = %v, want result %v", steps[len(steps)-1].Value, tax)
	}
}

func TestOverspendingReport(t *testing.T) {
	tips := OverspendingReport(map[string]float64{
		"Rent / Housing": 1200, // 48% of net, guideline 30%
		"Transport":      200,  // 8%, fine
	}, 2500)
	if len(tips) != 1 {
		t.Fatalf("len(tips) = %d, want 1", len(tips))
	}
	if tips[0].Category != "Rent / Housing" {
		t.Fatalf("tips[0].Category = %q, want Rent / Housing", tips[0].Category)
	}
	if OverspendingReport(map[string]float64{"Rent / Housing": 100}, 0) != nil {
		t.Fatalf("report with zero net should be nil")
	}
}
