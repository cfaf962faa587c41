package assistant

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sajjadurrahman1/Wealth-Navigator/internal/finance"
)

// Profile is the financial context a surface supplies with each utterance.
// A zero Profile is valid; answers that need numbers then ask for them.
type Profile struct {
	MonthlyIncome float64
	Steuerklasse  finance.Class
	Expenses      map[string]float64
	GoalAmount    float64
	GoalMonths    int
	Currency      string
}

// snapshot holds the derived figures every calculator and template answer
// is built from. All values are monthly unless named otherwise.
type snapshot struct {
	currency      string
	grossMonthly  float64
	annualIncome  float64
	annualTax     float64
	taxMonthly    float64
	netMonthly    float64
	totalExpenses float64
	savings       float64
	rate          float64
	rateOK        bool
	class         finance.Class
}

func buildSnapshot(p Profile) (snapshot, error) {
	class := p.Steuerklasse
	if class == "" {
		class = finance.ClassI
	}
	annual, err := finance.Annualize(p.MonthlyIncome)
	if err != nil {
		return snapshot{}, err
	}
	tax, err := finance.EstimateTax(annual, class)
	if err != nil {
		return snapshot{}, err
	}
	net := finance.NetIncome(annual, tax)
	total := 0.0
	for _, v := range p.Expenses {
		if v < 0 {
			return snapshot{}, fmt.Errorf("expense amount %.2f: %w", v, finance.ErrInvalidInput)
		}
		total += v
	}
	netMonthly := net / 12
	savings := netMonthly - total
	rate, rateOK := finance.SavingsRate(netMonthly, total)
	return snapshot{
		currency:      currencySymbol(p.Currency),
		grossMonthly:  p.MonthlyIncome,
		annualIncome:  annual,
		annualTax:     tax,
		taxMonthly:    tax / 12,
		netMonthly:    netMonthly,
		totalExpenses: total,
		savings:       savings,
		rate:          rate,
		rateOK:        rateOK,
		class:         class,
	}, nil
}

func currencySymbol(code string) string {
	switch strings.ToUpper(code) {
	case "", "EUR":
		return "€"
	case "USD":
		return "$"
	case "GBP":
		return "£"
	case "INR":
		return "₹"
	default:
		return strings.ToUpper(code) + " "
	}
}

func (s snapshot) money(v float64) string {
	return fmt.Sprintf("%s%.2f", s.currency, v)
}

const profilePrompt = "I need your monthly income first. Set it in your profile and ask again."

// calculatorAnswer renders a deterministic numeric answer for one calculator
// topic. verbose appends the step-by-step breakdown.
func calculatorAnswer(topic CalcTopic, p Profile, verbose bool) (string, error) {
	if p.MonthlyIncome <= 0 {
		return profilePrompt, nil
	}
	s, err := buildSnapshot(p)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	switch topic {
	case TopicGoal:
		writeGoalAnswer(&b, s, p, verbose)
	case TopicSummary:
		writeSummaryAnswer(&b, s)
	case TopicOverspend:
		writeOverspendAnswer(&b, s, p)
	case TopicTax:
		if err := writeTaxAnswer(&b, s, verbose); err != nil {
			return "", err
		}
	default:
		writeRateAnswer(&b, s, verbose)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func writeRateAnswer(b *strings.Builder, s snapshot, verbose bool) {
	fmt.Fprintf(b, "Your net monthly income is %s after an estimated %s in tax (class %s).\n",
		s.money(s.netMonthly), s.money(s.taxMonthly), s.class)
	fmt.Fprintf(b, "You spend %s, leaving %s per month.\n",
		s.money(s.totalExpenses), s.money(s.savings))
	if s.rateOK {
		fmt.Fprintf(b, "That is a savings rate of %.1f%%.\n", s.rate*100)
	} else {
		b.WriteString("You are currently not saving anything, so a savings rate is not defined.\n")
	}
	if verbose {
		_, steps, _ := finance.SavingsRateSteps(s.netMonthly, s.totalExpenses)
		writeSteps(b, s, steps)
	}
}

func writeSummaryAnswer(b *strings.Builder, s snapshot) {
	b.WriteString("Here is your monthly budget:\n")
	fmt.Fprintf(b, "- Gross income: %s\n", s.money(s.grossMonthly))
	fmt.Fprintf(b, "- Estimated tax (class %s): %s\n", s.class, s.money(s.taxMonthly))
	fmt.Fprintf(b, "- Net income: %s\n", s.money(s.netMonthly))
	fmt.Fprintf(b, "- Total expenses: %s\n", s.money(s.totalExpenses))
	fmt.Fprintf(b, "- Left over: %s\n", s.money(s.savings))
	if s.rateOK {
		fmt.Fprintf(b, "- Savings rate: %.1f%%\n", s.rate*100)
	}
}

func writeGoalAnswer(b *strings.Builder, s snapshot, p Profile, verbose bool) {
	if p.GoalAmount <= 0 || p.GoalMonths <= 0 {
		b.WriteString("Tell me the goal amount and the number of months, then I can work out the monthly saving you need.\n")
		return
	}
	required, err := finance.RequiredMonthlySavings(p.GoalAmount, p.GoalMonths)
	if err != nil {
		b.WriteString("Tell me the goal amount and the number of months, then I can work out the monthly saving you need.\n")
		return
	}
	fmt.Fprintf(b, "To reach %s in %d months you need to save %s per month.\n",
		s.money(p.GoalAmount), p.GoalMonths, s.money(required))
	switch {
	case s.savings >= required:
		fmt.Fprintf(b, "You currently save %s per month, so you are on track.\n", s.money(s.savings))
	case s.savings > 0:
		fmt.Fprintf(b, "You currently save %s per month, which falls short by %s.\n",
			s.money(s.savings), s.money(required-s.savings))
	default:
		b.WriteString("You are currently not saving anything, so the goal is out of reach without cutting expenses.\n")
	}
	if verbose {
		_, steps, _ := finance.RequiredMonthlySavingsSteps(p.GoalAmount, p.GoalMonths)
		writeSteps(b, s, steps)
	}
}

func writeOverspendAnswer(b *strings.Builder, s snapshot, p Profile) {
	tips := finance.OverspendingReport(p.Expenses, s.netMonthly)
	if len(tips) == 0 {
		b.WriteString("Your spending looks reasonable against the recommended shares. Nothing stands out.\n")
		return
	}
	sort.Slice(tips, func(i, j int) bool { return tips[i].Category < tips[j].Category })
	b.WriteString("These categories exceed the recommended share of your net income:\n")
	for _, tip := range tips {
		fmt.Fprintf(b, "- %s: %.0f%% of net income, guideline is %.0f%%. Try to bring it closer to the guideline.\n",
			tip.Category, tip.ActualShare*100, tip.MaxShare*100)
	}
}

func writeTaxAnswer(b *strings.Builder, s snapshot, verbose bool) error {
	fmt.Fprintf(b, "On %s gross per year you pay an estimated %s in tax (class %s), leaving %s net per month.\n",
		s.money(s.annualIncome), s.money(s.annualTax), s.class, s.money(s.netMonthly))
	byClass, err := finance.TaxByClass(s.annualIncome)
	if err != nil {
		return err
	}
	b.WriteString("Estimated annual tax by class:\n")
	for _, class := range finance.Classes {
		fmt.Fprintf(b, "- %s: %s\n", class, s.money(byClass[class]))
	}
	if verbose {
		_, steps, err := finance.EstimateTaxSteps(s.annualIncome, s.class)
		if err != nil {
			return err
		}
		writeSteps(b, s, steps)
	}
	return nil
}

func writeSteps(b *strings.Builder, s snapshot, steps []finance.Step) {
	b.WriteString("\nStep by step:\n")
	for i, step := range steps {
		switch {
		case strings.Contains(step.Label, "rate") || strings.Contains(step.Label, "factor"):
			fmt.Fprintf(b, "%d. %s: %.2f\n", i+1, step.Label, step.Value)
		case strings.Contains(step.Label, "months"):
			fmt.Fprintf(b, "%d. %s: %.0f\n", i+1, step.Label, step.Value)
		default:
			fmt.Fprintf(b, "%d. %s: %s\n", i+1, step.Label, s.money(step.Value))
		}
	}
}

// offlineReply answers a knowledge question without a generation backend.
// The reply is deterministic and keyword based.
func offlineReply(utterance string, p Profile) string {
	lower := strings.ToLower(utterance)
	switch {
	case strings.Contains(lower, "hello") || strings.Contains(lower, "hi "):
		return "Hello! I can estimate your taxes, track a savings goal, summarise your budget, and convert currencies. What would you like to know?"
	case strings.Contains(lower, "invest") || strings.Contains(lower, "etf"):
		return "I am offline right now, so I cannot look that up. As a rule of thumb, build an emergency fund of three months of expenses before investing, then prefer broad, low-cost funds."
	case strings.Contains(lower, "help") || strings.Contains(lower, "what can you"):
		return "I can answer questions about your budget, estimate German income tax by class, work out savings goals, flag overspending, and convert currencies. Ask for a step-by-step breakdown if you want the formula."
	default:
		return "I am offline right now and could not find an answer in my materials. I can still run calculations on your profile: ask about your savings rate, taxes, budget, or a savings goal."
	}
}
