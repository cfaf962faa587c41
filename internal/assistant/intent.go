package assistant

import (
	"regexp"
	"strconv"
	"strings"
)

// Intent is the coarse answer route for an utterance.
type Intent string

const (
	IntentConvert   Intent = "convert"
	IntentCalculate Intent = "calculate"
	IntentKnowledge Intent = "knowledge"
)

// CalcTopic is the calculator sub-route, mirroring the rule assistant's
// original question families.
type CalcTopic string

const (
	TopicGoal      CalcTopic = "goal"
	TopicSummary   CalcTopic = "summary"
	TopicOverspend CalcTopic = "overspend"
	TopicTax       CalcTopic = "tax"
	TopicRate      CalcTopic = "rate"
)

// intentRule pairs a predicate with its route. Rules are evaluated in fixed
// order; the first match wins, so priority stays auditable in one place.
// The conversion rule precedes the general calculation rule because every
// conversion utterance also carries calculation markers (numbers, currency
// codes) while the reverse does not hold.
type intentRule struct {
	intent Intent
	match  func(lower string) bool
}

var intentRules = []intentRule{
	{IntentConvert, hasConversionMarkers},
	{IntentCalculate, hasCalculationMarkers},
	{IntentKnowledge, func(string) bool { return true }},
}

// Classify routes an utterance through the ordered decision table.
func Classify(utterance string) Intent {
	lower := strings.ToLower(utterance)
	for _, r := range intentRules {
		if r.match(lower) {
			return r.intent
		}
	}
	return IntentKnowledge
}

var currencyCodes = []string{"EUR", "USD", "GBP", "INR", "JPY", "CHF"}

var (
	numberPattern     = regexp.MustCompile(`\d`)
	conversionPattern = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)\s*([A-Z]{3})\s*(?:to|in|into)\s*([A-Z]{3})\b`)
)

func hasConversionMarkers(lower string) bool {
	if strings.Contains(lower, "convert") || strings.Contains(lower, "exchange rate") {
		return true
	}
	return countCurrencyCodes(lower) >= 2
}

func countCurrencyCodes(lower string) int {
	n := 0
	for _, code := range currencyCodes {
		if containsWord(lower, strings.ToLower(code)) {
			n++
		}
	}
	return n
}

var calcKeywords = []string{
	"tax", "steuer", "net income", "savings", "save", "goal",
	"budget", "summary", "overview", "overspend", "reduce", "improve",
	"expense", "afford", "income",
}

func hasCalculationMarkers(lower string) bool {
	if strings.ContainsAny(lower, "€$£₹%") {
		return true
	}
	for _, kw := range calcKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return numberPattern.MatchString(lower)
}

// ClassifyCalcTopic picks the calculator question family, again first match
// wins in fixed order.
func ClassifyCalcTopic(utterance string) CalcTopic {
	lower := strings.ToLower(utterance)
	switch {
	case strings.Contains(lower, "goal") ||
		(strings.Contains(lower, "save") && strings.Contains(lower, "month")):
		return TopicGoal
	case strings.Contains(lower, "summary") || strings.Contains(lower, "budget") ||
		strings.Contains(lower, "overview"):
		return TopicSummary
	case strings.Contains(lower, "reduce") || strings.Contains(lower, "overspend") ||
		strings.Contains(lower, "improve"):
		return TopicOverspend
	case strings.Contains(lower, "tax") || strings.Contains(lower, "steuer") ||
		strings.Contains(lower, "class"):
		return TopicTax
	default:
		return TopicRate
	}
}

var detailPhrases = []string{
	"show the calculation",
	"show calculation",
	"calculate step by step",
	"step by step",
	"explain in detail",
	"why is that",
	"how did you get",
	"formula",
}

// wantsDetail reports whether the user explicitly asked for the verbose
// step-by-step breakdown.
func wantsDetail(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, p := range detailPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// parseConversion extracts amount, base and quote from a conversion request.
func parseConversion(utterance string) (amount float64, base, quote string, ok bool) {
	m := conversionPattern.FindStringSubmatch(utterance)
	if m == nil {
		return 0, "", "", false
	}
	amount, ok = parseAmount(m[1])
	if !ok {
		return 0, "", "", false
	}
	return amount, strings.ToUpper(m[2]), strings.ToUpper(m[3]), true
}

func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func containsWord(haystack, word string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isAlpha(haystack[start-1])
		afterOK := end == len(haystack) || !isAlpha(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = end
	}
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
