package assistant

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		utterance string
		want      Intent
	}{
		{"convert 100 EUR to USD", IntentConvert},
		{"what is the exchange rate between eur and gbp", IntentConvert},
		{"how much is 50 usd in inr", IntentConvert},
		{"what is my savings rate", IntentCalculate},
		{"how much tax do I pay", IntentCalculate},
		{"give me a budget summary", IntentCalculate},
		{"can I save 5000 in 12 months", IntentCalculate},
		{"where should I reduce spending?", IntentCalculate},
		{"what does the guide say about ETFs", IntentKnowledge},
		{"is an emergency fund worth it", IntentKnowledge},
	}
	for _, c := range cases {
		if got := Classify(c.utterance); got != c.want {
			t.Errorf("Classify(%q) = %v, want %v", c.utterance, got, c.want)
		}
	}
}

func TestConversionBeatsCalculation(t *testing.T) {
	// A conversion request carries calculation markers too; the conversion
	// rule must win because it is evaluated first.
	if got := Classify("convert 100 EUR to USD"); got != IntentConvert {
		t.Fatalf("Classify = %v, want %v", got, IntentConvert)
	}
}

func TestClassifyCalcTopic(t *testing.T) {
	cases := []struct {
		utterance string
		want      CalcTopic
	}{
		{"can I reach my savings goal", TopicGoal},
		{"give me a budget summary", TopicSummary},
		{"where should I reduce spending", TopicOverspend},
		{"how much tax do I pay", TopicTax},
		{"what is my savings rate", TopicRate},
	}
	for _, c := range cases {
		if got := ClassifyCalcTopic(c.utterance); got != c.want {
			t.Errorf("ClassifyCalcTopic(%q) = %v, want %v", c.utterance, got, c.want)
		}
	}
}

func TestWantsDetail(t *testing.T) {
	if !wantsDetail("show me the tax calculation step by step") {
		t.Error("step by step request not detected")
	}
	if !wantsDetail("how did you get that number?") {
		t.Error("how-did-you-get request not detected")
	}
	if wantsDetail("what is my savings rate") {
		t.Error("plain question flagged as detail request")
	}
}

func TestParseConversion(t *testing.T) {
	amount, base, quote, ok := parseConversion("please convert 120.50 eur to usd for me")
	if !ok {
		t.Fatal("parseConversion failed")
	}
	if amount != 120.50 || base != "EUR" || quote != "USD" {
		t.Fatalf("parseConversion = %v %s/%s", amount, base, quote)
	}
	if _, _, _, ok := parseConversion("convert my savings"); ok {
		t.Fatal("parseConversion accepted utterance without amount and codes")
	}
}
