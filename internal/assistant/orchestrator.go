package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sajjadurrahman1/Wealth-Navigator/internal/finance"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/fx"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/genai"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/observability"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/retrieval"
	"github.com/sajjadurrahman1/Wealth-Navigator/internal/store"
)

// Request lifecycle stages, recorded as counter transitions.
const (
	StageReceived     = "received"
	StageClassified   = "classified"
	StageCalculating  = "calculating"
	StageRetrieving   = "retrieving"
	StageGenerating   = "generating"
	StageRuleFallback = "rule_fallback"
	StageValidating   = "validating"
	StageStored       = "stored"
	StageFailed       = "failed"
)

const unableReply = "I was unable to process that request. Please try again."

// Options tunes orchestration behavior. Zero values disable the
// corresponding limit.
type Options struct {
	RetrievalTopK     int
	RetrievalMinScore float64
	BackendTimeout    time.Duration
	HistoryWindow     int
}

// Orchestrator routes each utterance to the cheapest strategy that can
// answer it and appends the resulting turn pair to the conversation store.
// Every dependency except the store may be absent; the orchestrator degrades
// instead of failing.
type Orchestrator struct {
	store    store.Store
	index    *retrieval.Index
	backend  genai.Backend
	embedder genai.Embedder
	rates    *fx.Lookup
	metrics  *observability.Metrics
	opts     Options

	mu    sync.Mutex
	locks map[string]*conversationLock
}

// conversationLock serializes Handle calls for one conversation. refs counts
// current holders and waiters so the entry can be dropped once idle.
type conversationLock struct {
	mu   sync.Mutex
	refs int
}

func New(st store.Store, index *retrieval.Index, backend genai.Backend, embedder genai.Embedder, rates *fx.Lookup, metrics *observability.Metrics, opts Options) *Orchestrator {
	if opts.RetrievalTopK <= 0 {
		opts.RetrievalTopK = 5
	}
	if opts.BackendTimeout <= 0 {
		opts.BackendTimeout = 20 * time.Second
	}
	return &Orchestrator{
		store:    st,
		index:    index,
		backend:  backend,
		embedder: embedder,
		rates:    rates,
		metrics:  metrics,
		opts:     opts,
		locks:    make(map[string]*conversationLock),
	}
}

// Capabilities reports which answer strategies are currently available.
type Capabilities struct {
	Generation bool `json:"generation"`
	Retrieval  bool `json:"retrieval"`
	LiveRates  bool `json:"live_rates"`
}

func (o *Orchestrator) Capabilities() Capabilities {
	return Capabilities{
		Generation: o.backend != nil,
		Retrieval:  o.backend != nil && o.embedder != nil && o.index != nil && o.index.Len() > 0,
		LiveRates:  o.rates != nil,
	}
}

// Handle answers one utterance. On success both the user turn and the
// assistant turn have been appended, in that order, with no turn from another
// request in between. On error nothing was appended.
func (o *Orchestrator) Handle(ctx context.Context, conversationID, utterance string, profile Profile) (store.Message, error) {
	o.metrics.ObserveStage(StageReceived)

	unlock := o.lockConversation(conversationID)
	defer unlock()

	history, err := o.store.ListMessages(ctx, conversationID)
	if err != nil {
		o.metrics.ObserveStage(StageFailed)
		return store.Message{}, fmt.Errorf("load history: %w", err)
	}

	intent := Classify(utterance)
	o.metrics.RequestsByIntent.WithLabelValues(string(intent)).Inc()
	o.metrics.ObserveStage(StageClassified)

	answer := o.compose(ctx, intent, utterance, profile, history)
	o.metrics.ObserveStage(StageValidating)

	if ctx.Err() != nil {
		o.metrics.ObserveStage(StageFailed)
		return store.Message{}, ctx.Err()
	}

	userTurn := store.Message{
		ConversationID: conversationID,
		Role:           store.RoleUser,
		Text:           utterance,
	}
	if _, err := o.store.AppendMessage(ctx, userTurn); err != nil {
		o.metrics.ObserveStage(StageFailed)
		return store.Message{}, fmt.Errorf("append user turn: %w", err)
	}

	answer.ConversationID = conversationID
	answer.Role = store.RoleAssistant
	stored, err := o.store.AppendMessage(ctx, answer)
	if err != nil {
		o.metrics.ObserveStage(StageFailed)
		return store.Message{}, fmt.Errorf("append assistant turn: %w", err)
	}

	o.metrics.AnswersByProducer.WithLabelValues(stored.Produced).Inc()
	o.metrics.ObserveStage(StageStored)
	return stored, nil
}

// compose builds the assistant turn. It never returns an error: any failure
// downgrades to a cheaper strategy, and a panic becomes a deterministic
// error reply.
func (o *Orchestrator) compose(ctx context.Context, intent Intent, utterance string, profile Profile, history []store.Message) (msg store.Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("assistant: recovered while composing answer: %v", r)
			o.metrics.Fallbacks.WithLabelValues("panic").Inc()
			msg = store.Message{Text: unableReply, Produced: store.ProducedError}
		}
	}()

	switch intent {
	case IntentConvert:
		return o.convert(ctx, utterance)
	case IntentCalculate:
		return o.calculate(utterance, profile)
	default:
		return o.answerKnowledge(ctx, utterance, profile, history)
	}
}

func (o *Orchestrator) convert(ctx context.Context, utterance string) store.Message {
	o.metrics.ObserveStage(StageCalculating)
	amount, base, quote, ok := parseConversion(utterance)
	if !ok {
		return store.Message{
			Text:     "Tell me the amount and both currencies, for example: convert 100 EUR to USD.",
			Produced: store.ProducedTemplate,
		}
	}
	if o.rates == nil {
		return store.Message{
			Text:     "Currency conversion is not available right now.",
			Produced: store.ProducedTemplate,
		}
	}
	rate, err := o.rates.Rate(ctx, base, quote)
	if errors.Is(err, fx.ErrUnsupportedPair) {
		return store.Message{
			Text:     fmt.Sprintf("I cannot convert %s to %s. I know %s.", base, quote, strings.Join(currencyCodes, ", ")),
			Produced: store.ProducedTemplate,
		}
	}
	if err != nil {
		return store.Message{Text: unableReply, Produced: store.ProducedError}
	}
	text := fmt.Sprintf("%.2f %s is %.2f %s (rate %.4f).", amount, base, amount*rate.Value, quote, rate.Value)
	if rate.Fallback {
		o.metrics.Fallbacks.WithLabelValues("fx_unavailable").Inc()
		text += " Live rates are unavailable, so this uses an approximate stored rate."
	}
	return store.Message{Text: text, Produced: store.ProducedCalculator, FallbackRate: rate.Fallback}
}

func (o *Orchestrator) calculate(utterance string, profile Profile) store.Message {
	o.metrics.ObserveStage(StageCalculating)
	topic := ClassifyCalcTopic(utterance)
	text, err := calculatorAnswer(topic, profile, wantsDetail(utterance))
	if errors.Is(err, finance.ErrInvalidInput) {
		return store.Message{
			Text:     "Some of your profile numbers do not add up. Check your income, expenses and tax class, then ask again.",
			Produced: store.ProducedCalculator,
		}
	}
	if err != nil {
		return store.Message{Text: unableReply, Produced: store.ProducedError}
	}
	return store.Message{Text: text, Produced: store.ProducedCalculator}
}

func (o *Orchestrator) answerKnowledge(ctx context.Context, utterance string, profile Profile, history []store.Message) store.Message {
	if o.backend == nil {
		o.metrics.ObserveStage(StageRuleFallback)
		o.metrics.Fallbacks.WithLabelValues("backend_offline").Inc()
		return store.Message{Text: offlineReply(utterance, profile), Produced: store.ProducedTemplate}
	}

	chunks := o.retrieve(ctx, utterance)

	o.metrics.ObserveStage(StageGenerating)
	req := genai.Request{
		System:    systemPrompt(profile),
		History:   historyWindow(history, o.opts.HistoryWindow),
		Grounding: groundingBlock(chunks),
		UserText:  utterance,
	}
	cctx, cancel := context.WithTimeout(ctx, o.opts.BackendTimeout)
	defer cancel()
	start := time.Now()
	text, err := o.backend.Complete(cctx, req)
	o.metrics.ObserveBackendLatency(time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			return store.Message{Text: unableReply, Produced: store.ProducedError}
		}
		log.Printf("assistant: generation backend failed: %v", err)
		o.metrics.ProviderErrors.WithLabelValues("openai", "complete").Inc()
		o.metrics.ObserveStage(StageRuleFallback)
		o.metrics.Fallbacks.WithLabelValues("backend_error").Inc()
		return store.Message{Text: offlineReply(utterance, profile), Produced: store.ProducedTemplate}
	}

	clean, citations, violations := validateCitations(text, chunks)
	if violations > 0 {
		log.Printf("assistant: removed %d citations not in the retrieved set", violations)
		o.metrics.GuardrailViolations.Add(float64(violations))
	}
	produced := store.ProducedBackend
	if len(chunks) > 0 {
		produced = store.ProducedBackendGrounded
	}
	return store.Message{Text: clean, Citations: citations, Produced: produced}
}

// retrieve returns the chunks to ground the answer on, or nil for a miss.
// Every failure mode here is a miss, never an error: the question is still
// answerable ungrounded.
func (o *Orchestrator) retrieve(ctx context.Context, utterance string) []retrieval.Chunk {
	if o.index == nil || o.index.Len() == 0 || o.embedder == nil {
		return nil
	}
	o.metrics.ObserveStage(StageRetrieving)
	vec, err := o.embedder.Embed(ctx, utterance)
	if err != nil {
		log.Printf("assistant: query embedding failed: %v", err)
		o.metrics.ProviderErrors.WithLabelValues("openai", "embed").Inc()
		return nil
	}
	chunks := o.index.Search(vec, o.opts.RetrievalTopK)
	kept := chunks[:0]
	for _, c := range chunks {
		if c.Score >= o.opts.RetrievalMinScore {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func systemPrompt(p Profile) string {
	var b strings.Builder
	b.WriteString("You are a careful personal finance assistant. Keep answers short and concrete. ")
	b.WriteString("Never state a number you cannot derive from the conversation or the provided excerpts.")
	if p.MonthlyIncome > 0 {
		if s, err := buildSnapshot(p); err == nil {
			fmt.Fprintf(&b, "\nUser profile: gross income %s per month, estimated net %s per month (tax class %s), total expenses %s per month.",
				s.money(s.grossMonthly), s.money(s.netMonthly), s.class, s.money(s.totalExpenses))
			if len(p.Expenses) > 0 {
				fmt.Fprintf(&b, " Expenses: %s.", expenseList(p.Expenses, s))
			}
		}
	}
	return b.String()
}

func expenseList(expenses map[string]float64, s snapshot) string {
	cats := make([]string, 0, len(expenses))
	for c := range expenses {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	parts := make([]string, 0, len(cats))
	for _, c := range cats {
		parts = append(parts, fmt.Sprintf("%s %s", c, s.money(expenses[c])))
	}
	return strings.Join(parts, ", ")
}

func groundingBlock(chunks []retrieval.Chunk) string {
	if len(chunks) == 0 {
		return "No reference material matched this question. Answer from general knowledge, do not cite any source, and say so when you are unsure."
	}
	var b strings.Builder
	b.WriteString("Answer using only the excerpts below. Cite each fact with the marker of its excerpt, exactly as written. Do not cite anything else.\n")
	for _, c := range chunks {
		fmt.Fprintf(&b, "\n[%s p.%d]\n%s\n", c.Document, c.Page, c.Text)
	}
	return b.String()
}

func historyWindow(history []store.Message, n int) []genai.Turn {
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	turns := make([]genai.Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, genai.Turn{Role: m.Role, Text: m.Text})
	}
	return turns
}

func (o *Orchestrator) lockConversation(id string) func() {
	o.mu.Lock()
	l, ok := o.locks[id]
	if !ok {
		l = &conversationLock{}
		o.locks[id] = l
	}
	l.refs++
	o.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		o.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(o.locks, id)
		}
		o.mu.Unlock()
	}
}

// lockCount reports the number of live conversation lock entries.
func (o *Orchestrator) lockCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.locks)
}
