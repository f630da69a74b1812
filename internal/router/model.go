package router

import (
	"context"
	"encoding/json"
	"regexp"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/onecard/assistant/internal/log"
	"github.com/onecard/assistant/internal/tools"
)

// systemPrompt constrains the model to a single strict JSON object. The
// examples pin the output shape; anything else is rejected by the parser
// and degraded to ambiguous.
const systemPrompt = `You classify a credit-card customer's message.

Respond with ONLY a JSON object, no prose, no code fences:
{"intent": "action" | "info" | "ambiguous", "action_type": <string or null>, "confidence": <0.0-1.0>}

Valid action_type values: get_account_summary, get_recent_transactions,
get_rewards_summary, block_card, unblock_card, dispute_transaction.
Use "action" only when the user wants one of those performed on their own
account. Use "info" for general product or policy questions. Use "ambiguous"
when unsure, with low confidence.

Examples:
User: I lost my card yesterday
{"intent": "action", "action_type": "block_card", "confidence": 0.95}
User: what is the forex markup on international spends
{"intent": "info", "action_type": null, "confidence": 0.9}
User: hmm
{"intent": "ambiguous", "action_type": null, "confidence": 0.4}`

// jsonObject grabs the outermost brace-delimited span so a model that wraps
// its answer in prose or fences still parses.
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// Model classifies with a generation call. Every failure mode — breaker
// open, rate limit, timeout, generation error, malformed output — returns
// Ambiguous(); Classify never errors and never panics the turn.
type Model struct {
	g         *genkit.Genkit
	modelName string
	timeout   time.Duration
	limiter   *rate.Limiter
	breaker   *Breaker
	logger    log.Logger
}

// NewModel builds a model classifier. timeout bounds each generation call.
func NewModel(g *genkit.Genkit, modelName string, timeout time.Duration, logger log.Logger) *Model {
	return &Model{
		g:         g,
		modelName: modelName,
		timeout:   timeout,
		limiter:   rate.NewLimiter(rate.Limit(5), 10),
		breaker:   NewBreaker(0, 0, 0),
		logger:    logger,
	}
}

// Classify sends the utterance to the model and parses its JSON verdict.
func (m *Model) Classify(ctx context.Context, text string) Classification {
	if err := m.breaker.Allow(); err != nil {
		m.logger.Warn("classifier breaker open, degrading to ambiguous")
		return Ambiguous()
	}
	if !m.limiter.Allow() {
		m.logger.Warn("classifier rate limited, degrading to ambiguous")
		return Ambiguous()
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	resp, err := genkit.Generate(ctx, m.g,
		ai.WithModelName(m.modelName),
		ai.WithSystem(systemPrompt),
		ai.WithPrompt(text),
	)
	if err != nil {
		m.breaker.Failure()
		m.logger.Warn("classification call failed", "error", err)
		return Ambiguous()
	}
	m.breaker.Success()

	c, ok := parseClassification(resp.Text())
	if !ok {
		m.logger.Warn("unparseable classification output", "output", resp.Text())
		return Ambiguous()
	}
	return c
}

// parseClassification validates the model output. Unknown intents and
// action types, and confidences outside [0, 1], are rejected rather than
// repaired — a misrouted destructive action is worse than an ambiguous turn.
func parseClassification(raw string) (Classification, bool) {
	span := jsonObject.FindString(raw)
	if span == "" {
		return Classification{}, false
	}

	var out struct {
		Intent     string   `json:"intent"`
		ActionType *string  `json:"action_type"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(span), &out); err != nil {
		return Classification{}, false
	}
	if out.Confidence == nil || *out.Confidence < 0 || *out.Confidence > 1 {
		return Classification{}, false
	}

	c := Classification{Confidence: *out.Confidence}
	switch Intent(out.Intent) {
	case IntentAction:
		if out.ActionType == nil {
			return Classification{}, false
		}
		if _, ok := tools.ParseAction(*out.ActionType); !ok {
			return Classification{}, false
		}
		c.Intent = IntentAction
		c.ActionType = *out.ActionType
	case IntentInfo, IntentAmbiguous:
		c.Intent = Intent(out.Intent)
	default:
		return Classification{}, false
	}
	return c, true
}
