// Package router classifies raw user utterances into intents.
//
// Two interchangeable strategies implement Classifier: Heuristic (ordered
// keyword groups, fully offline) and Model (generation-backed with strict
// JSON output). Both are total functions — classification can degrade to the
// ambiguous intent but can never fail the turn. The model path is the only
// place the turn pipeline touches the network, so it carries its own circuit
// breaker, rate limiter and timeout; any trip collapses to the same
// low-confidence ambiguous result.
package router

import "context"

// Intent is the coarse classification of an utterance.
type Intent string

// Intents.
const (
	IntentAction    Intent = "action"
	IntentInfo      Intent = "info"
	IntentAmbiguous Intent = "ambiguous"
)

// Classification is the result of classifying one utterance. It lives for
// one turn only, except when the orchestrator stores the action type as a
// pending action.
type Classification struct {
	Intent     Intent  `json:"intent"`
	ActionType string  `json:"action_type,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Classifier classifies an utterance. Implementations never return an error;
// failures degrade to IntentAmbiguous with low confidence.
type Classifier interface {
	Classify(ctx context.Context, text string) Classification
}

// Ambiguous is the shared degraded result for classification failures.
// Confidence 0.3 marks it as a fallback rather than a genuine "unsure" (0.5).
func Ambiguous() Classification {
	return Classification{Intent: IntentAmbiguous, Confidence: 0.3}
}
