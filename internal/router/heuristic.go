package router

import (
	"context"
	"strings"
	"unicode"
)

// Keyword groups, checked in order. Matching is substring-based on the
// normalized utterance; the first group that matches wins. Substring match
// is deliberate for a first-pass heuristic ("freezed", "blocking" still hit),
// with explicit negative guards where a keyword is a substring of its own
// antonym ("lock" in "unlock").
var (
	blockWords   = []string{"block", "freeze", "shut down", "shut", "lock", "disable", "kill"}
	blockGuards  = []string{"unblock", "unlock"}
	lostWords    = []string{"lost", "gone", "stolen", "misplaced", "missing"}
	unblockWords = []string{"unblock", "unlock", "reactivate", "enable"}
	disputeWords = []string{"dispute", "wrong charge", "incorrect charge", "didn't make", "did not make", "fraud", "unauthorized", "unauthorised"}
	summaryWords = []string{"balance", "due", "bill", "limit", "summary"}
	txnWords     = []string{"transactions", "transaction", "spends", "spent", "purchases", "statement"}
	rewardWords  = []string{"reward", "points", "cashback"}
	infoWords    = []string{"forex", "markup", "interest", "fee", "fees", "charges", "period", "international", "abroad", "foreign", "how", "what", "why", "when", "explain"}
)

// Heuristic is a keyword classifier. Zero value is ready to use.
type Heuristic struct{}

// Classify classifies by ordered keyword groups. Destructive intents are
// checked before informational ones so "my card is lost, what do I do"
// routes to the block action rather than the knowledge base.
func (Heuristic) Classify(_ context.Context, text string) Classification {
	t := normalize(text)

	switch {
	case containsAny(t, lostWords):
		return action("block_card", 0.9)
	case containsAny(t, blockWords) && !containsAny(t, blockGuards):
		return action("block_card", 0.9)
	case containsAny(t, unblockWords):
		return action("unblock_card", 1.0)
	case containsAny(t, disputeWords):
		return action("dispute_transaction", 1.0)
	case containsAny(t, rewardWords):
		// "my rewards" or a terse query is about the caller's account;
		// longer phrasings ("how do reward categories work") are knowledge
		// questions.
		if strings.Contains(t, "my") || len(strings.Fields(t)) <= 3 {
			return action("get_rewards_summary", 0.9)
		}
		return Classification{Intent: IntentInfo, Confidence: 0.9}
	case containsAny(t, summaryWords):
		if strings.Contains(t, "my") || len(strings.Fields(t)) <= 4 {
			return action("get_account_summary", 0.9)
		}
		return Classification{Intent: IntentInfo, Confidence: 0.9}
	case containsAny(t, txnWords):
		return action("get_recent_transactions", 0.9)
	case containsAny(t, infoWords):
		return Classification{Intent: IntentInfo, Confidence: 0.9}
	default:
		return Classification{Intent: IntentAmbiguous, Confidence: 0.5}
	}
}

func action(name string, confidence float64) Classification {
	return Classification{Intent: IntentAction, ActionType: name, Confidence: confidence}
}

func containsAny(t string, words []string) bool {
	for _, w := range words {
		if strings.Contains(t, w) {
			return true
		}
	}
	return false
}

var quoteReplacer = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", `"`, "”", `"`,
)

// normalize lowercases, folds smart quotes to ASCII and strips punctuation,
// keeping spaces so multi-word keywords still match.
func normalize(s string) string {
	s = strings.ToLower(quoteReplacer.Replace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
