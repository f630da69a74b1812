package router

import "context"

// Chain runs Primary and escalates to Secondary only when the primary verdict
// is ambiguous. With Heuristic as primary, clear destructive phrasings are
// routed without a network round trip and the model only sees the hard cases.
type Chain struct {
	Primary   Classifier
	Secondary Classifier
}

// NewChain builds the standard heuristic-then-model chain. secondary may be
// nil, in which case ambiguous verdicts stand.
func NewChain(primary, secondary Classifier) *Chain {
	return &Chain{Primary: primary, Secondary: secondary}
}

// Classify implements Classifier.
func (c *Chain) Classify(ctx context.Context, text string) Classification {
	out := c.Primary.Classify(ctx, text)
	if out.Intent != IntentAmbiguous || c.Secondary == nil {
		return out
	}
	return c.Secondary.Classify(ctx, text)
}
