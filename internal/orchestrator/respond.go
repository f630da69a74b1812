package orchestrator

import (
	"encoding/json"
	"fmt"

	"github.com/onecard/assistant/internal/retrieval"
	"github.com/onecard/assistant/internal/tools"
)

// User-facing message templates. The gateway composes deterministic replies;
// no generated text reaches the user on the action path.
const (
	msgOTPPrompt = "For your security, a 6-digit OTP is required to complete this. " +
		"Please enter the code sent to your registered mobile number."
	msgTooManyAttempts = "Too many incorrect attempts. The request has been cancelled for your security."
	msgCancelled       = "Okay, I've cancelled the request."
	msgClarify         = "I can help with your account summary, recent transactions, rewards, " +
		"blocking or unblocking your card, and disputing a charge. What would you like to do?"
	msgNoAnswer    = "I couldn't find anything on that in the knowledge base. Could you rephrase?"
	msgActionError = "Sorry, that didn't go through. Please try again in a moment."
)

// confirmPrompts describe each confirmable action in user terms.
var confirmPrompts = map[tools.Action]string{
	tools.ActionBlockCard:          "block your card",
	tools.ActionUnblockCard:        "unblock your card",
	tools.ActionDisputeTransaction: "raise a dispute on your most recent transaction",
}

func confirmPrompt(act tools.Action, userID string) string {
	desc, ok := confirmPrompts[act]
	if !ok {
		desc = "proceed"
	}
	return fmt.Sprintf("You've asked me to %s (account %s). Please reply YES to confirm.", desc, userID)
}

func invalidOTPMsg(attemptsLeft int) string {
	return fmt.Sprintf("Invalid OTP. Attempts left: %d", attemptsLeft)
}

// renderResult renders a tool outcome as its message plus the structured
// output in a fenced JSON block, so both humans and calling UIs can consume
// it.
func renderResult(res tools.Result) string {
	view := struct {
		Status  string `json:"status"`
		Message string `json:"message,omitempty"`
		Reason  string `json:"reason,omitempty"`
		Payload any    `json:"payload,omitempty"`
	}{res.Status, res.Message, res.Reason, res.Payload}

	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return res.Message
	}
	return fmt.Sprintf("%s\n\n```json\n%s\n```", res.Message, data)
}

// renderPassage renders the top retrieval hit with its provenance.
func renderPassage(p retrieval.Passage) string {
	return fmt.Sprintf("%s\n\n%s", p.Text, renderCitation(p))
}

// renderCitation keeps provenance attached even when the passage text is
// rewritten by a model.
func renderCitation(p retrieval.Passage) string {
	return fmt.Sprintf("(Source: %s, line %d)", p.Source, p.LineNo)
}
