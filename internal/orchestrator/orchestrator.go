// Package orchestrator is the turn engine: it routes each user message
// through session-state resumption, intent classification, confirmation and
// OTP gates, and finally tool execution or knowledge retrieval.
//
// The engine itself is stateless; everything a conversation needs to resume
// lives in session.State, which the caller passes in and the engine mutates.
// HandleTurn is total: every internal failure degrades to a user-facing
// message rather than an error, because a stuck session is worse than a
// degraded answer.
package orchestrator

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/onecard/assistant/internal/audit"
	"github.com/onecard/assistant/internal/log"
	"github.com/onecard/assistant/internal/retrieval"
	"github.com/onecard/assistant/internal/router"
	"github.com/onecard/assistant/internal/session"
	"github.com/onecard/assistant/internal/tools"
)

// Executor runs one bound operation.
type Executor interface {
	Execute(ctx context.Context, inv tools.Invocation) tools.Result
}

// Retriever answers knowledge-base queries.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]retrieval.Passage, error)
}

// Rewriter turns a retrieved passage into a natural-language answer. It is
// optional; without one the passage text is returned verbatim.
type Rewriter interface {
	Rewrite(ctx context.Context, question, passage string) (string, error)
}

// TurnResult is the outcome of one turn.
type TurnResult struct {
	ResponseText string         `json:"response_text"`
	ToolResult   *tools.Result  `json:"tool_output,omitempty"`
	Debug        map[string]any `json:"debug_info"`
}

// Orchestrator drives the per-turn state machine.
type Orchestrator struct {
	classifier     router.Classifier
	retriever      Retriever
	executor       Executor
	audit          audit.Logger
	logger         log.Logger
	otpCode        string
	otpMaxAttempts int
	rewriter       Rewriter
}

// Option configures optional Orchestrator collaborators.
type Option func(*Orchestrator)

// WithRewriter makes knowledge answers pass through a model rewrite, with
// the raw passage as fallback.
func WithRewriter(r Rewriter) Option {
	return func(o *Orchestrator) { o.rewriter = r }
}

// New creates an Orchestrator. auditLog may be audit.Nop{} when auditing is
// disabled; classifier, retriever and executor are required.
func New(classifier router.Classifier, retriever Retriever, executor Executor,
	auditLog audit.Logger, logger log.Logger, otpCode string, otpMaxAttempts int,
	opts ...Option) *Orchestrator {
	if otpMaxAttempts <= 0 {
		otpMaxAttempts = 3
	}
	if logger == nil {
		logger = log.NewNop()
	}
	o := &Orchestrator{
		classifier:     classifier,
		retriever:      retriever,
		executor:       executor,
		audit:          auditLog,
		logger:         logger,
		otpCode:        otpCode,
		otpMaxAttempts: otpMaxAttempts,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

var sixDigits = regexp.MustCompile(`^\d{6}$`)

// HandleTurn processes one user message against the session state.
// Resumption has strict priority over classification: a session awaiting an
// OTP interprets the message as an OTP entry or a cancellation, and a
// session with a pending action interprets it as a confirmation —
// classification only runs from the idle state.
func (o *Orchestrator) HandleTurn(ctx context.Context, userID, message string, st *session.State) TurnResult {
	// confirmation_checked/_result are present on every turn so consumers
	// can rely on the keys; the confirmation handler overwrites them.
	debug := map[string]any{
		"confirmation_checked": false,
		"confirmation_result":  nil,
	}

	switch {
	case st.AwaitingOTP:
		return o.handleOTP(ctx, userID, message, st, debug)
	case st.PendingAction != nil:
		return o.handleConfirmation(ctx, userID, message, st, debug)
	default:
		return o.handleNewRequest(ctx, userID, message, st, debug)
	}
}

func (o *Orchestrator) handleOTP(ctx context.Context, userID, message string, st *session.State, debug map[string]any) TurnResult {
	pending := st.PendingAction
	debug["pending_action"] = pending.ActionType
	entry := strings.TrimSpace(message)

	// Anything that is not a code is read as the user backing out.
	if !sixDigits.MatchString(entry) {
		o.appendCancellation(userID, pending, audit.ReasonUserDeclined, true)
		st.Clear()
		return TurnResult{ResponseText: msgCancelled, Debug: debug}
	}

	if entry != o.otpCode {
		pending.OTPAttempts++
		debug["otp_attempts"] = pending.OTPAttempts
		if pending.OTPAttempts >= o.otpMaxAttempts {
			o.appendCancellation(userID, pending, audit.ReasonTooManyAttempts, false)
			st.Clear()
			return TurnResult{ResponseText: msgTooManyAttempts, Debug: debug}
		}
		return TurnResult{ResponseText: invalidOTPMsg(o.otpMaxAttempts - pending.OTPAttempts), Debug: debug}
	}

	pending.OTPAttempts++
	return o.executePending(ctx, userID, entry, st, debug)
}

func (o *Orchestrator) handleConfirmation(ctx context.Context, userID, message string, st *session.State, debug map[string]any) TurnResult {
	pending := st.PendingAction
	debug["pending_action"] = pending.ActionType
	debug["confirmation_checked"] = true

	// Only an explicit YES proceeds; anything else cancels. A lenient match
	// here would turn "yes, but wait" into an irreversible action.
	if !strings.EqualFold(strings.TrimSpace(message), "yes") {
		debug["confirmation_result"] = "cancelled"
		o.appendCancellation(userID, pending, audit.ReasonUserDeclined, st.AwaitingOTP)
		st.Clear()
		return TurnResult{ResponseText: msgCancelled, Debug: debug}
	}
	debug["confirmation_result"] = "accepted"

	if pending.RequiresOTP {
		st.AwaitingOTP = true
		return TurnResult{ResponseText: msgOTPPrompt, Debug: debug}
	}
	return o.executePending(ctx, userID, "", st, debug)
}

// executePending runs the pending action and clears the state regardless of
// outcome. Leaving the pending action in place after a failed execution
// would re-run it on the user's next unrelated message.
func (o *Orchestrator) executePending(ctx context.Context, userID, otp string, st *session.State, debug map[string]any) TurnResult {
	pending := st.PendingAction
	act, ok := tools.ParseAction(pending.ActionType)
	st.Clear()
	if !ok {
		o.logger.Error("pending action no longer parseable", "action", pending.ActionType)
		return TurnResult{ResponseText: msgActionError, Debug: debug}
	}

	res := o.executor.Execute(ctx, o.buildInvocation(act, userID, otp))
	o.appendAudit(res, otp != "", pending.OTPAttempts)
	debug["tool_status"] = res.Status

	text := renderResult(res)
	if !res.OK() {
		text = msgActionError + "\n\n" + renderResult(res)
	}
	return TurnResult{ResponseText: text, ToolResult: &res, Debug: debug}
}

func (o *Orchestrator) handleNewRequest(ctx context.Context, userID, message string, st *session.State, debug map[string]any) TurnResult {
	c := o.classifier.Classify(ctx, message)
	debug["classification"] = c

	switch c.Intent {
	case router.IntentAction:
		act, ok := tools.ParseAction(c.ActionType)
		if !ok {
			o.logger.Warn("classifier produced unknown action", "action_type", c.ActionType)
			return TurnResult{ResponseText: msgClarify, Debug: debug}
		}

		if act.ReadOnly() {
			res := o.executor.Execute(ctx, o.buildInvocation(act, userID, ""))
			debug["tool_status"] = res.Status
			return TurnResult{ResponseText: renderResult(res), ToolResult: &res, Debug: debug}
		}

		st.PendingAction = &session.PendingAction{
			ActionType:  act.String(),
			RequiresOTP: act.RequiresOTP(),
		}
		debug["pending_action"] = act.String()
		return TurnResult{ResponseText: confirmPrompt(act, userID), Debug: debug}

	case router.IntentInfo:
		return o.handleInfo(ctx, message, debug)

	default:
		return TurnResult{ResponseText: msgClarify, Debug: debug}
	}
}

func (o *Orchestrator) handleInfo(ctx context.Context, message string, debug map[string]any) TurnResult {
	passages, err := o.retriever.Search(ctx, message, 0)
	if err != nil {
		o.logger.Error("retrieval failed", "error", err)
		return TurnResult{ResponseText: msgNoAnswer, Debug: debug}
	}
	if len(passages) == 0 {
		return TurnResult{ResponseText: msgNoAnswer, Debug: debug}
	}

	top := passages[0]
	debug["retrieval_score"] = top.Score
	if top.Fallback != "" {
		debug["retrieval_fallback"] = top.Fallback
	}

	text := renderPassage(top)
	if o.rewriter != nil {
		rewritten, err := o.rewriter.Rewrite(ctx, message, top.Text)
		if err != nil {
			o.logger.Warn("answer rewrite failed, returning passage text", "error", err)
		} else {
			debug["answer_rewritten"] = true
			text = rewritten + "\n\n" + renderCitation(top)
		}
	}
	return TurnResult{ResponseText: text, Debug: debug}
}

// buildInvocation is the argument binding table. The host-asserted userID is
// bound into every call; user text never reaches an argument directly.
func (o *Orchestrator) buildInvocation(act tools.Action, userID, otp string) tools.Invocation {
	inv := tools.Invocation{Action: act}
	switch act {
	case tools.ActionGetAccountSummary, tools.ActionGetRewardsSummary:
		inv.Summary = tools.SummaryArgs{UserID: userID}
	case tools.ActionGetRecentTransactions:
		inv.Transactions = tools.TransactionsArgs{UserID: userID, N: 5}
	case tools.ActionBlockCard:
		inv.Block = tools.BlockCardArgs{UserID: userID, Reason: "User Request"}
	case tools.ActionUnblockCard:
		inv.Unblock = tools.UnblockCardArgs{UserID: userID, OTP: otp}
	case tools.ActionDisputeTransaction:
		inv.Dispute = tools.DisputeArgs{UserID: userID, Reason: "User Request"}
	}
	return inv
}

// appendAudit enriches a tool-produced audit event with the verification
// trail and appends it. Audit writes never fail the turn.
func (o *Orchestrator) appendAudit(res tools.Result, otpVerified bool, otpAttempts int) {
	if res.Audit == nil {
		return
	}
	if otpVerified {
		v := true
		res.Audit.OTPVerified = &v
		res.Audit.OTPAttempts = &otpAttempts
	}
	if err := o.audit.Append(*res.Audit); err != nil {
		o.logger.Error("audit append failed", "action", res.Audit.Action, "error", err)
	}
}

// appendCancellation records a declined or aborted action.
func (o *Orchestrator) appendCancellation(userID string, pending *session.PendingAction, reason string, otpPhase bool) {
	ev := audit.Event{
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Action:    pending.ActionType,
		Status:    audit.StatusCancelled,
		Reason:    reason,
	}
	if otpPhase || reason == audit.ReasonTooManyAttempts {
		v := false
		ev.OTPVerified = &v
		ev.OTPAttempts = &pending.OTPAttempts
	}
	if err := o.audit.Append(ev); err != nil {
		o.logger.Error("audit append failed", "action", pending.ActionType, "error", err)
	}
}
