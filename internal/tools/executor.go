package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/onecard/assistant/internal/audit"
	"github.com/onecard/assistant/internal/log"
	"github.com/onecard/assistant/internal/store"
)

// Result statuses.
const (
	StatusSuccess   = "success"
	StatusSubmitted = "submitted"
	StatusFailure   = "failure"
)

// Failure reasons for expected domain outcomes.
const (
	ReasonUserNotFound = "user_not_found"
	ReasonInvalidOTP   = "invalid_otp"
	ReasonInternal     = "internal_error"
)

// Result is the outcome of one operation. Expected domain failures (unknown
// user, wrong OTP) come back as Status = failure with a Reason; they are
// never Go errors so the turn engine can proceed deterministically.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`

	// Payload carries the operation-specific success data.
	Payload any `json:"payload,omitempty"`

	// Audit is set for mutating operations that reached a terminal outcome.
	// The orchestrator enriches and appends it.
	Audit *audit.Event `json:"audit_event,omitempty"`
}

// OK reports whether the result is a non-failure outcome.
func (r Result) OK() bool {
	return r.Status != StatusFailure
}

// Typed argument structs, one per operation. The orchestrator's binding
// table fills these; user input never reaches them unvalidated.

// SummaryArgs are the arguments for get_account_summary and
// get_rewards_summary.
type SummaryArgs struct {
	UserID string `json:"user_id"`
}

// TransactionsArgs are the arguments for get_recent_transactions.
type TransactionsArgs struct {
	UserID string `json:"user_id"`
	N      int    `json:"n"`
}

// BlockCardArgs are the arguments for block_card.
type BlockCardArgs struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// UnblockCardArgs are the arguments for unblock_card.
type UnblockCardArgs struct {
	UserID string `json:"user_id"`
	OTP    string `json:"otp"`
}

// DisputeArgs are the arguments for dispute_transaction.
type DisputeArgs struct {
	UserID string `json:"user_id"`
	TxID   string `json:"tx_id"`
	Reason string `json:"reason"`
}

// Invocation is one fully-bound operation call.
type Invocation struct {
	Action Action

	Summary      SummaryArgs
	Transactions TransactionsArgs
	Block        BlockCardArgs
	Unblock      UnblockCardArgs
	Dispute      DisputeArgs
}

// Payload types returned by the read-only operations.

// AccountSummary is the payload of get_account_summary.
type AccountSummary struct {
	UserID          string  `json:"user_id"`
	Balance         float64 `json:"balance"`
	CreditLimit     float64 `json:"credit_limit"`
	AvailableCredit float64 `json:"available_credit"`
	DueDate         string  `json:"due_date"`
	MinimumDue      float64 `json:"minimum_due"`
	CardStatus      string  `json:"card_status"`
}

// RewardsSummary is the payload of get_rewards_summary.
type RewardsSummary struct {
	TotalPoints        int     `json:"total_points"`
	ExpiringSoon       int     `json:"expiring_soon"`
	RedeemableValueINR float64 `json:"redeemable_value_inr"`
}

// BlockCardPayload is the payload of a successful block_card.
type BlockCardPayload struct {
	BlockID string `json:"block_id"`
}

// DisputePayload is the payload of a successful dispute_transaction.
type DisputePayload struct {
	TicketID            string `json:"ticket_id"`
	EstimatedResolution string `json:"estimated_resolution"`
}

// Executor runs registry operations against an injected account store.
//
// Executor is safe for concurrent use; all mutable state lives in the store.
type Executor struct {
	store   store.Store
	otpCode string
	logger  log.Logger
}

// NewExecutor creates an Executor.
//
// otpCode is the valid verification code for unblock_card; the prototype
// compares it with plain equality — this is a trust boundary, not a
// security boundary.
func NewExecutor(st store.Store, otpCode string, logger log.Logger) *Executor {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Executor{store: st, otpCode: otpCode, logger: logger}
}

// Execute dispatches the invocation to its typed handler. The switch is
// exhaustive over the Action enum; unexpected panics and store errors other
// than the expected domain failures are converted to a generic failure so
// the caller's state machine can proceed.
func (e *Executor) Execute(ctx context.Context, inv Invocation) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool handler panicked", "action", inv.Action.String(), "panic", r)
			result = Result{Status: StatusFailure, Message: "operation failed", Reason: ReasonInternal}
		}
	}()

	switch inv.Action {
	case ActionGetAccountSummary:
		return e.accountSummary(inv.Summary)
	case ActionGetRecentTransactions:
		return e.recentTransactions(inv.Transactions)
	case ActionGetRewardsSummary:
		return e.rewardsSummary(inv.Summary)
	case ActionBlockCard:
		return e.blockCard(inv.Block)
	case ActionUnblockCard:
		return e.unblockCard(inv.Unblock)
	case ActionDisputeTransaction:
		return e.disputeTransaction(inv.Dispute)
	case ActionUnknown:
		return Result{Status: StatusFailure, Message: "unknown operation", Reason: ReasonInternal}
	}
	return Result{Status: StatusFailure, Message: "unknown operation", Reason: ReasonInternal}
}

func (e *Executor) accountSummary(args SummaryArgs) Result {
	acct, err := e.store.Account(args.UserID)
	if err != nil {
		return e.storeFailure("get_account_summary", err)
	}

	return Result{
		Status:  StatusSuccess,
		Message: "Account summary retrieved",
		Payload: AccountSummary{
			UserID:          acct.UserID,
			Balance:         acct.Balance,
			CreditLimit:     acct.CreditLimit,
			AvailableCredit: acct.AvailableCredit,
			DueDate:         acct.DueDate,
			MinimumDue:      acct.MinimumDue,
			CardStatus:      acct.CardStatus,
		},
	}
}

func (e *Executor) recentTransactions(args TransactionsArgs) Result {
	txs, err := e.store.Transactions(args.UserID, args.N)
	if err != nil {
		return e.storeFailure("get_recent_transactions", err)
	}

	return Result{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("%d transactions retrieved", len(txs)),
		Payload: txs,
	}
}

func (e *Executor) rewardsSummary(args SummaryArgs) Result {
	acct, err := e.store.Account(args.UserID)
	if err != nil {
		return e.storeFailure("get_rewards_summary", err)
	}

	return Result{
		Status:  StatusSuccess,
		Message: "Rewards summary retrieved",
		Payload: RewardsSummary{
			TotalPoints:        acct.RewardPoints,
			ExpiringSoon:       100,
			RedeemableValueINR: float64(acct.RewardPoints) / 10,
		},
	}
}

func (e *Executor) blockCard(args BlockCardArgs) Result {
	if err := e.store.SetCardStatus(args.UserID, store.CardBlocked); err != nil {
		return e.storeFailure("block_card", err)
	}

	return Result{
		Status:  StatusSuccess,
		Message: "Card blocked successfully",
		Payload: BlockCardPayload{
			BlockID: "blk_" + uuid.NewString()[:8],
		},
		Audit: &audit.Event{
			Timestamp: time.Now().UTC(),
			UserID:    args.UserID,
			Action:    ActionBlockCard.String(),
			Status:    audit.StatusSuccess,
			Reason:    args.Reason,
		},
	}
}

func (e *Executor) unblockCard(args UnblockCardArgs) Result {
	if args.OTP != e.otpCode {
		return Result{Status: StatusFailure, Message: "Invalid OTP", Reason: ReasonInvalidOTP}
	}

	if err := e.store.SetCardStatus(args.UserID, store.CardActive); err != nil {
		return e.storeFailure("unblock_card", err)
	}

	return Result{
		Status:  StatusSuccess,
		Message: "Card unblocked successfully",
		Audit: &audit.Event{
			Timestamp: time.Now().UTC(),
			UserID:    args.UserID,
			Action:    ActionUnblockCard.String(),
			Status:    audit.StatusSuccess,
		},
	}
}

func (e *Executor) disputeTransaction(args DisputeArgs) Result {
	// Looking up transactions also verifies the caller-asserted identity
	// maps to a real account.
	txs, err := e.store.Transactions(args.UserID, 1)
	if err != nil {
		return e.storeFailure("dispute_transaction", err)
	}

	// Without an explicit transaction the dispute targets the most recent
	// one, matching how users phrase it ("that last charge was wrong").
	if args.TxID == "" {
		if len(txs) == 0 {
			return Result{Status: StatusFailure, Message: "No transactions to dispute", Reason: ReasonInternal}
		}
		args.TxID = txs[0].ID
	}

	return Result{
		Status:  StatusSubmitted,
		Message: "Dispute submitted",
		Payload: DisputePayload{
			TicketID:            fmt.Sprintf("disp_%s_%s", args.TxID, uuid.NewString()[:6]),
			EstimatedResolution: "7 days",
		},
		Audit: &audit.Event{
			Timestamp: time.Now().UTC(),
			UserID:    args.UserID,
			Action:    ActionDisputeTransaction.String(),
			Status:    audit.StatusSuccess,
			Reason:    args.Reason,
		},
	}
}

// storeFailure converts a store error to a failure result. Unknown users are
// an expected domain outcome; anything else is logged and reported as a
// generic failure.
func (e *Executor) storeFailure(action string, err error) Result {
	if errors.Is(err, store.ErrUserNotFound) {
		return Result{Status: StatusFailure, Message: "User not found", Reason: ReasonUserNotFound}
	}

	e.logger.Error("store operation failed", "action", action, "error", err)
	return Result{Status: StatusFailure, Message: "operation failed", Reason: ReasonInternal}
}
