// Package tools provides the fixed registry of account operations the
// assistant can execute.
//
// # Architecture
//
// Operations are keyed by the Action enum, not by free strings: the
// orchestrator resolves a classified action name once via ParseAction, and
// every later step (OTP policy lookup, argument binding, dispatch) works on
// the typed value. Dispatch is an exhaustive switch, so adding an Action
// without a handler is a compile-time-visible gap rather than a runtime map
// miss.
//
// # Design Principles
//
//   - Dependency injection: the account store is passed to the Executor,
//     never a package-level singleton.
//   - Expected domain failures (unknown user, invalid OTP) are Result values,
//     not Go errors; errors are reserved for genuinely unexpected conditions.
package tools

// Action identifies one operation in the registry.
type Action int

// Registry actions. The zero value is ActionUnknown.
const (
	ActionUnknown Action = iota
	ActionGetAccountSummary
	ActionGetRecentTransactions
	ActionGetRewardsSummary
	ActionBlockCard
	ActionUnblockCard
	ActionDisputeTransaction
)

// actionNames maps actions to their wire names. Wire names are what the
// router produces and what audit records carry.
var actionNames = map[Action]string{
	ActionGetAccountSummary:     "get_account_summary",
	ActionGetRecentTransactions: "get_recent_transactions",
	ActionGetRewardsSummary:     "get_rewards_summary",
	ActionBlockCard:             "block_card",
	ActionUnblockCard:           "unblock_card",
	ActionDisputeTransaction:    "dispute_transaction",
}

// String returns the wire name of the action, or "unknown".
func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseAction resolves a wire name to an Action.
func ParseAction(name string) (Action, bool) {
	for a, n := range actionNames {
		if n == name {
			return a, true
		}
	}
	return ActionUnknown, false
}

// Mutating reports whether the action changes account state.
func (a Action) Mutating() bool {
	switch a {
	case ActionBlockCard, ActionUnblockCard, ActionDisputeTransaction:
		return true
	default:
		return false
	}
}

// RequiresOTP reports whether the action is OTP-gated. The gate is a fixed
// per-action policy: only the two operations that change card status demand a
// verified code; disputes execute directly on confirmation.
func (a Action) RequiresOTP() bool {
	switch a {
	case ActionBlockCard, ActionUnblockCard:
		return true
	default:
		return false
	}
}

// ReadOnly reports whether the action bypasses the confirmation protocol.
func (a Action) ReadOnly() bool {
	return !a.Mutating() && a != ActionUnknown
}

// Actions returns all registry actions in a stable order.
func Actions() []Action {
	return []Action{
		ActionGetAccountSummary,
		ActionGetRecentTransactions,
		ActionGetRewardsSummary,
		ActionBlockCard,
		ActionUnblockCard,
		ActionDisputeTransaction,
	}
}
