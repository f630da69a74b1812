package tools

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// toolNames contains all registered Genkit tool names.
// Single source of truth so other packages never duplicate the list.
var toolNames = []string{
	"get_account_summary",
	"get_recent_transactions",
	"get_rewards_summary",
	"block_card",
	"unblock_card",
	"dispute_transaction",
}

// ToolNames returns all registered Genkit tool names.
func ToolNames() []string {
	return toolNames
}

// Genkit input types. Separate from the executor arg structs so the schema
// surface exposed to the model stays minimal: the model never supplies
// user_id — the host binds identity from the session.

// SummaryInput is the input schema for the summary tools.
type SummaryInput struct{}

// TransactionsInput is the input schema for get_recent_transactions.
type TransactionsInput struct {
	N int `json:"n,omitempty" jsonschema_description:"Number of transactions to retrieve (default 10)"`
}

// BlockCardInput is the input schema for block_card.
type BlockCardInput struct {
	Reason string `json:"reason" jsonschema_description:"Reason for blocking the card (e.g., 'lost', 'stolen')"`
}

// UnblockCardInput is the input schema for unblock_card.
type UnblockCardInput struct {
	OTP string `json:"otp" jsonschema_description:"6-digit verification code"`
}

// DisputeInput is the input schema for dispute_transaction.
type DisputeInput struct {
	TxID   string `json:"tx_id" jsonschema_description:"Transaction ID to dispute"`
	Reason string `json:"reason" jsonschema_description:"Reason for the dispute"`
}

// RegisterTools registers the six account operations with Genkit so that a
// real generation model can call them directly. The executor and the acting
// user are captured via closures; identity is never model-supplied.
//
// Registration is only needed in googleai mode — the mock pipeline invokes
// the Executor through the orchestrator's dispatch table instead.
func RegisterTools(g *genkit.Genkit, exec *Executor, userID string) {
	genkit.DefineTool(g, "get_account_summary",
		"Get the user's account balance, credit limit, due date and card status.",
		func(ctx *ai.ToolContext, _ SummaryInput) (Result, error) {
			return exec.Execute(ctx.Context, Invocation{
				Action:  ActionGetAccountSummary,
				Summary: SummaryArgs{UserID: userID},
			}), nil
		})

	genkit.DefineTool(g, "get_recent_transactions",
		"Get the user's most recent card transactions.",
		func(ctx *ai.ToolContext, in TransactionsInput) (Result, error) {
			n := in.N
			if n <= 0 {
				n = 10
			}
			return exec.Execute(ctx.Context, Invocation{
				Action:       ActionGetRecentTransactions,
				Transactions: TransactionsArgs{UserID: userID, N: n},
			}), nil
		})

	genkit.DefineTool(g, "get_rewards_summary",
		"Get the user's reward points balance and redeemable value.",
		func(ctx *ai.ToolContext, _ SummaryInput) (Result, error) {
			return exec.Execute(ctx.Context, Invocation{
				Action:  ActionGetRewardsSummary,
				Summary: SummaryArgs{UserID: userID},
			}), nil
		})

	genkit.DefineTool(g, "block_card",
		"Block the user's card. Requires a reason. Destructive: the host "+
			"enforces explicit confirmation and OTP verification before this runs.",
		func(ctx *ai.ToolContext, in BlockCardInput) (Result, error) {
			return exec.Execute(ctx.Context, Invocation{
				Action: ActionBlockCard,
				Block:  BlockCardArgs{UserID: userID, Reason: in.Reason},
			}), nil
		})

	genkit.DefineTool(g, "unblock_card",
		"Unblock the user's card. Requires a valid 6-digit verification code.",
		func(ctx *ai.ToolContext, in UnblockCardInput) (Result, error) {
			return exec.Execute(ctx.Context, Invocation{
				Action:  ActionUnblockCard,
				Unblock: UnblockCardArgs{UserID: userID, OTP: in.OTP},
			}), nil
		})

	genkit.DefineTool(g, "dispute_transaction",
		"Dispute a card transaction. Requires the transaction ID and a reason.",
		func(ctx *ai.ToolContext, in DisputeInput) (Result, error) {
			return exec.Execute(ctx.Context, Invocation{
				Action:  ActionDisputeTransaction,
				Dispute: DisputeArgs{UserID: userID, TxID: in.TxID, Reason: in.Reason},
			}), nil
		})
}
