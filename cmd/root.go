// Package cmd implements the onecard CLI.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "onecard",
	Short: "onecard - conversational credit-card assistant",
	Long: `onecard is an action gateway for credit-card servicing: it classifies
user messages, answers product questions from a knowledge base, and executes
account operations behind confirmation and OTP gates.

Running onecard with no arguments starts an interactive chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
