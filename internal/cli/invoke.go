package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Targets string
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <action-id> <player>",
		Short: "Submit a single action against a running match (MVP stub)",
		Long: `Submit a single process_action against a running match.

A match actor is an in-process object with no network surface (spec.md
§5): there is currently no IPC mechanism for attaching to an actor owned
by another process, so this command is a stub that documents the
intended call shape. Use "matchcore run" to drive a match interactively
in the same process, or "matchcore test" to execute a scripted scenario.

Example:
  matchcore invoke play_card p1 --targets 'card=7'`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invokeAction(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Targets, "targets", "", "target slots as slot=id,id pairs, separated by spaces")

	return cmd
}

func invokeAction(opts *InvokeOptions, actionID, player string, cmd *cobra.Command) error {
	targets, err := parseTargets(strings.Fields(opts.Targets))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --targets", err)
	}
	encoded, _ := json.Marshal(targets)

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Action request:")
	fmt.Fprintf(w, "  action: %s\n", actionID)
	fmt.Fprintf(w, "  player: %s\n", player)
	fmt.Fprintf(w, "  targets: %s\n", encoded)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "No attached match: invoke cannot reach an actor running in another process.")
	fmt.Fprintln(w, "Run 'matchcore run <ruleset.json>' and submit this action interactively instead.")

	return NewExitError(ExitCommandError, "invoke has no running match to attach to")
}
