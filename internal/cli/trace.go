package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teapot-games/matchcore/internal/ir"
	"github.com/teapot-games/matchcore/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
}

// TraceEntry is one row of a printed event trace.
type TraceEntry struct {
	Seq       int64    `json:"seq"`
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	CausedBy  string   `json:"caused_by,omitempty"`
	FlowToken string   `json:"flow_token"`
	Payload   ir.IRObject `json:"payload"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <match-id>",
		Short: "Print a persisted match's raw ordered event log",
		Long: `Print every event recorded for a match, in logical-clock order, including
the content-addressed event id (ir.EventID), the reaction or action that
caused it (caused_by), and its flow token. This is the full provenance
record the resolution stack produced (spec.md §4.1/§9); "matchcore
replay" prints a condensed summary of the same log instead.

Example:
  matchcore trace 3fae1c2e-... --db ./matches.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "matchcore SQLite database (required)")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, matchID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
		TraceID:   matchID,
	}

	db, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer db.Close()

	events, err := db.LoadEvents(matchID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load events", err)
	}

	entries := make([]TraceEntry, len(events))
	for i, ev := range events {
		entries[i] = TraceEntry{
			Seq:       ev.Seq,
			ID:        ev.ID,
			Type:      ev.Type,
			CausedBy:  ev.CausedBy,
			FlowToken: ev.FlowToken,
			Payload:   ev.Payload,
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "(no events recorded)")
		return nil
	}

	for _, e := range entries {
		payload, _ := json.Marshal(e.Payload)
		cause := e.CausedBy
		if cause == "" {
			cause = "-"
		}
		fmt.Fprintf(formatter.Writer, "%4d  %s  %-24s  caused_by=%s  flow=%s  %s\n",
			e.Seq, shortID(e.ID), e.Type, shortID(cause), e.FlowToken, payload)
	}
	return nil
}

func shortID(id string) string {
	if len(id) <= 10 {
		return id
	}
	return id[:10]
}
