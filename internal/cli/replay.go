package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teapot-games/matchcore/internal/ir"
	"github.com/teapot-games/matchcore/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplaySummary is the derived view of a persisted match's event log.
type ReplaySummary struct {
	MatchID     string `json:"match_id"`
	RulesetHash string `json:"ruleset_hash"`
	Seed        int64  `json:"seed"`
	EventCount  int    `json:"event_count"`
	LastEvent   string `json:"last_event,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <match-id>",
		Short: "Summarize a persisted match's event log",
		Long: `Load a match's append-only event log from a matchcore database and print
a derived summary: ruleset hash, seed, event count, and the last event
applied. This does not reconstruct live state — internal/match.Actor
holds no snapshot/restore path (spec.md §5 keeps the actor purely
in-memory); use "matchcore trace" to inspect the raw ordered log.

Example:
  matchcore replay 3fae1c2e-... --db ./matches.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "matchcore SQLite database (required)")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, matchID string, cmd *cobra.Command) error {
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

	info, err := db.LoadMatch(matchID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load match", err)
	}

	events, err := db.LoadEvents(matchID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load events", err)
	}

	summary := ReplaySummary{
		MatchID:     info.ID,
		RulesetHash: info.RulesetHash,
		Seed:        info.Seed,
		EventCount:  len(events),
	}
	if len(events) > 0 {
		summary.LastEvent = describeEvent(events[len(events)-1])
	}

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	fmt.Fprintf(formatter.Writer, "match:        %s\n", summary.MatchID)
	fmt.Fprintf(formatter.Writer, "ruleset_hash: %s\n", summary.RulesetHash)
	fmt.Fprintf(formatter.Writer, "seed:         %d\n", summary.Seed)
	fmt.Fprintf(formatter.Writer, "events:       %d\n", summary.EventCount)
	if summary.LastEvent != "" {
		fmt.Fprintf(formatter.Writer, "last_event:   %s\n", summary.LastEvent)
	}
	return nil
}

func describeEvent(ev ir.Event) string {
	return fmt.Sprintf("[%d] %s", ev.Seq, ev.Type)
}
