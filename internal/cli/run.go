package cli

import (
	"bufio"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/google/uuid"

	"github.com/teapot-games/matchcore/internal/component"
	"github.com/teapot-games/matchcore/internal/ir"
	"github.com/teapot-games/matchcore/internal/match"
	"github.com/teapot-games/matchcore/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Seed     int64
	Players  []string
	Database string // optional persistence sink
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <ruleset.json>",
		Short: "Start an interactive match against a compiled ruleset",
		Long: `Start a match actor against a compiled ruleset JSON file and drive it
interactively from stdin, one command per line:

  action <action_id> <player> [slot=id,id ...]   submit a player action
  input <input_id>                                satisfy a pending workflow input
  actions <player>                                list currently available actions
  state                                            print the current phase/turn/ended status
  quit                                             exit

Every accepted command prints the events it produced.

Example:
  matchcore run ./ruleset.json --seed 42 --players p1,p2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "deterministic RNG seed")
	cmd.Flags().StringSliceVar(&opts.Players, "players", []string{"p1", "p2"}, "comma-separated player ids")
	cmd.Flags().StringVar(&opts.Database, "db", "", "optional SQLite database to persist the event log")

	return cmd
}

func runMatch(opts *RunOptions, rulesetPath string, cmd *cobra.Command) error {
	rs, err := LoadJSONRuleset(rulesetPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load ruleset", err)
	}

	matchOpts := []match.Option{match.WithSeed(opts.Seed)}

	var db *store.Store
	matchID := uuid.NewString()
	if opts.Database != "" {
		db, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer db.Close()
		hash, err := ir.RulesetHash(rs)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to hash ruleset", err)
		}
		if err := db.RegisterMatch(matchID, hash, opts.Seed); err != nil {
			return WrapExitError(ExitCommandError, "failed to register match", err)
		}
		matchOpts = append(matchOpts, match.WithStore(db.ForMatch(matchID)))
	}

	actor, err := match.New(rs, opts.Players, matchOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to construct match", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Match %s started (ruleset %q, seed %d, players %v)\n", actor.ID(), rs.Name, opts.Seed, opts.Players)

	res, err := actor.BeginGame()
	if err != nil {
		return WrapExitError(ExitFailure, "begin_game failed", err)
	}
	printActionResult(w, res)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		if res.Outcome == match.GameEnded {
			fmt.Fprintln(w, "Game ended.")
			return nil
		}
		fmt.Fprint(w, "> ")
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "quit", "exit":
			return nil
		case "state":
			printState(w, actor)
			continue
		case "actions":
			if len(fields) < 2 {
				fmt.Fprintln(w, "usage: actions <player>")
				continue
			}
			printAvailableActions(w, actor, fields[1])
			continue
		case "input":
			if len(fields) < 2 {
				fmt.Fprintln(w, "usage: input <input_id>")
				continue
			}
			res, err = actor.SubmitInput(fields[1])
		case "action":
			if len(fields) < 3 {
				fmt.Fprintln(w, "usage: action <action_id> <player> [slot=id,id ...]")
				continue
			}
			targets, perr := parseTargets(fields[3:])
			if perr != nil {
				fmt.Fprintf(w, "bad targets: %v\n", perr)
				continue
			}
			res, err = actor.ProcessAction(fields[1], fields[2], targets)
		default:
			fmt.Fprintf(w, "unknown command %q\n", fields[0])
			continue
		}
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			slog.Debug("command failed", "line", line, "err", err)
			continue
		}
		printActionResult(w, res)
	}
}

func parseTargets(tokens []string) (map[string][]component.ID, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	out := make(map[string][]component.ID, len(tokens))
	for _, tok := range tokens {
		slot, idList, ok := strings.Cut(tok, "=")
		if !ok {
			return nil, fmt.Errorf("expected slot=id,id form, got %q", tok)
		}
		var ids []component.ID
		for _, idStr := range strings.Split(idList, ",") {
			n, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid component id %q: %w", idStr, err)
			}
			ids = append(ids, component.ID(n))
		}
		out[slot] = ids
	}
	return out, nil
}

func printActionResult(w interface{ Write([]byte) (int, error) }, res *match.ActionResult) {
	for _, ev := range res.Events {
		fmt.Fprintf(w, "  [%d] %s %v\n", ev.Seq, ev.Type, ev.Payload)
	}
	fmt.Fprintf(w, "outcome: %s\n", res.Outcome)
	if res.Pending != nil {
		fmt.Fprintf(w, "pending input: %s (action %s)\n", res.Pending.ID, res.Pending.ActionID)
	}
}

func printState(w interface{ Write([]byte) (int, error) }, actor *match.Actor) {
	st := actor.GetCurrentState()
	fmt.Fprintf(w, "phase=%s turn=%d active_player=%s ended=%v\n", st.CurrentPhaseID, st.TurnNumber, st.ActivePlayer, actor.Ended())
}

func printAvailableActions(w interface{ Write([]byte) (int, error) }, actor *match.Actor, player string) {
	avail, err := actor.GetAvailableActions(player)
	if err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}
	if len(avail) == 0 {
		fmt.Fprintln(w, "(no legal actions)")
		return
	}
	for _, a := range avail {
		fmt.Fprintf(w, "  %s (%s)\n", a.Action.ID, a.Action.Name)
	}
}
