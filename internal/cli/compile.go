package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teapot-games/matchcore/internal/compiler"
	"github.com/teapot-games/matchcore/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationStats holds summary statistics for a compiled ruleset.
type CompilationStats struct {
	Components int `json:"components"`
	Zones      int `json:"zones"`
	Actions    int `json:"actions"`
	Rules      int `json:"rules"`
	Triggers   int `json:"triggers"`
	Phases     int `json:"phases"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <ruleset.cue>",
		Short: "Compile a CUE ruleset to canonical IR",
		Long: `Compile an authored CUE ruleset to the canonical JSON IR the engine consumes.

The compiler parses the CUE file's top-level "ruleset" value, validates the
required fields (name, components, turn_structure) are present, and decodes
the rest against internal/ir's tagged-union types.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path (defaults to stdout)")

	return cmd
}

func runCompile(opts *CompileOptions, rulesetPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	rs, err := LoadCUERuleset(rulesetPath)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputCompileError(formatter, ErrCodeGeneric, err.Error())
	}

	if validationErrs := compiler.Validate(rs); len(validationErrs) > 0 {
		return outputCompileValidationErrors(formatter, validationErrs)
	}

	stats := statsFor(rs)
	data, err := rs.ToJSON()
	if err != nil {
		return outputCompileError(formatter, ErrCodeGeneric, fmt.Sprintf("marshaling IR: %v", err))
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, data, 0644); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	} else if opts.Format != "json" {
		// text mode with no --output: echo the compiled IR for piping.
		fmt.Fprintln(formatter.Writer, string(data))
	}

	return outputCompileSuccess(formatter, rs, stats, opts.Output)
}

func statsFor(rs *ir.Ruleset) CompilationStats {
	return CompilationStats{
		Components: len(rs.Components),
		Zones:      len(rs.Zones),
		Actions:    len(rs.Actions),
		Rules:      len(rs.Rules),
		Triggers:   len(rs.Triggers),
		Phases:     len(rs.TurnStructure.Phases),
	}
}

func outputCompileSuccess(formatter *OutputFormatter, rs *ir.Ruleset, stats CompilationStats, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(struct {
			Name  string            `json:"name"`
			Stats CompilationStats  `json:"stats"`
		}{Name: rs.Name, Stats: stats})
	}

	fmt.Fprintf(formatter.Writer, "\n✓ Compiled ruleset %q: %d component(s), %d zone(s), %d phase(s), %d action(s), %d rule(s), %d trigger(s)\n",
		rs.Name, stats.Components, stats.Zones, stats.Phases, stats.Actions, stats.Rules, stats.Triggers)
	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote canonical IR to %s\n", outputFile)
	}
	return nil
}

func outputCompileError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

func outputCompileValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   errs,
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n", e.Error())
	}
	return NewExitError(ExitFailure, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}
