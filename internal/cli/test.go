package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/teapot-games/matchcore/internal/harness"
	"github.com/teapot-games/matchcore/internal/ir"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files instead of comparing against them
	Filter string // glob restricting which scenario files run
}

// ScenarioResult is one scenario's pass/fail outcome.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult is the aggregate outcome of a conformance run.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios against a live match actor",
		Long: `Load every scenario (*.yaml/*.yml) under scenarios-dir, drive it through
internal/harness.Run, and check its assertions (spec.md §10.4/§12's
conformance DSL). Each scenario's trace is also compared against a golden
file in a sibling "golden" directory; pass --update to regenerate goldens
after an intentional behavior change.

Example:
  matchcore test ./scenarios
  matchcore test ./scenarios --filter "turn-*" --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files instead of comparing")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "glob restricting which scenario files run (matched against the file's base name)")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir), nil)
	}

	files, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list scenario files", err)
	}

	if len(files) == 0 {
		if formatter.Format == "json" {
			return formatter.Success(TestResult{})
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found")
		return nil
	}

	result := TestResult{Total: len(files)}
	for _, f := range files {
		formatter.VerboseLog("running scenario %s", f)
		sr := runScenario(f, opts, cmd)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputTestText(formatter, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total))
	}
	return nil
}

func findScenarioFiles(dir string, filter string) ([]string, error) {
	var out []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, filepath.Base(path))
			if err != nil {
				return err
			}
			if !matched {
				return nil
			}
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func runScenario(scenarioFile string, opts *TestOptions, cmd *cobra.Command) ScenarioResult {
	name := scenarioFile
	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return ScenarioResult{Name: name, Errors: []string{err.Error()}}
	}
	name = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		return ScenarioResult{Name: name, Errors: []string{err.Error()}}
	}

	sr := ScenarioResult{Name: name, Pass: result.Pass, Errors: result.Errors}

	golden := goldenFilePath(scenarioFile)
	if opts.Update {
		if err := updateGoldenFile(golden, scenario.Name, result); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, fmt.Sprintf("updating golden file: %v", err))
		}
		return sr
	}

	if err := compareWithGolden(golden, scenario.Name, result); err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, err.Error())
	}
	return sr
}

// goldenFilePath maps a scenario file to its golden fixture, stored in a
// sibling "golden" directory named after the scenario's own base name.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	return filepath.Join(dir, "golden", stem+".golden")
}

func updateGoldenFile(goldenPath string, scenarioName string, result *harness.Result) error {
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
		return fmt.Errorf("creating golden directory: %w", err)
	}
	data, err := canonicalTrace(scenarioName, result)
	if err != nil {
		return err
	}
	return os.WriteFile(goldenPath, data, 0644)
}

func compareWithGolden(goldenPath string, scenarioName string, result *harness.Result) error {
	want, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("no golden file at %s (run with --update to create one)", goldenPath)
	}
	if err != nil {
		return fmt.Errorf("reading golden file %s: %w", goldenPath, err)
	}
	got, err := canonicalTrace(scenarioName, result)
	if err != nil {
		return err
	}
	if string(want) != string(got) {
		return fmt.Errorf("trace does not match golden file %s", goldenPath)
	}
	return nil
}

// canonicalTrace produces the same shape as internal/harness's
// TraceSnapshot, independently, since AssertGolden requires a *testing.T
// and can't be reused from a live CLI run.
func canonicalTrace(scenarioName string, result *harness.Result) ([]byte, error) {
	snapshot := map[string]any{
		"scenario_name": scenarioName,
		"trace":         convertTraceToCanonical(result.Trace),
	}
	return ir.MarshalCanonical(snapshot)
}

func convertTraceToCanonical(trace []harness.TraceEvent) []any {
	out := make([]any, len(trace))
	for i, ev := range trace {
		m := map[string]any{
			"type": ev.Type,
			"seq":  ev.Seq,
		}
		if ev.Payload != nil {
			m["payload"] = ev.Payload
		}
		if ev.CausedBy != "" {
			m["caused_by"] = ev.CausedBy
		}
		out[i] = m
	}
	return out
}

func outputTestText(formatter *OutputFormatter, result TestResult) {
	for _, sr := range result.Scenarios {
		if sr.Pass {
			fmt.Fprintf(formatter.Writer, "✓ %s\n", sr.Name)
			continue
		}
		fmt.Fprintf(formatter.Writer, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(formatter.Writer, "    %s\n", e)
		}
	}
	fmt.Fprintf(formatter.Writer, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
}
