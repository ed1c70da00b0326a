package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/objscope/internal/harness"
	"github.com/roach88/objscope/internal/service"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// CheckResult holds the overall check result.
type CheckResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <scenario.yaml|dir>...",
		Short: "Replay recorded tool output through the parsers",
		Long: `Replay transcript scenarios through the analyzer and comparator without
running any tool, then evaluate their assertions and golden reports.

Use it after a binutils upgrade: record fresh objdump/nm/readelf/size
output into a scenario and check that the parsers still understand it.
Directories are searched for .yaml and .yml files.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  objscope check testdata/scenarios
  objscope check drift.yaml --update
  objscope check testdata/scenarios --filter "missing_*" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runCheck(opts *CheckOptions, paths []string, cmd *cobra.Command) error {
	var files []string
	for _, p := range paths {
		found, err := findScenarioFiles(p, opts.Filter)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find scenarios", err)
		}
		files = append(files, found...)
	}

	f := opts.formatter(cmd)
	f.VerboseLog("checking %d scenario files", len(files))

	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	defer func() { _ = logger.Sync() }()

	result := CheckResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, file := range files {
		sr := checkScenario(cmd, file, opts.Update, logger)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	env := service.Envelope{Success: result.Failed == 0, Data: result}
	if !env.Success {
		env.Error = fmt.Sprintf("%d of %d scenarios failed", result.Failed, result.Total)
	}
	return f.Envelope(env, func(t *textWriter) {
		renderCheck(t, result, opts.Update)
	})
}

// findScenarioFiles returns path itself if it is a file, or the YAML files
// below it if it is a directory.
func findScenarioFiles(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		// Only process .yaml and .yml files
		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(p), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, p)
		return nil
	})
	return files, err
}

// checkScenario loads, replays and golden-checks one scenario file.
func checkScenario(cmd *cobra.Command, file string, update bool, logger *zap.Logger) ScenarioResult {
	res := ScenarioResult{Name: filepath.Base(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		res.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return res
	}
	res.Name = scenario.Name

	out, err := harness.Run(cmd.Context(), scenario, logger.With(zap.String("scenario", scenario.Name)))
	if err != nil {
		res.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return res
	}
	if err := harness.CheckGolden(scenario, out, update); err != nil {
		out.AddError(fmt.Sprintf("golden comparison failed: %v", err))
	}

	res.Pass = out.Pass
	if !out.Pass {
		res.Errors = out.Errors
	}
	return res
}

func renderCheck(t *textWriter, r CheckResult, update bool) {
	for _, s := range r.Scenarios {
		if s.Pass {
			suffix := ""
			if update {
				suffix = dimStyle.Sprint(" (golden updated)")
			}
			fmt.Fprintf(t.w, "%s %s%s\n", okStyle.Sprint("✓"), s.Name, suffix)
			continue
		}
		fmt.Fprintf(t.w, "%s %s\n", failStyle.Sprint("✗"), s.Name)
		for _, e := range s.Errors {
			for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
				fmt.Fprintf(t.w, "  %s\n", line)
			}
		}
	}
	if r.Total == 0 {
		fmt.Fprintln(t.w, "No scenarios found.")
		return
	}
	t.printf("\n%d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
}
