package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/objscope/internal/analysis"
	"github.com/roach88/objscope/internal/artifact"
	"github.com/roach88/objscope/internal/service"
)

// LevelOptions holds the --level flag shared by analyze and disasm.
type LevelOptions struct {
	*RootOptions
	Level string
}

func (o *LevelOptions) tag() (artifact.Tag, error) {
	tag, err := artifact.ParseTag(o.Level)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "invalid --level", err)
	}
	return tag, nil
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LevelOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Report disassembly, symbols, sections and size of one variant",
		Long: `Run objdump, nm, readelf and size on one built variant.

A tool that fails only drops its own facet; the reason is listed under
facet_errors. A variant that was never built is a failure.

Examples:
  objscope analyze --level O2
  objscope analyze --level unoptimized --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Level, "level", "l", "O0", "optimization level (O0|O2)")

	return cmd
}

func runAnalyze(opts *LevelOptions, cmd *cobra.Command) error {
	tag, err := opts.tag()
	if err != nil {
		return err
	}
	s, err := opts.openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	env := s.svc.Analyze(cmd.Context(), tag)
	return opts.formatter(cmd).Envelope(env, func(t *textWriter) {
		if a, ok := env.Data.(*analysis.Analysis); ok {
			renderAnalysis(t, a)
		}
	})
}

// NewDisasmCommand creates the disasm command.
func NewDisasmCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LevelOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "disasm",
		Short: "Print the parsed disassembly of one variant",
		Long: `Disassemble one built variant and print its functions and instructions.

Examples:
  objscope disasm --level O2
  objscope disasm -l O0 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDisasm(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Level, "level", "l", "O0", "optimization level (O0|O2)")

	return cmd
}

func runDisasm(opts *LevelOptions, cmd *cobra.Command) error {
	tag, err := opts.tag()
	if err != nil {
		return err
	}
	s, err := opts.openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	env := s.svc.Disassembly(cmd.Context(), tag)
	return opts.formatter(cmd).Envelope(env, func(t *textWriter) {
		if d, ok := env.Data.(service.DisassemblyData); ok {
			renderDisassembly(t, d)
		}
	})
}
