package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/objscope/internal/compare"
)

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compare",
		Short: "Compare the O0 and O2 variants",
		Long: `Analyze both built variants and report instruction, size and symbol deltas.

If either variant is missing no tool runs and the report lists it under
missing_artifacts. Comparison itself never fails: facets that could not be
computed are explained under facet_errors.

Examples:
  objscope compare
  objscope compare --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(rootOpts, cmd)
		},
	}
}

func runCompare(opts *RootOptions, cmd *cobra.Command) error {
	s, err := opts.openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	env := s.svc.Compare(cmd.Context())
	return opts.formatter(cmd).Envelope(env, func(t *textWriter) {
		if r, ok := env.Data.(*compare.Report); ok {
			renderComparison(t, r)
		}
	})
}
