package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/objscope/internal/service"
	"github.com/roach88/objscope/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Kind  string
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded builds and reports",
		Long: `List the most recent builds and reports from the history database,
newest first.

Examples:
  objscope history
  objscope history --kind comparison --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "report kind (analysis|comparison|disassembly)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", store.DefaultLimit, "maximum entries per list")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	kind, valid := store.ParseReportKind(opts.Kind)
	if !valid {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --kind %q: must be analysis, comparison or disassembly", opts.Kind))
	}
	s, err := opts.openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	env := s.svc.History(cmd.Context(), kind, opts.Limit)
	return opts.formatter(cmd).Envelope(env, func(t *textWriter) {
		if h, ok := env.Data.(service.HistoryData); ok {
			renderHistory(t, h)
		}
	})
}
