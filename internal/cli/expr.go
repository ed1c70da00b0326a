package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/objscope/internal/exprc"
)

// ExprOptions holds flags for the expr command.
type ExprOptions struct {
	*RootOptions
	Stdin bool // pass the expression on stdin instead of as an argument
}

// NewExprCommand creates the expr command.
func NewExprCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExprOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "expr <expression>",
		Short: "Run the expression compiler",
		Long: `Compile an arithmetic expression with the configured expression compiler
and print its tokens, intermediate code and result.

Examples:
  objscope expr "2 * (3 + 4)"
  objscope expr "derivative(x^2, 3)" --stdin --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpr(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Stdin, "stdin", false, "pass the expression on stdin")

	return cmd
}

func runExpr(opts *ExprOptions, expr string, cmd *cobra.Command) error {
	s, err := opts.openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	env := s.svc.CompileExpression(cmd.Context(), expr, opts.Stdin)
	return opts.formatter(cmd).Envelope(env, func(t *textWriter) {
		if r, ok := env.Data.(*exprc.Result); ok {
			renderExpression(t, r)
		}
	})
}
