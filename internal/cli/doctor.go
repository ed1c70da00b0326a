package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/objscope/internal/service"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the configured tools are installed",
		Long: `Resolve every configured tool and the expression compiler on PATH.

A missing tool makes the status "degraded" but is not a failure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(rootOpts, cmd)
		},
	}
}

func runDoctor(opts *RootOptions, cmd *cobra.Command) error {
	s, err := opts.openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	env := s.svc.Health(cmd.Context())
	return opts.formatter(cmd).Envelope(env, func(t *textWriter) {
		if h, ok := env.Data.(service.HealthData); ok {
			renderHealth(t, h)
		}
	})
}
