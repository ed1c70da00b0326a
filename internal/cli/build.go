package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/objscope/internal/build"
)

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "build <src-dir>",
		Short: "Compile sources at -O0 and -O2",
		Long: `Compile every source unit in a directory at both optimization levels and
merge each level into one relocatable object.

The entry unit (main.cpp by default) is excluded. A level whose compile or
link fails is reported but does not stop the other level.

Exit codes:
  0 - At least one variant was built
  1 - No variant was built
  2 - Command error (invalid config, etc.)

Examples:
  objscope build ./src
  objscope build ./src --artifacts ./out --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(rootOpts, args[0], cmd)
		},
	}
}

func runBuild(opts *RootOptions, sourceDir string, cmd *cobra.Command) error {
	s, err := opts.openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	env := s.svc.Build(cmd.Context(), sourceDir)
	return opts.formatter(cmd).Envelope(env, func(t *textWriter) {
		if res, ok := env.Data.(*build.Result); ok {
			renderBuild(t, res)
		}
	})
}
