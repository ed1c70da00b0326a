package cli

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roach88/objscope/internal/config"
	"github.com/roach88/objscope/internal/service"
	"github.com/roach88/objscope/internal/store"
	"github.com/roach88/objscope/internal/toolchain"
)

// newLogger builds the console logger. Logs always go to w (stderr) so
// JSON on stdout stays parseable.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core)
}

// session is the per-invocation wiring: config, logger, history store and
// the service on top of them.
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
	svc    *service.Service
}

// openSession loads the configuration, applies flag overrides and opens the
// history database. A database that cannot be opened is a command error
// when requireStore is set; otherwise history is skipped with a warning.
func (o *RootOptions) openSession(cmd *cobra.Command, requireStore bool) (*session, error) {
	logger := newLogger(cmd.ErrOrStderr(), o.Verbose)

	cfg, err := config.Load(o.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if o.Artifacts != "" {
		cfg.Artifacts.Dir = o.Artifacts
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}
	logger.Debug("configuration loaded",
		zap.String("path", cfg.Path),
		zap.String("artifacts", cfg.Artifacts.Dir),
		zap.String("database", cfg.Database))

	s := &session{cfg: cfg, logger: logger}

	var svcOpts []service.Option
	if cfg.Database != "" {
		st, err := store.Open(cfg.Database)
		switch {
		case err == nil:
			s.store = st
			svcOpts = append(svcOpts, service.WithStore(st))
		case requireStore:
			return nil, WrapExitError(ExitCommandError, "failed to open history database", err)
		default:
			logger.Warn("history disabled", zap.String("database", cfg.Database), zap.Error(err))
		}
	} else if requireStore {
		return nil, NewExitError(ExitCommandError, "no history database configured")
	}
	if o.LookPath != nil {
		svcOpts = append(svcOpts, service.WithLookPath(o.LookPath))
	}

	runner := o.Runner
	if runner == nil {
		runner = toolchain.NewExecRunner(logger)
	}
	s.svc = service.New(cfg, runner, logger, svcOpts...)
	return s, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Warn("failed to close history database", zap.Error(err))
	}
	_ = s.logger.Sync()
}
