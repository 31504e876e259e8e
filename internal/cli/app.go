package cli

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/rewind/internal/config"
	"github.com/roach88/rewind/internal/counter"
	"github.com/roach88/rewind/internal/effect"
	"github.com/roach88/rewind/internal/engine"
	"github.com/roach88/rewind/internal/ir"
	"github.com/roach88/rewind/internal/logging"
	"github.com/roach88/rewind/internal/metrics"
	"github.com/roach88/rewind/internal/state"
	"github.com/roach88/rewind/internal/store"
)

// app is the runtime shared by serve and play: an engine wired to the
// configured performers, journal and metrics.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	engine  *engine.Engine
	metrics *metrics.Metrics
	counter counter.Backend
	closers []func() error
}

// loadConfig reads configuration, letting the flags of cmd override it.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(opts.Config, cmd.Flags())
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// newLogger writes to w at the configured level, or debug with --verbose.
func newLogger(cfg config.Config, verbose bool, w io.Writer) *slog.Logger {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil || verbose {
		level = slog.LevelDebug
	}
	return logging.NewWriter(w, level)
}

// addEngineFlags registers the flags every engine-backed command accepts.
// Their names are the keys of config.FlagKeys.
func addEngineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "log level (debug|info|warn|error)")
	f.String("journal", "", "SQLite dispatch journal path (empty disables journaling)")
	f.Duration("effect-timeout", 30*time.Second, "upper bound for a single effect (0 disables)")
	f.Duration("stuff-delay", time.Second, "delay of the timed stuff load")
	f.String("counter-backend", config.BackendMemory, "counter backend (memory|redis|http)")
	f.String("counter-url", "", "counter service base URL for the http backend")
	f.String("redis-addr", "", "Redis address for the redis backend")
}

func newApp(cfg config.Config, logger *slog.Logger, opts ...engine.Option) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
	}

	backend, err := a.newCounterBackend()
	if err != nil {
		return nil, err
	}
	a.counter = backend

	router := effect.NewRouter().Handle(effect.OpStuffLoad, effect.Timer{
		Delay: cfg.Stuff.Delay,
		Value: ir.IRString(cfg.Stuff.Value),
	})
	counter.NewPerformer(backend).Register(router)

	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithHooks(a.metrics.Hooks()),
		engine.WithEffectTimeout(cfg.Effects.Timeout),
	}
	if cfg.Journal.Path != "" {
		st, err := store.Open(cfg.Journal.Path)
		if err != nil {
			_ = a.Close()
			return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		a.closers = append(a.closers, st.Close)
		engineOpts = append(engineOpts, engine.WithJournal(st, ""))
	}
	engineOpts = append(engineOpts, opts...)

	a.engine = engine.New(initialTree(cfg.Initial), router, engineOpts...)
	logger.Debug("engine ready",
		"counter_backend", cfg.Counter.Backend,
		"journal", cfg.Journal.Path,
		"run", a.engine.RunID(),
		"ops", router.Ops())
	return a, nil
}

func (a *app) newCounterBackend() (counter.Backend, error) {
	c := a.cfg.Counter
	switch c.Backend {
	case config.BackendRedis:
		r := counter.NewRedis(c.RedisAddr, c.ID, counter.WithPrefix(c.RedisKey))
		a.closers = append(a.closers, r.Close)
		return r, nil
	case config.BackendHTTP:
		return counter.NewClient(c.URL, nil), nil
	case config.BackendMemory, "":
		return counter.NewMemory(c.ID), nil
	}
	return nil, NewExitError(ExitCommandError, "unknown counter backend "+c.Backend)
}

// Close stops the engine, then releases the journal and backends.
func (a *app) Close() error {
	if a.engine != nil {
		a.engine.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func initialTree(in config.InitialConfig) state.Tree {
	t := state.Initial()
	t.Thing.A = in.A
	t.Thing.B = in.B
	return t
}
