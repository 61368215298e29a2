package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheusresearch/htsql-sub004/internal/catalog"
	"github.com/prometheusresearch/htsql-sub004/internal/config"
	"github.com/prometheusresearch/htsql-sub004/internal/dialect"
	"github.com/prometheusresearch/htsql-sub004/internal/engine"
	"github.com/prometheusresearch/htsql-sub004/internal/memo"
	"github.com/prometheusresearch/htsql-sub004/internal/store"
)

// environment is everything a command needs to run queries.
type environment struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store // nil when no database is configured or needed
	catalog *catalog.Catalog
	engine  *engine.Engine
}

// Close releases the database, if any.
func (env *environment) Close() error {
	if env.store == nil {
		return nil
	}
	return env.store.Close()
}

// loadConfig loads the configuration and applies the flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, _, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.Catalog != "" {
		cfg.Catalog = opts.Catalog
	}
	if opts.Dialect != "" {
		cfg.Dialect = opts.Dialect
	}
	if opts.Engine != "" {
		cfg.Database.Engine = opts.Engine
	}
	if opts.DSN != "" {
		cfg.Database.DSN = opts.DSN
	}
	return cfg, nil
}

// newLogger builds the logger of a command: text records on w at the
// configured level, or at debug level in verbose mode.
func newLogger(cfg *config.Config, verbose bool, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// loadEnvironment builds the engine of a command.
//
// The database is opened when the command executes queries (withStore),
// or when the catalog has to be introspected. The returned error is an
// ExitError carrying ExitCommandError.
func loadEnvironment(ctx context.Context, opts *RootOptions, logW io.Writer, withStore bool) (*environment, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, commandError(ErrCodeConfig, "failed to load config", err)
	}
	logger, err := newLogger(cfg, opts.Verbose, logW)
	if err != nil {
		return nil, commandError(ErrCodeConfig, "invalid config", err)
	}
	env := &environment{cfg: cfg, logger: logger}

	if withStore || cfg.Catalog == "" {
		if !cfg.HasDatabase() {
			if withStore {
				return nil, commandError(ErrCodeDatabase, "no database configured: set database in htsql.yaml or pass --db", nil)
			}
			return nil, commandError(ErrCodeCatalog, "no catalog: pass --catalog or configure a database to introspect", nil)
		}
		dsn, err := cfg.DSN()
		if err != nil {
			return nil, commandError(ErrCodeConfig, "invalid database config", err)
		}
		env.store, err = store.Open(ctx, cfg.Database.Engine, dsn)
		if err != nil {
			return nil, commandError(ErrCodeDatabase, "failed to open database", err)
		}
		logger.Debug("database opened", "engine", cfg.Database.Engine)
	}

	if cfg.Catalog != "" {
		env.catalog, err = catalog.Load(cfg.Catalog)
	} else {
		env.catalog, err = env.store.Introspect(ctx)
	}
	if err != nil {
		env.Close()
		return nil, commandError(ErrCodeCatalog, "failed to load catalog", err)
	}
	logger.Debug("catalog loaded", "catalog", env.catalog.String())

	name, err := cfg.ResolvedDialect()
	if err != nil {
		env.Close()
		return nil, commandError(ErrCodeConfig, "invalid dialect", err)
	}
	d, err := dialect.Lookup(name)
	if err != nil {
		env.Close()
		return nil, commandError(ErrCodeConfig, "invalid dialect", err)
	}

	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithCache(memo.New()),
		engine.WithMaxRows(cfg.Limit.MaxRows),
	}
	if withStore {
		engineOpts = append(engineOpts, engine.WithStore(env.store))
	}
	env.engine = engine.New(env.catalog, d, engineOpts...)
	return env, nil
}

// parseParams turns name=value flags into query parameters.
func parseParams(raw map[string]string) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	params := make(map[string]any, len(raw))
	for k, v := range raw {
		params[k] = v
	}
	return params
}

// describeEnvironment is the verbose banner of a command.
func describeEnvironment(env *environment) string {
	db := "none"
	if env.store != nil {
		db = env.store.Engine().Name
	}
	return fmt.Sprintf("dialect=%s database=%s %s", env.engine.Dialect().Name, db, env.catalog)
}
