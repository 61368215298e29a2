package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/prometheusresearch/htsql-sub004/internal/store"
)

const (
	maxWalkDepth = 25
)

// FileNames are the config file names looked for during discovery.
var FileNames = []string{"htsql.yaml", "htsql.yml"}

// Config represents the htsql configuration from htsql.yaml.
type Config struct {
	// Catalog is a YAML or CUE catalog file. When empty, the catalog is
	// read from the database.
	Catalog string `mapstructure:"catalog"`

	// Dialect selects the SQL dialect for translation. When empty, the
	// dialect of the database engine is used.
	Dialect string `mapstructure:"dialect"`

	// Format is the default output format: json, csv, txt or sql.
	Format string `mapstructure:"format"`

	Database DatabaseConfig `mapstructure:"database"`
	Limit    LimitConfig    `mapstructure:"limit"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Engine   string `mapstructure:"engine"`
	DSN      string `mapstructure:"dsn"`
	Path     string `mapstructure:"path"` // sqlite database file
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// LimitConfig bounds query execution.
type LimitConfig struct {
	MaxRows int `mapstructure:"max_rows"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load discovers and loads configuration with proper precedence:
// env > config file > defaults. Flags are applied by the caller.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func Load(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	setDefaults(v)

	// HTSQL_DATABASE_ENGINE overrides database.engine, and so on.
	v.SetEnvPrefix("HTSQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	// A relative catalog or database path is relative to the config file.
	if configPath != "" {
		base := filepath.Dir(configPath)
		cfg.Catalog = resolvePath(base, cfg.Catalog)
		cfg.Database.Path = resolvePath(base, cfg.Database.Path)
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog", "")
	v.SetDefault("dialect", "")
	v.SetDefault("format", "json")

	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.path", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "prefer")

	v.SetDefault("limit.max_rows", 10000)

	v.SetDefault("log.level", "warn")
}

func resolvePath(base, path string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for htsql.yaml or htsql.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil
}

// DSN returns the database connection string.
// If database.dsn is set, it's returned directly. SQLite databases are
// named by database.path; PostgreSQL DSNs are built from discrete fields.
func (c *Config) DSN() (string, error) {
	db := c.Database

	if db.DSN != "" {
		return db.DSN, nil
	}

	e, err := store.LookupEngine(db.Engine)
	if err != nil {
		return "", err
	}
	switch e.Dialect {
	case "sqlite":
		if db.Path == "" {
			return "", fmt.Errorf("database.path is required for sqlite when database.dsn is not set")
		}
		return db.Path, nil
	case "pgsql":
	default:
		return "", fmt.Errorf("database.dsn is required for %s databases", e.Name)
	}

	if db.Host == "" {
		return "", fmt.Errorf("database.host is required when database.dsn is not set")
	}
	if db.Name == "" {
		return "", fmt.Errorf("database.name is required when database.dsn is not set")
	}
	if db.User == "" {
		return "", fmt.Errorf("database.user is required when database.dsn is not set")
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   "/" + db.Name,
	}
	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	} else {
		u.User = url.User(db.User)
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// HasDatabase reports whether a database is configured.
func (c *Config) HasDatabase() bool {
	return c.Database.DSN != "" || c.Database.Path != "" || c.Database.Host != ""
}

// ResolvedDialect returns the dialect to translate into: the configured
// dialect, else the dialect of the database engine.
func (c *Config) ResolvedDialect() (string, error) {
	if c.Dialect != "" {
		return c.Dialect, nil
	}
	e, err := store.LookupEngine(c.Database.Engine)
	if err != nil {
		return "", err
	}
	return e.Dialect, nil
}

// LogLevel parses log.level ("debug", "info", "warn", "error").
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelWarn, fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	return level, nil
}
