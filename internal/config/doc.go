// Package config loads htsql.yaml.
//
// Settings are taken, by increasing precedence, from defaults, the config
// file (given explicitly or found by walking up from the working
// directory to the repository root) and HTSQL_* environment variables
// such as HTSQL_DATABASE_DSN or HTSQL_LIMIT_MAX_ROWS.
package config
