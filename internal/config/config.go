// Copyright (c) 2024 Netskope, Inc. All rights reserved.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/netSkope/dump-migration-tool/internal/mapping"
	"github.com/netSkope/dump-migration-tool/internal/migration"
	"github.com/netSkope/dump-migration-tool/internal/s3"
	"github.com/netSkope/dump-migration-tool/internal/store"
)

const (
	DefaultConfigFile = "migration-config.yaml"
	DefaultDBPort     = 3306
	DefaultDBTimeout  = 30

	DefaultDBConnectAttempts = 3
	DefaultDBConnectDelay    = 2 * time.Second
	DefaultLogDir     = "/tmp"

	envPrefix = "DUMP_MIGRATION_"
)

// ErrMissingDump is returned when a run has no dump file to read.
var ErrMissingDump = errors.New("dump-file is required")

// Config holds all configuration for the migration tool.
type Config struct {
	ConfigFile string

	// Source
	DumpFile string
	Tables   []string

	// Destination
	DBType     string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBAuthFile string
	DBSecret   string // AWS Secrets Manager secret holding {"password": ...}
	DBTimeout  int    // seconds
	SQLitePath string

	// Reachability check before anything is cleared.
	DBConnectAttempts int
	DBConnectDelay    time.Duration

	// Write a .sql script (local path or s3:// URI) instead of loading a database.
	ScriptFile   string
	CreateTables bool

	// AWS
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSSessionToken    string

	// Run tuning
	ProgressEvery int
	InsertTimeout time.Duration
	RunTimeout    time.Duration
	DryRun        bool

	// Reports
	RejectsFile string
	MetricsFile string

	// Output Control
	LogDir    string
	LogStdout bool
	Debug     bool
	Verbose   bool
	Quiet     bool // Suppress progress lines on stdout

	// Schemas declared under "schemas:" in the config file.
	Schemas []*mapping.Schema
}

// Defaults returns a Config holding built-in defaults only.
func Defaults() *Config {
	return &Config{
		ConfigFile:        DefaultConfigFile,
		Tables:            []string{mapping.Leads.Name},
		DBType:            store.DBTypeMariaDB,
		DBPort:            DefaultDBPort,
		DBName:            store.DefaultDBName,
		DBTimeout:         DefaultDBTimeout,
		DBConnectAttempts: DefaultDBConnectAttempts,
		DBConnectDelay:    DefaultDBConnectDelay,
		ProgressEvery:     migration.DefaultProgressEvery,
		LogDir:            DefaultLogDir,
	}
}

// BindFlags registers the configuration flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("config-file", d.ConfigFile, "Config file path")
	fs.String("dump-file", "", "Legacy SQL dump (local path or s3://bucket/key)")
	fs.StringSlice("tables", d.Tables, "Tables to migrate, in order")

	fs.String("db-type", d.DBType, "Destination type: mp-mariadb, aws-aurora, postgres or sqlite")
	fs.String("db-host", "", "Destination host or host:port")
	fs.Int("db-port", d.DBPort, "Destination port when db-host carries none")
	fs.String("db-user", "", "Destination username")
	fs.String("db-password", "", "Destination password")
	fs.String("db-name", d.DBName, "Destination database name")
	fs.String("db-auth", "", "Destination auth file path (JSON with user and password)")
	fs.String("db-secret", "", "AWS Secrets Manager secret holding the destination password")
	fs.Int("db-timeout", d.DBTimeout, "Destination statement timeout in seconds")
	fs.String("sqlite-path", "", "SQLite database file (db-type sqlite)")
	fs.Int("db-connect-attempts", d.DBConnectAttempts, "Destination ping attempts before giving up")
	fs.Duration("db-connect-delay", d.DBConnectDelay, "Delay before the first ping retry, doubled after each")

	fs.String("script-file", "", "Write a SQL script (local path or s3:// URI) instead of loading a database")
	fs.Bool("create-tables", false, "Create destination tables that do not exist")

	fs.String("aws-region", "", "AWS region")
	fs.String("aws-access-key-id", "", "AWS access key id")
	fs.String("aws-secret-access-key", "", "AWS secret access key")
	fs.String("aws-session-token", "", "AWS session token")

	fs.Int("progress-every", d.ProgressEvery, "Report progress every N imported rows")
	fs.Duration("insert-timeout", 0, "Timeout for a single insert (0 disables)")
	fs.Duration("run-timeout", 0, "Deadline for each table run (0 disables)")
	fs.Bool("dry-run", false, "Map rows without touching the destination")

	fs.String("rejects-file", "", "Write rejected rows as CSV (local path or s3:// URI)")
	fs.String("metrics-file", "", "Write run metrics in Prometheus textfile format")

	fs.String("log-dir", d.LogDir, "Log directory")
	fs.Bool("log-stdout", false, "Log to stdout instead of a file")
	fs.Bool("debug", false, "Debug logging")
	fs.Bool("verbose", false, "Log every skipped row at warn level")
	fs.Bool("quiet", false, "Suppress progress lines (useful when run via script)")
}

// Load builds the configuration from fs, environment variables and the YAML
// file. Priority: CLI flags > environment variables > YAML file > defaults.
// fs must have been set up with BindFlags and parsed.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg := Defaults()

	path := cfg.ConfigFile
	if val := os.Getenv(envPrefix + "CONFIG_FILE"); val != "" {
		path = val
	}
	if fs.Changed("config-file") {
		path, _ = fs.GetString("config-file")
	}
	cfg.ConfigFile = path

	// Load from YAML file if it exists
	if path != "" {
		if err := loadFromYAML(cfg, path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Override with environment variables
	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	// Override with CLI flags (highest priority)
	if err := loadFromFlags(cfg, fs); err != nil {
		return nil, err
	}

	if cfg.DBAuthFile != "" {
		if err := cfg.ReadDBAuth(cfg.DBAuthFile); err != nil {
			return nil, fmt.Errorf("failed to read DB auth file: %w", err)
		}
	}
	return cfg, nil
}

// yamlConfig mirrors Config in the file. Pointers tell "unset" from zero.
type yamlConfig struct {
	DumpFile           string   `yaml:"dump_file"`
	Tables             []string `yaml:"tables"`
	DBType             string   `yaml:"db_type"`
	DBHost             string   `yaml:"db_host"`
	DBPort             int      `yaml:"db_port"`
	DBUser             string   `yaml:"db_user"`
	DBPassword         string   `yaml:"db_password"`
	DBName             string   `yaml:"db_name"`
	DBAuthFile         string   `yaml:"db_auth"`
	DBSecret           string   `yaml:"db_secret"`
	DBTimeout          int      `yaml:"db_timeout"`
	DBConnectAttempts  int      `yaml:"db_connect_attempts"`
	DBConnectDelay     string   `yaml:"db_connect_delay"`
	SQLitePath         string   `yaml:"sqlite_path"`
	ScriptFile         string   `yaml:"script_file"`
	CreateTables       *bool    `yaml:"create_tables"`
	AWSRegion          string   `yaml:"aws_region"`
	AWSAccessKeyID     string   `yaml:"aws_access_key_id"`
	AWSSecretAccessKey string   `yaml:"aws_secret_access_key"`
	ProgressEvery      int      `yaml:"progress_every"`
	InsertTimeout      string   `yaml:"insert_timeout"`
	RunTimeout         string   `yaml:"run_timeout"`
	DryRun             *bool    `yaml:"dry_run"`
	RejectsFile        string   `yaml:"rejects_file"`
	MetricsFile        string   `yaml:"metrics_file"`
	LogDir             string   `yaml:"log_dir"`
	LogStdout          *bool    `yaml:"log_stdout"`
	Debug              *bool    `yaml:"debug"`
	Verbose            *bool    `yaml:"verbose"`
	Quiet              *bool    `yaml:"quiet"`
}

// loadFromYAML loads configuration and schema declarations from a YAML file.
func loadFromYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var y yamlConfig
	if err := yaml.Unmarshal(data, &y); err != nil {
		return err
	}

	setString(&cfg.DumpFile, y.DumpFile)
	if len(y.Tables) > 0 {
		cfg.Tables = y.Tables
	}
	setString(&cfg.DBType, y.DBType)
	setString(&cfg.DBHost, y.DBHost)
	setInt(&cfg.DBPort, y.DBPort)
	setString(&cfg.DBUser, y.DBUser)
	setString(&cfg.DBPassword, y.DBPassword)
	setString(&cfg.DBName, y.DBName)
	setString(&cfg.DBAuthFile, y.DBAuthFile)
	setString(&cfg.DBSecret, y.DBSecret)
	setInt(&cfg.DBTimeout, y.DBTimeout)
	setInt(&cfg.DBConnectAttempts, y.DBConnectAttempts)
	if err := setDuration(&cfg.DBConnectDelay, "db_connect_delay", y.DBConnectDelay); err != nil {
		return err
	}
	setString(&cfg.SQLitePath, y.SQLitePath)
	setString(&cfg.ScriptFile, y.ScriptFile)
	setBool(&cfg.CreateTables, y.CreateTables)
	setString(&cfg.AWSRegion, y.AWSRegion)
	setString(&cfg.AWSAccessKeyID, y.AWSAccessKeyID)
	setString(&cfg.AWSSecretAccessKey, y.AWSSecretAccessKey)
	setInt(&cfg.ProgressEvery, y.ProgressEvery)
	if err := setDuration(&cfg.InsertTimeout, "insert_timeout", y.InsertTimeout); err != nil {
		return err
	}
	if err := setDuration(&cfg.RunTimeout, "run_timeout", y.RunTimeout); err != nil {
		return err
	}
	setBool(&cfg.DryRun, y.DryRun)
	setString(&cfg.RejectsFile, y.RejectsFile)
	setString(&cfg.MetricsFile, y.MetricsFile)
	setString(&cfg.LogDir, y.LogDir)
	setBool(&cfg.LogStdout, y.LogStdout)
	setBool(&cfg.Debug, y.Debug)
	setBool(&cfg.Verbose, y.Verbose)
	setBool(&cfg.Quiet, y.Quiet)

	schemas, err := mapping.ParseSchemas(data)
	if err != nil {
		return err
	}
	cfg.Schemas = schemas
	return nil
}

// loadFromEnv loads configuration from DUMP_MIGRATION_* environment variables.
func loadFromEnv(cfg *Config) error {
	setString(&cfg.DumpFile, os.Getenv(envPrefix+"DUMP_FILE"))
	if val := os.Getenv(envPrefix + "TABLES"); val != "" {
		cfg.Tables = splitList(val)
	}
	setString(&cfg.DBType, os.Getenv(envPrefix+"DB_TYPE"))
	setString(&cfg.DBHost, os.Getenv(envPrefix+"DB_HOST"))
	setString(&cfg.DBUser, os.Getenv(envPrefix+"DB_USER"))
	setString(&cfg.DBPassword, os.Getenv(envPrefix+"DB_PASSWORD"))
	setString(&cfg.DBName, os.Getenv(envPrefix+"DB_NAME"))
	setString(&cfg.DBAuthFile, os.Getenv(envPrefix+"DB_AUTH"))
	setString(&cfg.DBSecret, os.Getenv(envPrefix+"DB_SECRET"))
	setString(&cfg.SQLitePath, os.Getenv(envPrefix+"SQLITE_PATH"))
	setString(&cfg.ScriptFile, os.Getenv(envPrefix+"SCRIPT_FILE"))
	setString(&cfg.AWSRegion, os.Getenv(envPrefix+"AWS_REGION"))
	setString(&cfg.RejectsFile, os.Getenv(envPrefix+"REJECTS_FILE"))
	setString(&cfg.MetricsFile, os.Getenv(envPrefix+"METRICS_FILE"))
	setString(&cfg.LogDir, os.Getenv(envPrefix+"LOG_DIR"))

	for name, dst := range map[string]*int{
		"DB_PORT":        &cfg.DBPort,
		"DB_TIMEOUT":          &cfg.DBTimeout,
		"DB_CONNECT_ATTEMPTS": &cfg.DBConnectAttempts,
		"PROGRESS_EVERY":      &cfg.ProgressEvery,
	} {
		if val := os.Getenv(envPrefix + name); val != "" {
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", envPrefix, name, err)
			}
			*dst = n
		}
	}
	for name, dst := range map[string]*time.Duration{
		"INSERT_TIMEOUT":   &cfg.InsertTimeout,
		"RUN_TIMEOUT":      &cfg.RunTimeout,
		"DB_CONNECT_DELAY": &cfg.DBConnectDelay,
	} {
		if err := setDuration(dst, envPrefix+name, os.Getenv(envPrefix+name)); err != nil {
			return err
		}
	}
	for name, dst := range map[string]*bool{
		"CREATE_TABLES": &cfg.CreateTables,
		"DRY_RUN":       &cfg.DryRun,
		"LOG_STDOUT":    &cfg.LogStdout,
		"DEBUG":         &cfg.Debug,
		"VERBOSE":       &cfg.Verbose,
		"QUIET":         &cfg.Quiet,
	} {
		if val := os.Getenv(envPrefix + name); val != "" {
			*dst = val == "true" || val == "1"
		}
	}
	return nil
}

func loadFromFlags(cfg *Config, fs *pflag.FlagSet) error {
	strs := map[string]*string{
		"dump-file":             &cfg.DumpFile,
		"db-type":               &cfg.DBType,
		"db-host":               &cfg.DBHost,
		"db-user":               &cfg.DBUser,
		"db-password":           &cfg.DBPassword,
		"db-name":               &cfg.DBName,
		"db-auth":               &cfg.DBAuthFile,
		"db-secret":             &cfg.DBSecret,
		"sqlite-path":           &cfg.SQLitePath,
		"script-file":           &cfg.ScriptFile,
		"aws-region":            &cfg.AWSRegion,
		"aws-access-key-id":     &cfg.AWSAccessKeyID,
		"aws-secret-access-key": &cfg.AWSSecretAccessKey,
		"aws-session-token":     &cfg.AWSSessionToken,
		"rejects-file":          &cfg.RejectsFile,
		"metrics-file":          &cfg.MetricsFile,
		"log-dir":               &cfg.LogDir,
	}
	ints := map[string]*int{
		"db-port":        &cfg.DBPort,
		"db-timeout":          &cfg.DBTimeout,
		"db-connect-attempts": &cfg.DBConnectAttempts,
		"progress-every":      &cfg.ProgressEvery,
	}
	bools := map[string]*bool{
		"create-tables": &cfg.CreateTables,
		"dry-run":       &cfg.DryRun,
		"log-stdout":    &cfg.LogStdout,
		"debug":         &cfg.Debug,
		"verbose":       &cfg.Verbose,
		"quiet":         &cfg.Quiet,
	}
	durations := map[string]*time.Duration{
		"insert-timeout":   &cfg.InsertTimeout,
		"run-timeout":      &cfg.RunTimeout,
		"db-connect-delay": &cfg.DBConnectDelay,
	}

	var err error
	for name, dst := range strs {
		if fs.Changed(name) {
			if *dst, err = fs.GetString(name); err != nil {
				return err
			}
		}
	}
	for name, dst := range ints {
		if fs.Changed(name) {
			if *dst, err = fs.GetInt(name); err != nil {
				return err
			}
		}
	}
	for name, dst := range bools {
		if fs.Changed(name) {
			if *dst, err = fs.GetBool(name); err != nil {
				return err
			}
		}
	}
	for name, dst := range durations {
		if fs.Changed(name) {
			if *dst, err = fs.GetDuration(name); err != nil {
				return err
			}
		}
	}
	if fs.Changed("tables") {
		if cfg.Tables, err = fs.GetStringSlice("tables"); err != nil {
			return err
		}
	}
	return nil
}

// ValidateRun checks the settings a migration run needs.
func (c *Config) ValidateRun() error {
	if c.DumpFile == "" {
		return ErrMissingDump
	}
	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table is required")
	}
	if c.ProgressEvery <= 0 {
		return fmt.Errorf("progress-every must be positive, got %d", c.ProgressEvery)
	}
	if c.InsertTimeout < 0 || c.RunTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.DryRun || c.ScriptFile != "" {
		return nil
	}
	return c.ValidateDestination()
}

// ValidateDestination checks the database connection settings.
func (c *Config) ValidateDestination() error {
	if c.DBConnectAttempts < 1 {
		return fmt.Errorf("db-connect-attempts must be at least 1, got %d", c.DBConnectAttempts)
	}
	if c.DBConnectDelay < 0 {
		return fmt.Errorf("db-connect-delay must not be negative")
	}
	switch c.DBType {
	case store.DBTypeSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite-path is required when db-type is %s", store.DBTypeSQLite)
		}
	case store.DBTypeMariaDB, store.DBTypeAurora, store.DBTypePostgres:
		if c.DBHost == "" {
			return fmt.Errorf("db-host is required for db-type %s", c.DBType)
		}
	default:
		return fmt.Errorf("unsupported db-type %q", c.DBType)
	}
	return nil
}

// DBAddress returns host:port, adding DBPort when DBHost carries no port.
func (c *Config) DBAddress() string {
	if _, _, err := net.SplitHostPort(c.DBHost); err == nil || c.DBPort <= 0 {
		return c.DBHost
	}
	return net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort))
}

// DBDatabase is the database name, or the file path for SQLite.
func (c *Config) DBDatabase() string {
	if c.DBType == store.DBTypeSQLite {
		return c.SQLitePath
	}
	return c.DBName
}

// NeedsAWS reports whether any input or output lives in AWS.
func (c *Config) NeedsAWS() bool {
	return c.NeedsS3() || (c.DBSecret != "" && c.DBPassword == "")
}

// NeedsS3 reports whether any input or output is an s3:// URI.
func (c *Config) NeedsS3() bool {
	for _, loc := range []string{c.DumpFile, c.ScriptFile, c.RejectsFile} {
		if s3.IsURI(loc) {
			return true
		}
	}
	return false
}

// Registry returns the built-in schemas plus those declared in the config file.
func (c *Config) Registry() (*mapping.Registry, error) {
	reg := mapping.DefaultRegistry()
	for _, s := range c.Schemas {
		if err := reg.Add(s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// SelectedSchemas resolves Tables against Registry.
func (c *Config) SelectedSchemas() ([]*mapping.Schema, error) {
	reg, err := c.Registry()
	if err != nil {
		return nil, err
	}
	schemas := make([]*mapping.Schema, 0, len(c.Tables))
	for _, name := range c.Tables {
		s, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// ReadDBAuth reads destination credentials from an auth file (JSON format).
func (c *Config) ReadDBAuth(authFile string) error {
	if authFile == "" {
		return nil
	}

	data, err := os.ReadFile(authFile)
	if err != nil {
		return fmt.Errorf("failed to read auth file: %w", err)
	}

	var auth struct {
		User     string `json:"user"`
		Password string `json:"password"`
	}

	if err := json.Unmarshal(data, &auth); err != nil {
		return fmt.Errorf("failed to parse auth file: %w", err)
	}

	c.DBUser = auth.User
	c.DBPassword = auth.Password
	return nil
}

func setString(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

func setInt(dst *int, val int) {
	if val > 0 {
		*dst = val
	}
}

func setBool(dst *bool, val *bool) {
	if val != nil {
		*dst = *val
	}
}

func setDuration(dst *time.Duration, name, val string) error {
	if val == "" {
		return nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = d
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
