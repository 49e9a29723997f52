package library

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	// DSN, when set, is passed to the driver verbatim.
	DSN         string        `yaml:"dsn"`
	Path        string        `yaml:"path"`
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	Username    string        `yaml:"user"`
	Password    string        `yaml:"password"`
	DBName      string        `yaml:"dbname"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

type LoanConfig struct {
	PeriodDays         int           `yaml:"period_days"`
	FinePerDay         Cents         `yaml:"fine_per_day"`
	EnforceBorrowLimit bool          `yaml:"enforce_borrow_limit"`
	TxTimeout          time.Duration `yaml:"tx_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AdminConfig struct {
	PasswordHash string `yaml:"password_hash"`
}

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Loans    LoanConfig     `yaml:"loans"`
	Log      LogConfig      `yaml:"log"`
	Admin    AdminConfig    `yaml:"admin"`
	Seed     bool           `yaml:"seed"`
}

// DefaultConfig is a local SQLite library with the sample catalog.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:      "sqlite3",
			Path:        "library.db",
			Port:        3306,
			BusyTimeout: 5 * time.Second,
		},
		Loans: LoanConfig{
			PeriodDays:         14,
			FinePerDay:         50,
			EnforceBorrowLimit: true,
			TxTimeout:          5 * time.Second,
		},
		Log:  LogConfig{Level: "info", Format: "text"},
		Seed: true,
	}
}

// LoadConfig reads a YAML file over the defaults and then applies
// BOOKFLOW_* environment overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("BOOKFLOW_DB_DRIVER"); ok {
		c.Database.Driver = v
	}
	if v, ok := lookup("BOOKFLOW_DB_DSN"); ok {
		c.Database.DSN = v
	}
	if v, ok := lookup("BOOKFLOW_DB_PATH"); ok {
		c.Database.Path = v
	}
	if v, ok := lookup("BOOKFLOW_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("BOOKFLOW_ADMIN_HASH"); ok {
		c.Admin.PasswordHash = v
	}
	if v, ok := lookup("BOOKFLOW_SEED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: BOOKFLOW_SEED=%q", ErrInvalidArgument, v)
		}
		c.Seed = b
	}
	return nil
}

func (c *Config) Validate() error {
	if _, err := dialectFor(c.Database.Driver); err != nil {
		return err
	}
	if c.Loans.PeriodDays <= 0 {
		return fmt.Errorf("%w: loans.period_days must be > 0", ErrInvalidArgument)
	}
	if c.Loans.FinePerDay < 0 {
		return fmt.Errorf("%w: loans.fine_per_day must be >= 0", ErrInvalidArgument)
	}
	if c.Loans.TxTimeout <= 0 {
		return fmt.Errorf("%w: loans.tx_timeout must be > 0", ErrInvalidArgument)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// DataSourceName builds the driver DSN.
func (c DatabaseConfig) DataSourceName() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	d, err := dialectFor(c.Driver)
	if err != nil {
		return "", err
	}
	switch d.driver {
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = c.Username
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
		mc.DBName = c.DBName
		mc.ParseTime = true
		mc.ClientFoundRows = true
		mc.Loc = time.UTC
		mc.Timeout = 3 * time.Second
		mc.ReadTimeout = 5 * time.Second
		mc.WriteTimeout = 5 * time.Second
		return mc.FormatDSN(), nil
	default:
		// WAL lets readers proceed during a write; _txlock=immediate makes
		// every transaction take the write lock at BEGIN.
		return fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=1&_journal_mode=WAL&_txlock=immediate",
			c.Path, c.BusyTimeout.Milliseconds()), nil
	}
}

// NewLogger builds the process logger from the log section.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidArgument, s)
	}
	return level, nil
}
