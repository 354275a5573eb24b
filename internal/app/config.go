package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/klabast/wb-services/team-kalender/internal/holidays"
	"github.com/klabast/wb-services/team-kalender/internal/storage"
)

// Constants
const (
	DefaultListen         = ":8080"
	DefaultDataDir        = "data"
	DefaultSQLiteFile     = "team-kalender.db"
	DefaultLogLevel       = "info"
	DefaultHolidayTimeout = 10 * time.Second
	EnvPrefix             = "TEAMKALENDER_"

	// Error messages
	ErrEditModeDisabled     = "Edit mode disabled"
	ErrInvalidYear          = "Invalid year"
	ErrInvalidMonth         = "Invalid month"
	ErrInvalidMember        = "Invalid member index"
	ErrInvalidBody          = "Invalid request body"
	ErrInvalidState         = "Unknown school holiday state"
	ErrMalformedImport      = "Import data is malformed"
	ErrImportModeMissing    = "Import mode required (overwrite or merge)"
	ErrMemberMissing        = "Member not found"
	ErrInternalServer       = "Internal server error"
	ErrFailedToGenerateJSON = "Failed to generate JSON"

	// Mode strings
	ModeServe = "serve"
	ModeEdit  = "edit"

	// ICS constants
	ICSProductID = "-//Winterberg//Teamkalender//DE"
	ICSTimezone  = "Europe/Berlin"
)

// Config holds the service configuration. Values are resolved in the order
// defaults, YAML file, environment, command line flags; later sources win.
type Config struct {
	Listen             string        `yaml:"listen"`
	DataDir            string        `yaml:"data_dir"`
	Storage            string        `yaml:"storage"`
	SQLitePath         string        `yaml:"sqlite_path"`
	SchoolHolidayState string        `yaml:"school_holiday_state"`
	AuthFile           string        `yaml:"auth_file"`
	LogLevel           string        `yaml:"log_level"`
	Dev                bool          `yaml:"dev"`
	HolidayTimeout     time.Duration `yaml:"holiday_timeout"`
	Edit               bool          `yaml:"edit"`
}

// DefaultConfig returns the built-in defaults. The data directory is
// resolved relative to the working directory.
func DefaultConfig() *Config {
	dataDir := DefaultDataDir
	if cwd, err := os.Getwd(); err == nil {
		dataDir = filepath.Join(cwd, DefaultDataDir)
	}
	return &Config{
		Listen:             DefaultListen,
		DataDir:            dataDir,
		Storage:            storage.KindFile,
		SchoolHolidayState: holidays.DefaultStateCode,
		LogLevel:           DefaultLogLevel,
		HolidayTimeout:     DefaultHolidayTimeout,
	}
}

// Mode returns the mode string for log output.
func (c *Config) Mode() string {
	if c.Edit {
		return ModeEdit
	}
	return ModeServe
}

// StorageOptions returns the backend options derived from c.
func (c *Config) StorageOptions() storage.Options {
	path := c.SQLitePath
	if path == "" {
		path = filepath.Join(c.DataDir, DefaultSQLiteFile)
	}
	return storage.Options{Kind: c.Storage, Dir: c.DataDir, SQLitePath: path}
}

// Validate checks values that cannot be caught by parsing.
func (c *Config) Validate() error {
	switch c.Storage {
	case storage.KindFile, storage.KindSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q (file or sqlite)", c.Storage)
	}
	if _, ok := holidays.LookupState(c.SchoolHolidayState); !ok {
		return fmt.Errorf("unknown school holiday state %q", c.SchoolHolidayState)
	}
	if c.HolidayTimeout <= 0 {
		return fmt.Errorf("holiday_timeout must be positive")
	}
	return nil
}

// BindFlags registers the serve flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to YAML config file (env "+EnvPrefix+"CONFIG)")
	fs.String("listen", DefaultListen, "Address to listen on")
	fs.String("data-dir", DefaultDataDir, "Directory for the file storage backend")
	fs.String("storage", storage.KindFile, "Storage backend: file or sqlite")
	fs.String("sqlite-path", "", "SQLite database path (default: <data-dir>/"+DefaultSQLiteFile+")")
	fs.String("school-holiday-state", holidays.DefaultStateCode, "Default federal state for school holidays")
	fs.String("auth-file", "", "Path to auth file (env AUTH_FILE)")
	fs.String("log-level", DefaultLogLevel, "Log level: debug, info, warn, error")
	fs.Bool("dev", false, "Human readable development logging")
	fs.Duration("holiday-timeout", DefaultHolidayTimeout, "Timeout per school holiday request")
	fs.Bool("edit", false, "Enable edit mode (default is serve mode)")
}

// LoadConfig resolves the configuration from defaults, the YAML file named
// by --config or TEAMKALENDER_CONFIG, TEAMKALENDER_* variables and the
// flags on fs that were set explicitly. fs must already be parsed.
func LoadConfig(fs *pflag.FlagSet, getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	path, _ := fs.GetString("config")
	if path == "" {
		path = getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.applyFlags(fs); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	strs := map[string]*string{
		"LISTEN":               &c.Listen,
		"DATA_DIR":             &c.DataDir,
		"STORAGE":              &c.Storage,
		"SQLITE_PATH":          &c.SQLitePath,
		"SCHOOL_HOLIDAY_STATE": &c.SchoolHolidayState,
		"AUTH_FILE":            &c.AuthFile,
		"LOG_LEVEL":            &c.LogLevel,
	}
	for name, dst := range strs {
		if v := getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	// AUTH_FILE without prefix is honoured for compatibility with existing deployments.
	if c.AuthFile == "" {
		c.AuthFile = getenv("AUTH_FILE")
	}
	bools := map[string]*bool{"DEV": &c.Dev, "EDIT": &c.Edit}
	for name, dst := range bools {
		if v := getenv(EnvPrefix + name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = b
		}
	}
	if v := getenv(EnvPrefix + "HOLIDAY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sHOLIDAY_TIMEOUT: %w", EnvPrefix, err)
		}
		c.HolidayTimeout = d
	}
	return nil
}

func (c *Config) applyFlags(fs *pflag.FlagSet) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetString(name)
		}
	}
	str("listen", &c.Listen)
	str("data-dir", &c.DataDir)
	str("storage", &c.Storage)
	str("sqlite-path", &c.SQLitePath)
	str("school-holiday-state", &c.SchoolHolidayState)
	str("auth-file", &c.AuthFile)
	str("log-level", &c.LogLevel)
	if err == nil && fs.Changed("dev") {
		c.Dev, err = fs.GetBool("dev")
	}
	if err == nil && fs.Changed("edit") {
		c.Edit, err = fs.GetBool("edit")
	}
	if err == nil && fs.Changed("holiday-timeout") {
		c.HolidayTimeout, err = fs.GetDuration("holiday-timeout")
	}
	return err
}
