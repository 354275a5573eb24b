package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/klabast/wb-services/team-kalender/internal/storage"
)

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v) failed: %v", args, err)
	}
	return fs
}

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(parseFlags(t), envMap(nil))
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.Listen != DefaultListen {
		t.Errorf("Expected listen %s, got %s", DefaultListen, cfg.Listen)
	}
	if cfg.Storage != storage.KindFile {
		t.Errorf("Expected file storage, got %s", cfg.Storage)
	}
	if cfg.SchoolHolidayState != "NW" {
		t.Errorf("Expected NW, got %s", cfg.SchoolHolidayState)
	}
	if cfg.HolidayTimeout != DefaultHolidayTimeout {
		t.Errorf("Expected timeout %v, got %v", DefaultHolidayTimeout, cfg.HolidayTimeout)
	}
	if cfg.Edit || cfg.Mode() != ModeServe {
		t.Errorf("Expected serve mode, got %s", cfg.Mode())
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlConfig := `listen: ":9000"
storage: sqlite
log_level: debug
school_holiday_state: BY
holiday_timeout: 5s
`
	if err := os.WriteFile(path, []byte(yamlConfig), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	fs := parseFlags(t, "--config", path, "--listen", ":9200")
	cfg, err := LoadConfig(fs, envMap(map[string]string{
		"TEAMKALENDER_LISTEN":    ":9100",
		"TEAMKALENDER_EDIT":      "true",
		"TEAMKALENDER_LOG_LEVEL": "warn",
	}))
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"flag beats env and file", cfg.Listen, ":9200"},
		{"env beats file", cfg.LogLevel, "warn"},
		{"file beats default", cfg.Storage, storage.KindSQLite},
		{"file state", cfg.SchoolHolidayState, "BY"},
		{"file duration", cfg.HolidayTimeout, 5 * time.Second},
		{"env bool", cfg.Edit, true},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, tt.got)
		}
	}
	if cfg.Mode() != ModeEdit {
		t.Errorf("Expected edit mode, got %s", cfg.Mode())
	}
}

func TestLoadConfigConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: \":7000\"\n"), 0644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	cfg, err := LoadConfig(parseFlags(t), envMap(map[string]string{"TEAMKALENDER_CONFIG": path}))
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.Listen != ":7000" {
		t.Errorf("Expected :7000, got %s", cfg.Listen)
	}
}

func TestLoadConfigAuthFileFallback(t *testing.T) {
	cfg, err := LoadConfig(parseFlags(t), envMap(map[string]string{"AUTH_FILE": "/etc/team/auth.secret"}))
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.AuthFile != "/etc/team/auth.secret" {
		t.Errorf("Expected AUTH_FILE to be honoured, got %q", cfg.AuthFile)
	}

	cfg, err = LoadConfig(parseFlags(t), envMap(map[string]string{
		"AUTH_FILE":              "/etc/team/auth.secret",
		"TEAMKALENDER_AUTH_FILE": "/srv/auth.secret",
	}))
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if cfg.AuthFile != "/srv/auth.secret" {
		t.Errorf("Expected prefixed variable to win, got %q", cfg.AuthFile)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{"unknown storage", []string{"--storage", "mongo"}, nil},
		{"unknown state", []string{"--school-holiday-state", "XX"}, nil},
		{"bad env bool", nil, map[string]string{"TEAMKALENDER_DEV": "maybe"}},
		{"bad env duration", nil, map[string]string{"TEAMKALENDER_HOLIDAY_TIMEOUT": "soon"}},
		{"non-positive timeout", []string{"--holiday-timeout", "0s"}, nil},
		{"missing config file", []string{"--config", "/does/not/exist.yaml"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(parseFlags(t, tt.args...), envMap(tt.env)); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestStorageOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/srv/data"
	cfg.Storage = storage.KindSQLite

	opts := cfg.StorageOptions()
	if opts.SQLitePath != filepath.Join("/srv/data", DefaultSQLiteFile) {
		t.Errorf("Expected SQLite file in data dir, got %s", opts.SQLitePath)
	}

	cfg.SQLitePath = "/var/lib/team.db"
	if got := cfg.StorageOptions().SQLitePath; got != "/var/lib/team.db" {
		t.Errorf("Expected explicit path, got %s", got)
	}
}

func TestNewLogger(t *testing.T) {
	for _, dev := range []bool{false, true} {
		log, err := NewLogger("debug", dev)
		if err != nil {
			t.Fatalf("NewLogger(debug, %v) failed: %v", dev, err)
		}
		if !log.Core().Enabled(zap.DebugLevel) {
			t.Errorf("Expected debug level enabled (dev=%v)", dev)
		}
	}
	if _, err := NewLogger("loud", false); err == nil {
		t.Error("Expected error for unknown level")
	}
}
