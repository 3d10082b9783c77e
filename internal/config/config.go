package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config controls the web UI server. Paths that are left empty are derived
// from WorkDir by Validate.
type Config struct {
	// WorkDir is the AFD work directory (AFD_WORK_DIR). Required.
	WorkDir string `json:"work_dir" yaml:"work_dir"`
	// Listen address, e.g. ":8040" or "127.0.0.1:8040".
	Listen  string `json:"listen" yaml:"listen"`
	PidFile string `json:"pid_file" yaml:"pid_file"`

	NoTLS bool `json:"no_tls" yaml:"no_tls"`
	// CertDir holds public-cert.pem and private-key.pem.
	CertDir string `json:"cert_dir" yaml:"cert_dir"`
	// WebDir is served below /ui/.
	WebDir string `json:"web_dir" yaml:"web_dir"`

	// UsersFile is a JSON object user -> password (plain or bcrypt).
	UsersFile string `json:"users_file" yaml:"users_file"`
	Realm     string `json:"realm" yaml:"realm"`

	Verbose bool   `json:"verbose" yaml:"verbose"`
	LogFile string `json:"log_file" yaml:"log_file"`

	// Mock answers commands from MockDir/dummy.<cmd>.txt.
	Mock    bool   `json:"mock" yaml:"mock"`
	MockDir string `json:"mock_dir" yaml:"mock_dir"`

	CommandTimeoutSec int `json:"command_timeout_sec" yaml:"command_timeout_sec"`
	StatusTimeoutMS   int `json:"status_timeout_ms" yaml:"status_timeout_ms"`
	FSAIntervalMS     int `json:"fsa_interval_ms" yaml:"fsa_interval_ms"`
	HeartbeatSec      int `json:"heartbeat_sec" yaml:"heartbeat_sec"`
	// MaxOutputMB is the default stdout limit of a command, 1..10.
	MaxOutputMB int `json:"max_output_mb" yaml:"max_output_mb"`

	// Stale HOST_CONFIG temp files are removed by the maintenance loop.
	TmpCleanupIntervalSec int `json:"tmp_cleanup_interval_sec" yaml:"tmp_cleanup_interval_sec"`
	TmpCleanupMaxAgeSec   int `json:"tmp_cleanup_max_age_sec" yaml:"tmp_cleanup_max_age_sec"`
}

func Default() Config {
	return Config{
		Listen:                ":8040",
		WebDir:                "public",
		Realm:                 "AFD",
		MockDir:               "mock",
		CommandTimeoutSec:     30,
		StatusTimeoutMS:       3000,
		FSAIntervalMS:         2000,
		HeartbeatSec:          10,
		MaxOutputMB:           1,
		TmpCleanupIntervalSec: 15 * 60,
		TmpCleanupMaxAgeSec:   60 * 60,
	}
}

// Load reads a JSON or YAML (.yaml/.yml) config file over the defaults. An
// empty path yields the defaults. The result is not validated; flags are
// usually applied first.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	default:
		err = json.Unmarshal(b, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate fills derived defaults and reports problems.
func (c *Config) Validate() error {
	c.WorkDir = strings.TrimSpace(c.WorkDir)
	if c.WorkDir == "" {
		return fmt.Errorf("work_dir is required (-w)")
	}
	abs, err := filepath.Abs(c.WorkDir)
	if err != nil {
		return fmt.Errorf("work_dir: %w", err)
	}
	c.WorkDir = abs
	if fi, err := os.Stat(c.WorkDir); err != nil {
		return fmt.Errorf("work_dir: %w", err)
	} else if !fi.IsDir() {
		return fmt.Errorf("work_dir %s is not a directory", c.WorkDir)
	}

	if c.Listen == "" {
		c.Listen = ":8040"
	}
	if c.PidFile == "" {
		c.PidFile = filepath.Join(c.WorkDir, "fifodir", "webui.pid")
	}
	if c.WebDir == "" {
		c.WebDir = "public"
	}
	if c.CertDir == "" {
		c.CertDir = filepath.Join(filepath.Dir(filepath.Clean(c.WebDir)), "certs")
	}
	if c.UsersFile == "" {
		c.UsersFile = filepath.Join(c.WorkDir, "etc", "webui.users")
	}
	if c.Realm == "" {
		c.Realm = "AFD"
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.WorkDir, "log", "webui.log")
	}
	if c.MockDir == "" {
		c.MockDir = "mock"
	}

	if c.CommandTimeoutSec <= 0 {
		c.CommandTimeoutSec = 30
	}
	if c.StatusTimeoutMS <= 0 {
		c.StatusTimeoutMS = 3000
	}
	if c.FSAIntervalMS <= 0 {
		c.FSAIntervalMS = 2000
	}
	// fsa_view is not meant to be hammered.
	if c.FSAIntervalMS < 250 {
		c.FSAIntervalMS = 250
	}
	if c.HeartbeatSec <= 0 {
		c.HeartbeatSec = 10
	}
	if c.MaxOutputMB <= 0 {
		c.MaxOutputMB = 1
	}
	if c.MaxOutputMB > 10 {
		c.MaxOutputMB = 10
	}

	if c.TmpCleanupIntervalSec <= 0 {
		c.TmpCleanupIntervalSec = 15 * 60
	}
	if c.TmpCleanupIntervalSec < 10 {
		c.TmpCleanupIntervalSec = 10
	}
	if c.TmpCleanupMaxAgeSec <= 0 {
		c.TmpCleanupMaxAgeSec = 60 * 60
	}
	if c.TmpCleanupMaxAgeSec < 60 {
		c.TmpCleanupMaxAgeSec = 60
	}
	return nil
}

// EtcDir is <work_dir>/etc.
func (c Config) EtcDir() string { return filepath.Join(c.WorkDir, "etc") }

// HostConfigPath is <work_dir>/etc/HOST_CONFIG.
func (c Config) HostConfigPath() string { return filepath.Join(c.EtcDir(), "HOST_CONFIG") }

// ArchiveDir is <work_dir>/archive.
func (c Config) ArchiveDir() string { return filepath.Join(c.WorkDir, "archive") }

// CertFiles returns the certificate and key paths.
func (c Config) CertFiles() (cert, key string) {
	return filepath.Join(c.CertDir, "public-cert.pem"), filepath.Join(c.CertDir, "private-key.pem")
}
