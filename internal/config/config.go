// Package config loads and saves thot's persistent settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds every setting thot's CLI, API and inspector read at startup.
type Config struct {
	Assemble struct {
		Boot          bool   `toml:"boot"`
		KeyboardLayout string `toml:"keyboard_layout"`
		TabletRoot    string `toml:"tablet_root"`
		OutputFormat  string `toml:"output_format"` // elf, boot
	} `toml:"assemble"`

	Lint struct {
		Enabled         bool `toml:"enabled"`
		WarnDeadCode    bool `toml:"warn_dead_code"`
		WarnRedefine    bool `toml:"warn_redefine"`
		FailOnWarning   bool `toml:"fail_on_warning"`
	} `toml:"lint"`

	Inspector struct {
		ColorOutput  bool `toml:"color_output"`
		BytesPerLine int  `toml:"bytes_per_line"`
	} `toml:"inspector"`

	API struct {
		ListenAddr      string `toml:"listen_addr"`
		MaxTabletBytes  int    `toml:"max_tablet_bytes"`
		AllowedOrigins  string `toml:"allowed_origins"`
	} `toml:"api"`
}

// DefaultConfig returns thot's out-of-the-box settings.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Assemble.Boot = false
	cfg.Assemble.KeyboardLayout = "azerty"
	cfg.Assemble.TabletRoot = "."
	cfg.Assemble.OutputFormat = "elf"

	cfg.Lint.Enabled = true
	cfg.Lint.WarnDeadCode = true
	cfg.Lint.WarnRedefine = true
	cfg.Lint.FailOnWarning = false

	cfg.Inspector.ColorOutput = true
	cfg.Inspector.BytesPerLine = 16

	cfg.API.ListenAddr = ":8080"
	cfg.API.MaxTabletBytes = 1 << 20
	cfg.API.AllowedOrigins = "*"

	return cfg
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "thot")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "thot.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "thot")

	default:
		return "thot.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "thot.toml"
	}

	return filepath.Join(configDir, "thot.toml")
}

// Load reads configuration from the default path, falling back to defaults
// if no file exists yet.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom reads configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo writes configuration to an explicit path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
