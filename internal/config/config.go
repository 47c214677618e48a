package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	charmLog "github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Report   ReportConfig   `toml:"report"`
	Server   ServerConfig   `toml:"server"`
	TUI      TUIConfig      `toml:"tui"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

// DevFileConfig controls the logfmt file sink used in dev mode.
type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type ReportConfig struct {
	TimeFormat     string `toml:"time_format"`
	CSSClass       string `toml:"css_class"`
	WindowDays     int    `toml:"window_days"`
	LongVersion    bool   `toml:"long_version"`
	SectionNumbers bool   `toml:"section_numbers"`
}

type ServerConfig struct {
	Bind        string `toml:"bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type TUIConfig struct {
	Style string `toml:"style"` // dark | light | notty | ascii | dracula | tokyo-night | pink
	Width int    `toml:"width"`
}

// glamourStyles lists the standard style names the terminal renderer accepts.
var glamourStyles = []string{"auto", "dark", "light", "notty", "ascii", "dracula", "tokyo-night", "pink"}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".statusdesk/log",
			},
		},
		Report: ReportConfig{
			TimeFormat:  "%Y-%m-%d",
			CSSClass:    "alertmessage",
			WindowDays:  7,
			LongVersion: true,
		},
		Server: ServerConfig{
			Bind:        "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		TUI: TUIConfig{
			Style: "dark",
			Width: 100,
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if _, err := charmLog.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if strings.TrimSpace(c.Report.TimeFormat) == "" {
		return errors.New("report.time_format is required")
	}
	if c.Report.WindowDays <= 0 {
		return fmt.Errorf("report.window_days must be > 0, got %d", c.Report.WindowDays)
	}
	if strings.ContainsAny(c.Report.CSSClass, "\"<>") {
		return fmt.Errorf("invalid report.css_class: %q", c.Report.CSSClass)
	}

	api := strings.Trim(strings.TrimSpace(c.Server.APIEndpoint), "/")
	mcp := strings.Trim(strings.TrimSpace(c.Server.MCPEndpoint), "/")
	if api != "" && api == mcp {
		return fmt.Errorf("server.api_endpoint and server.mcp_endpoint must differ: %q", c.Server.APIEndpoint)
	}

	style := strings.TrimSpace(strings.ToLower(c.TUI.Style))
	valid := style == ""
	for _, known := range glamourStyles {
		if style == known {
			valid = true
		}
	}
	if !valid {
		return fmt.Errorf("invalid tui.style: %q", c.TUI.Style)
	}
	if c.TUI.Width < 0 {
		return fmt.Errorf("tui.width must be >= 0, got %d", c.TUI.Width)
	}

	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
