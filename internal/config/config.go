package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/hopboxdev/webgreeter/internal/lockhint"
	"github.com/hopboxdev/webgreeter/internal/theme"
)

// DefaultPath is where the greeter looks for its config file.
const DefaultPath = "/etc/lightdm/web-greeter.toml"

// Defaults for the [host] table.
const (
	DefaultThemeDir   = "/usr/share/web-greeter/themes"
	DefaultRuntimeDir = "/run/web-greeter"
	DefaultCDPURL     = "http://127.0.0.1:9222"
)

// Config is the greeter configuration.
type Config struct {
	Greeter Greeter `toml:"greeter"`
	Host    Host    `toml:"host"`
}

// Greeter holds the [greeter] table.
type Greeter struct {
	Theme              string `toml:"webkit_theme"`
	ScreensaverTimeout int    `toml:"screensaver_timeout"` // seconds
	DebugMode          bool   `toml:"debug_mode"`
}

// fileGreeter is the [greeter] table as written on disk. The hyphenated
// keys are accepted as aliases, and a timeout that is not a positive
// integer falls back to the default instead of failing the load.
type fileGreeter struct {
	Theme        string `toml:"webkit_theme"`
	ThemeAlias   string `toml:"webkit-theme"`
	Timeout      any    `toml:"screensaver_timeout"`
	TimeoutAlias any    `toml:"screensaver-timeout"`
	DebugMode    bool   `toml:"debug_mode"`
}

type file struct {
	Greeter fileGreeter `toml:"greeter"`
	Host    Host        `toml:"host"`
}

// Host holds the [host] table: where things live on this machine.
type Host struct {
	ThemeDir       string   `toml:"theme_dir"`
	RuntimeDir     string   `toml:"runtime_dir"` // bridge and control sockets
	CDPURL         string   `toml:"cdp_url"`     // DevTools HTTP endpoint of the engine
	BrowserCommand []string `toml:"browser_command"`
	Display        string   `toml:"display"` // X display, "" means $DISPLAY
	MetricsAddr    string   `toml:"metrics_addr"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads the config at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var f file
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %q: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}
	cfg := f.config()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

func (f *file) config() *Config {
	g := f.Greeter
	name := theme.NameFromConfig(g.Theme)
	if name == "" {
		name = theme.NameFromConfig(g.ThemeAlias)
	}
	timeout, ok := seconds(g.Timeout)
	if !ok {
		timeout, _ = seconds(g.TimeoutAlias)
	}
	return &Config{
		Greeter: Greeter{Theme: name, ScreensaverTimeout: timeout, DebugMode: g.DebugMode},
		Host:    f.Host,
	}
}

// seconds accepts a TOML integer or a numeric string.
func seconds(v any) (int, bool) {
	var n int
	switch v := v.(type) {
	case int64:
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	return n, n > 0
}

func (c *Config) applyDefaults() {
	g := &c.Greeter
	if g.Theme == "" {
		g.Theme = theme.DefaultName
	}
	if g.ScreensaverTimeout <= 0 {
		g.ScreensaverTimeout = lockhint.DefaultTimeout
	}

	h := &c.Host
	if h.ThemeDir == "" {
		h.ThemeDir = DefaultThemeDir
	}
	if h.RuntimeDir == "" {
		h.RuntimeDir = DefaultRuntimeDir
	}
	if h.CDPURL == "" && len(h.BrowserCommand) == 0 {
		h.CDPURL = DefaultCDPURL
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if strings.ContainsRune(c.Greeter.Theme, filepath.Separator) || c.Greeter.Theme == ".." {
		return fmt.Errorf("webkit_theme %q must be a theme name, not a path", c.Greeter.Theme)
	}
	if c.Host.CDPURL != "" && len(c.Host.BrowserCommand) > 0 {
		return errors.New("cdp_url and browser_command are mutually exclusive")
	}
	return nil
}

// BridgeSocket returns the path of the GreeterBridge message socket.
func (c *Config) BridgeSocket() string {
	return filepath.Join(c.Host.RuntimeDir, "GreeterBridge.sock")
}

// ControlSocket returns the path of the control socket.
func (c *Config) ControlSocket() string {
	return filepath.Join(c.Host.RuntimeDir, "control.sock")
}
