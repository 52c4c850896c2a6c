package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bryanchriswhite/RenderWatch/internal/logger"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// InvocationMode selects how the watched artifact is run
type InvocationMode string

const (
	ModeLibrary InvocationMode = "library" // dlopen the copy and call an exported symbol
	ModeProcess InvocationMode = "process" // exec the copy and use its exit code
)

// InvalidPolicy decides what happens to the change signal after an invalid artifact
type InvalidPolicy string

const (
	InvalidAdvance InvalidPolicy = "advance" // treat the bad build as seen
	InvalidRetry   InvalidPolicy = "retry"   // retry every tick like a locked file
)

// Config represents the application configuration
type Config struct {
	Artifact ArtifactConfig `json:"artifact" yaml:"artifact" mapstructure:"artifact"`
	Image    ImageConfig    `json:"image" yaml:"image" mapstructure:"image"`
	Window   WindowConfig   `json:"window" yaml:"window" mapstructure:"window"`
	Watch    WatchConfig    `json:"watch" yaml:"watch" mapstructure:"watch"`
	Overlay  OverlayConfig  `json:"overlay" yaml:"overlay" mapstructure:"overlay"`
	Server   ServerConfig   `json:"server" yaml:"server" mapstructure:"server"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
}

// ArtifactConfig describes the watched build output
type ArtifactConfig struct {
	Path       string         `json:"path" yaml:"path" mapstructure:"path"`
	Mode       InvocationMode `json:"mode" yaml:"mode" mapstructure:"mode"`
	EntryPoint string         `json:"entry_point" yaml:"entry_point" mapstructure:"entry_point"`
	Args       []string       `json:"args" yaml:"args" mapstructure:"args"`
	TempDir    string         `json:"temp_dir" yaml:"temp_dir" mapstructure:"temp_dir"`
}

// ImageConfig describes the image the artifact writes and how it is sized for display
type ImageConfig struct {
	Path   string `json:"path" yaml:"path" mapstructure:"path"`
	Factor int    `json:"factor" yaml:"factor" mapstructure:"factor"`
	Width  int    `json:"width" yaml:"width" mapstructure:"width"`
	Height int    `json:"height" yaml:"height" mapstructure:"height"`
}

// WindowConfig represents the X11 watch window
type WindowConfig struct {
	Title    string `json:"title" yaml:"title" mapstructure:"title"`
	Enabled  bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Topmost  bool   `json:"topmost" yaml:"topmost" mapstructure:"topmost"`
	ResetKey string `json:"reset_key" yaml:"reset_key" mapstructure:"reset_key"`
}

// WatchConfig controls the polling loop
type WatchConfig struct {
	PollInterval  time.Duration `json:"poll_interval" yaml:"poll_interval" mapstructure:"poll_interval"`
	Notify        bool          `json:"notify" yaml:"notify" mapstructure:"notify"`
	InvalidPolicy InvalidPolicy `json:"invalid_policy" yaml:"invalid_policy" mapstructure:"invalid_policy"`
}

// OverlayConfig represents the on-frame status caption
type OverlayConfig struct {
	Enabled bool    `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Opacity float64 `json:"opacity" yaml:"opacity" mapstructure:"opacity"`
}

// ServerConfig represents the optional status server; empty Addr disables it
type ServerConfig struct {
	Addr    string `json:"addr" yaml:"addr" mapstructure:"addr"`
	Quality int    `json:"quality" yaml:"quality" mapstructure:"quality"`
}

// LogConfig represents logging settings
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty" mapstructure:"pretty"`
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		Artifact: ArtifactConfig{
			Path:       "rt.dll",
			Mode:       ModeLibrary,
			EntryPoint: "main",
			Args:       []string{},
		},
		Image: ImageConfig{
			Path:   filepath.Join("Render", "output.ppm"),
			Factor: 2,
		},
		Window: WindowConfig{
			Title:    "Output",
			Enabled:  true,
			Topmost:  true,
			ResetKey: " ",
		},
		Watch: WatchConfig{
			PollInterval:  250 * time.Millisecond,
			InvalidPolicy: InvalidAdvance,
		},
		Overlay: OverlayConfig{
			Opacity: 0.8,
		},
		Server: ServerConfig{
			Quality: 90,
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Validate checks that the configuration can drive the watch loop
func (c *Config) Validate() error {
	if c.Artifact.Path == "" {
		return errors.New("artifact.path must not be empty")
	}
	switch c.Artifact.Mode {
	case ModeLibrary:
		if c.Artifact.EntryPoint == "" {
			return errors.New("artifact.entry_point is required in library mode")
		}
	case ModeProcess:
	default:
		return fmt.Errorf("invalid artifact.mode: %q (use %q or %q)", c.Artifact.Mode, ModeLibrary, ModeProcess)
	}
	if c.Image.Path == "" {
		return errors.New("image.path must not be empty")
	}
	if c.Image.Width < 0 || c.Image.Height < 0 {
		return fmt.Errorf("image size must not be negative: %dx%d", c.Image.Width, c.Image.Height)
	}
	if c.Image.Width == 0 && c.Image.Height == 0 && c.Image.Factor < 1 {
		return fmt.Errorf("image.factor must be at least 1, got %d", c.Image.Factor)
	}
	if c.Watch.PollInterval <= 0 {
		return fmt.Errorf("watch.poll_interval must be positive, got %s", c.Watch.PollInterval)
	}
	switch c.Watch.InvalidPolicy {
	case InvalidAdvance, InvalidRetry:
	default:
		return fmt.Errorf("invalid watch.invalid_policy: %q (use %q or %q)", c.Watch.InvalidPolicy, InvalidAdvance, InvalidRetry)
	}
	if len([]rune(c.Window.ResetKey)) != 1 {
		return fmt.Errorf("window.reset_key must be a single character, got %q", c.Window.ResetKey)
	}
	if c.Server.Quality < 1 || c.Server.Quality > 100 {
		return fmt.Errorf("server.quality must be within [1, 100], got %d", c.Server.Quality)
	}
	if c.Overlay.Opacity < 0 || c.Overlay.Opacity > 1 {
		return fmt.Errorf("overlay.opacity must be within [0, 1], got %v", c.Overlay.Opacity)
	}
	return nil
}

// Manager handles configuration
type Manager struct {
	configPath string
	v          *viper.Viper
	mu         sync.RWMutex
}

// DefaultConfigPath returns $HOME/.config/renderwatch/config.yaml
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "renderwatch", "config.yaml"), nil
}

// NewManager creates a configuration manager backed by the global viper instance,
// so flags bound by the CLI take effect
func NewManager(configFile string) (*Manager, error) {
	return NewManagerWithViper(viper.GetViper(), configFile)
}

// NewManagerWithViper creates a configuration manager backed by v.
// An explicit configFile must exist; the default path is optional.
func NewManagerWithViper(v *viper.Viper, configFile string) (*Manager, error) {
	explicit := configFile != ""
	actualConfigPath := configFile
	if !explicit {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		actualConfigPath = p
	}

	m := &Manager{
		configPath: actualConfigPath,
		v:          v,
	}
	m.setDefaults()

	v.SetEnvPrefix("RENDERWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(actualConfigPath)
	if err := v.ReadInConfig(); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			logger.WithComponent("config").Debug().
				Str("path", actualConfigPath).
				Msg("No config file, using defaults")
		} else {
			return nil, fmt.Errorf("failed to read config %s: %w", actualConfigPath, err)
		}
	} else {
		logger.WithComponent("config").Debug().
			Str("path", actualConfigPath).
			Msg("Config loaded")
	}

	return m, nil
}

// setDefaults registers every default so viper knows all keys (needed for env lookup)
func (m *Manager) setDefaults() {
	d := Defaults()
	m.v.SetDefault("artifact.path", d.Artifact.Path)
	m.v.SetDefault("artifact.mode", string(d.Artifact.Mode))
	m.v.SetDefault("artifact.entry_point", d.Artifact.EntryPoint)
	m.v.SetDefault("artifact.args", d.Artifact.Args)
	m.v.SetDefault("artifact.temp_dir", d.Artifact.TempDir)
	m.v.SetDefault("image.path", d.Image.Path)
	m.v.SetDefault("image.factor", d.Image.Factor)
	m.v.SetDefault("image.width", d.Image.Width)
	m.v.SetDefault("image.height", d.Image.Height)
	m.v.SetDefault("window.title", d.Window.Title)
	m.v.SetDefault("window.enabled", d.Window.Enabled)
	m.v.SetDefault("window.topmost", d.Window.Topmost)
	m.v.SetDefault("window.reset_key", d.Window.ResetKey)
	m.v.SetDefault("watch.poll_interval", d.Watch.PollInterval)
	m.v.SetDefault("watch.notify", d.Watch.Notify)
	m.v.SetDefault("watch.invalid_policy", string(d.Watch.InvalidPolicy))
	m.v.SetDefault("overlay.enabled", d.Overlay.Enabled)
	m.v.SetDefault("overlay.opacity", d.Overlay.Opacity)
	m.v.SetDefault("server.addr", d.Server.Addr)
	m.v.SetDefault("server.quality", d.Server.Quality)
	m.v.SetDefault("log.level", d.Log.Level)
	m.v.SetDefault("log.pretty", d.Log.Pretty)
}

// Load resolves defaults, file, environment and flags into a validated Config
func (m *Manager) Load() (*Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Artifact.Args == nil {
		cfg.Artifact.Args = []string{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Set overrides a single key
func (m *Manager) Set(key string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.v.Set(key, value)
}

// GetViper exposes the underlying viper instance
func (m *Manager) GetViper() *viper.Viper {
	return m.v
}

// GetConfigPath returns the config file path
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// Save writes the resolved configuration to the config file as YAML
func (m *Manager) Save() error {
	cfg, err := m.Load()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}
