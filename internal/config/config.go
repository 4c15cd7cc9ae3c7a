package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/loykin/glosaurus/internal/bootstrap"
	"github.com/loykin/glosaurus/internal/env"
	"github.com/loykin/glosaurus/internal/forwarder"
	"github.com/loykin/glosaurus/internal/logger"
	"github.com/loykin/glosaurus/internal/platform"
	"github.com/loykin/glosaurus/internal/process"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides: GLOSAURUS_SERVER_ADDR overrides
// server.addr.
const EnvPrefix = "GLOSAURUS"

// BackendBaseName is the backend executable name inside resource_dir/bin.
const BackendBaseName = "backend"

// Config represents the top-level TOML structure.
type Config struct {
	Backend   BackendConfig    `mapstructure:"backend"`
	Server    ServerConfig     `mapstructure:"server"`
	Forwarder forwarder.Config `mapstructure:"forwarder"`
	Runtime   bootstrap.Config `mapstructure:"runtime"`
	Log       logger.Config    `mapstructure:"log"`
	History   HistoryConfig    `mapstructure:"history"`
	// CloseWait bounds how long a close request waits for the backend to
	// exit. Zero closes immediately after signalling.
	CloseWait time.Duration `mapstructure:"close_wait"`

	dir string // directory of the loaded file, for relative env_files
}

type BackendConfig struct {
	Name         string   `mapstructure:"name"`
	ResourceDir  string   `mapstructure:"resource_dir"` // defaults to the host executable's directory
	Path         string   `mapstructure:"path"`         // explicit executable; overrides resource_dir/bin/backend
	Args         []string `mapstructure:"args"`
	WorkDir      string   `mapstructure:"work_dir"`
	Env          []string `mapstructure:"env"`
	EnvFiles     []string `mapstructure:"env_files"`
	InheritEnv   bool     `mapstructure:"inherit_env"`
	InheritStdio bool     `mapstructure:"inherit_stdio"`
}

type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	BasePath    string `mapstructure:"base_path"`
	FrontendDir string `mapstructure:"frontend_dir"`
	OpenBrowser bool   `mapstructure:"open_browser"`
}

// HistoryConfig enables the lifecycle history store when Path is set.
// Path may be a file path or a sqlite:// DSN.
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

func (h HistoryConfig) Enabled() bool { return strings.TrimSpace(h.Path) != "" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.name", BackendBaseName)
	v.SetDefault("backend.resource_dir", "")
	v.SetDefault("backend.path", "")
	v.SetDefault("backend.args", []string{})
	v.SetDefault("backend.work_dir", "")
	v.SetDefault("backend.env", []string{})
	v.SetDefault("backend.env_files", []string{})
	v.SetDefault("backend.inherit_env", true)
	v.SetDefault("backend.inherit_stdio", true)

	v.SetDefault("server.addr", "127.0.0.1:1420")
	v.SetDefault("server.base_path", "")
	v.SetDefault("server.frontend_dir", "")
	v.SetDefault("server.open_browser", false)

	v.SetDefault("forwarder.timeout", time.Duration(0))
	v.SetDefault("forwarder.max_redirects", forwarder.DefaultMaxRedirects)
	v.SetDefault("forwarder.user_agent", "")

	v.SetDefault("runtime.enabled", true)
	v.SetDefault("runtime.poll_interval", bootstrap.DefaultPollInterval)
	v.SetDefault("runtime.poll_attempts", bootstrap.DefaultPollAttempts)
	v.SetDefault("runtime.download_timeout", bootstrap.DefaultDownloadTimeout)
	v.SetDefault("runtime.temp_dir", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.color", true)
	v.SetDefault("log.file.dir", "")
	v.SetDefault("log.file.stdout", "")
	v.SetDefault("log.file.stderr", "")
	v.SetDefault("log.file.max_size_mb", logger.DefaultMaxSizeMB)
	v.SetDefault("log.file.max_backups", logger.DefaultMaxBackups)
	v.SetDefault("log.file.max_age_days", logger.DefaultMaxAgeDays)
	v.SetDefault("log.file.compress", false)

	v.SetDefault("history.path", "")
	v.SetDefault("close_wait", time.Duration(0))
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c, err := Load("")
	if err != nil {
		// defaults alone always decode
		panic(err)
	}
	return c
}

// Load reads the TOML file at path (optional) and applies GLOSAURUS_*
// environment overrides on top of it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if path != "" {
		c.dir = filepath.Dir(path)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.CloseWait < 0 {
		errs = append(errs, errors.New("close_wait must not be negative"))
	}
	if c.Forwarder.Timeout < 0 {
		errs = append(errs, errors.New("forwarder.timeout must not be negative"))
	}
	if c.Runtime.PollAttempts < 0 {
		errs = append(errs, errors.New("runtime.poll_attempts must not be negative"))
	}
	if c.Runtime.PollInterval < 0 {
		errs = append(errs, errors.New("runtime.poll_interval must not be negative"))
	}
	return errors.Join(errs...)
}

// BackendPath resolves the backend executable: the explicit path when set,
// otherwise resource_dir/bin/backend with the platform's suffix.
func (c *Config) BackendPath(p platform.Platform) (string, error) {
	if c.Backend.Path != "" {
		return c.Backend.Path, nil
	}
	dir := c.Backend.ResourceDir
	if dir == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("resolve resource dir: %w", err)
		}
		dir = filepath.Dir(exe)
	}
	return filepath.Join(dir, "bin", p.ExecutableName(BackendBaseName)), nil
}

// BackendSpec builds the process spec for the backend.
func (c *Config) BackendSpec(p platform.Platform) (process.Spec, error) {
	path, err := c.BackendPath(p)
	if err != nil {
		return process.Spec{}, err
	}
	e := env.New(c.Backend.InheritEnv)
	for _, f := range c.Backend.EnvFiles {
		if !filepath.IsAbs(f) && c.dir != "" {
			f = filepath.Join(c.dir, f)
		}
		if err := e.LoadFile(f); err != nil {
			return process.Spec{}, err
		}
	}
	e.SetPairs(c.Backend.Env)
	var vars []string
	if !c.Backend.InheritEnv || len(c.Backend.Env) > 0 || len(c.Backend.EnvFiles) > 0 {
		vars = e.Build()
	}
	return process.Spec{
		Name:         c.Backend.Name,
		Path:         path,
		Args:         c.Backend.Args,
		WorkDir:      c.Backend.WorkDir,
		Env:          vars,
		InheritStdio: c.Backend.InheritStdio,
		Log:          c.Log,
	}, nil
}
