package internal

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Web       WebConfig         `yaml:"web"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	Exec      ExecConfig        `yaml:"exec"`
	Run       RunConfig         `yaml:"run"`
	RunLog    RunLogConfig      `yaml:"runlog"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Web.Validate(); err != nil {
		return err
	}
	if err := c.Workspace.Validate(); err != nil {
		return err
	}
	if err := c.Exec.Validate(); err != nil {
		return err
	}
	if err := c.Run.Validate(); err != nil {
		return err
	}
	return c.RunLog.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// WebConfig controls the editor pages.
//
// Dir, when set, serves templates and static files from disk and reloads
// them on change. Empty means the embedded copies.
type WebConfig struct {
	Dir       string   `yaml:"dir"`
	Languages []string `yaml:"languages"`
}

// Validate validates the web configuration.
func (c *WebConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Languages, validation.Required, validation.Each(validation.Required)),
	)
}

// WorkspaceConfig bounds the in-memory editor sessions.
type WorkspaceConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxOpen       int           `yaml:"max_open"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.IdleTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.SweepInterval, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.MaxOpen, validation.Min(0)),
	)
}

// ExecConfig controls the local execution endpoint.
type ExecConfig struct {
	Shell          string        `yaml:"shell"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxOutputBytes int64         `yaml:"max_output_bytes"`
	MaxConcurrent  int64         `yaml:"max_concurrent"`
	WorkDir        string        `yaml:"work_dir"`
}

// Validate validates the exec configuration.
func (c *ExecConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Shell, validation.Required),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.MaxOutputBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.MaxConcurrent, validation.Required, validation.Min(int64(1))),
	)
}

// RunConfig selects where workspace runs are sent. An empty Endpoint runs
// them in-process.
type RunConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// Validate validates the run configuration.
func (c *RunConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Endpoint, validation.By(httpURL)),
	)
}

func httpURL(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
}

// RunLogConfig holds the SQLite run history configuration.
type RunLogConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the run log configuration.
func (c *RunLogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Web: WebConfig{
			Languages: []string{"go", "python", "node", "ruby", "rust", "c", "cpp", "java", "bash"},
		},
		Workspace: WorkspaceConfig{
			IdleTTL:       2 * time.Hour,
			SweepInterval: time.Minute,
			MaxOpen:       256,
		},
		Exec: ExecConfig{
			Shell:          "/bin/sh",
			Timeout:        30 * time.Second,
			MaxOutputBytes: 1 << 20,
			MaxConcurrent:  4,
		},
		RunLog: RunLogConfig{
			Path: "./scratchpad.db",
		},
	}
}
