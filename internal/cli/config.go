package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/tobert/opsview/internal/detail"
	"github.com/tobert/opsview/internal/refresh"
)

// TokenEnv overrides Control.Token when set.
const TokenEnv = "OPSVIEW_CONTROL_TOKEN"

// ProjectConfigName is looked up from the working directory to the git root.
const ProjectConfigName = ".opsview.yaml"

// Config holds the runtime configuration for the dashboard.
// It can be populated from CLI flags, config files, or both.
type Config struct {
	// Comment field for user documentation (ignored by the application)
	Comment string `yaml:"comment,omitempty"`

	Title       string `yaml:"title,omitempty"`
	Listen      string `yaml:"listen,omitempty" validate:"omitempty,hostname_port"`
	AutoRefresh int    `yaml:"auto_refresh,omitempty" validate:"gte=0"` // seconds, 0 disables
	Shell       string `yaml:"shell,omitempty" validate:"omitempty,oneof=inline bootstrap"`

	Targets []TargetConfig `yaml:"targets,omitempty" validate:"unique=ID,dive"`

	Detail  DetailConfig  `yaml:"detail,omitempty"`
	Control ControlConfig `yaml:"control,omitempty"`
	OTLP    OTLPConfig    `yaml:"otlp,omitempty"`

	LogLevel string `yaml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn warning error"`
	LogJSON  bool   `yaml:"log_json,omitempty"`
}

// TargetConfig binds one panel to an endpoint.
type TargetConfig struct {
	ID         string `yaml:"id" validate:"required,excludesall=/?#"`
	Title      string `yaml:"title,omitempty"`
	URL        string `yaml:"url" validate:"required,url"`
	Kind       string `yaml:"kind,omitempty" validate:"omitempty,oneof=table trace series"`
	DetailKind string `yaml:"detail_kind,omitempty" validate:"omitempty,oneof=job webhook"`
	IDField    string `yaml:"id_field,omitempty" validate:"required_with=DetailKind"`
	Field      string `yaml:"field,omitempty"`
}

// DetailConfig holds detail endpoint templates; {id} is replaced.
type DetailConfig struct {
	Job     string `yaml:"job,omitempty" validate:"omitempty,contains={id}"`
	Webhook string `yaml:"webhook,omitempty" validate:"omitempty,contains={id}"`
}

// ControlConfig maps action names to POST endpoints.
type ControlConfig struct {
	Token   string            `yaml:"token,omitempty"`
	Actions map[string]string `yaml:"actions,omitempty" validate:"dive,keys,required,endkeys,required,url"`
}

// OTLPConfig enables the local trace feed behind /api/trace, fed by a gRPC
// logs receiver, a tailed JSONL file, or both.
type OTLPConfig struct {
	Addr     string `yaml:"addr,omitempty" validate:"omitempty,hostname_port"`
	File     string `yaml:"file,omitempty"`
	Capacity int    `yaml:"capacity,omitempty" validate:"gte=0"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Title:       "opsview",
		Listen:      "127.0.0.1:4390",
		AutoRefresh: 0,
		Shell:       "inline",
		LogLevel:    "info",
	}
}

// LoadConfigFromFile loads configuration from a YAML file at the given path.
// It returns an error if the file cannot be read or parsed.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &config, nil
}

// FindProjectConfig searches for a .opsview.yaml config file.
// It starts in the current directory and walks up looking for the file,
// stopping when it finds a .git directory (project root) or reaches root.
func FindProjectConfig() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return findProjectConfigFrom(dir)
}

func findProjectConfigFrom(dir string) (string, error) {
	for {
		configPath := filepath.Join(dir, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		// git root: stop here even if no config
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", os.ErrNotExist
}

// GlobalConfigPath returns the path to the global config file.
// This is ~/.config/opsview/config.yaml
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "opsview", "config.yaml")
}

// MergeConfigs merges two configs with the overlay taking precedence.
// Fields in overlay override corresponding fields in base; a non-empty
// target list replaces the base list wholesale.
func MergeConfigs(base, overlay *Config) *Config {
	if base == nil {
		base = &Config{}
	}
	if overlay == nil {
		return base
	}

	merged := *base

	if overlay.Title != "" {
		merged.Title = overlay.Title
	}
	if overlay.Listen != "" {
		merged.Listen = overlay.Listen
	}
	if overlay.AutoRefresh > 0 {
		merged.AutoRefresh = overlay.AutoRefresh
	}
	if overlay.Shell != "" {
		merged.Shell = overlay.Shell
	}
	if len(overlay.Targets) > 0 {
		merged.Targets = overlay.Targets
	}

	if overlay.Detail.Job != "" {
		merged.Detail.Job = overlay.Detail.Job
	}
	if overlay.Detail.Webhook != "" {
		merged.Detail.Webhook = overlay.Detail.Webhook
	}

	if overlay.Control.Token != "" {
		merged.Control.Token = overlay.Control.Token
	}
	if len(overlay.Control.Actions) > 0 {
		actions := make(map[string]string, len(base.Control.Actions)+len(overlay.Control.Actions))
		for k, v := range base.Control.Actions {
			actions[k] = v
		}
		for k, v := range overlay.Control.Actions {
			actions[k] = v
		}
		merged.Control.Actions = actions
	}

	if overlay.OTLP.Addr != "" {
		merged.OTLP.Addr = overlay.OTLP.Addr
	}
	if overlay.OTLP.File != "" {
		merged.OTLP.File = overlay.OTLP.File
	}
	if overlay.OTLP.Capacity > 0 {
		merged.OTLP.Capacity = overlay.OTLP.Capacity
	}

	if overlay.LogLevel != "" {
		merged.LogLevel = overlay.LogLevel
	}
	if overlay.LogJSON {
		merged.LogJSON = overlay.LogJSON
	}

	return &merged
}

// LoadEffectiveConfig loads the effective configuration by merging:
// 1. Built-in defaults
// 2. Global config file (if exists)
// 3. Project config file (if exists and configPath is empty)
// 4. Explicit config file (if specified via configPath)
// 5. OPSVIEW_CONTROL_TOKEN
// Later sources override earlier ones. The result is validated.
func LoadEffectiveConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	// global config is optional; unreadable files are ignored
	if globalPath := GlobalConfigPath(); globalPath != "" {
		if globalCfg, err := LoadConfigFromFile(globalPath); err == nil {
			config = MergeConfigs(config, globalCfg)
		}
	}

	if configPath == "" {
		if projectPath, err := FindProjectConfig(); err == nil {
			projectCfg, err := LoadConfigFromFile(projectPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load project config: %w", err)
			}
			config = MergeConfigs(config, projectCfg)
		}
	} else {
		explicitCfg, err := LoadConfigFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		config = MergeConfigs(config, explicitCfg)
	}

	if token := os.Getenv(TokenEnv); token != "" {
		config.Control.Token = token
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports every violation at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", ns, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", ns, fe.Tag()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// RefreshTargets converts the configured targets for the refresh controller.
func (c *Config) RefreshTargets() []refresh.Target {
	targets := make([]refresh.Target, 0, len(c.Targets))
	for _, t := range c.Targets {
		kind := refresh.Kind(t.Kind)
		if kind == "" {
			kind = refresh.KindTable
		}
		title := t.Title
		if title == "" {
			title = t.ID
		}
		targets = append(targets, refresh.Target{
			ID:         t.ID,
			Title:      title,
			URL:        t.URL,
			Kind:       kind,
			DetailKind: t.DetailKind,
			IDField:    t.IDField,
			Field:      t.Field,
		})
	}
	return targets
}

// DetailURLs returns the detail endpoint templates.
func (c *Config) DetailURLs() detail.URLs {
	return detail.URLs{Job: c.Detail.Job, Webhook: c.Detail.Webhook}
}

// RefreshInterval is AutoRefresh as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.AutoRefresh) * time.Second
}
