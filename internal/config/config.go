// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Agent    AgentConfig    `mapstructure:"agent" yaml:"agent"`
	Reward   RewardConfig   `mapstructure:"reward" yaml:"reward"`
	Training TrainingConfig `mapstructure:"training" yaml:"training"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the headless browser environment driver.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	MaxElements       int           `mapstructure:"max_elements" yaml:"max_elements"`
	// ActionsPerSecond paces element interactions against the target so a
	// long training run doesn't hammer the application under test.
	ActionsPerSecond float64 `mapstructure:"actions_per_second" yaml:"actions_per_second"`
	Viewport         map[string]int `mapstructure:"viewport" yaml:"viewport"`
}

// AgentConfig holds the learning hyperparameters shared by both agents.
type AgentConfig struct {
	StateSize      int     `mapstructure:"state_size" yaml:"state_size"`
	ActionSize     int     `mapstructure:"action_size" yaml:"action_size"`
	HiddenSize     int     `mapstructure:"hidden_size" yaml:"hidden_size"`
	LearningRate   float64 `mapstructure:"learning_rate" yaml:"learning_rate"`
	DiscountFactor float64 `mapstructure:"discount_factor" yaml:"discount_factor"`
	BatchSize      int     `mapstructure:"batch_size" yaml:"batch_size"`
	ReplayCapacity int     `mapstructure:"replay_capacity" yaml:"replay_capacity"`
	EpsilonStart   float64 `mapstructure:"epsilon_start" yaml:"epsilon_start"`
	EpsilonMin     float64 `mapstructure:"epsilon_min" yaml:"epsilon_min"`
	EpsilonDecay   float64 `mapstructure:"epsilon_decay" yaml:"epsilon_decay"`
}

// RewardConfig holds the component weights and coverage baselines.
type RewardConfig struct {
	ExplorationWeight  float64 `mapstructure:"exploration_weight" yaml:"exploration_weight"`
	CoverageWeight     float64 `mapstructure:"coverage_weight" yaml:"coverage_weight"`
	QualityWeight      float64 `mapstructure:"quality_weight" yaml:"quality_weight"`
	BugDiscoveryWeight float64 `mapstructure:"bug_discovery_weight" yaml:"bug_discovery_weight"`
	EfficiencyWeight   float64 `mapstructure:"efficiency_weight" yaml:"efficiency_weight"`
	// Baselines are estimates of the total reachable surface of the target
	// application; coverage ratios are computed against them.
	TotalPages        int `mapstructure:"total_pages" yaml:"total_pages"`
	TotalElements     int `mapstructure:"total_elements" yaml:"total_elements"`
	TotalInteractions int `mapstructure:"total_interactions" yaml:"total_interactions"`
}

// TrainingConfig drives the episode loop.
type TrainingConfig struct {
	TargetURL       string `mapstructure:"target_url" yaml:"target_url"`
	Episodes        int    `mapstructure:"episodes" yaml:"episodes"`
	MaxSteps        int    `mapstructure:"max_steps" yaml:"max_steps"`
	UpdateFrequency int    `mapstructure:"update_frequency" yaml:"update_frequency"`
	// SuiteInterval controls how often (in episodes) the accumulated
	// scenarios are rendered into a Cypress suite on disk.
	SuiteInterval int    `mapstructure:"suite_interval" yaml:"suite_interval"`
	OutputDir     string `mapstructure:"output_dir" yaml:"output_dir"`
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "testweaver")
	v.SetDefault("logger.log_file", "testweaver.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.post_load_wait", "2s")
	v.SetDefault("browser.max_elements", 100)
	v.SetDefault("browser.actions_per_second", 4.0)

	// -- Agent --
	v.SetDefault("agent.state_size", 160)
	v.SetDefault("agent.action_size", 20)
	v.SetDefault("agent.hidden_size", 64)
	v.SetDefault("agent.learning_rate", 0.001)
	v.SetDefault("agent.discount_factor", 0.95)
	v.SetDefault("agent.batch_size", 32)
	v.SetDefault("agent.replay_capacity", 10000)
	v.SetDefault("agent.epsilon_start", 1.0)
	v.SetDefault("agent.epsilon_min", 0.01)
	v.SetDefault("agent.epsilon_decay", 0.995)

	// -- Reward --
	v.SetDefault("reward.exploration_weight", 0.30)
	v.SetDefault("reward.coverage_weight", 0.25)
	v.SetDefault("reward.quality_weight", 0.20)
	v.SetDefault("reward.bug_discovery_weight", 0.15)
	v.SetDefault("reward.efficiency_weight", 0.10)
	v.SetDefault("reward.total_pages", 50)
	v.SetDefault("reward.total_elements", 1000)
	v.SetDefault("reward.total_interactions", 100)

	// -- Training --
	v.SetDefault("training.target_url", "http://localhost:3000")
	v.SetDefault("training.episodes", 100)
	v.SetDefault("training.max_steps", 50)
	v.SetDefault("training.update_frequency", 10)
	v.SetDefault("training.suite_interval", 50)
	v.SetDefault("training.output_dir", "generated_tests")
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Agent.StateSize <= 0 {
		return fmt.Errorf("agent.state_size must be a positive integer")
	}
	if c.Agent.ActionSize < len(knownActionTypes) {
		return fmt.Errorf("agent.action_size must cover all %d action types", len(knownActionTypes))
	}
	if c.Agent.BatchSize <= 0 || c.Agent.ReplayCapacity < c.Agent.BatchSize {
		return fmt.Errorf("agent.replay_capacity must be at least agent.batch_size")
	}
	if c.Agent.DiscountFactor <= 0 || c.Agent.DiscountFactor >= 1 {
		return fmt.Errorf("agent.discount_factor must be in (0, 1)")
	}
	if c.Agent.EpsilonDecay <= 0 || c.Agent.EpsilonDecay > 1 {
		return fmt.Errorf("agent.epsilon_decay must be in (0, 1]")
	}
	weightSum := c.Reward.ExplorationWeight + c.Reward.CoverageWeight +
		c.Reward.QualityWeight + c.Reward.BugDiscoveryWeight + c.Reward.EfficiencyWeight
	if diff := weightSum - 1.0; diff > 1e-9 || diff < -1e-9 {
		return fmt.Errorf("reward component weights must sum to 1.0, got %v", weightSum)
	}
	if c.Reward.TotalPages <= 0 || c.Reward.TotalElements <= 0 || c.Reward.TotalInteractions <= 0 {
		return fmt.Errorf("reward coverage baselines must be positive")
	}
	if c.Training.MaxSteps <= 0 {
		return fmt.Errorf("training.max_steps must be a positive integer")
	}
	if c.Training.UpdateFrequency <= 0 {
		return fmt.Errorf("training.update_frequency must be a positive integer")
	}
	return nil
}

// knownActionTypes mirrors schemas.ActionTypes without importing it; config
// must stay a leaf package.
var knownActionTypes = []string{
	"click", "type", "select", "scroll_up", "scroll_down", "wait",
	"navigate_back", "navigate_forward", "refresh", "hover",
}
