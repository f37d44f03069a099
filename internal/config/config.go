package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Narration
	NarratorProvider string  `mapstructure:"narrator_provider" yaml:"narrator_provider"`
	NarratorModel    string  `mapstructure:"narrator_model" yaml:"narrator_model"`
	APIKey           string  `mapstructure:"api_key" yaml:"api_key"`
	MaxTokens        int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature      float64 `mapstructure:"temperature" yaml:"temperature"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	// Analytics
	QueryAnomalyThreshold  float64 `mapstructure:"query_anomaly_threshold" yaml:"query_anomaly_threshold"`
	ReportAnomalyThreshold float64 `mapstructure:"report_anomaly_threshold" yaml:"report_anomaly_threshold"`
	ClusterK               int     `mapstructure:"cluster_k" yaml:"cluster_k"`
	ClusterMaxIter         int     `mapstructure:"cluster_max_iter" yaml:"cluster_max_iter"`
	ForecastHorizon        int     `mapstructure:"forecast_horizon" yaml:"forecast_horizon"`
	ColumnInference        string  `mapstructure:"column_inference" yaml:"column_inference"`
	// Seed drives k-means seeding; 0 seeds from the clock.
	Seed             uint64 `mapstructure:"seed" yaml:"seed"`
	BatchConcurrency int    `mapstructure:"batch_concurrency" yaml:"batch_concurrency"`
}

// Dir is the per-user configuration directory, ~/.tensorloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tensorloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tensorloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Command flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TENSORLOOM")
	v.AutomaticEnv()

	v.SetDefault("narrator_provider", "template")
	v.SetDefault("narrator_model", "")
	v.SetDefault("api_key", "")
	v.SetDefault("max_tokens", 512)
	v.SetDefault("temperature", 0.2)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("query_anomaly_threshold", 3.0)
	v.SetDefault("report_anomaly_threshold", 2.5)
	v.SetDefault("cluster_k", 3)
	v.SetDefault("cluster_max_iter", 10)
	v.SetDefault("forecast_horizon", 10)
	v.SetDefault("column_inference", "majority")
	v.SetDefault("seed", 0)
	v.SetDefault("batch_concurrency", 4)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Keys lists the settable configuration keys in display order.
func Keys() []string {
	return []string{
		"narrator_provider", "narrator_model", "api_key", "max_tokens", "temperature",
		"http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
		"ollama_host",
		"query_anomaly_threshold", "report_anomaly_threshold", "cluster_k", "cluster_max_iter",
		"forecast_horizon", "column_inference", "seed", "batch_concurrency",
	}
}

// Get returns the display value of key; the API key is masked.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "narrator_provider":
		return c.NarratorProvider, nil
	case "narrator_model":
		return c.NarratorModel, nil
	case "api_key":
		return Mask(c.APIKey), nil
	case "max_tokens":
		return strconv.Itoa(c.MaxTokens), nil
	case "temperature":
		return strconv.FormatFloat(c.Temperature, 'f', -1, 64), nil
	case "http_timeout_sec":
		return strconv.Itoa(c.HTTPTimeoutSec), nil
	case "retry_max_attempts":
		return strconv.Itoa(c.RetryMaxAttempts), nil
	case "retry_base_delay_ms":
		return strconv.Itoa(c.RetryBaseDelayMs), nil
	case "retry_max_delay_ms":
		return strconv.Itoa(c.RetryMaxDelayMs), nil
	case "ollama_host":
		return c.OllamaHost, nil
	case "query_anomaly_threshold":
		return strconv.FormatFloat(c.QueryAnomalyThreshold, 'f', -1, 64), nil
	case "report_anomaly_threshold":
		return strconv.FormatFloat(c.ReportAnomalyThreshold, 'f', -1, 64), nil
	case "cluster_k":
		return strconv.Itoa(c.ClusterK), nil
	case "cluster_max_iter":
		return strconv.Itoa(c.ClusterMaxIter), nil
	case "forecast_horizon":
		return strconv.Itoa(c.ForecastHorizon), nil
	case "column_inference":
		return c.ColumnInference, nil
	case "seed":
		return strconv.FormatUint(c.Seed, 10), nil
	case "batch_concurrency":
		return strconv.Itoa(c.BatchConcurrency), nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

// Set parses val for key and stores it.
func (c *Global) Set(key, val string) error {
	posInt := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return 0, fmt.Errorf("invalid positive int for %s: %q", key, val)
		}
		return i, nil
	}
	posFloat := func() (float64, error) {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 {
			return 0, fmt.Errorf("invalid positive float for %s: %q", key, val)
		}
		return f, nil
	}
	var err error
	switch key {
	case "narrator_provider":
		switch strings.ToLower(val) {
		case "template", "none", "":
			c.NarratorProvider = "template"
		case "openrouter":
			c.NarratorProvider = "openrouter"
		case "ollama", "local":
			c.NarratorProvider = "ollama"
		default:
			return fmt.Errorf("invalid narrator_provider: %s (use template, openrouter or ollama)", val)
		}
	case "narrator_model":
		c.NarratorModel = val
	case "api_key":
		c.APIKey = val
	case "max_tokens":
		c.MaxTokens, err = posInt()
	case "temperature":
		c.Temperature, err = strconv.ParseFloat(val, 64)
		if err != nil || c.Temperature < 0 {
			err = fmt.Errorf("invalid float for temperature: %q", val)
		}
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = posInt()
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = posInt()
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = posInt()
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = posInt()
	case "ollama_host":
		c.OllamaHost = val
	case "query_anomaly_threshold":
		c.QueryAnomalyThreshold, err = posFloat()
	case "report_anomaly_threshold":
		c.ReportAnomalyThreshold, err = posFloat()
	case "cluster_k":
		c.ClusterK, err = posInt()
	case "cluster_max_iter":
		c.ClusterMaxIter, err = posInt()
	case "forecast_horizon":
		c.ForecastHorizon, err = posInt()
	case "column_inference":
		switch val {
		case "majority", "first-row":
			c.ColumnInference = val
		default:
			return fmt.Errorf("invalid column_inference: %s (use majority or first-row)", val)
		}
	case "seed":
		c.Seed, err = strconv.ParseUint(val, 10, 64)
		if err != nil {
			err = fmt.Errorf("invalid seed: %q", val)
		}
	case "batch_concurrency":
		c.BatchConcurrency, err = posInt()
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

// Mask hides all but the ends of a secret.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
