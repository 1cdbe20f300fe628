// Package config loads the run configuration from a YAML file with
// environment overrides for anything secret or deployment-specific.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"

	"github.com/loom-graph/loom/internal/util"
)

// ModelConfig selects and configures the model backend.
type ModelConfig struct {
	Provider          string `yaml:"provider" validate:"required,oneof=openai ollama"`
	ExtractionModel   string `yaml:"extraction_model" validate:"required"`
	VerificationModel string `yaml:"verification_model" validate:"required"`
	BaseURL           string `yaml:"base_url"`
	APIKey            string `yaml:"api_key"`
}

// PipelineConfig tunes pacing and intervals. Zero values fall back to
// the library defaults.
type PipelineConfig struct {
	IntegrationInterval int `yaml:"integration_interval" validate:"gte=0"`
	CheckpointInterval  int `yaml:"checkpoint_interval" validate:"gte=0"`
	MaxRetries          int `yaml:"max_retries" validate:"gte=0"`
	RetryBaseDelayMs    int `yaml:"retry_base_delay_ms" validate:"gte=0"`
	PostCallDelayMs     int `yaml:"post_call_delay_ms" validate:"gte=0"`
	CallTimeoutSec      int `yaml:"call_timeout_sec" validate:"gte=0"`
}

// S3Config points a source at an object-store prefix.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// SourceConfig selects where documents come from.
type SourceConfig struct {
	Kind string   `yaml:"kind" validate:"required,oneof=dir urls s3"`
	Dir  string   `yaml:"dir"`
	URLs []string `yaml:"urls"`
	S3   S3Config `yaml:"s3"`
}

// Config is the full application configuration.
type Config struct {
	Model          ModelConfig    `yaml:"model" validate:"required"`
	Pipeline       PipelineConfig `yaml:"pipeline"`
	Source         SourceConfig   `yaml:"source" validate:"required"`
	CheckpointPath string         `yaml:"checkpoint_path"`
	ServerPort     string         `yaml:"server_port"`
	Debug          bool           `yaml:"debug"`
}

// Load reads path (optional; empty or missing file keeps defaults),
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Model: ModelConfig{
			Provider:          "openai",
			ExtractionModel:   "gpt-4o-mini",
			VerificationModel: "gpt-4o",
		},
		Source:         SourceConfig{Kind: "dir", Dir: "."},
		CheckpointPath: ".loom/checkpoints",
		ServerPort:     "8080",
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		} else if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnv lets deployment environments override the file. Secrets in
// particular should come from the environment, never the file.
func applyEnv(cfg *Config) {
	cfg.Model.Provider = util.GetEnvString("LOOM_MODEL_PROVIDER", cfg.Model.Provider)
	cfg.Model.ExtractionModel = util.GetEnvString("LOOM_EXTRACTION_MODEL", cfg.Model.ExtractionModel)
	cfg.Model.VerificationModel = util.GetEnvString("LOOM_VERIFICATION_MODEL", cfg.Model.VerificationModel)
	cfg.Model.BaseURL = util.GetEnvString("LOOM_MODEL_BASE_URL", cfg.Model.BaseURL)
	cfg.Model.APIKey = util.GetEnvString("LOOM_API_KEY", cfg.Model.APIKey)
	if cfg.Model.APIKey == "" {
		cfg.Model.APIKey = util.GetEnvString("OPENAI_API_KEY", "")
	}

	cfg.CheckpointPath = util.GetEnvString("LOOM_CHECKPOINT_PATH", cfg.CheckpointPath)
	cfg.ServerPort = util.GetEnvString("PORT", cfg.ServerPort)
	cfg.Debug = util.GetEnvBool("LOOM_DEBUG", cfg.Debug)

	cfg.Source.S3.AccessKey = util.GetEnvString("AWS_ACCESS_KEY_ID", cfg.Source.S3.AccessKey)
	cfg.Source.S3.SecretKey = util.GetEnvString("AWS_SECRET_ACCESS_KEY", cfg.Source.S3.SecretKey)
}
