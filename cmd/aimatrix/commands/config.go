package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"aimatrix/pkg/core"
)

type Config struct {
	Suite          string         `mapstructure:"suite"`
	Trials         int            `mapstructure:"trials"`
	PauseMillis    int            `mapstructure:"pause_millis"`
	Workers        int            `mapstructure:"workers"`
	Output         string         `mapstructure:"output"`
	Format         string         `mapstructure:"format"`
	LogDir         string         `mapstructure:"log_dir"`
	Provider       string         `mapstructure:"provider"`
	RateLimitRPS   float64        `mapstructure:"rate_limit_rps"`
	RateLimitBurst int            `mapstructure:"rate_limit_burst"`
	Configs        []ConfigSpec   `mapstructure:"configs"`
	OpenAI         ProviderConfig `mapstructure:"openai"`
	Anthropic      ProviderConfig `mapstructure:"anthropic"`
	Gemini         ProviderConfig `mapstructure:"gemini"`
	Compat         CompatConfig   `mapstructure:"compat"`
	Cache          CacheConfig    `mapstructure:"cache"`
	MathEval       MathEvalConfig `mapstructure:"math_eval"`
}

// ConfigSpec is the file-level shape of one configuration under test.
// Optional sampling parameters stay nil when absent so that "unset"
// and "zero" hash differently.
type ConfigSpec struct {
	ModelID           string         `mapstructure:"model_id"`
	ModelVersion      string         `mapstructure:"model_version"`
	Temperature       float64        `mapstructure:"temperature"`
	TopK              *int           `mapstructure:"top_k"`
	TopP              *float64       `mapstructure:"top_p"`
	MaxOutputTokens   int            `mapstructure:"max_output_tokens"`
	SystemInstruction string         `mapstructure:"system_instruction"`
	OutputMode        string         `mapstructure:"output_mode"`
	OutputSchema      map[string]any `mapstructure:"output_schema"`
}

type ProviderConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxRetries     int `mapstructure:"max_retries"`
	BackoffMillis  int `mapstructure:"backoff_millis"`
}

type CompatConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
	BackoffMillis  int    `mapstructure:"backoff_millis"`
}

type CacheConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Dir      string `mapstructure:"dir"`
	TTLHours int    `mapstructure:"ttl_hours"`
}

type MathEvalConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
}

func (s ConfigSpec) Configuration() (core.Configuration, error) {
	if s.ModelID == "" {
		return core.Configuration{}, errors.New("config: model_id is required")
	}

	mode := core.OutputMode(s.OutputMode)
	switch mode {
	case "":
		mode = core.OutputFreeText
	case core.OutputFreeText, core.OutputStructured:
	default:
		return core.Configuration{}, fmt.Errorf("config: unknown output mode %q", s.OutputMode)
	}
	if mode == core.OutputStructured && len(s.OutputSchema) == 0 {
		return core.Configuration{}, fmt.Errorf("config %s: structured output requires output_schema", s.ModelID)
	}

	return core.Configuration{
		ModelID:           s.ModelID,
		ModelVersion:      s.ModelVersion,
		Temperature:       s.Temperature,
		TopK:              s.TopK,
		TopP:              s.TopP,
		MaxOutputTokens:   s.MaxOutputTokens,
		SystemInstruction: s.SystemInstruction,
		OutputMode:        mode,
		OutputSchema:      s.OutputSchema,
	}, nil
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{}
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".aimatrix")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
