// Package config loads carchat settings from defaults, an optional YAML file,
// the environment (including a .env file) and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/chat"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/extract"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/keyword"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/search"
	"github.com/spf13/viper"
)

const EnvPrefix = "CARCHAT"

type Config struct {
	Data     string         `mapstructure:"data"`
	Log      LogConfig      `mapstructure:"log"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Search   SearchConfig   `mapstructure:"search"`
	Server   ServerConfig   `mapstructure:"server"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type LLMConfig struct {
	APIKey           string        `mapstructure:"api_key"`
	BaseURL          string        `mapstructure:"base_url"`
	Model            string        `mapstructure:"model"`
	Timeout          time.Duration `mapstructure:"timeout"`
	RatePerSecond    float64       `mapstructure:"rate_per_second"`
	Burst            int           `mapstructure:"burst"`
	ExtractMaxTokens int           `mapstructure:"extract_max_tokens"`
	SummaryMaxTokens int           `mapstructure:"summary_max_tokens"`
	SummaryTemp      float32       `mapstructure:"summary_temperature"`
}

type ChatConfig struct {
	Mode     string            `mapstructure:"mode"`
	Triggers chat.Triggers     `mapstructure:"triggers"`
	Team     []keyword.Contact `mapstructure:"team"`
}

type SearchConfig struct {
	MaxCombinations int `mapstructure:"max_combinations"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelegramConfig struct {
	Token   string `mapstructure:"token"`
	Timeout int    `mapstructure:"timeout"`
	Debug   bool   `mapstructure:"debug"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	t := chat.DefaultTriggers()

	v.SetDefault("data", "data.json")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.rate_per_second", 3)
	v.SetDefault("llm.burst", 5)
	v.SetDefault("llm.extract_max_tokens", extract.DefaultMaxTokens)
	v.SetDefault("llm.summary_max_tokens", search.DefaultSummaryMaxTokens)
	v.SetDefault("llm.summary_temperature", search.DefaultSummaryTemperature)
	v.SetDefault("chat.mode", chat.ModeFilters)
	v.SetDefault("chat.triggers.city_count", t.CityCount)
	v.SetDefault("chat.triggers.lowest_mileage", t.LowestMileage)
	v.SetDefault("chat.triggers.debug", t.Debug)
	v.SetDefault("search.max_combinations", search.DefaultMaxCombinations)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("telegram.timeout", 60)
	v.SetDefault("telegram.debug", false)
	v.SetDefault("metrics.addr", "")
}

// Load reads the optional config file and the environment into a Config.
// A .env file in the working directory is loaded first when present.
func Load(v *viper.Viper, file string) (Config, error) {
	_ = godotenv.Load()

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// names used by earlier deployments
	_ = v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("telegram.token", EnvPrefix+"_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("server.addr", EnvPrefix+"_SERVER_ADDR", "SERVER_ADDRESS")

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings every command needs
func (c Config) Validate() error {
	if strings.TrimSpace(c.Data) == "" {
		return errors.New("data file is required")
	}
	switch c.Chat.Mode {
	case chat.ModeFilters, chat.ModeKeyword:
	default:
		return fmt.Errorf("chat.mode must be %q or %q, got %q", chat.ModeFilters, chat.ModeKeyword, c.Chat.Mode)
	}
	if c.Search.MaxCombinations <= 0 {
		return fmt.Errorf("search.max_combinations must be positive, got %d", c.Search.MaxCombinations)
	}
	return nil
}

// ValidateModel checks the settings needed to call the language model
func (c Config) ValidateModel() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" && c.LLM.BaseURL == "" {
		return errors.New("llm.api_key is required (set OPENAI_API_KEY)")
	}
	return nil
}

// ValidateTelegram checks the settings needed to run the bot
func (c Config) ValidateTelegram() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required (set TELEGRAM_BOT_TOKEN)")
	}
	return nil
}
