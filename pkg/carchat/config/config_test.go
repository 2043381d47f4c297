package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nekruzvatanshoev/carchat/pkg/carchat/chat"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "data.json", cfg.Data)
	assert.Equal(t, chat.ModeFilters, cfg.Chat.Mode)
	assert.Equal(t, chat.DefaultTriggers(), cfg.Chat.Triggers)
	assert.Equal(t, 256, cfg.Search.MaxCombinations)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 200, cfg.LLM.ExtractMaxTokens)
	assert.Equal(t, float32(0.5), cfg.LLM.SummaryTemp)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data: /srv/cars.json
chat:
  mode: keyword
  triggers:
    debug: ["show filters"]
  team:
    - name: Hind
      phone: "0500000001"
search:
  max_combinations: 64
`), 0o600))

	t.Setenv("OPENAI_API_KEY", "sk-legacy")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("CARCHAT_LLM_MODEL", "gpt-4o-mini")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/cars.json", cfg.Data)
	assert.Equal(t, chat.ModeKeyword, cfg.Chat.Mode)
	assert.Equal(t, []string{"show filters"}, cfg.Chat.Triggers.Debug)
	assert.Equal(t, chat.DefaultTriggers().CityCount, cfg.Chat.Triggers.CityCount)
	require.Len(t, cfg.Chat.Team, 1)
	assert.Equal(t, "Hind", cfg.Chat.Team[0].Name)
	assert.Equal(t, 64, cfg.Search.MaxCombinations)
	assert.Equal(t, "sk-legacy", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.NoError(t, cfg.ValidateModel())
	assert.NoError(t, cfg.ValidateTelegram())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := Load(viper.New(), "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"NoData", func(c *Config) { c.Data = " " }},
		{"BadMode", func(c *Config) { c.Chat.Mode = "vector" }},
		{"NoCombinations", func(c *Config) { c.Search.MaxCombinations = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.Error(t, Config{}.ValidateTelegram())
	assert.Error(t, Config{}.ValidateModel())
	assert.NoError(t, Config{LLM: LLMConfig{BaseURL: "http://localhost:11434/v1"}}.ValidateModel())
}
