package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
server:
  port: 8080
provider:
  name: primary
  type: openai
  api_key: test-key
  model: gpt-4o-mini
session:
  max_history: 20
cache:
  min_confidence: 0.8
notifications:
  daily_cap: 5
  rules:
    - id: low-sleep
      enabled: true
      condition:
        kind: threshold
        metric: sleep_score
        op: "<"
        value: 6
      action:
        title: "Low sleep"
        message: "Your {{metric}} dipped to {{value}}"
        priority: normal
`

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := LoadFromFile(writeConfigFile(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "primary", cfg.Provider.Name)
	assert.Equal(t, 20, cfg.Session.MaxHistory)
	assert.Equal(t, 0.8, cfg.Cache.MinConfidence)
	assert.Equal(t, 5, cfg.Notifications.DailyCap)
	require.Len(t, cfg.Notifications.Rules, 1)
	assert.Equal(t, "low-sleep", cfg.Notifications.Rules[0].ID)

	// Defaults survive a partial file.
	assert.Equal(t, 30*time.Minute, cfg.Session.Expiry)
	assert.Equal(t, 500, cfg.Cache.MaxEntries)
	assert.Equal(t, 3, cfg.Orchestrator.MaxRetries)
}

func TestLoadFromFile_ExpandsEnv(t *testing.T) {
	t.Setenv("COACH_TEST_KEY", "from-env")
	cfg, err := LoadFromFile(writeConfigFile(t, `
provider:
  name: primary
  type: openai
  api_key: ${COACH_TEST_KEY}
`))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Provider.APIKey)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := DefaultConfig()
		cfg.Provider = ProviderConfig{Name: "p", Type: "openai", APIKey: "k"}
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing api key", func(t *testing.T) {
		cfg := base()
		cfg.Provider.APIKey = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad confidence", func(t *testing.T) {
		cfg := base()
		cfg.Cache.MinConfidence = 1.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("malformed rule", func(t *testing.T) {
		cfg, err := LoadFromFile(writeConfigFile(t, `
provider:
  name: p
  type: openai
  api_key: k
notifications:
  rules:
    - id: broken
      condition:
        kind: threshold
`))
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})
}

func TestRuleFlags(t *testing.T) {
	cfg, err := LoadFromFile(writeConfigFile(t, validConfig))
	require.NoError(t, err)

	flags := cfg.RuleFlags()
	assert.Equal(t, map[string]bool{"low-sleep": true}, flags)
}
