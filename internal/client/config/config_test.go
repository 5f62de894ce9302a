package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/incidentdesk/internal/client/codec"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://localhost:8000/api", c.APIBaseURL)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
	assert.Equal(t, "incidents.db", c.DatabasePath)
	assert.Equal(t, codec.English, c.WireVocabulary)
	assert.Equal(t, "/users/current/", c.ProfilePath)
	assert.NoError(t, c.Validate())

	c.ProfilePath = "/users/me/"
	assert.NoError(t, c.Validate())
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}
	t.Setenv(EnvConfigPath, "")
	clearEnv(t)

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://localhost:8000/api", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	t.Setenv(EnvConfigPath, "")
	clearEnv(t)
	t.Setenv(EnvAPIURL, "http://env:1/api")
	os.Args = []string{"testbin", "-a", "http://flag:2/api"}

	cfg := LoadConfig()
	assert.Equal(t, "http://flag:2/api", cfg.APIBaseURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative url", func(c *Config) { c.APIBaseURL = "/api" }},
		{"ftp url", func(c *Config) { c.APIBaseURL = "ftp://host/api" }},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"empty db", func(c *Config) { c.DatabasePath = "" }},
		{"unknown vocabulary", func(c *Config) { c.WireVocabulary = "klingon" }},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }},
		{"unknown profile path", func(c *Config) { c.ProfilePath = "/profile/" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
