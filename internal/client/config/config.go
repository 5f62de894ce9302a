package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/incidentdesk/internal/client/codec"
	"github.com/dmitrijs2005/incidentdesk/internal/common"
)

// Config holds runtime settings for the incident desk CLI.
type Config struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	DatabasePath   string
	WireVocabulary codec.Vocabulary
	// ProfilePath is the current-user endpoint, /users/current/ or the
	// /users/me/ alias some backends expose instead.
	ProfilePath string
	LogLevel    string
	LogFormat   string
}

// LoadDefaults populates c with defaults suitable for a local backend.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:8000/api"
	c.RequestTimeout = 30 * time.Second
	c.DatabasePath = "incidents.db"
	c.WireVocabulary = codec.English
	c.ProfilePath = common.PathCurrentUser
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("api base url %q must be an absolute http(s) url", c.APIBaseURL)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.DatabasePath == "" {
		return errors.New("database path is empty")
	}
	if _, err := codec.ParseVocabulary(string(c.WireVocabulary)); err != nil {
		return err
	}
	switch c.ProfilePath {
	case common.PathCurrentUser, common.PathCurrentUserAlt:
	default:
		return fmt.Errorf("profile path %q must be %s or %s", c.ProfilePath, common.PathCurrentUser, common.PathCurrentUserAlt)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// LoadConfig constructs a Config from defaults, then a JSON file, then
// environment variables (including a .env file), then command-line flags.
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
