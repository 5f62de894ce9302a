package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/incidentdesk/internal/client/codec"
)

const (
	EnvAPIURL     = "INCIDENTS_API_URL"
	EnvTimeout    = "INCIDENTS_TIMEOUT"
	EnvDatabase   = "INCIDENTS_DB"
	EnvVocabulary = "INCIDENTS_VOCABULARY"
	EnvProfile    = "INCIDENTS_PROFILE_PATH"
	EnvLogLevel   = "INCIDENTS_LOG_LEVEL"
	EnvLogFormat  = "INCIDENTS_LOG_FORMAT"
)

// parseEnv overlays cfg with INCIDENTS_* variables. Values from the given
// dotenv files (".env" when none are named) are used only for variables the
// process environment does not already define. The process environment itself
// is never modified.
func parseEnv(cfg *Config, files ...string) {
	if err := applyEnv(cfg, files...); err != nil {
		panic(err)
	}
}

func applyEnv(cfg *Config, files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	fromFiles := map[string]string{}
	for _, f := range files {
		m, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("read %s: %w", f, err)
		}
		maps.Copy(fromFiles, m)
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fromFiles[key]
		return v, ok
	}

	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		cfg.APIBaseURL = v
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		cfg.RequestTimeout = d
	}
	if v, ok := lookup(EnvDatabase); ok && v != "" {
		cfg.DatabasePath = v
	}
	if v, ok := lookup(EnvVocabulary); ok && v != "" {
		cfg.WireVocabulary = codec.Vocabulary(v)
	}
	if v, ok := lookup(EnvProfile); ok && v != "" {
		cfg.ProfilePath = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup(EnvLogFormat); ok && v != "" {
		cfg.LogFormat = v
	}
	return nil
}

// parseTimeout accepts a Go duration ("45s") or a plain number of seconds.
func parseTimeout(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}
