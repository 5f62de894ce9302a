package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/incidentdesk/internal/client/codec"
	"github.com/dmitrijs2005/incidentdesk/internal/flagx"
	"github.com/dmitrijs2005/incidentdesk/internal/timex"
)

// EnvConfigPath names the variable consulted for the JSON file when neither
// -c nor -config is given.
const EnvConfigPath = "INCIDENTS_CONFIG"

// JsonConfig is the on-disk shape of the configuration file. Durations are
// timex.Duration so "30s" and integer nanoseconds both work.
type JsonConfig struct {
	APIBaseURL     string         `json:"api_base_url"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	DatabasePath   string         `json:"database_path"`
	WireVocabulary string         `json:"wire_vocabulary"`
	ProfilePath    string         `json:"profile_path"`
	LogLevel       string         `json:"log_level"`
	LogFormat      string         `json:"log_format"`
}

// parseJson overlays cfg with the values present in the JSON file. Missing or
// empty keys leave the current value untouched. Read and decode errors panic.
func parseJson(cfg *Config) {
	path := flagx.ConfigPath(EnvConfigPath)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.ProfilePath, jc.ProfilePath)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.WireVocabulary != "" {
		cfg.WireVocabulary = codec.Vocabulary(jc.WireVocabulary)
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
