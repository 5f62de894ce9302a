package mockapi

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/incidentdesk/internal/client/codec"
	"github.com/dmitrijs2005/incidentdesk/internal/flagx"
	"github.com/dmitrijs2005/incidentdesk/internal/timex"
)

// Config holds runtime settings for the mock backend.
//
// SecretKey signs both token types. The default is for local development
// only.
type Config struct {
	Addr                 string
	SecretKey            string
	AccessTokenValidity  time.Duration
	RefreshTokenValidity time.Duration
	// EmbedProfile adds user_id, username and user_role to login responses.
	EmbedProfile   bool
	Vocabulary     codec.Vocabulary
	AllowedOrigins []string
}

func (c *Config) LoadDefaults() {
	c.Addr = ":8000"
	c.SecretKey = "secretKey"
	c.AccessTokenValidity = 5 * time.Minute
	c.RefreshTokenValidity = 24 * time.Hour
	c.EmbedProfile = true
	c.Vocabulary = codec.English
	c.AllowedOrigins = []string{"*"}
}

// LoadConfig builds a Config from defaults, an optional JSON file, MOCKAPI_*
// environment variables (a .env file fills the gaps) and finally flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	if err := applyEnv(cfg); err != nil {
		panic(err)
	}
	parseFlags(cfg)
	return cfg
}

const EnvConfigPath = "MOCKAPI_CONFIG"

type JsonConfig struct {
	Addr                 string         `json:"addr"`
	SecretKey            string         `json:"secret_key"`
	AccessTokenValidity  timex.Duration `json:"access_token_validity"`
	RefreshTokenValidity timex.Duration `json:"refresh_token_validity"`
	EmbedProfile         *bool          `json:"embed_profile"`
	Vocabulary           string         `json:"vocabulary"`
	AllowedOrigins       []string       `json:"allowed_origins"`
}

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

	if jc.Addr != "" {
		cfg.Addr = jc.Addr
	}
	if jc.SecretKey != "" {
		cfg.SecretKey = jc.SecretKey
	}
	if jc.AccessTokenValidity.Duration > 0 {
		cfg.AccessTokenValidity = jc.AccessTokenValidity.Duration
	}
	if jc.RefreshTokenValidity.Duration > 0 {
		cfg.RefreshTokenValidity = jc.RefreshTokenValidity.Duration
	}
	if jc.EmbedProfile != nil {
		cfg.EmbedProfile = *jc.EmbedProfile
	}
	if jc.Vocabulary != "" {
		cfg.Vocabulary = codec.Vocabulary(jc.Vocabulary)
	}
	if len(jc.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = jc.AllowedOrigins
	}
}

const (
	EnvAddr           = "MOCKAPI_ADDR"
	EnvSecretKey      = "MOCKAPI_SECRET_KEY"
	EnvAccessTTL      = "MOCKAPI_ACCESS_TTL"
	EnvRefreshTTL     = "MOCKAPI_REFRESH_TTL"
	EnvEmbedProfile   = "MOCKAPI_EMBED_PROFILE"
	EnvVocabulary     = "MOCKAPI_VOCABULARY"
	EnvAllowedOrigins = "MOCKAPI_ALLOWED_ORIGINS"
)

// applyEnv overlays cfg with MOCKAPI_* variables. The process environment
// wins over dotenv files, which are read but never exported.
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
	get := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return fromFiles[key]
	}

	if v := get(EnvAddr); v != "" {
		cfg.Addr = v
	}
	if v := get(EnvSecretKey); v != "" {
		cfg.SecretKey = v
	}
	if v := get(EnvAccessTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAccessTTL, err)
		}
		cfg.AccessTokenValidity = d
	}
	if v := get(EnvRefreshTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRefreshTTL, err)
		}
		cfg.RefreshTokenValidity = d
	}
	if v := get(EnvEmbedProfile); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvEmbedProfile, err)
		}
		cfg.EmbedProfile = b
	}
	if v := get(EnvVocabulary); v != "" {
		cfg.Vocabulary = codec.Vocabulary(v)
	}
	if v := get(EnvAllowedOrigins); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseFlags reads:
//
//	-a string   listen address
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-v string   wire vocabulary of responses
//	-e bool     embed the profile in login responses (use -e=false to disable)
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-s", "-t", "-r", "-v", "-e"})

	fs := flag.NewFlagSet("mockapi", flag.ContinueOnError)

	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "listen address")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	access := fs.Int("t", int(cfg.AccessTokenValidity.Minutes()), "access token validity (in minutes)")
	refresh := fs.Int("r", int(cfg.RefreshTokenValidity.Minutes()), "refresh token validity (in minutes)")
	vocab := fs.String("v", string(cfg.Vocabulary), "wire vocabulary")
	fs.BoolVar(&cfg.EmbedProfile, "e", cfg.EmbedProfile, "embed profile in login responses")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Minute flags only replace durations that were actually given, so a
	// sub-minute value from JSON or env survives.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.AccessTokenValidity = time.Duration(*access) * time.Minute
		case "r":
			cfg.RefreshTokenValidity = time.Duration(*refresh) * time.Minute
		case "v":
			cfg.Vocabulary = codec.Vocabulary(*vocab)
		}
	})
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("listen address is empty")
	}
	if c.SecretKey == "" {
		return errors.New("secret key is empty")
	}
	if c.AccessTokenValidity <= 0 || c.RefreshTokenValidity <= 0 {
		return errors.New("token validity must be positive")
	}
	if _, err := codec.ParseVocabulary(string(c.Vocabulary)); err != nil {
		return err
	}
	return nil
}
