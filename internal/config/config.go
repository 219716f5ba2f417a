// Package config loads runtime settings from the environment.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "TUBEPROXY"

// Config carries everything the server and CLI need. The API key is not
// validated here: its absence is a call-time fault, not a startup one.
type Config struct {
	ListenAddr string
	APIKey     string
	APIBaseURL string
	Timeout    time.Duration
	LogLevel   string
	LogJSON    bool
}

// Load reads TUBEPROXY_* environment variables, falling back to the
// conventional YOUTUBE_API_KEY for the credential.
func Load() Config {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", ":8080")
	v.SetDefault("timeout", 15*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	cfg := Config{
		ListenAddr: v.GetString("listen"),
		APIKey:     v.GetString("api.key"),
		APIBaseURL: v.GetString("api.base.url"),
		Timeout:    v.GetDuration("timeout"),
		LogLevel:   v.GetString("log.level"),
		LogJSON:    v.GetBool("log.json"),
	}
	if cfg.APIKey == "" {
		fallback := viper.New()
		fallback.AutomaticEnv()
		cfg.APIKey = fallback.GetString("YOUTUBE_API_KEY")
	}
	return cfg
}
