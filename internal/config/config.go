package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server ServerConfig
	GCP    GCPConfig
	Play   PlayConfig
	Log    LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string
}

// GCPConfig holds the Vertex AI settings used for grid photo analysis.
// Analysis is disabled when ProjectID is empty.
type GCPConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Region    string
}

// PlayConfig holds terminal client settings.
type PlayConfig struct {
	Server string
	Pseudo string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Verbose bool
}

// Load reads configuration from file and env. Env var overrides use prefix
// CROSSGRID_; PORT, GCP_PROJECT_ID and GCP_REGION are honoured as well.
// path overrides the config file location when non-empty.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("server.port", "8080")
	v.SetDefault("gcp.project_id", "")
	v.SetDefault("gcp.region", "europe-west1")
	v.SetDefault("play.server", "http://localhost:8080")
	v.SetDefault("play.pseudo", os.Getenv("USER"))
	v.SetDefault("log.verbose", false)

	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv("CROSSGRID_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "crossgrid"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("CROSSGRID")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, env := range map[string]string{
		"server.port":    "PORT",
		"gcp.project_id": "GCP_PROJECT_ID",
		"gcp.region":     "GCP_REGION",
	} {
		if err := v.BindEnv(key, "CROSSGRID_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
