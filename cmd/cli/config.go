package cli

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all service configuration.
type Config struct {
	// Server settings
	HTTPAddress    string
	AllowedOrigins string

	// Model credentials and identifiers
	GoogleAPIKey string
	GoogleModel  string
	OpenAIAPIKey string
	LLMModel     string

	// Marketplace search credentials
	RapidAPIKey string

	// Feature toggles
	EnableVerification bool
}

// LoadConfig loads configuration from an optional config file and
// environment variables. Missing required variables are reported
// together so a misconfigured deployment fails with one actionable
// message instead of one variable per restart.
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envMappings := map[string]string{
		"HTTPAddress":        "HTTP_ADDRESS",
		"AllowedOrigins":     "ALLOWED_ORIGINS",
		"GoogleAPIKey":       "GOOGLE_API_KEY",
		"GoogleModel":        "GOOGLE_MODEL",
		"OpenAIAPIKey":       "OPENAI_API_KEY",
		"LLMModel":           "LLM_MODEL",
		"RapidAPIKey":        "RAPIDAPI_KEY",
		"EnableVerification": "ENABLE_VERIFICATION",
	}

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, configKey)
		}
	}

	v.SetConfigName("elfagent_config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.elfagent")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Info().Msgf("Using config file: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTPAddress", ":8080")
	v.SetDefault("EnableVerification", false)
}

func validateConfig(config *Config) error {
	var missingVars []string

	if config.GoogleAPIKey == "" {
		missingVars = append(missingVars, "GOOGLE_API_KEY")
	}

	if config.GoogleModel == "" {
		missingVars = append(missingVars, "GOOGLE_MODEL")
	}

	if config.OpenAIAPIKey == "" {
		missingVars = append(missingVars, "OPENAI_API_KEY")
	}

	if config.LLMModel == "" {
		missingVars = append(missingVars, "LLM_MODEL")
	}

	if config.RapidAPIKey == "" {
		missingVars = append(missingVars, "RAPIDAPI_KEY")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missingVars, ", "))
	}

	return nil
}
