package internal

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/hbomb79/Mediagate/internal/api"
	"github.com/hbomb79/Mediagate/internal/delivery"
	"github.com/hbomb79/Mediagate/internal/http/fetch"
	"github.com/hbomb79/Mediagate/internal/ytdlp"
	"github.com/hbomb79/Mediagate/pkg/logger"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/labstack/gommon/bytes"
)

var logLevels = map[string]logger.LogLevel{
	"verbose": logger.VERBOSE.Level(),
	"debug":   logger.DEBUG.Level(),
	"info":    logger.INFO.Level(),
	"warning": logger.WARNING.Level(),
	"error":   logger.ERROR.Level(),
}

// MediagateConfig is the struct used to contain the
// various user config supplied by file and/or the
// environment.
type MediagateConfig struct {
	RestConfig api.RestConfig     `yaml:"http"`
	YtDlp      ytdlp.Config       `yaml:"ytdlp"`
	Cookies    ytdlp.CookieConfig `yaml:"cookies"`
	Delivery   delivery.Config    `yaml:"delivery"`
	Fetch      fetch.Config       `yaml:"fetch"`
	LogLevel   string             `yaml:"log_level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=verbose debug info warning error"`
}

// LoadFromFile loads a configuration file formatted in YAML in to the
// config. Environment variables take precedence over the file.
func (config *MediagateConfig) LoadFromFile(configPath string) error {
	if err := cleanenv.ReadConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to load configuration from %s - %w", configPath, err)
	}

	return config.Validate()
}

// LoadFromEnv populates the config using only environment variables
// (and the defaults declared on the struct).
func (config *MediagateConfig) LoadFromEnv() error {
	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("failed to load configuration from environment - %w", err)
	}

	return config.Validate()
}

// Validate checks the constraints declared on the config struct tags, along
// with the size limits which can only be checked by parsing them.
func (config *MediagateConfig) Validate() error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid configuration - %w", err)
	}

	for name, size := range map[string]string{
		"YTDLP_MAX_OUTPUT":   config.YtDlp.MaxOutput,
		"IMAGE_MAX_BYTES":    config.Delivery.MaxImageSize,
		"REQUEST_BODY_LIMIT": config.RestConfig.BodyLimit,
	} {
		if _, err := bytes.Parse(size); err != nil {
			return fmt.Errorf("invalid configuration - %s %q is not a valid size: %w", name, size, err)
		}
	}

	return nil
}

// MaxOutputBytes returns the parsed yt-dlp output cap.
func (config *MediagateConfig) MaxOutputBytes() int64 {
	size, _ := bytes.Parse(config.YtDlp.MaxOutput)
	return size
}

func (config *MediagateConfig) logLevel() logger.LogLevel {
	return logLevels[config.LogLevel]
}
