// Package config loads bot configuration from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Discord  DiscordConfig  `mapstructure:"discord"`
	Database DatabaseConfig `mapstructure:"database"`
	Bot      BotConfig      `mapstructure:"bot"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Emoji    EmojiConfig    `mapstructure:"emoji"`
}

type DiscordConfig struct {
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	Path        string `mapstructure:"path"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type BotConfig struct {
	AdminPassword string `mapstructure:"admin_password"`
	FeedbackFile  string `mapstructure:"feedback_file"`
	HelpText      string `mapstructure:"help_text"`
	AboutText     string `mapstructure:"about_text"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type EmojiConfig struct {
	// ExtraUnicode lists additional unicode glyph sequences to track on
	// top of the built-in set.
	ExtraUnicode []string `mapstructure:"extra_unicode"`
}

// LoadConfig reads path if it exists and then lets the environment override.
// A missing config file is fine; a missing token is not, but that is the
// caller's call to make.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database.path", "emojistats.db")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("bot.feedback_file", "")
	v.SetDefault("metrics.addr", "")

	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if token := v.GetString("DISCORD_CLIENT_TOKEN"); token != "" {
		config.Discord.Token = token
	}
	if password := v.GetString("ES_BOT_ADMIN_PASSWORD"); password != "" {
		config.Bot.AdminPassword = password
	}
	if dbPath := v.GetString("ES_DATABASE_PATH"); dbPath != "" {
		config.Database.Path = dbPath
	}
	if addr := v.GetString("ES_METRICS_ADDR"); addr != "" {
		config.Metrics.Addr = addr
	}

	return &config, nil
}
