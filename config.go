package bywhen

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"io/fs"
	"log/slog"
	"strings"
)

// Config holds the bot's configuration. It is read from the environment, optionally overlaid on a .env file.
type Config struct {
	BotToken      string `mapstructure:"SLACK_BOT_TOKEN"`
	UserToken     string `mapstructure:"SLACK_USER_TOKEN"`
	SigningSecret string `mapstructure:"SLACK_SIGNING_SECRET"`
	AppToken      string `mapstructure:"APP_TOKEN"`
	ClientID      string `mapstructure:"SLACK_CLIENT_ID"`
	ClientSecret  string `mapstructure:"CLIENT_SECRET"`
	Port          int    `mapstructure:"PORT"`
	SocketMode    bool   `mapstructure:"SOCKET_MODE"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
}

var configDefaults = map[string]any{
	"SLACK_BOT_TOKEN":      "",
	"SLACK_USER_TOKEN":     "",
	"SLACK_SIGNING_SECRET": "",
	"APP_TOKEN":            "",
	"SLACK_CLIENT_ID":      "",
	"CLIENT_SECRET":        "",
	"PORT":                 5000,
	"SOCKET_MODE":          false,
	"LOG_LEVEL":            "info",
}

// configAliases lists additional environment variables a key is read from, in order of precedence.
var configAliases = map[string][]string{
	"SLACK_USER_TOKEN": {"SLACK_OUTH_TOKEN"},
}

// LoadConfig reads the configuration from the environment. If envFile is not empty and exists, it is read
// first (in dotenv format); environment variables take precedence over its values.
func LoadConfig(envFile string) (Config, error) {
	v := viper.New()
	for key, value := range configDefaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(append([]string{key, key}, configAliases[key]...)...); err != nil {
			return Config{}, errors.Wrapf(err, "bind %s", key)
		}
	}

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, errors.Wrapf(err, "read %s", envFile)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse configuration")
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var missing []string
	if c.BotToken == "" {
		missing = append(missing, "SLACK_BOT_TOKEN")
	}
	if c.SocketMode && c.AppToken == "" {
		missing = append(missing, "APP_TOKEN")
	}
	if !c.SocketMode && c.SigningSecret == "" {
		missing = append(missing, "SLACK_SIGNING_SECRET")
	}
	if len(missing) > 0 {
		return errors.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid PORT: %d", c.Port)
	}
	return nil
}

// ReminderToken returns the token to create reminders with. reminders.add needs a user token;
// if none is configured, the bot token is used.
func (c Config) ReminderToken() string {
	if c.UserToken != "" {
		return c.UserToken
	}
	return c.BotToken
}

// Level returns the configured log level. Unknown levels default to Info.
func (c Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// LogValue implements slog.LogValuer. Secrets are redacted.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bot_token", redact(c.BotToken)),
		slog.String("user_token", redact(c.UserToken)),
		slog.String("signing_secret", redact(c.SigningSecret)),
		slog.String("app_token", redact(c.AppToken)),
		slog.String("client_id", c.ClientID),
		slog.String("client_secret", redact(c.ClientSecret)),
		slog.Int("port", c.Port),
		slog.Bool("socket_mode", c.SocketMode),
		slog.String("log_level", c.LogLevel),
	)
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
