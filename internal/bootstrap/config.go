package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	MergeModeStrict = "strict"
	MergeModeLegacy = "legacy"
)

type Config struct {
	ServerPort  string `mapstructure:"SERVER_PORT"`
	IsLocalCors bool   `mapstructure:"LOCAL_CORS"`

	MongoUri      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`
	RedisUrl      string `mapstructure:"REDIS_URL"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	JwtSecret    string        `mapstructure:"JWT_SECRET"`
	JwtMaxExpiry time.Duration `mapstructure:"JWT_MAX_EXPIRY"`

	// shared secret for the scheduled-job endpoints (header "secret")
	InternalSecret     string `mapstructure:"INTERNAL_SECRET"`
	WhitelistDevices   string `mapstructure:"WHITELIST_DEVICES"`
	AllowedCollections string `mapstructure:"ALLOWED_COLLECTIONS"`

	MergeMode       string        `mapstructure:"MERGE_MODE"`
	MarkerClockSkew time.Duration `mapstructure:"MARKER_CLOCK_SKEW"`

	AwsRegion            string `mapstructure:"AWS_REGION"`
	MailFrom             string `mapstructure:"MAIL_FROM"`
	MailWelcomeTemplate  string `mapstructure:"MAIL_WELCOME_TEMPLATE"`
	MailSenderName       string `mapstructure:"MAIL_SENDER_NAME"`
	MailSenderAddress    string `mapstructure:"MAIL_SENDER_ADDRESS"`
	MailSenderCity       string `mapstructure:"MAIL_SENDER_CITY"`
	MailUnsubscribeGroup string `mapstructure:"MAIL_UNSUBSCRIBE_GROUP"`

	FirebaseCredentials string `mapstructure:"FIREBASE_CREDENTIALS"`
	ReviewTitle         string `mapstructure:"REVIEW_NOTIFICATION_TITLE"`
	ReviewBody          string `mapstructure:"REVIEW_NOTIFICATION_BODY"`
	DaysAwayTitle       string `mapstructure:"DAYS_AWAY_NOTIFICATION_TITLE"`
	DaysAwayBody        string `mapstructure:"DAYS_AWAY_NOTIFICATION_BODY"`
	DaysAwayLower       int    `mapstructure:"DAYS_AWAY_LOWER"`
	DaysAwayUpper       int    `mapstructure:"DAYS_AWAY_UPPER"`

	// time of day (UTC) the notifier sends days away reminders
	DaysAwayAt string `mapstructure:"DAYS_AWAY_AT"`

	CheatAppName  string `mapstructure:"CHEAT_APP_NAME"`
	CheatTimezone string `mapstructure:"CHEAT_TIMEZONE"`

	SentryDsn string `mapstructure:"SENTRY_DSN"`
}

var defaults = map[string]any{
	"SERVER_PORT":                  "8080",
	"LOCAL_CORS":                   false,
	"MONGO_URI":                    "",
	"MONGO_DATABASE":               "linggo",
	"REDIS_URL":                    "localhost:6379",
	"REDIS_PASSWORD":               "",
	"JWT_SECRET":                   "",
	"JWT_MAX_EXPIRY":               "720h",
	"INTERNAL_SECRET":              "",
	"WHITELIST_DEVICES":            "",
	"ALLOWED_COLLECTIONS":          "",
	"MERGE_MODE":                   MergeModeStrict,
	"MARKER_CLOCK_SKEW":            "0s",
	"AWS_REGION":                   "us-east-1",
	"MAIL_FROM":                    "hello@linggo.io",
	"MAIL_WELCOME_TEMPLATE":        "",
	"MAIL_SENDER_NAME":             "Linggo",
	"MAIL_SENDER_ADDRESS":          "London",
	"MAIL_SENDER_CITY":             "UK",
	"MAIL_UNSUBSCRIBE_GROUP":       "",
	"FIREBASE_CREDENTIALS":         "",
	"REVIEW_NOTIFICATION_TITLE":    "Time to review!",
	"REVIEW_NOTIFICATION_BODY":     "Your words are waiting for you.",
	"DAYS_AWAY_NOTIFICATION_TITLE": "We miss you!",
	"DAYS_AWAY_NOTIFICATION_BODY":  "Come back and keep your streak going.",
	"DAYS_AWAY_LOWER":              3,
	"DAYS_AWAY_UPPER":              4,
	"DAYS_AWAY_AT":                 "10:00",
	"CHEAT_APP_NAME":               "Linggo",
	"CHEAT_TIMEZONE":               "UTC",
	"SENTRY_DSN":                   "",
}

// Setup loads the optional env file at cfgPath into the process environment
// and reads the configuration from the environment.
func Setup(cfgPath string) (*Config, error) {
	if cfgPath != "" {
		if err := godotenv.Load(cfgPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", cfgPath, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MongoUri == "" {
		return errors.New("MONGO_URI is required")
	}
	if c.JwtSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.MergeMode != MergeModeStrict && c.MergeMode != MergeModeLegacy {
		return fmt.Errorf("MERGE_MODE must be %q or %q, got %q", MergeModeStrict, MergeModeLegacy, c.MergeMode)
	}
	if c.DaysAwayLower < 0 || c.DaysAwayUpper < c.DaysAwayLower {
		return fmt.Errorf("invalid days away window %d..%d", c.DaysAwayLower, c.DaysAwayUpper)
	}
	return nil
}

func (c *Config) Devices() []string {
	return splitList(c.WhitelistDevices)
}

func (c *Config) Collections() []string {
	return splitList(c.AllowedCollections)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
