package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"remindly/utils"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	RepositoryMongo  = "mongo"
	RepositoryMemory = "memory"
)

type AppConfig struct {
	Port           string
	RepositoryType string
	LogDevelopment bool
	Location       *time.Location
	AllowedOrigins []string

	RedisURL string

	JWTSecretKey string
	JWTExpiry    time.Duration
	JWTIssuer    string

	OTPTTL         time.Duration
	OTPMaxAttempts int

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	GoogleClientID string
	AdminEmails    []string

	ReminderHorizon   time.Duration
	ReminderGrace     time.Duration
	ReminderSweepSpec string

	Database DatabaseConfig
}

// LoadEnv reads a .env file when one is present. Missing files are not an error
// so containers can rely on the real environment.
func LoadEnv(files ...string) {
	if os.Getenv("GO_ENV") == "test" {
		return
	}
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		utils.Warn("could not load .env file", zap.Error(err))
	}
}

func Load() (*AppConfig, error) {
	tz := utils.GetEnvAsString("TZ_NAME", "Local")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ_NAME %q: %w", tz, err)
	}

	cfg := &AppConfig{
		Port:           utils.GetEnvAsString("PORT", "8080"),
		RepositoryType: strings.ToLower(utils.GetEnvAsString("REPOSITORY_TYPE", RepositoryMongo)),
		LogDevelopment: utils.GetEnvAsBool("LOG_DEVELOPMENT", false),
		Location:       loc,
		AllowedOrigins: utils.GetEnvAsList("ALLOWED_ORIGINS", "http://localhost:3000"),

		RedisURL: utils.GetEnvAsString("REDIS_URL", "redis://localhost:6379/0"),

		JWTSecretKey: utils.GetEnvAsString("JWT_SECRET_KEY", ""),
		JWTExpiry:    utils.GetEnvAsDuration("JWT_EXPIRY", time.Hour),
		JWTIssuer:    utils.GetEnvAsString("JWT_ISSUER", "remindly"),

		OTPTTL:         utils.GetEnvAsDuration("OTP_TTL", 10*time.Minute),
		OTPMaxAttempts: utils.GetEnvAsInt("OTP_MAX_ATTEMPTS", 5),

		SMTPHost:     utils.GetEnvAsString("SMTP_HOST", ""),
		SMTPPort:     utils.GetEnvAsInt("SMTP_PORT", 587),
		SMTPUser:     utils.GetEnvAsString("SMTP_USER", ""),
		SMTPPassword: utils.GetEnvAsString("SMTP_PASSWORD", ""),
		SMTPFrom:     utils.GetEnvAsString("SMTP_FROM", ""),

		GoogleClientID: utils.GetEnvAsString("GOOGLE_CLIENT_ID", ""),
		AdminEmails:    utils.GetEnvAsList("ADMIN_EMAILS", ""),

		ReminderHorizon:   utils.GetEnvAsDuration("REMINDER_HORIZON", 30*24*time.Hour),
		ReminderGrace:     utils.GetEnvAsDuration("REMINDER_GRACE", time.Hour),
		ReminderSweepSpec: utils.GetEnvAsString("REMINDER_SWEEP_SPEC", "@every 1m"),

		Database: LoadDatabaseConfig(),
	}

	for i, email := range cfg.AdminEmails {
		cfg.AdminEmails[i] = utils.NormalizeEmail(email)
	}
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUser
	}
	return cfg, cfg.Validate()
}

// Validate checks the variables the server cannot start without.
func (c *AppConfig) Validate() error {
	var missing []string
	if c.JWTSecretKey == "" {
		missing = append(missing, "JWT_SECRET_KEY")
	}
	switch c.RepositoryType {
	case RepositoryMongo:
		if c.Database.URI == "" {
			missing = append(missing, "MONGO_URI")
		}
	case RepositoryMemory:
	default:
		return fmt.Errorf("unknown REPOSITORY_TYPE %q", c.RepositoryType)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// MailEnabled is false when no SMTP host is configured.
func (c *AppConfig) MailEnabled() bool {
	return c.SMTPHost != ""
}
