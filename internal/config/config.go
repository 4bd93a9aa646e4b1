package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Identity store and mail drivers selectable at startup.
const (
	DriverDynamo   = "dynamo"
	DriverPostgres = "postgres"
	DriverSMTP     = "smtp"
	DriverSNS      = "sns"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	RedisURL string

	IdentityDriver string
	DatabaseURL    string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	OTPTTL          time.Duration
	RegistrationTTL time.Duration

	Argon2 Argon2Params

	MailDriver   string
	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	SNSRegion    string
	SNSTopicARN  string

	AllowedOrigins    []string // CORS allowed origins
	ExposeOTP         bool     // echo OTP codes in API responses; development only
	TrustProxyHeaders bool     // take client IP from X-Forwarded-For/X-Real-Ip; only behind a proxy that sets them
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users          string
	Admins         string
	IdentityEmails string
}

// Argon2Params tunes the password hasher.
type Argon2Params struct {
	MemoryKB    uint32
	Time        uint32
	Parallelism uint8
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:  getEnv("APP_PORT", "3000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		IdentityDriver: getEnv("IDENTITY_DRIVER", DriverDynamo),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:          getEnv("DYNAMO_TABLE_USERS", "users"),
			Admins:         getEnv("DYNAMO_TABLE_ADMINS", "admins"),
			IdentityEmails: getEnv("DYNAMO_TABLE_IDENTITY_EMAILS", "identity_emails"),
		},

		JWTSecret:       getEnv("JWT_SECRET", ""),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		OTPTTL:          getEnvDuration("OTP_TTL", 180*time.Second),
		RegistrationTTL: getEnvDuration("REGISTRATION_TTL", 300*time.Second),

		Argon2: Argon2Params{
			MemoryKB:    uint32(getEnvInt("ARGON2_MEMORY_KB", 64*1024)),
			Time:        uint32(getEnvInt("ARGON2_TIME", 1)),
			Parallelism: uint8(getEnvInt("ARGON2_PARALLELISM", 4)),
		},

		MailDriver:   getEnv("MAIL_DRIVER", DriverSMTP),
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SNSRegion:    getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:  getEnv("SNS_TOPIC_ARN", ""),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		ExposeOTP:      getEnvBool("EXPOSE_OTP", false),

		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
	}
}

// Validate reports configuration that would make the service unusable.
func (c *Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < 8 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 8 characters"))
	}
	switch c.IdentityDriver {
	case DriverDynamo:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL must be set when IDENTITY_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IDENTITY_DRIVER %q", c.IdentityDriver))
	}
	switch c.MailDriver {
	case DriverSMTP:
	case DriverSNS:
		if c.SNSTopicARN == "" {
			errs = append(errs, errors.New("SNS_TOPIC_ARN must be set when MAIL_DRIVER=sns"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MAIL_DRIVER %q", c.MailDriver))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	if c.OTPTTL <= 0 || c.RegistrationTTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL and REGISTRATION_TTL must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
