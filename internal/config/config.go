// Package config loads the application configuration from the environment.
// The resulting Config is immutable and passed by parameter through every
// component; the engine keeps no ambient global settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Thresholds are the tunable constants of the enrichment and compliance
// rules. Defaults match the values the sales operation has been running
// with; see Load for the corresponding environment variables.
type Thresholds struct {
	MinTotalAttempts   int
	LongCallSeconds    int
	HotMoveDays        int
	HighValueThreshold float64
	StaleDays          int
}

type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	RedisURL         string
	RedisKeyPrefix   string
	RedisTLSInsecure bool

	APITokenSecret string

	CORSAllowAll bool
	CORSOrigins  []string

	// Spreadsheet backend
	SpreadsheetID         string
	SheetsCredentialsJSON []byte
	CallLogTodaySheet     string
	CallLogYesterdaySheet string
	SMSLogTodaySheet      string
	SMSLogYesterdaySheet  string
	RosterSheet           string
	TrackerLayoutsPath    string

	// Telephony provider
	ProviderBaseURL      string
	ProviderClientID     string
	ProviderClientSecret string
	ProviderTokenURL     string
	ProviderTimezone     string
	ProviderMaxRetries   int
	ProviderRetryBackoff time.Duration

	// Run-report mail
	MailEnabled             bool
	SMTPHost                string
	SMTPPort                int
	SMTPUsername            string
	SMTPPassword            string
	MailFromName            string
	MailFromAddress         string
	MailManagerAddress      string
	MailTestOverrideAddress string

	// Archive storage
	MinIOEndpoint     string
	MinIOAccessKey    string
	MinIOSecretKey    string
	MinIOUseSSL       bool
	MinIOExportBucket string

	// Scheduler
	AsynqQueueName   string
	AsynqConcurrency int
	SyncCron         string
	ReconcileCron    string

	CancelFlagTTL time.Duration

	Thresholds Thresholds
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	credsPath := getEnv("SHEETS_CREDENTIALS_FILE", "")
	var credsJSON []byte
	if credsPath != "" {
		data, err := os.ReadFile(credsPath)
		if err != nil {
			return nil, fmt.Errorf("read sheets credentials: %w", err)
		}
		credsJSON = data
	}

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisKeyPrefix:   getEnv("REDIS_KEY_PREFIX", "outreach"),
		RedisTLSInsecure: getBool("REDIS_TLS_INSECURE", false),

		APITokenSecret: getEnv("API_TOKEN_SECRET", ""),

		CORSAllowAll: getBool("CORS_ALLOW_ALL", false),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200")),

		SpreadsheetID:         getEnv("SPREADSHEET_ID", ""),
		SheetsCredentialsJSON: credsJSON,
		CallLogTodaySheet:     getEnv("SHEET_CALL_LOG_TODAY", "CallLogToday"),
		CallLogYesterdaySheet: getEnv("SHEET_CALL_LOG_YESTERDAY", "CallLogYesterday"),
		SMSLogTodaySheet:      getEnv("SHEET_SMS_LOG_TODAY", "SmsLogToday"),
		SMSLogYesterdaySheet:  getEnv("SHEET_SMS_LOG_YESTERDAY", "SmsLogYesterday"),
		RosterSheet:           getEnv("SHEET_ROSTER", "Roster"),
		TrackerLayoutsPath:    getEnv("TRACKER_LAYOUTS_FILE", ""),

		ProviderBaseURL:      getEnv("PROVIDER_BASE_URL", ""),
		ProviderClientID:     getEnv("PROVIDER_CLIENT_ID", ""),
		ProviderClientSecret: getEnv("PROVIDER_CLIENT_SECRET", ""),
		ProviderTokenURL:     getEnv("PROVIDER_TOKEN_URL", ""),
		ProviderTimezone:     getEnv("PROVIDER_TIMEZONE", "America/Denver"),
		ProviderMaxRetries:   getInt("PROVIDER_MAX_RETRIES", 5),
		ProviderRetryBackoff: getDuration("PROVIDER_RETRY_BACKOFF", 2*time.Second),

		MailEnabled:             getBool("MAIL_ENABLED", false),
		SMTPHost:                getEnv("SMTP_HOST", ""),
		SMTPPort:                getInt("SMTP_PORT", 587),
		SMTPUsername:            getEnv("SMTP_USERNAME", ""),
		SMTPPassword:            getEnv("SMTP_PASSWORD", ""),
		MailFromName:            getEnv("MAIL_FROM_NAME", "Outreach Engine"),
		MailFromAddress:         getEnv("MAIL_FROM_ADDRESS", ""),
		MailManagerAddress:      getEnv("MAIL_MANAGER_ADDRESS", ""),
		MailTestOverrideAddress: getEnv("MAIL_TEST_OVERRIDE_ADDRESS", ""),

		MinIOEndpoint:     getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:    getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:    getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:       getBool("MINIO_USE_SSL", false),
		MinIOExportBucket: getEnv("MINIO_EXPORT_BUCKET", "provider-exports"),

		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "outreach"),
		AsynqConcurrency: getInt("ASYNQ_CONCURRENCY", 1),
		SyncCron:         getEnv("SYNC_CRON", "*/15 * * * *"),
		ReconcileCron:    getEnv("RECONCILE_CRON", "5 * * * *"),

		CancelFlagTTL: getDuration("CANCEL_FLAG_TTL", 10*time.Minute),

		Thresholds: Thresholds{
			MinTotalAttempts:   getInt("MIN_TOTAL_ATTEMPTS", 5),
			LongCallSeconds:    getInt("LONG_CALL_SECONDS", 240),
			HotMoveDays:        getInt("HOT_MOVE_DAYS", 7),
			HighValueThreshold: getFloat("HIGH_VALUE_THRESHOLD", 5000),
			StaleDays:          getInt("STALE_DAYS", 3),
		},
	}

	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("SPREADSHEET_ID is required")
	}
	if cfg.MailEnabled && (cfg.SMTPHost == "" || cfg.MailFromAddress == "") {
		return nil, fmt.Errorf("SMTP_HOST and MAIL_FROM_ADDRESS are required when MAIL_ENABLED is true")
	}

	return cfg, nil
}

// Accessors implementing the platform/config interfaces.

func (c *Config) GetDatabaseURL() string           { return c.DatabaseURL }
func (c *Config) GetRedisURL() string              { return c.RedisURL }
func (c *Config) GetRedisKeyPrefix() string        { return c.RedisKeyPrefix }
func (c *Config) GetRedisTLSInsecure() bool        { return c.RedisTLSInsecure }
func (c *Config) GetAPITokenSecret() string        { return c.APITokenSecret }
func (c *Config) GetHTTPAddr() string              { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool            { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string         { return c.CORSOrigins }
func (c *Config) GetSheetsCredentialsJSON() []byte { return c.SheetsCredentialsJSON }
func (c *Config) GetSpreadsheetID() string         { return c.SpreadsheetID }

func (c *Config) GetProviderBaseURL() string             { return c.ProviderBaseURL }
func (c *Config) GetProviderClientID() string            { return c.ProviderClientID }
func (c *Config) GetProviderClientSecret() string        { return c.ProviderClientSecret }
func (c *Config) GetProviderTokenURL() string            { return c.ProviderTokenURL }
func (c *Config) GetProviderTimezone() string            { return c.ProviderTimezone }
func (c *Config) GetProviderMaxRetries() int             { return c.ProviderMaxRetries }
func (c *Config) GetProviderRetryBackoff() time.Duration { return c.ProviderRetryBackoff }

func (c *Config) GetMailEnabled() bool             { return c.MailEnabled }
func (c *Config) GetSMTPHost() string              { return c.SMTPHost }
func (c *Config) GetSMTPPort() int                 { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string          { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string          { return c.SMTPPassword }
func (c *Config) GetMailFromName() string          { return c.MailFromName }
func (c *Config) GetMailFromAddress() string       { return c.MailFromAddress }
func (c *Config) GetMailManagerAddress() string    { return c.MailManagerAddress }
func (c *Config) GetMailTestOverrideAddress() string {
	return c.MailTestOverrideAddress
}

func (c *Config) GetMinIOEndpoint() string     { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string    { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string    { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool         { return c.MinIOUseSSL }
func (c *Config) GetMinIOExportBucket() string { return c.MinIOExportBucket }
func (c *Config) IsMinIOEnabled() bool         { return c.MinIOEndpoint != "" }

func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }
func (c *Config) GetSyncCron() string       { return c.SyncCron }
func (c *Config) GetReconcileCron() string  { return c.ReconcileCron }

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return strings.EqualFold(val, "true")
}

func getInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}
