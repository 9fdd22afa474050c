// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import "time"

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// RedisConfig provides key/value store connection settings.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisKeyPrefix() string
}

// SheetsConfig provides spreadsheet backend settings.
type SheetsConfig interface {
	GetSheetsCredentialsJSON() []byte
	GetSpreadsheetID() string
}

// ProviderConfig provides telephony provider API settings.
type ProviderConfig interface {
	GetProviderBaseURL() string
	GetProviderClientID() string
	GetProviderClientSecret() string
	GetProviderTokenURL() string
	GetProviderTimezone() string
	GetProviderMaxRetries() int
	GetProviderRetryBackoff() time.Duration
}

// MailConfig provides settings for run-report mail delivery.
type MailConfig interface {
	GetMailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetMailFromName() string
	GetMailFromAddress() string
	GetMailManagerAddress() string
	GetMailTestOverrideAddress() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// JWTConfig provides service-token validation settings for middleware.
type JWTConfig interface {
	GetAPITokenSecret() string
}

// SchedulerConfig provides settings for the asynq scheduler and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSyncCron() string
	GetReconcileCron() string
}

// StorageConfig provides settings for MinIO S3-compatible archive storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOExportBucket() string
	IsMinIOEnabled() bool
}
