// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"os"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCronSecret() string
}

// ServiceTitanConfig provides settings for the field-service platform client.
type ServiceTitanConfig interface {
	GetSTBaseURL() string
	GetSTAuthURL() string
	GetSTClientID() string
	GetSTClientSecret() string
	GetSTTenantID() string
	GetSTAppKey() string
	GetSTRequestTimeout() time.Duration
	GetSTRequestsPerSecond() float64
	GetSTMaxPages() int
}

// IntakeConfig provides settings for the intake and reconciliation engine.
type IntakeConfig interface {
	GetLookbackWindow() time.Duration
	GetIntakeConcurrency() int
	GetCorrectionBatchSize() int
	GetErrorReportCap() int
	GetMarketedBusinessUnitIDs() []int64
	GetSalesJobTypeID() int64
	GetTGLTagName() string
}

// NotifierConfig provides settings for the notification dispatcher.
type NotifierConfig interface {
	GetSlackWebhookMarketed() string
	GetSlackWebhookTechGenerated() string
	GetSlackWebhookDefault() string
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetAlertEmailFrom() string
	GetAlertEmailTo() string
	IsAlertEmailEnabled() bool
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetPollInterval() time.Duration
	GetDailySummaryHour() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env         string
	HTTPAddr    string
	DatabaseURL string
	CronSecret  string

	CORSAllowAll bool
	CORSOrigins  []string

	STBaseURL           string
	STAuthURL           string
	STClientID          string
	STClientSecret      string
	STTenantID          string
	STAppKey            string
	STRequestTimeout    time.Duration
	STRequestsPerSecond float64
	STMaxPages          int

	LookbackWindow          time.Duration
	IntakeConcurrency       int
	CorrectionBatchSize     int
	ErrorReportCap          int
	MarketedBusinessUnitIDs []int64
	SalesJobTypeID          int64
	TGLTagName              string

	SlackWebhookMarketed      string
	SlackWebhookTechGenerated string
	SlackWebhookDefault       string
	SMTPHost                  string
	SMTPPort                  int
	SMTPUsername              string
	SMTPPassword              string
	AlertEmailFrom            string
	AlertEmailTo              string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int
	PollInterval     time.Duration
	DailySummaryHour int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCronSecret() string    { return c.CronSecret }

// ServiceTitanConfig implementation
func (c *Config) GetSTBaseURL() string                { return c.STBaseURL }
func (c *Config) GetSTAuthURL() string                { return c.STAuthURL }
func (c *Config) GetSTClientID() string               { return c.STClientID }
func (c *Config) GetSTClientSecret() string           { return c.STClientSecret }
func (c *Config) GetSTTenantID() string               { return c.STTenantID }
func (c *Config) GetSTAppKey() string                 { return c.STAppKey }
func (c *Config) GetSTRequestTimeout() time.Duration  { return c.STRequestTimeout }
func (c *Config) GetSTRequestsPerSecond() float64     { return c.STRequestsPerSecond }
func (c *Config) GetSTMaxPages() int                  { return c.STMaxPages }

// IntakeConfig implementation
func (c *Config) GetLookbackWindow() time.Duration    { return c.LookbackWindow }
func (c *Config) GetIntakeConcurrency() int           { return c.IntakeConcurrency }
func (c *Config) GetCorrectionBatchSize() int         { return c.CorrectionBatchSize }
func (c *Config) GetErrorReportCap() int              { return c.ErrorReportCap }
func (c *Config) GetMarketedBusinessUnitIDs() []int64 { return c.MarketedBusinessUnitIDs }
func (c *Config) GetSalesJobTypeID() int64            { return c.SalesJobTypeID }
func (c *Config) GetTGLTagName() string               { return c.TGLTagName }

// NotifierConfig implementation
func (c *Config) GetSlackWebhookMarketed() string      { return c.SlackWebhookMarketed }
func (c *Config) GetSlackWebhookTechGenerated() string { return c.SlackWebhookTechGenerated }
func (c *Config) GetSlackWebhookDefault() string       { return c.SlackWebhookDefault }
func (c *Config) GetSMTPHost() string                  { return c.SMTPHost }
func (c *Config) GetSMTPPort() int                     { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string              { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string              { return c.SMTPPassword }
func (c *Config) GetAlertEmailFrom() string            { return c.AlertEmailFrom }
func (c *Config) GetAlertEmailTo() string              { return c.AlertEmailTo }
func (c *Config) IsAlertEmailEnabled() bool {
	return c.SMTPHost != "" && c.AlertEmailFrom != "" && c.AlertEmailTo != ""
}

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string           { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool     { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string     { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int      { return c.AsynqConcurrency }
func (c *Config) GetPollInterval() time.Duration { return c.PollInterval }
func (c *Config) GetDailySummaryHour() int      { return c.DailySummaryHour }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		CronSecret:  getEnv("CRON_SECRET", ""),

		CORSAllowAll: corsAllowAll,
		CORSOrigins:  corsOrigins,

		STBaseURL:           getEnv("ST_BASE_URL", "https://api.servicetitan.io"),
		STAuthURL:           getEnv("ST_AUTH_URL", "https://auth.servicetitan.io/connect/token"),
		STClientID:          getEnv("ST_CLIENT_ID", ""),
		STClientSecret:      getEnv("ST_CLIENT_SECRET", ""),
		STTenantID:          getEnv("ST_TENANT_ID", ""),
		STAppKey:            getEnv("ST_APP_KEY", ""),
		STRequestTimeout:    mustDuration(getEnv("ST_REQUEST_TIMEOUT", "30s")),
		STRequestsPerSecond: mustFloat(getEnv("ST_REQUESTS_PER_SECOND", "5")),
		STMaxPages:          mustInt(getEnv("ST_MAX_PAGES", "20")),

		LookbackWindow:          mustDuration(getEnv("INTAKE_LOOKBACK_WINDOW", "24h")),
		IntakeConcurrency:       mustInt(getEnv("INTAKE_CONCURRENCY", "4")),
		CorrectionBatchSize:     mustInt(getEnv("INTAKE_CORRECTION_BATCH_SIZE", "10")),
		ErrorReportCap:          mustInt(getEnv("INTAKE_ERROR_REPORT_CAP", "25")),
		MarketedBusinessUnitIDs: splitCSVInt64(getEnv("ST_MARKETED_BUSINESS_UNIT_IDS", "")),
		SalesJobTypeID:          mustInt64(getEnv("ST_SALES_JOB_TYPE_ID", "0")),
		TGLTagName:              getEnv("ST_TGL_TAG_NAME", "TGL"),

		SlackWebhookMarketed:      getEnv("SLACK_WEBHOOK_MARKETED", ""),
		SlackWebhookTechGenerated: getEnv("SLACK_WEBHOOK_TECH_GENERATED", ""),
		SlackWebhookDefault:       getEnv("SLACK_WEBHOOK_URL", ""),
		SMTPHost:                  getEnv("SMTP_HOST", ""),
		SMTPPort:                  mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:              getEnv("SMTP_USERNAME", ""),
		SMTPPassword:              getEnv("SMTP_PASSWORD", ""),
		AlertEmailFrom:            getEnv("ALERT_EMAIL_FROM", ""),
		AlertEmailTo:              getEnv("ALERT_EMAIL_TO", ""),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE_NAME", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		PollInterval:     mustDuration(getEnv("POLL_INTERVAL", "2m")),
		DailySummaryHour: mustInt(getEnv("DAILY_SUMMARY_HOUR", "18")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.STClientID == "" || cfg.STClientSecret == "" {
		return nil, fmt.Errorf("ST_CLIENT_ID and ST_CLIENT_SECRET are required")
	}
	if cfg.STTenantID == "" || cfg.STAppKey == "" {
		return nil, fmt.Errorf("ST_TENANT_ID and ST_APP_KEY are required")
	}
	if cfg.SalesJobTypeID == 0 {
		return nil, fmt.Errorf("ST_SALES_JOB_TYPE_ID is required")
	}
	if len(cfg.MarketedBusinessUnitIDs) == 0 {
		return nil, fmt.Errorf("ST_MARKETED_BUSINESS_UNIT_IDS is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
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

func splitCSVInt64(value string) []int64 {
	parts := splitCSV(value)
	results := make([]int64, 0, len(parts))
	for _, part := range parts {
		parsed, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		results = append(results, parsed)
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
