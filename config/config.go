package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        int
	MetricsPort int

	DbConnStr    string
	BackupDbPath string

	SearchIndexPath string

	S3BackupUrl             string
	S3BackupBucket          string
	S3BackupAccessKeyId     string
	S3BackupSecretAccessKey string

	JobKey string

	FeedFetchTimeout time.Duration

	AppEnv string
}

const (
	AppEnvDevelopment = "development"
	AppEnvProduction  = "production"
)

func (c *Config) ConnectionString() string {
	return c.DbConnStr
}

func NewConfig() (*Config, error) {
	godotenv.Load()
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = AppEnvDevelopment
	} else {
		if appEnv != AppEnvDevelopment && appEnv != AppEnvProduction {
			return nil, fmt.Errorf("failed to validate APP_ENV: invalid value %q", appEnv)
		}
	}
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}
	metricsPort, err := strconv.Atoi(os.Getenv("METRICS_PORT"))
	if err != nil {
		metricsPort = 2112
	}
	fetchTimeout := 30 * time.Second
	if timeoutStr := os.Getenv("FEED_FETCH_TIMEOUT_SECONDS"); timeoutStr != "" {
		timeoutSeconds, err := strconv.Atoi(timeoutStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse FEED_FETCH_TIMEOUT_SECONDS: %w", err)
		}
		fetchTimeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &Config{
		Port:                    port,
		MetricsPort:             metricsPort,
		DbConnStr:               os.Getenv("DB_CONN_STR"),
		BackupDbPath:            os.Getenv("BACKUP_DB_PATH"),
		SearchIndexPath:         os.Getenv("SEARCH_INDEX_PATH"),
		S3BackupUrl:             os.Getenv("S3_BACKUP_URL"),
		S3BackupBucket:          os.Getenv("S3_BACKUP_BUCKET"),
		S3BackupAccessKeyId:     os.Getenv("S3_BACKUP_ACCESS_KEY_ID"),
		S3BackupSecretAccessKey: os.Getenv("S3_BACKUP_SECRET_ACCESS_KEY"),
		JobKey:                  os.Getenv("JOB_KEY"),
		FeedFetchTimeout:        fetchTimeout,
		AppEnv:                  appEnv,
	}, nil
}
