package di

import (
	"github.com/prohmpiriya/shelf-booking/pkg/config"
	"github.com/prohmpiriya/shelf-booking/pkg/database"
	"github.com/prohmpiriya/shelf-booking/pkg/kafka"
	"github.com/prohmpiriya/shelf-booking/pkg/redis"
	"github.com/prohmpiriya/shelf-booking/pkg/retry"
	"github.com/prohmpiriya/shelf-booking/pkg/telemetry"
)

// PostgresConfig maps application config onto the pool settings
func PostgresConfig(cfg *config.Config) *database.PostgresConfig {
	dbCfg := database.DefaultPostgresConfig()
	dbCfg.Host = cfg.Database.Host
	dbCfg.Port = cfg.Database.Port
	dbCfg.User = cfg.Database.User
	dbCfg.Password = cfg.Database.Password
	dbCfg.Database = cfg.Database.DBName
	dbCfg.SSLMode = cfg.Database.SSLMode
	if cfg.Database.MaxOpenConns > 0 {
		dbCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		dbCfg.MinConns = int32(cfg.Database.MaxIdleConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		dbCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	}
	if cfg.Database.ConnMaxIdleTime > 0 {
		dbCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	}
	dbCfg.EnableTracing = cfg.OTel.Enabled
	return dbCfg
}

// RedisConfig maps application config onto the client settings
func RedisConfig(cfg *config.Config) *redis.Config {
	redisCfg := redis.DefaultConfig()
	redisCfg.Host = cfg.Redis.Host
	redisCfg.Port = cfg.Redis.Port
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB
	if cfg.Redis.PoolSize > 0 {
		redisCfg.PoolSize = cfg.Redis.PoolSize
	}
	if cfg.Redis.MinIdleConns > 0 {
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
	}
	if cfg.Redis.DialTimeout > 0 {
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
	}
	if cfg.Redis.ReadTimeout > 0 {
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
	}
	if cfg.Redis.WriteTimeout > 0 {
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout
	}
	return redisCfg
}

// ProducerConfig maps application config onto the Kafka producer settings
func ProducerConfig(cfg *config.Config) *kafka.ProducerConfig {
	return &kafka.ProducerConfig{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: cfg.Kafka.ClientID,
		Retry:    retry.DefaultConfig(),
	}
}

// TelemetryConfig maps application config onto the tracer settings
func TelemetryConfig(cfg *config.Config, serviceName string) *telemetry.Config {
	return &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}
}
