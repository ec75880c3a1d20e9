/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config provides configuration management for procwatch.
// config 包提供 procwatch 的配置管理功能。
//
// Configuration loading priority (highest to lowest):
// 配置加载优先级（从高到低）：
// 1. Command line flags / 命令行参数
// 2. Environment variables (PROCWATCH_*) / 环境变量
// 3. Configuration file / 配置文件
// 4. Default values / 默认值
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values
// 默认配置值
const (
	DefaultConfigPath      = "/etc/procwatch/config.yaml"
	DefaultEnvPrefix       = "PROCWATCH"
	DefaultInterval        = 60 * time.Second
	DefaultExportInterval  = 30 * time.Second
	DefaultExclude         = "procwatch"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"
	DefaultLogMaxSize      = 100 // MB
	DefaultLogMaxBackups   = 3
	DefaultLogMaxAge       = 7 // days
	DefaultStoreType       = StoreNone
	DefaultBatchSize       = 500
	DefaultSQLitePath      = "./data/procwatch.db"
	DefaultRedisKeyPrefix  = "procwatch:samples:"
	DefaultClickHouseTable = "process_samples"
	DefaultHTTPAddr        = ":8089"
	DefaultSSHTimeout      = 10 * time.Second
	DefaultServiceName     = "procwatch"
)

// Store types
// 存储类型
const (
	StoreNone       = "none"
	StoreSQLite     = "sqlite"
	StoreMySQL      = "mysql"
	StorePostgres   = "postgres"
	StoreRedis      = "redis"
	StoreClickHouse = "clickhouse"
)

// Load loads configuration from file and environment variables. A missing
// file is not an error; defaults apply.
// Load 从文件和环境变量加载配置。配置文件不存在不视为错误，使用默认值。
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values / 设置默认值
	setDefaults(v)

	// Set config file path / 设置配置文件路径
	if configPath == "" {
		configPath = os.Getenv(DefaultEnvPrefix + "_CONFIG_PATH")
	}
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	v.SetConfigFile(configPath)

	// Enable environment variable override / 启用环境变量覆盖
	v.SetEnvPrefix(DefaultEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file / 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			if _, statErr := os.Stat(v.ConfigFileUsed()); statErr == nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// File doesn't exist, use defaults / 文件不存在，使用默认值
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LoadFromYAML loads configuration from YAML bytes on top of the defaults.
// LoadFromYAML 在默认值基础上从 YAML 字节加载配置。
func LoadFromYAML(data []byte) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadConfig(strings.NewReader(string(data))); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can override it.
// setDefaults 设置默认配置值。每个键都需要默认值，AutomaticEnv 才能覆盖它。
func setDefaults(v *viper.Viper) {
	// Target defaults / 目标默认值
	v.SetDefault("target.host", "")
	v.SetDefault("target.name", "")
	v.SetDefault("target.regex", false)

	// Sampler defaults / 采样器默认值
	v.SetDefault("sampler.interval", DefaultInterval)
	v.SetDefault("sampler.exclude", DefaultExclude)
	v.SetDefault("sampler.protocols", []string{"TCP"})
	v.SetDefault("sampler.export_interval", DefaultExportInterval)

	// SSH defaults / SSH 默认值
	v.SetDefault("ssh.user", "root")
	v.SetDefault("ssh.port", 22)
	v.SetDefault("ssh.key_file", "")
	v.SetDefault("ssh.password", "")
	v.SetDefault("ssh.known_hosts_file", "")
	v.SetDefault("ssh.insecure_ignore_host_key", false)
	v.SetDefault("ssh.timeout", DefaultSSHTimeout)

	// Log defaults / 日志默认值
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age", DefaultLogMaxAge)
	v.SetDefault("log.compress", true)

	// Store defaults / 存储默认值
	v.SetDefault("store.type", DefaultStoreType)
	v.SetDefault("store.batch_size", DefaultBatchSize)
	v.SetDefault("store.database.sqlite_path", DefaultSQLitePath)
	v.SetDefault("store.database.host", "127.0.0.1")
	v.SetDefault("store.database.port", 0)
	v.SetDefault("store.database.username", "")
	v.SetDefault("store.database.password", "")
	v.SetDefault("store.database.database", "procwatch")
	v.SetDefault("store.database.max_idle_conn", 5)
	v.SetDefault("store.database.max_open_conn", 20)
	v.SetDefault("store.database.conn_max_lifetime", 3600)
	v.SetDefault("store.database.log_level", "warn")
	v.SetDefault("store.redis.addr", "127.0.0.1:6379")
	v.SetDefault("store.redis.username", "")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.key_prefix", DefaultRedisKeyPrefix)
	v.SetDefault("store.redis.ttl", time.Duration(0))
	v.SetDefault("store.clickhouse.hosts", []string{"127.0.0.1:9000"})
	v.SetDefault("store.clickhouse.username", "default")
	v.SetDefault("store.clickhouse.password", "")
	v.SetDefault("store.clickhouse.database", "default")
	v.SetDefault("store.clickhouse.table", DefaultClickHouseTable)
	v.SetDefault("store.clickhouse.dial_timeout", 10*time.Second)

	// HTTP defaults / HTTP 默认值
	v.SetDefault("http.enabled", false)
	v.SetDefault("http.addr", DefaultHTTPAddr)
	v.SetDefault("http.mode", "release")

	// Telemetry defaults / 遥测默认值
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", DefaultServiceName)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Validate validates the configuration
// Validate 验证配置
func (c *Config) Validate() error {
	// Validate sampler / 验证采样器
	if c.Sampler.Interval < time.Second {
		return errors.New("sampler.interval must be at least 1 second")
	}
	if c.Sampler.ExportInterval <= 0 {
		return errors.New("sampler.export_interval must be positive")
	}

	// Validate log level / 验证日志级别
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be console or json)", c.Log.Format)
	}

	// Validate store / 验证存储
	switch c.Store.Type {
	case StoreNone, StoreSQLite:
	case StoreMySQL, StorePostgres:
		if c.Store.Database.Host == "" || c.Store.Database.Database == "" {
			return fmt.Errorf("store.database.host and store.database.database are required for %s", c.Store.Type)
		}
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr is required for redis")
		}
	case StoreClickHouse:
		if len(c.Store.ClickHouse.Hosts) == 0 {
			return errors.New("store.clickhouse.hosts is required for clickhouse")
		}
	default:
		return fmt.Errorf("unsupported store type: %s (must be none, sqlite, mysql, postgres, redis, or clickhouse)", c.Store.Type)
	}
	if c.Store.BatchSize <= 0 {
		return errors.New("store.batch_size must be positive")
	}

	// Validate SSH / 验证 SSH
	if c.SSH.KeyFile == "" && c.SSH.Password == "" && c.Target.Host != "" && !isLoopback(c.Target.Host) {
		return errors.New("ssh.key_file or ssh.password is required for a remote target.host")
	}

	// Validate HTTP / 验证 HTTP
	switch c.HTTP.Mode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("invalid http mode: %s (must be debug, release, or test)", c.HTTP.Mode)
	}
	if c.HTTP.Enabled && c.HTTP.Addr == "" {
		return errors.New("http.addr is required when http is enabled")
	}

	// Validate telemetry / 验证遥测
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("telemetry.endpoint is required when telemetry is enabled")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return errors.New("telemetry.sample_ratio must be between 0 and 1")
	}

	return nil
}

func isLoopback(host string) bool {
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// String returns a string representation of the config (for debugging).
// Secrets are not included.
// String 返回配置的字符串表示（用于调试），不包含密码等敏感信息。
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Target.Host: %q, Target.Name: %q, Target.Regex: %t, Sampler.Interval: %v, Store.Type: %s, HTTP.Enabled: %t, Log.Level: %s}",
		c.Target.Host,
		c.Target.Name,
		c.Target.Regex,
		c.Sampler.Interval,
		c.Store.Type,
		c.HTTP.Enabled,
		c.Log.Level,
	)
}
