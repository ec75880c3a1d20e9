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

package config

import "time"

// Config is the full procwatch configuration
// Config 是 procwatch 的完整配置
type Config struct {
	Target    TargetConfig    `mapstructure:"target"`
	Sampler   SamplerConfig   `mapstructure:"sampler"`
	SSH       SSHConfig       `mapstructure:"ssh"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// TargetConfig 被监控的主机和进程
type TargetConfig struct {
	Host  string `mapstructure:"host"`  // 为空表示本机 / empty means this machine
	Name  string `mapstructure:"name"`  // 进程名或正则 / process name or pattern
	Regex bool   `mapstructure:"regex"` // Name 是否为正则 / whether Name is a regex
}

// SamplerConfig 采样器配置
type SamplerConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	Exclude        string        `mapstructure:"exclude"`   // 排除的命令正则 / commands to skip
	Protocols      []string      `mapstructure:"protocols"` // sar -n 协议 / sar -n protocols
	ExportInterval time.Duration `mapstructure:"export_interval"`
}

// SSHConfig 远程主机 SSH 配置
type SSHConfig struct {
	User                  string        `mapstructure:"user"`
	Port                  int           `mapstructure:"port"`
	KeyFile               string        `mapstructure:"key_file"`
	Password              string        `mapstructure:"password"`
	KnownHostsFile        string        `mapstructure:"known_hosts_file"`
	InsecureIgnoreHostKey bool          `mapstructure:"insecure_ignore_host_key"`
	Timeout               time.Duration `mapstructure:"timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // console, json
	File       string `mapstructure:"file"`   // 为空时只输出到控制台 / console only when empty
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// StoreConfig 采样数据导出配置
type StoreConfig struct {
	Type       string           `mapstructure:"type"` // none, sqlite, mysql, postgres, redis, clickhouse
	BatchSize  int              `mapstructure:"batch_size"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	SQLitePath      string `mapstructure:"sqlite_path"` // SQLite 文件路径
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConn     int    `mapstructure:"max_idle_conn"`
	MaxOpenConn     int    `mapstructure:"max_open_conn"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"` // 0 表示不过期 / 0 keeps keys forever
}

// ClickHouseConfig ClickHouse 配置
type ClickHouseConfig struct {
	Hosts       []string      `mapstructure:"hosts"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	Database    string        `mapstructure:"database"`
	Table       string        `mapstructure:"table"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// HTTPConfig HTTP 查询接口配置
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Mode    string `mapstructure:"mode"` // gin 模式: debug, release, test
}

// TelemetryConfig OpenTelemetry 配置
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"` // OTLP gRPC 地址 / OTLP gRPC endpoint
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}
