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

// Package store persists drained sample log entries.
// store 包持久化从采样日志中导出的条目。
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/seatunnel/procwatch/internal/config"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// OpenDatabase opens a gorm connection for dbType (sqlite, mysql or postgres)
// and migrates the sample table. Empty dbType means sqlite.
// OpenDatabase 按 dbType（sqlite、mysql 或 postgres）打开 gorm 连接并迁移采样表。
// dbType 为空时使用 sqlite。
func OpenDatabase(cfg config.DatabaseConfig, dbType string, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dbType == "" {
		dbType = config.StoreSQLite
	}

	var (
		dialector gorm.Dialector
		err       error
	)
	switch dbType {
	case config.StoreSQLite:
		dialector, err = sqliteDialector(cfg.SQLitePath)
	case config.StoreMySQL:
		dialector = mysql.Open(mysqlDSN(cfg))
	case config.StorePostgres:
		dialector = postgres.Open(postgresDSN(cfg))
	default:
		return nil, fmt.Errorf("%w: %s (supported: sqlite, mysql, postgres)", ErrUnsupportedStore, dbType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to init %s driver / 初始化驱动失败: %w", dbType, err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger(cfg.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s / 连接数据库失败: %w", dbType, err)
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		log.Warn("failed to install gorm tracing plugin / 初始化追踪插件失败", zap.Error(err))
	}

	// The pool only matters for networked databases.
	if dbType != config.StoreSQLite {
		if err := configurePool(db, cfg); err != nil {
			return nil, err
		}
	}

	if err := db.AutoMigrate(&ProcessSample{}); err != nil {
		return nil, fmt.Errorf("auto migrate failed / 自动迁移失败: %w", err)
	}

	log.Info("sample database ready", zap.String("type", dbType), zap.String("database", describe(cfg, dbType)))
	return db, nil
}

func sqliteDialector(path string) (gorm.Dialector, error) {
	if path == "" {
		path = config.DefaultSQLitePath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory / 创建 SQLite 目录失败: %w", err)
		}
	}
	return sqlite.Open(path), nil
}

func mysqlDSN(cfg config.DatabaseConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username, cfg.Password, cfg.Host, port, cfg.Database)
}

func postgresDSN(cfg config.DatabaseConfig) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, port, cfg.Username, cfg.Password, cfg.Database)
}

func describe(cfg config.DatabaseConfig, dbType string) string {
	if dbType == config.StoreSQLite {
		if cfg.SQLitePath == "" {
			return config.DefaultSQLitePath
		}
		return cfg.SQLitePath
	}
	return fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
}

func configurePool(db *gorm.DB, cfg config.DatabaseConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB / 获取底层数据库连接失败: %w", err)
	}
	if cfg.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	}
	if cfg.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}
	return nil
}

func gormLogger(level string) logger.Interface {
	var lvl logger.LogLevel
	switch level {
	case "silent":
		lvl = logger.Silent
	case "error":
		lvl = logger.Error
	case "info":
		lvl = logger.Info
	default:
		lvl = logger.Warn
	}
	return logger.Default.LogMode(lvl)
}

// CloseDatabase closes the connection behind db.
// CloseDatabase 关闭 db 的底层连接。
func CloseDatabase(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB / 获取底层数据库连接失败: %w", err)
	}
	return sqlDB.Close()
}
