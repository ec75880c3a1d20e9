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

package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/seatunnel/procwatch/internal/config"
	"github.com/seatunnel/procwatch/internal/sampler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sink receives drained sample log entries.
// Sink 接收从采样日志中导出的条目。
type Sink interface {
	// Write persists entries in order. Entries are not retried on error.
	// Write 按顺序持久化条目，出错时不重试。
	Write(ctx context.Context, entries []sampler.Entry) error

	// Close releases the underlying connection.
	// Close 释放底层连接。
	Close() error
}

// NewSink builds the sink selected by cfg.Type.
// NewSink 根据 cfg.Type 构建对应的 Sink。
func NewSink(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (Sink, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Type {
	case "", config.StoreNone:
		return NopSink{}, nil
	case config.StoreSQLite, config.StoreMySQL, config.StorePostgres:
		db, err := OpenDatabase(cfg.Database, cfg.Type, log)
		if err != nil {
			return nil, err
		}
		return NewSQLSink(db, cfg.BatchSize), nil
	case config.StoreRedis:
		return NewRedisSink(ctx, cfg.Redis, log)
	case config.StoreClickHouse:
		return NewClickHouseSink(ctx, cfg.ClickHouse, cfg.BatchSize, log)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStore, cfg.Type)
	}
}

// NopSink discards everything.
// NopSink 丢弃所有条目。
type NopSink struct{}

func (NopSink) Write(context.Context, []sampler.Entry) error { return nil }

func (NopSink) Close() error { return nil }

// MemorySink keeps written entries in memory.
// MemorySink 在内存中保存写入的条目。
type MemorySink struct {
	mu      sync.Mutex
	entries []sampler.Entry
	closed  bool
}

// NewMemorySink creates an empty MemorySink.
// NewMemorySink 创建空的 MemorySink。
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write appends entries.
// Write 追加条目。
func (m *MemorySink) Write(_ context.Context, entries []sampler.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrSinkClosed
	}
	m.entries = append(m.entries, entries...)
	return nil
}

// Entries returns a copy of everything written so far.
// Entries 返回目前写入的所有条目的副本。
func (m *MemorySink) Entries() []sampler.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sampler.Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Close marks the sink closed.
// Close 将 sink 标记为已关闭。
func (m *MemorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SQLSink writes entries through a Repository.
// SQLSink 通过 Repository 写入条目。
type SQLSink struct {
	db        *gorm.DB
	repo      *Repository
	batchSize int
}

// NewSQLSink wraps db. batchSize bounds each INSERT.
// NewSQLSink 包装 db，batchSize 限制每次 INSERT 的行数。
func NewSQLSink(db *gorm.DB, batchSize int) *SQLSink {
	return &SQLSink{db: db, repo: NewRepository(db), batchSize: batchSize}
}

// Repository exposes the sink's repository for reads.
// Repository 返回 sink 使用的 Repository 以便读取。
func (s *SQLSink) Repository() *Repository {
	return s.repo
}

// Write implements Sink.
// Write 实现 Sink。
func (s *SQLSink) Write(ctx context.Context, entries []sampler.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]ProcessSample, len(entries))
	for i, e := range entries {
		rows[i] = SampleFromEntry(e)
	}
	if err := s.repo.Create(ctx, rows, s.batchSize); err != nil {
		return fmt.Errorf("failed to insert %d samples / 插入采样失败: %w", len(rows), err)
	}
	return nil
}

// Close implements Sink.
// Close 实现 Sink。
func (s *SQLSink) Close() error {
	return CloseDatabase(s.db)
}
