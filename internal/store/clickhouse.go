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
	"regexp"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/seatunnel/procwatch/internal/config"
	"github.com/seatunnel/procwatch/internal/sampler"
	"go.uber.org/zap"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const clickHouseSchema = `CREATE TABLE IF NOT EXISTS %s (
	run_id     String,
	kind       LowCardinality(String),
	name       String,
	host       String,
	sampled_at DateTime64(3),
	pid        String,
	rss        Nullable(Int64),
	vsz        Nullable(Int64),
	pcpu       Nullable(Float64),
	pmem       Nullable(Float64),
	size       Nullable(Int64),
	cputime    String,
	open_fds   Nullable(Int64),
	sysload    Nullable(Float64),
	pmemused   Nullable(Float64),
	psystem    Nullable(Float64),
	pswpused   Nullable(Float64),
	rtps       Nullable(Float64),
	wtps       Nullable(Float64),
	missing    Array(String)
) ENGINE = MergeTree ORDER BY (run_id, sampled_at)`

// ClickHouseSink batch-inserts entries into a MergeTree table.
// ClickHouseSink 将条目批量插入 MergeTree 表。
type ClickHouseSink struct {
	conn      driver.Conn
	table     string
	batchSize int
	log       *zap.Logger
}

// NewClickHouseSink connects, pings and creates the table if needed.
// NewClickHouseSink 建立连接、执行 ping 并按需建表。
func NewClickHouseSink(ctx context.Context, cfg config.ClickHouseConfig, batchSize int, log *zap.Logger) (*ClickHouseSink, error) {
	if log == nil {
		log = zap.NewNop()
	}
	table := cfg.Table
	if table == "" {
		table = config.DefaultClickHouseTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid clickhouse table name %q / 无效的表名", table)
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Hosts,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse / 打开 ClickHouse 失败: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping clickhouse / 连接 ClickHouse 失败: %w", err)
	}
	if err := conn.Exec(ctx, fmt.Sprintf(clickHouseSchema, table)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create table %s / 建表失败: %w", table, err)
	}

	log.Info("clickhouse sample sink ready", zap.Strings("hosts", cfg.Hosts), zap.String("table", table))
	return &ClickHouseSink{conn: conn, table: table, batchSize: batchSize, log: log}, nil
}

// Write implements Sink, sending one batch per batchSize entries.
// Write 实现 Sink，每 batchSize 个条目发送一个批次。
func (s *ClickHouseSink) Write(ctx context.Context, entries []sampler.Entry) error {
	for _, chunk := range chunkEntries(entries, s.batchSize) {
		batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO "+s.table)
		if err != nil {
			return fmt.Errorf("failed to prepare batch / 准备批次失败: %w", err)
		}
		for _, e := range chunk {
			if err := batch.Append(clickHouseRow(e)...); err != nil {
				_ = batch.Abort()
				return fmt.Errorf("failed to append sample / 追加采样失败: %w", err)
			}
		}
		if err := batch.Send(); err != nil {
			return fmt.Errorf("failed to send %d samples / 发送批次失败: %w", len(chunk), err)
		}
	}
	return nil
}

// Close implements Sink.
// Close 实现 Sink。
func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}

// clickHouseRow lays e out in table column order.
func clickHouseRow(e sampler.Entry) []any {
	var fds *int64
	if e.OpenFDs != nil {
		n := int64(*e.OpenFDs)
		fds = &n
	}
	missing := e.Missing
	if missing == nil {
		missing = []string{}
	}
	return []any{
		e.RunID,
		string(e.Kind),
		e.Name,
		e.Host,
		e.Time,
		e.PID,
		e.RSS,
		e.VSZ,
		e.PCPU,
		e.PMem,
		e.Size,
		e.CPUTime,
		fds,
		e.SysLoad,
		e.PMemUsed,
		e.PSystem,
		e.PSwpUsed,
		e.RTPS,
		e.WTPS,
		missing,
	}
}

// chunkEntries splits entries into slices of at most size (one slice if size <= 0).
func chunkEntries(entries []sampler.Entry, size int) [][]sampler.Entry {
	if len(entries) == 0 {
		return nil
	}
	if size <= 0 || size >= len(entries) {
		return [][]sampler.Entry{entries}
	}
	var out [][]sampler.Entry
	for start := 0; start < len(entries); start += size {
		end := min(start+size, len(entries))
		out = append(out, entries[start:end])
	}
	return out
}
