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
	"sync/atomic"
	"time"

	"github.com/seatunnel/procwatch/internal/sampler"
	"go.uber.org/zap"
)

// flushTimeout bounds the final flush after the exporter is cancelled.
const flushTimeout = 10 * time.Second

// Drainer hands over and clears buffered entries.
// Drainer 交出并清空缓冲的条目。
type Drainer interface {
	Drain() []sampler.Entry
}

// ExporterStats counts what the exporter has done so far.
// ExporterStats 统计导出器的工作情况。
type ExporterStats struct {
	Written int64 `json:"written"`
	Dropped int64 `json:"dropped"`
	Flushes int64 `json:"flushes"`
}

// Exporter periodically drains a sample log into a Sink. A failed write is
// logged and its entries are dropped.
// Exporter 周期性地将采样日志导出到 Sink。写入失败时记录日志并丢弃这些条目。
type Exporter struct {
	src      Drainer
	sink     Sink
	interval time.Duration
	log      *zap.Logger

	written atomic.Int64
	dropped atomic.Int64
	flushes atomic.Int64
}

// NewExporter creates an Exporter that flushes every interval.
// NewExporter 创建每隔 interval 导出一次的 Exporter。
func NewExporter(src Drainer, sink Sink, interval time.Duration, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{src: src, sink: sink, interval: interval, log: log}
}

// Run flushes on every tick until ctx is done, then flushes once more.
// Run 在每个周期导出一次，直到 ctx 结束后再导出最后一次。
func (x *Exporter) Run(ctx context.Context) {
	ticker := time.NewTicker(x.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
			x.Flush(final)
			cancel()
			return
		case <-ticker.C:
			x.Flush(ctx)
		}
	}
}

// Flush drains the source once and writes the result. It returns the number
// of entries written.
// Flush 导出一次并写入 sink，返回写入的条目数。
func (x *Exporter) Flush(ctx context.Context) int {
	entries := x.src.Drain()
	if len(entries) == 0 {
		return 0
	}
	x.flushes.Add(1)

	if err := x.sink.Write(ctx, entries); err != nil {
		x.dropped.Add(int64(len(entries)))
		x.log.Warn("failed to export samples, dropping them / 导出采样失败，已丢弃",
			zap.Int("entries", len(entries)),
			zap.Error(err),
		)
		return 0
	}
	x.written.Add(int64(len(entries)))
	x.log.Debug("samples exported", zap.Int("entries", len(entries)))
	return len(entries)
}

// Stats returns the running counters.
// Stats 返回累计计数。
func (x *Exporter) Stats() ExporterStats {
	return ExporterStats{
		Written: x.written.Load(),
		Dropped: x.dropped.Load(),
		Flushes: x.flushes.Load(),
	}
}
