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
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/seatunnel/procwatch/internal/config"
	"github.com/seatunnel/procwatch/internal/sampler"
	"go.uber.org/zap"
)

// RedisSink appends each entry as a JSON document to the list
// <prefix><run_id>.
// RedisSink 将每个条目以 JSON 文档追加到列表 <prefix><run_id>。
type RedisSink struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisSink connects to Redis and checks the connection with PING.
// NewRedisSink 连接 Redis 并通过 PING 检查连接。
func NewRedisSink(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (*RedisSink, error) {
	if log == nil {
		log = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := redisotel.InstrumentTracing(client); err != nil {
		log.Warn("failed to instrument redis tracing / 初始化 Redis 追踪失败", zap.Error(err))
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect redis %s / 连接 Redis 失败: %w", cfg.Addr, err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = config.DefaultRedisKeyPrefix
	}
	log.Info("redis sample sink ready", zap.String("addr", cfg.Addr), zap.String("prefix", prefix))
	return &RedisSink{client: client, prefix: prefix, ttl: cfg.TTL, log: log}, nil
}

// Write implements Sink. All lists touched by one call are pushed in a
// single pipeline.
// Write 实现 Sink。一次调用涉及的所有列表在同一个 pipeline 中写入。
func (s *RedisSink) Write(ctx context.Context, entries []sampler.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	keys, values, err := encodeEntries(s.prefix, entries)
	if err != nil {
		return err
	}

	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, key := range keys {
			p.RPush(ctx, key, values[key]...)
			if s.ttl > 0 {
				p.Expire(ctx, key, s.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push %d samples / 写入 Redis 失败: %w", len(entries), err)
	}
	return nil
}

// Close implements Sink.
// Close 实现 Sink。
func (s *RedisSink) Close() error {
	return s.client.Close()
}

// redisKey names the list holding one run's samples.
func redisKey(prefix, runID string) string {
	if runID == "" {
		runID = "unknown"
	}
	return prefix + runID
}

// encodeEntries groups JSON-encoded entries by list key. keys keeps the
// order in which each key first appears.
func encodeEntries(prefix string, entries []sampler.Entry) ([]string, map[string][]any, error) {
	var keys []string
	values := make(map[string][]any)
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode sample / 编码采样失败: %w", err)
		}
		key := redisKey(prefix, e.RunID)
		if _, ok := values[key]; !ok {
			keys = append(keys, key)
		}
		values[key] = append(values[key], string(data))
	}
	return keys, values, nil
}
