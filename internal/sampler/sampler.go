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

// Package sampler periodically snapshots matching processes and host-wide
// activity into an in-memory, append-only log.
// sampler 包周期性地将匹配进程和主机级活动快照追加到内存日志中。
package sampler

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/seatunnel/procwatch/internal/procutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tracerName is the instrumentation scope used when Options.Tracer is nil.
const tracerName = "github.com/seatunnel/procwatch/internal/sampler"

// DefaultInterval is the sleep between two iterations.
// DefaultInterval 是两次迭代之间的休眠时间。
const DefaultInterval = 60 * time.Second

// DefaultExclude matches procwatch's own processes so they are not sampled.
// DefaultExclude 匹配 procwatch 自身的进程，使其不被采样。
const DefaultExclude = "procwatch"

// State is the lifecycle state of a Sampler.
// State 是采样器的生命周期状态。
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// ProcessQuerier lists processes on a host.
// ProcessQuerier 列出主机上的进程。
type ProcessQuerier interface {
	Query(ctx context.Context, hostname string, opts procutil.QueryOptions) *procutil.Snapshot
}

// StatsReader reads host-wide activity.
// StatsReader 读取主机级活动指标。
type StatsReader interface {
	Read(ctx context.Context, hostname string, protocols []string) (map[string]string, error)
	LoadAverage(ctx context.Context, hostname string) (float64, error)
}

// Options configure a Sampler.
// Options 配置采样器。
type Options struct {
	// Host is the monitored host ("" for this machine).
	// Host 是被监控的主机（本机为空串）。
	Host string

	// Name selects processes, as a substring or as a regex when Regex is set.
	// Name 用于选择进程，Regex 为 true 时作为正则表达式。
	Name  string
	Regex bool

	// Interval is the sleep between iterations (DefaultInterval if zero).
	// Interval 是迭代之间的休眠时间（为 0 时使用 DefaultInterval）。
	Interval time.Duration

	// Exclude drops processes whose command matches; empty disables exclusion.
	// Exclude 排除命令匹配的进程；为空时不排除。
	Exclude string

	// Protocols are passed to the activity report (TCP if empty).
	// Protocols 传递给活动报告（为空时使用 TCP）。
	Protocols []string

	// Tracer records one span per iteration (the global tracer if nil).
	// Tracer 为每次迭代记录一个 span（为 nil 时使用全局 tracer）。
	Tracer trace.Tracer
}

// Info describes a Sampler at one instant.
// Info 描述采样器某一时刻的状态。
type Info struct {
	State           State   `json:"state"`
	RunID           string  `json:"run_id"`
	Host            string  `json:"host"`
	Name            string  `json:"name"`
	Regex           bool    `json:"regex"`
	IntervalSeconds float64 `json:"interval_seconds"`
	Entries         int     `json:"entries"`
}

// Sampler runs the sampling loop. It moves Idle -> Running -> Stopping -> Idle.
// Sampler 运行采样循环，状态依次为 Idle -> Running -> Stopping -> Idle。
type Sampler struct {
	query     ProcessQuerier
	stats     StatsReader
	logger    *zap.Logger
	host      string
	name      string
	regex     bool
	exclude   *regexp.Regexp
	protocols []string
	tracer    trace.Tracer
	now       func() time.Time

	mu       sync.Mutex
	state    State
	interval time.Duration
	runID    string
	cancel   context.CancelFunc
	done     chan struct{}

	logMu   sync.Mutex
	entries []Entry
	sysstat map[string]string
}

// New creates an idle Sampler.
// New 创建空闲状态的采样器。
func New(query ProcessQuerier, stats StatsReader, opts Options, logger *zap.Logger) (*Sampler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Interval < 0 {
		return nil, ErrInvalidInterval
	}
	if opts.Interval == 0 {
		opts.Interval = DefaultInterval
	}

	var exclude *regexp.Regexp
	if opts.Exclude != "" {
		re, err := regexp.Compile(opts.Exclude)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", opts.Exclude, err)
		}
		exclude = re
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Sampler{
		query:     query,
		stats:     stats,
		logger:    logger,
		host:      opts.Host,
		name:      opts.Name,
		regex:     opts.Regex,
		exclude:   exclude,
		protocols: append([]string(nil), opts.Protocols...),
		tracer:    tracer,
		now:       time.Now,
		state:     StateIdle,
		interval:  opts.Interval,
		sysstat:   make(map[string]string),
	}, nil
}

// Start launches the loop. The loop also ends when ctx is cancelled.
// Start 启动采样循环。ctx 被取消时循环同样结束。
func (s *Sampler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.runID = uuid.NewString()
	s.state = StateRunning
	s.cancel = cancel
	s.done = make(chan struct{})

	s.logger.Info("sampler started",
		zap.String("run_id", s.runID),
		zap.String("host", s.host),
		zap.String("name", s.name),
		zap.Bool("regex", s.regex),
		zap.Duration("interval", s.interval))

	go s.loop(runCtx, s.runID, s.done)
	return nil
}

// Stop requests the loop to end and waits for it. No entry is appended
// after Stop returns.
// Stop 请求结束循环并等待其退出。Stop 返回后不会再追加任何条目。
func (s *Sampler) Stop() error {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.state = StateStopping
	s.cancel()
	done := s.done
	runID := s.runID
	s.mu.Unlock()

	<-done
	s.logger.Info("sampler stopped", zap.String("run_id", runID), zap.Int("entries", s.Len()))
	return nil
}

// SetInterval changes the sleep used after the current iteration.
// SetInterval 修改当前迭代之后使用的休眠时间。
func (s *Sampler) SetInterval(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidInterval
	}
	s.mu.Lock()
	old := s.interval
	s.interval = d
	s.mu.Unlock()

	s.logger.Info("sampler interval changed", zap.Duration("from", old), zap.Duration("to", d))
	return nil
}

// Interval returns the current sleep between iterations.
// Interval 返回当前的迭代间隔。
func (s *Sampler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// State returns the lifecycle state.
// State 返回生命周期状态。
func (s *Sampler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RunID returns the ID of the current or last run ("" before the first Start).
// RunID 返回当前或上一次运行的 ID（首次 Start 之前为空）。
func (s *Sampler) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Info returns a summary of the sampler.
// Info 返回采样器的概要信息。
func (s *Sampler) Info() Info {
	s.mu.Lock()
	info := Info{
		State:           s.state,
		RunID:           s.runID,
		Host:            s.host,
		Name:            s.name,
		Regex:           s.regex,
		IntervalSeconds: s.interval.Seconds(),
	}
	s.mu.Unlock()
	info.Entries = s.Len()
	return info
}

// Entries returns a copy of the log.
// Entries 返回日志的副本。
func (s *Sampler) Entries() []Entry {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of logged entries.
// Len 返回日志条目数。
func (s *Sampler) Len() int {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	return len(s.entries)
}

// Drain removes and returns every logged entry.
// Drain 移除并返回所有日志条目。
func (s *Sampler) Drain() []Entry {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	out := s.entries
	s.entries = nil
	return out
}

// Stats returns a copy of the merged activity table.
// Stats 返回合并后的活动统计表副本。
func (s *Sampler) Stats() map[string]string {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	out := make(map[string]string, len(s.sysstat))
	for k, v := range s.sysstat {
		out[k] = v
	}
	return out
}

func (s *Sampler) loop(ctx context.Context, runID string, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.state = StateIdle
		s.cancel()
		s.cancel = nil
		s.mu.Unlock()
		close(done)
	}()

	// Commands in flight finish even after Stop; Stop waits at most one iteration.
	cmdCtx := context.WithoutCancel(ctx)
	for {
		if ctx.Err() != nil {
			return
		}
		s.iterate(cmdCtx, runID)
		if ctx.Err() != nil {
			return
		}

		timer := time.NewTimer(s.Interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// iterate takes one snapshot of processes and host activity and appends it.
// iterate 采集一次进程和主机活动快照并追加到日志。
func (s *Sampler) iterate(ctx context.Context, runID string) {
	ctx, span := s.tracer.Start(ctx, "sampler.iterate", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("host", s.host),
	))
	defer span.End()

	t := s.now()

	snap := s.query.Query(ctx, s.host, procutil.QueryOptions{Name: s.name, Regex: s.regex})
	var batch []Entry
	for _, rec := range snap.Records() {
		if s.exclude != nil && s.exclude.MatchString(rec.Command) {
			continue
		}
		batch = append(batch, processEntry(rec, t, runID))
	}

	stats, err := s.stats.Read(ctx, s.host, s.protocols)
	if err != nil {
		s.logger.Warn("activity report unavailable", zap.String("host", s.host), zap.Error(err))
	}

	var load *float64
	if v, err := s.stats.LoadAverage(ctx, s.host); err == nil {
		load = &v
	} else {
		s.logger.Warn("load average unavailable", zap.String("host", s.host), zap.Error(err))
	}

	s.logMu.Lock()
	for k, v := range stats {
		s.sysstat[k] = v
	}
	sys := systemEntry(s.sysstat, load, t, runID, s.host)
	s.entries = append(s.entries, batch...)
	s.entries = append(s.entries, sys)
	s.logMu.Unlock()

	span.SetAttributes(
		attribute.Int("processes", len(batch)),
		attribute.String("query_status", string(snap.Status)),
	)
	if len(sys.Missing) > 0 {
		s.logger.Warn("system sample incomplete", zap.Strings("missing", sys.Missing))
	}
	s.logger.Debug("sample taken",
		zap.String("run_id", runID),
		zap.Int("processes", len(batch)),
		zap.String("query_status", string(snap.Status)))
}
