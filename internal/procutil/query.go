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

package procutil

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/seatunnel/procwatch/internal/cmdexec"
	"go.uber.org/zap"
)

// PlatformResolver maps a hostname to its platform tag.
// PlatformResolver 将主机名映射为平台标识。
type PlatformResolver interface {
	Resolve(ctx context.Context, hostname string) string
}

// QueryOptions selects what Query looks for. Name wins over PID when both are set.
// QueryOptions 指定 Query 的查询条件。同时设置时 Name 优先于 PID。
type QueryOptions struct {
	// Name is matched as a substring of the command, or as a regular
	// expression when Regex is set.
	// Name 作为命令的子串匹配；Regex 为 true 时作为正则表达式匹配。
	Name string `json:"name"`

	// PID selects a single process.
	// PID 选择单个进程。
	PID string `json:"pid"`

	// Regex switches Name to regular expression matching.
	// Regex 将 Name 切换为正则匹配。
	Regex bool `json:"regex"`
}

// Query lists processes on hosts and keeps the result of the last pass.
// Query 列出主机上的进程并保存最近一次查询结果。
type Query struct {
	exec     cmdexec.Executor
	resolver PlatformResolver
	logger   *zap.Logger
	now      func() time.Time

	// cacheMu serializes dialect probes so each host is probed once.
	cacheMu  sync.Mutex
	dialects *ttlcache.Cache[string, Dialect]

	snapMu   sync.RWMutex
	snapshot *Snapshot
}

// NewQuery creates a Query.
// NewQuery 创建 Query。
func NewQuery(exec cmdexec.Executor, resolver PlatformResolver, logger *zap.Logger) *Query {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Query{
		exec:     exec,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
		dialects: ttlcache.New[string, Dialect](),
		snapshot: newSnapshot("", ""),
	}
}

// ListingCommand returns the ps dialect for hostname. The platform is probed
// on first use and cached for the lifetime of the Query.
// ListingCommand 返回 hostname 的 ps 方言。首次使用时探测平台，并在 Query 生命周期内缓存。
func (q *Query) ListingCommand(ctx context.Context, hostname string) Dialect {
	q.cacheMu.Lock()
	defer q.cacheMu.Unlock()

	if item := q.dialects.Get(hostname); item != nil {
		return item.Value().clone()
	}

	tag := q.resolver.Resolve(ctx, hostname)
	d := dialectFor(tag)
	q.dialects.Set(hostname, d, ttlcache.NoTTL)
	q.logger.Debug("listing dialect cached",
		zap.String("host", hostname),
		zap.String("platform", tag),
		zap.Strings("base_args", d.BaseArgs))
	return d.clone()
}

// CountOpenFDs counts the entries of /proc/<pid>/fd on hostname.
// CountOpenFDs 统计 hostname 上 /proc/<pid>/fd 的条目数。
func (q *Query) CountOpenFDs(ctx context.Context, hostname, pid string) (int, error) {
	if pid == "" {
		return 0, ErrPIDRequired
	}

	argv := []string{"ls", "-l", "/proc/" + pid + "/fd"}
	res, err := q.exec.Run(ctx, hostname, argv, cmdexec.Options{Sudo: true})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	if !res.OK() {
		return 0, fmt.Errorf("%w: ls exited with status %d", ErrProbeFailed, res.ExitCode)
	}

	n := 0
	for _, line := range res.Stdout {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "total ") {
			continue
		}
		n++
	}
	return n, nil
}

// Query replaces the current snapshot with a fresh listing of hostname.
// Failures never surface as errors: they yield an empty snapshot whose
// Status is StatusFailed.
// Query 用 hostname 的最新进程列表替换当前快照。失败不会返回错误，
// 而是返回 Status 为 StatusFailed 的空快照。
func (q *Query) Query(ctx context.Context, hostname string, opts QueryOptions) *Snapshot {
	q.setSnapshot(newSnapshot(hostname, ""))

	if opts.Name == "" && opts.PID == "" {
		return q.Processes()
	}

	d := q.ListingCommand(ctx, hostname)
	snap := q.list(ctx, hostname, d, opts)
	q.setSnapshot(snap)
	return snap
}

// Processes returns the snapshot produced by the last Query.
// Processes 返回最近一次 Query 生成的快照。
func (q *Query) Processes() *Snapshot {
	q.snapMu.RLock()
	defer q.snapMu.RUnlock()
	return q.snapshot
}

func (q *Query) setSnapshot(s *Snapshot) {
	q.snapMu.Lock()
	q.snapshot = s
	q.snapMu.Unlock()
}

// list runs one listing in the mode selected by opts and parses the output.
// list 按 opts 选择的模式执行一次列表并解析输出。
func (q *Query) list(ctx context.Context, hostname string, d Dialect, opts QueryOptions) *Snapshot {
	var (
		argv  []string
		match func(pid, command string) bool
	)
	switch {
	case opts.Name != "" && opts.Regex:
		re, err := regexp.Compile(opts.Name)
		if err != nil {
			q.logger.Warn("invalid process pattern", zap.String("pattern", opts.Name), zap.Error(err))
			return failedSnapshot(hostname, d.Platform, fmt.Errorf("%w: %w", ErrInvalidPattern, err))
		}
		argv = d.listAll()
		match = func(_, command string) bool { return re.MatchString(command) }
	case opts.Name != "":
		argv = d.byName(opts.Name)
		match = func(_, command string) bool { return strings.Contains(command, opts.Name) }
	default:
		argv = d.byPID(opts.PID)
		match = func(pid, _ string) bool { return pid == opts.PID }
	}

	res, err := q.exec.Run(ctx, hostname, argv, cmdexec.Options{})
	switch {
	case err != nil:
		err = fmt.Errorf("%w: %w", ErrProbeFailed, err)
	case noMatch(res):
		q.logger.Debug("no process matched",
			zap.String("host", hostname),
			zap.Strings("argv", argv))
		return newSnapshot(hostname, d.Platform)
	case !res.OK():
		err = fmt.Errorf("%w: %s exited with status %d", ErrProbeFailed, argv[0], res.ExitCode)
	case len(res.Stdout) == 0:
		err = fmt.Errorf("%w: %s produced no output", ErrProbeFailed, argv[0])
	}
	if err != nil {
		q.logger.Warn("process listing failed",
			zap.String("host", hostname),
			zap.Strings("argv", argv),
			zap.Error(err))
		return failedSnapshot(hostname, d.Platform, err)
	}

	snap := newSnapshot(hostname, d.Platform)
	now := q.now()
	for _, line := range res.Stdout {
		fields, command, ok := parseListingLine(line)
		if !ok {
			if f := strings.Fields(line); len(f) > 0 && f[0] != "PID" {
				q.logger.Debug("skipping unparsable listing line", zap.String("line", line))
			}
			continue
		}
		if !match(fields[0], command) {
			continue
		}

		rec := newRecord(fields, command, hostname, d.Platform, now)
		if d.HasProcFS() {
			if n, err := q.CountOpenFDs(ctx, hostname, rec.PID); err == nil {
				rec = rec.withOpenFDs(n)
			} else {
				q.logger.Debug("open fd count unavailable", zap.String("pid", rec.PID), zap.Error(err))
			}
		}
		snap.add(rec)
	}
	return snap
}

// noMatch reports the procps convention for an empty selection: exit 1,
// nothing on stderr and no data rows after the header.
// noMatch 判断 procps 对空结果的约定：以 1 退出、标准错误为空且表头后没有数据行。
func noMatch(res *cmdexec.Result) bool {
	if res.ExitCode != 1 || len(res.Stderr) > 0 {
		return false
	}
	for _, line := range res.Stdout {
		if _, _, ok := parseListingLine(line); ok {
			return false
		}
	}
	return true
}
