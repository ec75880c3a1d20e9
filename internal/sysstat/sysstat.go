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

// Package sysstat reads host-wide activity figures from sar and the load average.
// sysstat 包通过 sar 和系统负载读取主机级别的活动指标。
package sysstat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/seatunnel/procwatch/internal/cmdexec"
	"github.com/shirou/gopsutil/v4/load"
	"go.uber.org/zap"
)

// Well-known keys of a sar -rSub report
// sar -rSub 报告中的常用键
const (
	KeyMemUsed  = "%memused"
	KeySystem   = "%system"
	KeySwapUsed = "%swpused"
	KeyReadTPS  = "rtps"
	KeyWriteTPS = "wtps"
)

// DefaultProtocols is the network protocol set reported when none is given.
// DefaultProtocols 是未指定时报告的网络协议集合。
var DefaultProtocols = []string{"TCP"}

// Errors for stats reading
// 读取统计信息的错误定义
var (
	// ErrInvalidProtocol indicates a protocol keyword that sar does not accept.
	// ErrInvalidProtocol 表示 sar 不接受的协议关键字。
	ErrInvalidProtocol = errors.New("sysstat: invalid network protocol / 无效的网络协议")

	// ErrReportFailed indicates sar could not be run or produced nothing.
	// ErrReportFailed 表示 sar 无法执行或没有输出。
	ErrReportFailed = errors.New("sysstat: activity report failed / 活动报告获取失败")
)

var protocolPattern = regexp.MustCompile(`^[A-Z0-9-]+$`)

// Reader runs activity reports against hosts.
// Reader 在主机上执行活动报告。
type Reader struct {
	exec   cmdexec.Executor
	logger *zap.Logger

	// localLoad reads the local one-minute load average.
	localLoad func(ctx context.Context) (float64, error)
}

// NewReader creates a Reader.
// NewReader 创建 Reader。
func NewReader(exec cmdexec.Executor, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{exec: exec, logger: logger, localLoad: hostLoad1}
}

// Read runs `LC_ALL=C sar -rSub -n <protocols> 1 1` on hostname and returns
// the report flattened into label -> value. Keys a platform does not report
// are absent.
// Read 在 hostname 上执行 sar 并将报告展开为 标签 -> 值 的映射。平台不支持的键不会出现。
func (r *Reader) Read(ctx context.Context, hostname string, protocols []string) (map[string]string, error) {
	if len(protocols) == 0 {
		protocols = DefaultProtocols
	}
	normalized := make([]string, 0, len(protocols))
	for _, p := range protocols {
		p = strings.ToUpper(strings.TrimSpace(p))
		if !protocolPattern.MatchString(p) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProtocol, p)
		}
		normalized = append(normalized, p)
	}

	argv := []string{"LC_ALL=C", "sar", "-rSub", "-n", strings.Join(normalized, ","), "1", "1"}
	res, err := r.exec.Run(ctx, hostname, argv, cmdexec.Options{Shell: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReportFailed, err)
	}
	if !res.OK() {
		return nil, fmt.Errorf("%w: sar exited with status %d", ErrReportFailed, res.ExitCode)
	}

	stats := ParseReport(res.Stdout)
	if len(stats) == 0 {
		return nil, fmt.Errorf("%w: empty report", ErrReportFailed)
	}
	r.logger.Debug("activity report read", zap.String("host", hostname), zap.Int("keys", len(stats)))
	return stats, nil
}

// LoadAverage returns the one-minute load average of hostname. The local
// host is read in-process; remote hosts through /proc/loadavg.
// LoadAverage 返回 hostname 的一分钟平均负载。本机直接读取，远程主机通过 /proc/loadavg 读取。
func (r *Reader) LoadAverage(ctx context.Context, hostname string) (float64, error) {
	if r.exec.IsLocal(hostname) {
		return r.localLoad(ctx)
	}

	res, err := r.exec.Run(ctx, hostname, []string{"cat", "/proc/loadavg"}, cmdexec.Options{})
	if err != nil {
		return 0, fmt.Errorf("failed to read load average on %s: %w", hostname, err)
	}
	if !res.OK() || len(res.Stdout) == 0 {
		return 0, fmt.Errorf("failed to read load average on %s: exit status %d", hostname, res.ExitCode)
	}
	return parseLoadAvg(res.Stdout[0])
}

func hostLoad1(ctx context.Context) (float64, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read local load average: %w", err)
	}
	return avg.Load1, nil
}

// parseLoadAvg reads the first field of a /proc/loadavg line.
func parseLoadAvg(line string) (float64, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, errors.New("empty /proc/loadavg")
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid /proc/loadavg %q: %w", line, err)
	}
	return v, nil
}
