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

package sampler

import (
	"context"
	"testing"
	"time"

	"github.com/seatunnel/procwatch/internal/cmdexec"
	"github.com/seatunnel/procwatch/internal/cmdexec/cmdexectest"
	"github.com/seatunnel/procwatch/internal/platform"
	"github.com/seatunnel/procwatch/internal/procutil"
	"github.com/seatunnel/procwatch/internal/sysstat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const (
	testHost = "node-01"
	psMyproc = "ps -o pid,rss,vsz,pcpu,pmem,size,cputime,command -C myproc"
	sarTCP   = "LC_ALL=C sar -rSub -n TCP 1 1"
	loadavg  = "cat /proc/loadavg"
)

var listing = []string{
	"  PID   RSS    VSZ %CPU %MEM  SIZE     TIME COMMAND",
	"  100  2048  10240  0.5  1.2   512 00:00:01 /usr/bin/myproc --serve",
	"  200  1024   4096  0.1  0.3   128 00:00:00 procwatch monitor --name myproc",
	"  101  4096  20480  1.0  2.4  1024 00:00:02 /usr/bin/myproc --serve",
}

var fullReport = []string{
	"Linux 6.1.0 (node-01)  01/02/2026  _x86_64_  (8 CPU)",
	"",
	"12:00:01        CPU     %user     %nice   %system   %iowait    %steal     %idle",
	"12:00:02        all      1.25      0.00      0.75      0.00      0.00     98.00",
	"12:00:01          tps      rtps      wtps",
	"12:00:02         3.00      1.00      2.00",
	"12:00:01    kbmemfree kbmemused  %memused",
	"12:00:02      1024000   3072000     37.50",
	"12:00:01    kbswpfree kbswpused  %swpused",
	"12:00:02      2097148         0      0.00",
	"Average:        all      1.25      0.00      0.75      0.00      0.00     98.00",
}

func newFake() *cmdexectest.Fake {
	return cmdexectest.New().
		On(psMyproc, cmdexectest.Response{Stdout: listing}).
		On(sarTCP, cmdexectest.Response{Stdout: fullReport}).
		On(loadavg, cmdexectest.Response{Stdout: []string{"0.50 0.40 0.30 2/300 999"}})
}

func newTestSampler(t *testing.T, fake *cmdexectest.Fake, opts Options) *Sampler {
	t.Helper()
	resolver := platform.NewResolver(fake, nil)
	q := procutil.NewQuery(fake, resolver, nil)
	r := sysstat.NewReader(fake, nil)
	if opts.Host == "" {
		opts.Host = testHost
	}
	s, err := New(q, r, opts, nil)
	require.NoError(t, err)
	return s
}

// TestSampler_Lifecycle tests the Idle -> Running -> Idle transitions and guards
// TestSampler_Lifecycle 测试 Idle -> Running -> Idle 状态转换及其保护
func TestSampler_Lifecycle(t *testing.T) {
	s := newTestSampler(t, newFake(), Options{Name: "myproc", Interval: 5 * time.Millisecond})

	assert.Equal(t, StateIdle, s.State())
	assert.ErrorIs(t, s.Stop(), ErrNotRunning)

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)
	firstRun := s.RunID()
	assert.NotEmpty(t, firstRun)

	require.Eventually(t, func() bool { return s.Len() >= 6 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())
	assert.Equal(t, StateIdle, s.State())
	assert.ErrorIs(t, s.Stop(), ErrNotRunning)

	// a stopped sampler can be started again with a new run id
	require.NoError(t, s.Start(context.Background()))
	assert.NotEqual(t, firstRun, s.RunID())
	require.NoError(t, s.Stop())
}

// TestSampler_StopIsLinearizable tests that the log never grows after Stop returns
// TestSampler_StopIsLinearizable 测试 Stop 返回后日志长度不再增长
func TestSampler_StopIsLinearizable(t *testing.T) {
	fake := newFake().SetHandler(func(ctx context.Context, call cmdexectest.Call) (*cmdexec.Result, error) {
		// slow fd probes keep an iteration in flight while Stop is called
		time.Sleep(5 * time.Millisecond)
		return &cmdexec.Result{ExitCode: 1}, nil
	})
	s := newTestSampler(t, fake, Options{Name: "myproc", Interval: time.Millisecond})

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return s.Len() > 0 }, 2*time.Second, time.Millisecond)
	require.NoError(t, s.Stop())

	n := s.Len()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, s.Len())
	assert.Equal(t, StateIdle, s.State())
}

// TestSampler_ParentContextEndsLoop tests that cancelling the start context returns to idle
// TestSampler_ParentContextEndsLoop 测试取消启动上下文后回到空闲状态
func TestSampler_ParentContextEndsLoop(t *testing.T) {
	s := newTestSampler(t, newFake(), Options{Name: "myproc", Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	require.Eventually(t, func() bool { return s.State() == StateIdle }, 2*time.Second, time.Millisecond)
	assert.ErrorIs(t, s.Stop(), ErrNotRunning)
}

// TestSampler_IterationEntries tests one iteration's process and system rows
// TestSampler_IterationEntries 测试单次迭代的进程行和系统行
func TestSampler_IterationEntries(t *testing.T) {
	s := newTestSampler(t, newFake(), Options{Name: "myproc", Exclude: DefaultExclude})
	at := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }

	s.iterate(context.Background(), "run-1")

	entries := s.Entries()
	require.Len(t, entries, 3)

	for _, e := range entries[:2] {
		assert.Equal(t, KindProcess, e.Kind)
		assert.Equal(t, "/usr/bin/myproc --serve", e.Name)
		assert.Equal(t, at, e.Time)
		assert.Equal(t, "run-1", e.RunID)
		assert.Equal(t, testHost, e.Host)
	}
	assert.Equal(t, "100", entries[0].PID)
	assert.Equal(t, "101", entries[1].PID)
	assert.Equal(t, int64(2048), *entries[0].RSS)

	sys := entries[2]
	assert.Equal(t, KindSystem, sys.Kind)
	assert.Equal(t, SystemEntryName, sys.Name)
	assert.Equal(t, at, sys.Time)
	assert.InDelta(t, 0.5, *sys.SysLoad, 1e-9)
	assert.InDelta(t, 37.5, *sys.PMemUsed, 1e-9)
	assert.InDelta(t, 0.75, *sys.PSystem, 1e-9)
	assert.InDelta(t, 0.0, *sys.PSwpUsed, 1e-9)
	assert.InDelta(t, 1.0, *sys.RTPS, 1e-9)
	assert.InDelta(t, 2.0, *sys.WTPS, 1e-9)
	assert.Empty(t, sys.Missing)
}

// TestSampler_NoExclusion tests that an empty pattern keeps every match
// TestSampler_NoExclusion 测试空排除表达式保留所有匹配
func TestSampler_NoExclusion(t *testing.T) {
	s := newTestSampler(t, newFake(), Options{Name: "myproc"})
	s.iterate(context.Background(), "run-1")
	assert.Len(t, s.Entries(), 4)

	_, err := New(nil, nil, Options{Exclude: "(["}, nil)
	assert.Error(t, err)
}

// TestSampler_MissingStatsAreSkipped tests the hardened handling of absent keys
// TestSampler_MissingStatsAreSkipped 测试缺失统计键时跳过而非失败
func TestSampler_MissingStatsAreSkipped(t *testing.T) {
	fake := newFake().
		On(sarTCP, cmdexectest.Response{Stdout: []string{
			"12:00:01    kbmemfree kbmemused  %memused",
			"12:00:02      1024000   3072000     37.50",
		}}).
		On(loadavg, cmdexectest.Response{ExitCode: 1})
	s := newTestSampler(t, fake, Options{Name: "myproc", Exclude: DefaultExclude})

	s.iterate(context.Background(), "run-1")

	entries := s.Entries()
	sys := entries[len(entries)-1]
	require.Equal(t, KindSystem, sys.Kind)
	assert.InDelta(t, 37.5, *sys.PMemUsed, 1e-9)
	assert.Nil(t, sys.PSwpUsed)
	assert.Nil(t, sys.SysLoad)
	assert.ElementsMatch(t, []string{"sysload", "%system", "%swpused", "rtps", "wtps"}, sys.Missing)
}

// TestSampler_StatsTableIsMerged tests that a failed report reuses earlier values
// TestSampler_StatsTableIsMerged 测试报告失败时沿用之前合并的值
func TestSampler_StatsTableIsMerged(t *testing.T) {
	fake := newFake()
	s := newTestSampler(t, fake, Options{Name: "myproc"})

	s.iterate(context.Background(), "run-1")
	fake.On(sarTCP, cmdexectest.Response{ExitCode: 1})
	s.iterate(context.Background(), "run-1")

	entries := s.Entries()
	last := entries[len(entries)-1]
	assert.Empty(t, last.Missing)
	assert.InDelta(t, 37.5, *last.PMemUsed, 1e-9)
	assert.Equal(t, "37.50", s.Stats()[sysstat.KeyMemUsed])
}

// TestSampler_QueryFailureLeavesGap tests that a failed listing still yields a system row
// TestSampler_QueryFailureLeavesGap 测试进程列表失败时仍记录系统行
func TestSampler_QueryFailureLeavesGap(t *testing.T) {
	fake := newFake().On(psMyproc, cmdexectest.Response{ExitCode: 2, Stderr: []string{"ps: bad option"}})
	s := newTestSampler(t, fake, Options{Name: "myproc"})

	s.iterate(context.Background(), "run-1")

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, KindSystem, entries[0].Kind)
}

// TestSampler_Drain tests removing entries from the log
// TestSampler_Drain 测试从日志中取出条目
func TestSampler_Drain(t *testing.T) {
	s := newTestSampler(t, newFake(), Options{Name: "myproc", Exclude: DefaultExclude})
	s.iterate(context.Background(), "run-1")

	drained := s.Drain()
	assert.Len(t, drained, 3)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Drain())

	s.iterate(context.Background(), "run-1")
	assert.Equal(t, 3, s.Len())
}

// TestSampler_SetInterval tests interval changes and validation
// TestSampler_SetInterval 测试间隔修改及校验
func TestSampler_SetInterval(t *testing.T) {
	s := newTestSampler(t, newFake(), Options{})
	assert.Equal(t, DefaultInterval, s.Interval())

	require.NoError(t, s.SetInterval(2*time.Second))
	assert.Equal(t, 2*time.Second, s.Interval())
	assert.ErrorIs(t, s.SetInterval(0), ErrInvalidInterval)
	assert.ErrorIs(t, s.SetInterval(-time.Second), ErrInvalidInterval)
	assert.Equal(t, 2*time.Second, s.Interval())

	_, err := New(nil, nil, Options{Interval: -time.Second}, nil)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	info := s.Info()
	assert.Equal(t, StateIdle, info.State)
	assert.Equal(t, testHost, info.Host)
	assert.InDelta(t, 2.0, info.IntervalSeconds, 1e-9)
}

// TestSampler_SetIntervalWhileRunning tests that a long sleep can be shortened without restart
// TestSampler_SetIntervalWhileRunning 测试运行中缩短间隔无需重启
func TestSampler_SetIntervalWhileRunning(t *testing.T) {
	s := newTestSampler(t, newFake(), Options{Name: "myproc", Interval: 20 * time.Millisecond})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.NoError(t, s.SetInterval(time.Millisecond))
	require.Eventually(t, func() bool { return s.Len() >= 12 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, StateRunning, s.State())
}

// TestSampler_IterationSpan tests that each iteration is recorded as a span
// TestSampler_IterationSpan 测试每次迭代都记录为一个 span
func TestSampler_IterationSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	s := newTestSampler(t, newFake(), Options{Name: "myproc", Exclude: DefaultExclude, Tracer: tp.Tracer("test")})
	s.iterate(context.Background(), "run-1")

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "sampler.iterate", spans[0].Name())
	attrs := spans[0].Attributes()
	assert.Contains(t, attrs, attribute.String("run_id", "run-1"))
	assert.Contains(t, attrs, attribute.String("host", testHost))
	assert.Contains(t, attrs, attribute.Int("processes", 2))
	assert.Contains(t, attrs, attribute.String("query_status", "ok"))
}
