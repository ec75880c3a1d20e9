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

// Package cmdexectest provides a scripted cmdexec.Executor for tests.
// cmdexectest 包提供用于测试的脚本化 cmdexec.Executor。
package cmdexectest

import (
	"context"
	"strings"
	"sync"

	"github.com/seatunnel/procwatch/internal/cmdexec"
)

// Response is the scripted outcome of one command.
// Response 是单条命令的预设结果。
type Response struct {
	Stdout   []string
	Stderr   []string
	ExitCode int
	Err      error
}

// Call records one Run invocation.
// Call 记录一次 Run 调用。
type Call struct {
	Host string
	Argv []string
	Opts cmdexec.Options
}

// Command returns the argv joined with single spaces.
// Command 返回以空格拼接的 argv。
func (c Call) Command() string {
	return strings.Join(c.Argv, " ")
}

// HandlerFunc answers commands that have no scripted response.
// HandlerFunc 处理没有预设结果的命令。
type HandlerFunc func(ctx context.Context, call Call) (*cmdexec.Result, error)

// Fake is an in-memory Executor. Commands are matched by host and the argv
// joined with spaces; host-specific scripts win over host-agnostic ones.
// Unscripted commands exit 127 unless a handler is set.
// Fake 是内存中的 Executor。命令按主机和空格拼接的 argv 匹配，
// 指定主机的脚本优先于通用脚本。未预设的命令以 127 退出，除非设置了 handler。
type Fake struct {
	mu sync.Mutex

	any    map[string]Response
	byHost map[string]map[string]Response

	platforms     map[string]string
	platformErrs  map[string]error
	platformCalls map[string]int

	local   map[string]struct{}
	handler HandlerFunc
	calls   []Call
}

// New creates an empty Fake. Only the empty host and "localhost" are local.
// New 创建空的 Fake。只有空主机名和 "localhost" 是本机。
func New() *Fake {
	return &Fake{
		any:           make(map[string]Response),
		byHost:        make(map[string]map[string]Response),
		platforms:     make(map[string]string),
		platformErrs:  make(map[string]error),
		platformCalls: make(map[string]int),
		local:         map[string]struct{}{"localhost": {}},
	}
}

// On scripts cmd for every host.
// On 为所有主机预设 cmd 的结果。
func (f *Fake) On(cmd string, resp Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.any[cmd] = resp
	return f
}

// OnHost scripts cmd for one host.
// OnHost 为指定主机预设 cmd 的结果。
func (f *Fake) OnHost(host, cmd string, resp Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byHost[host]
	if !ok {
		m = make(map[string]Response)
		f.byHost[host] = m
	}
	m[cmd] = resp
	return f
}

// SetHandler installs the fallback for unscripted commands.
// SetHandler 设置未预设命令的回退处理函数。
func (f *Fake) SetHandler(h HandlerFunc) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
	return f
}

// SetPlatform sets what RemotePlatform reports for host.
// SetPlatform 设置 RemotePlatform 对 host 返回的平台。
func (f *Fake) SetPlatform(host, platform string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.platforms[host] = platform
	return f
}

// SetPlatformError makes RemotePlatform fail for host.
// SetPlatformError 使 RemotePlatform 对 host 返回错误。
func (f *Fake) SetPlatformError(host string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.platformErrs[host] = err
	return f
}

// SetLocal marks hosts as local.
// SetLocal 将主机标记为本机。
func (f *Fake) SetLocal(hosts ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range hosts {
		f.local[h] = struct{}{}
	}
	return f
}

// Run implements cmdexec.Executor.
// Run 实现 cmdexec.Executor。
func (f *Fake) Run(ctx context.Context, host string, argv []string, opts cmdexec.Options) (*cmdexec.Result, error) {
	if len(argv) == 0 {
		return &cmdexec.Result{ExitCode: -1}, cmdexec.ErrEmptyCommand
	}
	call := Call{Host: host, Argv: append([]string(nil), argv...), Opts: opts}
	cmd := call.Command()

	f.mu.Lock()
	f.calls = append(f.calls, call)
	resp, ok := f.byHost[host][cmd]
	if !ok {
		resp, ok = f.any[cmd]
	}
	handler := f.handler
	f.mu.Unlock()

	if !ok {
		if handler != nil {
			return handler(ctx, call)
		}
		return &cmdexec.Result{ExitCode: 127, Stderr: []string{argv[0] + ": command not found"}}, nil
	}

	res := &cmdexec.Result{
		ExitCode: resp.ExitCode,
		Stdout:   append([]string(nil), resp.Stdout...),
		Stderr:   append([]string(nil), resp.Stderr...),
	}
	if resp.Err != nil {
		res.ExitCode = -1
		return res, resp.Err
	}
	return res, nil
}

// RemotePlatform implements cmdexec.Executor. Unknown hosts report "linux".
// RemotePlatform 实现 cmdexec.Executor。未设置的主机返回 "linux"。
func (f *Fake) RemotePlatform(_ context.Context, host string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.platformCalls[host]++
	if err, ok := f.platformErrs[host]; ok {
		return "", err
	}
	if p, ok := f.platforms[host]; ok {
		return p, nil
	}
	return "linux", nil
}

// IsLocal implements cmdexec.Executor.
// IsLocal 实现 cmdexec.Executor。
func (f *Fake) IsLocal(host string) bool {
	if host == "" {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.local[host]
	return ok
}

// Calls returns a copy of every recorded Run call.
// Calls 返回所有 Run 调用记录的副本。
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount counts Run calls whose joined argv equals cmd.
// CallCount 统计拼接后 argv 等于 cmd 的 Run 调用次数。
func (f *Fake) CallCount(cmd string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Command() == cmd {
			n++
		}
	}
	return n
}

// PlatformCalls returns how many times RemotePlatform probed host.
// PlatformCalls 返回 RemotePlatform 探测 host 的次数。
func (f *Fake) PlatformCalls(host string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.platformCalls[host]
}

var _ cmdexec.Executor = (*Fake)(nil)
