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

// Package cmdexec runs shell commands on the local host or on remote hosts over SSH.
// cmdexec 包在本机或通过 SSH 在远程主机上执行 shell 命令。
//
// Every process listing, file-descriptor count and activity report used by
// procwatch goes through the Executor interface, so tests can replace the
// whole host with a scripted fake (see cmdexectest).
// procwatch 使用的所有进程列表、文件描述符计数和活动报告都通过 Executor 接口执行，
// 测试可以用脚本化的假实现替换整个主机（见 cmdexectest）。
package cmdexec

import (
	"context"
	"errors"
	"strings"
)

// Errors for command execution
// 命令执行的错误定义
var (
	// ErrEmptyCommand indicates an empty argv was passed to Run.
	// ErrEmptyCommand 表示传给 Run 的 argv 为空。
	ErrEmptyCommand = errors.New("cmdexec: empty command / 命令为空")

	// ErrNoSSHConfig indicates a remote host was requested without SSH settings.
	// ErrNoSSHConfig 表示请求远程主机但未配置 SSH。
	ErrNoSSHConfig = errors.New("cmdexec: remote host requested but ssh is not configured / 未配置 SSH")
)

// Result is the outcome of one command run.
// Result 是一次命令执行的结果。
type Result struct {
	// ExitCode is the process exit status (-1 if the command never ran).
	// ExitCode 是进程退出码（命令未运行时为 -1）。
	ExitCode int `json:"exit_code"`

	// Stdout holds the output lines without trailing newlines.
	// Stdout 保存去掉换行符的标准输出行。
	Stdout []string `json:"stdout"`

	// Stderr holds the error output lines.
	// Stderr 保存标准错误输出行。
	Stderr []string `json:"stderr"`
}

// OK reports whether the command exited with status 0.
// OK 报告命令是否以状态 0 退出。
func (r *Result) OK() bool {
	return r != nil && r.ExitCode == 0
}

// Options tune a single Run call.
// Options 调整单次 Run 调用。
type Options struct {
	// Sudo runs the command through non-interactive sudo.
	// Sudo 通过非交互 sudo 执行命令。
	Sudo bool

	// Shell runs argv joined as a script through /bin/sh -c.
	// Shell 将 argv 拼接为脚本，通过 /bin/sh -c 执行。
	Shell bool
}

// Executor runs commands on named hosts.
// Executor 在指定主机上执行命令。
type Executor interface {
	// Run executes argv on host and blocks until it exits.
	// A non-zero exit is reported in Result, not as an error; the error is
	// reserved for transport failures (spawn, dial, session).
	// Run 在 host 上执行 argv 并阻塞直到退出。
	// 非零退出码通过 Result 报告而不是 error；error 仅用于传输失败。
	Run(ctx context.Context, host string, argv []string, opts Options) (*Result, error)

	// RemotePlatform probes the OS family of a remote host (e.g. "linux").
	// RemotePlatform 探测远程主机的操作系统类型（例如 "linux"）。
	RemotePlatform(ctx context.Context, host string) (string, error)

	// IsLocal reports whether host refers to the machine running procwatch.
	// IsLocal 报告 host 是否指向运行 procwatch 的本机。
	IsLocal(host string) bool
}

// splitLines splits command output into lines, dropping the final empty
// line produced by a trailing newline.
func splitLines(out string) []string {
	out = strings.TrimRight(out, "\n")
	if out == "" {
		return nil
	}
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}
