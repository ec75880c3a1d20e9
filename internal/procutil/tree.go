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
	"strconv"
	"strings"

	"github.com/seatunnel/procwatch/internal/cmdexec"
	"github.com/seatunnel/procwatch/internal/platform"
	"go.uber.org/zap"
)

// TreeWalk is the result of a descendant walk.
// TreeWalk 是后代进程遍历的结果。
type TreeWalk struct {
	// PIDs are the descendants in pre-order.
	// PIDs 是按先序排列的后代进程。
	PIDs []string `json:"pids"`

	// Pruned lists parents whose children could not be listed.
	// Pruned 列出无法获取子进程的父进程。
	Pruned []string `json:"pruned,omitempty"`

	// Err is set when the walk could not start at all.
	// Err 在遍历无法开始时设置。
	Err error `json:"-"`
}

// Tree resolves process state and process trees by parent PID.
// Tree 根据父进程 ID 获取进程状态和进程树。
type Tree struct {
	exec     cmdexec.Executor
	resolver PlatformResolver
	logger   *zap.Logger
}

// NewTree creates a Tree.
// NewTree 创建 Tree。
func NewTree(exec cmdexec.Executor, resolver PlatformResolver, logger *zap.Logger) *Tree {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tree{exec: exec, resolver: resolver, logger: logger}
}

// procps reports whether tag is served by the Linux ps options used here.
func procps(tag string) bool {
	return tag == platform.Linux || tag == platform.Unknown
}

// ProcessState returns the first letter of the ps STAT column for pid
// (R, S, D, Z, T, ...). On failure it returns "" with an error; "" means
// unknown, not dead.
// ProcessState 返回 pid 的 ps STAT 列首字母。失败时返回空串和错误，空串表示未知而非已退出。
func (t *Tree) ProcessState(ctx context.Context, hostname, pid string) (string, error) {
	if pid == "" {
		return "", ErrPIDRequired
	}

	tag := t.resolver.Resolve(ctx, hostname)
	if !procps(tag) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, tag)
	}

	argv := []string{"ps", "-o", "stat", "-p", pid, "--no-heading"}
	res, err := t.exec.Run(ctx, hostname, argv, cmdexec.Options{})
	if err != nil {
		t.logger.Error("failed to get process state", zap.String("pid", pid), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	if !res.OK() {
		return "", fmt.Errorf("%w: ps exited with status %d", ErrProbeFailed, res.ExitCode)
	}
	for _, line := range res.Stdout {
		if line = strings.TrimSpace(line); line != "" {
			return line[:1], nil
		}
	}
	return "", fmt.Errorf("%w: no state reported for pid %s", ErrProbeFailed, pid)
}

// Children returns every descendant of ppid in pre-order. Subtrees whose
// listing fails are left out.
// Children 按先序返回 ppid 的所有后代进程，列表失败的子树被省略。
func (t *Tree) Children(ctx context.Context, hostname, ppid string) []string {
	return t.Walk(ctx, hostname, ppid).PIDs
}

// Walk is Children that also reports which parents were pruned.
// Walk 与 Children 相同，但同时报告被剪枝的父进程。
func (t *Tree) Walk(ctx context.Context, hostname, ppid string) TreeWalk {
	walk := TreeWalk{PIDs: []string{}}

	if n, err := strconv.Atoi(ppid); err != nil || n <= 0 {
		t.logger.Warn("walking from a non-positive or non-numeric parent pid", zap.String("ppid", ppid))
	}

	tag := t.resolver.Resolve(ctx, hostname)
	if !procps(tag) {
		walk.Err = fmt.Errorf("%w: %s", ErrUnsupportedPlatform, tag)
		return walk
	}

	visited := map[string]struct{}{ppid: {}}
	t.descend(ctx, hostname, ppid, visited, &walk)
	return walk
}

func (t *Tree) descend(ctx context.Context, hostname, ppid string, visited map[string]struct{}, walk *TreeWalk) {
	children, err := t.directChildren(ctx, hostname, ppid)
	if err != nil {
		t.logger.Error("failed to list children, pruning subtree",
			zap.String("host", hostname), zap.String("ppid", ppid), zap.Error(err))
		walk.Pruned = append(walk.Pruned, ppid)
		return
	}
	for _, child := range children {
		if _, seen := visited[child]; seen {
			continue
		}
		visited[child] = struct{}{}
		walk.PIDs = append(walk.PIDs, child)
		t.descend(ctx, hostname, child, visited, walk)
	}
}

// directChildren lists the immediate children of ppid. ps exits 1 with no
// output when nothing matches; that is an empty list, not a failure.
// directChildren 列出 ppid 的直接子进程。ps 在没有匹配时以 1 退出且无输出，视为空列表而非失败。
func (t *Tree) directChildren(ctx context.Context, hostname, ppid string) ([]string, error) {
	argv := []string{"ps", "-o", "pid", "--ppid", ppid, "--no-heading"}
	res, err := t.exec.Run(ctx, hostname, argv, cmdexec.Options{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	if !res.OK() {
		if res.ExitCode == 1 && len(res.Stdout) == 0 && len(res.Stderr) == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: ps exited with status %d", ErrProbeFailed, res.ExitCode)
	}

	var out []string
	for _, line := range res.Stdout {
		if pid := strings.TrimSpace(line); pid != "" {
			out = append(out, pid)
		}
	}
	return out, nil
}
