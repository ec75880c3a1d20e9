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

package cmdexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/alessio/shellescape"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// tracerName is the instrumentation scope for command spans.
const tracerName = "github.com/seatunnel/procwatch/internal/cmdexec"

// Runner is the production Executor: local commands via os/exec, remote
// commands via one cached SSH client per host.
// Runner 是生产环境的 Executor：本地命令使用 os/exec，远程命令使用按主机缓存的 SSH 客户端。
type Runner struct {
	sshConfig *SSHConfig
	log       *otelzap.Logger
	tracer    trace.Tracer

	localOnce  sync.Once
	localNames map[string]struct{}

	mu      sync.Mutex
	clients map[string]*ssh.Client
}

// NewRunner creates a Runner. sshConfig may be nil, in which case only the
// local host can be reached.
// NewRunner 创建 Runner。sshConfig 可以为 nil，此时只能访问本机。
func NewRunner(sshConfig *SSHConfig, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		sshConfig: sshConfig,
		log:       otelzap.New(logger),
		tracer:    otel.Tracer(tracerName),
		clients:   make(map[string]*ssh.Client),
	}
}

// Run implements Executor.
// Run 实现 Executor。
func (r *Runner) Run(ctx context.Context, host string, argv []string, opts Options) (*Result, error) {
	if len(argv) == 0 {
		return &Result{ExitCode: -1}, ErrEmptyCommand
	}

	ctx, span := r.tracer.Start(ctx, "cmdexec.Run", trace.WithAttributes(
		attribute.String("host", host),
		attribute.String("command", argv[0]),
		attribute.Bool("sudo", opts.Sudo),
	))
	defer span.End()

	full := buildArgv(argv, opts)
	start := time.Now()

	var (
		res *Result
		err error
	)
	if r.IsLocal(host) {
		res, err = r.runLocal(ctx, full)
	} else {
		res, err = r.runRemote(ctx, host, full)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.log.Ctx(ctx).Warn("command failed to run",
			zap.String("host", host),
			zap.Strings("argv", full),
			zap.Error(err),
		)
		return res, err
	}

	span.SetAttributes(attribute.Int("exit_code", res.ExitCode))
	r.log.Ctx(ctx).Debug("command finished",
		zap.String("host", host),
		zap.Strings("argv", full),
		zap.Int("exit_code", res.ExitCode),
		zap.Int("stdout_lines", len(res.Stdout)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// buildArgv applies the shell and sudo options to argv.
// buildArgv 将 shell 和 sudo 选项应用到 argv。
func buildArgv(argv []string, opts Options) []string {
	out := argv
	if opts.Shell {
		out = []string{"/bin/sh", "-c", strings.Join(argv, " ")}
	}
	if opts.Sudo {
		out = append([]string{"sudo", "-n"}, out...)
	}
	return out
}

// runLocal executes argv on this machine.
// runLocal 在本机执行 argv。
func (r *Runner) runLocal(ctx context.Context, argv []string) (*Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{
		Stdout: splitLines(stdout.String()),
		Stderr: splitLines(stderr.String()),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		res.ExitCode = -1
		return res, fmt.Errorf("failed to run %s: %w", argv[0], err)
	}
	return res, nil
}

// runRemote executes argv on host over SSH.
// runRemote 通过 SSH 在 host 上执行 argv。
func (r *Runner) runRemote(ctx context.Context, host string, argv []string) (*Result, error) {
	client, err := r.client(ctx, host)
	if err != nil {
		return &Result{ExitCode: -1}, err
	}

	session, err := client.NewSession()
	if err != nil {
		// A broken client is dropped so the next call redials.
		r.dropClient(host, client)
		return &Result{ExitCode: -1}, fmt.Errorf("failed to open ssh session on %s: %w", host, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(shellescape.QuoteCommand(argv))
	}()

	select {
	case <-ctx.Done():
		_ = session.Close()
		return &Result{ExitCode: -1}, fmt.Errorf("ssh command on %s interrupted: %w", host, ctx.Err())
	case err = <-done:
	}

	res := &Result{
		Stdout: splitLines(stdout.String()),
		Stderr: splitLines(stderr.String()),
	}
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitStatus()
			return res, nil
		}
		res.ExitCode = -1
		return res, fmt.Errorf("ssh command on %s failed: %w", host, err)
	}
	return res, nil
}

// RemotePlatform implements Executor by running uname -s on host.
// RemotePlatform 通过在 host 上执行 uname -s 实现 Executor。
func (r *Runner) RemotePlatform(ctx context.Context, host string) (string, error) {
	res, err := r.Run(ctx, host, []string{"uname", "-s"}, Options{})
	if err != nil {
		return "", err
	}
	if !res.OK() || len(res.Stdout) == 0 {
		return "", fmt.Errorf("uname on %s exited with %d", host, res.ExitCode)
	}
	return strings.ToLower(strings.TrimSpace(res.Stdout[0])), nil
}

// IsLocal implements Executor. The empty host, localhost, this machine's
// hostname (short or full) and any local interface address are local.
// IsLocal 实现 Executor。空主机名、localhost、本机主机名和本机网卡地址都视为本机。
func (r *Runner) IsLocal(host string) bool {
	if host == "" {
		return true
	}
	r.localOnce.Do(r.loadLocalNames)
	_, ok := r.localNames[strings.ToLower(host)]
	return ok
}

func (r *Runner) loadLocalNames() {
	names := map[string]struct{}{
		"localhost": {},
		"127.0.0.1": {},
		"::1":       {},
	}
	if hn, err := os.Hostname(); err == nil {
		hn = strings.ToLower(hn)
		names[hn] = struct{}{}
		if short, _, found := strings.Cut(hn, "."); found {
			names[short] = struct{}{}
		}
	}
	if addrs, err := net.InterfaceAddrs(); err == nil {
		for _, a := range addrs {
			if ipNet, ok := a.(*net.IPNet); ok {
				names[ipNet.IP.String()] = struct{}{}
			}
		}
	}
	r.localNames = names
}

// Close closes every cached SSH client.
// Close 关闭所有缓存的 SSH 客户端。
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for host, c := range r.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close ssh client %s: %w", host, err))
		}
		delete(r.clients, host)
	}
	return errors.Join(errs...)
}
