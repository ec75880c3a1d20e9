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
	"context"
	"os"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

// TestRunner_RunLocal tests a successful local command
// TestRunner_RunLocal 测试本地命令执行成功
func TestRunner_RunLocal(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner(nil, nil)

	res, err := r.Run(context.Background(), "", []string{"echo", "hello", "world"}, Options{})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, []string{"hello world"}, res.Stdout)
	assert.Empty(t, res.Stderr)
}

// TestRunner_RunLocalExitCode tests that a non-zero exit is not an error
// TestRunner_RunLocalExitCode 测试非零退出码不作为错误返回
func TestRunner_RunLocalExitCode(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner(nil, nil)

	res, err := r.Run(context.Background(), "localhost", []string{"echo oops >&2; exit 3"}, Options{Shell: true})
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, []string{"oops"}, res.Stderr)
}

// TestRunner_RunLocalMissingBinary tests a spawn failure
// TestRunner_RunLocalMissingBinary 测试命令无法启动
func TestRunner_RunLocalMissingBinary(t *testing.T) {
	r := NewRunner(nil, nil)

	res, err := r.Run(context.Background(), "", []string{"procwatch-no-such-binary-xyz"}, Options{})
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)
}

// TestRunner_EmptyCommand tests the empty argv guard
// TestRunner_EmptyCommand 测试空命令保护
func TestRunner_EmptyCommand(t *testing.T) {
	r := NewRunner(nil, nil)

	_, err := r.Run(context.Background(), "", nil, Options{})
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

// TestRunner_RemoteWithoutSSH tests that remote hosts need ssh settings
// TestRunner_RemoteWithoutSSH 测试远程主机需要 SSH 配置
func TestRunner_RemoteWithoutSSH(t *testing.T) {
	r := NewRunner(nil, nil)

	res, err := r.Run(context.Background(), "node-7.invalid", []string{"true"}, Options{})
	assert.ErrorIs(t, err, ErrNoSSHConfig)
	assert.Equal(t, -1, res.ExitCode)

	_, err = r.RemotePlatform(context.Background(), "node-7.invalid")
	assert.ErrorIs(t, err, ErrNoSSHConfig)
}

// TestRunner_RemotePlatformLocal tests uname probing on this machine
// TestRunner_RemotePlatformLocal 测试在本机执行 uname 探测
func TestRunner_RemotePlatformLocal(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner(nil, nil)

	platform, err := r.RemotePlatform(context.Background(), "localhost")
	require.NoError(t, err)
	assert.Equal(t, runtime.GOOS, platform)
}

// TestRunner_IsLocal tests local host detection
// TestRunner_IsLocal 测试本机识别
func TestRunner_IsLocal(t *testing.T) {
	r := NewRunner(nil, nil)

	assert.True(t, r.IsLocal(""))
	assert.True(t, r.IsLocal("localhost"))
	assert.True(t, r.IsLocal("LOCALHOST"))
	assert.True(t, r.IsLocal("127.0.0.1"))
	assert.False(t, r.IsLocal("node-7.invalid"))

	if hn, err := os.Hostname(); err == nil && hn != "" {
		assert.True(t, r.IsLocal(hn))
	}
}

// TestBuildArgv tests shell and sudo wrapping
// TestBuildArgv 测试 shell 和 sudo 包装
func TestBuildArgv(t *testing.T) {
	testCases := []struct {
		name string
		argv []string
		opts Options
		want []string
	}{
		{
			name: "plain",
			argv: []string{"ps", "-e"},
			want: []string{"ps", "-e"},
		},
		{
			name: "sudo",
			argv: []string{"ls", "-l", "/proc/1/fd"},
			opts: Options{Sudo: true},
			want: []string{"sudo", "-n", "ls", "-l", "/proc/1/fd"},
		},
		{
			name: "shell",
			argv: []string{"LC_ALL=C", "sar", "1", "1"},
			opts: Options{Shell: true},
			want: []string{"/bin/sh", "-c", "LC_ALL=C sar 1 1"},
		},
		{
			name: "sudo shell",
			argv: []string{"echo", "x"},
			opts: Options{Sudo: true, Shell: true},
			want: []string{"sudo", "-n", "/bin/sh", "-c", "echo x"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, buildArgv(tc.argv, tc.opts))
		})
	}
}

// TestSplitLines tests output line splitting
// TestSplitLines 测试输出按行拆分
func TestSplitLines(t *testing.T) {
	assert.Nil(t, splitLines(""))
	assert.Nil(t, splitLines("\n"))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\r\nb\n"))
	assert.Equal(t, []string{"a", "", "b"}, splitLines("a\n\nb"))
	assert.Equal(t, "x y", strings.Join(splitLines("x y\n"), ""))
}

// TestSSHConfig_ClientConfig tests credential validation
// TestSSHConfig_ClientConfig 测试凭据校验
func TestSSHConfig_ClientConfig(t *testing.T) {
	_, err := (&SSHConfig{User: "root"}).clientConfig()
	assert.Error(t, err, "no auth method")

	_, err = (&SSHConfig{User: "root", Password: "pw"}).clientConfig()
	assert.Error(t, err, "no host key policy")

	cfg, err := (&SSHConfig{User: "root", Password: "pw", InsecureIgnoreHostKey: true}).clientConfig()
	require.NoError(t, err)
	assert.Equal(t, "root", cfg.User)
	assert.Equal(t, DefaultSSHTimeout, cfg.Timeout)
	assert.Len(t, cfg.Auth, 1)

	_, err = (&SSHConfig{User: "root", KeyFile: "/nonexistent/id_rsa", InsecureIgnoreHostKey: true}).clientConfig()
	assert.Error(t, err)

	assert.Equal(t, DefaultSSHPort, (&SSHConfig{}).port())
	assert.Equal(t, 2222, (&SSHConfig{Port: 2222}).port())
}
