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
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DefaultSSHPort is the port used when SSHConfig.Port is zero.
// DefaultSSHPort 是 SSHConfig.Port 为 0 时使用的端口。
const DefaultSSHPort = 22

// DefaultSSHTimeout bounds the TCP dial and handshake.
// DefaultSSHTimeout 限制 TCP 连接和握手的时间。
const DefaultSSHTimeout = 10 * time.Second

// SSHConfig holds the credentials used to reach remote hosts.
// SSHConfig 保存访问远程主机使用的凭据。
type SSHConfig struct {
	// User is the remote login user.
	// User 是远程登录用户。
	User string

	// Port is the SSH port (22 if zero).
	// Port 是 SSH 端口（为 0 时使用 22）。
	Port int

	// KeyFile is a PEM private key used for public key auth.
	// KeyFile 是用于公钥认证的 PEM 私钥。
	KeyFile string

	// Password is used when KeyFile is empty.
	// Password 在 KeyFile 为空时使用。
	Password string

	// KnownHostsFile verifies host keys.
	// KnownHostsFile 用于校验主机密钥。
	KnownHostsFile string

	// InsecureIgnoreHostKey skips host key verification when no known_hosts is set.
	// InsecureIgnoreHostKey 在未设置 known_hosts 时跳过主机密钥校验。
	InsecureIgnoreHostKey bool

	// Timeout bounds dial and handshake.
	// Timeout 限制连接和握手时间。
	Timeout time.Duration
}

// clientConfig converts SSHConfig into an ssh.ClientConfig.
// clientConfig 将 SSHConfig 转换为 ssh.ClientConfig。
func (c *SSHConfig) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	switch {
	case c.KeyFile != "":
		pem, err := os.ReadFile(c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read ssh key %s: %w", c.KeyFile, err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ssh key %s: %w", c.KeyFile, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	case c.Password != "":
		auth = append(auth, ssh.Password(c.Password))
	default:
		return nil, errors.New("ssh: either key_file or password is required / 需要 key_file 或 password")
	}

	var hostKey ssh.HostKeyCallback
	switch {
	case c.KnownHostsFile != "":
		cb, err := knownhosts.New(c.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts %s: %w", c.KnownHostsFile, err)
		}
		hostKey = cb
	case c.InsecureIgnoreHostKey:
		hostKey = ssh.InsecureIgnoreHostKey()
	default:
		return nil, errors.New("ssh: known_hosts_file is required unless insecure_ignore_host_key is set / 需要 known_hosts_file")
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultSSHTimeout
	}

	return &ssh.ClientConfig{
		User:            c.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         timeout,
	}, nil
}

func (c *SSHConfig) port() int {
	if c.Port > 0 {
		return c.Port
	}
	return DefaultSSHPort
}

// client returns the cached SSH client for host, dialing on first use.
// client 返回 host 的缓存 SSH 客户端，首次使用时建立连接。
func (r *Runner) client(ctx context.Context, host string) (*ssh.Client, error) {
	if r.sshConfig == nil {
		return nil, ErrNoSSHConfig
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[host]; ok {
		return c, nil
	}

	cfg, err := r.sshConfig.clientConfig()
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(host, strconv.Itoa(r.sshConfig.port()))
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	// Handshake deadline; cleared once the client is up.
	_ = conn.SetDeadline(time.Now().Add(cfg.Timeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	c := ssh.NewClient(sshConn, chans, reqs)
	r.clients[host] = c
	r.log.Info("ssh client connected", zap.String("host", host), zap.String("addr", addr))
	return c, nil
}

// dropClient removes a broken client from the cache.
// dropClient 从缓存中移除失效的客户端。
func (r *Runner) dropClient(host string, c *ssh.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.clients[host]; ok && cur == c {
		delete(r.clients, host)
		_ = c.Close()
	}
}
