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

// Package platform determines the OS family of a host.
// platform 包用于判断主机的操作系统类型。
package platform

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/seatunnel/procwatch/internal/cmdexec"
	"go.uber.org/zap"
)

// CacheTTL is how long a probed platform tag is reused for a host.
// CacheTTL 是探测到的平台标识在同一主机上的复用时长。
const CacheTTL = 10 * time.Minute

// Platform tags reported by Resolve
// Resolve 返回的平台标识
const (
	Linux   = "linux"
	Darwin  = "darwin"
	FreeBSD = "freebsd"
	NetBSD  = "netbsd"
	OpenBSD = "openbsd"
	Unknown = "unknown"
)

// Resolver maps hostnames to platform tags.
// Resolver 将主机名映射为平台标识。
type Resolver struct {
	exec   cmdexec.Executor
	logger *zap.Logger
	goos   string

	// mu serializes probes so each host is probed once per TTL.
	mu   sync.Mutex
	tags *ttlcache.Cache[string, string]
}

// NewResolver creates a Resolver backed by exec.
// NewResolver 创建基于 exec 的 Resolver。
func NewResolver(exec cmdexec.Executor, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		exec:   exec,
		logger: logger,
		goos:   runtime.GOOS,
		tags:   ttlcache.New[string, string](ttlcache.WithTTL[string, string](CacheTTL)),
	}
}

// Resolve returns the platform tag of hostname. The local host is answered
// from runtime.GOOS; remote hosts are probed and the tag is cached for
// CacheTTL. A failed probe yields Unknown and is not cached.
// Resolve 返回 hostname 的平台标识。本机直接使用 runtime.GOOS，远程主机通过探测获取并缓存 CacheTTL，
// 探测失败时返回 Unknown 且不缓存。
func (r *Resolver) Resolve(ctx context.Context, hostname string) string {
	if hostname == "" || r.exec.IsLocal(hostname) {
		return r.goos
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if item := r.tags.Get(hostname); item != nil {
		return item.Value()
	}

	tag, err := r.exec.RemotePlatform(ctx, hostname)
	if err != nil {
		r.logger.Warn("platform probe failed, treating host as unknown",
			zap.String("host", hostname), zap.Error(err))
		return Unknown
	}
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return Unknown
	}
	r.tags.Set(hostname, tag, ttlcache.DefaultTTL)
	r.logger.Debug("platform resolved", zap.String("host", hostname), zap.String("platform", tag))
	return tag
}

// Forget drops the cached tag of hostname so the next Resolve probes again.
// Forget 删除 hostname 的缓存标识，下一次 Resolve 会重新探测。
func (r *Resolver) Forget(hostname string) {
	r.tags.Delete(hostname)
}

// IsBSD reports whether tag is a BSD-derived system whose ps takes BSD options.
// IsBSD 报告 tag 是否为使用 BSD 风格 ps 参数的系统。
func IsBSD(tag string) bool {
	switch tag {
	case Darwin, FreeBSD, NetBSD, OpenBSD:
		return true
	}
	return false
}
