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

import "github.com/seatunnel/procwatch/internal/platform"

// Dialect is the ps invocation that yields the fixed listing columns
// PID RSS VSZ %CPU %MEM SIZE CPUTIME COMMAND on one platform.
// Dialect 是在某个平台上输出固定列 PID RSS VSZ %CPU %MEM SIZE CPUTIME COMMAND 的 ps 调用方式。
type Dialect struct {
	// Platform is the tag the dialect was chosen for.
	// Platform 是选择该方言时的平台标识。
	Platform string `json:"platform"`

	// BaseArgs is the ps command with its column selection.
	// BaseArgs 是带列选择的 ps 命令。
	BaseArgs []string `json:"base_args"`

	// NameFilterFlag selects processes by executable name; empty when the
	// platform's ps has none.
	// NameFilterFlag 按可执行文件名过滤进程；平台不支持时为空。
	NameFilterFlag string `json:"name_filter_flag"`

	// ListAllArgs lists every process.
	// ListAllArgs 列出所有进程。
	ListAllArgs []string `json:"list_all_args"`
}

// dialectFor returns the dialect for a platform tag. Tags without a BSD ps,
// including unknown, get the Linux (procps) dialect.
// dialectFor 返回平台对应的方言。非 BSD 平台（包括 unknown）使用 Linux（procps）方言。
func dialectFor(tag string) Dialect {
	if platform.IsBSD(tag) {
		return Dialect{
			Platform:    tag,
			BaseArgs:    []string{"ps", "-o", "pid,rss,vsz,pcpu,pmem,tsiz,time,command"},
			ListAllArgs: []string{"-ax"},
		}
	}
	return Dialect{
		Platform:       tag,
		BaseArgs:       []string{"ps", "-o", "pid,rss,vsz,pcpu,pmem,size,cputime,command"},
		NameFilterFlag: "-C",
		ListAllArgs:    []string{"-e"},
	}
}

// HasProcFS reports whether the platform exposes /proc/<pid>/fd.
// HasProcFS 报告平台是否提供 /proc/<pid>/fd。
func (d Dialect) HasProcFS() bool {
	return !platform.IsBSD(d.Platform)
}

func (d Dialect) byPID(pid string) []string {
	return d.with("-p", pid)
}

func (d Dialect) byName(name string) []string {
	if d.NameFilterFlag == "" {
		return d.listAll()
	}
	return d.with(d.NameFilterFlag, name)
}

func (d Dialect) listAll() []string {
	return d.with(d.ListAllArgs...)
}

func (d Dialect) with(extra ...string) []string {
	argv := make([]string, 0, len(d.BaseArgs)+len(extra))
	argv = append(argv, d.BaseArgs...)
	return append(argv, extra...)
}

func (d Dialect) clone() Dialect {
	d.BaseArgs = append([]string(nil), d.BaseArgs...)
	d.ListAllArgs = append([]string(nil), d.ListAllArgs...)
	return d
}
