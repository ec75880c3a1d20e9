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

// Package procutil discovers processes on local and remote hosts, groups them
// by command line and walks process trees.
// procutil 包用于发现本地和远程主机上的进程，按命令行分组并遍历进程树。
package procutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// listingColumns is the number of fixed columns before COMMAND:
// PID RSS VSZ %CPU %MEM SIZE CPUTIME.
const listingColumns = 7

// ProcessRecord is one process observed at one instant.
// ProcessRecord 表示某一时刻观察到的一个进程。
type ProcessRecord struct {
	Command    string    `json:"command"`
	PID        string    `json:"pid"`
	RSSKB      *int64    `json:"rss_kb,omitempty"`
	VSZKB      *int64    `json:"vsz_kb,omitempty"`
	CPUPercent *float64  `json:"cpu_percent,omitempty"`
	MemPercent *float64  `json:"mem_percent,omitempty"`
	SizeKB     *int64    `json:"size_kb,omitempty"`
	CPUTime    string    `json:"cpu_time"`
	OpenFDs    *int      `json:"open_fds,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
	Host       string    `json:"host"`
	Platform   string    `json:"platform"`
}

// parseListingLine parses one line of `ps -o pid,rss,vsz,pcpu,pmem,size,cputime,command`.
// COMMAND is every token from the 8th column on. ok is false for the header
// and for lines with too few columns.
// parseListingLine 解析一行 ps 输出。COMMAND 为第 8 列及之后的所有字段。
// 表头和列数不足的行返回 ok=false。
func parseListingLine(line string) (fields []string, command string, ok bool) {
	fields = strings.Fields(line)
	if len(fields) <= listingColumns {
		return nil, "", false
	}
	if fields[0] == "PID" {
		return nil, "", false
	}
	return fields, strings.Join(fields[listingColumns:], " "), true
}

// newRecord builds a record from parsed listing fields. Numeric columns that
// do not parse are left unset.
// newRecord 根据解析出的字段构造记录，无法解析的数值列保持未设置。
func newRecord(fields []string, command, host, platform string, now time.Time) ProcessRecord {
	return ProcessRecord{
		Command:    command,
		PID:        fields[0],
		RSSKB:      parseInt(fields[1]),
		VSZKB:      parseInt(fields[2]),
		CPUPercent: parseFloat(fields[3]),
		MemPercent: parseFloat(fields[4]),
		SizeKB:     parseInt(fields[5]),
		CPUTime:    fields[6],
		ObservedAt: now,
		Host:       host,
		Platform:   platform,
	}
}

// withOpenFDs returns a copy of r carrying the fd count.
func (r ProcessRecord) withOpenFDs(n int) ProcessRecord {
	r.OpenFDs = &n
	return r
}

// String renders the record on one line.
// String 将记录渲染为单行文本。
func (r ProcessRecord) String() string {
	return fmt.Sprintf("%s pid: %s rss: %s vsz: %s pcpu: %s pmem: %s size: %s cputime: %s open_fds: %s",
		r.Command, r.PID,
		fmtInt(r.RSSKB), fmtInt(r.VSZKB),
		fmtFloat(r.CPUPercent), fmtFloat(r.MemPercent),
		fmtInt(r.SizeKB), r.CPUTime, fmtFDs(r.OpenFDs))
}

func parseInt(s string) *int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func fmtInt(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}

func fmtFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func fmtFDs(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
