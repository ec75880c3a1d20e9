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
	"strconv"
	"time"

	"github.com/seatunnel/procwatch/internal/procutil"
	"github.com/seatunnel/procwatch/internal/sysstat"
)

// SystemEntryName is the name of host-wide entries.
// SystemEntryName 是主机级条目的名称。
const SystemEntryName = "System"

// Kind tells process entries from system entries.
// Kind 区分进程条目和系统条目。
type Kind string

const (
	KindProcess Kind = "process"
	KindSystem  Kind = "system"
)

// Entry is one row of the sample log.
// Entry 是采样日志中的一行。
type Entry struct {
	Kind  Kind      `json:"kind"`
	Name  string    `json:"name"`
	Time  time.Time `json:"time"`
	RunID string    `json:"run_id"`
	Host  string    `json:"host"`

	// Process fields / 进程字段
	PID     string   `json:"pid,omitempty"`
	RSS     *int64   `json:"rss,omitempty"`
	VSZ     *int64   `json:"vsz,omitempty"`
	PCPU    *float64 `json:"pcpu,omitempty"`
	PMem    *float64 `json:"pmem,omitempty"`
	Size    *int64   `json:"size,omitempty"`
	CPUTime string   `json:"cputime,omitempty"`
	OpenFDs *int     `json:"open_fds,omitempty"`

	// System fields / 系统字段
	SysLoad  *float64 `json:"sysload,omitempty"`
	PMemUsed *float64 `json:"pmemused,omitempty"`
	PSystem  *float64 `json:"psystem,omitempty"`
	PSwpUsed *float64 `json:"pswpused,omitempty"`
	RTPS     *float64 `json:"rtps,omitempty"`
	WTPS     *float64 `json:"wtps,omitempty"`

	// Missing names the system fields that could not be read this iteration.
	// Missing 列出本次迭代未能读取的系统字段。
	Missing []string `json:"missing,omitempty"`
}

// processEntry converts a record into a process entry stamped at t.
func processEntry(rec procutil.ProcessRecord, t time.Time, runID string) Entry {
	return Entry{
		Kind:    KindProcess,
		Name:    rec.Command,
		Time:    t,
		RunID:   runID,
		Host:    rec.Host,
		PID:     rec.PID,
		RSS:     rec.RSSKB,
		VSZ:     rec.VSZKB,
		PCPU:    rec.CPUPercent,
		PMem:    rec.MemPercent,
		Size:    rec.SizeKB,
		CPUTime: rec.CPUTime,
		OpenFDs: rec.OpenFDs,
	}
}

// systemFields maps entry fields to sar report keys.
var systemFields = []struct {
	key string
	set func(e *Entry, v float64)
}{
	{sysstat.KeyMemUsed, func(e *Entry, v float64) { e.PMemUsed = &v }},
	{sysstat.KeySystem, func(e *Entry, v float64) { e.PSystem = &v }},
	{sysstat.KeySwapUsed, func(e *Entry, v float64) { e.PSwpUsed = &v }},
	{sysstat.KeyReadTPS, func(e *Entry, v float64) { e.RTPS = &v }},
	{sysstat.KeyWriteTPS, func(e *Entry, v float64) { e.WTPS = &v }},
}

// systemEntry builds a system entry from the merged stats table. Keys that
// are absent or not numeric are listed in Missing.
// systemEntry 根据合并后的统计表构造系统条目。缺失或非数值的键记录在 Missing 中。
func systemEntry(stats map[string]string, load *float64, t time.Time, runID, host string) Entry {
	e := Entry{
		Kind:    KindSystem,
		Name:    SystemEntryName,
		Time:    t,
		RunID:   runID,
		Host:    host,
		SysLoad: load,
	}
	if load == nil {
		e.Missing = append(e.Missing, "sysload")
	}
	for _, f := range systemFields {
		raw, ok := stats[f.key]
		if !ok {
			e.Missing = append(e.Missing, f.key)
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			e.Missing = append(e.Missing, f.key)
			continue
		}
		f.set(&e, v)
	}
	return e
}
