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

package store

import (
	"strings"
	"time"

	"github.com/seatunnel/procwatch/internal/sampler"
)

// ProcessSample is one persisted sample log entry. Process and system rows
// share the table; columns that do not apply to a kind stay NULL.
// ProcessSample 是一条持久化的采样日志条目。进程行和系统行共用一张表，
// 不适用的列保持 NULL。
type ProcessSample struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	RunID     string    `json:"run_id" gorm:"size:36;not null;index:idx_run_time"`
	Kind      string    `json:"kind" gorm:"size:10;not null;index"`
	Name      string    `json:"name" gorm:"size:255;not null;index"`
	Host      string    `json:"host" gorm:"size:255;index"`
	SampledAt time.Time `json:"sampled_at" gorm:"not null;index:idx_run_time"`
	PID       string    `json:"pid" gorm:"size:20"`
	RSS       *int64    `json:"rss"`
	VSZ       *int64    `json:"vsz"`
	PCPU      *float64  `json:"pcpu"`
	PMem      *float64  `json:"pmem"`
	Size      *int64    `json:"size"`
	CPUTime   string    `json:"cputime" gorm:"size:32"`
	OpenFDs   *int      `json:"open_fds"`
	SysLoad   *float64  `json:"sysload"`
	PMemUsed  *float64  `json:"pmemused"`
	PSystem   *float64  `json:"psystem"`
	PSwpUsed  *float64  `json:"pswpused"`
	RTPS      *float64  `json:"rtps"`
	WTPS      *float64  `json:"wtps"`
	Missing   string    `json:"missing" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for ProcessSample.
// TableName 指定 ProcessSample 的表名。
func (ProcessSample) TableName() string {
	return "process_samples"
}

// SampleFromEntry converts a log entry into a row.
// SampleFromEntry 将日志条目转换为数据行。
func SampleFromEntry(e sampler.Entry) ProcessSample {
	return ProcessSample{
		RunID:     e.RunID,
		Kind:      string(e.Kind),
		Name:      e.Name,
		Host:      e.Host,
		SampledAt: e.Time,
		PID:       e.PID,
		RSS:       e.RSS,
		VSZ:       e.VSZ,
		PCPU:      e.PCPU,
		PMem:      e.PMem,
		Size:      e.Size,
		CPUTime:   e.CPUTime,
		OpenFDs:   e.OpenFDs,
		SysLoad:   e.SysLoad,
		PMemUsed:  e.PMemUsed,
		PSystem:   e.PSystem,
		PSwpUsed:  e.PSwpUsed,
		RTPS:      e.RTPS,
		WTPS:      e.WTPS,
		Missing:   strings.Join(e.Missing, ","),
	}
}

// Entry converts the row back into a log entry.
// Entry 将数据行转换回日志条目。
func (s *ProcessSample) Entry() sampler.Entry {
	var missing []string
	if s.Missing != "" {
		missing = strings.Split(s.Missing, ",")
	}
	return sampler.Entry{
		Kind:     sampler.Kind(s.Kind),
		Name:     s.Name,
		Time:     s.SampledAt,
		RunID:    s.RunID,
		Host:     s.Host,
		PID:      s.PID,
		RSS:      s.RSS,
		VSZ:      s.VSZ,
		PCPU:     s.PCPU,
		PMem:     s.PMem,
		Size:     s.Size,
		CPUTime:  s.CPUTime,
		OpenFDs:  s.OpenFDs,
		SysLoad:  s.SysLoad,
		PMemUsed: s.PMemUsed,
		PSystem:  s.PSystem,
		PSwpUsed: s.PSwpUsed,
		RTPS:     s.RTPS,
		WTPS:     s.WTPS,
		Missing:  missing,
	}
}

// SampleFilter narrows List results. Zero values disable a filter.
// SampleFilter 限定 List 的结果，零值表示不过滤。
type SampleFilter struct {
	RunID     string     `json:"run_id"`
	Kind      string     `json:"kind"`
	Name      string     `json:"name"`
	Host      string     `json:"host"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Page      int        `json:"page"`
	PageSize  int        `json:"page_size"`
}
