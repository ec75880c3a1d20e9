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

// Status classifies the outcome of a query.
// Status 表示查询结果的类别。
type Status string

const (
	// StatusOK means at least one process matched.
	StatusOK Status = "ok"
	// StatusNoMatch means the listing ran but nothing matched, or no filter was given.
	StatusNoMatch Status = "no-match"
	// StatusFailed means the listing could not be obtained; Err holds the cause.
	StatusFailed Status = "failed"
)

// Snapshot is the result of one query pass: records grouped by command line,
// in discovery order.
// Snapshot 是一次查询的结果：按命令行分组的记录，保持发现顺序。
type Snapshot struct {
	Host      string                     `json:"host"`
	Platform  string                     `json:"platform"`
	Status    Status                     `json:"status"`
	Err       error                      `json:"-"`
	Processes map[string][]ProcessRecord `json:"processes"`

	order []string
}

func newSnapshot(host, platform string) *Snapshot {
	return &Snapshot{
		Host:      host,
		Platform:  platform,
		Status:    StatusNoMatch,
		Processes: make(map[string][]ProcessRecord),
	}
}

func failedSnapshot(host, platform string, err error) *Snapshot {
	s := newSnapshot(host, platform)
	s.Status = StatusFailed
	s.Err = err
	return s
}

func (s *Snapshot) add(r ProcessRecord) {
	if _, ok := s.Processes[r.Command]; !ok {
		s.order = append(s.order, r.Command)
	}
	s.Processes[r.Command] = append(s.Processes[r.Command], r)
	s.Status = StatusOK
}

// Commands returns the bucket keys in discovery order.
// Commands 按发现顺序返回分组键。
func (s *Snapshot) Commands() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Records returns every record, bucket by bucket in discovery order.
// Records 按发现顺序逐组返回所有记录。
func (s *Snapshot) Records() []ProcessRecord {
	var out []ProcessRecord
	for _, cmd := range s.order {
		out = append(out, s.Processes[cmd]...)
	}
	return out
}

// Len returns the number of records.
// Len 返回记录总数。
func (s *Snapshot) Len() int {
	n := 0
	for _, recs := range s.Processes {
		n += len(recs)
	}
	return n
}

// ErrText returns the failure cause as text, or "" when the query did not fail.
// ErrText 以文本形式返回失败原因，未失败时返回空串。
func (s *Snapshot) ErrText() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}
