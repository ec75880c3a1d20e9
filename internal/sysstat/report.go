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

package sysstat

import (
	"regexp"
	"strings"
)

var clockPattern = regexp.MustCompile(`^\d{1,2}:\d{2}:\d{2}$`)

// ParseReport reduces a one-sample sar report to label -> value.
//
// Only timestamped rows are kept, so the banner, blank lines and Average rows
// fall away. The timestamp (and an AM/PM marker) is stripped, then rows are
// taken in pairs: a label row followed by its value row, zipped by position.
// A later section repeating a label overwrites the earlier value.
//
// ParseReport 将单次采样的 sar 报告归约为 标签 -> 值。
// 只保留带时间戳的行，标题、空行和 Average 行被丢弃。去掉时间戳（以及 AM/PM）后，
// 每两行为一组：标签行和值行按位置配对。
func ParseReport(lines []string) map[string]string {
	var rows [][]string
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 || !clockPattern.MatchString(fields[0]) {
			continue
		}
		fields = fields[1:]
		if len(fields) > 0 && (fields[0] == "AM" || fields[0] == "PM") {
			fields = fields[1:]
		}
		if len(fields) == 0 {
			continue
		}
		rows = append(rows, fields)
	}

	stats := make(map[string]string)
	for i := 0; i+1 < len(rows); i += 2 {
		labels, values := rows[i], rows[i+1]
		for j := 0; j < len(labels) && j < len(values); j++ {
			stats[labels[j]] = values[j]
		}
	}
	return stats
}
