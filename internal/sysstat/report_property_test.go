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
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// For any report made of label/value sections, every label maps to the value
// in the same column of the row below it.
// 对于任意由标签/值分段组成的报告，每个标签都映射到其下一行同一列的值。
func TestProperty_ReportPairsByColumn(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sections := rapid.IntRange(1, 5).Draw(t, "sections")
		pm := rapid.Bool().Draw(t, "twelveHour")
		stamp := func(sec int) string {
			if pm {
				return fmt.Sprintf("01:00:%02d PM", sec)
			}
			return fmt.Sprintf("13:00:%02d", sec)
		}

		lines := []string{"Linux 6.1.0 (host) 01/02/2026 _x86_64_ (4 CPU)", ""}
		want := map[string]string{}
		for s := 0; s < sections; s++ {
			cols := rapid.IntRange(1, 6).Draw(t, "cols")
			var labels, values []string
			for c := 0; c < cols; c++ {
				label := fmt.Sprintf("s%dc%d", s, c)
				value := fmt.Sprintf("%d.%02d", rapid.IntRange(0, 999).Draw(t, "int"), rapid.IntRange(0, 99).Draw(t, "frac"))
				labels = append(labels, label)
				values = append(values, value)
				want[label] = value
			}
			lines = append(lines,
				stamp(1)+"  "+strings.Join(labels, "   "),
				stamp(2)+"  "+strings.Join(values, "   "),
				"",
			)
		}
		lines = append(lines, "Average:  ignored  row")

		got := ParseReport(lines)
		if len(got) != len(want) {
			t.Fatalf("got %d keys, want %d", len(got), len(want))
		}
		for k, v := range want {
			if got[k] != v {
				t.Fatalf("key %s = %q, want %q", k, got[k], v)
			}
		}
	})
}
