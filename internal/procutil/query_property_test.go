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

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/seatunnel/procwatch/internal/cmdexec"
	"github.com/seatunnel/procwatch/internal/cmdexec/cmdexectest"
	"pgregory.net/rapid"
)

// For any listing, every record sits under the key equal to its own command,
// buckets appear in first-seen order, and no line is lost or duplicated.
// 对于任意进程列表，每条记录都位于与其命令相同的键下，分组按首次出现顺序排列，且不丢失或重复任何行。
func TestProperty_GroupingInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		commandPool := rapid.SliceOfN(
			rapid.StringMatching(`/[a-z]{1,6}( -{1,2}[a-z]{1,4}){0,3}`), 1, 4,
		).Draw(t, "commands")
		n := rapid.IntRange(0, 20).Draw(t, "lines")

		lines := []string{"  PID   RSS    VSZ %CPU %MEM  SIZE     TIME COMMAND"}
		var wantOrder []string
		seen := map[string]bool{}
		for i := 0; i < n; i++ {
			cmd := commandPool[rapid.IntRange(0, len(commandPool)-1).Draw(t, "pick")]
			lines = append(lines, fmt.Sprintf("%5d %5d %6d %4.1f %4.1f %5d 00:00:%02d %s",
				1000+i, i*10, i*100, float64(i)/10, float64(i)/20, i, i%60, cmd))
			norm := strings.Join(strings.Fields(cmd), " ")
			if !seen[norm] {
				seen[norm] = true
				wantOrder = append(wantOrder, norm)
			}
		}

		fake := cmdexectest.New().
			On(linuxPS+" -e", cmdexectest.Response{Stdout: lines}).
			SetHandler(func(context.Context, cmdexectest.Call) (*cmdexec.Result, error) {
				return &cmdexec.Result{ExitCode: 1}, nil
			})
		q := NewQuery(fake, fixedResolver("linux"), nil)

		snap := q.Query(context.Background(), "", QueryOptions{Name: "^/", Regex: true})

		if snap.Len() != n {
			t.Fatalf("got %d records, want %d", snap.Len(), n)
		}
		for key, recs := range snap.Processes {
			for _, r := range recs {
				if r.Command != key {
					t.Fatalf("record %s with command %q filed under %q", r.PID, r.Command, key)
				}
			}
		}
		got := snap.Commands()
		if len(got) != len(wantOrder) {
			t.Fatalf("got buckets %v, want %v", got, wantOrder)
		}
		for i := range got {
			if got[i] != wantOrder[i] {
				t.Fatalf("bucket %d is %q, want %q", i, got[i], wantOrder[i])
			}
		}
	})
}

type fixedResolver string

func (f fixedResolver) Resolve(context.Context, string) string { return string(f) }
