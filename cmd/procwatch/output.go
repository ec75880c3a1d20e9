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

package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/seatunnel/procwatch/internal/procutil"
)

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// snapshotOutput is the JSON form of a snapshot.
type snapshotOutput struct {
	Host      string                   `json:"host"`
	Platform  string                   `json:"platform"`
	Status    procutil.Status          `json:"status"`
	Error     string                   `json:"error,omitempty"`
	Processes []procutil.ProcessRecord `json:"processes"`
}

func renderSnapshot(w io.Writer, format string, snap *procutil.Snapshot) error {
	if format == outputJSON {
		recs := snap.Records()
		if recs == nil {
			recs = []procutil.ProcessRecord{}
		}
		return writeJSON(w, snapshotOutput{
			Host:      snap.Host,
			Platform:  snap.Platform,
			Status:    snap.Status,
			Error:     snap.ErrText(),
			Processes: recs,
		})
	}

	if snap.Len() == 0 {
		_, err := fmt.Fprintf(w, "no matching processes (%s)\n", snap.Status)
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "PID\tRSS\tVSZ\t%CPU\t%MEM\tSIZE\tTIME\tFDS\tCOMMAND")
	for _, r := range snap.Records() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.PID, intCell(r.RSSKB), intCell(r.VSZKB), floatCell(r.CPUPercent), floatCell(r.MemPercent),
			intCell(r.SizeKB), r.CPUTime, fdCell(r.OpenFDs), r.Command)
	}
	return tw.Flush()
}

// treeOutput is the JSON form of a descendant walk.
type treeOutput struct {
	PID    string   `json:"pid"`
	PIDs   []string `json:"pids"`
	Pruned []string `json:"pruned,omitempty"`
}

func renderTree(w io.Writer, format, pid string, walk procutil.TreeWalk) error {
	if format == outputJSON {
		return writeJSON(w, treeOutput{PID: pid, PIDs: walk.PIDs, Pruned: walk.Pruned})
	}
	for _, p := range walk.PIDs {
		if _, err := fmt.Fprintln(w, p); err != nil {
			return err
		}
	}
	return nil
}

func renderState(w io.Writer, format, pid, state string) error {
	if format == outputJSON {
		return writeJSON(w, map[string]string{"pid": pid, "state": state})
	}
	_, err := fmt.Fprintln(w, state)
	return err
}

// statsOutput is the JSON form of an activity report.
type statsOutput struct {
	Stats   map[string]string `json:"stats"`
	SysLoad *float64          `json:"sysload"`
}

func renderStats(w io.Writer, format string, stats map[string]string, load *float64) error {
	if format == outputJSON {
		return writeJSON(w, statsOutput{Stats: stats, SysLoad: load})
	}

	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := newTable(w)
	fmt.Fprintln(tw, "KEY\tVALUE")
	fmt.Fprintf(tw, "sysload\t%s\n", floatCell(load))
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\n", k, stats[k])
	}
	return tw.Flush()
}

func intCell(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}

func floatCell(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func fdCell(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
