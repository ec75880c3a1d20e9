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
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seatunnel/procwatch/internal/api"
	"github.com/seatunnel/procwatch/internal/config"
	"github.com/seatunnel/procwatch/internal/procutil"
	"github.com/seatunnel/procwatch/internal/sampler"
	"github.com/seatunnel/procwatch/internal/store"
	"github.com/seatunnel/procwatch/internal/tracing"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newPSCmd lists processes by name, pattern or pid.
// newPSCmd 按名称、正则或 PID 列出进程。
func newPSCmd(opts *globalOptions) *cobra.Command {
	var (
		name  string
		pid   string
		regex bool
	)
	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List matching processes / 列出匹配的进程",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if name == "" && pid == "" {
				name, regex = a.cfg.Target.Name, a.cfg.Target.Regex
			}
			if name == "" && pid == "" {
				return errors.New("--name or --pid is required / 需要 --name 或 --pid")
			}

			snap := a.query.Query(cmd.Context(), a.host(), procutil.QueryOptions{Name: name, PID: pid, Regex: regex})
			if err := renderSnapshot(cmd.OutOrStdout(), opts.output, snap); err != nil {
				return err
			}
			if snap.Status == procutil.StatusFailed {
				return fmt.Errorf("process query failed: %w", snap.Err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "process name (substring, or pattern with --regex)")
	cmd.Flags().StringVarP(&pid, "pid", "p", "", "process id")
	cmd.Flags().BoolVarP(&regex, "regex", "r", false, "treat --name as a regular expression")
	return cmd
}

// newTreeCmd lists every descendant of a process.
// newTreeCmd 列出进程的所有后代。
func newTreeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tree PID",
		Short: "List descendants of a process / 列出进程的后代",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			walk := a.tree.Walk(cmd.Context(), a.host(), args[0])
			if walk.Err != nil {
				return walk.Err
			}
			if len(walk.Pruned) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: children of %s could not be listed\n", strings.Join(walk.Pruned, ", "))
			}
			return renderTree(cmd.OutOrStdout(), opts.output, args[0], walk)
		},
	}
}

// newStateCmd prints the state letter of a process.
// newStateCmd 输出进程状态字母。
func newStateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state PID",
		Short: "Print the state of a process / 输出进程状态",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			state, err := a.tree.ProcessState(cmd.Context(), a.host(), args[0])
			if err != nil {
				return err
			}
			return renderState(cmd.OutOrStdout(), opts.output, args[0], state)
		},
	}
}

// newSysstatCmd prints one activity report and the load average.
// newSysstatCmd 输出一次活动报告和系统负载。
func newSysstatCmd(opts *globalOptions) *cobra.Command {
	var protocols []string
	cmd := &cobra.Command{
		Use:   "sysstat",
		Short: "Print host-wide activity / 输出主机级活动指标",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(protocols) == 0 {
				protocols = a.cfg.Sampler.Protocols
			}
			stats, err := a.stats.Read(cmd.Context(), a.host(), protocols)
			if err != nil {
				return err
			}
			var load *float64
			if v, err := a.stats.LoadAverage(cmd.Context(), a.host()); err == nil {
				load = &v
			} else {
				a.log.Warn("load average unavailable", zap.Error(err))
			}
			return renderStats(cmd.OutOrStdout(), opts.output, stats, load)
		},
	}
	cmd.Flags().StringSliceVar(&protocols, "protocols", nil, "network protocols for the report (default: sampler.protocols)")
	return cmd
}

// newMonitorCmd samples until interrupted.
// newMonitorCmd 持续采样直到被中断。
func newMonitorCmd(opts *globalOptions) *cobra.Command {
	var (
		name     string
		regex    bool
		interval time.Duration
		listen   string
	)
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Sample processes periodically / 周期性采样进程",
		Long: `monitor samples the target processes and host activity every interval,
exports the sample log to the configured store and optionally serves the HTTP API.
monitor 按间隔采样目标进程和主机活动，将采样日志导出到配置的存储，并可选地提供 HTTP 接口。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("name") {
				a.cfg.Target.Name = name
			}
			if cmd.Flags().Changed("regex") {
				a.cfg.Target.Regex = regex
			}
			if cmd.Flags().Changed("interval") {
				a.cfg.Sampler.Interval = interval
			}
			if cmd.Flags().Changed("listen") {
				a.cfg.HTTP.Enabled = true
				a.cfg.HTTP.Addr = listen
			}
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid flags: %w / 无效参数", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runMonitor(ctx, a)
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "process name or pattern (default: target.name)")
	cmd.Flags().BoolVarP(&regex, "regex", "r", false, "treat --name as a regular expression")
	cmd.Flags().DurationVarP(&interval, "interval", "i", config.DefaultInterval, "sampling interval")
	cmd.Flags().StringVar(&listen, "listen", "", "serve the HTTP API on this address")
	return cmd
}

// runMonitor runs the sampler, the exporter and the HTTP API until ctx is done.
// runMonitor 运行采样器、导出器和 HTTP 接口，直到 ctx 结束。
func runMonitor(ctx context.Context, a *app) error {
	cfg := a.cfg
	log := a.log

	tp := tracing.Init(ctx, cfg.Telemetry, log)
	if tp.Enabled {
		log.Info("tracing enabled",
			zap.String("endpoint", cfg.Telemetry.Endpoint),
			zap.Float64("sample_ratio", cfg.Telemetry.SampleRatio))
	}
	defer func() {
		if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to shut down tracing", zap.Error(err))
		}
	}()

	smp, err := sampler.New(procutil.NewQuery(a.exec, a.resolver, log), a.stats, sampler.Options{
		Host:      cfg.Target.Host,
		Name:      cfg.Target.Name,
		Regex:     cfg.Target.Regex,
		Interval:  cfg.Sampler.Interval,
		Exclude:   cfg.Sampler.Exclude,
		Protocols: cfg.Sampler.Protocols,
		Tracer:    tp.Tracer,
	}, log)
	if err != nil {
		return err
	}

	var (
		wg       sync.WaitGroup
		exporter *store.Exporter
	)
	exportCtx, stopExport := context.WithCancel(context.WithoutCancel(ctx))
	defer stopExport()

	if cfg.Store.Type != config.StoreNone {
		sink, err := store.NewSink(ctx, cfg.Store, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := sink.Close(); err != nil {
				log.Warn("failed to close sample store", zap.Error(err))
			}
		}()
		exporter = store.NewExporter(smp, sink, cfg.Sampler.ExportInterval, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			exporter.Run(exportCtx)
		}()
	}

	if err := smp.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	if cfg.HTTP.Enabled {
		if cfg.HTTP.Mode != "" {
			gin.SetMode(cfg.HTTP.Mode)
		}
		router := api.NewRouter(api.Deps{
			Query:       a.query,
			Tree:        a.tree,
			Stats:       a.stats,
			Sampler:     smp,
			Exporter:    exporter,
			DefaultHost: cfg.Target.Host,
			ServiceName: cfg.Telemetry.ServiceName,
			Logger:      log,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := api.Serve(ctx, cfg.HTTP.Addr, router, log); err != nil {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down monitor / 正在停止监控")
	case runErr = <-errCh:
		log.Error("http api failed / HTTP 接口失败", zap.Error(runErr))
	}

	// The sampler stops first so the exporter's final flush sees every entry.
	if err := smp.Stop(); err != nil && !errors.Is(err, sampler.ErrNotRunning) {
		log.Warn("failed to stop sampler", zap.Error(err))
	}
	stopExport()
	wg.Wait()
	return runErr
}
