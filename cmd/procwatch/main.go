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

// Package main is the entry point of the procwatch CLI.
// main 包是 procwatch 命令行工具的入口。
//
// procwatch inspects and samples processes on the local host or on remote
// hosts over SSH:
// procwatch 检查并采样本机或通过 SSH 访问的远程主机上的进程：
// - ps / tree / state query processes once / 单次查询进程
// - sysstat reads host-wide activity / 读取主机级活动指标
// - monitor samples periodically and exports the log / 周期采样并导出日志
package main

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/seatunnel/procwatch/internal/cmdexec"
	"github.com/seatunnel/procwatch/internal/config"
	"github.com/seatunnel/procwatch/internal/logger"
	"github.com/seatunnel/procwatch/internal/platform"
	"github.com/seatunnel/procwatch/internal/procutil"
	"github.com/seatunnel/procwatch/internal/sysstat"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version information, set at build time
// 版本信息，在构建时设置
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Output formats
// 输出格式
const (
	outputTable = "table"
	outputJSON  = "json"
)

// newExecutor builds the command executor; tests replace it with a fake.
var newExecutor = func(cfg *config.Config, log *zap.Logger) cmdexec.Executor {
	return cmdexec.NewRunner(sshConfig(cfg.SSH), log)
}

// globalOptions are the flags shared by every command.
// globalOptions 是所有命令共享的标志。
type globalOptions struct {
	configFile string
	host       string
	output     string
}

// app bundles the components a command needs.
// app 汇总命令所需的组件。
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	exec     cmdexec.Executor
	resolver *platform.Resolver
	query    *procutil.Query
	tree     *procutil.Tree
	stats    *sysstat.Reader
}

// newApp loads the configuration and wires the query components.
// newApp 加载配置并组装查询组件。
func newApp(opts *globalOptions) (*app, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w / 加载配置失败", err)
	}
	if opts.host != "" {
		cfg.Target.Host = opts.host
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w / 无效配置", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	exec := newExecutor(cfg, log)
	resolver := platform.NewResolver(exec, log)
	return &app{
		cfg:      cfg,
		log:      log,
		exec:     exec,
		resolver: resolver,
		query:    procutil.NewQuery(exec, resolver, log),
		tree:     procutil.NewTree(exec, resolver, log),
		stats:    sysstat.NewReader(exec, log),
	}, nil
}

// host returns the target host of this invocation.
func (a *app) host() string {
	return a.cfg.Target.Host
}

// Close releases SSH clients and flushes the logger.
// Close 释放 SSH 客户端并刷新日志。
func (a *app) Close() {
	if c, ok := a.exec.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.log.Warn("failed to close executor", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

// sshConfig converts the config section; nil when no credentials are set.
func sshConfig(c config.SSHConfig) *cmdexec.SSHConfig {
	if c.KeyFile == "" && c.Password == "" {
		return nil
	}
	return &cmdexec.SSHConfig{
		User:                  c.User,
		Port:                  c.Port,
		KeyFile:               c.KeyFile,
		Password:              c.Password,
		KnownHostsFile:        c.KnownHostsFile,
		InsecureIgnoreHostKey: c.InsecureIgnoreHostKey,
		Timeout:               c.Timeout,
	}
}

// newRootCmd builds the command tree.
// newRootCmd 构建命令树。
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "procwatch",
		Short: "procwatch - process introspection and monitoring",
		Long: `procwatch inspects processes on local or remote hosts and samples them over time.
procwatch 检查本机或远程主机上的进程，并周期性地采样。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != outputTable && opts.output != outputJSON {
				return fmt.Errorf("invalid output %q (must be table or json) / 无效的输出格式", opts.output)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file path (default: "+config.DefaultConfigPath+")")
	root.PersistentFlags().StringVar(&opts.host, "host", "", "target host (default: target.host, empty for this machine)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", outputTable, "output format: table or json")

	root.AddCommand(
		newPSCmd(opts),
		newTreeCmd(opts),
		newStateCmd(opts),
		newSysstatCmd(opts),
		newMonitorCmd(opts),
		newVersionCmd(),
	)
	return root
}

// newVersionCmd shows version information
// newVersionCmd 显示版本信息
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information / 打印版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "procwatch\n")
			fmt.Fprintf(out, "  Version:    %s\n", Version)
			fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
			fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Go Version: %s\n", runtime.Version())
			fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
