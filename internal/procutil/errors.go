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

import "errors"

// Errors for process queries
// 进程查询的错误定义
var (
	// ErrPIDRequired indicates an operation that needs a PID received none.
	// ErrPIDRequired 表示需要 PID 的操作未提供 PID。
	ErrPIDRequired = errors.New("procutil: pid is required / 需要 PID")

	// ErrUnsupportedPlatform indicates the probe has no form for the host's platform.
	// ErrUnsupportedPlatform 表示该主机平台不支持此探测。
	ErrUnsupportedPlatform = errors.New("procutil: unsupported platform / 不支持的平台")

	// ErrProbeFailed indicates the listing command failed or produced no output.
	// ErrProbeFailed 表示列表命令执行失败或没有输出。
	ErrProbeFailed = errors.New("procutil: probe failed / 探测失败")

	// ErrInvalidPattern indicates a regex query with a pattern that does not compile.
	// ErrInvalidPattern 表示正则查询的表达式无法编译。
	ErrInvalidPattern = errors.New("procutil: invalid pattern / 无效的匹配表达式")
)
