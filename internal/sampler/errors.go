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

import "errors"

// Errors for sampler lifecycle
// 采样器生命周期的错误定义
var (
	// ErrAlreadyRunning indicates Start on a sampler that is not idle.
	// ErrAlreadyRunning 表示对非空闲状态的采样器调用 Start。
	ErrAlreadyRunning = errors.New("sampler: already running / 采样器已在运行")

	// ErrNotRunning indicates Stop on an idle sampler.
	// ErrNotRunning 表示对空闲采样器调用 Stop。
	ErrNotRunning = errors.New("sampler: not running / 采样器未运行")

	// ErrInvalidInterval indicates a non-positive sampling interval.
	// ErrInvalidInterval 表示采样间隔不是正数。
	ErrInvalidInterval = errors.New("sampler: interval must be positive / 采样间隔必须为正数")
)
