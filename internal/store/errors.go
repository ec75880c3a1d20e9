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

import "errors"

// Errors for sample persistence
// 采样持久化的错误定义
var (
	// ErrUnsupportedStore indicates an unknown store type.
	// ErrUnsupportedStore 表示未知的存储类型。
	ErrUnsupportedStore = errors.New("store: unsupported store type / 不支持的存储类型")

	// ErrSinkClosed indicates a write after Close.
	// ErrSinkClosed 表示在 Close 之后写入。
	ErrSinkClosed = errors.New("store: sink is closed / 存储已关闭")

	// ErrInvalidKind indicates a sample row with an unknown kind.
	// ErrInvalidKind 表示采样行的类型未知。
	ErrInvalidKind = errors.New("store: invalid sample kind / 无效的采样类型")
)
