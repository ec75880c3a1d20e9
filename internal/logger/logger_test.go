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

package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/seatunnel/procwatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestParseLevel tests level name parsing
// TestParseLevel 测试日志级别解析
func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{in: "", want: zapcore.InfoLevel},
		{in: "debug", want: zapcore.DebugLevel},
		{in: "WARN", want: zapcore.WarnLevel},
		{in: " error ", want: zapcore.ErrorLevel},
		{in: "verbose", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLevel(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// TestNew_InvalidLevel tests that a bad level is rejected
// TestNew_InvalidLevel 测试无效级别被拒绝
func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

// TestNew_File tests that entries reach the rotating file as JSON
// TestNew_File 测试日志以 JSON 写入滚动文件
func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "procwatch.log")
	log, err := New(config.LogConfig{Level: "info", Format: "console", File: path, MaxSize: 1})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("sampler started", zap.String("host", "node-01"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"sampler started"`)
	assert.Contains(t, out, `"host":"node-01"`)
	assert.False(t, strings.Contains(out, "hidden"))
}
