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

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seatunnel/procwatch/internal/cmdexec/cmdexectest"
	"github.com/seatunnel/procwatch/internal/platform"
	"github.com/seatunnel/procwatch/internal/procutil"
	"github.com/seatunnel/procwatch/internal/sampler"
	"github.com/seatunnel/procwatch/internal/store"
	"github.com/seatunnel/procwatch/internal/sysstat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testHost = "node-01"
	psMyproc = "ps -o pid,rss,vsz,pcpu,pmem,size,cputime,command -C myproc"
	sarTCP   = "LC_ALL=C sar -rSub -n TCP 1 1"
)

var myprocListing = []string{
	"  PID   RSS    VSZ %CPU %MEM  SIZE     TIME COMMAND",
	"  100  2048  10240  0.5  1.2   512 00:00:01 /usr/bin/myproc --serve",
	"  101  4096  20480  1.0  2.4  1024 00:00:02 /usr/bin/myproc --serve",
}

var sarReport = []string{
	"12:00:01    kbmemfree kbmemused  %memused",
	"12:00:02      1024000   3072000     37.50",
	"12:00:01          tps      rtps      wtps",
	"12:00:02         3.00      1.00      2.00",
}

func newFake() *cmdexectest.Fake {
	return cmdexectest.New().
		On(psMyproc, cmdexectest.Response{Stdout: myprocListing}).
		On(sarTCP, cmdexectest.Response{Stdout: sarReport}).
		On("cat /proc/loadavg", cmdexectest.Response{Stdout: []string{"0.50 0.40 0.30 2/300 999"}}).
		On("ps -o pid --ppid 100 --no-heading", cmdexectest.Response{Stdout: []string{"  200", "  201"}}).
		On("ps -o pid --ppid 200 --no-heading", cmdexectest.Response{ExitCode: 1}).
		On("ps -o pid --ppid 201 --no-heading", cmdexectest.Response{ExitCode: 1}).
		On("ps -o stat -p 100 --no-heading", cmdexectest.Response{Stdout: []string{"Ssl"}})
}

func newDeps(fake *cmdexectest.Fake, smp *sampler.Sampler) Deps {
	resolver := platform.NewResolver(fake, nil)
	return Deps{
		Query:       procutil.NewQuery(fake, resolver, nil),
		Tree:        procutil.NewTree(fake, resolver, nil),
		Stats:       sysstat.NewReader(fake, nil),
		Sampler:     smp,
		DefaultHost: testHost,
	}
}

func setupTestRouter(d Deps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(d)
}

func doRequest(t *testing.T, r http.Handler, method, path string, body []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	d, ok := resp["data"].(map[string]any)
	require.True(t, ok, "data is %T", resp["data"])
	return d
}

// TestHealth tests the health route
// TestHealth 测试健康检查接口
func TestHealth(t *testing.T) {
	r := setupTestRouter(newDeps(newFake(), nil))

	w, resp := doRequest(t, r, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", data(t, resp)["status"])
	assert.Equal(t, "procwatch", data(t, resp)["service"])
}

// TestListProcesses tests process queries over HTTP
// TestListProcesses 测试通过 HTTP 查询进程
func TestListProcesses(t *testing.T) {
	r := setupTestRouter(newDeps(newFake(), nil))

	w, resp := doRequest(t, r, http.MethodGet, "/api/v1/processes?name=myproc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	d := data(t, resp)
	assert.Equal(t, "ok", d["status"])
	assert.Equal(t, testHost, d["host"])
	assert.Equal(t, "linux", d["platform"])
	assert.Equal(t, []any{"/usr/bin/myproc --serve"}, d["commands"])
	procs := d["processes"].(map[string]any)["/usr/bin/myproc --serve"].([]any)
	require.Len(t, procs, 2)
	assert.Equal(t, "100", procs[0].(map[string]any)["pid"])
}

// TestListProcesses_Failures tests caller errors and degraded listings
// TestListProcesses_Failures 测试调用方错误和降级的列表结果
func TestListProcesses_Failures(t *testing.T) {
	r := setupTestRouter(newDeps(newFake(), nil))

	testCases := []struct {
		name       string
		path       string
		wantCode   int
		wantStatus string
	}{
		{name: "no filter", path: "/api/v1/processes", wantCode: http.StatusBadRequest},
		{name: "bad regex", path: "/api/v1/processes?name=%28&regex=true", wantCode: http.StatusBadRequest, wantStatus: "failed"},
		{name: "bad regex flag", path: "/api/v1/processes?name=x&regex=maybe", wantCode: http.StatusBadRequest},
		{name: "listing fails", path: "/api/v1/processes?name=ghost", wantCode: http.StatusOK, wantStatus: "failed"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w, resp := doRequest(t, r, http.MethodGet, tc.path, nil)
			assert.Equal(t, tc.wantCode, w.Code)
			if tc.wantStatus != "" {
				assert.Equal(t, tc.wantStatus, data(t, resp)["status"])
				assert.NotEmpty(t, data(t, resp)["error"])
			}
		})
	}
}

// TestGetChildrenAndState tests the tree routes
// TestGetChildrenAndState 测试进程树相关接口
func TestGetChildrenAndState(t *testing.T) {
	fake := newFake().SetPlatform("mac-01", "darwin")
	r := setupTestRouter(newDeps(fake, nil))

	w, resp := doRequest(t, r, http.MethodGet, "/api/v1/processes/100/children", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"200", "201"}, data(t, resp)["pids"])

	w, resp = doRequest(t, r, http.MethodGet, "/api/v1/processes/100/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "S", data(t, resp)["state"])

	w, _ = doRequest(t, r, http.MethodGet, "/api/v1/processes/100/children?host=mac-01", nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w, _ = doRequest(t, r, http.MethodGet, "/api/v1/processes/999/state", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

// TestGetSystemStats tests the activity report route
// TestGetSystemStats 测试系统活动报告接口
func TestGetSystemStats(t *testing.T) {
	r := setupTestRouter(newDeps(newFake(), nil))

	w, resp := doRequest(t, r, http.MethodGet, "/api/v1/system/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	d := data(t, resp)
	assert.Equal(t, "37.50", d["stats"].(map[string]any)["%memused"])
	assert.Equal(t, 0.5, d["sysload"])

	w, _ = doRequest(t, r, http.MethodGet, "/api/v1/system/stats?protocols=TCP;reboot", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doRequest(t, r, http.MethodGet, "/api/v1/system/stats?protocols=UDP", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

// TestSamplerRoutes_NoSampler tests sampler routes without a monitor
// TestSamplerRoutes_NoSampler 测试未运行监控时的采样器接口
func TestSamplerRoutes_NoSampler(t *testing.T) {
	r := setupTestRouter(newDeps(newFake(), nil))

	for _, path := range []string{"/api/v1/samples", "/api/v1/sampler"} {
		w, resp := doRequest(t, r, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.NotEmpty(t, resp["error_msg"])
	}
}

// TestSamplerRoutes tests sample listing, draining and the interval setter
// TestSamplerRoutes 测试采样列表、导出和间隔设置
func TestSamplerRoutes(t *testing.T) {
	fake := newFake()
	resolver := platform.NewResolver(fake, nil)
	smp, err := sampler.New(procutil.NewQuery(fake, resolver, nil), sysstat.NewReader(fake, nil), sampler.Options{
		Host:     testHost,
		Name:     "myproc",
		Interval: time.Hour,
	}, nil)
	require.NoError(t, err)

	d := newDeps(fake, smp)
	d.Exporter = store.NewExporter(smp, store.NewMemorySink(), time.Hour, nil)
	r := setupTestRouter(d)

	require.NoError(t, smp.Start(context.Background()))
	require.Eventually(t, func() bool { return smp.Len() == 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, smp.Stop())

	w, resp := doRequest(t, r, http.MethodGet, "/api/v1/sampler", nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := data(t, resp)
	assert.Equal(t, "idle", info["state"])
	assert.Equal(t, float64(3), info["entries"])
	assert.NotNil(t, info["export"])
	stats, ok := info["stats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "37.50", stats["%memused"])
	assert.Equal(t, "1.00", stats["rtps"])

	w, resp = doRequest(t, r, http.MethodGet, "/api/v1/samples", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), data(t, resp)["total"])
	assert.Equal(t, 3, smp.Len())

	w, resp = doRequest(t, r, http.MethodGet, "/api/v1/samples?drain=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), data(t, resp)["total"])
	assert.Equal(t, 0, smp.Len())

	w, _ = doRequest(t, r, http.MethodGet, "/api/v1/samples?drain=later", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = doRequest(t, r, http.MethodPut, "/api/v1/sampler/interval", []byte(`{"seconds":5}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(5), data(t, resp)["interval_seconds"])
	assert.Equal(t, 5*time.Second, smp.Interval())

	w, _ = doRequest(t, r, http.MethodPut, "/api/v1/sampler/interval", []byte(`{"seconds":0}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doRequest(t, r, http.MethodPut, "/api/v1/sampler/interval", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestStatusFor tests error to status mapping
// TestStatusFor 测试错误到状态码的映射
func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(procutil.ErrPIDRequired))
	assert.Equal(t, http.StatusBadRequest, statusFor(sampler.ErrInvalidInterval))
	assert.Equal(t, http.StatusNotImplemented, statusFor(procutil.ErrUnsupportedPlatform))
	assert.Equal(t, http.StatusBadGateway, statusFor(sysstat.ErrReportFailed))
	assert.Equal(t, http.StatusInternalServerError, statusFor(context.Canceled))
}
