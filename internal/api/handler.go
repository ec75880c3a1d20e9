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
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seatunnel/procwatch/internal/procutil"
	"github.com/seatunnel/procwatch/internal/sampler"
	"github.com/seatunnel/procwatch/internal/store"
	"github.com/seatunnel/procwatch/internal/sysstat"
	"go.uber.org/zap"
)

// errNoSampler is returned by sampler routes when no monitor is running.
var errNoSampler = errors.New("api: no sampler is configured / 未配置采样器")

// Handler provides the HTTP handlers.
// Handler 提供 HTTP 处理器。
type Handler struct {
	deps Deps
	log  *zap.Logger
}

// NewHandler creates a new Handler instance.
// NewHandler 创建一个新的 Handler 实例。
func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Handler{deps: d, log: d.Logger}
}

// ==================== Request/Response Types 请求/响应类型 ====================

// Response is the envelope of every reply.
// Response 是所有响应的外层结构。
type Response struct {
	ErrorMsg string `json:"error_msg"`
	Data     any    `json:"data"`
}

// ListProcessesRequest represents the query of GET /processes.
// ListProcessesRequest 表示 GET /processes 的查询参数。
type ListProcessesRequest struct {
	Host  string `form:"host"`
	Name  string `form:"name"`
	PID   string `form:"pid"`
	Regex bool   `form:"regex"`
}

// SnapshotInfo is a snapshot as returned over HTTP.
// SnapshotInfo 是通过 HTTP 返回的快照。
type SnapshotInfo struct {
	*procutil.Snapshot
	Error    string   `json:"error,omitempty"`
	Commands []string `json:"commands"`
}

// ChildrenInfo is a descendant walk as returned over HTTP.
// ChildrenInfo 是通过 HTTP 返回的后代进程遍历结果。
type ChildrenInfo struct {
	PID    string   `json:"pid"`
	PIDs   []string `json:"pids"`
	Pruned []string `json:"pruned,omitempty"`
}

// StateInfo is a process state as returned over HTTP.
// StateInfo 是通过 HTTP 返回的进程状态。
type StateInfo struct {
	PID   string `json:"pid"`
	State string `json:"state"`
}

// SystemStatsInfo is an activity report as returned over HTTP.
// SystemStatsInfo 是通过 HTTP 返回的活动报告。
type SystemStatsInfo struct {
	Host    string            `json:"host"`
	Stats   map[string]string `json:"stats"`
	SysLoad *float64          `json:"sysload"`
}

// SamplesInfo is the sample log as returned over HTTP.
// SamplesInfo 是通过 HTTP 返回的采样日志。
type SamplesInfo struct {
	Drained bool            `json:"drained"`
	Total   int             `json:"total"`
	Entries []sampler.Entry `json:"entries"`
}

// SamplerInfo is the sampler state as returned over HTTP.
// SamplerInfo 是通过 HTTP 返回的采样器状态。
type SamplerInfo struct {
	sampler.Info
	Stats  map[string]string    `json:"stats"`
	Export *store.ExporterStats `json:"export,omitempty"`
}

// SetIntervalRequest represents the body of PUT /sampler/interval.
// SetIntervalRequest 表示 PUT /sampler/interval 的请求体。
type SetIntervalRequest struct {
	Seconds float64 `json:"seconds" binding:"required,gt=0"`
}

// ==================== Handlers 处理器 ====================

// Health handles GET /api/v1/health.
// Health 处理 GET /api/v1/health。
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Data: gin.H{
		"status":  "ok",
		"service": h.deps.ServiceName,
		"time":    time.Now().UTC(),
	}})
}

// ListProcesses handles GET /api/v1/processes. A failed listing is still a
// 200 with status "failed"; only caller mistakes are 400.
// ListProcesses 处理 GET /api/v1/processes。列表失败仍返回 200，status 为 "failed"；
// 只有调用方错误返回 400。
func (h *Handler) ListProcesses(c *gin.Context) {
	req := &ListProcessesRequest{}
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, Response{ErrorMsg: err.Error()})
		return
	}
	if req.Name == "" && req.PID == "" {
		c.JSON(http.StatusBadRequest, Response{ErrorMsg: "name or pid is required / 需要 name 或 pid"})
		return
	}

	snap := h.deps.Query.Query(c.Request.Context(), h.host(req.Host), procutil.QueryOptions{
		Name:  req.Name,
		PID:   req.PID,
		Regex: req.Regex,
	})
	info := SnapshotInfo{Snapshot: snap, Error: snap.ErrText(), Commands: snap.Commands()}
	if errors.Is(snap.Err, procutil.ErrInvalidPattern) {
		c.JSON(http.StatusBadRequest, Response{ErrorMsg: snap.ErrText(), Data: info})
		return
	}
	c.JSON(http.StatusOK, Response{Data: info})
}

// GetChildren handles GET /api/v1/processes/:pid/children.
// GetChildren 处理 GET /api/v1/processes/:pid/children。
func (h *Handler) GetChildren(c *gin.Context) {
	pid := c.Param("pid")
	walk := h.deps.Tree.Walk(c.Request.Context(), h.host(c.Query("host")), pid)
	if walk.Err != nil {
		c.JSON(statusFor(walk.Err), Response{ErrorMsg: walk.Err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Data: ChildrenInfo{PID: pid, PIDs: walk.PIDs, Pruned: walk.Pruned}})
}

// GetState handles GET /api/v1/processes/:pid/state.
// GetState 处理 GET /api/v1/processes/:pid/state。
func (h *Handler) GetState(c *gin.Context) {
	pid := c.Param("pid")
	state, err := h.deps.Tree.ProcessState(c.Request.Context(), h.host(c.Query("host")), pid)
	if err != nil {
		c.JSON(statusFor(err), Response{ErrorMsg: err.Error(), Data: StateInfo{PID: pid}})
		return
	}
	c.JSON(http.StatusOK, Response{Data: StateInfo{PID: pid, State: state}})
}

// GetSystemStats handles GET /api/v1/system/stats?protocols=TCP,UDP.
// GetSystemStats 处理 GET /api/v1/system/stats?protocols=TCP,UDP。
func (h *Handler) GetSystemStats(c *gin.Context) {
	host := h.host(c.Query("host"))
	var protocols []string
	if raw := c.Query("protocols"); raw != "" {
		protocols = strings.Split(raw, ",")
	}

	stats, err := h.deps.Stats.Read(c.Request.Context(), host, protocols)
	if err != nil {
		c.JSON(statusFor(err), Response{ErrorMsg: err.Error()})
		return
	}

	info := SystemStatsInfo{Host: host, Stats: stats}
	if load, err := h.deps.Stats.LoadAverage(c.Request.Context(), host); err == nil {
		info.SysLoad = &load
	} else {
		h.log.Warn("load average unavailable", zap.String("host", host), zap.Error(err))
	}
	c.JSON(http.StatusOK, Response{Data: info})
}

// ListSamples handles GET /api/v1/samples?drain=true.
// ListSamples 处理 GET /api/v1/samples?drain=true。
func (h *Handler) ListSamples(c *gin.Context) {
	if h.deps.Sampler == nil {
		c.JSON(http.StatusServiceUnavailable, Response{ErrorMsg: errNoSampler.Error()})
		return
	}
	drain, err := strconv.ParseBool(c.DefaultQuery("drain", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{ErrorMsg: "invalid drain flag / drain 参数无效"})
		return
	}

	var entries []sampler.Entry
	if drain {
		entries = h.deps.Sampler.Drain()
	} else {
		entries = h.deps.Sampler.Entries()
	}
	if entries == nil {
		entries = []sampler.Entry{}
	}
	c.JSON(http.StatusOK, Response{Data: SamplesInfo{Drained: drain, Total: len(entries), Entries: entries}})
}

// GetSampler handles GET /api/v1/sampler.
// GetSampler 处理 GET /api/v1/sampler。
func (h *Handler) GetSampler(c *gin.Context) {
	if h.deps.Sampler == nil {
		c.JSON(http.StatusServiceUnavailable, Response{ErrorMsg: errNoSampler.Error()})
		return
	}
	info := SamplerInfo{Info: h.deps.Sampler.Info(), Stats: h.deps.Sampler.Stats()}
	if h.deps.Exporter != nil {
		stats := h.deps.Exporter.Stats()
		info.Export = &stats
	}
	c.JSON(http.StatusOK, Response{Data: info})
}

// SetInterval handles PUT /api/v1/sampler/interval.
// SetInterval 处理 PUT /api/v1/sampler/interval。
func (h *Handler) SetInterval(c *gin.Context) {
	if h.deps.Sampler == nil {
		c.JSON(http.StatusServiceUnavailable, Response{ErrorMsg: errNoSampler.Error()})
		return
	}
	req := &SetIntervalRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, Response{ErrorMsg: err.Error()})
		return
	}
	d := time.Duration(req.Seconds * float64(time.Second))
	if err := h.deps.Sampler.SetInterval(d); err != nil {
		c.JSON(statusFor(err), Response{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Data: h.deps.Sampler.Info()})
}

func (h *Handler) host(q string) string {
	if q != "" {
		return q
	}
	return h.deps.DefaultHost
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, procutil.ErrPIDRequired),
		errors.Is(err, procutil.ErrInvalidPattern),
		errors.Is(err, sysstat.ErrInvalidProtocol),
		errors.Is(err, sampler.ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.Is(err, procutil.ErrUnsupportedPlatform):
		return http.StatusNotImplemented
	case errors.Is(err, procutil.ErrProbeFailed),
		errors.Is(err, sysstat.ErrReportFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
