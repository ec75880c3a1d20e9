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

// Package api exposes process queries and the sampler over HTTP.
// api 包通过 HTTP 提供进程查询和采样器接口。
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seatunnel/procwatch/internal/procutil"
	"github.com/seatunnel/procwatch/internal/sampler"
	"github.com/seatunnel/procwatch/internal/store"
	"github.com/seatunnel/procwatch/internal/sysstat"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Deps are the components served by the API. Sampler and Exporter may be
// nil when no monitor is running.
// Deps 是 API 依赖的组件。未运行监控时 Sampler 和 Exporter 可以为 nil。
type Deps struct {
	Query       *procutil.Query
	Tree        *procutil.Tree
	Stats       *sysstat.Reader
	Sampler     *sampler.Sampler
	Exporter    *store.Exporter
	DefaultHost string
	ServiceName string
	Logger      *zap.Logger
}

// NewRouter builds the gin engine with every /api/v1 route.
// NewRouter 构建包含所有 /api/v1 路由的 gin 引擎。
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.ServiceName == "" {
		d.ServiceName = "procwatch"
	}
	h := NewHandler(d)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(d.ServiceName), loggerMiddleware(d.Logger))

	apiV1Router := r.Group("/api/v1")
	{
		apiV1Router.GET("/health", h.Health)

		// Processes
		processRouter := apiV1Router.Group("/processes")
		{
			processRouter.GET("", h.ListProcesses)
			processRouter.GET("/:pid/children", h.GetChildren)
			processRouter.GET("/:pid/state", h.GetState)
		}

		// System
		apiV1Router.GET("/system/stats", h.GetSystemStats)

		// Sampler
		apiV1Router.GET("/samples", h.ListSamples)
		apiV1Router.GET("/sampler", h.GetSampler)
		apiV1Router.PUT("/sampler/interval", h.SetInterval)
	}

	return r
}

// loggerMiddleware logs one line per request with the trace context attached.
// loggerMiddleware 为每个请求记录一行日志，并附带追踪上下文。
func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	log := otelzap.New(logger)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Ctx(c.Request.Context()).Warn("http request", fields...)
			return
		}
		log.Ctx(c.Request.Context()).Debug("http request", fields...)
	}
}

// Serve runs handler on addr until ctx is done, then shuts down gracefully.
// Serve 在 addr 上运行 handler，直到 ctx 结束后优雅关闭。
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api listening / HTTP 接口已启动", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("http api stopped / HTTP 接口已停止")
	return nil
}
