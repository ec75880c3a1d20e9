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

// Package tracing configures the OpenTelemetry tracer provider.
// tracing 包配置 OpenTelemetry 追踪提供者。
package tracing

import (
	"context"
	"errors"
	"fmt"

	"github.com/seatunnel/procwatch/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"google.golang.org/grpc/credentials"
)

// InstrumentationName is the tracer scope used by procwatch packages.
// InstrumentationName 是 procwatch 各包使用的 tracer 作用域。
const InstrumentationName = "github.com/seatunnel/procwatch"

// ShutdownFunc flushes and stops the tracer provider.
// ShutdownFunc 刷新并停止追踪提供者。
type ShutdownFunc func(ctx context.Context) error

// Provider is the result of Init.
// Provider 是 Init 的返回结果。
type Provider struct {
	Tracer   trace.Tracer
	Enabled  bool
	Shutdown ShutdownFunc
}

// Init installs the global tracer provider and propagator. When telemetry is
// disabled a noop tracer is returned and nothing global is touched.
// If the exporter cannot be created, Init falls back to noop and logs a warning.
// Init 安装全局追踪提供者和传播器。禁用时返回空操作追踪器，不修改全局状态。
// 导出器创建失败时回退为空操作并记录警告。
func Init(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}

	if !cfg.Enabled {
		logger.Info("OpenTelemetry tracing is disabled / OpenTelemetry 追踪已禁用")
		return noopProvider()
	}

	otel.SetTextMapPropagator(newPropagator())

	tp, err := newTracerProvider(ctx, cfg)
	if err != nil {
		logger.Warn("failed to init trace provider, using noop tracer / 初始化追踪提供者失败，使用空操作追踪器", zap.Error(err))
		return noopProvider()
	}
	otel.SetTracerProvider(tp)

	logger.Info("OpenTelemetry tracing initialized / OpenTelemetry 追踪已初始化",
		zap.String("endpoint", cfg.Endpoint),
		zap.Float64("sample_ratio", cfg.SampleRatio),
	)
	return &Provider{
		Tracer:   tp.Tracer(InstrumentationName),
		Enabled:  true,
		Shutdown: tp.Shutdown,
	}
}

func noopProvider() *Provider {
	return &Provider{
		Tracer:   noop.NewTracerProvider().Tracer("noop"),
		Shutdown: func(context.Context) error { return nil },
	}
}

func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

func newTracerProvider(ctx context.Context, cfg config.TelemetryConfig) (*sdktrace.TracerProvider, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("telemetry endpoint is empty / 遥测地址为空")
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = config.DefaultServiceName
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(cfg.SampleRatio)))),
	), nil
}

// sampleRatio clamps r into [0, 1]; zero means sample everything.
func sampleRatio(r float64) float64 {
	switch {
	case r <= 0 || r > 1:
		return 1
	default:
		return r
	}
}
