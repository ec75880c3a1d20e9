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

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/seatunnel/procwatch/internal/sampler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDrainer struct {
	mu      sync.Mutex
	entries []sampler.Entry
}

func (d *fakeDrainer) push(e ...sampler.Entry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, e...)
}

func (d *fakeDrainer) Drain() []sampler.Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.entries
	d.entries = nil
	return out
}

type failingSink struct{}

func (failingSink) Write(context.Context, []sampler.Entry) error { return errors.New("boom") }

func (failingSink) Close() error { return nil }

// TestExporter_Flush tests a single drain into the sink
// TestExporter_Flush 测试单次导出
func TestExporter_Flush(t *testing.T) {
	src := &fakeDrainer{}
	sink := NewMemorySink()
	x := NewExporter(src, sink, time.Hour, nil)

	assert.Equal(t, 0, x.Flush(context.Background()))

	src.push(systemEntry("r", baseTime), processEntry("r", "p", "1", baseTime))
	assert.Equal(t, 2, x.Flush(context.Background()))
	assert.Len(t, sink.Entries(), 2)
	assert.Empty(t, src.Drain())
	assert.Equal(t, ExporterStats{Written: 2, Flushes: 1}, x.Stats())
}

// TestExporter_DropsOnError tests that failed writes are not retried
// TestExporter_DropsOnError 测试写入失败时不重试
func TestExporter_DropsOnError(t *testing.T) {
	src := &fakeDrainer{}
	x := NewExporter(src, failingSink{}, time.Hour, nil)

	src.push(systemEntry("r", baseTime))
	assert.Equal(t, 0, x.Flush(context.Background()))
	assert.Empty(t, src.Drain())
	assert.Equal(t, ExporterStats{Dropped: 1, Flushes: 1}, x.Stats())
}

// TestExporter_Run tests periodic export and the final flush on cancel
// TestExporter_Run 测试周期导出以及取消时的最后一次导出
func TestExporter_Run(t *testing.T) {
	src := &fakeDrainer{}
	sink := NewMemorySink()
	x := NewExporter(src, sink, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		x.Run(ctx)
		close(done)
	}()

	src.push(systemEntry("r", baseTime))
	require.Eventually(t, func() bool { return len(sink.Entries()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	src.push(systemEntry("r", baseTime.Add(time.Minute)))
	// Nothing runs after Run returns.
	assert.Len(t, sink.Entries(), 1)

	ctx2, cancel2 := context.WithCancel(context.Background())
	cancel2()
	x.Run(ctx2)
	assert.Len(t, sink.Entries(), 2, "final flush on an already-cancelled context")
}
