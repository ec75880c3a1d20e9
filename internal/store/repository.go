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
	"time"

	"github.com/seatunnel/procwatch/internal/sampler"
	"gorm.io/gorm"
)

// Repository provides data access for ProcessSample rows.
// Repository 提供 ProcessSample 数据行的访问操作。
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository instance.
// NewRepository 创建一个新的 Repository 实例。
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts samples in batches of batchSize (all at once if <= 0).
// Create 按 batchSize 分批插入采样行（<= 0 时一次插入）。
func (r *Repository) Create(ctx context.Context, samples []ProcessSample, batchSize int) error {
	if len(samples) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = len(samples)
	}
	return r.db.WithContext(ctx).CreateInBatches(samples, batchSize).Error
}

// List retrieves samples matching filter, oldest first, with the total count.
// List 按过滤条件获取采样行（按时间升序）及总数。
func (r *Repository) List(ctx context.Context, filter *SampleFilter) ([]*ProcessSample, int64, error) {
	query := r.db.WithContext(ctx).Model(&ProcessSample{})

	if filter != nil {
		if filter.Kind != "" && filter.Kind != string(sampler.KindProcess) && filter.Kind != string(sampler.KindSystem) {
			return nil, 0, ErrInvalidKind
		}
		if filter.RunID != "" {
			query = query.Where("run_id = ?", filter.RunID)
		}
		if filter.Kind != "" {
			query = query.Where("kind = ?", filter.Kind)
		}
		if filter.Name != "" {
			query = query.Where("name = ?", filter.Name)
		}
		if filter.Host != "" {
			query = query.Where("host = ?", filter.Host)
		}
		if filter.StartTime != nil {
			query = query.Where("sampled_at >= ?", *filter.StartTime)
		}
		if filter.EndTime != nil {
			query = query.Where("sampled_at <= ?", *filter.EndTime)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter != nil && filter.PageSize > 0 {
		offset := 0
		if filter.Page > 0 {
			offset = (filter.Page - 1) * filter.PageSize
		}
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var samples []*ProcessSample
	if err := query.Order("sampled_at ASC, id ASC").Find(&samples).Error; err != nil {
		return nil, 0, err
	}
	return samples, total, nil
}

// DeleteBefore removes samples taken before t and returns how many went.
// DeleteBefore 删除 t 之前的采样行并返回删除数量。
func (r *Repository) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("sampled_at < ?", t).Delete(&ProcessSample{})
	return res.RowsAffected, res.Error
}
