// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dedup removes repeats at both ends of the pipeline: message IDs
// already fetched from a mailbox, and flight records that describe the same
// flight leg.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long a fetched message ID is remembered. It covers
	// the default one-year search window with a margin.
	DefaultTTL = 400 * 24 * time.Hour

	keyPrefix = "flightscan:seen:"
)

// SeenFilter tracks which message IDs have already been fetched.
type SeenFilter interface {
	// IsNew reports whether id has not been seen before and marks it seen.
	IsNew(ctx context.Context, id string) (bool, error)
}

// RedisFilter is a SeenFilter backed by Redis keys with a TTL.
type RedisFilter struct {
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewRedisFilter creates a filter whose keys are scoped to namespace,
// normally the mailbox account, so two accounts never shadow each other.
func NewRedisFilter(rdb *redis.Client, namespace string, ttl time.Duration) *RedisFilter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisFilter{rdb: rdb, ttl: ttl, namespace: namespace}
}

// IsNew marks id as seen with SETNX and reports whether it was unset before.
func (f *RedisFilter) IsNew(ctx context.Context, id string) (bool, error) {
	key := keyPrefix + f.namespace + ":" + id

	set, err := f.rdb.SetNX(ctx, key, 1, f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("seen SETNX: %w", err)
	}
	return set, nil
}

// MemoryFilter is a process-local SeenFilter, used when no Redis is
// configured. It forgets everything on exit.
type MemoryFilter struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryFilter creates an empty MemoryFilter.
func NewMemoryFilter() *MemoryFilter {
	return &MemoryFilter{seen: make(map[string]struct{})}
}

// IsNew reports whether id is new and records it.
func (f *MemoryFilter) IsNew(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.seen[id]; ok {
		return false, nil
	}
	f.seen[id] = struct{}{}
	return true, nil
}
