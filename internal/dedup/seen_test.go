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

package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisFilter_IsNew(t *testing.T) {
	mr, rdb := newTestRedis(t)
	f := NewRedisFilter(rdb, "me@example.com", time.Hour)
	ctx := context.Background()

	isNew, err := f.IsNew(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = f.IsNew(ctx, "msg-1")
	require.NoError(t, err)
	assert.False(t, isNew)

	assert.True(t, mr.Exists("flightscan:seen:me@example.com:msg-1"))
	assert.Equal(t, time.Hour, mr.TTL("flightscan:seen:me@example.com:msg-1"))
}

func TestRedisFilter_NamespacesAreIndependent(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	a := NewRedisFilter(rdb, "a", 0)
	b := NewRedisFilter(rdb, "b", 0)

	isNew, err := a.IsNew(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = b.IsNew(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, isNew)
}

func TestRedisFilter_ErrorWhenRedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	mr.Close()

	_, err := NewRedisFilter(rdb, "a", 0).IsNew(context.Background(), "msg-1")
	assert.Error(t, err)
}

func TestMemoryFilter(t *testing.T) {
	f := NewMemoryFilter()
	ctx := context.Background()

	isNew, _ := f.IsNew(ctx, "x")
	assert.True(t, isNew)
	isNew, _ = f.IsNew(ctx, "x")
	assert.False(t, isNew)
}
