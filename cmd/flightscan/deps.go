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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/term"

	"github.com/flightscan/flightscan/internal/auth"
	"github.com/flightscan/flightscan/internal/dedup"
	"github.com/flightscan/flightscan/internal/discovery"
	"github.com/flightscan/flightscan/internal/gmail"
	"github.com/flightscan/flightscan/internal/pipeline"
	"github.com/flightscan/flightscan/internal/queue"
	"github.com/flightscan/flightscan/internal/storage"
)

// deps holds the connections opened for one command; close releases them.
type deps struct {
	rdb   *redis.Client
	pool  *pgxpool.Pool
	store *storage.FileStore
}

func openDeps(ctx context.Context) (*deps, error) {
	d := &deps{store: storage.NewFileStore(cfg.DataDir)}

	// --- Redis (optional) ---
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		d.rdb = redis.NewClient(opt)
		if err := d.rdb.Ping(ctx).Err(); err != nil {
			d.close()
			return nil, fmt.Errorf("connect to Redis: %w", err)
		}
		slog.Info("connected to Redis")
	}

	// --- Postgres (optional) ---
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("connect to Postgres: %w", err)
		}
		d.pool = pool
		slog.Info("connected to Postgres")
	}
	return d, nil
}

func (d *deps) close() {
	if d.rdb != nil {
		_ = d.rdb.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

// seenFilter shares the processed-message cache in Redis when configured.
func (d *deps) seenFilter(account string) dedup.SeenFilter {
	if d.rdb == nil {
		return dedup.NewMemoryFilter()
	}
	return dedup.NewRedisFilter(d.rdb, account, cfg.SeenTTL)
}

// sinks returns the extra flight destinations beyond the JSON file.
func (d *deps) sinks(ctx context.Context) ([]pipeline.Sink, error) {
	var out []pipeline.Sink
	if d.pool != nil {
		fs, err := storage.NewFlightStore(ctx, d.pool)
		if err != nil {
			return nil, err
		}
		out = append(out, fs)
	}
	if d.rdb != nil && cfg.PublishQueue != "" {
		out = append(out, queue.NewPublisher(d.rdb, cfg.PublishQueue))
	}
	return out, nil
}

func newProvider() (*auth.Provider, error) {
	return auth.NewProvider(auth.ProviderConfig{
		Dir: cfg.CredentialsDir,
		Out: os.Stdout,
	})
}

// resolveAccounts applies --account over the configured include list.
func resolveAccounts(only []string) ([]discovery.Account, error) {
	include := cfg.Accounts
	if len(only) > 0 {
		include = only
	}
	accounts, err := discovery.NewDiscovery(cfg.CredentialsDir).DiscoverAccounts(include, cfg.ExcludeAccounts)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no accounts found: add <name>_credentials.json to %s or set accounts in config", cfg.CredentialsDir)
	}
	return accounts, nil
}

func mailboxFor(ctx context.Context, p *auth.Provider, account string) (*gmail.Source, error) {
	client, err := p.Client(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("authorise %s: %w", account, err)
	}
	return gmail.NewSource(ctx, gmail.SourceConfig{
		HTTPClient:        client,
		RequestsPerSecond: cfg.Gmail.RequestsPerSecond,
	})
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
