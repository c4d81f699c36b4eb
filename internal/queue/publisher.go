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

// Package queue publishes extracted flights to a Redis list so downstream
// consumers (calendar sync, reporting) can pick them up with BRPOP.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/flightscan/flightscan/internal/models"
)

// DefaultQueue is the list flights are pushed to when none is configured.
const DefaultQueue = "flightscan:flights"

// Publisher sends flight records to a Redis list.
type Publisher struct {
	rdb       *redis.Client
	queueName string
	now       func() time.Time
}

// NewPublisher creates a new Redis publisher targeting the specified queue.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	if queueName == "" {
		queueName = DefaultQueue
	}
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
		now:       time.Now,
	}
}

// Message is the JSON document pushed for each flight.
type Message struct {
	ID          string              `json:"id"`
	RunID       string              `json:"run_id"`
	PublishedAt string              `json:"published_at"`
	Flight      models.FlightRecord `json:"flight"`
}

// PublishFlight serialises a flight and LPUSHes it onto the queue. It returns
// the message id.
func (p *Publisher) PublishFlight(ctx context.Context, runID string, f models.FlightRecord) (string, error) {
	msg := Message{
		ID:          uuid.New().String(),
		RunID:       runID,
		PublishedAt: p.now().UTC().Format(time.RFC3339),
		Flight:      f,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal flight message: %w", err)
	}

	// Consumers BRPOP, so LPUSH keeps the list FIFO.
	if err := p.rdb.LPush(ctx, p.queueName, data).Err(); err != nil {
		return "", fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.Debug("published flight to queue",
		"message_id", msg.ID,
		"flight_number", f.FlightNumber,
		"queue", p.queueName,
	)
	return msg.ID, nil
}

// StoreFlights publishes every flight of a run in order.
func (p *Publisher) StoreFlights(ctx context.Context, runID string, flights []models.FlightRecord) error {
	for _, f := range flights {
		if _, err := p.PublishFlight(ctx, runID, f); err != nil {
			return err
		}
	}
	slog.Info("published flights", "run_id", runID, "count", len(flights), "queue", p.queueName)
	return nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
