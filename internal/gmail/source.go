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

// Package gmail lists and fetches messages from a Gmail mailbox and turns
// them into RawEmail records. Calls are paced by a rate limiter and guarded
// by a circuit breaker so a failing API stops a long fetch early.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/flightscan/flightscan/internal/models"
)

const (
	// pageSize is the Gmail list page size; the API caps it at 500.
	pageSize = 100

	defaultRequestsPerSecond = 5
)

// SourceConfig holds the dependencies for a Source.
type SourceConfig struct {
	// HTTPClient must carry OAuth credentials for the mailbox.
	HTTPClient *http.Client
	// Endpoint overrides the API base URL (tests).
	Endpoint string
	// UserID defaults to "me".
	UserID            string
	RequestsPerSecond float64
	Logger            *slog.Logger
}

// Source is a Gmail-backed mailbox.
type Source struct {
	svc     *gmailapi.Service
	userID  string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewSource creates a Source.
func NewSource(ctx context.Context, cfg SourceConfig) (*Source, error) {
	opts := []option.ClientOption{option.WithHTTPClient(cfg.HTTPClient)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userID := cfg.UserID
	if userID == "" {
		userID = "me"
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isServerError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &Source{
		svc:     svc,
		userID:  userID,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		breaker: breaker,
		logger:  logger,
	}, nil
}

// Search returns message IDs matching query, following page tokens until
// the listing ends or maxResults IDs are collected (0 means no limit).
func (s *Source) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	var (
		ids       []string
		pageToken string
		page      int
	)
	for {
		size := int64(pageSize)
		if maxResults > 0 {
			size = int64(min(pageSize, maxResults-len(ids)))
		}

		call := s.svc.Users.Messages.List(s.userID).Q(query).MaxResults(size).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var resp *gmailapi.ListMessagesResponse
		err := s.do(ctx, func() error {
			var err error
			resp, err = call.Do()
			return err
		})
		if err != nil {
			return ids, fmt.Errorf("list messages page %d: %w", page, err)
		}

		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		page++
		s.logger.Debug("listed message page", "page", page, "count", len(resp.Messages), "total", len(ids))

		if maxResults > 0 && len(ids) >= maxResults {
			return ids[:maxResults], nil
		}
		if resp.NextPageToken == "" {
			return ids, nil
		}
		pageToken = resp.NextPageToken
	}
}

// GetMessage fetches and parses one message. It returns nil, nil when the
// message no longer exists or carries no readable body.
func (s *Source) GetMessage(ctx context.Context, id string) (*models.RawEmail, error) {
	var msg *gmailapi.Message
	err := s.do(ctx, func() error {
		var err error
		msg, err = s.svc.Users.Messages.Get(s.userID, id).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			s.logger.Warn("message not found (may have been deleted)", "message_id", id)
			return nil, nil
		}
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}

	email, ok := parseMessage(msg)
	if !ok {
		s.logger.Debug("skipping message without readable body", "message_id", id)
		return nil, nil
	}
	return &email, nil
}

// do waits for the limiter and runs fn through the circuit breaker.
func (s *Source) do(ctx context.Context, fn func() error) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

func isServerError(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return true
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
}
