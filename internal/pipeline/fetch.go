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

// Package pipeline orchestrates the two halves of a scan: fetching candidate
// emails from a mailbox into storage, and processing stored emails into a
// deduplicated flight list. Both run strictly sequentially.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flightscan/flightscan/internal/classify"
	"github.com/flightscan/flightscan/internal/dedup"
	"github.com/flightscan/flightscan/internal/gmail"
	"github.com/flightscan/flightscan/internal/models"
)

// MailboxSource lists and fetches messages. A nil email with a nil error
// means the message vanished between listing and fetching.
type MailboxSource interface {
	Search(ctx context.Context, query string, maxResults int) ([]string, error)
	GetMessage(ctx context.Context, id string) (*models.RawEmail, error)
}

// EmailSaver persists a fetched batch and returns where it went.
type EmailSaver interface {
	SaveEmails(emails []models.RawEmail, year int) (string, error)
}

// FetchRequest defines the scope of one mailbox fetch.
type FetchRequest struct {
	Account    string
	Year       int
	Days       int
	Start      time.Time // zero means January 1 of Year
	Mode       gmail.QueryMode
	MaxResults int
	// NoScreen stores every fetched message instead of only confirmed
	// bookings.
	NoScreen bool
}

// FetchResult summarises a completed fetch.
type FetchResult struct {
	Account  string
	Query    string
	Path     string
	Listed   int
	Stored   int
	Skipped  int // already seen
	Rejected int // failed screening
	Errors   int
	Elapsed  time.Duration
}

// FetchRunner pulls candidate emails from a mailbox into storage.
type FetchRunner struct {
	seen       dedup.SeenFilter
	classifier *classify.Classifier
	store      EmailSaver
	location   *time.Location
}

// FetchConfig holds dependencies for the fetch runner.
type FetchConfig struct {
	Seen       dedup.SeenFilter
	Classifier *classify.Classifier
	Store      EmailSaver
	Location   *time.Location
}

// NewFetchRunner creates a fetch runner. A nil Seen filter gets an in-memory
// one.
func NewFetchRunner(cfg FetchConfig) *FetchRunner {
	seen := cfg.Seen
	if seen == nil {
		seen = dedup.NewMemoryFilter()
	}
	return &FetchRunner{
		seen:       seen,
		classifier: cfg.Classifier,
		store:      cfg.Store,
		location:   cfg.Location,
	}
}

// Run searches src for the request's window, screens each new message, and
// saves the accepted ones as one batch. A failed search is returned; a failed
// message fetch is counted and skipped.
func (r *FetchRunner) Run(ctx context.Context, src MailboxSource, req FetchRequest) (*FetchResult, error) {
	start := time.Now()
	from, to := gmail.Window(req.Year, req.Days, req.Start, r.location)
	query := gmail.BuildQuery(from, to, req.Mode)

	slog.Info("starting mailbox fetch",
		"account", req.Account,
		"query", query,
		"max_results", req.MaxResults,
	)

	res := &FetchResult{Account: req.Account, Query: query}

	ids, err := src.Search(ctx, query, req.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("search mailbox %s: %w", req.Account, err)
	}
	res.Listed = len(ids)

	var kept []models.RawEmail
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		isNew, err := r.seen.IsNew(ctx, id)
		if err != nil {
			slog.Warn("seen check failed", "message_id", id, "error", err)
		} else if !isNew {
			res.Skipped++
			continue
		}

		email, err := src.GetMessage(ctx, id)
		if err != nil {
			slog.Warn("fetch message failed", "message_id", id, "error", err)
			res.Errors++
			continue
		}
		if email == nil {
			res.Skipped++
			continue
		}

		if !req.NoScreen {
			s := r.classifier.Screen(*email)
			if !s.Accepted() {
				slog.Debug("email rejected by screening",
					"message_id", id,
					"subject", email.Subject,
					"reason", s.Decision.Reason,
				)
				res.Rejected++
				continue
			}
			email.BookingDetails = s.Booking
			slog.Info("confirmed flight booking",
				"message_id", id,
				"subject", email.Subject,
				"from", email.From,
				"confirmation_code", s.Booking.ConfirmationCode,
				"flight_numbers", s.Booking.FlightNumbers,
				"confidence", s.Booking.Confidence,
			)
		}
		kept = append(kept, *email)
	}

	res.Stored = len(kept)
	if len(kept) > 0 {
		path, err := r.store.SaveEmails(kept, req.Year)
		if err != nil {
			return nil, err
		}
		res.Path = path
	}
	res.Elapsed = time.Since(start)

	slog.Info("mailbox fetch complete",
		"account", req.Account,
		"listed", res.Listed,
		"stored", res.Stored,
		"skipped", res.Skipped,
		"rejected", res.Rejected,
		"errors", res.Errors,
		"elapsed", res.Elapsed,
	)
	return res, nil
}
