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

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flightscan/flightscan/internal/models"
)

// FlightRow is a flight persisted in Postgres.
type FlightRow struct {
	ID     int64
	Flight models.FlightRecord
	// DepartureDate is the date portion of the departure datetime; part of
	// the unique key.
	DepartureDate string
	FilledFields  int
	RunID         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FlightStore keeps the deduplicated flight history in Postgres, one row per
// (flight number, departure date, departure airport, arrival airport).
type FlightStore struct {
	pool *pgxpool.Pool
}

// NewFlightStore creates a flight store backed by the given Postgres pool.
// It ensures the flights table exists on creation.
func NewFlightStore(ctx context.Context, pool *pgxpool.Pool) (*FlightStore, error) {
	s := &FlightStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure flight schema: %w", err)
	}
	slog.Info("flight store initialised")
	return s, nil
}

func (s *FlightStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS flights (
			id                 BIGSERIAL PRIMARY KEY,
			flight_number      TEXT NOT NULL,
			departure_date     TEXT NOT NULL,
			departure_airport  TEXT NOT NULL DEFAULT '',
			arrival_airport    TEXT NOT NULL DEFAULT '',
			departure_datetime TEXT NOT NULL DEFAULT '',
			arrival_datetime   TEXT NOT NULL DEFAULT '',
			confirmation_code  TEXT NOT NULL DEFAULT '',
			airline            TEXT NOT NULL DEFAULT '',
			filled_fields      INT NOT NULL,
			run_id             TEXT NOT NULL DEFAULT '',
			created_at         TIMESTAMPTZ DEFAULT NOW(),
			updated_at         TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(flight_number, departure_date, departure_airport, arrival_airport)
		);
		CREATE INDEX IF NOT EXISTS idx_flights_departure ON flights(departure_datetime);
	`)
	return err
}

// upsertFlightSQL replaces a stored row only when the incoming record has
// strictly more filled fields.
const upsertFlightSQL = `
	INSERT INTO flights
		(flight_number, departure_date, departure_airport, arrival_airport,
		 departure_datetime, arrival_datetime, confirmation_code, airline,
		 filled_fields, run_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (flight_number, departure_date, departure_airport, arrival_airport) DO UPDATE SET
		departure_datetime = EXCLUDED.departure_datetime,
		arrival_datetime   = EXCLUDED.arrival_datetime,
		confirmation_code  = EXCLUDED.confirmation_code,
		airline            = EXCLUDED.airline,
		filled_fields      = EXCLUDED.filled_fields,
		run_id             = EXCLUDED.run_id,
		updated_at         = NOW()
	WHERE EXCLUDED.filled_fields > flights.filled_fields
`

// Upsert inserts a flight or replaces the stored one when the new record has
// strictly more filled fields. It reports whether a row was written.
func (s *FlightStore) Upsert(ctx context.Context, runID string, f models.FlightRecord) (bool, error) {
	tag, err := s.pool.Exec(ctx, upsertFlightSQL, upsertArgs(runID, f)...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func upsertArgs(runID string, f models.FlightRecord) []any {
	return []any{
		f.FlightNumber, datePart(f.DepartureDatetime), f.DepartureAirport, f.ArrivalAirport,
		f.DepartureDatetime, f.ArrivalDatetime, f.ConfirmationCode, f.Airline,
		f.FilledFields(), runID,
	}
}

// StoreFlights upserts a run's flights. Records without a flight number are
// skipped.
func (s *FlightStore) StoreFlights(ctx context.Context, runID string, flights []models.FlightRecord) error {
	written := 0
	for _, f := range flights {
		if f.FlightNumber == "" {
			continue
		}
		ok, err := s.Upsert(ctx, runID, f)
		if err != nil {
			return fmt.Errorf("upsert flight %s: %w", f.FlightNumber, err)
		}
		if ok {
			written++
		}
	}
	slog.Info("stored flights in postgres", "run_id", runID, "flights", len(flights), "written", written)
	return nil
}

// List returns every stored flight ordered by departure.
func (s *FlightStore) List(ctx context.Context) ([]FlightRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, flight_number, departure_date, departure_airport, arrival_airport,
		       departure_datetime, arrival_datetime, confirmation_code, airline,
		       filled_fields, run_id, created_at, updated_at
		FROM flights
		ORDER BY departure_datetime, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFlights(rows)
}

// Close releases the pool.
func (s *FlightStore) Close() {
	s.pool.Close()
}

func collectFlights(rows pgx.Rows) ([]FlightRow, error) {
	var out []FlightRow
	for rows.Next() {
		var r FlightRow
		if err := rows.Scan(
			&r.ID, &r.Flight.FlightNumber, &r.DepartureDate, &r.Flight.DepartureAirport,
			&r.Flight.ArrivalAirport, &r.Flight.DepartureDatetime, &r.Flight.ArrivalDatetime,
			&r.Flight.ConfirmationCode, &r.Flight.Airline, &r.FilledFields, &r.RunID,
			&r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func datePart(datetime string) string {
	date, _, _ := strings.Cut(datetime, "T")
	return date
}
