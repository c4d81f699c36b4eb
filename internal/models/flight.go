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

package models

// UnknownAirline is the airline name used when detection finds nothing.
const UnknownAirline = "Unknown Airline"

// FlightRecord is the canonical extracted flight. Every field is a string and
// the empty string means unknown. Records are values: a better record for the
// same flight replaces an older one, it never mutates it.
type FlightRecord struct {
	FlightNumber      string `json:"flight_number"`
	DepartureDatetime string `json:"departure_datetime"`
	ArrivalDatetime   string `json:"arrival_datetime"`
	DepartureAirport  string `json:"departure_airport"`
	ArrivalAirport    string `json:"arrival_airport"`
	ConfirmationCode  string `json:"confirmation_code"`
	Airline           string `json:"airline"`
}

// FilledFields counts the non-empty fields of the record.
func (r FlightRecord) FilledFields() int {
	n := 0
	for _, v := range []string{
		r.FlightNumber,
		r.DepartureDatetime,
		r.ArrivalDatetime,
		r.DepartureAirport,
		r.ArrivalAirport,
		r.ConfirmationCode,
		r.Airline,
	} {
		if v != "" {
			n++
		}
	}
	return n
}

// FlightFileMetadata describes a processing run's output.
type FlightFileMetadata struct {
	ProcessDate string `json:"process_date"`
	Year        *int   `json:"year"`
	EmailCount  int    `json:"email_count"`
	FlightCount int    `json:"flight_count"`
	RunID       string `json:"run_id,omitempty"`
}

// FlightFile is the on-disk envelope for a processing run's flights.
type FlightFile struct {
	Metadata FlightFileMetadata `json:"metadata"`
	Flights  []FlightRecord     `json:"flights"`
}
