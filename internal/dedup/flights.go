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
	"slices"
	"strings"

	"github.com/flightscan/flightscan/internal/models"
)

// Key identifies one flight leg: flight number, departure date, and route.
type Key struct {
	FlightNumber     string
	DepartureDate    string
	DepartureAirport string
	ArrivalAirport   string
}

// KeyOf returns the dedup key for r. Records without a flight number or a
// departure datetime have no key and are dropped by Deduplicate.
func KeyOf(r models.FlightRecord) (Key, bool) {
	if r.FlightNumber == "" || r.DepartureDatetime == "" {
		return Key{}, false
	}
	date, _, _ := strings.Cut(r.DepartureDatetime, "T")
	return Key{
		FlightNumber:     r.FlightNumber,
		DepartureDate:    date,
		DepartureAirport: r.DepartureAirport,
		ArrivalAirport:   r.ArrivalAirport,
	}, true
}

// Result is the outcome of Deduplicate.
type Result struct {
	Flights []models.FlightRecord
	// Dropped counts records without a key.
	Dropped int
	// Merged counts records folded into an earlier one with the same key.
	Merged int
}

// Deduplicate keeps one record per Key, preferring the record with strictly
// more non-empty fields; on a tie the first one seen stays. The output is
// sorted by departure datetime, with input order kept among equal values.
// Running it on its own output changes nothing.
func Deduplicate(records []models.FlightRecord) Result {
	var res Result
	index := make(map[Key]int, len(records))
	kept := make([]models.FlightRecord, 0, len(records))

	for _, r := range records {
		key, ok := KeyOf(r)
		if !ok {
			res.Dropped++
			continue
		}
		i, seen := index[key]
		if !seen {
			index[key] = len(kept)
			kept = append(kept, r)
			continue
		}
		res.Merged++
		if r.FilledFields() > kept[i].FilledFields() {
			kept[i] = r
		}
	}

	slices.SortStableFunc(kept, func(a, b models.FlightRecord) int {
		return strings.Compare(a.DepartureDatetime, b.DepartureDatetime)
	})
	res.Flights = kept
	return res
}
