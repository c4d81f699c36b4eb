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

package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/flightscan/flightscan/internal/models"
	"github.com/flightscan/flightscan/internal/patterns"
)

// parseGeneric covers English, Spanish, and Portuguese phrasing over body
// and subject. A record needs a flight number and two distinct airports.
// Departure time is not inferred from free text.
func parseGeneric(lib *patterns.Library, email models.RawEmail) (models.FlightRecord, bool) {
	p := lib.Generic
	text := email.Body + " " + email.Subject

	flight := genericFlightNumber(p.Flight, text)
	if flight == "" {
		return models.FlightRecord{}, false
	}

	from, to, ok := genericAirports(p.Airports, patterns.MaskLongUppercaseRuns(text))
	if !ok {
		return models.FlightRecord{}, false
	}

	rec := models.FlightRecord{
		FlightNumber:     flight,
		DepartureAirport: from,
		ArrivalAirport:   to,
	}
	if c := firstGroups(p.Confirmation, text); c != nil {
		rec.ConfirmationCode = c[0]
	}
	return rec, true
}

// genericAirports takes the first match of each pattern in order and keeps
// the first pair of distinct codes.
func genericAirports(res []*regexp.Regexp, text string) (from, to string, ok bool) {
	for _, re := range res {
		m := re.FindStringSubmatch(text)
		if m == nil || m[1] == m[2] {
			continue
		}
		return m[1], m[2], true
	}
	return "", "", false
}

// genericFlightNumber tries each pattern's first match in order and keeps
// the first candidate that contains a letter.
func genericFlightNumber(res []*regexp.Regexp, text string) string {
	for _, re := range res {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		candidate := compact(m[1])
		if strings.IndexFunc(candidate, unicode.IsLetter) >= 0 {
			return candidate
		}
	}
	return ""
}
