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
	"github.com/flightscan/flightscan/internal/models"
	"github.com/flightscan/flightscan/internal/patterns"
)

// parseVietJet handles VietJet Air confirmations. The reservation code is
// searched in subject and body; everything else in the body only. VietJet
// emails carry no arrival time the parser can rely on, so ArrivalDatetime
// stays empty.
func parseVietJet(lib *patterns.Library, email models.RawEmail) (models.FlightRecord, bool) {
	p := lib.VietJet
	var rec models.FlightRecord

	if g := firstGroups(p.Reservation, email.Subject+" "+email.Body); g != nil {
		rec.ConfirmationCode = g[0]
	}
	if g := firstGroups(p.Flight, email.Body); g != nil {
		rec.FlightNumber = compact(g[0])
	}
	if g := firstGroups(p.Airports, email.Body); g != nil {
		rec.DepartureAirport, rec.ArrivalAirport = g[0], g[1]
	}
	if g := firstGroups(p.Date, email.Body); g != nil {
		rec.DepartureDatetime = g[0]
	}

	if rec.FlightNumber == "" || rec.DepartureAirport == "" || rec.ArrivalAirport == "" {
		return models.FlightRecord{}, false
	}
	return rec, true
}
