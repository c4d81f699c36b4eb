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
	"fmt"

	"github.com/flightscan/flightscan/internal/models"
)

// FormatFlightDetails renders a record for console output.
func FormatFlightDetails(r models.FlightRecord) string {
	return fmt.Sprintf("Flight: %s\nAirline: %s\nFrom: %s\nTo: %s\nDeparture: %s\nConfirmation: %s",
		r.FlightNumber,
		r.Airline,
		r.DepartureAirport,
		r.ArrivalAirport,
		r.DepartureDatetime,
		r.ConfirmationCode,
	)
}
