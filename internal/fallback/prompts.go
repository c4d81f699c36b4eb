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

package fallback

import (
	"fmt"

	"github.com/flightscan/flightscan/internal/models"
)

// BuildExtractionPrompt renders the user prompt for flight extraction.
func BuildExtractionPrompt(email models.RawEmail, maxBodyChars int) string {
	return "Extract flight details from the email. " +
		"If a field is not present, return null. " +
		"Prefer IATA airport codes and ISO 8601 date/time if possible.\n\n" +
		emailBlock(email, maxBodyChars)
}

// BuildClassificationPrompt renders the user prompt for the itinerary filter.
func BuildClassificationPrompt(email models.RawEmail, maxBodyChars int) string {
	return "Decide if this email is a travel itinerary or contains actionable travel reservation info. " +
		"Return true for flights, boarding passes, check-in notices, ticketing, or reservations with " +
		"dates, cities, airports, or booking codes. Return false for promos, surveys, blogs, loyalty " +
		"marketing, or unrelated travel content.\n\n" +
		emailBlock(email, maxBodyChars)
}

func emailBlock(email models.RawEmail, maxBodyChars int) string {
	return fmt.Sprintf("Subject: %s\nFrom: %s\nDate: %s\nBody:\n%s\n",
		email.Subject, email.From, email.Date, truncate(email.Body, maxBodyChars))
}

var flightSchema = []byte(`{
  "type": "object",
  "properties": {
    "flight_number": {"type": ["string", "null"], "description": "Airline code + flight number"},
    "departure_datetime": {"type": ["string", "null"], "description": "Departure date/time if present"},
    "arrival_datetime": {"type": ["string", "null"], "description": "Arrival date/time if present"},
    "departure_airport": {"type": ["string", "null"], "description": "IATA departure airport code"},
    "arrival_airport": {"type": ["string", "null"], "description": "IATA arrival airport code"},
    "confirmation_code": {"type": ["string", "null"], "description": "Booking/PNR/confirmation code"},
    "airline": {"type": ["string", "null"], "description": "Airline name if present"},
    "confidence": {"type": ["number", "null"], "description": "0-1 confidence"}
  },
  "required": ["flight_number", "departure_datetime", "arrival_datetime", "departure_airport",
               "arrival_airport", "confirmation_code", "airline", "confidence"],
  "additionalProperties": false
}`)

var itinerarySchema = []byte(`{
  "type": "object",
  "properties": {
    "is_itinerary": {"type": "boolean", "description": "True if email is a travel itinerary or reservation"},
    "confidence": {"type": ["number", "null"], "description": "0-1 confidence"},
    "reason": {"type": ["string", "null"], "description": "Short reason for the decision"}
  },
  "required": ["is_itinerary", "confidence", "reason"],
  "additionalProperties": false
}`)
