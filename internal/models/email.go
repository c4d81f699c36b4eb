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

// Package models defines the data structures shared across the scanner:
// the raw emails pulled from a mailbox, the flight records extracted from
// them, and the envelopes they are persisted in.
package models

// RawEmail is a single mailbox message reduced to the fields the pipeline
// reads. Body is decoded plain text; HTML-only messages are stripped to text
// by the mailbox source before they get here.
type RawEmail struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	Date    string `json:"date"`
	Body    string `json:"body"`

	// BookingDetails is attached by fetch-time screening and is absent on
	// emails stored without screening.
	BookingDetails *BookingDetails `json:"booking_details,omitempty"`
}

// BookingDetails records the deep-match evidence that made an email worth
// storing.
type BookingDetails struct {
	ConfirmationCode string   `json:"confirmation_code"`
	FlightNumbers    []string `json:"flight_numbers"`
	Confidence       float64  `json:"confidence"`
}

// EmailFileMetadata describes a stored batch of raw emails.
type EmailFileMetadata struct {
	FetchDate  string `json:"fetch_date"`
	Year       int    `json:"year"`
	EmailCount int    `json:"email_count"`
}

// EmailFile is the on-disk envelope for a batch of raw emails.
type EmailFile struct {
	Metadata EmailFileMetadata `json:"metadata"`
	Emails   []RawEmail        `json:"emails"`
}
