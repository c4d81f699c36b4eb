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

package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightscan/flightscan/internal/models"
	"github.com/flightscan/flightscan/internal/patterns"
)

func newTestClassifier() *Classifier {
	return New(patterns.Default(), nil)
}

func TestDecide(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name     string
		subject  string
		from     string
		accepted bool
		reason   string
	}{
		{
			name:     "hotel exclusion beats embedded flight number",
			subject:  "Your hotel reservation VJ1234",
			from:     "noreply@booking.com",
			accepted: false,
			reason:   ReasonExcluded,
		},
		{
			name:     "exclusion beats airline sender",
			subject:  "AirAsia newsletter: fly for less",
			from:     "news@airasia.com",
			accepted: false,
			reason:   ReasonExcluded,
		},
		{
			name:     "airline sender domain",
			subject:  "Thanks for flying with us",
			from:     "United <notifications@united.com>",
			accepted: true,
			reason:   ReasonAirlineSender,
		},
		{
			name:     "strong subject indicator",
			subject:  "Your E-Ticket receipt",
			from:     "agent@travel.example",
			accepted: true,
			reason:   ReasonStrongIndicator,
		},
		{
			name:     "flight number in subject",
			subject:  "Reminder: SQ 321 changed to SQ321 tomorrow",
			from:     "someone@example.com",
			accepted: true,
			reason:   ReasonFlightNumber,
		},
		{
			name:     "flight number outside allow-list still passes the gate",
			subject:  "BA0117 London to New York",
			from:     "someone@example.com",
			accepted: true,
			reason:   ReasonFlightNumber,
		},
		{
			name:     "flight number at end of subject",
			subject:  "Trip update QF0001",
			from:     "someone@example.com",
			accepted: true,
			reason:   ReasonFlightNumber,
		},
		{
			name:     "lower-case flight number does not count",
			subject:  "ticket sq321",
			from:     "someone@example.com",
			accepted: false,
			reason:   ReasonNoSignal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := c.Decide(tt.subject, "", tt.from)
			assert.Equal(t, tt.accepted, d.Accepted)
			assert.Equal(t, tt.reason, d.Reason)
			assert.Equal(t, tt.accepted, c.IsPotentialFlightEmail(tt.subject, "", tt.from))
		})
	}
}

func TestExtractBookingDetails_FullConfidenceIsCapped(t *testing.T) {
	c := newTestClassifier()

	body := "Booking ref XK42QZ\nYour flight VJ1234 departs at 10:00. Check-in flight VJ1234 opens early.\nboarding flight"
	got := c.ExtractBookingDetails("Trip details", body)

	require.NotNil(t, got)
	assert.Equal(t, "XK42QZ", got.ConfirmationCode)
	assert.Equal(t, []string{"VJ1234", "VJ1234"}, got.FlightNumbers)
	assert.InDelta(t, 1.0, got.Confidence, 1e-9)
	assert.LessOrEqual(t, got.Confidence, 1.0)
}

func TestExtractBookingDetails_FlightWithContextOnly(t *testing.T) {
	c := newTestClassifier()

	got := c.ExtractBookingDetails("Upcoming trip", "Your upcoming flight MH370 is on time.")

	require.NotNil(t, got)
	assert.Empty(t, got.ConfirmationCode)
	assert.InDelta(t, 0.6, got.Confidence, 1e-9)
}

func TestExtractBookingDetails_Scoring(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name string
		body string
		want float64 // 0 means no match
	}{
		{"code only", "Order reference A1B2C3", 0},
		{"flight without context", "MH370", 0},
		{"context on another line", "your flight\nMH370", 0},
		{"flight inside longer token", "XMH370 your flight", 0},
		{"code and flight without context", "A1B2C3 MH370", 0.8},
		{"flight number also reads as a code", "VJ1234", 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.ExtractBookingDetails("Note", tt.body)
			if tt.want == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, tt.want, got.Confidence, 1e-9)
		})
	}
}

func TestExtractBookingDetails_ContextTooFar(t *testing.T) {
	c := newTestClassifier()

	padding := strings.Repeat(".", 64)
	assert.Nil(t, c.ExtractBookingDetails("", "your flight "+padding+" MH370"))
	assert.NotNil(t, c.ExtractBookingDetails("", "your flight "+padding[:40]+" MH370"))
}

func TestValidateConfirmationCode(t *testing.T) {
	c := newTestClassifier()

	assert.True(t, c.ValidateConfirmationCode("ABC123"))
	assert.True(t, c.ValidateConfirmationCode("1A2B3C"))
	assert.False(t, c.ValidateConfirmationCode("ABCDEF"))
	assert.False(t, c.ValidateConfirmationCode("123456"))
	assert.False(t, c.ValidateConfirmationCode("ABC12"))
	assert.False(t, c.ValidateConfirmationCode("abc123"))
}

func TestValidateFlightNumber(t *testing.T) {
	c := newTestClassifier()

	assert.True(t, c.ValidateFlightNumber("VJ1234"))
	assert.True(t, c.ValidateFlightNumber("CX888"))
	assert.False(t, c.ValidateFlightNumber("ZZ1234"))
	assert.False(t, c.ValidateFlightNumber("VJ12"))
	assert.False(t, c.ValidateFlightNumber("VJ12345"))
}

func TestScreen(t *testing.T) {
	c := newTestClassifier()

	excluded := c.Screen(models.RawEmail{
		ID:      "m1",
		Subject: "Your hotel reservation",
		From:    "noreply@booking.com",
		Body:    "Your flight VJ1234 code XK42QZ",
	})
	assert.False(t, excluded.Accepted())
	assert.Nil(t, excluded.Booking)

	// The gate rejects, so the deep match never runs even though the body
	// would score.
	ungated := c.Screen(models.RawEmail{
		ID:      "m2",
		Subject: "Trip",
		From:    "friend@example.com",
		Body:    "Code XK42QZ for your flight VJ1234",
	})
	assert.False(t, ungated.Accepted())
	assert.Nil(t, ungated.Booking)

	accepted := c.Screen(models.RawEmail{
		ID:      "m3",
		Subject: "Your flight confirmation",
		From:    "friend@example.com",
		Body:    "Code XK42QZ for your flight VJ1234",
	})
	assert.True(t, accepted.Accepted())
	require.NotNil(t, accepted.Booking)
	assert.Equal(t, "XK42QZ", accepted.Booking.ConfirmationCode)

	// Gate passes on a strong indicator but there is nothing structural.
	thin := c.Screen(models.RawEmail{
		ID:      "m4",
		Subject: "Your itinerary",
		Body:    "See you soon",
	})
	assert.True(t, thin.Decision.Accepted)
	assert.False(t, thin.Accepted())
}
