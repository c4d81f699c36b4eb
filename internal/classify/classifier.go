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

// Package classify decides whether an email is worth parsing as a flight
// booking. It offers a cheap candidate gate over sender and subject, and a
// deeper content match that scores confirmation codes, flight numbers, and
// flight-context phrases.
package classify

import (
	"log/slog"
	"math"
	"strings"

	"github.com/flightscan/flightscan/internal/models"
	"github.com/flightscan/flightscan/internal/patterns"
)

const (
	codeWeight    = 0.4
	flightWeight  = 0.4
	contextWeight = 0.2

	// AcceptThreshold is the minimum deep-match confidence for a booking.
	AcceptThreshold = 0.6

	confirmationCodeLen = 6
	contextWindow       = 50
)

// Gate reasons reported by Decide.
const (
	ReasonExcluded        = "excluded"
	ReasonAirlineSender   = "airline_sender"
	ReasonStrongIndicator = "strong_indicator"
	ReasonFlightNumber    = "subject_flight_number"
	ReasonNoSignal        = "no_signal"
)

// Decision is the outcome of the candidate gate.
type Decision struct {
	Accepted bool
	Reason   string
	// Term is the exclusion, domain, or indicator that decided the outcome.
	Term string
}

// Screening combines the gate decision with the deep booking match.
type Screening struct {
	Decision Decision
	Booking  *models.BookingDetails
}

// Accepted reports whether the gate passed and the deep match found a booking.
func (s Screening) Accepted() bool {
	return s.Decision.Accepted && s.Booking != nil
}

// Classifier runs the candidate gate and deep match against a pattern library.
type Classifier struct {
	lib    *patterns.Library
	logger *slog.Logger
}

// New creates a Classifier. A nil logger falls back to slog.Default().
func New(lib *patterns.Library, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{lib: lib, logger: logger}
}

// IsPotentialFlightEmail reports whether the email passes the candidate gate.
func (c *Classifier) IsPotentialFlightEmail(subject, body, from string) bool {
	return c.Decide(subject, body, from).Accepted
}

// Decide evaluates the gate rules in order: subject exclusions, airline
// sender domain, strong subject indicators, then anything shaped like a
// flight number in the subject. The airline allow-list is left to the deep
// match. The body is not consulted by the gate.
func (c *Classifier) Decide(subject, body, from string) Decision {
	subjectLower := strings.ToLower(subject)
	fromLower := strings.ToLower(from)

	if term, ok := c.lib.Exclusion(subjectLower); ok {
		return Decision{Reason: ReasonExcluded, Term: term}
	}
	if domain, ok := c.lib.AirlineSender(fromLower); ok {
		return Decision{Accepted: true, Reason: ReasonAirlineSender, Term: domain}
	}
	if term, ok := c.lib.StrongIndicator(subjectLower); ok {
		return Decision{Accepted: true, Reason: ReasonStrongIndicator, Term: term}
	}
	if candidate := c.lib.SubjectFlightNumber.FindString(subject); candidate != "" {
		return Decision{Accepted: true, Reason: ReasonFlightNumber, Term: candidate}
	}
	return Decision{Reason: ReasonNoSignal}
}

// ExtractBookingDetails scans subject and body for six-character
// confirmation codes and allow-listed flight numbers, adding weight when a
// flight number sits near a phrase such as "your flight". It returns nil
// unless the confidence reaches AcceptThreshold.
func (c *Classifier) ExtractBookingDetails(subject, body string) *models.BookingDetails {
	full := subject + "\n" + body

	var (
		code    string
		flights []string
		spans   [][]int
	)
	for _, loc := range c.lib.UpperAlnumRun.FindAllStringIndex(full, -1) {
		token := full[loc[0]:loc[1]]
		if code == "" && c.ValidateConfirmationCode(token) {
			code = token
		}
		if c.ValidateFlightNumber(token) {
			flights = append(flights, token)
			spans = append(spans, loc)
		}
	}

	confidence := 0.0
	if code != "" {
		confidence += codeWeight
	}
	if len(flights) > 0 {
		confidence += flightWeight
		for _, span := range spans {
			if c.hasFlightContext(full, span) {
				confidence += contextWeight
				break
			}
		}
	}
	confidence = math.Min(confidence, 1.0)

	if confidence < AcceptThreshold {
		return nil
	}
	return &models.BookingDetails{
		ConfirmationCode: code,
		FlightNumbers:    flights,
		Confidence:       confidence,
	}
}

// ValidateConfirmationCode accepts six upper-case alphanumerics with at
// least one letter and one digit.
func (c *Classifier) ValidateConfirmationCode(code string) bool {
	if len(code) != confirmationCodeLen {
		return false
	}
	var letter, digit bool
	for i := 0; i < len(code); i++ {
		switch ch := code[i]; {
		case ch >= 'A' && ch <= 'Z':
			letter = true
		case ch >= '0' && ch <= '9':
			digit = true
		default:
			return false
		}
	}
	return letter && digit
}

// ValidateFlightNumber accepts two upper-case letters from the IATA
// allow-list followed by three or four digits.
func (c *Classifier) ValidateFlightNumber(flight string) bool {
	m := c.lib.FlightNumberShape.FindStringSubmatch(flight)
	if m == nil {
		return false
	}
	return c.lib.IsAirlineCode(m[1])
}

// Screen runs the gate and, only for emails it accepts, the deep match.
func (c *Classifier) Screen(email models.RawEmail) Screening {
	decision := c.Decide(email.Subject, email.Body, email.From)
	s := Screening{Decision: decision}
	if decision.Accepted {
		s.Booking = c.ExtractBookingDetails(email.Subject, email.Body)
	}

	c.logger.Debug("email screened",
		"message_id", email.ID,
		"accepted", s.Accepted(),
		"reason", decision.Reason,
		"term", decision.Term,
	)
	return s
}

// hasFlightContext reports whether a flight phrase lies within the context
// window before or after span on the same line.
func (c *Classifier) hasFlightContext(text string, span []int) bool {
	lo := max(0, span[0]-contextWindow-maxPhraseLen)
	hi := min(len(text), span[1]+contextWindow+maxPhraseLen)
	window := text[lo:hi]

	for _, m := range c.lib.FlightWord.FindAllStringIndex(window, -1) {
		start, end := m[0]+lo, m[1]+lo
		switch {
		case end <= span[0]:
			if span[0]-end <= contextWindow && !strings.ContainsAny(text[end:span[0]], "\r\n") {
				return true
			}
		case start >= span[1]:
			if start-span[1] <= contextWindow && !strings.ContainsAny(text[span[1]:start], "\r\n") {
				return true
			}
		}
	}
	return false
}

// maxPhraseLen bounds the length of a FlightWord match so the search window
// can be cut before matching. "check - in flight" with generous spacing
// stays well under it.
const maxPhraseLen = 40
