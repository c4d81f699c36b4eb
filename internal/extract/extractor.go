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

// Package extract turns a raw email into a FlightRecord using deterministic
// parsers: a table of airline-specific parsers keyed by detected airline,
// and a multi-locale generic parser used when no specialised parser applies
// or the specialised one finds nothing.
package extract

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/flightscan/flightscan/internal/models"
	"github.com/flightscan/flightscan/internal/patterns"
)

// ParseFunc is an airline-specific parser. It returns false when the email
// does not carry enough structure for the parser to produce a record.
type ParseFunc func(lib *patterns.Library, email models.RawEmail) (models.FlightRecord, bool)

type airlineParser struct {
	airline string
	parse   ParseFunc
}

// Extractor runs airline detection followed by the matching parser.
type Extractor struct {
	lib     *patterns.Library
	parsers []airlineParser
	logger  *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithParser registers an additional airline-specific parser. Parsers
// registered later take precedence over earlier ones for the same airline.
func WithParser(airline string, fn ParseFunc) Option {
	return func(e *Extractor) {
		e.parsers = append([]airlineParser{{airline: airline, parse: fn}}, e.parsers...)
	}
}

// WithLogger sets the logger used for parse diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// New creates an Extractor with the built-in VietJet Air parser.
func New(lib *patterns.Library, opts ...Option) *Extractor {
	e := &Extractor{
		lib: lib,
		parsers: []airlineParser{
			{airline: "VietJet Air", parse: parseVietJet},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DetectAirline identifies the airline by keyword over subject and body,
// then by sender domain, defaulting to models.UnknownAirline.
func (e *Extractor) DetectAirline(subject, body, from string) string {
	text := strings.ToLower(subject + " " + body)
	if airline, ok := e.lib.AirlineByKeyword(text); ok {
		return airline
	}
	if airline, ok := e.lib.AirlineByDomain(strings.ToLower(from)); ok {
		return airline
	}
	return models.UnknownAirline
}

// Parse extracts a flight record from the email. The specialised parser for
// the detected airline runs first; the generic parser runs when there is
// none or it finds nothing. The second result is false when neither parser
// produced a record.
func (e *Extractor) Parse(email models.RawEmail) (models.FlightRecord, bool) {
	airline := e.DetectAirline(email.Subject, email.Body, email.From)

	if p, ok := e.parserFor(airline); ok {
		if rec, ok := p(e.lib, email); ok {
			rec.Airline = airline
			e.logger.Debug("specialised parser matched",
				"message_id", email.ID, "airline", airline, "flight_number", rec.FlightNumber)
			return rec, true
		}
		e.logger.Debug("specialised parser found nothing, trying generic",
			"message_id", email.ID, "airline", airline)
	}

	rec, ok := parseGeneric(e.lib, email)
	if !ok {
		return models.FlightRecord{}, false
	}
	rec.Airline = airline
	return rec, true
}

func (e *Extractor) parserFor(airline string) (ParseFunc, bool) {
	for _, p := range e.parsers {
		if p.airline == airline {
			return p.parse, true
		}
	}
	return nil, false
}

// firstGroups returns the capture groups of the first pattern that matches.
func firstGroups(res []*regexp.Regexp, text string) []string {
	for _, re := range res {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1:]
		}
	}
	return nil
}

// compact removes all whitespace, turning "VJ 1234" into "VJ1234".
func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
