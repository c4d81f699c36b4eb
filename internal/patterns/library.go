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

// Package patterns holds the immutable pattern library shared by the
// classifier and the field extractor: compiled regular expressions,
// IATA allow-lists, and the ordered airline keyword and domain tables.
//
// A Library is built once with Default and passed by pointer. Nothing in it
// is mutated after construction; compiled regexps are safe for concurrent use.
package patterns

import (
	"regexp"
	"strings"
)

// AirlineKeywords maps an airline name to the lower-case phrases that
// identify it in subject or body text.
type AirlineKeywords struct {
	Airline  string
	Keywords []string
}

// AirlineDomain maps a sender domain to an airline name.
type AirlineDomain struct {
	Domain  string
	Airline string
}

// Library is the full set of patterns and tables. Regexp fields are exported
// for the extractor's parsers; tables are reached through lookup methods so
// callers cannot reorder or grow them.
type Library struct {
	// Deep-match tokenisation.
	UpperAlnumRun     *regexp.Regexp
	FlightNumberShape *regexp.Regexp
	FlightWord        *regexp.Regexp

	// Candidate gate.
	SubjectFlightNumber *regexp.Regexp

	VietJet VietJetPatterns
	Generic GenericPatterns

	airlineCodes     map[string]struct{}
	senderDomains    []string
	exclusions       []string
	strongIndicators []string
	airlineKeywords  []AirlineKeywords
	airlineDomains   []AirlineDomain
}

// VietJetPatterns are the ordered fallbacks used by the VietJet Air parser.
// Within each slice the first matching pattern wins.
type VietJetPatterns struct {
	Reservation []*regexp.Regexp
	Flight      []*regexp.Regexp
	Airports    []*regexp.Regexp
	Date        []*regexp.Regexp
}

// GenericPatterns are the multi-locale fallbacks used by the generic parser.
// Airport patterns must be applied to text passed through MaskLongUppercaseRuns.
type GenericPatterns struct {
	Flight       []*regexp.Regexp
	Airports     []*regexp.Regexp
	Confirmation []*regexp.Regexp
}

// iataToken captures a three-letter upper-case code. Case-sensitive even
// inside (?i) patterns.
const iataToken = `(?-i:([A-Z]{3}))`

// Default builds the library used in production.
func Default() *Library {
	lib := &Library{
		UpperAlnumRun:       regexp.MustCompile(`[A-Z0-9]+`),
		FlightNumberShape:   regexp.MustCompile(`^([A-Z]{2})(\d{3,4})$`),
		FlightWord:          regexp.MustCompile(`(?i)(?:your|my|the|upcoming|scheduled|booked|confirmed|check[\s-]*in|boarding)\s+flight`),
		SubjectFlightNumber: regexp.MustCompile(`\b[A-Z]{2}\d{3,4}\b`),

		VietJet: VietJetPatterns{
			Reservation: compileAll(
				`(?i)Reservation\s*#?\s*([A-Z0-9]+)`,
				`(?i)Booking\s*(?:number|#)?\s*([A-Z0-9]+)`,
			),
			Flight: compileAll(
				`Flight\s*(?:No\.|Number)?\s*([A-Z]{2}\s*\d{3,4})`,
				`([A-Z]{2}\s*\d{3,4})`,
			),
			Airports: compileAll(
				`(?i)(?:From|Departure):\s*([A-Z]{3})\s+(?:To|Arrival):\s*([A-Z]{3})`,
				`(?i)([A-Z]{3})\s*(?:to|->|-)\s*([A-Z]{3})`,
				`(?i)([A-Z]{3})[^A-Z]{1,20}([A-Z]{3})`,
			),
			Date: compileAll(
				`(?:Date|Departure):\s*(\d{1,2}\s+[A-Za-z]+\s+\d{4})`,
				`(\d{1,2}\s+[A-Za-z]+\s+\d{4})`,
				`(\d{2}/\d{2}/\d{4})`,
			),
		},

		Generic: GenericPatterns{
			Flight: compileAll(
				`(?i)(?:flight|flight\s+number|voo|n[o0]?\s*de\s*voo|numero\s*do\s*voo|`+
					`vuelo|numero\s*de\s*vuelo|n[o0]\s*de\s*vuelo)\s*[:#]?\s*`+
					`((?-i:[A-Z0-9]{2,3})\s*\d{1,4})`,
				`(?i)(?:flight|voo|vuelo)\s*[:#]?\s*((?-i:[A-Z0-9]{2,3})\s*\d{1,4})`,
				`(?i)\b((?-i:[A-Z0-9]{2,3})\s*\d{1,4})\b\s*(?:to|->|-)`,
			),
			Airports: compileAll(
				`(?i)(?:from|de|desde|origem|origen|departure|salida)\s*[:\-]?\s*`+
					`(?:[^\n\r]{0,50}?)\(?\s*`+iataToken+`\s*\)?\s*`+
					`(?:to|para|ate|a|hasta|destino|arrival|chegada|llegada)\s*[:\-]?\s*`+
					`(?:[^\n\r]{0,50}?)\(?\s*`+iataToken+`\s*\)?`,
				`(?i)\(?\s*`+iataToken+`\s*\)?\s*(?:to|para|a|hasta|->|-)\s*\(?\s*`+iataToken+`\s*\)?`,
				`(?i)`+iataToken+`\s*(?:to|->|-)\s*`+iataToken,
			),
			Confirmation: compileAll(
				`(?i)(?:confirmation|confirmacion|confirmacao|`+
					`booking|reserva|reservacion|reference|referencia|`+
					`pnr|reservation|localizador|codigo\s+de\s+reserva|`+
					`codigo\s+de\s+confirmacion)\s*(?:code|number|#)?\s*[:# ]\s*((?-i:[A-Z0-9]{5,8}))`,
				`#\s*([A-Z0-9]{5,8})`,
			),
		},

		airlineCodes:     toSet(defaultAirlineCodes),
		senderDomains:    defaultSenderDomains,
		exclusions:       defaultExclusions,
		strongIndicators: defaultStrongIndicators,
		airlineKeywords:  defaultAirlineKeywords,
		airlineDomains:   defaultAirlineDomains,
	}
	return lib
}

// IsAirlineCode reports whether code is a known two-character IATA airline code.
func (l *Library) IsAirlineCode(code string) bool {
	_, ok := l.airlineCodes[code]
	return ok
}

// Exclusion returns the first exclusion term contained in the lower-cased subject.
func (l *Library) Exclusion(subjectLower string) (string, bool) {
	return firstContained(subjectLower, l.exclusions)
}

// StrongIndicator returns the first strong flight indicator contained in the
// lower-cased subject.
func (l *Library) StrongIndicator(subjectLower string) (string, bool) {
	return firstContained(subjectLower, l.strongIndicators)
}

// AirlineSender returns the allow-listed airline domain the sender belongs to.
func (l *Library) AirlineSender(fromLower string) (string, bool) {
	domain := SenderDomain(fromLower)
	for _, d := range l.senderDomains {
		if DomainMatches(domain, d) {
			return d, true
		}
	}
	return "", false
}

// AirlineByKeyword walks the ordered keyword table and returns the first
// airline with a keyword contained in textLower.
func (l *Library) AirlineByKeyword(textLower string) (string, bool) {
	for _, entry := range l.airlineKeywords {
		if _, ok := firstContained(textLower, entry.Keywords); ok {
			return entry.Airline, true
		}
	}
	return "", false
}

// AirlineByDomain walks the ordered domain table and returns the airline for
// the first domain the sender belongs to.
func (l *Library) AirlineByDomain(fromLower string) (string, bool) {
	domain := SenderDomain(fromLower)
	for _, entry := range l.airlineDomains {
		if DomainMatches(domain, entry.Domain) {
			return entry.Airline, true
		}
	}
	return "", false
}

// AirlineKeywordTable returns a copy of the ordered keyword table.
func (l *Library) AirlineKeywordTable() []AirlineKeywords {
	out := make([]AirlineKeywords, len(l.airlineKeywords))
	copy(out, l.airlineKeywords)
	return out
}

// SenderDomain extracts the lower-cased domain of a From header value such
// as "VietJet Air <noreply@vietjetair.com>". Values without an "@" are
// returned trimmed and lower-cased.
func SenderDomain(from string) string {
	from = strings.ToLower(strings.TrimSpace(from))
	at := strings.LastIndex(from, "@")
	if at < 0 {
		return from
	}
	domain := from[at+1:]
	if end := strings.IndexAny(domain, "> \t\"'),;"); end >= 0 {
		domain = domain[:end]
	}
	return domain
}

// DomainMatches reports whether domain is want, a subdomain of want, or
// either of those followed by one two-letter country label (airasia.com.my
// for airasia.com). Matching is on label boundaries.
func DomainMatches(domain, want string) bool {
	if domain == "" || want == "" {
		return false
	}
	if onDomain(domain, want) {
		return true
	}
	dot := strings.LastIndexByte(domain, '.')
	if dot < 0 || !isCountryLabel(domain[dot+1:]) {
		return false
	}
	return onDomain(domain[:dot], want)
}

func onDomain(domain, want string) bool {
	return domain == want || strings.HasSuffix(domain, "."+want)
}

func isCountryLabel(label string) bool {
	return len(label) == 2 && label[0] >= 'a' && label[0] <= 'z' && label[1] >= 'a' && label[1] <= 'z'
}

// MaskLongUppercaseRuns lower-cases every run of four or more upper-case
// ASCII letters. Three-letter codes embedded in longer upper-case words then
// stop matching a case-sensitive [A-Z]{3}, which gives IATA tokens their
// word-boundary discipline without lookaround. Byte offsets are preserved.
func MaskLongUppercaseRuns(text string) string {
	b := []byte(text)
	for i := 0; i < len(b); {
		if !isUpper(b[i]) {
			i++
			continue
		}
		j := i
		for j < len(b) && isUpper(b[j]) {
			j++
		}
		if j-i >= 4 {
			for k := i; k < j; k++ {
				b[k] += 'a' - 'A'
			}
		}
		i = j
	}
	return string(b)
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

func firstContained(s string, terms []string) (string, bool) {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return t, true
		}
	}
	return "", false
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}
