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

package gmail

import (
	"fmt"
	"time"
)

// QueryMode selects how much of the mailbox a search covers.
type QueryMode string

const (
	// QueryStrict limits the search to travel-looking subjects and a few
	// booking senders.
	QueryStrict QueryMode = "strict"
	// QueryRelaxed searches the whole inbox in the date window.
	QueryRelaxed QueryMode = "relaxed"
)

// ParseQueryMode validates a mode name; empty means QueryStrict.
func ParseQueryMode(s string) (QueryMode, error) {
	switch QueryMode(s) {
	case "", QueryStrict:
		return QueryStrict, nil
	case QueryRelaxed:
		return QueryRelaxed, nil
	}
	return "", fmt.Errorf("unknown query mode %q (want strict or relaxed)", s)
}

const strictTerms = `(subject:"flight" OR subject:"booking" OR subject:"itinerary" OR subject:"e-ticket" OR ` +
	`subject:"reservation" OR subject:"travel" OR from:"@vietjetair.com" OR ` +
	`from:"@trip.com" OR from:"@booking.com" OR from:"@cebuair.com")`

// Window returns the search window: start (January 1 of year in loc when
// start is zero) through days later.
func Window(year, days int, start time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	if start.IsZero() {
		start = time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	}
	return start, start.AddDate(0, 0, days)
}

// BuildQuery renders the Gmail search expression for a window.
func BuildQuery(start, end time.Time, mode QueryMode) string {
	window := fmt.Sprintf("after:%d before:%d", start.Unix(), end.Unix())
	if mode == QueryRelaxed {
		return window + " in:inbox"
	}
	return window + " " + strictTerms
}
