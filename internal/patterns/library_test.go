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

package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskLongUppercaseRuns(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"De: Sao Paulo (GRU) a (FOR)", "De: Sao Paulo (GRU) a (FOR)"},
		{"LATAM JFK", "latam JFK"},
		{"BOOKING REF ABC123", "booking REF ABC123"},
		{"", ""},
	}
	for _, tt := range tests {
		got := MaskLongUppercaseRuns(tt.in)
		assert.Equal(t, tt.want, got)
		assert.Len(t, got, len(tt.in))
	}
}

func TestSenderDomain(t *testing.T) {
	assert.Equal(t, "vietjetair.com", SenderDomain("VietJet Air <NoReply@VietJetAir.com>"))
	assert.Equal(t, "info.latam.com", SenderDomain("info@info.latam.com"))
	assert.Equal(t, "no sender", SenderDomain(" No Sender "))
}

func TestDomainMatches(t *testing.T) {
	assert.True(t, DomainMatches("aa.com", "aa.com"))
	assert.True(t, DomainMatches("info.aa.com", "aa.com"))
	assert.True(t, DomainMatches("airasia.com.my", "airasia.com"))
	assert.False(t, DomainMatches("panamaa.com", "aa.com"))
	assert.False(t, DomainMatches("", "aa.com"))
	assert.True(t, DomainMatches("mail.airasia.com.my", "airasia.com"))
	assert.False(t, DomainMatches("aa.com.attacker.net", "aa.com"))
	assert.False(t, DomainMatches("aa.com.evil.io", "aa.com"))
	assert.False(t, DomainMatches("x.aa.com.attacker.net", "aa.com"))
}

func TestAirlineByKeyword_FirstEntryWins(t *testing.T) {
	lib := Default()

	airline, ok := lib.AirlineByKeyword("vietjet and airasia codeshare")
	require.True(t, ok)
	assert.Equal(t, "VietJet Air", airline)

	_, ok = lib.AirlineByKeyword("nothing to see")
	assert.False(t, ok)
}

func TestAirlineByDomain(t *testing.T) {
	lib := Default()

	airline, ok := lib.AirlineByDomain("Delta <deltaairlines@o.delta.com>")
	require.True(t, ok)
	assert.Equal(t, "Delta Air Lines", airline)

	airline, ok = lib.AirlineByDomain("reservas@voegol.com.br")
	require.True(t, ok)
	assert.Equal(t, "GOL", airline)
}

func TestExclusionAndIndicator(t *testing.T) {
	lib := Default()

	term, ok := lib.Exclusion("your hotel reservation")
	require.True(t, ok)
	assert.Equal(t, "hotel", term)

	term, ok = lib.StrongIndicator("your boarding pass for tomorrow")
	require.True(t, ok)
	assert.Equal(t, "boarding pass", term)
}

func TestIsAirlineCode(t *testing.T) {
	lib := Default()
	assert.True(t, lib.IsAirlineCode("VJ"))
	assert.False(t, lib.IsAirlineCode("ZZ"))
}

func TestGenericAirportPatterns_RespectTokenBoundaries(t *testing.T) {
	lib := Default()
	text := MaskLongUppercaseRuns("Flight AIRBUS JFK to LAX")

	m := lib.Generic.Airports[2].FindStringSubmatch(text)
	require.NotNil(t, m)
	assert.Equal(t, "JFK", m[1])
	assert.Equal(t, "LAX", m[2])
}

func TestAirlineKeywordTable_ReturnsCopy(t *testing.T) {
	lib := Default()
	table := lib.AirlineKeywordTable()
	table[0].Airline = "changed"

	assert.Equal(t, "VietJet Air", lib.AirlineKeywordTable()[0].Airline)
}
