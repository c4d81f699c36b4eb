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

// Two-character IATA airline codes accepted by the deep booking match.
// Codes with a digit (3K, 5J) are kept for completeness; the two-letter
// flight-number shape never produces them.
var defaultAirlineCodes = []string{
	"CX", "SQ", "MH", "TR", "3K", "5J", "PR", "AK", "FD", "VJ", "QH", "VN", "BL",
	"AA", "DL", "UA", "WN", "B6", "AV", "IB", "TP", "FR", "U2", "CM", "AM", "AR",
	"AD", "G3", "LA", "JJ", "EK", "KL", "LH",
}

// Sender domains that put an email straight through the candidate gate.
var defaultSenderDomains = []string{
	"vietjetair.com",
	"airasia.com",
	"vietnamairlines.com",
	"united.com",
	"delta.com",
	"aa.com",
	"emirates.com",
	"klm.com",
	"lufthansa.com",
}

// Subject terms that reject an email before any other rule runs.
var defaultExclusions = []string{
	"airbnb",
	"booking.com",
	"hotels.com",
	"expedia",
	"agoda",
	"reservation at",
	"hotel",
	"apartment",
	"newsletter",
	"promotion",
}

var defaultStrongIndicators = []string{
	"flight confirmation",
	"booking confirmation",
	"e-ticket",
	"check-in",
	"boarding pass",
	"itinerary",
	"travel confirmation",
	"flight receipt",
}

// Order matters: the first airline with a matching keyword wins.
var defaultAirlineKeywords = []AirlineKeywords{
	{Airline: "VietJet Air", Keywords: []string{"vietjet", "vjet air"}},
	{Airline: "AirAsia", Keywords: []string{"airasia", "air asia"}},
	{Airline: "Vietnam Airlines", Keywords: []string{"vietnam airlines", "vietnamairlines"}},
	{Airline: "Cebu Pacific", Keywords: []string{"cebu pacific", "cebu pacific air"}},
	{Airline: "LATAM Airlines", Keywords: []string{"latam airlines", "latam"}},
	{Airline: "Delta Air Lines", Keywords: []string{"delta air lines", "delta airlines"}},
	{Airline: "United Airlines", Keywords: []string{"united airlines"}},
	{Airline: "American Airlines", Keywords: []string{"american airlines"}},
	{Airline: "Southwest Airlines", Keywords: []string{"southwest airlines"}},
	{Airline: "JetBlue", Keywords: []string{"jetblue", "jet blue"}},
	{Airline: "Avianca", Keywords: []string{"avianca"}},
	{Airline: "Iberia", Keywords: []string{"iberia"}},
	{Airline: "TAP Air Portugal", Keywords: []string{"tap air portugal", "tap portugal"}},
	{Airline: "Ryanair", Keywords: []string{"ryanair"}},
	{Airline: "easyJet", Keywords: []string{"easyjet", "easy jet"}},
	{Airline: "Copa Airlines", Keywords: []string{"copa airlines", "copa air"}},
	{Airline: "AeroMexico", Keywords: []string{"aeromexico"}},
	{Airline: "Aerolineas Argentinas", Keywords: []string{"aerolineas argentinas"}},
	{Airline: "Azul", Keywords: []string{"azul linhas", "azul linhas aereas"}},
	{Airline: "GOL", Keywords: []string{"gol linhas", "gol linhas aereas"}},
}

var defaultAirlineDomains = []AirlineDomain{
	{Domain: "vietjetair.com", Airline: "VietJet Air"},
	{Domain: "airasia.com", Airline: "AirAsia"},
	{Domain: "vietnamairlines.com", Airline: "Vietnam Airlines"},
	{Domain: "cebu-pacific.com", Airline: "Cebu Pacific"},
	{Domain: "cebupacific.com", Airline: "Cebu Pacific"},
	{Domain: "mycebupacific.com", Airline: "Cebu Pacific"},
	{Domain: "latam.com", Airline: "LATAM Airlines"},
	{Domain: "delta.com", Airline: "Delta Air Lines"},
	{Domain: "united.com", Airline: "United Airlines"},
	{Domain: "aa.com", Airline: "American Airlines"},
	{Domain: "southwest.com", Airline: "Southwest Airlines"},
	{Domain: "jetblue.com", Airline: "JetBlue"},
	{Domain: "avianca.com", Airline: "Avianca"},
	{Domain: "iberia.com", Airline: "Iberia"},
	{Domain: "tap.pt", Airline: "TAP Air Portugal"},
	{Domain: "ryanair.com", Airline: "Ryanair"},
	{Domain: "easyjet.com", Airline: "easyJet"},
	{Domain: "copaair.com", Airline: "Copa Airlines"},
	{Domain: "aeromexico.com", Airline: "AeroMexico"},
	{Domain: "aerolineas.com.ar", Airline: "Aerolineas Argentinas"},
	{Domain: "voeazul.com.br", Airline: "Azul"},
	{Domain: "azul.com.br", Airline: "Azul"},
	{Domain: "voegol.com.br", Airline: "GOL"},
	{Domain: "gol.com.br", Airline: "GOL"},
}
