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

// Package fallback asks a language model for flight details when the
// deterministic parsers find nothing, and for an itinerary yes/no decision
// used to skip obvious non-travel emails before extraction.
package fallback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/flightscan/flightscan/internal/llm"
	"github.com/flightscan/flightscan/internal/models"
)

// ErrLLMFailed wraps any transport, API, or response-shape failure. The
// batch processor treats it as fatal.
var ErrLLMFailed = errors.New("llm request failed")

const (
	extractionSystem     = "You extract structured flight details from travel emails."
	classificationSystem = "You classify travel itinerary emails."
)

// AdapterConfig holds the dependencies for an Adapter.
type AdapterConfig struct {
	Completer llm.Completer
	Model     string
	// MaxBodyChars caps the body sent for extraction; 0 sends it whole.
	MaxBodyChars int
	// FilterModel and FilterMaxBodyChars configure the itinerary
	// classifier. An empty FilterModel reuses Model.
	FilterModel        string
	FilterMaxBodyChars int
	Logger             *slog.Logger
}

// Adapter turns emails into prompts and model answers into typed results.
type Adapter struct {
	completer          llm.Completer
	model              string
	maxBodyChars       int
	filterModel        string
	filterMaxBodyChars int
	logger             *slog.Logger
}

// NewAdapter creates an Adapter.
func NewAdapter(cfg AdapterConfig) *Adapter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	filterModel := cfg.FilterModel
	if filterModel == "" {
		filterModel = cfg.Model
	}
	return &Adapter{
		completer:          cfg.Completer,
		model:              cfg.Model,
		maxBodyChars:       cfg.MaxBodyChars,
		filterModel:        filterModel,
		filterMaxBodyChars: cfg.FilterMaxBodyChars,
		logger:             logger,
	}
}

// FlightExtraction is a model-produced record plus its self-reported
// confidence, if any.
type FlightExtraction struct {
	Record     models.FlightRecord
	Confidence *float64
}

// ItineraryDecision is the model's verdict on whether an email is a travel
// itinerary.
type ItineraryDecision struct {
	IsItinerary bool
	Confidence  *float64
	Reason      string
}

// Skip reports whether the email should be dropped before extraction: the
// model said it is not an itinerary with confidence at or above threshold.
// A missing confidence counts as zero.
func (d ItineraryDecision) Skip(threshold float64) bool {
	conf := 0.0
	if d.Confidence != nil {
		conf = *d.Confidence
	}
	return !d.IsItinerary && conf >= threshold
}

type flightPayload struct {
	FlightNumber      *string  `json:"flight_number"`
	DepartureDatetime *string  `json:"departure_datetime"`
	ArrivalDatetime   *string  `json:"arrival_datetime"`
	DepartureAirport  *string  `json:"departure_airport"`
	ArrivalAirport    *string  `json:"arrival_airport"`
	ConfirmationCode  *string  `json:"confirmation_code"`
	Airline           *string  `json:"airline"`
	Confidence        *float64 `json:"confidence"`
}

type itineraryPayload struct {
	IsItinerary *bool    `json:"is_itinerary"`
	Confidence  *float64 `json:"confidence"`
	Reason      *string  `json:"reason"`
}

// ExtractFlight asks the model for flight details. It returns nil, nil when
// the model produced no answer.
func (a *Adapter) ExtractFlight(ctx context.Context, email models.RawEmail) (*FlightExtraction, error) {
	out, err := a.complete(ctx, llm.Request{
		Model:  a.model,
		System: extractionSystem,
		Prompt: BuildExtractionPrompt(email, a.maxBodyChars),
		Schema: &llm.Schema{Name: "flight_info", Definition: flightSchema},
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}

	var p flightPayload
	if err := decodeStrict(out, &p); err != nil {
		return nil, fmt.Errorf("%w: decode flight info: %w", ErrLLMFailed, err)
	}
	if err := checkConfidence(p.Confidence); err != nil {
		return nil, err
	}

	rec := models.FlightRecord{
		FlightNumber:      clean(p.FlightNumber),
		DepartureDatetime: clean(p.DepartureDatetime),
		ArrivalDatetime:   clean(p.ArrivalDatetime),
		DepartureAirport:  clean(p.DepartureAirport),
		ArrivalAirport:    clean(p.ArrivalAirport),
		ConfirmationCode:  clean(p.ConfirmationCode),
		Airline:           clean(p.Airline),
	}
	if rec.Airline == "" {
		rec.Airline = models.UnknownAirline
	}
	return &FlightExtraction{Record: rec, Confidence: p.Confidence}, nil
}

// ClassifyItinerary asks the model whether the email is a travel itinerary.
// It returns nil, nil when the model produced no answer.
func (a *Adapter) ClassifyItinerary(ctx context.Context, email models.RawEmail) (*ItineraryDecision, error) {
	out, err := a.complete(ctx, llm.Request{
		Model:  a.filterModel,
		System: classificationSystem,
		Prompt: BuildClassificationPrompt(email, a.filterMaxBodyChars),
		Schema: &llm.Schema{Name: "itinerary_decision", Definition: itinerarySchema},
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}

	var p itineraryPayload
	if err := decodeStrict(out, &p); err != nil {
		return nil, fmt.Errorf("%w: decode itinerary decision: %w", ErrLLMFailed, err)
	}
	if p.IsItinerary == nil {
		return nil, fmt.Errorf("%w: is_itinerary missing", ErrLLMFailed)
	}
	if err := checkConfidence(p.Confidence); err != nil {
		return nil, err
	}
	return &ItineraryDecision{
		IsItinerary: *p.IsItinerary,
		Confidence:  p.Confidence,
		Reason:      clean(p.Reason),
	}, nil
}

// complete sends req with temperature 0 and retries once without a
// temperature if the model rejects it.
func (a *Adapter) complete(ctx context.Context, req llm.Request) (string, error) {
	zero := float32(0)
	req.Temperature = &zero

	out, err := a.completer.Complete(ctx, req)
	if errors.Is(err, llm.ErrTemperatureUnsupported) {
		a.logger.Info("model rejected temperature, retrying with default", "model", req.Model)
		req.Temperature = nil
		out, err = a.completer.Complete(ctx, req)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLLMFailed, err)
	}
	return out, nil
}

func decodeStrict(s string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func checkConfidence(c *float64) error {
	if c != nil && (*c < 0 || *c > 1) {
		return fmt.Errorf("%w: confidence %v outside [0, 1]", ErrLLMFailed, *c)
	}
	return nil
}

func clean(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// truncate cuts s to at most n characters; n <= 0 leaves it whole.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
