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

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightscan/flightscan/internal/cost"
	"github.com/flightscan/flightscan/internal/extract"
	"github.com/flightscan/flightscan/internal/fallback"
	"github.com/flightscan/flightscan/internal/models"
	"github.com/flightscan/flightscan/internal/patterns"
	"github.com/flightscan/flightscan/internal/storage"
)

// --- Mocks ---

type staticLoader []models.RawEmail

func (l staticLoader) LoadEmails(*int, string) []models.RawEmail { return l }

type mockLLM struct {
	mu          sync.Mutex
	extractions map[string]*fallback.FlightExtraction
	decisions   map[string]*fallback.ItineraryDecision
	extractErr  error
	classifyErr error
	extracted   []string
	classified  []string
}

func (m *mockLLM) ExtractFlight(_ context.Context, email models.RawEmail) (*fallback.FlightExtraction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extracted = append(m.extracted, email.ID)
	if m.extractErr != nil {
		return nil, m.extractErr
	}
	return m.extractions[email.ID], nil
}

func (m *mockLLM) ClassifyItinerary(_ context.Context, email models.RawEmail) (*fallback.ItineraryDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classified = append(m.classified, email.ID)
	if m.classifyErr != nil {
		return nil, m.classifyErr
	}
	return m.decisions[email.ID], nil
}

type mockSink struct {
	runID   string
	flights []models.FlightRecord
}

func (s *mockSink) StoreFlights(_ context.Context, runID string, flights []models.FlightRecord) error {
	s.runID, s.flights = runID, flights
	return nil
}

// --- Helpers ---

func ptr[T any](v T) *T { return &v }

var testPricing = cost.Pricing{InputPerMillion: ptr(0.25), OutputPerMillion: ptr(2.0)}

type harness struct {
	proc  *Processor
	store *storage.FileStore
	sink  *mockSink
	llm   *mockLLM
	out   *bytes.Buffer
	built int
}

func newHarness(t *testing.T, emails []models.RawEmail, gate cost.Gate) *harness {
	t.Helper()
	h := &harness{
		store: storage.NewFileStore(t.TempDir()),
		sink:  &mockSink{},
		llm:   &mockLLM{},
		out:   &bytes.Buffer{},
	}
	gate.Out = h.out
	h.proc = NewProcessor(ProcessConfig{
		Parser: extract.New(patterns.Default()),
		Loader: staticLoader(emails),
		Writer: h.store,
		Sinks:  []Sink{h.sink},
		Gate:   gate,
		NewLLM: func(string) (LLM, error) {
			h.built++
			return h.llm, nil
		},
		Out: h.out,
	})
	return h
}

func vietjet(id, subject, body string) models.RawEmail {
	return models.RawEmail{ID: id, Subject: subject, From: "no-reply@vietjetair.com", Body: body}
}

var (
	fullBooking = vietjet("a", "Your VietJet Reservation #ABC123",
		"Reservation # ABC123\nFlight No. VJ 1234\nFrom: SGN To: HAN\nDate: 12 March 2026")
	thinBooking = vietjet("b", "VietJet itinerary",
		"Flight No. VJ 1234\nFrom: SGN To: HAN\nDate: 12 March 2026")
	newsletter = models.RawEmail{ID: "c", Subject: "Travel deals", From: "news@example.com", Body: "Save 20% this weekend"}
)

func llmSettings() LLMSettings {
	return LLMSettings{
		UseExtraction:        true,
		Model:                "gpt-5-mini",
		MaxBodyChars:         4000,
		ExpectedOutputTokens: 300,
		PromptOverheadTokens: 200,
		Pricing:              testPricing,
		ClassifyThreshold:    0.6,
		ClassifyOutputTokens: 60,
		APIKey:               "sk-test",
	}
}

// --- Tests ---

func TestProcessDeterministic(t *testing.T) {
	year := 2026
	h := newHarness(t, []models.RawEmail{thinBooking, fullBooking, newsletter}, cost.Gate{})

	res, err := h.proc.Run(context.Background(), ProcessRequest{Year: &year})
	require.NoError(t, err)

	assert.Equal(t, 3, res.EmailCount)
	assert.Equal(t, 2, res.Extracted)
	assert.Equal(t, 1, res.Merged)
	require.Len(t, res.Flights, 1)
	assert.Equal(t, models.FlightRecord{
		FlightNumber:      "VJ1234",
		DepartureAirport:  "SGN",
		ArrivalAirport:    "HAN",
		ConfirmationCode:  "ABC123",
		DepartureDatetime: "12 March 2026",
		Airline:           "VietJet Air",
	}, res.Flights[0])
	assert.Zero(t, h.built, "no model built without llm settings")

	saved := h.store.LoadFlights(&year)
	assert.Equal(t, res.Flights, saved.Flights)
	assert.Equal(t, res.RunID, saved.Metadata.RunID)
	assert.Equal(t, 3, saved.Metadata.EmailCount)

	assert.Equal(t, res.RunID, h.sink.runID)
	assert.Equal(t, res.Flights, h.sink.flights)

	out := h.out.String()
	assert.Contains(t, out, "Processing 3 emails...")
	assert.Contains(t, out, "Processing email: Travel deals\nNo flight information extracted")
	assert.Contains(t, out, "Found 1 unique flights")
	assert.Contains(t, out, "Results saved to "+res.Path)
}

func TestProcessExplicitOutput(t *testing.T) {
	h := newHarness(t, []models.RawEmail{fullBooking}, cost.Gate{})
	output := filepath.Join(h.store.ProcessedDir(), "custom.json")

	res, err := h.proc.Run(context.Background(), ProcessRequest{Output: output})
	require.NoError(t, err)
	assert.Equal(t, output, res.Path)
	assert.FileExists(t, output)
}

func TestProcessNothingFound(t *testing.T) {
	h := newHarness(t, []models.RawEmail{newsletter}, cost.Gate{})

	res, err := h.proc.Run(context.Background(), ProcessRequest{})
	require.NoError(t, err)
	assert.Empty(t, res.Flights)
	assert.Empty(t, res.Path)
	assert.Nil(t, h.sink.flights)
	assert.Contains(t, h.out.String(), "No flight information found in the stored emails.")
}

func TestProcessEmptyStorage(t *testing.T) {
	h := newHarness(t, nil, cost.Gate{})
	res, err := h.proc.Run(context.Background(), ProcessRequest{})
	require.NoError(t, err)
	assert.Zero(t, res.EmailCount)
	assert.Contains(t, h.out.String(), "No emails found")
}

func TestProcessLLMFallbackOnlyForParserMisses(t *testing.T) {
	h := newHarness(t, []models.RawEmail{fullBooking, newsletter}, cost.Gate{AutoApprove: true})
	h.llm.extractions = map[string]*fallback.FlightExtraction{
		"c": {Record: models.FlightRecord{
			FlightNumber:      "UA900",
			DepartureDatetime: "2026-05-01T10:00:00",
			DepartureAirport:  "SFO",
			ArrivalAirport:    "LHR",
			Airline:           "United Airlines",
		}},
	}

	res, err := h.proc.Run(context.Background(), ProcessRequest{LLM: llmSettings()})
	require.NoError(t, err)

	assert.Equal(t, []string{"c"}, h.llm.extracted)
	assert.Equal(t, 1, h.built)
	require.Len(t, res.Flights, 2)
	// Departure strings sort as text: "12 March 2026" < "2026-05-01T10:00:00".
	assert.Equal(t, "VJ1234", res.Flights[0].FlightNumber)
	assert.Equal(t, "UA900", res.Flights[1].FlightNumber)

	out := h.out.String()
	assert.Contains(t, out, "LLM Cost Estimate (Extraction)")
	assert.NotContains(t, out, "(Classification)")
}

func TestProcessLLMFailureAbortsBatch(t *testing.T) {
	h := newHarness(t, []models.RawEmail{newsletter, fullBooking}, cost.Gate{AutoApprove: true})
	h.llm.extractErr = fallback.ErrLLMFailed

	res, err := h.proc.Run(context.Background(), ProcessRequest{LLM: llmSettings()})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrAborted)
	assert.ErrorIs(t, err, fallback.ErrLLMFailed)
	assert.Contains(t, h.out.String(), "LLM extraction failed")

	_, statErr := os.Stat(h.store.FlightsPath(nil))
	assert.True(t, os.IsNotExist(statErr), "aborted batch writes nothing")
	assert.Nil(t, h.sink.flights)
}

func TestProcessItineraryFilter(t *testing.T) {
	h := newHarness(t, []models.RawEmail{fullBooking, thinBooking}, cost.Gate{AutoApprove: true})
	h.llm.decisions = map[string]*fallback.ItineraryDecision{
		"a": {IsItinerary: false, Confidence: ptr(0.9), Reason: "marketing"},
		"b": {IsItinerary: false, Confidence: ptr(0.3)},
	}
	s := llmSettings()
	s.UseExtraction = false
	s.Classify = true

	res, err := h.proc.Run(context.Background(), ProcessRequest{LLM: s})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, h.llm.classified)
	assert.Equal(t, 1, res.Filtered)
	require.Len(t, res.Flights, 1)
	assert.Empty(t, res.Flights[0].ConfirmationCode, "the richer email was filtered out")
	assert.Contains(t, h.out.String(), "Skipped by LLM filter: marketing")
	assert.Contains(t, h.out.String(), "LLM Cost Estimate (Classification)")
}

func TestProcessClassificationFailureAborts(t *testing.T) {
	h := newHarness(t, []models.RawEmail{fullBooking}, cost.Gate{AutoApprove: true})
	h.llm.classifyErr = errors.New("quota exceeded")
	s := llmSettings()
	s.Classify = true

	_, err := h.proc.Run(context.Background(), ProcessRequest{LLM: s})
	require.ErrorIs(t, err, ErrAborted)
	assert.Empty(t, h.llm.extracted)
}

func TestProcessGateOutcomes(t *testing.T) {
	noPricing := llmSettings()
	noPricing.Pricing = cost.Pricing{}
	noKey := llmSettings()
	noKey.APIKey = ""

	tests := []struct {
		name     string
		gate     cost.Gate
		settings LLMSettings
		want     error
		output   string
	}{
		{"dry run", cost.Gate{DryRun: true}, llmSettings(), cost.ErrDryRun, "Dry run enabled"},
		{"dry run without pricing", cost.Gate{DryRun: true}, noPricing, cost.ErrDryRun, "Pricing: n/a"},
		{"pricing required", cost.Gate{AutoApprove: true}, noPricing, cost.ErrPricingRequired, "pricing rates are required"},
		{"no tty", cost.Gate{Interactive: func() bool { return false }}, llmSettings(), cost.ErrNoTTY, "--llm-approve"},
		{"declined", cost.Gate{In: strings.NewReader("n\n"), Interactive: func() bool { return true }}, llmSettings(), cost.ErrNotConfirmed, "Proceed with LLM extraction? [y/N]"},
		{"no api key", cost.Gate{AutoApprove: true}, noKey, ErrNoAPIKey, "OPENAI_API_KEY is not set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, []models.RawEmail{newsletter}, tt.gate)

			_, err := h.proc.Run(context.Background(), ProcessRequest{LLM: tt.settings})
			require.ErrorIs(t, err, tt.want)
			assert.Zero(t, h.built, "no model built before approval")
			assert.Empty(t, h.llm.extracted)
			assert.Contains(t, h.out.String(), tt.output)
		})
	}
}

func TestProcessConfirmedInteractively(t *testing.T) {
	h := newHarness(t, []models.RawEmail{fullBooking}, cost.Gate{
		In:          strings.NewReader("yes\n"),
		Interactive: func() bool { return true },
	})
	res, err := h.proc.Run(context.Background(), ProcessRequest{LLM: llmSettings()})
	require.NoError(t, err)
	assert.Len(t, res.Flights, 1)
	assert.Equal(t, 1, h.built)
}

func TestProcessRunIDsDiffer(t *testing.T) {
	h := newHarness(t, []models.RawEmail{fullBooking}, cost.Gate{})
	first, err := h.proc.Process(context.Background(), []models.RawEmail{fullBooking}, ProcessRequest{})
	require.NoError(t, err)
	second, err := h.proc.Process(context.Background(), []models.RawEmail{fullBooking}, ProcessRequest{})
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
}
