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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/flightscan/flightscan/internal/cost"
	"github.com/flightscan/flightscan/internal/dedup"
	"github.com/flightscan/flightscan/internal/extract"
	"github.com/flightscan/flightscan/internal/fallback"
	"github.com/flightscan/flightscan/internal/models"
)

var (
	// ErrAborted marks a batch stopped because an LLM call failed. No
	// flights are returned or saved for an aborted batch.
	ErrAborted = errors.New("processing aborted")
	// ErrNoAPIKey is returned when an LLM run is approved but no key is set.
	ErrNoAPIKey = errors.New("OPENAI_API_KEY is not set")
)

// Parser is the deterministic field extractor.
type Parser interface {
	Parse(email models.RawEmail) (models.FlightRecord, bool)
}

// LLM is the model-backed fallback.
type LLM interface {
	ExtractFlight(ctx context.Context, email models.RawEmail) (*fallback.FlightExtraction, error)
	ClassifyItinerary(ctx context.Context, email models.RawEmail) (*fallback.ItineraryDecision, error)
}

// EmailLoader reads stored emails by year or explicit file.
type EmailLoader interface {
	LoadEmails(year *int, file string) []models.RawEmail
}

// FlightWriter saves a run's flights, either to the default location for
// meta.Year or to an explicit path.
type FlightWriter interface {
	SaveFlights(flights []models.FlightRecord, meta models.FlightFileMetadata) (string, error)
	SaveFlightsTo(path string, flights []models.FlightRecord, meta models.FlightFileMetadata) (string, error)
}

// Sink receives the final flights of a run in addition to the file.
type Sink interface {
	StoreFlights(ctx context.Context, runID string, flights []models.FlightRecord) error
}

// LLMSettings configures the optional model-backed stages.
type LLMSettings struct {
	// UseExtraction enables the extraction fallback; Classify enables the
	// itinerary filter. With both off no model is called.
	UseExtraction bool
	Classify      bool

	Model                string
	MaxBodyChars         int
	ExpectedOutputTokens int
	PromptOverheadTokens int
	Pricing              cost.Pricing

	ClassifyThreshold    float64
	ClassifyMaxBodyChars int
	ClassifyOutputTokens int

	APIKey string
}

// Enabled reports whether any model-backed stage is on.
func (s LLMSettings) Enabled() bool { return s.UseExtraction || s.Classify }

func (s LLMSettings) action() string {
	switch {
	case s.UseExtraction && s.Classify:
		return "classification and extraction"
	case s.UseExtraction:
		return "extraction"
	}
	return "classification"
}

// ProcessConfig holds dependencies for the processor.
type ProcessConfig struct {
	Parser    Parser
	Loader    EmailLoader
	Writer    FlightWriter
	Sinks     []Sink
	Tokenizer cost.Tokenizer
	Gate      cost.Gate
	// NewLLM builds the fallback once the run is approved and a key is set.
	NewLLM func(apiKey string) (LLM, error)
	// Out receives the human-readable run report.
	Out io.Writer
}

// ProcessRequest selects the emails to process and where results go.
type ProcessRequest struct {
	Year   *int
	File   string
	Output string
	LLM    LLMSettings
}

// ProcessResult summarises a processing run.
type ProcessResult struct {
	RunID      string
	EmailCount int
	Extracted  int
	Filtered   int // skipped by the itinerary filter
	Dropped    int // no dedup key
	Merged     int
	Flights    []models.FlightRecord
	Path       string
}

// Processor turns stored emails into a deduplicated flight list.
type Processor struct {
	parser    Parser
	loader    EmailLoader
	writer    FlightWriter
	sinks     []Sink
	tokenizer cost.Tokenizer
	gate      cost.Gate
	newLLM    func(string) (LLM, error)
	out       io.Writer
}

// NewProcessor creates a processor.
func NewProcessor(cfg ProcessConfig) *Processor {
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	tok := cfg.Tokenizer
	if tok == nil {
		tok = cost.ApproxTokenizer{}
	}
	return &Processor{
		parser:    cfg.Parser,
		loader:    cfg.Loader,
		writer:    cfg.Writer,
		sinks:     cfg.Sinks,
		tokenizer: tok,
		gate:      cfg.Gate,
		newLLM:    cfg.NewLLM,
		out:       out,
	}
}

// Run loads the requested emails and processes them. Gate outcomes
// (cost.ErrDryRun, cost.ErrPricingRequired, ...) and ErrNoAPIKey are returned
// before any model call; ErrAborted is returned if a model call fails
// mid-batch.
func (p *Processor) Run(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	emails := p.loader.LoadEmails(req.Year, req.File)
	if len(emails) == 0 {
		fmt.Fprintln(p.out, "No emails found in storage.")
		return &ProcessResult{}, nil
	}
	return p.Process(ctx, emails, req)
}

// Process runs the batch: optional itinerary filter, deterministic parse,
// optional LLM fallback, then dedup and persistence.
func (p *Processor) Process(ctx context.Context, emails []models.RawEmail, req ProcessRequest) (*ProcessResult, error) {
	res := &ProcessResult{RunID: uuid.New().String(), EmailCount: len(emails)}
	fmt.Fprintf(p.out, "\nProcessing %d emails...\n", len(emails))

	llm, err := p.prepareLLM(emails, req.LLM)
	if err != nil {
		return nil, err
	}

	var records []models.FlightRecord
	for _, email := range emails {
		fmt.Fprintf(p.out, "\nProcessing email: %s\n", email.Subject)

		if req.LLM.Classify {
			skip, err := p.filter(ctx, llm, email, req.LLM.ClassifyThreshold)
			if err != nil {
				fmt.Fprintf(p.out, "LLM classification failed: %v\n", err)
				return nil, fmt.Errorf("%w: %w", ErrAborted, err)
			}
			if skip {
				res.Filtered++
				continue
			}
		}

		rec, ok := p.parser.Parse(email)
		if !ok && req.LLM.UseExtraction {
			ext, err := llm.ExtractFlight(ctx, email)
			if err != nil {
				fmt.Fprintf(p.out, "LLM extraction failed: %v\n", err)
				return nil, fmt.Errorf("%w: %w", ErrAborted, err)
			}
			if ext != nil {
				rec, ok = ext.Record, true
			}
		}
		if !ok {
			fmt.Fprintln(p.out, "No flight information extracted")
			slog.Debug("no flight extracted", "message_id", email.ID, "subject", email.Subject)
			continue
		}

		fmt.Fprintln(p.out, "Extracted flight info:")
		fmt.Fprintln(p.out, extract.FormatFlightDetails(rec))
		records = append(records, rec)
	}
	res.Extracted = len(records)

	d := dedup.Deduplicate(records)
	res.Flights, res.Dropped, res.Merged = d.Flights, d.Dropped, d.Merged
	if d.Dropped > 0 {
		slog.Info("records without flight number or departure dropped", "count", d.Dropped)
	}

	if len(res.Flights) == 0 {
		fmt.Fprintln(p.out, "\nNo flight information found in the stored emails.")
		return res, nil
	}
	fmt.Fprintf(p.out, "\nFound %d unique flights\n", len(res.Flights))

	if err := p.persist(ctx, res, req); err != nil {
		return res, err
	}
	return res, nil
}

// prepareLLM prints estimates and runs the spend gate. It returns nil when no
// model stage is enabled.
func (p *Processor) prepareLLM(emails []models.RawEmail, s LLMSettings) (LLM, error) {
	if !s.Enabled() {
		return nil, nil
	}

	if s.Classify {
		est := cost.EstimateCost(emails, cost.Config{
			Model:                s.Model,
			MaxBodyChars:         s.ClassifyMaxBodyChars,
			ExpectedOutputTokens: s.ClassifyOutputTokens,
			PromptOverheadTokens: s.PromptOverheadTokens,
			Pricing:              s.Pricing,
			Prompt:               fallback.BuildClassificationPrompt,
		}, p.tokenizer)
		cost.Print(p.out, est, s.Model, s.Pricing, "Classification")
	}
	if s.UseExtraction {
		est := cost.EstimateCost(emails, cost.Config{
			Model:                s.Model,
			MaxBodyChars:         s.MaxBodyChars,
			ExpectedOutputTokens: s.ExpectedOutputTokens,
			PromptOverheadTokens: s.PromptOverheadTokens,
			Pricing:              s.Pricing,
			Prompt:               fallback.BuildExtractionPrompt,
		}, p.tokenizer)
		cost.Print(p.out, est, s.Model, s.Pricing, "Extraction")
	}

	if err := p.gate.Check(s.action(), s.Pricing); err != nil {
		return nil, err
	}
	if s.APIKey == "" {
		fmt.Fprintln(p.out, "\nOPENAI_API_KEY is not set. Cannot run LLM processing.")
		return nil, ErrNoAPIKey
	}
	if p.newLLM == nil {
		return nil, errors.New("no llm configured")
	}
	llm, err := p.newLLM(s.APIKey)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	return llm, nil
}

// filter reports whether the itinerary classifier confidently rejected the
// email. A model with no answer never filters.
func (p *Processor) filter(ctx context.Context, llm LLM, email models.RawEmail, threshold float64) (bool, error) {
	d, err := llm.ClassifyItinerary(ctx, email)
	if err != nil {
		return false, err
	}
	if d == nil || !d.Skip(threshold) {
		return false, nil
	}
	if d.Reason != "" {
		fmt.Fprintf(p.out, "Skipped by LLM filter: %s\n", d.Reason)
	} else {
		fmt.Fprintln(p.out, "Skipped by LLM filter")
	}
	slog.Info("email skipped by llm filter",
		"message_id", email.ID,
		"subject", email.Subject,
		"reason", d.Reason,
	)
	return true, nil
}

func (p *Processor) persist(ctx context.Context, res *ProcessResult, req ProcessRequest) error {
	meta := models.FlightFileMetadata{
		Year:       req.Year,
		EmailCount: res.EmailCount,
		RunID:      res.RunID,
	}

	var err error
	if req.Output != "" {
		res.Path, err = p.writer.SaveFlightsTo(req.Output, res.Flights, meta)
	} else {
		res.Path, err = p.writer.SaveFlights(res.Flights, meta)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "\nResults saved to %s\n", res.Path)

	for _, s := range p.sinks {
		if err := s.StoreFlights(ctx, res.RunID, res.Flights); err != nil {
			return fmt.Errorf("store flights: %w", err)
		}
	}
	return nil
}
