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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flightscan/flightscan/internal/cost"
	"github.com/flightscan/flightscan/internal/extract"
	"github.com/flightscan/flightscan/internal/fallback"
	"github.com/flightscan/flightscan/internal/llm"
	"github.com/flightscan/flightscan/internal/patterns"
	"github.com/flightscan/flightscan/internal/pipeline"
	"github.com/flightscan/flightscan/internal/storage"
)

var (
	processYear   int
	processFile   string
	processOutput string
	processLatest bool

	useLLM             bool
	llmFilter          bool
	llmFilterThreshold float64
	llmFilterMaxBody   int
	llmFilterOutTokens int
	llmModel           string
	llmMaxBody         int
	llmOutputTokens    int
	llmPromptOverhead  int
	llmInputRate       float64
	llmOutputRate      float64
	llmDryRun          bool
	llmApprove         bool
)

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().IntVar(&processYear, "year", 0, "year to process (default: all stored years)")
	processCmd.Flags().StringVar(&processFile, "file", "", "process one stored email file instead of a year")
	processCmd.Flags().StringVar(&processOutput, "output", "", "results path (default <data_dir>/processed/flights_<year>.json)")
	processCmd.Flags().BoolVar(&processLatest, "latest", false, "process only the most recent stored file for the year")
	addLLMFlags(processCmd)
}

// addLLMFlags registers the model and spend flags shared by process and run.
// Unset flags fall back to config.
func addLLMFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&useLLM, "use-llm", false, "use the LLM when the parsers find nothing")
	f.BoolVar(&llmFilter, "llm-filter", false, "use the LLM to skip non-itinerary emails before parsing")
	f.Float64Var(&llmFilterThreshold, "llm-filter-threshold", 0.6, "confidence needed to skip a non-itinerary email")
	f.IntVar(&llmFilterMaxBody, "llm-filter-max-body-chars", 0, "max body chars for the filter (default --llm-max-body-chars)")
	f.IntVar(&llmFilterOutTokens, "llm-filter-output-tokens", 60, "expected output tokens per filter call")
	f.StringVar(&llmModel, "llm-model", "gpt-5-mini", "LLM model")
	f.IntVar(&llmMaxBody, "llm-max-body-chars", 4000, "max email body chars sent to the LLM")
	f.IntVar(&llmOutputTokens, "llm-output-tokens", 300, "expected output tokens per email")
	f.IntVar(&llmPromptOverhead, "llm-prompt-overhead", 200, "prompt overhead tokens per email")
	f.Float64Var(&llmInputRate, "llm-input-rate", 0, "input cost per 1M tokens (default env LLM_INPUT_COST_PER_M_TOKENS)")
	f.Float64Var(&llmOutputRate, "llm-output-rate", 0, "output cost per 1M tokens (default env LLM_OUTPUT_COST_PER_M_TOKENS)")
	f.BoolVar(&llmDryRun, "llm-dry-run", false, "print the cost estimate and stop")
	f.BoolVar(&llmApprove, "llm-approve", false, "skip the confirmation prompt")
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Extract and deduplicate flights from stored emails",
	Long: `Parse stored emails into flight records, deduplicate them, and save
the unique flights. With --use-llm or --llm-filter a cost estimate is printed
first and the run needs pricing plus --llm-approve or an interactive "y".

Examples:
  # Deterministic parsers only
  flightscan process --year 2026

  # Estimate what an LLM pass would cost
  flightscan process --year 2026 --use-llm --llm-input-rate 0.25 --llm-output-rate 2 --llm-dry-run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings := llmSettings(cmd)
		proc, err := buildProcessor(cmd.Context(), settings)
		if err != nil {
			return err
		}
		defer proc.close()

		req := pipeline.ProcessRequest{
			File:   processFile,
			Output: processOutput,
			LLM:    settings,
		}
		if processYear != 0 {
			req.Year = &processYear
		}
		if processLatest && req.File == "" {
			if req.File, err = latestFile(proc.deps.store, req.Year); err != nil {
				return err
			}
		}
		_, err = proc.Run(cmd.Context(), req)
		return gateResult(err)
	},
}

type processorHandle struct {
	*pipeline.Processor
	deps *deps
}

func (h processorHandle) close() { h.deps.close() }

func buildProcessor(ctx context.Context, settings pipeline.LLMSettings) (processorHandle, error) {
	d, err := openDeps(ctx)
	if err != nil {
		return processorHandle{}, err
	}
	sinks, err := d.sinks(ctx)
	if err != nil {
		d.close()
		return processorHandle{}, err
	}

	proc := pipeline.NewProcessor(pipeline.ProcessConfig{
		Parser:    extract.New(patterns.Default()),
		Loader:    d.store,
		Writer:    d.store,
		Sinks:     sinks,
		Tokenizer: cost.NewTokenizer(settings.Model, nil),
		Gate: cost.Gate{
			DryRun:      llmDryRun,
			AutoApprove: llmApprove,
			In:          os.Stdin,
			Out:         os.Stdout,
			Interactive: isTerminal,
		},
		NewLLM: func(apiKey string) (pipeline.LLM, error) {
			return newFallback(apiKey, settings)
		},
		Out:    os.Stdout,
	})
	return processorHandle{Processor: proc, deps: d}, nil
}

// llmSettings merges config with the flags the user actually set.
func llmSettings(cmd *cobra.Command) pipeline.LLMSettings {
	f := cmd.Flags()
	c := cfg.LLM

	s := pipeline.LLMSettings{
		UseExtraction:        useLLM,
		Classify:             llmFilter,
		Model:                c.Model,
		MaxBodyChars:         c.MaxBodyChars,
		ExpectedOutputTokens: c.OutputTokens,
		PromptOverheadTokens: c.PromptOverheadTokens,
		Pricing:              cost.Pricing{InputPerMillion: c.InputCostPerMillion, OutputPerMillion: c.OutputCostPerMillion},
		ClassifyThreshold:    c.FilterThreshold,
		ClassifyMaxBodyChars: c.FilterMaxBodyChars,
		ClassifyOutputTokens: c.FilterOutputTokens,
		APIKey:               c.APIKey,
	}
	if f.Changed("llm-model") {
		s.Model = llmModel
	}
	if f.Changed("llm-max-body-chars") {
		s.MaxBodyChars = llmMaxBody
	}
	if f.Changed("llm-output-tokens") {
		s.ExpectedOutputTokens = llmOutputTokens
	}
	if f.Changed("llm-prompt-overhead") {
		s.PromptOverheadTokens = llmPromptOverhead
	}
	if f.Changed("llm-input-rate") {
		s.Pricing.InputPerMillion = &llmInputRate
	}
	if f.Changed("llm-output-rate") {
		s.Pricing.OutputPerMillion = &llmOutputRate
	}
	if f.Changed("llm-filter-threshold") {
		s.ClassifyThreshold = llmFilterThreshold
	}
	if f.Changed("llm-filter-max-body-chars") {
		s.ClassifyMaxBodyChars = llmFilterMaxBody
	}
	if f.Changed("llm-filter-output-tokens") {
		s.ClassifyOutputTokens = llmFilterOutTokens
	}
	if s.ClassifyMaxBodyChars <= 0 {
		s.ClassifyMaxBodyChars = s.MaxBodyChars
	}
	return s
}

// newFallback is called only after the spend gate passed.
func newFallback(apiKey string, s pipeline.LLMSettings) (pipeline.LLM, error) {
	client, err := llm.NewClient(llm.ClientConfig{
		APIKey:     apiKey,
		BaseURL:    cfg.LLM.BaseURL,
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
	})
	if err != nil {
		return nil, err
	}
	return fallback.NewAdapter(fallback.AdapterConfig{
		Completer:          client,
		Model:              s.Model,
		MaxBodyChars:       s.MaxBodyChars,
		FilterMaxBodyChars: s.ClassifyMaxBodyChars,
	}), nil
}

// latestFile picks the newest batch for year, or for the newest stored year.
func latestFile(store *storage.FileStore, year *int) (string, error) {
	if year == nil {
		years := store.AvailableYears()
		if len(years) == 0 {
			return "", fmt.Errorf("no stored emails in %s", store.RawDir())
		}
		year = &years[len(years)-1]
	}
	path := store.LatestEmailFile(*year)
	if path == "" {
		return "", fmt.Errorf("no stored emails for %d", *year)
	}
	return path, nil
}

// gateResult turns a dry run into a clean exit.
func gateResult(err error) error {
	if errors.Is(err, cost.ErrDryRun) {
		return nil
	}
	return err
}
