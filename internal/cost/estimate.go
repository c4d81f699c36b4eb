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

// Package cost estimates token usage and price for a batch of LLM calls and
// gates the batch behind pricing, dry-run, and interactive confirmation.
package cost

import (
	"fmt"
	"unicode/utf8"

	"github.com/flightscan/flightscan/internal/models"
)

const (
	DefaultCharsPerToken        = 4
	DefaultOutputTokens         = 300
	DefaultPromptOverheadTokens = 200
)

// Pricing holds per-million-token rates. A nil rate means unknown.
type Pricing struct {
	InputPerMillion  *float64
	OutputPerMillion *float64
}

// Complete reports whether both rates are known.
func (p Pricing) Complete() bool {
	return p.InputPerMillion != nil && p.OutputPerMillion != nil
}

// PromptFunc renders the prompt that will be sent for one email.
type PromptFunc func(email models.RawEmail, maxBodyChars int) string

// Config describes one kind of LLM call to estimate.
type Config struct {
	Model string
	// MaxBodyChars caps the body length; 0 means no cap.
	MaxBodyChars         int
	ExpectedOutputTokens int
	PromptOverheadTokens int
	Pricing              Pricing
	// Prompt defaults to a generic extraction prompt.
	Prompt PromptFunc
}

// Estimate is the projected usage for a batch.
type Estimate struct {
	EmailCount        int
	TotalInputTokens  int
	TotalOutputTokens int
	AvgInputTokens    float64
	AvgOutputTokens   float64
	// Costs are nil unless both pricing rates are set.
	InputCost  *float64
	OutputCost *float64
	TotalCost  *float64
	AvgCost    *float64

	Tokenizer    string
	MaxBodyChars int
}

// EstimateCost counts prompt tokens for every email and projects totals and,
// when pricing is complete, cost.
func EstimateCost(emails []models.RawEmail, cfg Config, tok Tokenizer) Estimate {
	prompt := cfg.Prompt
	if prompt == nil {
		prompt = defaultPrompt
	}
	overhead := max(cfg.PromptOverheadTokens, 0)

	est := Estimate{
		EmailCount:   len(emails),
		Tokenizer:    tok.Name(),
		MaxBodyChars: cfg.MaxBodyChars,
	}
	for _, e := range emails {
		est.TotalInputTokens += tok.Count(prompt(e, cfg.MaxBodyChars)) + overhead
	}
	est.TotalOutputTokens = max(cfg.ExpectedOutputTokens, 0) * est.EmailCount

	if est.EmailCount > 0 {
		est.AvgInputTokens = float64(est.TotalInputTokens) / float64(est.EmailCount)
		est.AvgOutputTokens = float64(est.TotalOutputTokens) / float64(est.EmailCount)
	}

	if cfg.Pricing.Complete() {
		in := float64(est.TotalInputTokens) / 1_000_000 * *cfg.Pricing.InputPerMillion
		out := float64(est.TotalOutputTokens) / 1_000_000 * *cfg.Pricing.OutputPerMillion
		total := in + out
		avg := 0.0
		if est.EmailCount > 0 {
			avg = total / float64(est.EmailCount)
		}
		est.InputCost, est.OutputCost, est.TotalCost, est.AvgCost = &in, &out, &total, &avg
	}
	return est
}

func defaultPrompt(email models.RawEmail, maxBodyChars int) string {
	body := email.Body
	if maxBodyChars > 0 && utf8.RuneCountInString(body) > maxBodyChars {
		body = string([]rune(body)[:maxBodyChars])
	}
	return fmt.Sprintf("You are given an email. Extract flight details if present.\n\nSubject: %s\nFrom: %s\nDate: %s\nBody:\n%s\n",
		email.Subject, email.From, email.Date, body)
}
