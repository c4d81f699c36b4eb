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

package cost

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightscan/flightscan/internal/models"
)

func ptr(v float64) *float64 { return &v }

func TestApproxTokenizer(t *testing.T) {
	tok := ApproxTokenizer{}
	assert.Equal(t, 0, tok.Count(""))
	assert.Equal(t, 1, tok.Count("abcd"))
	assert.Equal(t, 2, tok.Count("abcde"))
	assert.Equal(t, 1, tok.Count("éééé"))
	assert.Equal(t, "approx:4chars", tok.Name())
}

func fixedPrompt(text string) PromptFunc {
	return func(models.RawEmail, int) string { return text }
}

func TestEstimateCost_Totals(t *testing.T) {
	emails := []models.RawEmail{{ID: "1"}, {ID: "2"}}
	cfg := Config{
		Model:                "gpt-5-mini",
		ExpectedOutputTokens: 300,
		PromptOverheadTokens: 200,
		Pricing:              Pricing{InputPerMillion: ptr(1.0), OutputPerMillion: ptr(2.0)},
		Prompt:               fixedPrompt("abcdefgh"), // 2 tokens
	}

	est := EstimateCost(emails, cfg, ApproxTokenizer{})

	assert.Equal(t, 2, est.EmailCount)
	assert.Equal(t, 404, est.TotalInputTokens)
	assert.Equal(t, 600, est.TotalOutputTokens)
	assert.InDelta(t, 202.0, est.AvgInputTokens, 1e-9)
	assert.InDelta(t, 300.0, est.AvgOutputTokens, 1e-9)

	require.NotNil(t, est.TotalCost)
	assert.InDelta(t, 404.0/1e6*1.0, *est.InputCost, 1e-12)
	assert.InDelta(t, 600.0/1e6*2.0, *est.OutputCost, 1e-12)
	assert.InDelta(t, *est.InputCost+*est.OutputCost, *est.TotalCost, 1e-12)
	assert.InDelta(t, *est.TotalCost/2, *est.AvgCost, 1e-12)
}

func TestEstimateCost_NegativeSettingsClampToZero(t *testing.T) {
	est := EstimateCost([]models.RawEmail{{}}, Config{
		ExpectedOutputTokens: -5,
		PromptOverheadTokens: -5,
		Prompt:               fixedPrompt("abcd"),
	}, ApproxTokenizer{})

	assert.Equal(t, 1, est.TotalInputTokens)
	assert.Equal(t, 0, est.TotalOutputTokens)
	assert.Nil(t, est.TotalCost)
}

func TestEstimateCost_PartialPricingHasNoCost(t *testing.T) {
	est := EstimateCost([]models.RawEmail{{}}, Config{
		Pricing: Pricing{InputPerMillion: ptr(1.0)},
	}, ApproxTokenizer{})
	assert.Nil(t, est.InputCost)
	assert.Nil(t, est.AvgCost)
}

func TestEstimateCost_Empty(t *testing.T) {
	est := EstimateCost(nil, Config{Pricing: Pricing{InputPerMillion: ptr(1), OutputPerMillion: ptr(1)}}, ApproxTokenizer{})
	assert.Zero(t, est.AvgInputTokens)
	require.NotNil(t, est.AvgCost)
	assert.Zero(t, *est.AvgCost)
}

func TestDefaultPrompt_TruncatesBody(t *testing.T) {
	got := defaultPrompt(models.RawEmail{Subject: "S", From: "F", Date: "D", Body: "0123456789"}, 4)
	assert.True(t, strings.HasSuffix(got, "Body:\n0123\n"))
}

func TestFormatCost(t *testing.T) {
	assert.Equal(t, "n/a", FormatCost(nil))
	assert.Equal(t, "n/a", FormatCost(ptr(-1)))
	assert.Equal(t, "$0.0012", FormatCost(ptr(0.00123)))
	assert.Equal(t, "$1,234.5000", FormatCost(ptr(1234.5)))
}

func TestPrint(t *testing.T) {
	est := Estimate{
		EmailCount:        3,
		TotalInputTokens:  12345,
		TotalOutputTokens: 900,
		AvgInputTokens:    4115,
		AvgOutputTokens:   300,
		Tokenizer:         "approx:4chars",
		MaxBodyChars:      4000,
	}

	var buf bytes.Buffer
	Print(&buf, est, "gpt-5-mini", Pricing{}, "Extraction")
	out := buf.String()

	assert.Contains(t, out, "LLM Cost Estimate (Extraction)\n------------------------------\n")
	assert.Contains(t, out, "Model: gpt-5-mini\n")
	assert.Contains(t, out, "Body chars cap: 4000\n")
	assert.Contains(t, out, "Input tokens (total): 12,345\n")
	assert.Contains(t, out, "Input tokens (avg): 4,115.0\n")
	assert.Contains(t, out, "Pricing: n/a (set input/output rates to estimate cost)")
}

func TestGate(t *testing.T) {
	full := Pricing{InputPerMillion: ptr(1), OutputPerMillion: ptr(2)}
	tty := func() bool { return true }
	noTTY := func() bool { return false }

	tests := []struct {
		name    string
		gate    Gate
		pricing Pricing
		input   string
		wantErr error
		wantOut string
	}{
		{"dry run without pricing", Gate{DryRun: true}, Pricing{}, "", ErrDryRun, "Dry run enabled. No LLM calls were made."},
		{"dry run with pricing", Gate{DryRun: true, AutoApprove: true}, full, "", ErrDryRun, "Dry run enabled."},
		{"missing pricing", Gate{AutoApprove: true}, Pricing{InputPerMillion: ptr(1)}, "", ErrPricingRequired, "LLM_INPUT_COST_PER_M_TOKENS"},
		{"auto approve", Gate{AutoApprove: true}, full, "", nil, ""},
		{"no tty", Gate{Interactive: noTTY}, full, "y\n", ErrNoTTY, "Re-run with --llm-approve to proceed."},
		{"yes", Gate{Interactive: tty}, full, "YES\n", nil, "Proceed with LLM extraction? [y/N]: "},
		{"y", Gate{Interactive: tty}, full, " y \n", nil, ""},
		{"default is no", Gate{Interactive: tty}, full, "\n", ErrNotConfirmed, "cancelled"},
		{"eof is no", Gate{Interactive: tty}, full, "", ErrNotConfirmed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			g := tt.gate
			g.In = strings.NewReader(tt.input)
			g.Out = &out

			err := g.Check("extraction", tt.pricing)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Contains(t, out.String(), tt.wantOut)
		})
	}
}
