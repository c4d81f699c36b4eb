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
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	// ErrPricingRequired halts a live run without both pricing rates.
	ErrPricingRequired = errors.New("llm pricing rates are required")
	// ErrDryRun halts after estimates are printed.
	ErrDryRun = errors.New("llm dry run")
	// ErrNoTTY halts when confirmation is needed but stdin is not a terminal.
	ErrNoTTY = errors.New("no tty available for confirmation")
	// ErrNotConfirmed halts when the user declines.
	ErrNotConfirmed = errors.New("llm run not confirmed")
)

var printer = message.NewPrinter(language.English)

// FormatCost renders a dollar amount with four decimals, or "n/a".
func FormatCost(v *float64) string {
	if v == nil || *v < 0 {
		return "n/a"
	}
	return printer.Sprintf("$%.4f", *v)
}

// Print writes a human-readable estimate block to w.
func Print(w io.Writer, est Estimate, model string, pricing Pricing, label string) {
	title := "LLM Cost Estimate"
	if label != "" {
		title += " (" + label + ")"
	}
	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
	fmt.Fprintf(w, "Model: %s\n", model)
	fmt.Fprintf(w, "Emails: %d\n", est.EmailCount)
	fmt.Fprintf(w, "Tokenizer: %s\n", est.Tokenizer)
	if est.MaxBodyChars > 0 {
		fmt.Fprintf(w, "Body chars cap: %d\n", est.MaxBodyChars)
	}
	printer.Fprintf(w, "Input tokens (total): %d\n", est.TotalInputTokens)
	printer.Fprintf(w, "Output tokens (total): %d\n", est.TotalOutputTokens)
	printer.Fprintf(w, "Input tokens (avg): %.1f\n", est.AvgInputTokens)
	printer.Fprintf(w, "Output tokens (avg): %.1f\n", est.AvgOutputTokens)

	if !pricing.Complete() {
		fmt.Fprintln(w, "Pricing: n/a (set input/output rates to estimate cost)")
		return
	}
	fmt.Fprintf(w, "Input cost (total): %s\n", FormatCost(est.InputCost))
	fmt.Fprintf(w, "Output cost (total): %s\n", FormatCost(est.OutputCost))
	fmt.Fprintf(w, "Total cost: %s\n", FormatCost(est.TotalCost))
	fmt.Fprintf(w, "Avg cost/email: %s\n", FormatCost(est.AvgCost))
}

// Gate decides whether a priced LLM batch may proceed.
type Gate struct {
	DryRun      bool
	AutoApprove bool
	In          io.Reader
	Out         io.Writer
	// Interactive reports whether In is a terminal.
	Interactive func() bool
}

// Check runs the gate for action ("extraction", "classification", ...).
// A nil error means proceed. Dry runs halt regardless of pricing; live runs
// need complete pricing, then either auto-approval or a "y"/"yes" answer.
func (g Gate) Check(action string, pricing Pricing) error {
	if g.DryRun {
		fmt.Fprintln(g.Out, "\nDry run enabled. No LLM calls were made.")
		return ErrDryRun
	}
	if !pricing.Complete() {
		fmt.Fprintln(g.Out, "\nLLM pricing rates are required to proceed.")
		fmt.Fprintln(g.Out, "Set LLM_INPUT_COST_PER_M_TOKENS and LLM_OUTPUT_COST_PER_M_TOKENS,")
		fmt.Fprintln(g.Out, "or pass --llm-input-rate/--llm-output-rate.")
		return ErrPricingRequired
	}
	if g.AutoApprove {
		return nil
	}
	if g.Interactive == nil || !g.Interactive() {
		fmt.Fprintln(g.Out, "\nNo TTY available for confirmation. Re-run with --llm-approve to proceed.")
		return ErrNoTTY
	}

	fmt.Fprintf(g.Out, "\nProceed with LLM %s? [y/N]: ", action)
	line, _ := bufio.NewReader(g.In).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return nil
	}
	fmt.Fprintln(g.Out, "\nLLM processing cancelled.")
	return ErrNotConfirmed
}
