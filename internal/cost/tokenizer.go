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
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts tokens in a prompt.
type Tokenizer interface {
	Count(text string) int
	Name() string
}

// ApproxTokenizer assumes DefaultCharsPerToken characters per token.
type ApproxTokenizer struct{}

// Count returns ceil(chars / DefaultCharsPerToken), or 0 for empty text.
func (ApproxTokenizer) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + DefaultCharsPerToken - 1) / DefaultCharsPerToken
}

// Name identifies the heuristic in printed estimates.
func (ApproxTokenizer) Name() string {
	return fmt.Sprintf("approx:%dchars", DefaultCharsPerToken)
}

type tiktokenCounter struct {
	enc  *tiktoken.Tiktoken
	name string
}

func (t tiktokenCounter) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

func (t tiktokenCounter) Name() string { return "tiktoken:" + t.name }

// NewTokenizer returns an exact tokenizer for model when one can be loaded,
// falling back to cl100k_base and then to ApproxTokenizer.
func NewTokenizer(model string, logger *slog.Logger) Tokenizer {
	if logger == nil {
		logger = slog.Default()
	}
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return tiktokenCounter{enc: enc, name: model}
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Debug("tiktoken unavailable, using character heuristic", "error", err)
		return ApproxTokenizer{}
	}
	return tiktokenCounter{enc: enc, name: "cl100k_base"}
}
