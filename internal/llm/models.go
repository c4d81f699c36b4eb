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

package llm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// AllowedTextModels are the models offered by default for extraction.
var AllowedTextModels = []string{
	"gpt-4.1-mini",
	"gpt-4o-mini",
	"gpt-5",
	"gpt-5-mini",
	"gpt-5-nano",
}

// ListModels returns the account's models filtered by allowlist, unique and
// sorted. A nil allowlist means AllowedTextModels; an empty non-nil one
// disables filtering.
func (c *Client) ListModels(ctx context.Context, allowlist []string) ([]string, error) {
	resp, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	ids := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	return FilterModels(ids, allowlist), nil
}

// FilterModels applies the allowlist rules of ListModels to ids.
func FilterModels(ids, allowlist []string) []string {
	if allowlist == nil {
		allowlist = AllowedTextModels
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if len(allowlist) > 0 && !slices.Contains(allowlist, id) {
			continue
		}
		out = append(out, id)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// FormatModelChoices renders a numbered list, marking the selected model.
func FormatModelChoices(models []string, selected string) string {
	width := len(strconv.Itoa(len(models)))
	lines := make([]string, len(models))
	for i, m := range models {
		marker := "( )"
		if m == selected {
			marker = "(*)"
		}
		lines[i] = fmt.Sprintf("%*d. %s %s", width, i+1, marker, m)
	}
	return strings.Join(lines, "\n")
}

// ChooseModel prints the choices to out and, when interactive, reads a
// number or model name from in. Any invalid or empty answer keeps selected.
func ChooseModel(in io.Reader, out io.Writer, interactive bool, models []string, selected string) string {
	if len(models) == 0 {
		return selected
	}
	fmt.Fprintln(out, FormatModelChoices(models, selected))
	if !interactive {
		return selected
	}

	fmt.Fprint(out, "\nSelect model by number or name (Enter to keep current): ")
	line, _ := bufio.NewReader(in).ReadString('\n')
	choice := strings.TrimSpace(line)
	if choice == "" {
		return selected
	}

	if idx, err := strconv.Atoi(choice); err == nil {
		if idx >= 1 && idx <= len(models) {
			return models[idx-1]
		}
		fmt.Fprintln(out, "Invalid selection. Keeping current model.")
		return selected
	}
	if slices.Contains(models, choice) {
		return choice
	}
	fmt.Fprintln(out, "Model not found. Keeping current model.")
	return selected
}
