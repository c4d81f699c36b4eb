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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flightscan/flightscan/internal/llm"
)

var (
	modelsPrefix string
	modelsAll    bool
)

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().StringVar(&modelsPrefix, "prefix", "", "only list models starting with this prefix (e.g. gpt-)")
	modelsCmd.Flags().BoolVar(&modelsAll, "all", false, "list every model, not only the supported text models")
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available OpenAI models and pick one",
	Long: `List the OpenAI models your key can use, restricted to the supported
text models, and mark the configured one with (*). On a terminal you can
choose another by number or name; the choice is printed for use with
--llm-model.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.LLM.APIKey == "" {
			return errors.New("OPENAI_API_KEY is not set; cannot list models")
		}
		client, err := llm.NewClient(llm.ClientConfig{APIKey: cfg.LLM.APIKey, BaseURL: cfg.LLM.BaseURL})
		if err != nil {
			return err
		}

		var allow []string
		if modelsAll {
			allow = []string{}
		}
		models, err := client.ListModels(cmd.Context(), allow)
		if err != nil {
			return err
		}
		if modelsPrefix != "" {
			filtered := models[:0]
			for _, m := range models {
				if strings.HasPrefix(m, modelsPrefix) {
					filtered = append(filtered, m)
				}
			}
			models = filtered
		}
		if len(models) == 0 {
			fmt.Println("No models found for the requested filter.")
			return nil
		}

		selected := llm.ChooseModel(os.Stdin, os.Stdout, isTerminal(), models, cfg.LLM.Model)
		fmt.Printf("\nSelected model: %s\n", selected)
		return nil
	},
}
