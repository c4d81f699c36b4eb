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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flightscan/flightscan/internal/models"
	"github.com/flightscan/flightscan/internal/pipeline"
)

func init() {
	rootCmd.AddCommand(runCmd)
	addFetchFlags(runCmd)
	runCmd.Flags().StringVar(&processOutput, "output", "", "results path (default <data_dir>/processed/flights_<year>.json)")
	addLLMFlags(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, then process the newly fetched emails",
	Long: `Run fetch for every account and process only the batches it just
stored. Accepts the flags of both fetch and process.

Examples:
  flightscan run --year 2026
  flightscan run --year 2026 --use-llm --llm-approve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		paths, err := fetchAll(cmd.Context())
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Println("No new flight emails fetched; nothing to process.")
			return nil
		}

		settings := llmSettings(cmd)
		proc, err := buildProcessor(cmd.Context(), settings)
		if err != nil {
			return err
		}
		defer proc.close()

		var emails []models.RawEmail
		for _, p := range paths {
			emails = append(emails, proc.deps.store.LoadEmails(nil, p)...)
		}
		year := fetchYear
		_, err = proc.Process(cmd.Context(), emails, pipeline.ProcessRequest{
			Year:   &year,
			Output: processOutput,
			LLM:    settings,
		})
		return gateResult(err)
	},
}
