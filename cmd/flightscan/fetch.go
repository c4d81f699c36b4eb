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
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/flightscan/flightscan/internal/classify"
	"github.com/flightscan/flightscan/internal/gmail"
	"github.com/flightscan/flightscan/internal/patterns"
	"github.com/flightscan/flightscan/internal/pipeline"
)

var (
	fetchYear      int
	fetchDays      int
	fetchStart     string
	fetchQueryMode string
	fetchAccounts  []string
	fetchMax       int
	fetchNoScreen  bool
)

func init() {
	rootCmd.AddCommand(fetchCmd)
	addFetchFlags(fetchCmd)
}

// addFetchFlags registers the mailbox flags shared by fetch and run.
func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&fetchYear, "year", time.Now().Year(), "year to search")
	cmd.Flags().IntVar(&fetchDays, "days", 0, "days to search from the start date (default from config, 365)")
	cmd.Flags().StringVar(&fetchStart, "start", "", "start date YYYY-MM-DD (default January 1 of --year)")
	cmd.Flags().StringVar(&fetchQueryMode, "query-mode", "", "strict (travel-looking subjects) or relaxed (whole inbox)")
	cmd.Flags().StringSliceVar(&fetchAccounts, "account", nil, "account(s) to fetch (default all configured)")
	cmd.Flags().IntVar(&fetchMax, "max-results", 0, "maximum messages to list per account (default from config, 500)")
	cmd.Flags().BoolVar(&fetchNoScreen, "no-screen", false, "store every fetched email, not only confirmed bookings")
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch candidate flight emails from Gmail into storage",
	Long: `Search each account's mailbox for the date window, screen every new
message for booking evidence, and save the accepted ones to
<data_dir>/raw_emails/emails_<year>_<timestamp>.json.

Examples:
  # Fetch this year's bookings from every account
  flightscan fetch

  # Search the whole inbox of one account from March
  flightscan fetch --account work --start 2026-03-01 --days 90 --query-mode relaxed`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fetchAll(cmd.Context())
		return err
	},
}

// fetchAll runs the fetch for every resolved account and returns the paths
// of the batches written.
func fetchAll(ctx context.Context) ([]string, error) {
	req, err := fetchRequest()
	if err != nil {
		return nil, err
	}

	accounts, err := resolveAccounts(fetchAccounts)
	if err != nil {
		return nil, err
	}
	provider, err := newProvider()
	if err != nil {
		return nil, err
	}
	d, err := openDeps(ctx)
	if err != nil {
		return nil, err
	}
	defer d.close()

	classifier := classify.New(patterns.Default(), nil)

	var paths []string
	for _, acct := range accounts {
		src, err := mailboxFor(ctx, provider, acct.Name)
		if err != nil {
			return paths, err
		}

		runner := pipeline.NewFetchRunner(pipeline.FetchConfig{
			Seen:       d.seenFilter(acct.Name),
			Classifier: classifier,
			Store:      d.store,
		})
		req.Account = acct.Name
		res, err := runner.Run(ctx, src, req)
		if err != nil {
			return paths, err
		}

		fmt.Printf("%s: %d listed, %d stored, %d already seen, %d rejected, %d errors\n",
			res.Account, res.Listed, res.Stored, res.Skipped, res.Rejected, res.Errors)
		if res.Path != "" {
			fmt.Printf("Saved to %s\n", res.Path)
			paths = append(paths, res.Path)
		}
	}

	slog.Info("fetch complete", "accounts", len(accounts), "files", len(paths))
	return paths, nil
}

func fetchRequest() (pipeline.FetchRequest, error) {
	mode, err := gmail.ParseQueryMode(firstNonEmpty(fetchQueryMode, cfg.Gmail.QueryMode))
	if err != nil {
		return pipeline.FetchRequest{}, err
	}

	req := pipeline.FetchRequest{
		Year:       fetchYear,
		Days:       positiveOr(fetchDays, cfg.Gmail.SearchDays),
		Mode:       mode,
		MaxResults: positiveOr(fetchMax, cfg.Gmail.MaxResults),
		NoScreen:   fetchNoScreen,
	}
	if fetchStart != "" {
		start, err := time.ParseInLocation(time.DateOnly, fetchStart, time.Local)
		if err != nil {
			return pipeline.FetchRequest{}, fmt.Errorf("invalid --start %q: %w", fetchStart, err)
		}
		req.Start = start
	}
	return req, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
