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

// Package storage persists raw emails and extracted flights. JSON files under
// a data directory are the primary sink; Postgres and the Redis queue are
// optional extra sinks for flights.
package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/flightscan/flightscan/internal/models"
)

const (
	rawDir       = "raw_emails"
	processedDir = "processed"
	stampLayout  = "20060102_150405"
)

var emailFileRe = regexp.MustCompile(`^emails_(\d{4})_\d{8}_\d{6}\.json$`)

// FileStore reads and writes JSON envelopes under a data directory.
type FileStore struct {
	root string
	now  func() time.Time
}

// NewFileStore creates a file store rooted at dataDir. Directories are created
// lazily on first write.
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{root: dataDir, now: time.Now}
}

// RawDir is the directory holding fetched email batches.
func (s *FileStore) RawDir() string { return filepath.Join(s.root, rawDir) }

// ProcessedDir is the directory holding flight outputs.
func (s *FileStore) ProcessedDir() string { return filepath.Join(s.root, processedDir) }

// SaveEmails writes a batch of emails for year and returns the file path.
func (s *FileStore) SaveEmails(emails []models.RawEmail, year int) (string, error) {
	if emails == nil {
		emails = []models.RawEmail{}
	}
	now := s.now()
	file := models.EmailFile{
		Metadata: models.EmailFileMetadata{
			FetchDate:  now.Format(time.RFC3339),
			Year:       year,
			EmailCount: len(emails),
		},
		Emails: emails,
	}

	path := filepath.Join(s.RawDir(), fmt.Sprintf("emails_%d_%s.json", year, now.Format(stampLayout)))
	if err := writeJSON(path, file); err != nil {
		return "", fmt.Errorf("save emails: %w", err)
	}
	slog.Info("saved emails", "path", path, "count", len(emails))
	return path, nil
}

// LoadEmails loads stored emails. An explicit file wins; otherwise every
// batch for year is concatenated in file-name order; with neither, every
// batch is loaded. Missing or malformed files yield no emails.
func (s *FileStore) LoadEmails(year *int, file string) []models.RawEmail {
	if file != "" {
		return s.loadEmailFile(s.resolve(file))
	}

	paths := s.EmailFiles(year)
	var out []models.RawEmail
	for _, p := range paths {
		out = append(out, s.loadEmailFile(p)...)
	}
	slog.Info("loaded emails", "files", len(paths), "count", len(out))
	return out
}

// EmailFiles lists stored batches, optionally only those for year, sorted by
// name (and so by fetch time within a year).
func (s *FileStore) EmailFiles(year *int) []string {
	entries, err := os.ReadDir(s.RawDir())
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("read raw email dir failed", "dir", s.RawDir(), "error", err)
		}
		return nil
	}

	var paths []string
	for _, e := range entries {
		m := emailFileRe.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		if year != nil && m[1] != strconv.Itoa(*year) {
			continue
		}
		paths = append(paths, filepath.Join(s.RawDir(), e.Name()))
	}
	sort.Strings(paths)
	return paths
}

// LatestEmailFile returns the most recent batch for year, or "" if none.
func (s *FileStore) LatestEmailFile(year int) string {
	paths := s.EmailFiles(&year)
	if len(paths) == 0 {
		return ""
	}
	return paths[len(paths)-1]
}

// AvailableYears lists the years that have stored batches, ascending.
func (s *FileStore) AvailableYears() []int {
	seen := map[int]bool{}
	for _, p := range s.EmailFiles(nil) {
		m := emailFileRe.FindStringSubmatch(filepath.Base(p))
		if y, err := strconv.Atoi(m[1]); err == nil {
			seen[y] = true
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// SaveFlights writes the flights of one processing run to FlightsPath. A nil
// year writes flights_all.json.
func (s *FileStore) SaveFlights(flights []models.FlightRecord, meta models.FlightFileMetadata) (string, error) {
	return s.SaveFlightsTo(s.FlightsPath(meta.Year), flights, meta)
}

// SaveFlightsTo writes the flights of one processing run to path.
func (s *FileStore) SaveFlightsTo(path string, flights []models.FlightRecord, meta models.FlightFileMetadata) (string, error) {
	if flights == nil {
		flights = []models.FlightRecord{}
	}
	if meta.ProcessDate == "" {
		meta.ProcessDate = s.now().Format(time.RFC3339)
	}
	meta.FlightCount = len(flights)

	if err := writeJSON(path, models.FlightFile{Metadata: meta, Flights: flights}); err != nil {
		return "", fmt.Errorf("save flights: %w", err)
	}
	slog.Info("saved flights", "path", path, "count", len(flights))
	return path, nil
}

// FlightsPath is where SaveFlights writes for year.
func (s *FileStore) FlightsPath(year *int) string {
	name := "flights_all.json"
	if year != nil {
		name = fmt.Sprintf("flights_%d.json", *year)
	}
	return filepath.Join(s.ProcessedDir(), name)
}

// LoadFlights reads a flight file written by SaveFlights. Missing or
// malformed files yield an empty envelope.
func (s *FileStore) LoadFlights(year *int) models.FlightFile {
	var f models.FlightFile
	path := s.FlightsPath(year)
	if err := readJSON(path, &f); err != nil {
		logLoadError(path, err)
		return models.FlightFile{}
	}
	return f
}

func (s *FileStore) loadEmailFile(path string) []models.RawEmail {
	var f models.EmailFile
	if err := readJSON(path, &f); err != nil {
		logLoadError(path, err)
		return nil
	}
	return f.Emails
}

// resolve treats bare names as relative to the raw email directory.
func (s *FileStore) resolve(file string) string {
	if filepath.IsAbs(file) || strings.ContainsRune(file, filepath.Separator) {
		return file
	}
	if _, err := os.Stat(file); err == nil {
		return file
	}
	return filepath.Join(s.RawDir(), file)
}

func logLoadError(path string, err error) {
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("file not found", "path", path)
		return
	}
	slog.Error("failed to load file", "path", path, "error", err)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
