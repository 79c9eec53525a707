// Package fixture serves canned incident answers over the same HTTP contract
// as the natural-language backend, so the console can run without it.
package fixture

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"incidentdesk/internal/incident"
)

//go:embed incidents.yaml
var defaultIncidents []byte

var incidentNumberPattern = regexp.MustCompile(`(?i)\bINC\d+\b`)

var priorityWords = []string{"high", "medium", "moderate", "low"}

type catalogFile struct {
	Incidents []incident.Record `yaml:"incidents"`
}

// Catalog is an immutable list of incidents loaded from YAML.
type Catalog struct {
	incidents []incident.Record
}

func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "parse incident fixtures")
	}
	seen := make(map[string]struct{}, len(file.Incidents))
	for i, rec := range file.Incidents {
		number := strings.TrimSpace(rec.Number)
		if number == "" {
			return nil, errors.Newf("incident fixture %d has no number", i)
		}
		key := strings.ToUpper(number)
		if _, dup := seen[key]; dup {
			return nil, errors.Newf("duplicate incident fixture %s", number)
		}
		seen[key] = struct{}{}
	}
	return &Catalog{incidents: file.Incidents}, nil
}

// Load reads fixtures from path, or the built-in set when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(defaultIncidents)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read fixtures %s", path)
	}
	return Parse(data)
}

func (c *Catalog) Len() int {
	return len(c.incidents)
}

// Match picks fixtures for a question. Incident numbers mentioned in the
// question win; otherwise priority words filter; otherwise everything.
func (c *Catalog) Match(question string) []incident.Record {
	if numbers := incidentNumberPattern.FindAllString(question, -1); len(numbers) > 0 {
		wanted := make(map[string]struct{}, len(numbers))
		for _, n := range numbers {
			wanted[strings.ToUpper(n)] = struct{}{}
		}
		out := make([]incident.Record, 0, len(wanted))
		for _, rec := range c.incidents {
			if _, ok := wanted[strings.ToUpper(rec.Number)]; ok {
				out = append(out, rec)
			}
		}
		return out
	}

	lowered := strings.ToLower(question)
	var words []string
	for _, word := range priorityWords {
		if strings.Contains(lowered, word) {
			words = append(words, word)
		}
	}
	if len(words) == 0 {
		return append([]incident.Record(nil), c.incidents...)
	}
	out := make([]incident.Record, 0, len(c.incidents))
	for _, rec := range c.incidents {
		priority := strings.ToLower(rec.Priority)
		for _, word := range words {
			if strings.Contains(priority, word) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// Result wraps matched records in the raw_data shape.
func Result(records []incident.Record) *incident.QueryResult {
	result := &incident.QueryResult{
		QueryType:    "incident",
		Explanation:  "fixture lookup",
		TotalResults: len(records),
		Results:      make([]incident.ResultEntry, 0, len(records)),
	}
	for i := range records {
		rec := records[i]
		result.Results = append(result.Results, incident.ResultEntry{RecordType: "incident", IncidentDetails: &rec})
	}
	return result
}

// Format renders the human-readable answer for matched records.
func Format(records []incident.Record) string {
	if len(records) == 0 {
		return "No incidents matched your question."
	}
	var b strings.Builder
	noun := "incidents"
	if len(records) == 1 {
		noun = "incident"
	}
	fmt.Fprintf(&b, "Found %d %s.", len(records), noun)
	for _, rec := range records {
		fmt.Fprintf(&b, "\n- %s: %s (priority %s, state %s)",
			rec.Number,
			incident.Summarize(rec.Description),
			nonEmpty(rec.Priority, "unknown"),
			nonEmpty(rec.State, "unknown"),
		)
	}
	return b.String()
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
