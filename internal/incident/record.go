// Package incident holds the incident records returned by the query backend
// and the pure derivation of their presentation attributes.
package incident

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// DisplayRef is a reference field rendered through its display value.
// The backend sends either {"display_value": "..."}, a bare string or null.
type DisplayRef struct {
	DisplayValue string `json:"display_value" yaml:"display_value"`
}

func (r *DisplayRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = DisplayRef{}
		return nil
	}
	if trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return errors.Wrap(err, "display ref")
		}
		*r = DisplayRef{DisplayValue: value}
		return nil
	}
	var obj struct {
		DisplayValue *string `json:"display_value"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return errors.Wrap(err, "display ref")
	}
	*r = DisplayRef{}
	if obj.DisplayValue != nil {
		r.DisplayValue = *obj.DisplayValue
	}
	return nil
}

func (r DisplayRef) String() string {
	return r.DisplayValue
}

// Record is a single incident as returned in raw_data.results[].incident_details.
type Record struct {
	Number          string     `json:"number" yaml:"number"`
	Description     string     `json:"description" yaml:"description"`
	Priority        string     `json:"priority" yaml:"priority"`
	State           string     `json:"state" yaml:"state"`
	Opened          string     `json:"opened,omitempty" yaml:"opened,omitempty"`
	OpenedBy        DisplayRef `json:"opened_by" yaml:"opened_by"`
	AssignedTo      DisplayRef `json:"assigned_to" yaml:"assigned_to"`
	AssignmentGroup DisplayRef `json:"assignment_group" yaml:"assignment_group"`
}

// ResultEntry wraps one result row. Rows without incident details (problem
// records, error rows) are carried but not presented.
type ResultEntry struct {
	RecordType      string  `json:"record_type,omitempty"`
	IncidentDetails *Record `json:"incident_details,omitempty"`
}

// QueryResult is the structured payload (raw_data) attached to an answer.
type QueryResult struct {
	QueryType    string        `json:"query_type,omitempty"`
	Explanation  string        `json:"explanation,omitempty"`
	TotalResults int           `json:"total_results,omitempty"`
	Results      []ResultEntry `json:"results,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// Incidents returns the incident records of the payload in order.
func (q *QueryResult) Incidents() []Record {
	if q == nil {
		return nil
	}
	out := make([]Record, 0, len(q.Results))
	for _, entry := range q.Results {
		if entry.IncidentDetails == nil {
			continue
		}
		out = append(out, *entry.IncidentDetails)
	}
	return out
}
