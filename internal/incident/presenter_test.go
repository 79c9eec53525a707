package incident

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPriority(t *testing.T) {
	tests := []struct {
		name     string
		priority string
		bucket   Bucket
		icon     Icon
		tone     Tone
	}{
		{name: "high", priority: "1 - High", bucket: BucketCritical, icon: IconWarning, tone: ToneDanger},
		{name: "medium", priority: "2 - Medium", bucket: BucketWarning, icon: IconLightning, tone: ToneCaution},
		{name: "low", priority: "4 - Low", bucket: BucketNormal, icon: IconShield, tone: ToneSafe},
		{name: "empty", priority: "", bucket: BucketNormal, icon: IconShield, tone: ToneSafe},
		{name: "lowercase-high", priority: "critical high", bucket: BucketCritical, icon: IconWarning, tone: ToneDanger},
		{name: "upper-medium", priority: "3 - MEDIUM", bucket: BucketWarning, icon: IconLightning, tone: ToneCaution},
		{name: "high-wins-over-medium", priority: "Medium-High", bucket: BucketCritical, icon: IconWarning, tone: ToneDanger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyPriority(tt.priority)
			assert.Equal(t, tt.bucket, got.Bucket)
			assert.Equal(t, tt.icon, got.Icon)
			assert.Equal(t, tt.tone, got.Tone)
			assert.Equal(t, tt.priority, got.Text)
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	closed := ClassifyStatus("Closed")
	assert.True(t, closed.Closed)
	assert.Equal(t, "Closed", closed.Text)
	assert.Equal(t, IconCheck, closed.Icon)
	assert.Equal(t, ToneSuccess, closed.Tone)

	open := ClassifyStatus("In Progress")
	assert.False(t, open.Closed)
	assert.Equal(t, "In Progress", open.Text)
	assert.Equal(t, IconAlert, open.Icon)
	assert.Equal(t, ToneAttention, open.Tone)

	// exact match only
	lower := ClassifyStatus("closed")
	assert.False(t, lower.Closed)
	assert.Equal(t, "closed", lower.Text)

	empty := ClassifyStatus("")
	assert.False(t, empty.Closed)
	assert.Equal(t, "", empty.Text)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "Disk space low", Summarize("Disk space low - server01 /var"))
	assert.Equal(t, "No delimiter here", Summarize("No delimiter here"))
	assert.Equal(t, "", Summarize(""))
	assert.Equal(t, "", Summarize("- leading"))
}

func TestPresentIsDeterministicApartFromStamp(t *testing.T) {
	record := Record{
		Number:      "INC8740564",
		Description: "CPU spike - payments-api",
		Priority:    "1 - High",
		State:       "Closed",
		OpenedBy:    DisplayRef{DisplayValue: "Jordan Lee"},
	}
	first := Present(record, time.Unix(100, 0))
	second := Present(record, time.Unix(200, 0))

	require.True(t, first.Equal(second))
	assert.Equal(t, "INC8740564", first.Key)
	assert.Equal(t, "CPU spike", first.Summary)
	assert.Equal(t, BucketCritical, first.Priority.Bucket)
	assert.True(t, first.Status.Closed)
	assert.Equal(t, "CPU spike - payments-api", first.Record.Description)
}

func TestPresentAllSkipsNonIncidentRows(t *testing.T) {
	raw := `{
		"query_type": "incident",
		"results": [
			{"record_type": "incident", "incident_details": {"number": "INC1", "priority": "2 - Medium", "state": "New"}},
			{"record_type": "problem"},
			{"incident_details": {"number": "INC2", "state": "Closed", "assigned_to": "Sam Ortiz", "opened_by": null}}
		]
	}`
	var result QueryResult
	require.NoError(t, json.Unmarshal([]byte(raw), &result))

	presented := PresentAll(&result, time.Now())
	require.Len(t, presented, 2)
	assert.Equal(t, "INC1", presented[0].Key)
	assert.Equal(t, BucketWarning, presented[0].Priority.Bucket)
	assert.Equal(t, "New", presented[0].Status.Text)
	assert.Equal(t, "INC2", presented[1].Key)
	assert.Equal(t, "Sam Ortiz", presented[1].Record.AssignedTo.DisplayValue)
	assert.Equal(t, "", presented[1].Record.OpenedBy.DisplayValue)

	assert.Nil(t, PresentAll(nil, time.Now()))
}

func TestDisplayRefDecoding(t *testing.T) {
	var record Record
	raw := `{"opened_by": {"display_value": "Ada", "link": "https://x"}, "assigned_to": "Grace", "assignment_group": {}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &record))
	assert.Equal(t, "Ada", record.OpenedBy.String())
	assert.Equal(t, "Grace", record.AssignedTo.String())
	assert.Equal(t, "", record.AssignmentGroup.String())

	var bad DisplayRef
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &bad))
}

func TestDisplayRefDecodingErrorsAreWrapped(t *testing.T) {
	var ref DisplayRef
	err := ref.UnmarshalJSON([]byte(`[1,2]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "display ref")

	err = ref.UnmarshalJSON([]byte(`"unterminated`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "display ref")
}
