package incident

import (
	"strings"
	"time"
)

// Bucket is the severity class derived from the priority text.
type Bucket int

const (
	BucketNormal Bucket = iota
	BucketWarning
	BucketCritical
)

func (b Bucket) String() string {
	switch b {
	case BucketCritical:
		return "critical"
	case BucketWarning:
		return "warning"
	default:
		return "normal"
	}
}

// Icon names a glyph; renderers decide what it looks like.
type Icon string

const (
	IconWarning   Icon = "warning"
	IconLightning Icon = "lightning"
	IconShield    Icon = "shield"
	IconCheck     Icon = "check"
	IconAlert     Icon = "alert"
)

// Tone names a styling class; renderers map it to colors.
type Tone string

const (
	ToneDanger    Tone = "danger"
	ToneCaution   Tone = "caution"
	ToneSafe      Tone = "safe"
	ToneSuccess   Tone = "success"
	ToneAttention Tone = "attention"
)

const closedState = "Closed"

// Badge is the status pill of an incident card.
type Badge struct {
	Closed bool
	Text   string
	Icon   Icon
	Tone   Tone
}

// PriorityClass is the priority indicator of an incident card.
type PriorityClass struct {
	Bucket Bucket
	Text   string
	Icon   Icon
	Tone   Tone
}

// Presentation is everything a renderer needs to draw one incident card.
// LastUpdated is informational and ignored by Equal.
type Presentation struct {
	Key         string
	Summary     string
	Priority    PriorityClass
	Status      Badge
	Record      Record
	LastUpdated time.Time
}

// Equal compares two presentations ignoring LastUpdated.
func (p Presentation) Equal(other Presentation) bool {
	return p.Key == other.Key &&
		p.Summary == other.Summary &&
		p.Priority == other.Priority &&
		p.Status == other.Status &&
		p.Record == other.Record
}

// ClassifyPriority buckets a priority string. Matching is a case-insensitive
// substring test, "high" first, then "medium".
func ClassifyPriority(priority string) PriorityClass {
	lowered := strings.ToLower(priority)
	switch {
	case strings.Contains(lowered, "high"):
		return PriorityClass{Bucket: BucketCritical, Text: priority, Icon: IconWarning, Tone: ToneDanger}
	case strings.Contains(lowered, "medium"):
		return PriorityClass{Bucket: BucketWarning, Text: priority, Icon: IconLightning, Tone: ToneCaution}
	default:
		return PriorityClass{Bucket: BucketNormal, Text: priority, Icon: IconShield, Tone: ToneSafe}
	}
}

// ClassifyStatus returns the closed badge only for the exact state "Closed";
// every other state, empty included, is echoed verbatim on an open badge.
func ClassifyStatus(state string) Badge {
	if state == closedState {
		return Badge{Closed: true, Text: closedState, Icon: IconCheck, Tone: ToneSuccess}
	}
	return Badge{Text: state, Icon: IconAlert, Tone: ToneAttention}
}

// Summarize returns the description up to the first '-'.
func Summarize(description string) string {
	head, _, _ := strings.Cut(description, "-")
	return strings.TrimSpace(head)
}

// Present derives the presentation of a record. now only feeds LastUpdated.
func Present(record Record, now time.Time) Presentation {
	return Presentation{
		Key:         record.Number,
		Summary:     Summarize(record.Description),
		Priority:    ClassifyPriority(record.Priority),
		Status:      ClassifyStatus(record.State),
		Record:      record,
		LastUpdated: now,
	}
}

// PresentAll presents every incident of a payload in order.
func PresentAll(result *QueryResult, now time.Time) []Presentation {
	records := result.Incidents()
	if len(records) == 0 {
		return nil
	}
	out := make([]Presentation, 0, len(records))
	for _, record := range records {
		out = append(out, Present(record, now))
	}
	return out
}
