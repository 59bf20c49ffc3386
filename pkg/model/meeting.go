package model

import (
	"encoding/json"
	"strings"
	"time"
)

type (
	MeetingID  int64
	DecisionID int64
)

// Date is a calendar date without a time component, rendered as YYYY-MM-DD
// in JSON. Meeting dates carry no timezone semantics.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Meeting is a recorded meeting with its full transcript. The transcript is
// embedded once at ingestion as a single unit and is immutable afterwards
// except by re-ingestion.
type Meeting struct {
	ID         MeetingID
	Title      string
	Date       Date
	Transcript string
	Embedding  []float32
	CreatedAt  time.Time

	Decisions    []*Decision
	Participants []*Participant
}

// Decision is a single atomic directive recorded in a meeting. Decisions are
// the unit of retrieval and are never chunked further.
type Decision struct {
	ID        DecisionID
	MeetingID MeetingID
	Content   string
	Embedding []float32
	CreatedAt time.Time
}

// Participant is informational only; it plays no part in retrieval or
// judgment.
type Participant struct {
	ID        int64
	MeetingID MeetingID
	Name      string
	Role      string
}
