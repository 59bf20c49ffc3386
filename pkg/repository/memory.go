package repository

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/concordhq/concord/pkg/model"
)

// Memory is an in-memory Repository for tests and local runs without a
// database. The first inserted vector fixes the store's dimensionality;
// anything of a different size is rejected afterwards.
type Memory struct {
	mu        sync.RWMutex
	meetings  map[model.MeetingID]*model.Meeting
	dimension int
	nextID    int64
}

func NewMemory() *Memory {
	return &Memory{
		meetings: make(map[model.MeetingID]*model.Meeting),
	}
}

func (r *Memory) checkDimension(v []float32) error {
	if r.dimension == 0 {
		r.dimension = len(v)
	}
	if len(v) != r.dimension {
		return goerr.New("embedding dimension mismatch",
			goerr.V("want", r.dimension), goerr.V("got", len(v)))
	}
	return nil
}

func (r *Memory) assignID() int64 {
	r.nextID++
	return r.nextID
}

func (r *Memory) PutMeeting(ctx context.Context, meeting *model.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkDimension(meeting.Embedding); err != nil {
		return err
	}
	for _, d := range meeting.Decisions {
		if err := r.checkDimension(d.Embedding); err != nil {
			return err
		}
	}

	now := time.Now()
	meeting.ID = model.MeetingID(r.assignID())
	if meeting.CreatedAt.IsZero() {
		meeting.CreatedAt = now
	}
	for _, d := range meeting.Decisions {
		d.ID = model.DecisionID(r.assignID())
		d.MeetingID = meeting.ID
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
	}
	for _, p := range meeting.Participants {
		p.ID = r.assignID()
		p.MeetingID = meeting.ID
	}

	r.meetings[meeting.ID] = meeting
	return nil
}

func (r *Memory) GetMeeting(ctx context.Context, id model.MeetingID) (*model.Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.meetings[id]
	if !ok {
		return nil, goerr.New("meeting not found", goerr.V("id", id))
	}
	return m, nil
}

func (r *Memory) ListMeetings(ctx context.Context) ([]*model.Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meetings := make([]*model.Meeting, 0, len(r.meetings))
	for _, m := range r.meetings {
		meetings = append(meetings, m)
	}
	sort.Slice(meetings, func(i, j int) bool { return meetings[i].ID < meetings[j].ID })
	return meetings, nil
}

// DeleteMeeting removes the meeting and everything it owns, mirroring the
// SQL cascade.
func (r *Memory) DeleteMeeting(ctx context.Context, id model.MeetingID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.meetings[id]; !ok {
		return goerr.New("meeting not found", goerr.V("id", id))
	}
	delete(r.meetings, id)
	return nil
}

func (r *Memory) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.meetings = make(map[model.MeetingID]*model.Meeting)
	return nil
}

func (r *Memory) SearchDecisions(ctx context.Context, embedding []float32, limit int) ([]*Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.dimension != 0 && len(embedding) != r.dimension {
		return nil, goerr.New("embedding dimension mismatch",
			goerr.V("want", r.dimension), goerr.V("got", len(embedding)))
	}
	if limit <= 0 {
		return nil, goerr.New("limit must be positive", goerr.V("limit", limit))
	}

	var matches []*Match
	for _, m := range r.meetings {
		for _, d := range m.Decisions {
			matches = append(matches, &Match{
				Decision:     d,
				MeetingTitle: m.Title,
				MeetingDate:  m.Date,
				Similarity:   cosineSimilarity(embedding, d.Embedding),
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Decision.ID < matches[j].Decision.ID
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (r *Memory) Ping(ctx context.Context) error {
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
