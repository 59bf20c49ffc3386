package repository

import (
	"context"

	"github.com/concordhq/concord/pkg/model"
)

// Match is one retrieval candidate: a decision joined with its owning
// meeting, plus the cosine similarity against the query vector.
type Match struct {
	Decision     *model.Decision
	MeetingTitle string
	MeetingDate  model.Date
	Similarity   float64
}

// Repository defines the decision store. The alignment pipeline only ever
// reads from it; writes happen through ingestion.
type Repository interface {
	// PutMeeting stores a meeting together with its decisions and
	// participants, assigning their IDs. Every embedding must match the
	// store's dimensionality.
	PutMeeting(ctx context.Context, meeting *model.Meeting) error

	// GetMeeting retrieves a meeting with its decisions and participants.
	GetMeeting(ctx context.Context, id model.MeetingID) (*model.Meeting, error)

	// ListMeetings retrieves all meetings without embeddings or children.
	ListMeetings(ctx context.Context) ([]*model.Meeting, error)

	// DeleteMeeting removes a meeting and, by cascade, its decisions and
	// participants.
	DeleteMeeting(ctx context.Context, id model.MeetingID) error

	// Clear removes all stored data. Used before re-seeding.
	Clear(ctx context.Context) error

	// SearchDecisions returns up to limit decisions ordered by descending
	// cosine similarity to the query vector, ties broken by smaller
	// decision ID. An empty store yields an empty slice, not an error.
	SearchDecisions(ctx context.Context, embedding []float32, limit int) ([]*Match, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}
