package repository_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/concordhq/concord/pkg/model"
	"github.com/concordhq/concord/pkg/repository"
)

func seedMemory(t *testing.T) *repository.Memory {
	t.Helper()
	repo := repository.NewMemory()
	ctx := context.Background()

	meeting := &model.Meeting{
		Title:      "Q1 All-Hands",
		Date:       model.NewDate(2025, 1, 15),
		Transcript: "we are pausing consumer work",
		Embedding:  []float32{0.1, 0.2, 0.3},
		Decisions: []*model.Decision{
			{Content: "Mobile app redesign is on hold indefinitely", Embedding: []float32{1, 0, 0}},
			{Content: "SSO integration is top priority", Embedding: []float32{0, 1, 0}},
			{Content: "No consumer features this quarter", Embedding: []float32{1, 0, 0}},
		},
		Participants: []*model.Participant{
			{Name: "Sarah Chen", Role: "CEO"},
		},
	}
	gt.NoError(t, repo.PutMeeting(ctx, meeting))
	return repo
}

func TestMemorySearchOrdering(t *testing.T) {
	repo := seedMemory(t)
	ctx := context.Background()

	// Closer to the first axis than the second.
	query := []float32{0.9, 0.1, 0}

	matches, err := repo.SearchDecisions(ctx, query, 10)
	gt.NoError(t, err)
	gt.A(t, matches).Length(3)

	for i := 1; i < len(matches); i++ {
		if matches[i].Similarity > matches[i-1].Similarity {
			t.Errorf("similarity not descending at %d: %f > %f", i, matches[i].Similarity, matches[i-1].Similarity)
		}
	}

	// Decisions 1 and 3 share the same embedding; the smaller ID wins the tie.
	gt.Equal(t, matches[0].Decision.Content, "Mobile app redesign is on hold indefinitely")
	gt.Equal(t, matches[1].Decision.Content, "No consumer features this quarter")
	gt.True(t, matches[0].Decision.ID < matches[1].Decision.ID)

	// Identical query, identical ordering.
	again, err := repo.SearchDecisions(ctx, query, 10)
	gt.NoError(t, err)
	gt.A(t, again).Length(3)
	for i := range matches {
		gt.Equal(t, again[i].Decision.ID, matches[i].Decision.ID)
		gt.Equal(t, again[i].Similarity, matches[i].Similarity)
	}
}

func TestMemorySearchCarriesMeetingInfo(t *testing.T) {
	repo := seedMemory(t)

	matches, err := repo.SearchDecisions(context.Background(), []float32{1, 0, 0}, 1)
	gt.NoError(t, err)
	gt.A(t, matches).Length(1)
	gt.Equal(t, matches[0].MeetingTitle, "Q1 All-Hands")
	gt.Equal(t, matches[0].MeetingDate.String(), "2025-01-15")
	gt.True(t, matches[0].Similarity > 0.99)
}

func TestMemorySearchEmptyStore(t *testing.T) {
	repo := repository.NewMemory()

	matches, err := repo.SearchDecisions(context.Background(), []float32{1, 0, 0}, 4)
	gt.NoError(t, err)
	gt.A(t, matches).Length(0)
}

func TestMemoryDimensionMismatch(t *testing.T) {
	repo := seedMemory(t)
	ctx := context.Background()

	_, err := repo.SearchDecisions(ctx, []float32{1, 0}, 4)
	gt.Error(t, err)

	err = repo.PutMeeting(ctx, &model.Meeting{
		Title:      "Bad dims",
		Date:       model.NewDate(2025, 3, 1),
		Transcript: "x",
		Embedding:  []float32{1, 0, 0, 0},
	})
	gt.Error(t, err)
}

func TestMemoryDeleteCascades(t *testing.T) {
	repo := seedMemory(t)
	ctx := context.Background()

	meetings, err := repo.ListMeetings(ctx)
	gt.NoError(t, err)
	gt.A(t, meetings).Length(1)

	gt.NoError(t, repo.DeleteMeeting(ctx, meetings[0].ID))

	matches, err := repo.SearchDecisions(ctx, []float32{1, 0, 0}, 4)
	gt.NoError(t, err)
	gt.A(t, matches).Length(0)

	gt.Error(t, repo.DeleteMeeting(ctx, meetings[0].ID))
}

func TestMemoryClear(t *testing.T) {
	repo := seedMemory(t)
	ctx := context.Background()

	gt.NoError(t, repo.Clear(ctx))

	meetings, err := repo.ListMeetings(ctx)
	gt.NoError(t, err)
	gt.A(t, meetings).Length(0)
}

func TestMemoryGetMeeting(t *testing.T) {
	repo := seedMemory(t)
	ctx := context.Background()

	meetings, err := repo.ListMeetings(ctx)
	gt.NoError(t, err)

	m, err := repo.GetMeeting(ctx, meetings[0].ID)
	gt.NoError(t, err)
	gt.A(t, m.Decisions).Length(3)
	gt.A(t, m.Participants).Length(1)
	for _, d := range m.Decisions {
		gt.Equal(t, d.MeetingID, m.ID)
	}

	_, err = repo.GetMeeting(ctx, model.MeetingID(999))
	gt.Error(t, err)
}
