package repository_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/concordhq/concord/pkg/model"
	"github.com/concordhq/concord/pkg/repository"
)

func setupPostgres(t *testing.T) *repository.Postgres {
	dsn := os.Getenv("TEST_CONCORD_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_CONCORD_DATABASE_URL must be set to run Postgres tests")
	}

	ctx := context.Background()
	repo, err := repository.NewPostgres(ctx, dsn, 3)
	gt.NoError(t, err)
	t.Cleanup(repo.Close)

	gt.NoError(t, repo.Migrate(ctx))
	gt.NoError(t, repo.Clear(ctx))

	return repo
}

func pivotMeeting() *model.Meeting {
	return &model.Meeting{
		Title:      "Q1 All-Hands: Strategic Pivot",
		Date:       model.NewDate(2025, 1, 15),
		Transcript: "We are pivoting to enterprise customers.",
		Embedding:  []float32{0.5, 0.5, 0},
		Decisions: []*model.Decision{
			{Content: "Mobile app redesign is on hold indefinitely", Embedding: []float32{1, 0, 0}},
			{Content: "Top priorities: SSO integration, enterprise dashboard, admin controls", Embedding: []float32{0, 1, 0}},
		},
		Participants: []*model.Participant{
			{Name: "Sarah Chen", Role: "CEO"},
		},
	}
}

func TestPostgresPutAndGetMeeting(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	meeting := pivotMeeting()
	gt.NoError(t, repo.PutMeeting(ctx, meeting))
	gt.True(t, meeting.ID > 0)

	stored, err := repo.GetMeeting(ctx, meeting.ID)
	gt.NoError(t, err)
	gt.Equal(t, stored.Title, meeting.Title)
	gt.Equal(t, stored.Date.String(), "2025-01-15")
	gt.A(t, stored.Decisions).Length(2)
	gt.A(t, stored.Participants).Length(1)
	gt.Equal(t, stored.Participants[0].Name, "Sarah Chen")
}

func TestPostgresSearchDecisions(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	gt.NoError(t, repo.PutMeeting(ctx, pivotMeeting()))

	matches, err := repo.SearchDecisions(ctx, []float32{1, 0, 0}, 4)
	gt.NoError(t, err)
	gt.A(t, matches).Length(2)

	gt.Equal(t, matches[0].Decision.Content, "Mobile app redesign is on hold indefinitely")
	gt.Equal(t, matches[0].MeetingTitle, "Q1 All-Hands: Strategic Pivot")
	gt.Equal(t, matches[0].MeetingDate.String(), "2025-01-15")
	gt.True(t, matches[0].Similarity > 0.99)
	gt.True(t, matches[0].Similarity > matches[1].Similarity)
}

func TestPostgresSearchEmptyStore(t *testing.T) {
	repo := setupPostgres(t)

	matches, err := repo.SearchDecisions(context.Background(), []float32{1, 0, 0}, 4)
	gt.NoError(t, err)
	gt.A(t, matches).Length(0)
}

func TestPostgresDeleteCascades(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	meeting := pivotMeeting()
	gt.NoError(t, repo.PutMeeting(ctx, meeting))
	gt.NoError(t, repo.DeleteMeeting(ctx, meeting.ID))

	_, err := repo.GetMeeting(ctx, meeting.ID)
	gt.Error(t, err)

	matches, err := repo.SearchDecisions(ctx, []float32{1, 0, 0}, 4)
	gt.NoError(t, err)
	gt.A(t, matches).Length(0)
}

func TestPostgresDimensionMismatch(t *testing.T) {
	repo := setupPostgres(t)

	meeting := pivotMeeting()
	meeting.Embedding = []float32{1, 0}
	gt.Error(t, repo.PutMeeting(context.Background(), meeting))
}
