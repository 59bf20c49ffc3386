// Package ingest loads meeting records into the decision store, computing
// one embedding per transcript and one per decision. Ingestion is the only
// write path; the alignment pipeline never writes.
package ingest

import (
	"context"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"

	"github.com/concordhq/concord/pkg/adapter"
	"github.com/concordhq/concord/pkg/model"
	"github.com/concordhq/concord/pkg/repository"
)

// File is the YAML layout of a meeting data file.
type File struct {
	Meetings []MeetingEntry `yaml:"meetings"`
}

type MeetingEntry struct {
	Title        string             `yaml:"title"`
	Date         string             `yaml:"date"`
	Transcript   string             `yaml:"transcript"`
	Decisions    []string           `yaml:"decisions"`
	Participants []ParticipantEntry `yaml:"participants"`
}

type ParticipantEntry struct {
	Name string `yaml:"name"`
	Role string `yaml:"role"`
}

// Load parses a meeting data file and validates the fields ingestion
// depends on.
func Load(r io.Reader) (*File, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, goerr.Wrap(err, "failed to parse meeting data")
	}

	if len(f.Meetings) == 0 {
		return nil, goerr.New("meeting data contains no meetings")
	}
	for _, m := range f.Meetings {
		if m.Title == "" {
			return nil, goerr.New("meeting title is empty")
		}
		if m.Transcript == "" {
			return nil, goerr.New("meeting transcript is empty", goerr.V("title", m.Title))
		}
		if _, err := model.ParseDate(m.Date); err != nil {
			return nil, goerr.Wrap(err, "invalid meeting date", goerr.V("title", m.Title))
		}
	}

	return &f, nil
}

// Stats reports what an ingestion run wrote.
type Stats struct {
	Meetings     int
	Decisions    int
	Participants int
}

// UseCase provides meeting ingestion.
type UseCase struct {
	repo     repository.Repository
	gemini   adapter.Gemini
	progress func(msg string)
}

type Option func(*UseCase)

// WithProgress registers a callback invoked with human-readable progress
// messages, one per embedded item.
func WithProgress(fn func(msg string)) Option {
	return func(uc *UseCase) {
		uc.progress = fn
	}
}

func New(repo repository.Repository, gemini adapter.Gemini, opts ...Option) *UseCase {
	uc := &UseCase{
		repo:     repo,
		gemini:   gemini,
		progress: func(string) {},
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Ingest embeds and stores every meeting in the file. With reset, existing
// data is cleared first so a data file can be re-applied from scratch.
func (u *UseCase) Ingest(ctx context.Context, file *File, reset bool) (*Stats, error) {
	if reset {
		if err := u.repo.Clear(ctx); err != nil {
			return nil, goerr.Wrap(err, "failed to clear store")
		}
	}

	var stats Stats
	for _, entry := range file.Meetings {
		u.progress("embedding transcript: " + entry.Title)
		transcriptVec, err := u.gemini.Embedding(ctx, entry.Transcript)
		if err != nil {
			return nil, goerr.Wrap(model.ErrEmbeddingService, "failed to embed transcript",
				goerr.V("title", entry.Title), goerr.V("cause", err))
		}

		date, err := model.ParseDate(entry.Date)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid meeting date", goerr.V("title", entry.Title))
		}

		meeting := &model.Meeting{
			Title:      entry.Title,
			Date:       date,
			Transcript: entry.Transcript,
			Embedding:  transcriptVec,
		}

		for _, content := range entry.Decisions {
			u.progress("embedding decision: " + content)
			vec, err := u.gemini.Embedding(ctx, content)
			if err != nil {
				return nil, goerr.Wrap(model.ErrEmbeddingService, "failed to embed decision",
					goerr.V("content", content), goerr.V("cause", err))
			}
			meeting.Decisions = append(meeting.Decisions, &model.Decision{
				Content:   content,
				Embedding: vec,
			})
		}

		for _, p := range entry.Participants {
			meeting.Participants = append(meeting.Participants, &model.Participant{
				Name: p.Name,
				Role: p.Role,
			})
		}

		if err := u.repo.PutMeeting(ctx, meeting); err != nil {
			return nil, goerr.Wrap(err, "failed to store meeting", goerr.V("title", entry.Title))
		}

		stats.Meetings++
		stats.Decisions += len(meeting.Decisions)
		stats.Participants += len(meeting.Participants)
	}

	return &stats, nil
}
