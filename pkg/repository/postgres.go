package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/concordhq/concord/pkg/model"
)

// Postgres implements Repository on PostgreSQL with pgvector. Nearest
// neighbor search runs over an HNSW cosine index; HNSW works on empty tables,
// which keeps cold starts and re-seeding safe.
type Postgres struct {
	pool      *pgxpool.Pool
	dimension int
}

// NewPostgres connects to the database and registers pgvector codecs on every
// pooled connection.
func NewPostgres(ctx context.Context, dsn string, dimension int) (*Postgres, error) {
	if dimension <= 0 {
		return nil, goerr.New("embedding dimension must be positive", goerr.V("dimension", dimension))
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse database URL")
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create connection pool")
	}

	return &Postgres{pool: pool, dimension: dimension}, nil
}

// Migrate provisions the schema: tables, cascade foreign keys, and HNSW
// cosine indexes over both embedding columns.
func (r *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS meetings (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			date DATE NOT NULL,
			transcript TEXT NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, r.dimension),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS decisions (
			id BIGSERIAL PRIMARY KEY,
			meeting_id BIGINT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, r.dimension),
		`CREATE TABLE IF NOT EXISTS participants (
			id BIGSERIAL PRIMARY KEY,
			meeting_id BIGINT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			role TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS meetings_embedding_idx ON meetings USING hnsw (embedding vector_cosine_ops)`,
		`CREATE INDEX IF NOT EXISTS decisions_embedding_idx ON decisions USING hnsw (embedding vector_cosine_ops)`,
	}

	for _, stmt := range stmts {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return goerr.Wrap(err, "failed to run migration statement", goerr.V("stmt", stmt))
		}
	}
	return nil
}

func (r *Postgres) checkDimension(v []float32) error {
	if len(v) != r.dimension {
		return goerr.New("embedding dimension mismatch",
			goerr.V("want", r.dimension), goerr.V("got", len(v)))
	}
	return nil
}

func (r *Postgres) PutMeeting(ctx context.Context, meeting *model.Meeting) error {
	if err := r.checkDimension(meeting.Embedding); err != nil {
		return err
	}
	for _, d := range meeting.Decisions {
		if err := r.checkDimension(d.Embedding); err != nil {
			return err
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now()
	if meeting.CreatedAt.IsZero() {
		meeting.CreatedAt = now
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO meetings (title, date, transcript, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		meeting.Title, meeting.Date.Time, meeting.Transcript,
		pgvector.NewVector(meeting.Embedding), meeting.CreatedAt,
	).Scan(&meeting.ID)
	if err != nil {
		return goerr.Wrap(err, "failed to insert meeting", goerr.V("title", meeting.Title))
	}

	for _, d := range meeting.Decisions {
		d.MeetingID = meeting.ID
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
		err := tx.QueryRow(ctx,
			`INSERT INTO decisions (meeting_id, content, embedding, created_at)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			d.MeetingID, d.Content, pgvector.NewVector(d.Embedding), d.CreatedAt,
		).Scan(&d.ID)
		if err != nil {
			return goerr.Wrap(err, "failed to insert decision", goerr.V("content", d.Content))
		}
	}

	for _, p := range meeting.Participants {
		p.MeetingID = meeting.ID
		err := tx.QueryRow(ctx,
			`INSERT INTO participants (meeting_id, name, role)
			 VALUES ($1, $2, $3) RETURNING id`,
			p.MeetingID, p.Name, p.Role,
		).Scan(&p.ID)
		if err != nil {
			return goerr.Wrap(err, "failed to insert participant", goerr.V("name", p.Name))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return goerr.Wrap(err, "failed to commit meeting")
	}
	return nil
}

func (r *Postgres) GetMeeting(ctx context.Context, id model.MeetingID) (*model.Meeting, error) {
	var m model.Meeting
	var date time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, date, transcript, created_at FROM meetings WHERE id = $1`, id,
	).Scan(&m.ID, &m.Title, &date, &m.Transcript, &m.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, goerr.New("meeting not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get meeting")
	}
	m.Date = model.Date{Time: date}

	rows, err := r.pool.Query(ctx,
		`SELECT id, meeting_id, content, created_at FROM decisions WHERE meeting_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query decisions")
	}
	defer rows.Close()
	for rows.Next() {
		var d model.Decision
		if err := rows.Scan(&d.ID, &d.MeetingID, &d.Content, &d.CreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan decision")
		}
		m.Decisions = append(m.Decisions, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to read decisions")
	}

	prows, err := r.pool.Query(ctx,
		`SELECT id, meeting_id, name, COALESCE(role, '') FROM participants WHERE meeting_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query participants")
	}
	defer prows.Close()
	for prows.Next() {
		var p model.Participant
		if err := prows.Scan(&p.ID, &p.MeetingID, &p.Name, &p.Role); err != nil {
			return nil, goerr.Wrap(err, "failed to scan participant")
		}
		m.Participants = append(m.Participants, &p)
	}
	if err := prows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to read participants")
	}

	return &m, nil
}

func (r *Postgres) ListMeetings(ctx context.Context) ([]*model.Meeting, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, date, transcript, created_at FROM meetings ORDER BY date, id`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query meetings")
	}
	defer rows.Close()

	var meetings []*model.Meeting
	for rows.Next() {
		var m model.Meeting
		var date time.Time
		if err := rows.Scan(&m.ID, &m.Title, &date, &m.Transcript, &m.CreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan meeting")
		}
		m.Date = model.Date{Time: date}
		meetings = append(meetings, &m)
	}
	return meetings, rows.Err()
}

func (r *Postgres) DeleteMeeting(ctx context.Context, id model.MeetingID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return goerr.Wrap(err, "failed to delete meeting")
	}
	if tag.RowsAffected() == 0 {
		return goerr.New("meeting not found", goerr.V("id", id))
	}
	return nil
}

func (r *Postgres) Clear(ctx context.Context) error {
	// meetings cascade to decisions and participants
	if _, err := r.pool.Exec(ctx, `DELETE FROM meetings`); err != nil {
		return goerr.Wrap(err, "failed to clear store")
	}
	return nil
}

func (r *Postgres) SearchDecisions(ctx context.Context, embedding []float32, limit int) ([]*Match, error) {
	if err := r.checkDimension(embedding); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, goerr.New("limit must be positive", goerr.V("limit", limit))
	}

	rows, err := r.pool.Query(ctx,
		`SELECT d.id, d.meeting_id, d.content, m.title, m.date,
		        1 - (d.embedding <=> $1) AS similarity
		 FROM decisions d
		 JOIN meetings m ON d.meeting_id = m.id
		 ORDER BY d.embedding <=> $1, d.id
		 LIMIT $2`,
		pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search decisions")
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		var d model.Decision
		var title string
		var date time.Time
		var similarity float64
		if err := rows.Scan(&d.ID, &d.MeetingID, &d.Content, &title, &date, &similarity); err != nil {
			return nil, goerr.Wrap(err, "failed to scan match")
		}
		matches = append(matches, &Match{
			Decision:     &d,
			MeetingTitle: title,
			MeetingDate:  model.Date{Time: date},
			Similarity:   similarity,
		})
	}
	return matches, rows.Err()
}

func (r *Postgres) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return goerr.Wrap(err, "database is not reachable")
	}
	return nil
}

// Close releases the connection pool.
func (r *Postgres) Close() {
	r.pool.Close()
}
