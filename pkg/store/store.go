// Package store persists the gateway's own learning-loop state — answer
// feedback, query corrections, the golden question set, and evaluation
// runs against it — in the gateway's own Postgres database, separate from
// the read-only analytics warehouse pkg/executor queries. Every write is an
// INSERT; nothing here ever UPDATEs or DELETEs a row, so the history stays
// append-only and auditable.
package store

import (
	"context"
	stdsql "database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations
var migrationsFS embed.FS

// Store wraps a pgxpool.Pool opened against the gateway's own database,
// migrated to the current schema on Open.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn, applies any pending migrations, and returns a
// ready-to-use Store. Migrations run through database/sql + golang-migrate,
// matching the teacher's client.go pattern; the pool used for every
// subsequent query is a separate pgxpool.Pool, since golang-migrate only
// speaks database/sql.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if err := runMigrations(dsn); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks connectivity to the store's database, used by the health
// endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func runMigrations(dsn string) error {
	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "store", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return sourceDriver.Close()
}

// FeedbackType enumerates the feedback kinds a user can submit against a
// responded query, ported from feedback_learning.py's feedback_type values.
type FeedbackType string

const (
	FeedbackPositive  FeedbackType = "positive"
	FeedbackNegative  FeedbackType = "negative"
	FeedbackWrongData FeedbackType = "wrong_data"
	FeedbackWrongSQL  FeedbackType = "wrong_logic"
	FeedbackIncomplete FeedbackType = "incomplete"
)

// Feedback is one captured answer-feedback entry.
type Feedback struct {
	ID           int64
	SessionID    string
	Query        string
	SQL          string
	Type         FeedbackType
	Data         map[string]any
	CreatedAt    time.Time
}

// CaptureFeedback records user feedback on a query's result.
func (s *Store) CaptureFeedback(ctx context.Context, f Feedback) error {
	data, err := json.Marshal(f.Data)
	if err != nil {
		return fmt.Errorf("store: marshal feedback data: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO query_feedback (session_id, query, sql, feedback_type, feedback_data)
		VALUES ($1, $2, $3, $4, $5)`,
		f.SessionID, f.Query, f.SQL, string(f.Type), data,
	)
	if err != nil {
		return fmt.Errorf("store: insert feedback: %w", err)
	}
	return nil
}

// Correction is a stored (wrong SQL, fixed SQL) pair with the reason the fix
// was needed, retrievable for similar queries via CorrectionsForQuery.
type Correction struct {
	ID               int64
	OriginalQuery    string
	OriginalSQL      string
	CorrectedSQL     string
	CorrectionReason string
	CreatedAt        time.Time
}

// StoreCorrection records a query correction for future learning.
func (s *Store) StoreCorrection(ctx context.Context, c Correction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO query_corrections (original_query, original_sql, corrected_sql, correction_reason)
		VALUES ($1, $2, $3, $4)`,
		c.OriginalQuery, c.OriginalSQL, c.CorrectedSQL, c.CorrectionReason,
	)
	if err != nil {
		return fmt.Errorf("store: insert correction: %w", err)
	}
	return nil
}

// CorrectionsForQuery returns prior corrections whose original query shares
// at least two words with the given query — the same coarse bag-of-words
// similarity feedback_learning.py's get_corrections_for_query uses, kept
// simple rather than reaching for a semantic-similarity dependency the pack
// doesn't otherwise exercise.
func (s *Store) CorrectionsForQuery(ctx context.Context, query string) ([]Correction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, original_query, original_sql, corrected_sql, correction_reason, created_at
		FROM query_corrections
		ORDER BY created_at DESC
		LIMIT 500`)
	if err != nil {
		return nil, fmt.Errorf("store: query corrections: %w", err)
	}
	defer rows.Close()

	queryWords := wordSet(query)
	var out []Correction
	for rows.Next() {
		var c Correction
		if err := rows.Scan(&c.ID, &c.OriginalQuery, &c.OriginalSQL, &c.CorrectedSQL, &c.CorrectionReason, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan correction: %w", err)
		}
		if sharedWordCount(queryWords, wordSet(c.OriginalQuery)) >= 2 {
			out = append(out, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate corrections: %w", err)
	}
	return out, nil
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func sharedWordCount(a, b map[string]bool) int {
	count := 0
	for w := range a {
		if b[w] {
			count++
		}
	}
	return count
}

// GoldenQuestion is one reviewed (question, SQL) pair used to evaluate
// template/LLM generation quality over time.
type GoldenQuestion struct {
	ID          int64
	Question    string
	SQL         string
	Category    string
	ValidatedBy string
	CreatedAt   time.Time
}

// AddGoldenQuestion adds a reviewed question to the golden set.
func (s *Store) AddGoldenQuestion(ctx context.Context, g GoldenQuestion) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO golden_questions (question, sql, category, validated_by)
		VALUES ($1, $2, $3, $4)`,
		g.Question, g.SQL, g.Category, g.ValidatedBy,
	)
	if err != nil {
		return fmt.Errorf("store: insert golden question: %w", err)
	}
	return nil
}

// GoldenQuestions returns the golden question set, optionally filtered by
// category. An empty category returns every question.
func (s *Store) GoldenQuestions(ctx context.Context, category string) ([]GoldenQuestion, error) {
	if category == "" {
		return s.queryGoldenQuestions(ctx, `
			SELECT id, question, sql, category, validated_by, created_at
			FROM golden_questions ORDER BY created_at`)
	}
	return s.queryGoldenQuestions(ctx, `
		SELECT id, question, sql, category, validated_by, created_at
		FROM golden_questions WHERE category = $1 ORDER BY created_at`, category)
}

func (s *Store) queryGoldenQuestions(ctx context.Context, sql string, args ...any) ([]GoldenQuestion, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query golden questions: %w", err)
	}
	defer rows.Close()

	var out []GoldenQuestion
	for rows.Next() {
		var g GoldenQuestion
		if err := rows.Scan(&g.ID, &g.Question, &g.SQL, &g.Category, &g.ValidatedBy, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan golden question: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate golden questions: %w", err)
	}
	return out, nil
}

// RecordEvaluation logs one evaluation run of the generator against a
// golden question, so accuracy drift is visible over time.
func (s *Store) RecordEvaluation(ctx context.Context, goldenQuestionID int64, generatedSQL string, matched bool, confidence float64, source string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO evaluation_runs (golden_question_id, generated_sql, matched, confidence, source)
		VALUES ($1, $2, $3, $4, $5)`,
		goldenQuestionID, generatedSQL, matched, confidence, source,
	)
	if err != nil {
		return fmt.Errorf("store: insert evaluation run: %w", err)
	}
	return nil
}
