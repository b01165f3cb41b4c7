// Package store persists articles, their scores and the user's feedback in PostgreSQL.
//
// Embeddings live in a pgvector column and entities and themes in JSONB. The schema is
// managed by goose migrations embedded in the binary.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/domain"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/internal/store/migrations"
	apperrors "github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/errors"
	"github.com/devanujpatel/New-Curator-AI-Agent/backend/pkg/logger"
)

const (
	// ConnectionRetrySleep is the pause between initial connection attempts
	ConnectionRetrySleep = 2 * time.Second
	maxConnectionRetries = 5

	migrationLockID = 4242
)

const articleColumns = `id, title, description, url, category, published_at, embedding::text,
	reaction, note, entities, themes, interest_score, liking_score, graph_score, final_score, scores_computed`

// PostgresStore is the article and feedback store
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	now    func() time.Time
}

// New connects to dsn, retrying while the database comes up
func New(ctx context.Context, dsn string, log *zap.Logger) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	log = logger.OrDefault(log, "store")

	var pool *pgxpool.Pool
	for i := 0; i < maxConnectionRetries; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return &PostgresStore{pool: pool, logger: log, now: time.Now}, nil
			}
			pool.Close()
		}

		log.Warn("Database not reachable, retrying", zap.Int("attempt", i+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(ConnectionRetrySleep):
		}
	}

	return nil, apperrors.NewExternalServiceError("postgres", fmt.Errorf("connect after retries: %w", err))
}

// Close closes the connection pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}

type gooseLogger struct {
	logger *zap.SugaredLogger
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatalf(format, v...)
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Infof(format, v...)
}

// Migrate applies the embedded migrations. An advisory lock keeps concurrent
// instances from migrating at the same time.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLockID)
	}()

	sqlDB := stdlib.OpenDB(*s.pool.Config().ConnConfig)
	defer func() {
		_ = sqlDB.Close()
	}()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(&gooseLogger{logger: s.logger.Sugar()})

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// DayRange returns the bounds of the local calendar day containing t
func DayRange(t time.Time) (start, end time.Time) {
	y, m, d := t.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

func unavailable(op string, err error) error {
	return apperrors.NewExternalServiceError("postgres", fmt.Errorf("%s: %w", op, err))
}

// TodaysArticles returns the articles published today, best final score first
func (s *PostgresStore) TodaysArticles(ctx context.Context) ([]domain.Article, error) {
	start, end := DayRange(s.now())
	return s.ArticlesBetween(ctx, start, end)
}

// ArticlesBetween returns the articles published in [start, end), best final score first
func (s *PostgresStore) ArticlesBetween(ctx context.Context, start, end time.Time) ([]domain.Article, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE published_at >= $1 AND published_at < $2
		ORDER BY final_score DESC, seq ASC
	`, start, end)
	if err != nil {
		return nil, unavailable("query articles", err)
	}
	defer rows.Close()

	articles := []domain.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate articles", err)
	}

	return articles, nil
}

// ArticleByURL returns the most recent article stored under url
func (s *PostgresStore) ArticleByURL(ctx context.Context, url string) (domain.Article, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE url = $1
		ORDER BY published_at DESC, seq DESC
		LIMIT 1
	`, url)

	a, err := scanArticle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Article{}, apperrors.ErrArticleNotFound
	}
	return a, err
}

// BulkInsert stores a ranked batch in one transaction. Rows keep the order of
// articles. Re-inserting an id replaces the stored row.
func (s *PostgresStore) BulkInsert(ctx context.Context, articles []domain.Article) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return unavailable("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	batch := &pgx.Batch{}
	for _, a := range articles {
		batch.Queue(`
			INSERT INTO articles (id, title, description, url, category, published_at, embedding,
				reaction, note, entities, themes, interest_score, liking_score, graph_score,
				final_score, scores_computed)
			VALUES ($1, $2, $3, $4, $5, $6, $7::vector, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				url = EXCLUDED.url,
				category = EXCLUDED.category,
				published_at = EXCLUDED.published_at,
				embedding = EXCLUDED.embedding,
				reaction = EXCLUDED.reaction,
				note = EXCLUDED.note,
				entities = EXCLUDED.entities,
				themes = EXCLUDED.themes,
				interest_score = EXCLUDED.interest_score,
				liking_score = EXCLUDED.liking_score,
				graph_score = EXCLUDED.graph_score,
				final_score = EXCLUDED.final_score,
				scores_computed = EXCLUDED.scores_computed
		`,
			a.ID, a.Title, a.Description, a.URL, a.Category, a.PublishedAt,
			pgvector.NewVector(a.Embedding), string(orSkipped(a.Reaction)), a.Note,
			entitiesParam(a.Entities), themesParam(a.Themes),
			a.Scores.Interest, a.Scores.Liking, a.Scores.Graph, a.Scores.Final, a.Scores.Computed,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for _, a := range articles {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return unavailable("insert article "+a.ID, err)
		}
	}
	if err := results.Close(); err != nil {
		return unavailable("close batch", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return unavailable("commit transaction", err)
	}

	s.logger.Info("Stored articles", zap.Int("count", len(articles)))
	return nil
}

// LikedEmbeddings returns the embeddings of every article the user liked or loved
func (s *PostgresStore) LikedEmbeddings(ctx context.Context) ([][]float32, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT embedding::text
		FROM articles
		WHERE reaction IN ('like', 'love')
		ORDER BY seq
	`)
	if err != nil {
		return nil, unavailable("query liked embeddings", err)
	}
	defer rows.Close()

	var out [][]float32
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, unavailable("scan liked embedding", err)
		}
		var v pgvector.Vector
		if err := v.Parse(raw); err != nil {
			return nil, fmt.Errorf("parse embedding vector: %w", err)
		}
		out = append(out, v.Slice())
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate liked embeddings", err)
	}

	return out, nil
}

// PurgeToday deletes today's articles and returns their ids
func (s *PostgresStore) PurgeToday(ctx context.Context) ([]string, error) {
	start, end := DayRange(s.now())

	rows, err := s.pool.Query(ctx, `
		DELETE FROM articles
		WHERE published_at >= $1 AND published_at < $2
		RETURNING id
	`, start, end)
	if err != nil {
		return nil, unavailable("purge today", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, unavailable("collect purged ids", err)
	}

	s.logger.Info("Purged today's articles", zap.Int("count", len(ids)))
	return ids, nil
}

// DeleteArticles removes the given ids. Unknown ids are ignored.
func (s *PostgresStore) DeleteArticles(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM articles WHERE id = ANY($1)`, ids); err != nil {
		return unavailable("delete articles", err)
	}
	return nil
}

// UpdateScores overwrites the stored scores of one article
func (s *PostgresStore) UpdateScores(ctx context.Context, id string, scores domain.Scores) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE articles
		SET interest_score = $2, liking_score = $3, graph_score = $4, final_score = $5,
			scores_computed = $6
		WHERE id = $1
	`, id, scores.Interest, scores.Liking, scores.Graph, scores.Final, scores.Computed)
	if err != nil {
		return unavailable("update scores", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrArticleNotFound
	}
	return nil
}

// SetReaction stores the reaction of every article with url
func (s *PostgresStore) SetReaction(ctx context.Context, url string, reaction domain.Reaction) error {
	return s.setFeedback(ctx, "reaction", url, string(orSkipped(reaction)))
}

// SetNote stores the note of every article with url
func (s *PostgresStore) SetNote(ctx context.Context, url, note string) error {
	return s.setFeedback(ctx, "note", url, note)
}

func (s *PostgresStore) setFeedback(ctx context.Context, column, url, value string) error {
	// column is always a literal from this file, never caller input
	tag, err := s.pool.Exec(ctx, `UPDATE articles SET `+column+` = $2 WHERE url = $1`, url, value)
	if err != nil {
		return unavailable("set "+column, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrArticleNotFound
	}
	return nil
}

func scanArticle(row pgx.Row) (domain.Article, error) {
	var (
		a         domain.Article
		embedding string
		reaction  string
	)
	err := row.Scan(
		&a.ID, &a.Title, &a.Description, &a.URL, &a.Category, &a.PublishedAt, &embedding,
		&reaction, &a.Note, &a.Entities, &a.Themes,
		&a.Scores.Interest, &a.Scores.Liking, &a.Scores.Graph, &a.Scores.Final, &a.Scores.Computed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return a, err
		}
		return a, unavailable("scan article", err)
	}

	var v pgvector.Vector
	if err := v.Parse(embedding); err != nil {
		return a, fmt.Errorf("parse embedding vector: %w", err)
	}
	a.Embedding = v.Slice()
	a.Reaction = domain.Reaction(reaction)
	if a.Entities == nil {
		a.Entities = []domain.Entity{}
	}
	if a.Themes == nil {
		a.Themes = []domain.Theme{}
	}
	return a, nil
}

func orSkipped(r domain.Reaction) domain.Reaction {
	if r == "" {
		return domain.ReactionSkipped
	}
	return r
}

// JSONB columns are NOT NULL, so nil slices are written as empty arrays
func entitiesParam(es []domain.Entity) []domain.Entity {
	if es == nil {
		return []domain.Entity{}
	}
	return es
}

func themesParam(ts []domain.Theme) []domain.Theme {
	if ts == nil {
		return []domain.Theme{}
	}
	return ts
}
