package history

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ Store = &Postgres{}

// OpenPostgres connects to databaseURL and applies pending migrations.
//
// Parameters:
//   - ctx: bounds connection and migration
//   - databaseURL: a postgres:// connection string
//   - logger: migration progress logger, slog.Default when nil
//
// Returns:
//   - *Postgres: the store
//   - error: an error if the database is unreachable or a migration fails
func OpenPostgres(ctx context.Context, databaseURL string, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &Postgres{pool: pool, logger: logger}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}

	db := stdlib.OpenDBFromPool(p.pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		p.logger.Info("migration applied", "source", r.Source.Path, "duration", r.Duration)
	}
	return nil
}

func (p *Postgres) Record(ctx context.Context, e Entry) error {
	const q = `INSERT INTO sign_history
		(session_id, text, gloss, units, preempted, missing_joints, malformed_instructions, unmapped_tokens, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()))`

	var createdAt *time.Time
	if !e.CreatedAt.IsZero() {
		createdAt = &e.CreatedAt
	}
	_, err := p.pool.Exec(ctx, q,
		e.SessionID, e.Text, e.Gloss, e.Units, e.Preempted,
		e.MissingJoints, e.MalformedInstructions, e.UnmappedTokens, createdAt,
	)
	if err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

func (p *Postgres) Recent(ctx context.Context, limit int) ([]Entry, error) {
	const q = `SELECT id, session_id, text, gloss, units, preempted,
		missing_joints, malformed_instructions, unmapped_tokens, created_at
		FROM sign_history ORDER BY created_at DESC, id DESC LIMIT $1`

	rows, err := p.pool.Query(ctx, q, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByName[Entry])
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return entries, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}
