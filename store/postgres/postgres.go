// Package postgres implements store.Store on PostgreSQL with pgx. The schema
// is managed by embedded goose migrations.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return New(pool), nil
}

// New wraps an existing pool. The caller keeps ownership of pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:   pool,
		logger: slog.Default().With(slog.String("component", "store"), slog.String("driver", "postgres")),
	}
}

// Migrate applies all pending migrations.
func (s *Store) Migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}

	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("postgres: migrations: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("postgres: migrate up: %w", err)
	}
	for _, r := range results {
		s.logger.Info("migration applied", slog.String("source", r.Source.Path), slog.Duration("duration", r.Duration))
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) UpsertTopic(ctx context.Context, t store.Topic) error {
	if t.UserID == "" || t.Title == "" {
		return fmt.Errorf("topic: %w", store.ErrInvalidRecord)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO topics (user_id, title, status, interest_level, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, title) DO UPDATE SET
			status = EXCLUDED.status,
			interest_level = EXCLUDED.interest_level,
			updated_at = now()`,
		t.UserID, t.Title, string(t.Status), string(t.InterestLevel),
	)
	if err != nil {
		return fmt.Errorf("upsert topic: %w", err)
	}
	return nil
}

func (s *Store) AdjustPersonality(ctx context.Context, d store.PersonalityDelta) (store.Personality, error) {
	if d.UserID == "" {
		return store.Personality{}, fmt.Errorf("personality: %w", store.ErrInvalidRecord)
	}
	base := store.DefaultPersonality(d.UserID)
	p := store.Personality{UserID: d.UserID}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO personality (user_id, intimacy, humor, updated_at)
		VALUES ($1,
			LEAST(100, GREATEST(0, $4::double precision + $2::double precision)),
			LEAST(100, GREATEST(0, $5::double precision + $3::double precision)),
			now())
		ON CONFLICT (user_id) DO UPDATE SET
			intimacy = LEAST(100, GREATEST(0, personality.intimacy + $2::double precision)),
			humor = LEAST(100, GREATEST(0, personality.humor + $3::double precision)),
			updated_at = now()
		RETURNING intimacy, humor`,
		d.UserID, d.IntimacyChange, d.HumorChange, base.Intimacy, base.Humor,
	).Scan(&p.Intimacy, &p.Humor)
	if err != nil {
		return store.Personality{}, fmt.Errorf("adjust personality: %w", err)
	}
	return p, nil
}

func (s *Store) MergeInsight(ctx context.Context, i store.Insight) error {
	if i.UserID == "" || i.Trait == "" {
		return fmt.Errorf("insight: %w", store.ErrInvalidRecord)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO insights (user_id, trait, preference, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, trait) DO UPDATE SET
			preference = EXCLUDED.preference,
			updated_at = now()`,
		i.UserID, i.Trait, i.Preference,
	)
	if err != nil {
		return fmt.Errorf("merge insight: %w", err)
	}
	return nil
}

func (s *Store) InsertReminder(ctx context.Context, r store.Reminder) error {
	if r.UserID == "" {
		return fmt.Errorf("reminder: %w", store.ErrInvalidRecord)
	}
	if r.ID == "" {
		r.ID = proto.CallID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reminders (id, user_id, title, trigger_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.UserID, r.Title, r.TriggerAt, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

func (s *Store) InsertCallLog(ctx context.Context, c store.CallLog) error {
	if c.ID == "" {
		c.ID = proto.CallID()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO call_logs (id, user_id, reason, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.UserID, c.Reason, c.StartedAt, c.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("insert call log: %w", err)
	}
	return nil
}

// Reminders returns the reminders of a user ordered by trigger time.
func (s *Store) Reminders(ctx context.Context, userID string) ([]store.Reminder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, trigger_at, created_at
		FROM reminders WHERE user_id = $1 ORDER BY trigger_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()

	var out []store.Reminder
	for rows.Next() {
		var r store.Reminder
		if err := rows.Scan(&r.ID, &r.UserID, &r.Title, &r.TriggerAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var _ store.Store = &Store{}
