package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"messenger/internal/app/user"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// PostgresStore is the production Store implementation backed by a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore initializes a new PostgreSQL connection pool, executes database
// migrations, and returns a ready Store.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := runMigrations(sqlDB); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// runMigrations applies all pending migrations from the embedded file system.
func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func (s *PostgresStore) CreateUser(ctx context.Context, username string) (bool, error) {
	_, err := s.pool.Exec(ctx, `INSERT INTO users (username) VALUES ($1)`, username)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert user: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) FindUser(ctx context.Context, username string) (*user.User, error) {
	u := &user.User{
		Username:       username,
		Friends:        []string{},
		FriendRequests: []string{},
	}

	err := s.pool.QueryRow(ctx,
		`SELECT joined_date FROM users WHERE username = $1`, username,
	).Scan(&u.JoinedDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT friend FROM friend_edges WHERE username = $1 ORDER BY added_at, friend`, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query friends: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var friend string
		if err := rows.Scan(&friend); err != nil {
			return nil, fmt.Errorf("failed to scan friend row: %w", err)
		}
		u.Friends = append(u.Friends, friend)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read friend rows: %w", err)
	}

	reqRows, err := s.pool.Query(ctx,
		`SELECT requester FROM friend_requests WHERE recipient = $1 ORDER BY requested_at, requester`, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query friend requests: %w", err)
	}
	defer reqRows.Close()

	for reqRows.Next() {
		var requester string
		if err := reqRows.Scan(&requester); err != nil {
			return nil, fmt.Errorf("failed to scan friend request row: %w", err)
		}
		u.FriendRequests = append(u.FriendRequests, requester)
	}
	if err := reqRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read friend request rows: %w", err)
	}

	return u, nil
}

func (s *PostgresStore) AddFriendRequest(ctx context.Context, recipient, requester string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO friend_requests (recipient, requester) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		recipient, requester)
	if err != nil {
		return fmt.Errorf("failed to insert friend request: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveFriendRequest(ctx context.Context, recipient, requester string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM friend_requests WHERE recipient = $1 AND requester = $2`,
		recipient, requester)
	if err != nil {
		return fmt.Errorf("failed to delete friend request: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertFriendEdge(ctx context.Context, a, b string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin friend edge transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO friend_edges (username, friend) VALUES ($1, $2), ($2, $1)
		 ON CONFLICT DO NOTHING`,
		a, b)
	if err != nil {
		return fmt.Errorf("failed to insert friend edges: %w", err)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM friend_requests
		 WHERE (recipient = $1 AND requester = $2) OR (recipient = $2 AND requester = $1)`,
		a, b)
	if err != nil {
		return fmt.Errorf("failed to clear pending requests: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit friend edge transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveFriendEdge(ctx context.Context, a, b string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM friend_edges
		 WHERE (username = $1 AND friend = $2) OR (username = $2 AND friend = $1)`,
		a, b)
	if err != nil {
		return fmt.Errorf("failed to delete friend edges: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertMessage(ctx context.Context, m *Message) error {
	reactions, err := json.Marshal(m.Reactions)
	if err != nil {
		return fmt.Errorf("failed to marshal reactions: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO messages (id, thread_kind, sender, recipient, content, created_at, read, read_at, reactions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, string(m.Thread), m.From, m.To, m.Content, m.Timestamp, m.Read, m.ReadAt, reactions)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *PostgresStore) QueryThread(ctx context.Context, kind ThreadKind, a, b string) ([]Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, thread_kind, sender, recipient, content, created_at, read, read_at, reactions
		 FROM messages
		 WHERE thread_kind = $1
		   AND ((sender = $2 AND recipient = $3) OR (sender = $3 AND recipient = $2))
		 ORDER BY created_at, id`,
		string(kind), a, b)
	if err != nil {
		return nil, fmt.Errorf("failed to query thread: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read thread rows: %w", err)
	}

	return messages, nil
}

func (s *PostgresStore) FindMessage(ctx context.Context, id string) (*Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, thread_kind, sender, recipient, content, created_at, read, read_at, reactions
		 FROM messages WHERE id = $1`,
		id)
	if err != nil {
		return nil, fmt.Errorf("failed to query message: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read message row: %w", err)
		}
		return nil, ErrNotFound
	}

	return scanMessage(rows)
}

// scanMessage reads one message row, decoding the jsonb reactions column.
func scanMessage(rows pgx.Rows) (*Message, error) {
	var (
		m         Message
		kind      string
		reactions []byte
	)

	if err := rows.Scan(&m.ID, &kind, &m.From, &m.To, &m.Content, &m.Timestamp, &m.Read, &m.ReadAt, &reactions); err != nil {
		return nil, fmt.Errorf("failed to scan message row: %w", err)
	}

	m.Thread = ThreadKind(kind)
	m.Reactions = []Reaction{}
	if len(reactions) > 0 {
		if err := json.Unmarshal(reactions, &m.Reactions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reactions: %w", err)
		}
	}

	return &m, nil
}

func (s *PostgresStore) ClearUserReaction(ctx context.Context, id, username string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE messages
		 SET reactions = (
		     SELECT coalesce(jsonb_agg(elem), '[]'::jsonb)
		     FROM jsonb_array_elements(reactions) AS elem
		     WHERE elem->>'user' <> $2
		 )
		 WHERE id = $1`,
		id, username)
	if err != nil {
		return fmt.Errorf("failed to clear reaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendReaction(ctx context.Context, id string, r Reaction) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reaction: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE messages SET reactions = reactions || $2::jsonb WHERE id = $1`,
		id, payload)
	if err != nil {
		return fmt.Errorf("failed to append reaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkMessagesRead(ctx context.Context, kind ThreadKind, reader, sender string, readAt time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE messages
		 SET read = true, read_at = $4
		 WHERE thread_kind = $1 AND sender = $2 AND recipient = $3 AND read = false`,
		string(kind), sender, reader, readAt)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return tag.RowsAffected(), nil
}
