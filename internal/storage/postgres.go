package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultProfile is the profile name used when none is configured.
const DefaultProfile = "default"

// Querier is the subset of pgxpool.Pool used by PostgresStore.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS viewlink_session (
	id         UUID PRIMARY KEY,
	profile    TEXT NOT NULL UNIQUE,
	token      TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS viewlink_addresses (
	profile      TEXT NOT NULL,
	address      TEXT NOT NULL,
	last_success TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (profile, address)
);
`

// PostgresStore persists the session token and address history in
// PostgreSQL. Credentials stay in memory and are never written to the
// database.
type PostgresStore struct {
	db           Querier
	profile      string
	maxAddresses int
	logger       *slog.Logger

	mu          sync.RWMutex
	credentials Credentials
}

// NewPostgresStore creates a store scoped to profile. An empty profile uses
// DefaultProfile.
func NewPostgresStore(db Querier, profile string, creds Credentials, maxAddresses int, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	if profile == "" {
		profile = DefaultProfile
	}
	return &PostgresStore{
		db:           db,
		profile:      profile,
		maxAddresses: maxAddresses,
		logger:       logger,
		credentials:  creds,
	}
}

// EnsureSchema creates the tables used by the store if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Session(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRow(ctx,
		`SELECT token FROM viewlink_session WHERE profile = $1`,
		s.profile,
	).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	return token, nil
}

func (s *PostgresStore) SetSession(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO viewlink_session (id, profile, token, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (profile) DO UPDATE
		SET token = EXCLUDED.token, updated_at = EXCLUDED.updated_at`,
		uuid.New(), s.profile, token,
	)
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LastSuccessfulAddress(ctx context.Context, addr string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO viewlink_addresses (profile, address, last_success)
		VALUES ($1, $2, now())
		ON CONFLICT (profile, address) DO UPDATE
		SET last_success = EXCLUDED.last_success`,
		s.profile, addr,
	)
	if err != nil {
		return fmt.Errorf("store address: %w", err)
	}

	if s.maxAddresses <= 0 {
		return nil
	}
	ct, err := s.db.Exec(ctx, `
		DELETE FROM viewlink_addresses
		WHERE profile = $1 AND address NOT IN (
			SELECT address FROM viewlink_addresses
			WHERE profile = $1
			ORDER BY last_success DESC
			LIMIT $2
		)`,
		s.profile, s.maxAddresses,
	)
	if err != nil {
		return fmt.Errorf("trim addresses: %w", err)
	}
	if n := ct.RowsAffected(); n > 0 {
		s.logger.Debug("trimmed address history", "profile", s.profile, "removed", n)
	}
	return nil
}

func (s *PostgresStore) LastSuccessfulAddresses(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT address FROM viewlink_addresses
		WHERE profile = $1
		ORDER BY last_success DESC`,
		s.profile,
	)
	if err != nil {
		return nil, fmt.Errorf("load addresses: %w", err)
	}
	addrs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan addresses: %w", err)
	}
	return addrs, nil
}

func (s *PostgresStore) Email(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credentials.Email, nil
}

func (s *PostgresStore) Password(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credentials.Password, nil
}

func (s *PostgresStore) SetCredentials(_ context.Context, email, password string) error {
	s.mu.Lock()
	s.credentials = Credentials{Email: email, Password: password}
	s.mu.Unlock()
	return nil
}
