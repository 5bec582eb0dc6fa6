package repositories

import (
	"context"
	"database/sql"

	"github.com/HannahMarsh/onion-circuit/internal/onion"
	"github.com/pkg/errors"

	_ "github.com/lib/pq"
)

const createRelaysTable = `CREATE TABLE IF NOT EXISTS relays (
	seq     BIGSERIAL PRIMARY KEY,
	node_id INTEGER NOT NULL,
	pub_key TEXT NOT NULL
)`

// PostgresRelayRepository keeps registrations in a relays table for registries that share a database.
type PostgresRelayRepository struct {
	db *sql.DB
}

func OpenPostgresRelayRepository(dsn string) (*PostgresRelayRepository, error) {
	if dsn == "" {
		return nil, errors.New("postgres backend requires a dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres")
	}
	if _, err = db.Exec(createRelaysTable); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create relays table")
	}
	return &PostgresRelayRepository{db: db}, nil
}

func (s *PostgresRelayRepository) Append(ctx context.Context, relay onion.RelayDescriptor) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO relays (node_id, pub_key) VALUES ($1, $2)`, relay.Identity, relay.PublicKey); err != nil {
		return errors.Wrap(err, "failed to insert relay")
	}
	return nil
}

func (s *PostgresRelayRepository) List(ctx context.Context) ([]onion.RelayDescriptor, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT node_id, pub_key FROM relays ORDER BY seq`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query relays")
	}
	defer rows.Close()

	var out []onion.RelayDescriptor
	for rows.Next() {
		var r onion.RelayDescriptor
		if err = rows.Scan(&r.Identity, &r.PublicKey); err != nil {
			return nil, errors.Wrap(err, "failed to scan relay")
		}
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "failed to read relays")
}

func (s *PostgresRelayRepository) Close() error {
	return s.db.Close()
}
