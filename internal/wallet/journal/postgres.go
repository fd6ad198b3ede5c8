package journal

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/wallet/saga"
	"github/chapool/go-txpipeline/internal/wallet/txfail"

	// Import postgres driver for database/sql package
	_ "github.com/lib/pq"
)

// Postgres stores entries in the pipeline_attempts table
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open connection pool; the schema must be migrated
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Open connects to Postgres and verifies the connection
func Open(ctx context.Context, cfg config.Database) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return db, nil
}

func (p *Postgres) Append(ctx context.Context, entry Entry) error {
	status, err := entry.Status.MarshalText()
	if err != nil {
		return errors.Wrap(err, "failed to encode status")
	}

	var nonce sql.NullInt64
	if entry.Nonce != nil {
		nonce = sql.NullInt64{Int64: int64(*entry.Nonce), Valid: true} //nolint:gosec // nonces fit int64
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO pipeline_attempts
			(id, pipeline, attempt, status, reason, summary, tx_hash, sender, nonce, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`,
		entry.ID,
		entry.Pipeline,
		int64(entry.Attempt), //nolint:gosec // attempt counters fit int64
		string(status),
		nullString(string(entry.Reason)),
		nullString(entry.Summary),
		nullString(entry.TxHash),
		nullString(entry.From),
		nonce,
		entry.StartedAt,
		entry.FinishedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert pipeline attempt")
	}

	return nil
}

func (p *Postgres) List(ctx context.Context, pipeline string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, pipeline, attempt, status, reason, summary, tx_hash, sender, nonce, started_at, finished_at
		FROM pipeline_attempts
		WHERE pipeline = $1
		ORDER BY finished_at DESC
		LIMIT $2`, pipeline, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query pipeline attempts")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry                         Entry
			attempt                       int64
			status                        string
			reason, summary, txHash, from sql.NullString
			nonce                         sql.NullInt64
		)

		if err := rows.Scan(&entry.ID, &entry.Pipeline, &attempt, &status, &reason, &summary, &txHash, &from, &nonce, &entry.StartedAt, &entry.FinishedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan pipeline attempt")
		}

		var s saga.Status
		if err := s.UnmarshalText([]byte(status)); err != nil {
			return nil, errors.Wrapf(err, "attempt %s", entry.ID)
		}

		entry.Attempt = uint64(attempt) //nolint:gosec // written from a uint64
		entry.Status = s
		entry.Reason = txfail.Reason(reason.String)
		entry.Summary = summary.String
		entry.TxHash = txHash.String
		entry.From = from.String
		if nonce.Valid {
			n := uint64(nonce.Int64) //nolint:gosec // written from a uint64
			entry.Nonce = &n
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate pipeline attempts")
	}

	return entries, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
