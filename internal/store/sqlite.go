package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/capecast/ferry-risk-service/internal/domain"
)

// SQLiteStore implements SailingStore on modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens the database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: exec %s: %w", pragma, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sailings (
	sailing_key         TEXT NOT NULL,
	service_date        TEXT NOT NULL,
	departing_terminal  TEXT NOT NULL,
	arriving_terminal   TEXT NOT NULL,
	departure_time      TEXT NOT NULL,
	arrival_time        TEXT,
	status              TEXT NOT NULL DEFAULT '',
	status_reason       TEXT NOT NULL DEFAULT '',
	origin              TEXT NOT NULL,
	operator_id         TEXT NOT NULL,
	first_seen_at       DATETIME NOT NULL,
	last_seen_at        DATETIME NOT NULL,
	removed_detected_at DATETIME,
	PRIMARY KEY (service_date, sailing_key)
);

CREATE TABLE IF NOT EXISTS wind_observations (
	id             TEXT PRIMARY KEY,
	terminal       TEXT NOT NULL,
	wind_speed     REAL NOT NULL,
	wind_gusts     REAL NOT NULL,
	wind_direction REAL NOT NULL,
	advisory       TEXT NOT NULL DEFAULT '',
	source         TEXT NOT NULL,
	observed_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sailings_status ON sailings(service_date, status);
CREATE INDEX IF NOT EXISTS idx_wind_terminal_observed ON wind_observations(terminal, observed_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertSailing writes a reconciled sailing inside a transaction so the
// read-merge-write is atomic across concurrent scrape cycles.
func (s *SQLiteStore) UpsertSailing(ctx context.Context, in domain.Sailing) (UpsertResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("sqlite: begin upsert: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanSailing(tx.QueryRowContext(ctx,
		`SELECT sailing_key, service_date, departing_terminal, arriving_terminal,
		        departure_time, arrival_time, status, status_reason, origin,
		        operator_id, first_seen_at, last_seen_at, removed_detected_at
		 FROM sailings WHERE service_date = ? AND sailing_key = ?`,
		in.ServiceDate, in.Key,
	))
	if err == sql.ErrNoRows {
		if err := insertSailing(ctx, tx, in); err != nil {
			return UpsertResult{}, err
		}
		if err := tx.Commit(); err != nil {
			return UpsertResult{}, fmt.Errorf("sqlite: commit insert: %w", err)
		}
		return UpsertResult{Created: true, StatusChanged: in.Status != domain.StatusNone, NewStatus: in.Status}, nil
	}
	if err != nil {
		return UpsertResult{}, err
	}

	merged, changed := mergeSailings(*existing, in)
	var removedAt sql.NullTime
	if merged.RemovedDetectedAt != nil {
		removedAt = sql.NullTime{Time: *merged.RemovedDetectedAt, Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE sailings SET arrival_time = ?, status = ?, status_reason = ?,
		        origin = ?, last_seen_at = ?, removed_detected_at = ?
		 WHERE service_date = ? AND sailing_key = ?`,
		merged.ArrivalTime, string(merged.Status), merged.StatusReason,
		string(merged.Origin), merged.LastSeenAt.UTC(), removedAt,
		merged.ServiceDate, merged.Key,
	)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("sqlite: update sailing %s: %w", in.Key, err)
	}
	if err := tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("sqlite: commit update: %w", err)
	}

	return UpsertResult{
		StatusChanged: changed,
		OldStatus:     existing.Status,
		NewStatus:     merged.Status,
	}, nil
}

func insertSailing(ctx context.Context, tx *sql.Tx, in domain.Sailing) error {
	var removedAt sql.NullTime
	if in.RemovedDetectedAt != nil {
		removedAt = sql.NullTime{Time: *in.RemovedDetectedAt, Valid: true}
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO sailings (sailing_key, service_date, departing_terminal,
		        arriving_terminal, departure_time, arrival_time, status,
		        status_reason, origin, operator_id, first_seen_at, last_seen_at,
		        removed_detected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Key, in.ServiceDate, in.DepartingTerminal, in.ArrivingTerminal,
		in.DepartureTime, in.ArrivalTime, string(in.Status), in.StatusReason,
		string(in.Origin), in.OperatorID, in.FirstSeenAt.UTC(), in.LastSeenAt.UTC(),
		removedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert sailing %s: %w", in.Key, err)
	}
	return nil
}

func (s *SQLiteStore) ApplyReason(ctx context.Context, serviceDate, key, reason string) (bool, error) {
	if reason == "" {
		return false, nil
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sailings SET status_reason = ?
		 WHERE service_date = ? AND sailing_key = ? AND status_reason != ?`,
		reason, serviceDate, key, reason,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: apply reason %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListSailings(ctx context.Context, serviceDate string) ([]domain.Sailing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sailing_key, service_date, departing_terminal, arriving_terminal,
		        departure_time, arrival_time, status, status_reason, origin,
		        operator_id, first_seen_at, last_seen_at, removed_detected_at
		 FROM sailings WHERE service_date = ?
		 ORDER BY departing_terminal, departure_time`,
		serviceDate,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list sailings: %w", err)
	}
	defer rows.Close()

	var out []domain.Sailing
	for rows.Next() {
		s, err := scanSailing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list sailings iterate: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) CountCanceled(ctx context.Context, serviceDate string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sailings WHERE service_date = ? AND status = ?`,
		serviceDate, string(domain.StatusCanceled),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count canceled: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) SaveWindObservation(ctx context.Context, o domain.WindObservation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wind_observations (id, terminal, wind_speed, wind_gusts,
		        wind_direction, advisory, source, observed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), o.Terminal, o.WindSpeed, o.WindGusts,
		o.WindDirection, string(o.Advisory), string(o.Source), o.ObservedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save wind observation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentWindObservations(ctx context.Context, terminal string, since time.Time) ([]domain.WindObservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT terminal, wind_speed, wind_gusts, wind_direction, advisory, source, observed_at
		 FROM wind_observations WHERE terminal = ? AND observed_at >= ?
		 ORDER BY observed_at DESC`,
		terminal, since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent wind observations: %w", err)
	}
	defer rows.Close()

	var out []domain.WindObservation
	for rows.Next() {
		var o domain.WindObservation
		var advisory, source string
		if err := rows.Scan(&o.Terminal, &o.WindSpeed, &o.WindGusts, &o.WindDirection, &advisory, &source, &o.ObservedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan wind observation: %w", err)
		}
		o.Advisory = domain.AdvisoryLevel(advisory)
		o.Source = domain.WindSource(source)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: wind observations iterate: %w", err)
	}
	return out, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSailing(row scannable) (*domain.Sailing, error) {
	var s domain.Sailing
	var arrival sql.NullString
	var status, origin string
	var removedAt sql.NullTime

	err := row.Scan(&s.Key, &s.ServiceDate, &s.DepartingTerminal, &s.ArrivingTerminal,
		&s.DepartureTime, &arrival, &status, &s.StatusReason, &origin,
		&s.OperatorID, &s.FirstSeenAt, &s.LastSeenAt, &removedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: scan sailing: %w", err)
	}

	s.ArrivalTime = arrival.String
	s.Status = domain.OperatorStatus(status)
	s.Origin = domain.SailingOrigin(origin)
	if removedAt.Valid {
		t := removedAt.Time
		s.RemovedDetectedAt = &t
	}
	return &s, nil
}
