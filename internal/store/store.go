// Package store provides the ephemeral, per-run relational backing for
// the SQL-predicate filter mode: an in-memory SQLite database holding
// one run's enriched schedules, queryable only through whitelisted,
// parameterized statements. Grounded on original_source's
// model/src/db/db_schema.cpp (schedule / schedule_metadata tables,
// renamed here to schedule_set per the spec's whitelisted table name)
// using jmoiron/sqlx over modernc.org/sqlite instead of QSqlDatabase,
// since the store never survives past one orchestrator run.
package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/noah-isme/sma-adp-api/internal/course"
)

// SchemaVersion identifies the shape created by schemaDDL. It has no
// upgrade path and is not checked by Open: a new run always gets a fresh
// in-memory database.
const SchemaVersion = 1

const schemaDDL = `
CREATE TABLE schedule_set (
	id INTEGER PRIMARY KEY,
	set_name TEXT NOT NULL,
	source_file_ids_json TEXT DEFAULT '[]',
	schedule_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE schedule (
	id INTEGER PRIMARY KEY,
	schedule_index INTEGER NOT NULL UNIQUE,
	schedule_set_id INTEGER NOT NULL REFERENCES schedule_set(id),
	amount_days INTEGER NOT NULL DEFAULT 0,
	amount_gaps INTEGER NOT NULL DEFAULT 0,
	gaps_time INTEGER NOT NULL DEFAULT 0,
	avg_start INTEGER NOT NULL DEFAULT 0,
	avg_end INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX idx_schedule_index ON schedule(schedule_index);
`

// Store wraps one run's in-memory SQLite connection.
type Store struct {
	db *sqlx.DB
}

// Open creates a fresh in-memory database and its schema. setName
// labels the schedule_set row (typically the run id).
func Open(ctx context.Context, setName string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	if _, err := db.ExecContext(ctx, `INSERT INTO schedule_set (id, set_name) VALUES (1, ?)`, setName); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed schedule_set: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the in-memory database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadSchedules writes one row per InformativeSchedule, ready for
// SQL-predicate queries.
func (s *Store) LoadSchedules(ctx context.Context, schedules []course.InformativeSchedule) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO schedule (schedule_index, schedule_set_id, amount_days, amount_gaps, gaps_time, avg_start, avg_end)
		VALUES (?, 1, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, sched := range schedules {
		if _, err := stmt.ExecContext(ctx, sched.Index, sched.AmountDays, sched.AmountGaps, sched.GapsTimeMinutes, sched.AvgStartMinutes, sched.AvgEndMinutes); err != nil {
			return fmt.Errorf("insert schedule %d: %w", sched.Index, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE schedule_set SET schedule_count = ? WHERE id = 1`, len(schedules)); err != nil {
		return fmt.Errorf("update schedule_count: %w", err)
	}

	return tx.Commit()
}

// Query runs an already-validated, parameterized SELECT and returns the
// schedule_index column of every matching row. Callers must validate
// the query with filterengine.ValidateSQLQuery first; Query itself does
// not repeat that check.
func (s *Store) Query(ctx context.Context, sqlQuery string, params []any) ([]int, error) {
	rows, err := s.db.QueryxContext(ctx, sqlQuery, params...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	var indexes []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, fmt.Errorf("scan schedule_index: %w", err)
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}
