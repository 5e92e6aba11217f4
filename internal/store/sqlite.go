package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/me/joinguard/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if dbPath == ":memory:" {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// RecordOutcome appends rec to the audit log and sets rec.ID. Recording the
// same challenge twice is an error.
func (s *SQLiteStore) RecordOutcome(ctx context.Context, rec *model.OutcomeRecord) error {
	s.logger.Debug("sql", "op", "insert", "table", "outcomes", "challenge_id", rec.ChallengeID)

	if !rec.Outcome.IsTerminal() {
		return model.NewValidationError(fmt.Sprintf("outcome %s is not terminal", rec.Outcome))
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes (group_id, user_id, user_name, challenge_id, outcome, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.GroupID, rec.UserID, rec.UserName, rec.ChallengeID, string(rec.Outcome),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano), rec.ResolvedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert outcome %s: %w", rec.ChallengeID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert outcome %s: %w", rec.ChallengeID, err)
	}
	rec.ID = id
	return nil
}

// ListOutcomes returns outcomes newest first together with the total number
// of matching records, or oldest first when filter.Oldest is set.
func (s *SQLiteStore) ListOutcomes(ctx context.Context, filter model.OutcomeFilter) ([]*model.OutcomeRecord, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "outcomes", "limit", filter.Limit, "offset", filter.Offset)
	filter.Clamp()

	var whereClauses []string
	var countArgs []any

	if filter.GroupID != 0 {
		whereClauses = append(whereClauses, "group_id = ?")
		countArgs = append(countArgs, filter.GroupID)
	}
	if filter.Outcome != "" {
		whereClauses = append(whereClauses, "outcome = ?")
		countArgs = append(countArgs, string(filter.Outcome))
	}

	if filter.AfterID > 0 {
		whereClauses = append(whereClauses, "id > ?")
		countArgs = append(countArgs, filter.AfterID)
	}
	order := "DESC"
	if filter.Oldest {
		order = "ASC"
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outcomes`+whereSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count outcomes: %w", err)
	}

	listQuery := `SELECT id, group_id, user_id, user_name, challenge_id, outcome, created_at, resolved_at
		FROM outcomes` + whereSQL + ` ORDER BY id ` + order + ` LIMIT ? OFFSET ?`
	listArgs := append(countArgs, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var recs []*model.OutcomeRecord
	for rows.Next() {
		var rec model.OutcomeRecord
		var outcome, createdAt, resolvedAt string
		if err := rows.Scan(&rec.ID, &rec.GroupID, &rec.UserID, &rec.UserName,
			&rec.ChallengeID, &outcome, &createdAt, &resolvedAt); err != nil {
			return nil, 0, fmt.Errorf("scan outcome: %w", err)
		}
		rec.Outcome = model.Outcome(outcome)
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		rec.ResolvedAt, _ = time.Parse(time.RFC3339Nano, resolvedAt)
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// CountOutcomes returns the number of records per outcome, for one group or
// all groups when groupID is 0.
func (s *SQLiteStore) CountOutcomes(ctx context.Context, groupID int64) (map[model.Outcome]int, error) {
	s.logger.Debug("sql", "op", "count", "table", "outcomes", "group_id", groupID)

	query := `SELECT outcome, COUNT(*) FROM outcomes`
	var args []any
	if groupID != 0 {
		query += ` WHERE group_id = ?`
		args = append(args, groupID)
	}
	query += ` GROUP BY outcome`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Outcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		counts[model.Outcome(outcome)] = n
	}
	return counts, rows.Err()
}
