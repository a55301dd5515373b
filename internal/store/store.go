// Package store keeps a history of analysis results in PostgreSQL
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/menta2k/color-analyzer/pkg/types"
)

// DefaultTable is used when no table name is configured
const DefaultTable = "color_results"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Record is one stored analysis
type Record struct {
	ID        int64                `json:"id"`
	SessionID string               `json:"sessionId"`
	CreatedAt time.Time            `json:"createdAt"`
	Result    types.AnalysisResult `json:"result"`
}

// Store manages the PostgreSQL connection. A pgx.Conn is not safe for
// concurrent use, so every call is serialized.
type Store struct {
	mu    sync.Mutex
	conn  *pgx.Conn
	table string
}

// New connects to the database and creates the results table if needed
func New(ctx context.Context, connString, table string) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	s := &Store{conn: conn, table: pgx.Identifier{table}.Sanitize()}
	if err := s.initSchema(ctx); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			season TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			skin_hex TEXT NOT NULL,
			hair_hex TEXT,
			contrast_level TEXT,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS %[2]s ON %[1]s (created_at DESC);
	`, s.table, pgx.Identifier{indexName(s.table)}.Sanitize())
	_, err := s.conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection
func (s *Store) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.Close(ctx)
}

// SaveResult stores r under sessionID and returns the row id. Thumbnails
// are not stored.
func (s *Store) SaveResult(ctx context.Context, sessionID string, r *types.AnalysisResult) (int64, error) {
	if r == nil {
		return 0, errors.New("store: nil result")
	}
	payload, err := encodePayload(r)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err = s.conn.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (session_id, season, confidence, skin_hex, hair_hex, contrast_level, payload, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8)
		RETURNING id
	`, s.table), sessionID, string(r.Season), r.Confidence, r.SkinHex, r.HairHex,
		string(r.ContrastLevel), payload, createdAt(r)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert result: %w", err)
	}
	return id, nil
}

// RecentResults returns up to limit results, newest first
func (s *Store) RecentResults(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.Query(ctx, fmt.Sprintf(
		`SELECT id, session_id, created_at, payload FROM %s ORDER BY created_at DESC, id DESC LIMIT $1`, s.table), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec     Record
			payload []byte
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.CreatedAt, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &rec.Result); err != nil {
			return nil, fmt.Errorf("result %d: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SeasonCounts returns how many stored results fall into each season
func (s *Store) SeasonCounts(ctx context.Context) (map[types.Season]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.Query(ctx, fmt.Sprintf(`SELECT season, COUNT(*) FROM %s GROUP BY season`, s.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[types.Season]int, len(types.Seasons))
	for rows.Next() {
		var (
			season string
			n      int
		)
		if err := rows.Scan(&season, &n); err != nil {
			return nil, err
		}
		counts[types.Season(season)] = n
	}
	return counts, rows.Err()
}

// encodePayload serializes r without its thumbnail
func encodePayload(r *types.AnalysisResult) ([]byte, error) {
	stripped := *r
	stripped.Thumbnail = nil
	stripped.ThumbnailFormat = ""
	data, err := json.Marshal(stripped)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return data, nil
}

func createdAt(r *types.AnalysisResult) time.Time {
	if r.Timestamp.IsZero() {
		return time.Now()
	}
	return r.Timestamp
}

// indexName derives the index name from a sanitized table identifier
func indexName(sanitized string) string {
	return sanitized[1:len(sanitized)-1] + "_created_at_idx"
}
