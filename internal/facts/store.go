package facts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"

	"github.com/basalt-dev/sourcelens/internal/corerr"
)

// relevantFactsCacheTTL bounds how long a get_relevant_facts lookup result
// stays in the optional shared Redis cache before a fresh SQLite read runs.
const relevantFactsCacheTTL = 5 * time.Minute

// relevantFactsLimit mirrors memory_db.py's unfiltered-query LIMIT 50.
const relevantFactsLimit = 50

// Store persists Facts, FileChanges, and per-session conversation summaries
// to SQLite. A Redis client is optional — when nil, every lookup goes
// straight to SQLite with no caching layer, which is the correct single-node
// default; Redis only earns its keep when the Facts Store is shared across
// multiple server processes.
type Store struct {
	db    *sql.DB
	redis *redis.Client
}

// Open opens (creating if absent) a facts database at dbPath and ensures its
// schema exists. redisClient may be nil.
func Open(dbPath string, redisClient *redis.Client) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, corerr.Wrap(corerr.Internal, "failed to open facts database", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, corerr.Wrap(corerr.Internal, "failed to create facts schema", err)
	}
	return &Store{db: db, redis: redisClient}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveFacts persists facts for a session.
func (s *Store) SaveFacts(ctx context.Context, sessionID string, facts []Fact) error {
	if len(facts) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return corerr.Wrap(corerr.Internal, "failed to begin facts save transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO facts (session_id, fact_type, content, metadata, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return corerr.Wrap(corerr.Internal, "failed to prepare facts insert", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, f := range facts {
		metadata, err := json.Marshal(f.Metadata)
		if err != nil {
			return corerr.Wrap(corerr.Internal, "failed to marshal fact metadata", err)
		}
		if _, err := stmt.ExecContext(ctx, sessionID, string(f.Type), f.Content, string(metadata), now); err != nil {
			return corerr.Wrap(corerr.Internal, "failed to insert fact", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return corerr.Wrap(corerr.Internal, "failed to commit facts save transaction", err)
	}

	if s.redis != nil {
		s.invalidateCache(ctx, sessionID)
	}
	return nil
}

// GetRelevantFacts returns facts for sessionID, optionally filtered by a
// keyword substring match on content (a LIKE %query%, matching the source's
// own "simple keyword search" — this is a coarse prefilter, not the
// retriever's hybrid search). Results are newest-first; an unfiltered call
// caps at relevantFactsLimit rows.
func (s *Store) GetRelevantFacts(ctx context.Context, sessionID, query string) ([]Fact, error) {
	if s.redis != nil {
		if cached, ok := s.readCache(ctx, sessionID, query); ok {
			return cached, nil
		}
	}

	var rows *sql.Rows
	var err error
	if query != "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT fact_type, content, metadata, timestamp FROM facts
			WHERE session_id = ? AND content LIKE ?
			ORDER BY timestamp DESC
		`, sessionID, "%"+query+"%")
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT fact_type, content, metadata, timestamp FROM facts
			WHERE session_id = ?
			ORDER BY timestamp DESC
			LIMIT ?
		`, sessionID, relevantFactsLimit)
	}
	if err != nil {
		return nil, corerr.Wrap(corerr.Internal, "failed to query relevant facts", err)
	}
	defer rows.Close()

	var out []Fact
	for rows.Next() {
		var factType, content, metadataJSON, ts string
		if err := rows.Scan(&factType, &content, &metadataJSON, &ts); err != nil {
			return nil, corerr.Wrap(corerr.Internal, "failed to scan fact row", err)
		}
		var metadata map[string]string
		if metadataJSON != "" {
			_ = json.Unmarshal([]byte(metadataJSON), &metadata)
		}
		timestamp, _ := time.Parse(time.RFC3339Nano, ts)
		out = append(out, Fact{Type: Type(factType), Content: content, Metadata: metadata, Timestamp: timestamp})
	}
	if err := rows.Err(); err != nil {
		return nil, corerr.Wrap(corerr.Internal, "failed reading relevant facts", err)
	}

	if s.redis != nil {
		s.writeCache(ctx, sessionID, query, out)
	}
	return out, nil
}

// SaveFileChange records that a file was touched during a session.
func (s *Store) SaveFileChange(ctx context.Context, sessionID, filePath, changeType string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO file_changes (session_id, file_path, change_type, timestamp)
		VALUES (?, ?, ?, ?)
	`, sessionID, filePath, changeType, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return corerr.Wrap(corerr.Internal, "failed to save file change", err)
	}
	return nil
}

// SaveConversationSummary upserts the rolling summary for a session.
func (s *Store) SaveConversationSummary(ctx context.Context, sessionID, summary string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (session_id, summary, timestamp)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET summary = excluded.summary, timestamp = excluded.timestamp
	`, sessionID, summary, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return corerr.Wrap(corerr.Internal, "failed to save conversation summary", err)
	}
	return nil
}

// GetConversationSummary returns the stored summary for a session, or "" if
// none has been saved yet.
func (s *Store) GetConversationSummary(ctx context.Context, sessionID string) (string, error) {
	var summary sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT summary FROM conversations WHERE session_id = ?`, sessionID).Scan(&summary)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", corerr.Wrap(corerr.Internal, "failed to get conversation summary", err)
	}
	return summary.String, nil
}

func cacheKey(sessionID, query string) string {
	return fmt.Sprintf("sourcelens:facts:%s:%s", sessionID, strings.ToLower(query))
}

func (s *Store) readCache(ctx context.Context, sessionID, query string) ([]Fact, bool) {
	raw, err := s.redis.Get(ctx, cacheKey(sessionID, query)).Bytes()
	if err != nil {
		return nil, false
	}
	var facts []Fact
	if err := json.Unmarshal(raw, &facts); err != nil {
		return nil, false
	}
	return facts, true
}

func (s *Store) writeCache(ctx context.Context, sessionID, query string, facts []Fact) {
	raw, err := json.Marshal(facts)
	if err != nil {
		return
	}
	s.redis.Set(ctx, cacheKey(sessionID, query), raw, relevantFactsCacheTTL)
}

func (s *Store) invalidateCache(ctx context.Context, sessionID string) {
	iter := s.redis.Scan(ctx, 0, "sourcelens:facts:"+sessionID+":*", 0).Iterator()
	for iter.Next(ctx) {
		s.redis.Del(ctx, iter.Val())
	}
}
