package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/basalt-dev/sourcelens/internal/corerr"
)

// overfetchMultiplier widens a filtered Query's initial KNN scan so enough
// rows survive the file-path post-filter, the same 2x-then-post-filter
// approach the teacher's chromem searcher uses for tag/type filtering.
const overfetchMultiplier = 4

func init() {
	sqlite_vec.Auto()
}

// sqliteStore wraps sqlite-vec's vec0 virtual table (embeddings only) plus a
// plain metadata table (file_path/content/metadata), since vec0 tables can't
// carry arbitrary columns. Grounded on
// internal/storage/vector_index.go's delete-then-insert upsert pattern,
// generalized from the chunks table's schema to a standalone store.
type sqliteStore struct {
	db *sql.DB
}

func OpenSQLite(dbPath string, dimensions int) (Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, corerr.Wrap(corerr.Internal, "failed to open vector store database", err)
	}

	if _, err := db.Exec(fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vectors_vec USING vec0(chunk_id TEXT PRIMARY KEY, embedding float[%d])`,
		dimensions,
	)); err != nil {
		db.Close()
		return nil, corerr.Wrap(corerr.Internal, "failed to create vector index", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS vectors_meta (
			chunk_id TEXT PRIMARY KEY,
			file_path TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata_json TEXT
		)
	`); err != nil {
		db.Close()
		return nil, corerr.Wrap(corerr.Internal, "failed to create vector metadata table", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_vectors_meta_file ON vectors_meta(file_path)`); err != nil {
		db.Close()
		return nil, corerr.Wrap(corerr.Internal, "failed to create vector metadata index", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func (s *sqliteStore) Upsert(ctx context.Context, batch []Vector) error {
	if len(batch) == 0 {
		return nil
	}
	if len(batch) > MaxUpsertBatch {
		return corerr.New(corerr.InvalidInput, fmt.Sprintf("upsert batch of %d exceeds max of %d", len(batch), MaxUpsertBatch))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return corerr.Wrap(corerr.Internal, "failed to begin upsert transaction", err)
	}
	defer tx.Rollback()

	deleteVec, err := tx.PrepareContext(ctx, `DELETE FROM vectors_vec WHERE chunk_id = ?`)
	if err != nil {
		return corerr.Wrap(corerr.Internal, "failed to prepare vector delete", err)
	}
	defer deleteVec.Close()

	insertVec, err := tx.PrepareContext(ctx, `INSERT INTO vectors_vec (chunk_id, embedding) VALUES (?, ?)`)
	if err != nil {
		return corerr.Wrap(corerr.Internal, "failed to prepare vector insert", err)
	}
	defer insertVec.Close()

	upsertMeta, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors_meta (chunk_id, file_path, content, metadata_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			file_path = excluded.file_path,
			content = excluded.content,
			metadata_json = excluded.metadata_json
	`)
	if err != nil {
		return corerr.Wrap(corerr.Internal, "failed to prepare metadata upsert", err)
	}
	defer upsertMeta.Close()

	for _, v := range batch {
		if _, err := deleteVec.ExecContext(ctx, v.ID); err != nil {
			return corerr.Wrap(corerr.Internal, "failed to delete existing vector for upsert", err)
		}
		embBytes, err := sqlite_vec.SerializeFloat32(v.Embedding)
		if err != nil {
			return corerr.Wrap(corerr.InvalidInput, "failed to serialize embedding", err)
		}
		if _, err := insertVec.ExecContext(ctx, v.ID, embBytes); err != nil {
			return corerr.Wrap(corerr.Internal, "failed to insert vector", err)
		}

		metadataJSON, err := json.Marshal(v.Metadata)
		if err != nil {
			return corerr.Wrap(corerr.Internal, "failed to marshal vector metadata", err)
		}
		if _, err := upsertMeta.ExecContext(ctx, v.ID, v.FilePath, v.Content, string(metadataJSON)); err != nil {
			return corerr.Wrap(corerr.Internal, "failed to upsert vector metadata", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return corerr.Wrap(corerr.Internal, "failed to commit upsert transaction", err)
	}
	return nil
}

func (s *sqliteStore) DeleteWhere(ctx context.Context, filePath string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return corerr.Wrap(corerr.Internal, "failed to begin delete transaction", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT chunk_id FROM vectors_meta WHERE file_path = ?`, filePath)
	if err != nil {
		return corerr.Wrap(corerr.Internal, "failed to list chunks for delete", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return corerr.Wrap(corerr.Internal, "failed to scan chunk id", err)
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vectors_vec WHERE chunk_id = ?`, id); err != nil {
			return corerr.Wrap(corerr.Internal, "failed to delete vector", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vectors_meta WHERE file_path = ?`, filePath); err != nil {
		return corerr.Wrap(corerr.Internal, "failed to delete vector metadata", err)
	}

	if err := tx.Commit(); err != nil {
		return corerr.Wrap(corerr.Internal, "failed to commit delete transaction", err)
	}
	return nil
}

func (s *sqliteStore) Query(ctx context.Context, embedding []float32, k int, filter *Filter) ([]Result, error) {
	queryBytes, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, corerr.Wrap(corerr.InvalidInput, "failed to serialize query embedding", err)
	}

	fetch := k
	if filter != nil && filter.FilePath != "" {
		fetch = k * overfetchMultiplier
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.chunk_id, vec_distance_cosine(v.embedding, ?) AS distance, m.file_path, m.content, m.metadata_json
		FROM vectors_vec v
		JOIN vectors_meta m ON m.chunk_id = v.chunk_id
		ORDER BY distance
		LIMIT ?
	`, queryBytes, fetch)
	if err != nil {
		return nil, corerr.Wrap(corerr.Internal, "failed to query vector index", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		var metadataJSON sql.NullString
		if err := rows.Scan(&r.ID, &r.Distance, &r.FilePath, &r.Content, &metadataJSON); err != nil {
			return nil, corerr.Wrap(corerr.Internal, "failed to scan vector result", err)
		}
		if metadataJSON.Valid && metadataJSON.String != "" {
			_ = json.Unmarshal([]byte(metadataJSON.String), &r.Metadata)
		}
		if filter != nil && filter.FilePath != "" && r.FilePath != filter.FilePath {
			continue
		}
		out = append(out, r)
		if len(out) >= k {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, corerr.Wrap(corerr.Internal, "error iterating vector results", err)
	}
	return out, nil
}
