// Package store persists chunks, vectors, file records, the manifest's
// companion metadata, and the current embedding model id (§4.C5). It is
// the only package that issues SQL; every other package goes through the
// Store interface (§9 design note).
package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// ChunkInput is a chunk plus its embedding, ready to persist.
type ChunkInput struct {
	SourceType string
	ChunkType  string
	Heading    string
	Priority   int
	Ordinal    int
	Content    string
	Metadata   map[string]string
	Vector     []float32
}

// Store is the transactional persistence contract for the engine. Only
// these operations exist; callers never issue ad-hoc queries (§9).
type Store interface {
	// UpsertFile deletes any prior chunks and vectors for path, then
	// inserts (or updates) the file record and the given chunks as one
	// transaction. A crash mid-upsert leaves the prior state.
	UpsertFile(path, hash string, importance int, chunks []ChunkInput) (int64, error)
	// RemoveFile deletes a file record and cascades to its chunks/vectors.
	RemoveFile(path string) error
	// RemoveFiles deletes several file records in a single transaction.
	RemoveFiles(paths []string) error
	// ListFiles returns all file records.
	ListFiles() ([]FileRecord, error)
	// GetFile returns a single file record, or nil if not indexed.
	GetFile(path string) (*FileRecord, error)
	// ListChunks returns all chunks (with vectors), optionally filtered
	// to the given source types.
	ListChunks(sourceTypes ...string) ([]Chunk, error)
	// Touch increments access_count and sets last_accessed=now for paths.
	Touch(paths []string) error
	// GetMetadata returns the current index metadata (zero value if unset).
	GetMetadata() (Metadata, error)
	// SetModelID records the model that produced all currently stored
	// vectors.
	SetModelID(modelID string, dim int) error
	// Clear drops all chunks and file records (model change, explicit
	// reset). Index metadata is left untouched; callers call SetModelID
	// afterward to record the new model.
	Clear() error
	// Close closes the underlying database.
	Close() error
}

// SQLiteStore implements Store backed by SQLite + sqlite-vec.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at dbPath and initializes the
// schema.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func serializeVector(v []float32) ([]byte, error) {
	return sqlite_vec.SerializeFloat32(v)
}

// deserializeVector decodes a little-endian float32 blob written by
// sqlite_vec.SerializeFloat32. Ranking needs a priority-boost term a vec0
// virtual table's ANN distance can't express, so vectors are decoded here
// and ranked in Go rather than queried through MATCH (see DESIGN.md).
func deserializeVector(blob []byte) []float32 {
	out := make([]float32, len(blob)/4)
	for i := range out {
		bits := binary.LittleEndian.Uint32(blob[i*4 : i*4+4])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

func encodeMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeMetadata(s string) map[string]string {
	if s == "" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
}

func (s *SQLiteStore) UpsertFile(path, hash string, importance int, chunks []ChunkInput) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var fileID int64
	err = tx.QueryRow("SELECT id FROM files WHERE path = ?", path).Scan(&fileID)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Exec(
			"INSERT INTO files (path, hash, importance) VALUES (?, ?, ?)",
			path, hash, importance,
		)
		if err != nil {
			return 0, fmt.Errorf("insert file: %w", err)
		}
		fileID, err = res.LastInsertId()
		if err != nil {
			return 0, err
		}
	case err != nil:
		return 0, fmt.Errorf("lookup file: %w", err)
	default:
		if _, err := tx.Exec("DELETE FROM chunks WHERE file_id = ?", fileID); err != nil {
			return 0, fmt.Errorf("delete old chunks: %w", err)
		}
		if _, err := tx.Exec(
			"UPDATE files SET hash = ?, importance = ?, indexed_at = CURRENT_TIMESTAMP WHERE id = ?",
			hash, importance, fileID,
		); err != nil {
			return 0, fmt.Errorf("update file: %w", err)
		}
	}

	chunkStmt, err := tx.Prepare(
		"INSERT INTO chunks (file_id, source_type, chunk_type, heading, priority, ordinal, content, metadata) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return 0, err
	}
	defer chunkStmt.Close()

	vecStmt, err := tx.Prepare("INSERT INTO vectors (chunk_id, embedding) VALUES (?, ?)")
	if err != nil {
		return 0, err
	}
	defer vecStmt.Close()

	for _, c := range chunks {
		meta, err := encodeMetadata(c.Metadata)
		if err != nil {
			return 0, fmt.Errorf("encode metadata: %w", err)
		}
		res, err := chunkStmt.Exec(fileID, c.SourceType, c.ChunkType, c.Heading, c.Priority, c.Ordinal, c.Content, meta)
		if err != nil {
			return 0, fmt.Errorf("insert chunk: %w", err)
		}
		chunkID, err := res.LastInsertId()
		if err != nil {
			return 0, err
		}
		blob, err := serializeVector(c.Vector)
		if err != nil {
			return 0, fmt.Errorf("serialize vector for chunk %d: %w", chunkID, err)
		}
		if _, err := vecStmt.Exec(chunkID, blob); err != nil {
			return 0, fmt.Errorf("insert vector for chunk %d: %w", chunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return fileID, nil
}

func (s *SQLiteStore) RemoveFile(path string) error {
	_, err := s.db.Exec("DELETE FROM files WHERE path = ?", path)
	return err
}

func (s *SQLiteStore) RemoveFiles(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("DELETE FROM files WHERE path = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, path := range paths {
		if _, err := stmt.Exec(path); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListFiles() ([]FileRecord, error) {
	rows, err := s.db.Query("SELECT id, path, hash, importance, indexed_at, last_accessed, access_count FROM files ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FileRecord
	for rows.Next() {
		f, err := scanFileRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFileRecord(row rowScanner) (FileRecord, error) {
	var f FileRecord
	var lastAccessed sql.NullTime
	if err := row.Scan(&f.ID, &f.Path, &f.Hash, &f.Importance, &f.IndexedAt, &lastAccessed, &f.AccessCount); err != nil {
		return FileRecord{}, err
	}
	if lastAccessed.Valid {
		f.LastAccessed = lastAccessed.Time
	}
	return f, nil
}

func (s *SQLiteStore) GetFile(path string) (*FileRecord, error) {
	row := s.db.QueryRow("SELECT id, path, hash, importance, indexed_at, last_accessed, access_count FROM files WHERE path = ?", path)
	f, err := scanFileRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *SQLiteStore) ListChunks(sourceTypes ...string) ([]Chunk, error) {
	query := `
		SELECT c.id, c.file_id, f.path, c.source_type, c.chunk_type, c.heading, c.priority, c.ordinal, c.content, c.metadata, v.embedding
		FROM chunks c
		JOIN files f ON f.id = c.file_id
		JOIN vectors v ON v.chunk_id = c.id
	`
	args := make([]any, 0, len(sourceTypes))
	if len(sourceTypes) > 0 {
		placeholders := ""
		for i, st := range sourceTypes {
			if i > 0 {
				placeholders += ", "
			}
			placeholders += "?"
			args = append(args, st)
		}
		query += " WHERE c.source_type IN (" + placeholders + ")"
	}
	query += " ORDER BY c.file_id, c.ordinal"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		var meta string
		var blob []byte
		if err := rows.Scan(&c.ID, &c.FileID, &c.FilePath, &c.SourceType, &c.ChunkType, &c.Heading, &c.Priority, &c.Ordinal, &c.Content, &meta, &blob); err != nil {
			return nil, err
		}
		c.Metadata = decodeMetadata(meta)
		c.Vector = deserializeVector(blob)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Touch(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"UPDATE files SET access_count = access_count + 1, last_accessed = ? WHERE path = ?",
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range paths {
		if _, err := stmt.Exec(now, p); err != nil {
			return fmt.Errorf("touch %s: %w", p, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetMetadata() (Metadata, error) {
	var m Metadata
	row := s.db.QueryRow("SELECT value FROM meta WHERE key = 'model_id'")
	if err := row.Scan(&m.ModelID); err != nil && err != sql.ErrNoRows {
		return Metadata{}, err
	}
	row = s.db.QueryRow("SELECT value FROM meta WHERE key = 'model_dim'")
	var dimStr string
	if err := row.Scan(&dimStr); err == nil {
		fmt.Sscanf(dimStr, "%d", &m.Dim)
	} else if err != sql.ErrNoRows {
		return Metadata{}, err
	}
	return m, nil
}

func (s *SQLiteStore) SetModelID(modelID string, dim int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO meta (key, value) VALUES ('model_id', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		modelID,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"INSERT INTO meta (key, value) VALUES ('model_dim', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		fmt.Sprintf("%d", dim),
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Clear() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM vectors"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM chunks"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM files"); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
