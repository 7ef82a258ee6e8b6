package vectordb

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"

	"github.com/0xcro3dile/ulcerrag/internal/domain/entities"
	"github.com/0xcro3dile/ulcerrag/internal/domain/ports"
)

// FormatVersion is bumped whenever the artifact schema changes.
const FormatVersion = "1"

const schema = `
CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE chunks (
	seq          INTEGER PRIMARY KEY,
	id           TEXT NOT NULL,
	document_id  TEXT NOT NULL,
	content      TEXT NOT NULL,
	chunk_index  INTEGER NOT NULL,
	overlap_prev INTEGER NOT NULL,
	metadata     TEXT NOT NULL,
	embedding    BLOB NOT NULL
);
`

// SQLiteStore persists an index as a single SQLite file.
// Save never modifies an existing artifact in place: it writes a sibling
// temp file and renames it over the destination.
type SQLiteStore struct {
	logger *zap.Logger
}

var _ ports.IndexStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates an artifact store.
func NewSQLiteStore(logger *zap.Logger) *SQLiteStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteStore{logger: logger}
}

// Save writes idx to dest.
func (s *SQLiteStore) Save(ctx context.Context, idx ports.VectorIndex, dest string) (err error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp artifact: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
			os.Remove(tmpPath + "-journal")
		}
	}()

	db, err := sql.Open("sqlite3", tmpPath)
	if err != nil {
		return fmt.Errorf("opening temp artifact: %w", err)
	}
	if err := writeIndex(ctx, db, idx); err != nil {
		db.Close()
		return err
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("closing temp artifact: %w", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("replacing artifact: %w", err)
	}
	s.logger.Info("Index artifact saved", zap.String("path", dest), zap.Int("chunks", idx.Len()))
	return nil
}

func writeIndex(ctx context.Context, db *sql.DB, idx ports.VectorIndex) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	meta := map[string]string{
		"format_version": FormatVersion,
		"model":          idx.ModelInfo(),
		"dimension":      strconv.Itoa(idx.Dimension()),
		"chunk_count":    strconv.Itoa(idx.Len()),
		"built_at":       time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("writing meta %s: %w", k, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (seq, id, document_id, content, chunk_index, overlap_prev, metadata, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for seq, chunk := range idx.Chunks() {
		metaJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			seq,
			chunk.ID,
			chunk.DocumentID,
			chunk.Text,
			chunk.Index,
			chunk.OverlapWithPrev,
			string(metaJSON),
			encodeVector(chunk.Embedding),
		)
		if err != nil {
			return fmt.Errorf("inserting chunk: %w", err)
		}
	}

	return tx.Commit()
}

// Load restores the index at src. A missing artifact is ErrNotFound;
// anything unreadable or inconsistent is ErrIndexCorrupt.
func (s *SQLiteStore) Load(ctx context.Context, src string) (ports.VectorIndex, error) {
	info, err := os.Stat(src)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, entities.NewError(entities.ErrNotFound, "load index",
			fmt.Errorf("%w: no artifact at %s", entities.ErrIndexCorrupt, src))
	}
	if err != nil {
		return nil, entities.NewError(entities.ErrIndexCorrupt, "load index", err)
	}
	if info.IsDir() {
		return nil, entities.Errorf(entities.ErrIndexCorrupt, "load index", "%s is a directory", src)
	}

	db, err := sql.Open("sqlite3", "file:"+src+"?mode=ro")
	if err != nil {
		return nil, entities.NewError(entities.ErrIndexCorrupt, "load index", err)
	}
	defer db.Close()

	idx, err := readIndex(ctx, db)
	if err != nil {
		return nil, entities.NewError(entities.ErrIndexCorrupt, "load index", fmt.Errorf("%s: %w", src, err))
	}
	s.logger.Info("Index artifact loaded",
		zap.String("path", src),
		zap.Int("chunks", idx.Len()),
		zap.Int("dimension", idx.Dimension()),
		zap.String("model", idx.ModelInfo()))
	return idx, nil
}

func readIndex(ctx context.Context, db *sql.DB) (*Index, error) {
	var check string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&check); err != nil {
		return nil, fmt.Errorf("checking database: %w", err)
	}
	if check != "ok" {
		return nil, fmt.Errorf("database check failed: %s", check)
	}

	meta, err := readMeta(ctx, db)
	if err != nil {
		return nil, err
	}
	if meta["format_version"] != FormatVersion {
		return nil, fmt.Errorf("unsupported format version %q", meta["format_version"])
	}
	dim, err := strconv.Atoi(meta["dimension"])
	if err != nil || dim < 0 {
		return nil, fmt.Errorf("invalid dimension %q", meta["dimension"])
	}
	count, err := strconv.Atoi(meta["chunk_count"])
	if err != nil || count < 0 {
		return nil, fmt.Errorf("invalid chunk count %q", meta["chunk_count"])
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, document_id, content, chunk_index, overlap_prev, metadata, embedding
		FROM chunks ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]entities.Chunk, 0, count)
	for rows.Next() {
		var chunk entities.Chunk
		var metaJSON string
		var blob []byte
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Text, &chunk.Index, &chunk.OverlapWithPrev, &metaJSON, &blob); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("chunk %s metadata: %w", chunk.ID, err)
		}
		if chunk.Embedding, err = decodeVector(blob, dim); err != nil {
			return nil, fmt.Errorf("chunk %s: %w", chunk.ID, err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading chunks: %w", err)
	}
	if len(chunks) != count {
		return nil, fmt.Errorf("artifact holds %d chunks, header says %d", len(chunks), count)
	}

	return NewIndex(meta["model"], dim, chunks)
}

func readMeta(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, fmt.Errorf("reading meta: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning meta: %w", err)
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

// encodeVector packs float32s little-endian.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte, dim int) ([]float32, error) {
	if len(buf) != 4*dim {
		return nil, fmt.Errorf("embedding is %d bytes, want %d", len(buf), 4*dim)
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}
