// Package sqlvec stores the product index in a SQLite file and ranks rows
// with the sqlite-vec distance functions.
package sqlvec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/0x5457/product-concierge/internal/models"
	"github.com/0x5457/product-concierge/internal/storage"
	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	// enable sqlite-vec for all future connections
	sqlite_vec.Auto()
}

type Store struct {
	db       *sql.DB
	manifest storage.Manifest
}

var uriPathEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// dsn builds a sqlite URI filename for path; sqlite decodes the escapes.
func dsn(path, mode string) string {
	u := url.URL{Scheme: "file", Opaque: uriPathEscaper.Replace(path), RawQuery: "mode=" + mode}
	return u.String()
}

// Open opens an index written by Writer. The file must already exist.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn(path, "ro"))
	if err != nil {
		return nil, err
	}
	m, err := readManifest(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", models.ErrIndexCorrupt, err)
	}
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM product_vectors`).Scan(&count); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", models.ErrIndexCorrupt, err)
	}
	if count != m.Rows {
		_ = db.Close()
		return nil, fmt.Errorf("%w: meta declares %d rows, table has %d", models.ErrIndexCorrupt, m.Rows, count)
	}
	return &Store{db: db, manifest: m}, nil
}

func readManifest(db *sql.DB) (storage.Manifest, error) {
	rows, err := db.Query(`SELECT key, value FROM meta`)
	if err != nil {
		return storage.Manifest{}, err
	}
	defer func() { _ = rows.Close() }()
	meta := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return storage.Manifest{}, err
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return storage.Manifest{}, err
	}
	var m storage.Manifest
	if m.Rows, err = strconv.Atoi(meta["rows"]); err != nil {
		return m, fmt.Errorf("meta rows: %w", err)
	}
	if m.Dimension, err = strconv.Atoi(meta["dimension"]); err != nil {
		return m, fmt.Errorf("meta dimension: %w", err)
	}
	m.CatalogFingerprint = meta["catalog_fingerprint"]
	m.Model = meta["model"]
	return m, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Len() int { return s.manifest.Rows }

func (s *Store) Dimension() int { return s.manifest.Dimension }

func (s *Store) Manifest() storage.Manifest { return s.manifest }

func (s *Store) Search(ctx context.Context, query []float32, k int) ([]storage.Hit, error) {
	if k <= 0 || s.manifest.Rows == 0 {
		return []storage.Hit{}, nil
	}
	if len(query) != s.manifest.Dimension {
		return nil, fmt.Errorf("%w: query has %d values, index has %d",
			models.ErrDimensionMismatch, len(query), s.manifest.Dimension)
	}
	v, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, err
	}
	k = min(k, s.manifest.Rows)
	// sqlite-vec ranks by a rounded square root, so rows that tie with the
	// k-th one under rounding are all fetched and settled on the exact value
	rows, err := s.db.QueryContext(ctx, `
		WITH ranked AS (
			SELECT row, embedding, vec_distance_l2(embedding, ?) AS dist
			FROM product_vectors
		)
		SELECT row, embedding
		FROM ranked
		WHERE dist <= (SELECT dist FROM ranked ORDER BY dist ASC, row ASC LIMIT 1 OFFSET ?)
	`, v, k-1)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	hits := make([]storage.Hit, 0, k)
	for rows.Next() {
		var row int
		var blob []byte
		if err := rows.Scan(&row, &blob); err != nil {
			return nil, err
		}
		vec, err := decodeFloat32(blob, s.manifest.Dimension)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", models.ErrIndexCorrupt, row, err)
		}
		hits = append(hits, storage.Hit{Row: row, Distance: storage.SquaredL2(query, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	storage.SortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func decodeFloat32(b []byte, dim int) ([]float32, error) {
	if len(b) != dim*4 {
		return nil, fmt.Errorf("blob is %d bytes, want %d", len(b), dim*4)
	}
	out := make([]float32, dim)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// Writer builds a fresh SQLite index file.
type Writer struct{}

func (Writer) Write(ctx context.Context, path string, manifest storage.Manifest, vectors [][]float32) error {
	if err := storage.CheckVectors(manifest, vectors); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	_ = os.Remove(tmp)
	defer func() { _ = os.Remove(tmp) }()

	if err := writeDB(ctx, tmp, manifest, vectors); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

func writeDB(ctx context.Context, path string, m storage.Manifest, vectors [][]float32) (err error) {
	db, err := sql.Open("sqlite3", dsn(path, "rwc"))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()
	if err := migrate(ctx, db); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	metaStmt, err := tx.PrepareContext(ctx, `INSERT INTO meta(key, value) VALUES(?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = metaStmt.Close() }()
	for k, v := range map[string]string{
		"rows":                strconv.Itoa(m.Rows),
		"dimension":           strconv.Itoa(m.Dimension),
		"catalog_fingerprint": m.CatalogFingerprint,
		"model":               m.Model,
	} {
		if _, err := metaStmt.ExecContext(ctx, k, v); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	vecStmt, err := tx.PrepareContext(ctx, `INSERT INTO product_vectors(row, embedding) VALUES(?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = vecStmt.Close() }()
	for i, vec := range vectors {
		blob, err := sqlite_vec.SerializeFloat32(vec)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := vecStmt.ExecContext(ctx, i, blob); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS product_vectors (
		row INTEGER PRIMARY KEY,
		embedding BLOB NOT NULL
	);`); err != nil {
		return err
	}
	var version string
	if err := db.QueryRowContext(ctx, `SELECT vec_version()`).Scan(&version); err != nil {
		return errors.Join(errors.New("sqlite-vec extension not loaded"), err)
	}
	return nil
}
