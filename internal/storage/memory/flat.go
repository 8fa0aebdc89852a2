// Package memory implements a brute-force vector index held in memory and
// persisted as a single binary file.
package memory

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/0x5457/product-concierge/internal/models"
	"github.com/0x5457/product-concierge/internal/storage"
)

const (
	magic   = "CIDX"
	version = uint32(1)
)

// FlatIndex scores every row on each query. Rows are immutable after
// construction, so concurrent searches need no locking.
type FlatIndex struct {
	manifest storage.Manifest
	vecs     []float32 // row-major, Rows*Dimension
}

// New builds an index from vectors, copying them.
func New(manifest storage.Manifest, vectors [][]float32) (*FlatIndex, error) {
	if err := storage.CheckVectors(manifest, vectors); err != nil {
		return nil, err
	}
	flat := make([]float32, 0, manifest.Rows*manifest.Dimension)
	for _, v := range vectors {
		flat = append(flat, v...)
	}
	return &FlatIndex{manifest: manifest, vecs: flat}, nil
}

func (i *FlatIndex) Len() int { return i.manifest.Rows }
func (i *FlatIndex) Dimension() int { return i.manifest.Dimension }
func (i *FlatIndex) Manifest() storage.Manifest { return i.manifest }
func (i *FlatIndex) Close() error { return nil }

func (i *FlatIndex) row(r int) []float32 {
	d := i.manifest.Dimension
	return i.vecs[r*d : (r+1)*d]
}

func (i *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]storage.Hit, error) {
	if k <= 0 || i.manifest.Rows == 0 {
		return []storage.Hit{}, nil
	}
	if len(query) != i.manifest.Dimension {
		return nil, fmt.Errorf("%w: query has %d values, index has %d",
			models.ErrDimensionMismatch, len(query), i.manifest.Dimension)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hits := make([]storage.Hit, i.manifest.Rows)
	for r := range hits {
		hits[r] = storage.Hit{Row: r, Distance: storage.SquaredL2(query, i.row(r))}
	}
	storage.SortHits(hits)
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Save writes the index to path through a temporary file, so readers never
// observe a partial index.
func (i *FlatIndex) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := bufio.NewWriter(tmp)
	if err := i.encode(w); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

// Layout: magic, version, dim, rows, fingerprint, model, then rows*dim
// little-endian float32 values. Strings are uint32 length-prefixed.
func (i *FlatIndex) encode(w io.Writer) error {
	m := i.manifest
	if _, err := io.WriteString(w, magic); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, v := range []uint32{version, uint32(m.Dimension), uint32(m.Rows)} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, s := range []string{m.CatalogFingerprint, m.Model} {
		if err := writeString(w, s); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, i.vecs); err != nil {
		return fmt.Errorf("write vectors: %w", err)
	}
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// Load reads an index written by Save. Malformed files yield
// models.ErrIndexCorrupt.
func Load(path string) (*FlatIndex, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	idx, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIndexCorrupt, err)
	}
	return idx, nil
}

func decode(data []byte) (*FlatIndex, error) {
	r := bytes.NewReader(data)
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(r, head); err != nil || string(head) != magic {
		return nil, errors.New("not a concierge index file")
	}
	var ver, dim, rows uint32
	for _, p := range []*uint32{&ver, &dim, &rows} {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return nil, fmt.Errorf("truncated header: %w", err)
		}
	}
	if ver != version {
		return nil, fmt.Errorf("unsupported index version %d", ver)
	}
	fp, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("read fingerprint: %w", err)
	}
	model, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	want := uint64(dim) * uint64(rows) * 4
	if uint64(r.Len()) != want {
		return nil, fmt.Errorf("vector block is %d bytes, header implies %d", r.Len(), want)
	}
	if rows > 0 && dim == 0 {
		return nil, errors.New("zero dimension with non-empty index")
	}
	vecs := make([]float32, int(dim)*int(rows))
	if err := binary.Read(r, binary.LittleEndian, vecs); err != nil {
		return nil, fmt.Errorf("read vectors: %w", err)
	}
	for _, v := range vecs {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, errors.New("index contains non-finite values")
		}
	}
	return &FlatIndex{
		manifest: storage.Manifest{
			Rows:               int(rows),
			Dimension:          int(dim),
			CatalogFingerprint: fp,
			Model:              model,
		},
		vecs: vecs,
	}, nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if int64(n) > int64(r.Len()) {
		return "", io.ErrUnexpectedEOF
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// Writer persists flat index files.
type Writer struct{}

func (Writer) Write(ctx context.Context, path string, manifest storage.Manifest, vectors [][]float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	idx, err := New(manifest, vectors)
	if err != nil {
		return err
	}
	return idx.Save(path)
}
