package embeddings

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
)

// LocalEmbedder derives vectors from a hash of the text. Identical texts map
// to identical vectors, which is enough for offline runs and tests.
type LocalEmbedder struct {
	dim int
}

func NewLocal(dim int) *LocalEmbedder { return &LocalEmbedder{dim: dim} }

func (e *LocalEmbedder) ModelName() string { return "local-fixed" }

func (e *LocalEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vecs[i] = hashToVector(t, e.dim)
	}
	return vecs, nil
}

func (e *LocalEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return hashToVector(text, e.dim), nil
}

func hashToVector(s string, dim int) []float32 {
	vec := make([]float32, dim)
	var block [sha1.Size]byte
	for i := 0; i < dim; i++ {
		// rehash with a counter every 20 bytes so long vectors do not repeat
		if i%sha1.Size == 0 {
			var ctr [4]byte
			binary.LittleEndian.PutUint32(ctr[:], uint32(i/sha1.Size))
			block = sha1.Sum(append([]byte(s), ctr[:]...))
		}
		vec[i] = float32(int8(block[i%sha1.Size])) / 127.0
	}
	return vec
}
