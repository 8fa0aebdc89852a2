package pipeline

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/0x5457/product-concierge/internal/catalog"
	"github.com/0x5457/product-concierge/internal/embeddings"
	"github.com/0x5457/product-concierge/internal/models"
	"github.com/0x5457/product-concierge/internal/storage"
	"go.uber.org/zap"
)

type Options struct {
	EmbedBatchSize int
	EmbedWorkers   int
	// PreviewCount product names are logged after a successful build.
	PreviewCount int
}

type Builder struct {
	e      embeddings.Embedder
	w      storage.IndexWriter
	logger *zap.Logger
	opt    Options
}

func New(e embeddings.Embedder, w storage.IndexWriter, logger *zap.Logger, opt Options) *Builder {
	if opt.EmbedWorkers <= 0 {
		opt.EmbedWorkers = runtime.NumCPU()
	}
	if opt.EmbedBatchSize <= 0 {
		opt.EmbedBatchSize = 64
	}
	if opt.PreviewCount == 0 {
		opt.PreviewCount = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{e: e, w: w, logger: logger, opt: opt}
}

func (b *Builder) Build(ctx context.Context, cat *catalog.Catalog, indexPath string) error {
	return b.build(ctx, cat, indexPath, func(models.IndexProgress) {})
}

// BuildProgress runs Build in the background and streams progress. Both
// channels are closed when the build ends; the error channel carries at most
// one value.
func (b *Builder) BuildProgress(
	ctx context.Context,
	cat *catalog.Catalog,
	indexPath string,
) (<-chan models.IndexProgress, <-chan error) {
	progCh := make(chan models.IndexProgress, 16)
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		defer close(progCh)
		report := func(p models.IndexProgress) {
			select {
			case progCh <- p:
			case <-ctx.Done():
			}
		}
		if err := b.build(ctx, cat, indexPath, report); err != nil {
			errCh <- err
		}
	}()
	return progCh, errCh
}

func (b *Builder) build(
	ctx context.Context,
	cat *catalog.Catalog,
	indexPath string,
	report func(models.IndexProgress),
) error {
	total := cat.Len()
	b.logger.Info("loaded products", zap.Int("count", total))
	report(models.IndexProgress{Stage: models.IndexStageLoad, TotalProducts: total})
	if total == 0 {
		b.logger.Warn("no products found, skipping index build")
		report(models.IndexProgress{Stage: models.IndexStageDone, Message: "no products", Percent: 1})
		return nil
	}

	b.logger.Info("encoding product descriptions",
		zap.Int("count", total),
		zap.String("model", b.e.ModelName()),
	)
	vecs, err := b.embed(ctx, cat.Texts(), report)
	if err != nil {
		return err
	}

	dim := len(vecs[0])
	minNorm, maxNorm := normRange(vecs)
	b.logger.Info("embedding matrix",
		zap.Int("rows", len(vecs)),
		zap.Int("dimension", dim),
		zap.Float64("norm_min", minNorm),
		zap.Float64("norm_max", maxNorm),
	)

	report(models.IndexProgress{
		Stage:            models.IndexStageWrite,
		TotalProducts:    total,
		EmbeddedProducts: total,
		Percent:          0.95,
	})
	manifest := storage.Manifest{
		Rows:               total,
		Dimension:          dim,
		CatalogFingerprint: cat.Fingerprint(),
		Model:              b.e.ModelName(),
	}
	if err := b.w.Write(ctx, indexPath, manifest, vecs); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	b.logger.Info("wrote index", zap.String("path", indexPath), zap.Int("vectors", total))

	for i := 0; i < b.opt.PreviewCount && i < total; i++ {
		p, _ := cat.At(i)
		name := p.Name
		if name == "" {
			name = "<unnamed>"
		}
		b.logger.Info("preview product", zap.Int("row", i), zap.String("name", name))
	}
	report(models.IndexProgress{
		Stage:            models.IndexStageDone,
		TotalProducts:    total,
		EmbeddedProducts: total,
		Percent:          1,
	})
	return nil
}

// embed encodes texts in batches on a worker pool. Each batch writes into
// its own slice of the result, so row order is preserved.
func (b *Builder) embed(
	ctx context.Context,
	texts []string,
	report func(models.IndexProgress),
) ([][]float32, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make([][]float32, len(texts))
	type batch struct{ start, end int }
	batchCh := make(chan batch)

	var (
		mu       sync.Mutex
		done     int
		firstErr error
		wg       sync.WaitGroup
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for w := 0; w < b.opt.EmbedWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for bt := range batchCh {
				vecs, err := b.e.EmbedTexts(ctx, texts[bt.start:bt.end])
				if err != nil {
					fail(err)
					continue
				}
				if len(vecs) != bt.end-bt.start {
					fail(fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), bt.end-bt.start))
					continue
				}
				copy(out[bt.start:bt.end], vecs)

				mu.Lock()
				done += bt.end - bt.start
				p := models.IndexProgress{
					Stage:            models.IndexStageEmbed,
					TotalProducts:    len(texts),
					EmbeddedProducts: done,
					Percent:          0.9 * float32(done) / float32(len(texts)),
				}
				mu.Unlock()
				report(p)
			}
		}()
	}

feed:
	for start := 0; start < len(texts); start += b.opt.EmbedBatchSize {
		end := min(start+b.opt.EmbedBatchSize, len(texts))
		select {
		case batchCh <- batch{start, end}:
		case <-ctx.Done():
			break feed
		}
	}
	close(batchCh)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, v := range out {
		if len(v) != len(out[0]) {
			return nil, fmt.Errorf("%w: row %d has %d values, row 0 has %d",
				models.ErrDimensionMismatch, i, len(v), len(out[0]))
		}
	}
	return out, nil
}

func normRange(vecs [][]float32) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vecs {
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		n := math.Sqrt(sum)
		lo = math.Min(lo, n)
		hi = math.Max(hi, n)
	}
	return lo, hi
}
