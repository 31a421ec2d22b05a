package retrieval

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/index"
	"github.com/scentlab/essentia/internal/interfaces"
	"github.com/scentlab/essentia/internal/models"
)

// Builder constructs or restores the perfume vector index. A persisted
// index is reused only when its stored dataset hash matches the current
// dataset file; any mismatch triggers a full rebuild.
type Builder struct {
	embedder interfaces.Embedder
	config   *common.IndexConfig
	logger   arbor.ILogger
}

// NewBuilder creates an index builder
func NewBuilder(embedder interfaces.Embedder, config *common.IndexConfig, logger arbor.ILogger) *Builder {
	return &Builder{
		embedder: embedder,
		config:   config,
		logger:   logger,
	}
}

func (b *Builder) options() index.Options {
	opts := index.DefaultOptions(b.embedder.Dimension())
	if b.config.HNSW.M > 0 {
		opts.M = b.config.HNSW.M
	}
	if b.config.HNSW.EfConstruction > 0 {
		opts.EfConstruction = b.config.HNSW.EfConstruction
	}
	if b.config.HNSW.EfSearch > 0 {
		opts.EfSearch = b.config.HNSW.EfSearch
	}
	if b.config.IVF.NList > 0 {
		opts.NList = b.config.IVF.NList
	}
	if b.config.IVF.NProbe > 0 {
		opts.NProbe = b.config.IVF.NProbe
	}
	if b.config.IVF.TrainSample > 0 {
		opts.TrainSample = b.config.IVF.TrainSample
	}
	return opts
}

// BuildOrLoad restores the persisted index when it matches datasetHash,
// otherwise embeds the rows and builds a fresh index, persisting it for
// the next startup.
func (b *Builder) BuildOrLoad(ctx context.Context, rows []models.PerfumeRow, datasetHash [32]byte) (interfaces.VectorIndex, error) {
	if b.config.Path != "" {
		if _, err := os.Stat(b.config.Path); err == nil {
			idx, err := index.Load(b.config.Path, b.options(), datasetHash)
			if err == nil {
				b.logger.Info().
					Str("path", b.config.Path).
					Str("kind", idx.Kind()).
					Int("vectors", idx.Len()).
					Msg("Loaded persisted index")
				return idx, nil
			}
			if errors.Is(err, common.ErrIndexMismatch) {
				b.logger.Warn().Err(err).Msg("Persisted index is stale, rebuilding")
			} else {
				b.logger.Warn().Err(err).Msg("Failed to load persisted index, rebuilding")
			}
		}
	}

	idx, err := b.Build(ctx, rows)
	if err != nil {
		return nil, err
	}

	if b.config.Path != "" {
		if err := index.Save(b.config.Path, idx, datasetHash); err != nil {
			// A failed save only costs the next startup a rebuild
			b.logger.Warn().Err(err).Str("path", b.config.Path).Msg("Failed to persist index")
		}
	}
	return idx, nil
}

// Build embeds all rows and constructs an index of the configured kind.
// "auto" resolves by corpus size.
func (b *Builder) Build(ctx context.Context, rows []models.PerfumeRow) (interfaces.VectorIndex, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: cannot build index over empty corpus", common.ErrModelLoad)
	}

	texts := make([]string, len(rows))
	ids := make([]int, len(rows))
	for i, row := range rows {
		texts[i] = row.CombinedText
		ids[i] = row.ID
	}

	vectors, err := b.embedder.Encode(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: corpus embedding failed: %v", common.ErrModelLoad, err)
	}

	kind := index.SelectKind(b.config.Kind, len(rows), b.config.IVFThreshold)
	idx, err := index.New(kind, b.options())
	if err != nil {
		return nil, err
	}

	if ivf, ok := idx.(*index.IVF); ok {
		if err := ivf.Train(vectors); err != nil {
			return nil, fmt.Errorf("%w: IVF training failed: %v", common.ErrModelLoad, err)
		}
	}
	if err := idx.Add(ids, vectors); err != nil {
		return nil, fmt.Errorf("%w: index build failed: %v", common.ErrModelLoad, err)
	}

	b.logger.Info().
		Str("kind", kind).
		Int("vectors", idx.Len()).
		Int("dimension", idx.Dimension()).
		Msg("Vector index built")

	return idx, nil
}
