// -----------------------------------------------------------------------
// Dataset Loader - reads the perfume CSV, validates required columns and
// yields rows all-at-once or in chunks
// -----------------------------------------------------------------------

package dataset

import (
	"crypto/sha256"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/models"
)

// Loader reads perfume rows from a CSV dataset. Row IDs are assigned
// sequentially over the surviving rows and are the stable IDs stored in
// the vector index.
type Loader struct {
	config *common.DatasetConfig
	logger arbor.ILogger
}

// NewLoader creates a dataset loader
func NewLoader(config *common.DatasetConfig, logger arbor.ILogger) *Loader {
	return &Loader{
		config: config,
		logger: logger,
	}
}

// Load reads the whole dataset. Rows with a missing value in any
// required column are dropped before indexing; a missing column fails
// with ErrSchema.
func (l *Loader) Load() ([]models.PerfumeRow, error) {
	f, err := os.Open(l.config.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open dataset %s: %v", common.ErrSchema, l.config.Path, err)
	}
	defer f.Close()

	rows, dropped, err := l.parse(f)
	if err != nil {
		return nil, err
	}

	l.logger.Info().
		Str("path", l.config.Path).
		Int("rows", len(rows)).
		Int("dropped", dropped).
		Msg("Dataset loaded")

	return rows, nil
}

// LoadChunked reads the dataset and invokes fn once per chunk of at most
// the configured chunk size. Chunks preserve row order; IDs are global
// over the whole dataset, not per chunk.
func (l *Loader) LoadChunked(fn func(chunk []models.PerfumeRow) error) error {
	rows, err := l.Load()
	if err != nil {
		return err
	}

	size := l.config.ChunkSize
	if size <= 0 {
		size = len(rows)
	}
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		if err := fn(rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// Hash returns the SHA-256 of the dataset file contents. The hash is
// stored in the persisted index header so a stale index is refused at
// load time.
func (l *Loader) Hash() ([32]byte, error) {
	var hash [32]byte

	f, err := os.Open(l.config.Path)
	if err != nil {
		return hash, fmt.Errorf("failed to open dataset for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return hash, fmt.Errorf("failed to hash dataset: %w", err)
	}
	copy(hash[:], h.Sum(nil))
	return hash, nil
}

func (l *Loader) parse(r io.Reader) ([]models.PerfumeRow, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // validate per row, short rows are dropped not fatal

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to read dataset header: %v", common.ErrSchema, err)
	}

	titleCol, err := l.columnIndex(header, l.config.TitleColumn)
	if err != nil {
		return nil, 0, err
	}
	ratingCol, err := l.columnIndex(header, l.config.RatingColumn)
	if err != nil {
		return nil, 0, err
	}
	textCol, err := l.columnIndex(header, l.config.TextColumn)
	if err != nil {
		return nil, 0, err
	}

	var rows []models.PerfumeRow
	dropped := 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("%w: malformed dataset row at line %d: %v", common.ErrSchema, line, err)
		}

		row, ok := l.parseRow(record, titleCol, ratingCol, textCol)
		if !ok {
			dropped++
			continue
		}
		row.ID = len(rows)
		rows = append(rows, row)
	}

	return rows, dropped, nil
}

// parseRow converts one CSV record. Returns ok=false when a required
// value is missing or unparseable, which drops the row wholesale.
func (l *Loader) parseRow(record []string, titleCol, ratingCol, textCol int) (models.PerfumeRow, bool) {
	max := titleCol
	if ratingCol > max {
		max = ratingCol
	}
	if textCol > max {
		max = textCol
	}
	if len(record) <= max {
		return models.PerfumeRow{}, false
	}

	title := strings.TrimSpace(record[titleCol])
	text := strings.TrimSpace(record[textCol])
	ratingRaw := strings.TrimSpace(record[ratingCol])
	if title == "" || text == "" || ratingRaw == "" {
		return models.PerfumeRow{}, false
	}

	rating, err := strconv.ParseFloat(ratingRaw, 64)
	if err != nil {
		return models.PerfumeRow{}, false
	}

	return models.PerfumeRow{
		Title:        title,
		Rating:       rating,
		CombinedText: text,
	}, true
}

func (l *Loader) columnIndex(header []string, name string) (int, error) {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: dataset is missing required column %q", common.ErrSchema, name)
}
