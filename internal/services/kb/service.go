// -----------------------------------------------------------------------
// Knowledge Base Service - per-session research paper corpora.
// Setup searches arXiv, downloads and extracts PDFs in parallel,
// chunks and embeds the text and builds an in-memory vector index.
// Query answers questions against one session's corpus.
// -----------------------------------------------------------------------

package kb

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/index"
	"github.com/scentlab/essentia/internal/interfaces"
	"github.com/scentlab/essentia/internal/models"
	"github.com/scentlab/essentia/internal/services/chunker"
	"github.com/scentlab/essentia/internal/services/generation"
	"github.com/scentlab/essentia/internal/services/papers"
	"github.com/scentlab/essentia/internal/services/workers"
)

// queryTopK is the number of chunks retrieved per paper question
const queryTopK = 3

// Service implements interfaces.KnowledgeBaseService
type Service struct {
	search     *papers.SearchService
	downloader *papers.Downloader
	extractor  interfaces.PDFExtractor
	kvStorage  interfaces.KeyValueStorage
	embedder   interfaces.Embedder
	generator  *generation.Service
	chunker    *chunker.Chunker
	papersCfg  *common.PapersConfig
	kbCfg      *common.KnowledgeBaseConfig
	indexCfg   *common.IndexConfig
	sessions   *store
	sweeper    *cron.Cron
	logger     arbor.ILogger
}

var _ interfaces.KnowledgeBaseService = (*Service)(nil)

// NewService wires a knowledge base service from its collaborators
func NewService(
	search *papers.SearchService,
	downloader *papers.Downloader,
	extractor interfaces.PDFExtractor,
	kvStorage interfaces.KeyValueStorage,
	embedder interfaces.Embedder,
	generator *generation.Service,
	config *common.Config,
	logger arbor.ILogger,
) *Service {
	kbCfg := &config.KnowledgeBase
	return &Service{
		search:     search,
		downloader: downloader,
		extractor:  extractor,
		kvStorage:  kvStorage,
		embedder:   embedder,
		generator:  generator,
		chunker:    chunker.New(kbCfg.ChunkSize, kbCfg.ChunkOverlap, kbCfg.MinChunkWords),
		papersCfg:  &config.Papers,
		kbCfg:      kbCfg,
		indexCfg:   &config.Index,
		sessions:   newStore(),
		logger:     logger,
	}
}

// StartSweep schedules the periodic session eviction sweep
func (s *Service) StartSweep() error {
	s.sweeper = cron.New(cron.WithSeconds())

	_, err := s.sweeper.AddFunc(s.kbCfg.SweepSchedule, func() {
		if evicted := s.sessions.evict(s.kbCfg.MaxSessions); evicted > 0 {
			s.logger.Info().
				Int("evicted", evicted).
				Msg("Session sweep evicted stale knowledge bases")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.kbCfg.SweepSchedule, err)
	}

	s.sweeper.Start()
	s.logger.Info().
		Str("schedule", s.kbCfg.SweepSchedule).
		Int("max_sessions", s.kbCfg.MaxSessions).
		Msg("Session sweep started")
	return nil
}

// StopSweep stops the eviction sweep
func (s *Service) StopSweep() {
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
}

// Setup builds a new session knowledge base. Individual papers that
// fail to download or extract are skipped; only a fully empty result
// is an error.
func (s *Service) Setup(ctx context.Context, req *interfaces.SetupRequest) (*models.SetupResult, error) {
	start := time.Now()
	sessionID := common.NewSessionID()

	s.logger.Info().
		Str("session_id", sessionID).
		Str("topic", req.Topic).
		Int("limit", req.Limit).
		Msg("Setting up knowledge base")

	candidates := s.search.Search(ctx, req.Topic, req.Limit, req.YearFilter, req.MinCitations)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no papers found for topic %q", common.ErrSetup, req.Topic)
	}

	docs := s.processPapers(ctx, sessionID, candidates)
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: none of the %d papers could be processed", common.ErrSetup, len(candidates))
	}

	s.summarize(ctx, docs)

	chunks, meta := s.chunkDocuments(docs)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: extracted text produced no usable chunks", common.ErrSetup)
	}

	idx, err := s.buildIndex(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSetup, err)
	}

	survivors := make([]models.Paper, 0, len(docs))
	documents := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		survivors = append(survivors, d.paper)
		documents = append(documents, d.doc)
	}

	setupTime := math.Round(time.Since(start).Seconds()*10) / 10
	s.sessions.put(&session{
		id:        sessionID,
		index:     idx,
		chunks:    chunks,
		meta:      meta,
		documents: documents,
		papers:    survivors,
		createdAt: start,
		setupTime: setupTime,
	})

	s.logger.Info().
		Str("session_id", sessionID).
		Int("papers", len(documents)).
		Int("chunks", len(chunks)).
		Float64("setup_time", setupTime).
		Msg("Knowledge base ready")

	return &models.SetupResult{
		SessionID:  sessionID,
		PaperCount: len(documents),
		ChunkCount: len(chunks),
		SetupTime:  setupTime,
		Papers:     survivors,
	}, nil
}

// processed pairs a surviving document with its source paper
type processed struct {
	paper models.Paper
	doc   models.Document
}

// processPapers downloads and extracts candidates in parallel. PDF
// blobs are staged in storage for extraction and deleted afterwards;
// only the extracted text is kept.
func (s *Service) processPapers(ctx context.Context, sessionID string, candidates []models.Paper) []processed {
	results := make([]*processed, len(candidates))

	tasks := make([]workers.Task, 0, len(candidates))
	for i, paper := range candidates {
		i, paper := i, paper
		tasks = append(tasks, func(ctx context.Context) error {
			doc, err := s.processOne(ctx, sessionID, i, paper)
			if err != nil {
				return fmt.Errorf("paper %q: %w", paper.Title, err)
			}
			results[i] = &processed{paper: paper, doc: doc}
			return nil
		})
	}

	pool := workers.NewPool(s.papersCfg.Workers, s.logger)
	if errs := pool.Run(ctx, tasks); len(errs) > 0 {
		s.logger.Warn().
			Int("failed", len(errs)).
			Int("total", len(candidates)).
			Msg("Some papers failed to process")
	}

	// Drop any blobs left behind by tasks that failed mid-flight
	if err := s.kvStorage.DeleteBlobPrefix(ctx, blobPrefix(sessionID)); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to clean up session blobs")
	}

	docs := make([]processed, 0, len(candidates))
	for _, r := range results {
		if r != nil {
			docs = append(docs, *r)
		}
	}
	return docs
}

func (s *Service) processOne(ctx context.Context, sessionID string, idx int, paper models.Paper) (models.Document, error) {
	data, err := s.downloader.Download(ctx, paper.PDFURL)
	if err != nil {
		return models.Document{}, err
	}

	key := fmt.Sprintf("%s%d.pdf", blobPrefix(sessionID), idx)
	if err := s.kvStorage.SetBlob(ctx, key, data); err != nil {
		return models.Document{}, err
	}
	defer func() {
		if err := s.kvStorage.DeleteBlob(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Failed to delete staged PDF")
		}
	}()

	text, err := s.extractor.ExtractText(ctx, key, s.papersCfg.MaxPages)
	if err != nil {
		return models.Document{}, err
	}

	return models.Document{
		Title:         paper.Title,
		Authors:       paper.Authors,
		Year:          paper.Year,
		Abstract:      paper.Abstract,
		URL:           paper.PDFURL,
		Text:          text,
		CitationCount: paper.CitationCount,
	}, nil
}

// summarize fills each document's summary, falling back to the
// abstract when the model is unavailable.
func (s *Service) summarize(ctx context.Context, docs []processed) {
	for i := range docs {
		summary, err := s.generator.Summarize(ctx, docs[i].doc.Text)
		if err != nil || summary == "" {
			summary = docs[i].doc.Abstract
		}
		docs[i].doc.Summary = summary
	}
}

// chunkDocuments splits every document into overlapping chunks with
// session-global chunk IDs matching their slice positions.
func (s *Service) chunkDocuments(docs []processed) ([]string, []models.ChunkMeta) {
	var (
		chunks []string
		meta   []models.ChunkMeta
	)
	for docIdx, d := range docs {
		parts := s.chunker.Chunk(d.doc.Text)
		for chunkIdx, part := range parts {
			chunks = append(chunks, part)
			meta = append(meta, models.ChunkMeta{
				DocIndex:   docIdx,
				ChunkIndex: chunkIdx,
				Title:      d.doc.Title,
				Authors:    d.doc.Authors,
				Year:       d.doc.Year,
			})
		}
	}
	return chunks, meta
}

func (s *Service) buildIndex(ctx context.Context, chunks []string) (interfaces.VectorIndex, error) {
	vectors, err := s.embedder.Encode(ctx, chunks)
	if err != nil {
		return nil, err
	}

	opts := index.DefaultOptions(s.embedder.Dimension())
	if s.indexCfg.IVF.NList > 0 {
		opts.NList = s.indexCfg.IVF.NList
	}
	if s.indexCfg.IVF.NProbe > 0 {
		opts.NProbe = s.indexCfg.IVF.NProbe
	}

	kind := index.SelectKind("auto", len(chunks), s.indexCfg.IVFThreshold)
	idx, err := index.New(kind, opts)
	if err != nil {
		return nil, err
	}

	if ivf, ok := idx.(*index.IVF); ok {
		if err := ivf.Train(vectors); err != nil {
			return nil, err
		}
	}

	ids := make([]int, len(chunks))
	for i := range ids {
		ids[i] = i
	}
	if err := idx.Add(ids, vectors); err != nil {
		return nil, err
	}
	return idx, nil
}

// Query answers a question against one session's corpus. The nearest
// chunk per distinct document is kept so the context spans papers
// instead of repeating one.
func (s *Service) Query(ctx context.Context, sessionID, question string) (string, []models.RetrievedChunk, error) {
	sess := s.sessions.get(sessionID)
	if sess == nil {
		return "", nil, fmt.Errorf("%w: %s", common.ErrSessionNotFound, sessionID)
	}

	vec, err := s.embedder.EncodeQuery(ctx, question)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", common.ErrRetrieval, err)
	}

	neighbors, err := sess.index.Search(vec, queryTopK)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", common.ErrRetrieval, err)
	}

	seen := make(map[int]bool)
	chunks := make([]models.RetrievedChunk, 0, len(neighbors))
	for _, n := range neighbors {
		if n.ID < 0 || n.ID >= len(sess.chunks) {
			return "", nil, fmt.Errorf("%w: index returned unknown chunk id %d", common.ErrRetrieval, n.ID)
		}
		m := sess.meta[n.ID]
		if seen[m.DocIndex] {
			continue
		}
		seen[m.DocIndex] = true
		chunks = append(chunks, models.RetrievedChunk{
			Text:     sess.chunks[n.ID],
			Meta:     m,
			Distance: n.Distance,
		})
	}

	resp := s.generator.RespondPapers(ctx, question, chunks)
	return resp.Answer, chunks, nil
}

// Status reports a session's state without failing for unknown IDs
func (s *Service) Status(sessionID string) models.SessionStatus {
	sess := s.sessions.get(sessionID)
	if sess == nil {
		return models.SessionStatus{Exists: false}
	}
	return models.SessionStatus{
		Exists:     true,
		PaperCount: len(sess.documents),
		ChunkCount: len(sess.chunks),
		SetupTime:  sess.setupTime,
		CreatedAt:  sess.createdAt.UTC().Format(time.RFC3339),
	}
}

// Documents returns a session's surviving documents
func (s *Service) Documents(sessionID string) ([]models.Document, error) {
	sess := s.sessions.get(sessionID)
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrSessionNotFound, sessionID)
	}
	return sess.documents, nil
}

// ClearCache evicts all but the most recently created sessions
func (s *Service) ClearCache() int {
	return s.sessions.evict(s.kbCfg.MaxSessions)
}

// SessionCount returns the number of live sessions
func (s *Service) SessionCount() int {
	return s.sessions.count()
}

func blobPrefix(sessionID string) string {
	return "papers/" + sessionID + "/"
}
