package models

// Paper is a candidate research paper returned by the external search API
type Paper struct {
	Title         string `json:"title"`
	Authors       string `json:"authors"`
	Year          int    `json:"year"`
	Abstract      string `json:"abstract"`
	PDFURL        string `json:"pdf_url"`
	ArxivID       string `json:"arxiv_id"`
	CitationCount int    `json:"citation_count"`
}

// Document is a paper that survived download and text extraction. The
// extracted text lives only in memory; the PDF blob is deleted from
// storage after extraction.
type Document struct {
	Title         string `json:"title"`
	Authors       string `json:"authors"`
	Year          int    `json:"year"`
	Abstract      string `json:"abstract"`
	URL           string `json:"url"`
	Text          string `json:"-"`
	Summary       string `json:"summary"`
	CitationCount int    `json:"citation_count"`
}

// ChunkMeta locates a chunk within its source document
type ChunkMeta struct {
	DocIndex   int    `json:"doc_idx"`
	ChunkIndex int    `json:"chunk_idx"`
	Title      string `json:"title"`
	Authors    string `json:"authors"`
	Year       int    `json:"year"`
}

// RetrievedChunk pairs a chunk with its metadata and search distance
type RetrievedChunk struct {
	Text     string    `json:"text"`
	Meta     ChunkMeta `json:"metadata"`
	Distance float32   `json:"distance"`
}
