package models

import "fmt"

type Document struct {
	Title    string
	Content  string
	URL      string
	Metadata map[string]interface{}
}

// Chunk is a contiguous window of a document's words.
type Chunk struct {
	Text          string
	SourceTitle   string
	SourceURL     string
	DocumentIndex int
	SequenceIndex int
}

// ID returns the corpus-wide identifier "{docId}_{chunkIdx}".
func (c Chunk) ID() string {
	return fmt.Sprintf("%d_%d", c.DocumentIndex, c.SequenceIndex)
}

// Metadata is the payload stored next to the chunk's vector.
func (c Chunk) Metadata() map[string]interface{} {
	return map[string]interface{}{
		MetaTitle:   c.SourceTitle,
		MetaURL:     c.SourceURL,
		MetaChunkID: c.SequenceIndex,
		MetaDocID:   c.DocumentIndex,
	}
}

type IndexedChunk struct {
	ID string
	Chunk
	Embedding []float32
}

// Index pairs each chunk with its embedding. vectors must be parallel to
// chunks.
func Index(chunks []Chunk, vectors [][]float32) []IndexedChunk {
	indexed := make([]IndexedChunk, len(chunks))
	for i, c := range chunks {
		indexed[i] = IndexedChunk{ID: c.ID(), Chunk: c, Embedding: vectors[i]}
	}
	return indexed
}

// Columns splits indexed chunks into the parallel slices a vector store
// takes.
func Columns(indexed []IndexedChunk) (ids []string, vectors [][]float32, texts []string, metadata []map[string]interface{}) {
	ids = make([]string, len(indexed))
	vectors = make([][]float32, len(indexed))
	texts = make([]string, len(indexed))
	metadata = make([]map[string]interface{}, len(indexed))
	for i, c := range indexed {
		ids[i] = c.ID
		vectors[i] = c.Embedding
		texts[i] = c.Text
		metadata[i] = c.Metadata()
	}
	return ids, vectors, texts, metadata
}

// Metadata keys shared by every vector store.
const (
	MetaTitle   = "title"
	MetaURL     = "url"
	MetaChunkID = "chunk_id"
	MetaDocID   = "doc_id"
)

// StoreItem is one nearest-neighbour hit as returned by a vector store.
// Distance is cosine distance: lower means more similar.
type StoreItem struct {
	Text     string
	Metadata map[string]interface{}
	Distance float64
}

type RetrievedChunk struct {
	Text        string  `json:"text"`
	SourceTitle string  `json:"source_title"`
	SourceURL   string  `json:"source_url"`
	Distance    float64 `json:"distance"`
}

// Answer is the synthesized response. GenerationErr is set when the
// generation model failed and Text holds an explanatory message instead.
type Answer struct {
	Text          string
	Sources       []string
	GenerationErr error
}

func (a Answer) Degraded() bool {
	return a.GenerationErr != nil
}

type IngestionResult struct {
	Documents   int
	ChunksAdded int
	Skipped     bool
}
