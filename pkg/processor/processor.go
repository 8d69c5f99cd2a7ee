package processor

import (
	"strings"
	"unicode/utf8"

	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/internal/types"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

type ProcessorConfig struct {
	ChunkSize    int // words per chunk
	ChunkOverlap int // words shared by consecutive chunks
}

type Processor struct {
	config ProcessorConfig
}

// NewWithConfig validates the window parameters. A zero ChunkSize selects
// the defaults for both fields.
func NewWithConfig(config ProcessorConfig) (Processor, error) {
	if config.ChunkSize == 0 {
		config.ChunkSize = DefaultChunkSize
		if config.ChunkOverlap == 0 {
			config.ChunkOverlap = DefaultChunkOverlap
		}
	}
	if err := validate(config.ChunkSize, config.ChunkOverlap); err != nil {
		return Processor{}, err
	}
	return Processor{config: config}, nil
}

func (p Processor) Config() ProcessorConfig {
	return p.config
}

// Process chunks every document, numbering documents from 0 in input order
// and chunks from 0 within each document.
func (p Processor) Process(docs []models.Document) ([]models.Chunk, error) {
	var chunks []models.Chunk

	for docIdx, doc := range docs {
		texts, err := Chunk(sanitizeUTF8(doc.Content), p.config.ChunkSize, p.config.ChunkOverlap)
		if err != nil {
			return nil, err
		}

		for i, text := range texts {
			chunks = append(chunks, models.Chunk{
				Text:          text,
				SourceTitle:   sanitizeUTF8(doc.Title),
				SourceURL:     doc.URL,
				DocumentIndex: docIdx,
				SequenceIndex: i,
			})
		}
	}

	return chunks, nil
}

// Chunk splits text on whitespace and returns windows of up to chunkSize
// words whose starts are chunkSize-overlap words apart.
func Chunk(text string, chunkSize, overlap int) ([]string, error) {
	if err := validate(chunkSize, overlap); err != nil {
		return nil, err
	}

	words := strings.Fields(text)
	stride := chunkSize - overlap
	chunks := make([]string, 0, len(words)/stride+1)

	for start := 0; start < len(words); start += stride {
		end := start + chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunk := strings.Join(words[start:end], " ")
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

func validate(chunkSize, overlap int) error {
	if chunkSize < 1 {
		return types.Configf("chunk", "chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 {
		return types.Configf("chunk", "chunk overlap must be non-negative, got %d", overlap)
	}
	if overlap >= chunkSize {
		return types.Configf("chunk", "chunk overlap %d must be less than chunk size %d", overlap, chunkSize)
	}
	return nil
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}
