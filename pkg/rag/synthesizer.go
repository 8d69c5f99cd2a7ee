package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/internal/types"
)

// PromptTemplate wraps the retrieved context and the question. The model
// is told to say so when the context does not contain the answer.
const PromptTemplate = `Based on the following context, please answer the question. If the answer cannot be found in the context, please say so.

Context:
%s

Question: %s

Answer:`

type SynthesizerConfig struct {
	Policy CallPolicy
	// MaxContextChars caps the context section; 0 means unbounded. The
	// first chunk is always included.
	MaxContextChars int
}

type Synthesizer struct {
	generator       types.Generator
	policy          CallPolicy
	maxContextChars int
}

func NewSynthesizer(generator types.Generator, config SynthesizerConfig) (*Synthesizer, error) {
	if generator == nil {
		return nil, fmt.Errorf("rag: generator must not be nil")
	}
	if config.MaxContextChars < 0 {
		return nil, types.Configf("synthesizer", "max context chars must be non-negative, got %d", config.MaxContextChars)
	}
	policy := config.Policy
	if policy == (CallPolicy{}) {
		policy = DefaultPolicies().Generate
	}
	return &Synthesizer{
		generator:       generator,
		policy:          policy,
		maxContextChars: config.MaxContextChars,
	}, nil
}

// BuildPrompt joins the chunk texts with blank lines, in the given order,
// and places them in PromptTemplate.
func (s *Synthesizer) BuildPrompt(question string, retrieved []models.RetrievedChunk) string {
	var contextText strings.Builder
	for i, chunk := range retrieved {
		sep := ""
		if i > 0 {
			sep = "\n\n"
		}
		if i > 0 && s.maxContextChars > 0 && contextText.Len()+len(sep)+len(chunk.Text) > s.maxContextChars {
			break
		}
		contextText.WriteString(sep)
		contextText.WriteString(chunk.Text)
	}
	return fmt.Sprintf(PromptTemplate, contextText.String(), question)
}

// Synthesize asks the generator to answer from the retrieved chunks.
// retrieved must not be empty. A generation failure does not fail the
// call: the returned Answer carries the error in GenerationErr and an
// explanatory Text, with Sources filled in as usual.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, retrieved []models.RetrievedChunk) models.Answer {
	answer := models.Answer{Sources: Sources(retrieved)}

	prompt := s.BuildPrompt(question, retrieved)
	text, err := call(ctx, s.policy, types.ErrGeneration, "generate", func(ctx context.Context) (string, error) {
		return s.generator.Generate(ctx, prompt)
	})
	if err != nil {
		answer.GenerationErr = err
		answer.Text = fmt.Sprintf("Error generating response: %v. Please make sure the generation model is running and available.", err)
		return answer
	}

	answer.Text = text
	return answer
}

// Sources renders each chunk's provenance as "title" or "title (url)" and
// drops duplicates. The order is first appearance but carries no meaning.
func Sources(retrieved []models.RetrievedChunk) []string {
	seen := make(map[string]bool, len(retrieved))
	sources := make([]string, 0, len(retrieved))
	for _, chunk := range retrieved {
		source := chunk.SourceTitle
		if chunk.SourceURL != "" {
			source = fmt.Sprintf("%s (%s)", chunk.SourceTitle, chunk.SourceURL)
		}
		if seen[source] {
			continue
		}
		seen[source] = true
		sources = append(sources, source)
	}
	return sources
}
