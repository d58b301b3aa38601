package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/viniciusmartins/jurisrag/internal/llm"
	"github.com/viniciusmartins/jurisrag/internal/store"
)

// FallbackAnswer is returned when no chunk passes the similarity floor.
// Generation is skipped entirely in that case: invoking the model with zero
// context would hallucinate.
const FallbackAnswer = "Não foram encontrados documentos jurídicos relevantes para sua consulta. " +
	"Por favor, reformule sua pergunta ou forneça mais contexto."

// #region retriever-interface
// Retriever is the slice of the retrieval store the processor needs.
type Retriever interface {
	Query(ctx context.Context, text string, topK int, filter map[string]string) ([]store.Result, error)
}

// EvalSink receives answered triples for background quality scoring. Its
// completion and failure are invisible to the query path.
type EvalSink interface {
	Submit(question, answer string, contexts []string)
}

// #endregion retriever-interface

// #region config
// Config holds the processor's retrieval parameters.
type Config struct {
	TopK                int
	SimilarityThreshold float64
}

// #endregion config

// #region processor
// Processor answers legal questions: retrieve, filter by similarity floor,
// assemble context, render the category prompt, generate, package sources.
type Processor struct {
	retriever Retriever
	generator llm.Generator
	config    Config
	log       *zap.Logger
	evalSink  EvalSink
}

// NewProcessor wires a Processor. evalSink may be nil to disable background
// evaluation.
func NewProcessor(retriever Retriever, generator llm.Generator, config Config, log *zap.Logger, evalSink EvalSink) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		retriever: retriever,
		generator: generator,
		config:    config,
		log:       log,
		evalSink:  evalSink,
	}
}

// #endregion processor

// #region answer
// Answer processes one legal question. Errors from the retriever or the
// generator propagate; the only fallback is the zero-context short-circuit.
func (p *Processor) Answer(ctx context.Context, question string, queryType QueryType, filter map[string]string) (AnswerPackage, error) {
	start := time.Now()

	p.log.Info("processing legal query",
		zap.String("query_type", queryType.String()),
		zap.Int("question_length", len(question)))

	candidates, err := p.retriever.Query(ctx, question, p.config.TopK, filter)
	if err != nil {
		return AnswerPackage{}, fmt.Errorf("retrieve candidates: %w", err)
	}

	retained := candidates[:0:0]
	for _, c := range candidates {
		if c.Similarity >= p.config.SimilarityThreshold {
			retained = append(retained, c)
		}
	}

	if len(retained) == 0 {
		p.log.Info("no documents above similarity floor",
			zap.Int("candidates", len(candidates)),
			zap.Float64("threshold", p.config.SimilarityThreshold))
		return AnswerPackage{
			Answer:             FallbackAnswer,
			Sources:            []Source{},
			QueryType:          queryType.String(),
			ProcessingTime:     time.Since(start),
			RetrievedDocsCount: 0,
			TotalDocsFound:     len(candidates),
		}, nil
	}

	contextText := buildContext(retained)
	prompt := queryType.Render(contextText, question)

	p.log.Info("generating answer",
		zap.Int("context_length", len(contextText)),
		zap.Int("docs_used", len(retained)))

	answer, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return AnswerPackage{}, fmt.Errorf("generate answer: %w", err)
	}

	pkg := AnswerPackage{
		Answer:             answer,
		Sources:            buildSources(retained),
		QueryType:          queryType.String(),
		ProcessingTime:     time.Since(start),
		RetrievedDocsCount: len(retained),
		TotalDocsFound:     len(candidates),
	}

	if p.evalSink != nil {
		contexts := make([]string, len(retained))
		for i, r := range retained {
			contexts[i] = r.Chunk.Content
		}
		p.evalSink.Submit(question, answer, contexts)
	}

	p.log.Info("legal query processed",
		zap.Duration("processing_time", pkg.ProcessingTime),
		zap.Int("answer_length", len(answer)))
	return pkg, nil
}

// #endregion answer

// #region context-assembly
// buildContext emits one labeled block per retained chunk, in retrieval
// order, with the source fields that are present, the content, and the
// similarity to three decimals. Blocks are separated by a blank line.
func buildContext(results []store.Result) string {
	var b strings.Builder

	for i, r := range results {
		meta := r.Chunk.Metadata
		fmt.Fprintf(&b, "--- Documento %d ---\n", i+1)
		if v := meta["title"]; v != "" {
			fmt.Fprintf(&b, "Título: %s\n", v)
		}
		if v := meta["source_type"]; v != "" {
			fmt.Fprintf(&b, "Tipo: %s\n", v)
		}
		if v := meta["article_number"]; v != "" {
			fmt.Fprintf(&b, "Artigo: %s\n", v)
		}
		if v := meta["law_number"]; v != "" {
			fmt.Fprintf(&b, "Lei: %s\n", v)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "Conteúdo: %s\n", r.Chunk.Content)
		fmt.Fprintf(&b, "Relevância: %.3f\n\n", r.Similarity)
	}

	return b.String()
}

// buildSources derives provenance entries from retained chunks.
func buildSources(results []store.Result) []Source {
	sources := make([]Source, len(results))
	for i, r := range results {
		meta := r.Chunk.Metadata

		title := meta["title"]
		if title == "" {
			title = "Documento Jurídico"
		}
		sourceType := meta["source_type"]
		if sourceType == "" {
			sourceType = "unknown"
		}

		sources[i] = Source{
			ID:            r.Chunk.ID,
			Title:         title,
			SourceType:    sourceType,
			Similarity:    r.Similarity,
			LawNumber:     meta["law_number"],
			ArticleNumber: meta["article_number"],
			Court:         meta["court"],
			Date:          meta["date"],
		}
	}
	return sources
}

// #endregion context-assembly
