package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/viniciusmartins/jurisrag/internal/config"
	"github.com/viniciusmartins/jurisrag/internal/eval"
	"github.com/viniciusmartins/jurisrag/internal/evalqueue"
	"github.com/viniciusmartins/jurisrag/internal/llm"
	"github.com/viniciusmartins/jurisrag/internal/query"
	"github.com/viniciusmartins/jurisrag/internal/store"
	"github.com/viniciusmartins/jurisrag/internal/vecindex"
)

// #region main
func main() {
	cfgPath := envOr("JURISRAG_CONFIG", "")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	index, err := vecindex.NewClient(cfg.QdrantAddr, cfg.Collection, cfg.EmbeddingDimension)
	if err != nil {
		log.Fatalf("connect to qdrant at %s: %v", cfg.QdrantAddr, err)
	}
	defer index.Close()

	generator, embedder, err := llm.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init llm provider: %v", err)
	}
	breaker := llm.NewBreaker(5, 30*time.Second)
	generator = llm.WrapGenerator(generator, breaker)
	embedder = llm.WrapEmbedder(embedder, breaker)

	docs := store.NewStore(index, embedder, store.Config{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	}, logger)
	if err := docs.Init(ctx); err != nil {
		log.Fatalf("init retrieval store: %v", err)
	}

	history, err := eval.NewSQLiteHistory(cfg.HistoryDBPath, eval.DefaultHistoryCapacity)
	if err != nil {
		log.Fatalf("open evaluation history: %v", err)
	}
	defer history.Close()

	evaluator := eval.NewEvaluator(eval.NewEmbeddingScorer(embedder), history, cfg.EvaluationEnabled, logger)
	queue := evalqueue.New(evaluator, history.DB(), 0, logger)
	defer queue.Close()

	processor := query.NewProcessor(docs, generator, query.Config{
		TopK:                cfg.RetrievalTopK,
		SimilarityThreshold: cfg.SimilarityThreshold,
	}, logger, queue)

	runConsole(ctx, processor, docs, cfg)
}

// #endregion main

// #region console
func runConsole(ctx context.Context, processor *query.Processor, docs *store.Store, cfg config.Config) {
	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Println(boldGreen("JurisRAG") + " — assistente jurídico")
	fmt.Printf("  Qdrant: %s | Coleção: %s | Provedor: %s\n", cfg.QdrantAddr, cfg.Collection, cfg.LLMProvider)
	fmt.Println("Digite sua pergunta (prefixo 'tipo:' para categoria, 'stats' ou 'quit'):")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if line == "stats" {
			printStats(ctx, docs)
			continue
		}

		queryType, question := splitCategory(line)

		answerCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		pkg, err := processor.Answer(answerCtx, question, queryType, nil)
		cancel()
		if err != nil {
			log.Printf("query error: %v", err)
			continue
		}

		fmt.Printf("\n%s\n\n", pkg.Answer)
		if len(pkg.Sources) > 0 {
			fmt.Println(boldCyan("Fontes:"))
			for _, s := range pkg.Sources {
				line := fmt.Sprintf("  - %s (%s, relevância %.3f)", s.Title, s.SourceType, s.Similarity)
				if s.ArticleNumber != "" {
					line += fmt.Sprintf(" art. %s", s.ArticleNumber)
				}
				if s.LawNumber != "" {
					line += fmt.Sprintf(" lei %s", s.LawNumber)
				}
				fmt.Println(line)
			}
		}
		fmt.Println(dim(fmt.Sprintf("[%s] %d/%d documentos em %s",
			pkg.QueryType, pkg.RetrievedDocsCount, pkg.TotalDocsFound, pkg.ProcessingTime.Round(time.Millisecond))))
	}
}

// splitCategory parses an optional "tipo:" prefix, e.g.
// "processo: qual o prazo recursal?".
func splitCategory(line string) (query.QueryType, string) {
	if idx := strings.Index(line, ":"); idx > 0 && idx < 20 {
		prefix := strings.TrimSpace(line[:idx])
		rest := strings.TrimSpace(line[idx+1:])
		if rest != "" {
			return query.ParseQueryType(prefix), rest
		}
	}
	return query.Geral, line
}

func printStats(ctx context.Context, docs *store.Store) {
	statsCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	stats, err := docs.Stats(statsCtx)
	if err != nil {
		log.Printf("stats error: %v", err)
		return
	}
	fmt.Printf("  chunks indexados: %d\n", stats.TotalCount)
	if len(stats.MetadataKeys) > 0 {
		fmt.Printf("  metadados: %s\n", strings.Join(stats.MetadataKeys, ", "))
	}
}

// #endregion console

// #region helpers
func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	return cfg.Build()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
