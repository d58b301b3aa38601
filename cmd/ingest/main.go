package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/viniciusmartins/jurisrag/internal/config"
	"github.com/viniciusmartins/jurisrag/internal/llm"
	"github.com/viniciusmartins/jurisrag/internal/store"
	"github.com/viniciusmartins/jurisrag/internal/vecindex"
)

// #region main
func main() {
	dir := flag.String("dir", "", "directory of .md/.txt legal documents to index")
	sourceType := flag.String("source-type", "legislacao", "source_type metadata for every document")
	cfgPath := flag.String("config", os.Getenv("JURISRAG_CONFIG"), "config file path")
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "usage: ingest --dir path/to/docs [--source-type tipo] [--config file]")
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	index, err := vecindex.NewClient(cfg.QdrantAddr, cfg.Collection, cfg.EmbeddingDimension)
	if err != nil {
		log.Fatalf("connect to qdrant at %s: %v", cfg.QdrantAddr, err)
	}
	defer index.Close()

	_, embedder, err := llm.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init llm provider: %v", err)
	}

	docs := store.NewStore(index, embedder, store.Config{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	}, logger)

	ctx := context.Background()
	if err := docs.Init(ctx); err != nil {
		log.Fatalf("init retrieval store: %v", err)
	}

	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	fmt.Printf("%s %s -> coleção %s\n", boldGreen("Indexando"), *dir, cfg.Collection)

	files, totalChunks, err := ingestDir(ctx, docs, *dir, *sourceType)
	if err != nil {
		log.Fatalf("ingest: %v", err)
	}
	fmt.Printf("Concluído: %d documentos, %d chunks.\n", files, totalChunks)
}

// #endregion main

// #region ingest
// ingestDir walks dir for .md and .txt files and indexes each as one
// document. The file name (without extension) becomes the title.
func ingestDir(ctx context.Context, docs *store.Store, dir, sourceType string) (int, int, error) {
	files := 0
	chunks := 0

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".txt" {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		addCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		ids, err := docs.AddDocument(addCtx, string(content), map[string]string{
			"title":       title,
			"source_type": sourceType,
		})
		cancel()
		if err != nil {
			return fmt.Errorf("index %s: %w", path, err)
		}

		files++
		chunks += len(ids)
		fmt.Printf("  %s: %d chunks\n", title, len(ids))
		return nil
	})
	return files, chunks, err
}

// #endregion ingest

// #region helpers
func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	return cfg.Build()
}

// #endregion helpers
