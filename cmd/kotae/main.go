// Package main is the Kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/evaluation"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/pipeline"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vectorstore"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first
// looks for config.yaml in the current directory (for development); if
// that exists it is used. A missing default config is not an error: the
// built-in defaults apply.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			var cfg config.Config
			config.ApplyDefaults(&cfg)
			return &cfg, "(defaults)", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// Populate the environment from .env when present; real environment
	// variables win.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "process":
		runProcess()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	skipProcess := fs.Bool("skip-process", false, "do not process documents on startup")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	p := components.Pipeline
	if !*skipProcess {
		go func() {
			if _, err := p.ProcessDocuments(context.Background(), false); err != nil {
				logger.Error("startup processing failed", zap.Error(err))
			}
		}()
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if cfg.Data.WatchOrDefault() {
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.NewWatcher(cfg.Data.Dir, cfg.Data.Extensions, func() {
			if _, err := p.ProcessDocuments(context.Background(), true); err != nil {
				logger.Warn("watch reprocess failed", zap.Error(err))
			}
		}, watchOpts...)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Warn("Failed to start watcher", zap.Error(err))
			watchSvc = nil
		}
	}

	srv := server.NewServer(p, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runProcess() {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	force := fs.Bool("force", false, "rebuild even when an index already exists")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	_, logger, components := mustInitialize(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	result, err := components.Pipeline.ProcessDocuments(context.Background(), *force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Processing failed: %v\n", err)
		os.Exit(1)
	}
	if result.Rebuilt {
		fmt.Printf("Processed %d documents into %d chunks.\n", result.NumDocuments, result.NumChunks)
	} else {
		fmt.Printf("Index already built (%d documents, %d chunks). Use --force to rebuild.\n",
			result.NumDocuments, result.NumChunks)
	}
	for _, path := range result.Skipped {
		fmt.Printf("Skipped: %s\n", path)
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "ask a running server instead of answering locally (e.g. http://localhost:8080)")
	topK := fs.Int("top-k", 0, "number of chunks to retrieve (0 = config default)")
	summarize := fs.Bool("summarize", false, "summarize retrieved context before answering")
	evaluate := fs.Bool("evaluate", false, "include an evaluation of the answer")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}

	req := &models.AskRequest{
		Question:         question,
		TopK:             *topK,
		UseSummarization: *summarize,
		Evaluate:         *evaluate,
	}

	var resp *models.AskResponse
	if *serverURL != "" {
		var err error
		resp, err = askViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		_, logger, components := mustInitialize(*configPath, *debug)
		defer logger.Sync()
		defer components.Close()

		var err error
		resp, err = components.Pipeline.Ask(context.Background(), req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
	}

	printAnswer(resp)
}

func printAnswer(resp *models.AskResponse) {
	fmt.Printf("Answer: %s\n", resp.Answer)
	fmt.Printf("Confidence: %.2f (%d sources", resp.Confidence, resp.NumSources)
	if resp.UsedFallback {
		fmt.Print(", fallback")
	}
	fmt.Println(")")
	for i, src := range resp.Sources {
		fmt.Printf("  [%d] %s\n", i+1, utils.Truncate(src, 120))
	}
	if resp.Evaluation != nil {
		fmt.Printf("Evaluation: %.3f (%s)\n", resp.Evaluation.OverallScore, resp.Evaluation.Recommendation)
	}
}

func askViaHTTP(serverURL string, req *models.AskRequest) (*models.AskResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpResp, err := http.Post(strings.TrimRight(serverURL, "/")+"/ask",
		"application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(httpResp.Body).Decode(&errBody)
		if errBody.Error != "" {
			return nil, fmt.Errorf("server: %s", errBody.Error)
		}
		return nil, fmt.Errorf("server returned %s", httpResp.Status)
	}
	var resp models.AskResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	_, logger, components := mustInitialize(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	status, err := components.Pipeline.Status(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Vector index loaded: %v\n", status.VectorDBLoaded)
	fmt.Printf("Documents: %d\n", status.NumDocuments)
	fmt.Printf("Chunks: %d (indexed: %d)\n", status.NumChunks, status.IndexedChunks)
}

// mustInitialize loads config, builds a logger, and initializes all
// components, exiting on failure.
func mustInitialize(configPath string, debug bool) (*config.Config, *zap.Logger, *Components) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, logger, components
}

// Components bundles everything the subcommands need.
type Components struct {
	Storage  storage.Storage
	Embedder embedding.Embedder
	Store    vectorstore.VectorStore
	Pipeline *pipeline.Pipeline
}

// Close releases component resources.
func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	embedder, err := embedding.NewEmbedder(&cfg.Embedding, apiKey)
	if err != nil {
		logger.Warn("failed to create embedder, falling back to mock",
			zap.String("provider", cfg.Embedding.Provider),
			zap.Error(err))
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}

	vs, err := vectorstore.New(cfg, embedder.Dimensions())
	if err != nil {
		// Fall back to the embedded store if qdrant is unreachable.
		if cfg.Vector.Backend != "memory" && cfg.Vector.Backend != "" {
			logger.Warn("failed to create vector store, falling back to memory",
				zap.String("backend", cfg.Vector.Backend),
				zap.Error(err))
			vs, err = vectorstore.NewMemoryStore(cfg.Storage.VectorIndexPath, embedder.Dimensions())
		}
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize vector store: %w", err)
		}
	}

	var llm answer.LLM
	if apiKey != "" {
		openaiLLM, llmErr := answer.NewOpenAILLM(answer.LLMConfig{
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			APIKey:      apiKey,
		})
		if llmErr != nil {
			logger.Warn("failed to create LLM, answers will use fallback", zap.Error(llmErr))
		} else {
			llm = openaiLLM
		}
	} else {
		logger.Info("OPENAI_API_KEY not set, answers will use fallback")
	}

	var evaluator *evaluation.Evaluator
	if cfg.Evaluation.EnabledOrDefault() {
		evaluator = evaluation.NewEvaluator(embedder, cfg.Evaluation.MinRelevanceScore,
			evaluation.WithLogger(logger))
	}

	p := pipeline.New(pipeline.Deps{
		Extractor: extract.NewExtractor(cfg.Data.Extensions),
		Chunker: chunker.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap,
			chunker.WithMinTokens(cfg.Chunking.MinChunkTokens)),
		Embedder:  embedder,
		Store:     vs,
		Storage:   store,
		Retriever: retrieval.NewRetriever(embedder, vs, cfg.Retrieval.TopK,
			cfg.Retrieval.SimilarityThreshold, retrieval.WithLogger(logger)),
		Generator: answer.NewGenerator(llm, answer.WithLogger(logger)),
		Evaluator: evaluator,
		DataDir:   cfg.Data.Dir,
		Logger:    logger,
	})

	return &Components{
		Storage:  store,
		Embedder: embedder,
		Store:    vs,
		Pipeline: p,
	}, nil
}

func printUsage() {
	fmt.Println(`kotae - Document question answering over your own files

Usage:
  kotae server [flags]            Start the HTTP server
  kotae process [flags]           Extract, chunk, embed, and index documents
  kotae ask [flags] <question>    Ask a question
  kotae status [flags]            Show corpus and index status
  kotae version                   Show version
  kotae help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging
  --skip-process     Do not process documents on startup

Process Flags:
  --config string    Config file path
  --force            Rebuild even when an index already exists

Ask Flags:
  --config string    Config file path
  --server string    Ask a running server instead of answering locally
  --top-k int        Number of chunks to retrieve (0 = config default)
  --summarize        Summarize retrieved context before answering
  --evaluate         Include an evaluation of the answer

Environment:
  OPENAI_API_KEY     Enables OpenAI embeddings and LLM answers.
                     Read from the environment or a .env file.`)
}
