package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/WaterTechWarriors/PDMS2/internal/adapter/utils"
	"github.com/WaterTechWarriors/PDMS2/internal/annotate"
	"github.com/WaterTechWarriors/PDMS2/internal/config"
	"github.com/WaterTechWarriors/PDMS2/internal/data/elementStore"
	"github.com/WaterTechWarriors/PDMS2/internal/data/redisStore"
	"github.com/WaterTechWarriors/PDMS2/internal/data/store"
	jobmodel "github.com/WaterTechWarriors/PDMS2/internal/domain/jobModel"
	"github.com/WaterTechWarriors/PDMS2/internal/enrich"
	"github.com/WaterTechWarriors/PDMS2/internal/handlers"
	"github.com/WaterTechWarriors/PDMS2/internal/job"
	"github.com/WaterTechWarriors/PDMS2/internal/markdown"
	"github.com/WaterTechWarriors/PDMS2/internal/mcpserver"
	"github.com/WaterTechWarriors/PDMS2/internal/partition"
	"github.com/WaterTechWarriors/PDMS2/internal/pipeline"
	"github.com/WaterTechWarriors/PDMS2/internal/rag"
	"github.com/WaterTechWarriors/PDMS2/internal/rag/docstore"
	"github.com/WaterTechWarriors/PDMS2/internal/rag/embedding"
	"github.com/WaterTechWarriors/PDMS2/internal/rag/embedding/googleEmbedding"
	"github.com/WaterTechWarriors/PDMS2/internal/rag/embedding/openaiEmbedding"
	"github.com/WaterTechWarriors/PDMS2/internal/rag/llm"
	"github.com/WaterTechWarriors/PDMS2/internal/rag/llm/gemini"
	"github.com/WaterTechWarriors/PDMS2/internal/rag/llm/openaiChat"
	"github.com/WaterTechWarriors/PDMS2/internal/rag/populate"
	"github.com/WaterTechWarriors/PDMS2/internal/rag/vectorDB/qdrantDB"
	"github.com/WaterTechWarriors/PDMS2/internal/server"
	"github.com/WaterTechWarriors/PDMS2/internal/summarize"
	"github.com/WaterTechWarriors/PDMS2/internal/worker"
	"github.com/WaterTechWarriors/PDMS2/pkg/logger_i"
)

var (
	listenAddr        string
	configPath        string
	serveMode         bool
	mcpMode           bool
	resetStore        bool
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")
	flag.BoolVar(&serveMode, "serve", false, "run the HTTP API with the worker pool")
	flag.BoolVar(&mcpMode, "mcp", false, "serve the query tool over MCP stdio")
	flag.BoolVar(&resetStore, "reset", false, "clear the doc store before populating")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	switch {
	case serveMode:
		runServer(serviceContext, closeExternalServices, cfg, logger)
	case mcpMode:
		ragService, err := buildRagService(serviceContext, cfg)
		if err != nil {
			logger.Error("Failed to build services", "error", err)
			os.Exit(1)
		}
		if err := mcpserver.NewServer(ragService).Run(serviceContext); err != nil {
			logger.Error("MCP server stopped", "error", err)
			os.Exit(1)
		}
	default:
		runMenu(serviceContext, cfg, logger)
	}
}

// runMenu is the interactive operator loop.
func runMenu(ctx context.Context, cfg config.Config, logger *logger_i.Logger) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Println()
		fmt.Println("PDMS tasks:")
		fmt.Println("  1) Ingest PDFs (partition, enrich, chunk, annotate)")
		fmt.Println("  2) Render markdown")
		fmt.Println("  3) Populate RAG store")
		fmt.Println("  4) Query")
		fmt.Println("  5) Exit")
		fmt.Print("> ")

		if !scanner.Scan() {
			return
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "1":
			runIngest(ctx, cfg, logger)
		case "2":
			runRender(ctx, cfg, logger)
		case "3":
			runPopulate(ctx, cfg, logger)
		case "4":
			runQuery(ctx, cfg, logger, scanner)
		case "5", "q", "exit":
			return
		default:
			fmt.Println("Pick 1-5")
		}
	}
}

func runIngest(ctx context.Context, cfg config.Config, logger *logger_i.Logger) {
	if err := cfg.Validate(); err != nil {
		logger.Error("Config is incomplete", "error", err)
		return
	}

	orch, err := buildPipeline(cfg)
	if err != nil {
		logger.Error("Failed to build pipeline", "error", err)
		return
	}

	pdfs, err := orch.DiscoverPDFs()
	if err != nil {
		logger.Error("Failed to list input PDFs", "error", err)
		return
	}
	if len(pdfs) == 0 {
		fmt.Printf("No PDFs found in %s\n", cfg.Directories.InputDir)
		return
	}

	failed := orch.IngestBatch(ctx, pdfs)
	fmt.Printf("Processed %d files, %d failed\n", len(pdfs), failed)
}

func runRender(ctx context.Context, cfg config.Config, logger *logger_i.Logger) {
	orch, err := buildPipeline(cfg)
	if err != nil {
		logger.Error("Failed to build pipeline", "error", err)
		return
	}

	rendered, err := orch.RenderMarkdown(ctx)
	if err != nil {
		logger.Error("Markdown rendering failed", "error", err)
		return
	}
	fmt.Printf("Rendered %d markdown files\n", rendered)
}

func runPopulate(ctx context.Context, cfg config.Config, logger *logger_i.Logger) {
	_, populator, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to build RAG store", "error", err)
		return
	}

	stored, err := populator.PopulateDirectory(ctx, cfg.Directories.InputDir, resetStore)
	if err != nil {
		logger.Error("Population failed", "error", err)
		return
	}
	fmt.Printf("Stored %d documents\n", stored)
}

func runQuery(ctx context.Context, cfg config.Config, logger *logger_i.Logger, scanner *bufio.Scanner) {
	ragService, err := buildRagService(ctx, cfg)
	if err != nil {
		logger.Error("Failed to build services", "error", err)
		return
	}

	fmt.Print("Question: ")
	if !scanner.Scan() {
		return
	}
	question := strings.TrimSpace(scanner.Text())
	if question == "" {
		return
	}

	jobt := jobmodel.Job{
		Id:         utils.GetNewUUID(),
		TraceId:    utils.GetNewUUID(),
		JobType:    jobmodel.JobTypeQuery,
		JobPayload: jobmodel.JobPayload{Question: question},
	}
	queryCtx := context.WithValue(ctx, config.TRACE_ID_KEY, jobt.TraceId)

	result := ragService.ProcessRequest(queryCtx, jobt, nil)
	if result.Status == jobmodel.JobStatusError {
		fmt.Printf("Query failed: %s\n", result.Error.Message)
		return
	}
	fmt.Printf("\n%s\n\nSources: %v\n", result.JobPayload.Answer, result.JobPayload.Sources)
}

// runServer wires the async job machinery the way the HTTP API needs it.
func runServer(serviceContext context.Context, closeExternalServices context.CancelFunc, cfg config.Config, logger *logger_i.Logger) {
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
	}
	logger.Info("Starting job service")

	jobStore := store.GetRedisJobStore(serviceContext, cfg.Redis)
	messageStore := store.GetRedisMessageStore(serviceContext, cfg.Redis)
	if jobStore == nil || messageStore == nil {
		logger.Error("Redis stores are offline")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
		serviceConfig.MessageStore = store.InitMessageStore()
	} else {
		serviceConfig.JobStore = jobStore
		serviceConfig.MessageStore = messageStore
	}
	service := job.InitJobService(serviceConfig)

	ragService, err := buildRagService(serviceContext, cfg)
	if err != nil {
		logger.Error("One or more external services failed to initialize. Shutting down.", "error", err)
		return
	}

	handlers.InitJobHandler(service)

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}

// buildPipeline assembles the document processing stages.
func buildPipeline(cfg config.Config) (*pipeline.Orchestrator, error) {
	fileStore, err := newFileStore(cfg)
	if err != nil {
		return nil, err
	}

	partitioner := partition.NewClient(cfg.Keys.PartitionEndpoint, cfg.Keys.PartitionAPIKey, cfg.Pipeline)
	summarizer := summarize.GetClient(cfg.Keys.OpenAIAPIKey, cfg.Models.VisionModel, cfg.Models.SummaryModel)
	enricher := enrich.NewEngine(fileStore, summarizer, summarizer)

	return pipeline.NewOrchestrator(
		cfg.Directories,
		partitioner,
		enricher,
		annotate.NewAnnotator(),
		markdown.NewRenderer(),
		fileStore,
	)
}

// buildStore assembles the RAG store side: doc store rows plus the populator
// that fills them and the vector index.
func buildStore(ctx context.Context, cfg config.Config) (docstore.DocStore, *populate.Populator, error) {
	vectors := qdrantDB.GetQuadrantClient(ctx, cfg.Qdrant)
	if vectors == nil {
		return nil, nil, fmt.Errorf("qdrant is unreachable")
	}

	embedder, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	docs := buildDocStore(ctx, cfg)

	fileStore, err := newFileStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	return docs, populate.NewPopulator(embedder, vectors, docs, fileStore), nil
}

func buildRagService(ctx context.Context, cfg config.Config) (rag.Service, error) {
	vectors := qdrantDB.GetQuadrantClient(ctx, cfg.Qdrant)
	if vectors == nil {
		return nil, fmt.Errorf("qdrant is unreachable")
	}

	embedder, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}

	provider, err := buildLLM(ctx, cfg)
	if err != nil {
		return nil, err
	}

	docs, populator, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return rag.NewService(vectors, provider, embedder, docs, populator), nil
}

func buildEmbedder(ctx context.Context, cfg config.Config) (embedding.Embedder, error) {
	if cfg.Keys.OpenAIAPIKey != "" {
		return openaiEmbedding.GetOpenAIEmbeddingClient(cfg.Models.EmbeddingModel, cfg.Keys.OpenAIAPIKey), nil
	}
	if cfg.Keys.GoogleAPIKey != "" {
		if e := googleEmbedding.GetGoogleEmbeddingClient(ctx, cfg.Models.EmbeddingModel, cfg.Keys.GoogleAPIKey); e != nil {
			return e, nil
		}
		return nil, fmt.Errorf("google embedding client failed to initialize")
	}
	return nil, fmt.Errorf("no embedding credentials configured")
}

func buildLLM(ctx context.Context, cfg config.Config) (llm.Provider, error) {
	if cfg.Keys.GoogleAPIKey != "" {
		if p := gemini.GetGeminiClient(ctx, cfg.Models.GeminiModel, cfg.Keys.GoogleAPIKey); p != nil {
			return p, nil
		}
		return nil, fmt.Errorf("gemini client failed to initialize")
	}
	if cfg.Keys.OpenAIAPIKey != "" {
		return openaiChat.GetOpenAIChatClient(cfg.Models.SummaryModel, cfg.Keys.OpenAIAPIKey), nil
	}
	return nil, fmt.Errorf("no LLM credentials configured")
}

func buildDocStore(ctx context.Context, cfg config.Config) docstore.DocStore {
	if rs := redisStore.GetRedisStore(ctx, config.RedisDocStore, cfg.Redis.Addr); rs != nil {
		return docstore.NewRedisDocStore(rs)
	}
	return docstore.NewMemoryDocStore()
}

func newFileStore(cfg config.Config) (*elementStore.FileStore, error) {
	return elementStore.NewFileStore(
		filepath.Join(cfg.Directories.OutputDir, config.PartitionedDirName),
		filepath.Join(cfg.Directories.OutputDir, config.ChunkedDirName),
	)
}
