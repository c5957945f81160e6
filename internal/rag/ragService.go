package rag

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/WaterTechWarriors/PDMS2/internal/adapter/utils"
	"github.com/WaterTechWarriors/PDMS2/internal/config"
	"github.com/WaterTechWarriors/PDMS2/internal/domain/jobModel"
	"github.com/WaterTechWarriors/PDMS2/internal/metrics"
	"github.com/WaterTechWarriors/PDMS2/internal/rag/docstore"
	"github.com/WaterTechWarriors/PDMS2/internal/rag/embedding"
	"github.com/WaterTechWarriors/PDMS2/internal/rag/llm"
	"github.com/WaterTechWarriors/PDMS2/internal/rag/vectorDB"
	"github.com/WaterTechWarriors/PDMS2/pkg/logger_i"
)

/*
ARCHITECTURE NOTE: OPAQUE INTERFACE PATTERN
---------------------------------------------------------

1. Service (Interface):
  - Real work happens down low bruh
  - This is the PUBLIC contract.
  - It defines the "behavior" (what the worker can do).
  - We expose this to keep the worker decoupled from our specific logic.

2. service (Private Struct):
  - down low stuff
  - This is the PRIVATE implementation.
  - It holds the "state" (database connections and LLM clients).
  - It is lowercase to prevent external packages from accessing our
    internal dependencies (vectorDB, llmProvider) directly.

3. Pointer Receiver (*service):
  - By defining methods on (*service), the struct IMPLICITLY satisfies
    the Service interface.
  - if it quacks like a duck, -it's a duck (Duck Typing)

4. Dependency Injection (NewService):
  - This constructor links the private struct to the public interface.
  - It allows us to swap real DBs for mocks during testing without
    changing the worker's code.
*/

// DocumentPopulator is the ingest side of the store, satisfied by
// populate.Populator.
type DocumentPopulator interface {
	PopulateFile(ctx context.Context, docPath string) error
}

// Service Worker will only call this service - it doesn't need to know the llm or the vector
type Service interface {
	ProcessRequest(ctx context.Context, job jobModel.Job, messageHistory []string) jobModel.Job
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
}

type service struct {
	vectorDB    vectorDB.DataProcessor
	llmProvider llm.Provider
	embedder    embedding.Embedder
	docStore    docstore.DocStore
	populator   DocumentPopulator
	logger      *logger_i.Logger
}

// NewService constructor
func NewService(vector vectorDB.DataProcessor, llm llm.Provider, em embedding.Embedder, docs docstore.DocStore, populator DocumentPopulator) Service {
	return &service{
		vectorDB:    vector,
		llmProvider: llm,
		embedder:    em,
		docStore:    docs,
		populator:   populator,
		logger:      logger_i.NewLogger("RAG Service :"),
	}
}

func (s *service) ProcessRequest(ctx context.Context, jobt jobModel.Job, messageHistory []string) jobModel.Job {
	inMethodLogger := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY).(string), "JobId", jobt.Id)

	processContext, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	jobt.CurrentStep = jobModel.RAGCall

	// Embedding
	embeddingStep, err := s.executeEmbeddingStep(processContext, inMethodLogger, &jobt)
	if err != nil {
		return s.jobError(jobt, err, "EMBEDDING_FAILURE", true)
	}

	// Cache Check
	cachedAnswer, found := s.executeCacheCheckStep(ctx, inMethodLogger, &jobt, embeddingStep)
	if found {
		return returnOutput(jobt, cachedAnswer)
	}

	// Vector DB Search
	matches, err := s.executeVectorSearchStep(processContext, inMethodLogger, &jobt, embeddingStep)
	if err != nil {
		return s.jobError(jobt, err, "VECTOR_DB_FAILURE", true)
	}

	// Document-row enrichment of the retrieved sections
	contextBlocks := s.executeDocStoreStep(processContext, inMethodLogger, &jobt, matches)

	// LLM Generation
	answer, err := s.executeLLMStep(processContext, inMethodLogger, &jobt, contextBlocks, messageHistory)
	if err != nil {
		return s.jobError(jobt, err, "LLM_GENERATION_FAILURE", true)
	}

	//Background Cache Save
	go func() {
		err = s.vectorDB.SaveToCache(ctx, utils.GetNewUUID(), embeddingStep, answer)
		if err != nil {
			s.logger.Error("Failed to save to cache")
		}
	}()

	return returnOutput(jobt, answer)
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("Document_ingestion", time.Since(start)) }()

	job.CurrentStep = jobModel.IngestProcessing
	s.logger.Debug("Ingesting document", "filename", job.JobPayload.IngestFileName, "path", job.JobPayload.IngestURL)

	if err := s.populator.PopulateFile(ctx, job.JobPayload.IngestURL); err != nil {
		return s.jobError(job, fmt.Errorf("ingesting %s: %w", job.JobPayload.IngestFileName, err), "INGESTION_FAILURE", true)
	}

	// the upload was staged in a scratch dir, drop it now that it is stored
	if err := os.Remove(job.JobPayload.IngestURL); err != nil {
		s.logger.Error("Error removing staged upload", "error", err)
	}

	job.Status = jobModel.JobStatusComplete
	job.CurrentStep = jobModel.Complete
	return job
}
