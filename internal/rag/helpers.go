package rag

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/WaterTechWarriors/PDMS2/internal/domain/commonModels"
	"github.com/WaterTechWarriors/PDMS2/internal/domain/jobModel"
	"github.com/WaterTechWarriors/PDMS2/internal/metrics"
	"github.com/WaterTechWarriors/PDMS2/pkg/logger_i"
)

func returnOutput(job jobModel.Job, ans string) jobModel.Job {
	job.JobPayload.Answer = ans
	job.CurrentStep = jobModel.Complete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessRequest", "Current Status", job.CurrentStep)
	return job
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "error", err)

	job.Error = jobModel.JobError{
		Code:    http.StatusInternalServerError,
		Message: "Internal Server Error",
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	return job
}

func (s *service) executeEmbeddingStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job) ([]float32, error) {
	*job = logOutput(*job, jobModel.EmbeddingAPICall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	return s.embedder.GetEmbedding(ctx, job.JobPayload.Question)
}

func (s *service) executeCacheCheckStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, emb []float32) (string, bool) {
	*job = logOutput(*job, jobModel.CacheCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	ans, found, _ := s.vectorDB.GetCachedAnswer(ctx, emb)
	return ans, found
}

func (s *service) executeVectorSearchStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, emb []float32) ([]commonModels.SectionMatch, error) {
	*job = logOutput(*job, jobModel.VectorDBCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	matches, err := s.vectorDB.Search(ctx, emb)
	if err != nil {
		return nil, err
	}

	sources := make([]string, 0, len(matches))
	for _, m := range matches {
		sources = append(sources, m.SectionId)
	}
	job.JobPayload.Sources = sources
	return matches, nil
}

// executeDocStoreStep prefixes each retrieved section with its document's
// product facts. A missing document row degrades to the bare section text
// rather than failing the query.
func (s *service) executeDocStoreStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, matches []commonModels.SectionMatch) []string {
	*job = logOutput(*job, jobModel.DocStoreCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("docstore_lookup", time.Since(start)) }()

	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		doc, found, err := s.docStore.GetDocument(ctx, m.DocumentId)
		if err != nil || !found {
			if err != nil {
				log.Error("Doc store lookup failed", "documentId", m.DocumentId, "error", err)
			}
			blocks = append(blocks, m.Content)
			continue
		}

		pieces := "Unknown"
		if doc.NumPieces > 0 {
			pieces = fmt.Sprintf("%d", doc.NumPieces)
		}
		blocks = append(blocks, fmt.Sprintf("Product: %s\nNumber of pieces: %s\n\n%s", doc.ProductName, pieces, m.Content))
	}
	return blocks
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, contextBlocks []string, history []string) (string, error) {
	*job = logOutput(*job, jobModel.LLMCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	return s.llmProvider.Generate(ctx, job.JobPayload.Question, contextBlocks, history)
}
