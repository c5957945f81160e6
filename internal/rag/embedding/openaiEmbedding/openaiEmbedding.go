package openaiEmbedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/WaterTechWarriors/PDMS2/internal/config"
	"github.com/WaterTechWarriors/PDMS2/internal/rag/embedding"
	"github.com/WaterTechWarriors/PDMS2/pkg/logger_i"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client

const embedBatchLimit = 100

type client struct {
	api   openai.Client
	model string
}

func GetOpenAIEmbeddingClient(modelName string, apikey string) embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("openai_embedding")
		embeddingClient = &client{
			api:   openai.NewClient(option.WithAPIKey(apikey)),
			model: modelName,
		}
		logger.Info("OpenAI Embedding client created", "model", modelName)
	})

	if embeddingClient == nil {
		return nil
	}
	return &client{api: embeddingClient.api, model: embeddingClient.model}
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	vectors, err := c.embed(ctx, []string{query})
	if err != nil {
		log.Error("Error getting embedding from OpenAI", "error", err)
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return vectors[0], nil
}

// BatchEmbedding embeds the chunks in api-sized slices. The hint flag exists
// for providers with an offline batch path, here everything goes through the
// synchronous endpoint.
func (c *client) BatchEmbedding(ctx context.Context, chunks []string, isHugeDataSet bool) ([][]float32, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	var results [][]float32
	for i := 0; i < len(chunks); i += embedBatchLimit {
		end := i + embedBatchLimit
		if end > len(chunks) {
			end = len(chunks)
		}

		vectors, err := c.embed(ctx, chunks[i:end])
		if err != nil {
			// a single retry covers the usual rate-limit blip
			log.Error("Embedding batch failed, retrying once", "error", err)
			time.Sleep(5 * time.Second)
			vectors, err = c.embed(ctx, chunks[i:end])
			if err != nil {
				return nil, fmt.Errorf("embedding batch %d failed: %w", i/embedBatchLimit, err)
			}
		}
		results = append(results, vectors...)
	}
	return results, nil
}

func (c *client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: c.model,
	})
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(resp.Data))
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}
