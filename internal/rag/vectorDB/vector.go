package vectorDB

import (
	"context"

	"github.com/WaterTechWarriors/PDMS2/internal/domain/commonModels"
)

type DataProcessor interface {
	Search(ctx context.Context, vectorVal []float32) ([]commonModels.SectionMatch, error)
	GetCachedAnswer(ctx context.Context, queryVector []float32) (string, bool, error)
	SaveToCache(ctx context.Context, id string, vector []float32, answer string) error

	// CreateCollection Populate call
	CreateCollection(ctx context.Context, collectionName string) error
	UpsertBatch(ctx context.Context, collectionName string, sections []commonModels.SectionChunk, vectors [][]float32) error
}
