package embedding

import "context"

// Embedder turns text into vectors sized for the section collection. The
// batch form is used by population; isHugeDataSet switches providers to their
// throttled or offline batch path.
type Embedder interface {
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	BatchEmbedding(ctx context.Context, chunks []string, isHugeDataSet bool) ([][]float32, error)
}
