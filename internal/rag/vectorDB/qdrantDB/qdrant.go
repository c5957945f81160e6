package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/WaterTechWarriors/PDMS2/internal/config"
	"github.com/WaterTechWarriors/PDMS2/internal/domain/commonModels"
	"github.com/WaterTechWarriors/PDMS2/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
)

var logger *logger_i.Logger
var quadrantInstance *qdrant.Client
var once sync.Once
var dimension = uint64(config.EmbeddingOutputDimensionality)
var collectionName = config.SectionCollectionName

type ClientHolder struct {
	QObj *qdrant.Client
}

func GetQuadrantClient(ctx context.Context, qcfg config.Qdrant) *ClientHolder {

	once.Do(func() {
		logger = logger_i.NewLogger("Qdrant")
		res := newClient(qcfg)
		if res != nil {
			quadrantInstance = res
			initCacheCollection(ctx, quadrantInstance)
			go closeQdrant(ctx, quadrantInstance)
		}
	})

	if quadrantInstance == nil {
		return nil
	}
	return &ClientHolder{
		QObj: quadrantInstance,
	}
}

// resolveEndpoint falls back to the compiled-in defaults when the config
// section is absent or partially filled.
func resolveEndpoint(qcfg config.Qdrant) (string, int) {
	host := qcfg.Host
	port := qcfg.Port
	if host == "" {
		host = config.QdrantHost
	}
	if port == 0 {
		port = config.QdrantGrpcPort
	}
	return host, port
}

func newClient(qcfg config.Qdrant) *qdrant.Client {

	host, port := resolveEndpoint(qcfg)

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate: ", "error:", err)
	}

	err = createCollection(context.Background(), client, config.SectionCollectionName)
	if err != nil {
		logger.Error("could not create collection: ", "collectionName", config.SectionCollectionName, "error:", err)
		return nil
	}

	return client
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	err := qi.Close()
	if err != nil {
		logger.Error("could not close Qdrant: ", "error:", err)
	}
	logger.Info("Closed Qdrant")
}

func (db *ClientHolder) Search(ctx context.Context, vectorFloat []float32) ([]commonModels.SectionMatch, error) {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))
	result, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionName, //TODO:with access control this collection should be dynamic ie parameterized
		Query:          qdrant.NewQuery(vectorFloat...),
		Limit:          qdrant.PtrOf(uint64(config.VectorMatchCount)),
		WithPayload:    qdrant.NewWithPayload(true),
	})

	if err != nil {
		loggr.Error("Error querying Qdrant: ", "error:", err)
		return nil, err
	}

	var matches []commonModels.SectionMatch
	for _, hit := range result {
		matches = append(matches, commonModels.SectionMatch{
			Content:     hit.Payload["content"].GetStringValue(),
			SectionId:   hit.Payload["section_id"].GetStringValue(),
			DocumentId:  hit.Payload["document_id"].GetStringValue(),
			ProductName: hit.Payload["product_name"].GetStringValue(),
			PageNumber:  int(hit.Payload["page_number"].GetIntegerValue()),
			Order:       int(hit.Payload["order"].GetIntegerValue()),
			IngestedAt:  hit.Payload["ingested_at"].GetIntegerValue(),
		})
	}

	loggr.Debug("Found matches", "count", len(matches))
	return matches, nil
}

func (db *ClientHolder) CreateCollection(ctx context.Context, collectionName string) error {
	return createCollection(ctx, db.QObj, collectionName)
}

func (db *ClientHolder) UpsertBatch(ctx context.Context, collectionName string, sections []commonModels.SectionChunk, vectors [][]float32) error {
	if len(sections) != len(vectors) {
		return fmt.Errorf("mismatch: got %d sections but %d vectors", len(sections), len(vectors))
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(sections))

	for i, sc := range sections {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(sc.Section.Id),
			Vectors: qdrant.NewVectors(vectors[i]...),

			Payload: qdrant.NewValueMap(map[string]any{
				"content":      sc.Section.Content,
				"section_id":   sc.Section.Id,
				"document_id":  sc.Doc.Id,
				"product_name": sc.Doc.ProductName,
				"page_number":  sc.Section.PageNumber,
				"order":        sc.Section.Order,
				"ingested_at":  sc.Doc.LastIngestTimestamp.Unix(),
			}),
		}
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})

	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}

	return nil

}

func createCollection(ctx context.Context, client *qdrant.Client, collectionName string) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {

		return nil
	}

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension, //TODO:this shouldnt be hardcoded
			Distance: qdrant.Distance_Cosine,
		}),
	})
	return err
}
