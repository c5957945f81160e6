package rag_test

import (
	"context"

	"github.com/WaterTechWarriors/PDMS2/internal/domain/commonModels"
)

// MockVectorDB implements vectorDB.DataProcessor
type MockVectorDB struct {
	// Control fields to simulate different behaviors
	OnSearch           func(ctx context.Context, vectorVal []float32) ([]commonModels.SectionMatch, error)
	OnGetCachedAnswer  func(ctx context.Context, queryVector []float32) (string, bool, error)
	OnSaveToCache      func(ctx context.Context, id string, vector []float32, answer string) error
	OnCreateCollection func(ctx context.Context, name string) error
	OnUpsertBatch      func(ctx context.Context, name string, sections []commonModels.SectionChunk, vectors [][]float32) error
}

func (m *MockVectorDB) Search(ctx context.Context, v []float32) ([]commonModels.SectionMatch, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, v)
	}
	return []commonModels.SectionMatch{
		{Content: "default context", SectionId: "sec-default", DocumentId: "doc-default"},
	}, nil
}

func (m *MockVectorDB) GetCachedAnswer(ctx context.Context, v []float32) (string, bool, error) {
	if m.OnGetCachedAnswer != nil {
		return m.OnGetCachedAnswer(ctx, v)
	}
	return "", false, nil
}

func (m *MockVectorDB) SaveToCache(ctx context.Context, id string, v []float32, a string) error {
	if m.OnSaveToCache != nil {
		return m.OnSaveToCache(ctx, id, v, a)
	}
	return nil
}

func (m *MockVectorDB) CreateCollection(ctx context.Context, name string) error {
	if m.OnCreateCollection != nil {
		return m.OnCreateCollection(ctx, name)
	}
	return nil
}

func (m *MockVectorDB) UpsertBatch(ctx context.Context, name string, sections []commonModels.SectionChunk, vectors [][]float32) error {
	if m.OnUpsertBatch != nil {
		return m.OnUpsertBatch(ctx, name, sections, vectors)
	}
	return nil
}

type MockEmbedder struct {
	OnGetEmbedding   func(ctx context.Context, text string) ([]float32, error)
	OnBatchEmbedding func(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error)
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, chunks, isHuge)
	}
	// Return dummy vectors matching chunk size
	return make([][]float32, len(chunks)), nil
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return []float32{0.1}, nil
}

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate       func(ctx context.Context, query string, matches []string, history []string) (string, error)
	ReceivedContexts []string
}

func (m *MockLLM) Generate(ctx context.Context, q string, mth []string, hist []string) (string, error) {
	m.ReceivedContexts = mth
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, q, mth, hist)
	}
	return "mocked llm response", nil
}

// MockDocStore implements docstore.DocStore
type MockDocStore struct {
	OnGetDocument func(ctx context.Context, documentId string) (commonModels.Document, bool, error)
}

func (m *MockDocStore) UpsertProduct(ctx context.Context, p commonModels.Product) (string, error) {
	return p.Id, nil
}

func (m *MockDocStore) UpsertDocument(ctx context.Context, d commonModels.Document) (string, error) {
	return d.Id, nil
}

func (m *MockDocStore) InsertSection(ctx context.Context, s commonModels.Section) error { return nil }

func (m *MockDocStore) InsertKeywords(ctx context.Context, k []commonModels.Keyword) error {
	return nil
}

func (m *MockDocStore) GetDocument(ctx context.Context, documentId string) (commonModels.Document, bool, error) {
	if m.OnGetDocument != nil {
		return m.OnGetDocument(ctx, documentId)
	}
	return commonModels.Document{}, false, nil
}

func (m *MockDocStore) Reset(ctx context.Context) error { return nil }

// MockPopulator implements rag.DocumentPopulator
type MockPopulator struct {
	OnPopulateFile func(ctx context.Context, docPath string) error
	Populated      []string
}

func (m *MockPopulator) PopulateFile(ctx context.Context, docPath string) error {
	m.Populated = append(m.Populated, docPath)
	if m.OnPopulateFile != nil {
		return m.OnPopulateFile(ctx, docPath)
	}
	return nil
}
