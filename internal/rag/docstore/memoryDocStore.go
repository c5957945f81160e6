package docstore

import (
	"context"
	"sync"

	"github.com/WaterTechWarriors/PDMS2/internal/adapter/utils"
	"github.com/WaterTechWarriors/PDMS2/internal/domain/commonModels"
)

// MemoryDocStore backs tests and redis-less local runs.
type MemoryDocStore struct {
	mu             sync.Mutex
	products       map[string]commonModels.Product
	productByName  map[string]string
	documents      map[string]commonModels.Document
	documentByPath map[string]string
	sections       map[string]commonModels.Section
	keywords       map[string][]commonModels.Keyword
}

func NewMemoryDocStore() *MemoryDocStore {
	m := &MemoryDocStore{}
	m.reset()
	return m
}

func (m *MemoryDocStore) reset() {
	m.products = make(map[string]commonModels.Product)
	m.productByName = make(map[string]string)
	m.documents = make(map[string]commonModels.Document)
	m.documentByPath = make(map[string]string)
	m.sections = make(map[string]commonModels.Section)
	m.keywords = make(map[string][]commonModels.Keyword)
}

func (m *MemoryDocStore) UpsertProduct(ctx context.Context, product commonModels.Product) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.productByName[product.Name]; ok {
		return id, nil
	}
	if product.Id == "" {
		product.Id = utils.GetNewUUID()
	}
	m.products[product.Id] = product
	m.productByName[product.Name] = product.Id
	return product.Id, nil
}

func (m *MemoryDocStore) UpsertDocument(ctx context.Context, doc commonModels.Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.documentByPath[doc.FilePath]; ok {
		return id, nil
	}
	if doc.Id == "" {
		doc.Id = utils.GetNewUUID()
	}
	m.documents[doc.Id] = doc
	m.documentByPath[doc.FilePath] = doc.Id
	return doc.Id, nil
}

func (m *MemoryDocStore) InsertSection(ctx context.Context, section commonModels.Section) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sections[section.Id] = section
	return nil
}

func (m *MemoryDocStore) InsertKeywords(ctx context.Context, keywords []commonModels.Keyword) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, kw := range keywords {
		m.keywords[kw.SectionId] = append(m.keywords[kw.SectionId], kw)
	}
	return nil
}

func (m *MemoryDocStore) GetDocument(ctx context.Context, documentId string) (commonModels.Document, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[documentId]
	return doc, ok, nil
}

func (m *MemoryDocStore) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	return nil
}

// test helpers

func (m *MemoryDocStore) SectionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sections)
}

func (m *MemoryDocStore) KeywordCount(sectionId string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keywords[sectionId])
}
