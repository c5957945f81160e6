package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/WaterTechWarriors/PDMS2/internal/adapter/utils"
	"github.com/WaterTechWarriors/PDMS2/internal/data/redisStore"
	"github.com/WaterTechWarriors/PDMS2/internal/domain/commonModels"
	"github.com/WaterTechWarriors/PDMS2/pkg/logger_i"
)

// key layout: rows are JSON strings under <table>:<id>, plus lookup keys for
// the two natural-key constraints (product name, document file path)
const (
	productKeyPrefix  = "product:"
	productNameKey    = "product:name:"
	documentKeyPrefix = "document:"
	documentPathKey   = "document:path:"
	sectionKeyPrefix  = "section:"
	keywordListPrefix = "keywords:"
)

type redisDocStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func NewRedisDocStore(store *redisStore.Store) DocStore {
	return &redisDocStore{
		store:  store,
		logger: logger_i.NewLogger("DocStore"),
	}
}

func (r *redisDocStore) UpsertProduct(ctx context.Context, product commonModels.Product) (string, error) {
	existing, err := r.store.Get(ctx, productNameKey+product.Name)
	if err == nil && existing != "" {
		return existing, nil
	}
	if err != nil && !r.store.IsNil(err) {
		return "", fmt.Errorf("looking up product %q: %w", product.Name, err)
	}

	if product.Id == "" {
		product.Id = utils.GetNewUUID()
	}
	if err := r.setJSON(ctx, productKeyPrefix+product.Id, product); err != nil {
		return "", fmt.Errorf("inserting product %q: %w", product.Name, err)
	}
	if err := r.store.Set(ctx, productNameKey+product.Name, product.Id, 0); err != nil {
		return "", fmt.Errorf("indexing product %q: %w", product.Name, err)
	}
	r.logger.Debug("Inserted product", "id", product.Id, "name", product.Name)
	return product.Id, nil
}

func (r *redisDocStore) UpsertDocument(ctx context.Context, doc commonModels.Document) (string, error) {
	existing, err := r.store.Get(ctx, documentPathKey+doc.FilePath)
	if err == nil && existing != "" {
		return existing, nil
	}
	if err != nil && !r.store.IsNil(err) {
		return "", fmt.Errorf("looking up document %q: %w", doc.FilePath, err)
	}

	if doc.Id == "" {
		doc.Id = utils.GetNewUUID()
	}
	if err := r.setJSON(ctx, documentKeyPrefix+doc.Id, doc); err != nil {
		return "", fmt.Errorf("inserting document %q: %w", doc.Title, err)
	}
	if err := r.store.Set(ctx, documentPathKey+doc.FilePath, doc.Id, 0); err != nil {
		return "", fmt.Errorf("indexing document %q: %w", doc.Title, err)
	}
	r.logger.Debug("Inserted document", "id", doc.Id, "title", doc.Title)
	return doc.Id, nil
}

func (r *redisDocStore) InsertSection(ctx context.Context, section commonModels.Section) error {
	if err := r.setJSON(ctx, sectionKeyPrefix+section.Id, section); err != nil {
		return fmt.Errorf("inserting section %q: %w", section.Id, err)
	}
	return nil
}

func (r *redisDocStore) InsertKeywords(ctx context.Context, keywords []commonModels.Keyword) error {
	for _, kw := range keywords {
		data, err := json.Marshal(kw)
		if err != nil {
			return fmt.Errorf("encoding keyword %q: %w", kw.Keyword, err)
		}
		if err := r.store.ListPush(ctx, keywordListPrefix+kw.SectionId, string(data)); err != nil {
			return fmt.Errorf("inserting keyword %q: %w", kw.Keyword, err)
		}
	}
	return nil
}

func (r *redisDocStore) GetDocument(ctx context.Context, documentId string) (commonModels.Document, bool, error) {
	raw, err := r.store.Get(ctx, documentKeyPrefix+documentId)
	if err != nil {
		if r.store.IsNil(err) {
			return commonModels.Document{}, false, nil
		}
		return commonModels.Document{}, false, fmt.Errorf("fetching document %q: %w", documentId, err)
	}

	var doc commonModels.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return commonModels.Document{}, false, fmt.Errorf("decoding document %q: %w", documentId, err)
	}
	return doc, true, nil
}

func (r *redisDocStore) Reset(ctx context.Context) error {
	for _, pattern := range []string{
		productKeyPrefix + "*",
		documentKeyPrefix + "*",
		sectionKeyPrefix + "*",
		keywordListPrefix + "*",
	} {
		keys, err := r.store.KeysByPattern(ctx, pattern)
		if err != nil {
			return fmt.Errorf("listing keys %q: %w", pattern, err)
		}
		if len(keys) == 0 {
			continue
		}
		if err := r.store.Del(ctx, keys...); err != nil {
			return fmt.Errorf("clearing %q: %w", pattern, err)
		}
		r.logger.Info("Cleared table", "pattern", pattern, "rows", len(keys))
	}
	return nil
}

func (r *redisDocStore) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, key, string(data), 0)
}
