// Package docstore holds the relational side of the RAG store: product,
// document, section and keyword rows. The vector index only carries ids and
// snippets, these rows are the source of truth for everything else.
package docstore

import (
	"context"

	"github.com/WaterTechWarriors/PDMS2/internal/domain/commonModels"
)

type DocStore interface {
	// UpsertProduct returns the existing product id when a product with the
	// same name is already stored.
	UpsertProduct(ctx context.Context, product commonModels.Product) (string, error)

	// UpsertDocument returns the existing document id when the file path was
	// ingested before.
	UpsertDocument(ctx context.Context, doc commonModels.Document) (string, error)

	InsertSection(ctx context.Context, section commonModels.Section) error
	InsertKeywords(ctx context.Context, keywords []commonModels.Keyword) error

	GetDocument(ctx context.Context, documentId string) (commonModels.Document, bool, error)

	// Reset drops every row. Populate offers this as an explicit flag.
	Reset(ctx context.Context) error
}
