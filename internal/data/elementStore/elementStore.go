package elementStore

import (
	"context"

	"github.com/WaterTechWarriors/PDMS2/internal/domain/element"
)

// Store abstracts persistence of element and chunk sequences so the
// enrichment engine and renderer never touch the filesystem directly - tests
// substitute the in-memory implementation.
//
// The id is the document's base name; each implementation decides how that
// maps to physical storage.
type Store interface {
	LoadElements(ctx context.Context, id string) ([]element.Element, error)
	SaveElements(ctx context.Context, id string, elements []element.Element) error
	LoadChunks(ctx context.Context, id string) ([]element.Chunk, error)
	SaveChunks(ctx context.Context, id string, chunks []element.Chunk) error

	//ListElementIDs lists partitioned documents, ListChunkIDs chunked ones.
	ListElementIDs(ctx context.Context) ([]string, error)
	ListChunkIDs(ctx context.Context) ([]string, error)
}
