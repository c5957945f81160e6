// Package populate fills the RAG store from processed documents: relational
// rows in the doc store and embedded section vectors in the vector index.
// Partitioned element files are the preferred source because they carry
// enrichment summaries; plain text extraction is the fallback.
package populate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/WaterTechWarriors/PDMS2/internal/adapter/utils"
	"github.com/WaterTechWarriors/PDMS2/internal/config"
	"github.com/WaterTechWarriors/PDMS2/internal/data/elementStore"
	"github.com/WaterTechWarriors/PDMS2/internal/domain/commonModels"
	"github.com/WaterTechWarriors/PDMS2/internal/rag/docstore"
	"github.com/WaterTechWarriors/PDMS2/internal/rag/embedding"
	"github.com/WaterTechWarriors/PDMS2/internal/rag/vectorDB"
	"github.com/WaterTechWarriors/PDMS2/pkg/logger_i"
)

const (
	sectionMaxChars = 1000
	sectionOverlap  = 150

	upsertBatchSize = 100

	//past this point the embedder throttles itself between batches
	hugeDataSetThreshold = 1000000
)

var (
	pieceCountPattern  = regexp.MustCompile(`([A-Z])\s*$`)
	vacuumModelPattern = regexp.MustCompile(`(?i)(volt\s+fx-\d+li|fx-\d+li)`)
	wordPattern        = regexp.MustCompile(`\b\w+\b`)
)

type Populator struct {
	embedder embedding.Embedder
	vectors  vectorDB.DataProcessor
	docs     docstore.DocStore
	elements elementStore.Store
	logger   *logger_i.Logger
}

// NewPopulator wires the population flow. elements may be nil, in which case
// every document falls back to direct text extraction.
func NewPopulator(e embedding.Embedder, v vectorDB.DataProcessor, d docstore.DocStore, elements elementStore.Store) *Populator {
	return &Populator{
		embedder: e,
		vectors:  v,
		docs:     d,
		elements: elements,
		logger:   logger_i.NewLogger("Populate "),
	}
}

// PopulateDirectory ingests every supported document under dir. Returns the
// number of documents stored; a failing document is logged and skipped so
// the rest of the batch still lands.
func (p *Populator) PopulateDirectory(ctx context.Context, dir string, reset bool) (int, error) {
	if reset {
		p.logger.Info("Clearing doc store before population")
		if err := p.docs.Reset(ctx); err != nil {
			return 0, fmt.Errorf("resetting doc store: %w", err)
		}
	}

	if err := p.vectors.CreateCollection(ctx, config.SectionCollectionName); err != nil {
		return 0, fmt.Errorf("creating collection: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if getDocType(entry.Name()) == commonModels.ERR {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	stored := 0
	for _, path := range paths {
		if err := p.PopulateFile(ctx, path); err != nil {
			p.logger.Error("Failed to populate document", "path", path, "error", err)
			continue
		}
		stored++
	}
	return stored, nil
}

// PopulateFile stores one document: product and document rows first, then
// sections with keywords, then the embedded section vectors.
func (p *Populator) PopulateFile(ctx context.Context, docPath string) error {
	docType := getDocType(docPath)
	if docType == commonModels.ERR {
		return fmt.Errorf("unsupported document type: %s", docPath)
	}

	pages, err := p.loadPages(ctx, docPath, docType)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return fmt.Errorf("no extractable content in %s", docPath)
	}
	p.logger.Debug("Loaded document", "path", docPath, "pages", len(pages))

	product := extractProductInfo(docPath, pages)
	productId, err := p.docs.UpsertProduct(ctx, product)
	if err != nil {
		return fmt.Errorf("upserting product: %w", err)
	}

	doc := commonModels.Document{
		Title:               filepath.Base(docPath),
		ProductId:           productId,
		ProductName:         product.Name,
		Version:             "1.0",
		Language:            "en",
		FilePath:            docPath,
		NumPieces:           product.NumPieces,
		ContentType:         docType,
		LastIngestTimestamp: time.Now(),
	}
	docId, err := p.docs.UpsertDocument(ctx, doc)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}
	doc.Id = docId

	sections, err := p.storeSections(ctx, doc, pages)
	if err != nil {
		return err
	}
	p.logger.Debug("Stored sections", "document", doc.Title, "sections", len(sections))

	return p.batchUpsert(ctx, doc, sections)
}

// loadPages prefers the partitioned element file matching the document name;
// direct extraction is the fallback when no such file exists.
func (p *Populator) loadPages(ctx context.Context, docPath string, docType commonModels.DocType) ([]rawPage, error) {
	if p.elements != nil {
		name := strings.TrimSuffix(filepath.Base(docPath), filepath.Ext(docPath))
		elements, err := p.elements.LoadElements(ctx, name)
		if err == nil && len(elements) > 0 {
			p.logger.Debug("Using partitioned elements", "name", name, "elements", len(elements))
			return pagesFromElements(elements), nil
		}
	}
	return p.extractDirect(docPath, docType)
}

func (p *Populator) storeSections(ctx context.Context, doc commonModels.Document, pages []rawPage) ([]commonModels.Section, error) {
	var sections []commonModels.Section
	order := 0
	for _, page := range pages {
		for _, content := range splitIntoSections(page.Content, sectionMaxChars, sectionOverlap) {
			if strings.TrimSpace(content) == "" {
				continue
			}
			order++
			section := commonModels.Section{
				Id:         utils.GetNewUUID(),
				DocumentId: doc.Id,
				Title:      fmt.Sprintf("Section %d", order),
				Content:    content,
				PageNumber: page.Number,
				Order:      order,
			}
			if err := p.docs.InsertSection(ctx, section); err != nil {
				return nil, fmt.Errorf("inserting section %d: %w", order, err)
			}
			if err := p.docs.InsertKeywords(ctx, extractKeywords(section.Id, content)); err != nil {
				return nil, fmt.Errorf("inserting keywords for section %d: %w", order, err)
			}
			sections = append(sections, section)
		}
	}
	return sections, nil
}

// batchUpsert embeds the sections in fixed-size batches and writes the
// vectors with their payloads to the section collection.
func (p *Populator) batchUpsert(ctx context.Context, doc commonModels.Document, sections []commonModels.Section) error {
	isHugeDataSet := len(sections) > hugeDataSetThreshold
	if isHugeDataSet {
		p.logger.Debug("Huge dataset, throttled embedding enabled")
	}

	for i := 0; i < len(sections); i += upsertBatchSize {
		end := i + upsertBatchSize
		if end > len(sections) {
			end = len(sections)
		}
		batch := sections[i:end]

		texts := make([]string, 0, len(batch))
		chunks := make([]commonModels.SectionChunk, 0, len(batch))
		for _, s := range batch {
			texts = append(texts, s.Content)
			chunks = append(chunks, commonModels.SectionChunk{Doc: doc, Section: s})
		}

		p.logger.Debug("Embedding batch", "size", len(texts))
		vectors, err := p.embedder.BatchEmbedding(ctx, texts, isHugeDataSet)
		if err != nil {
			return fmt.Errorf("embedding batch failed: %w", err)
		}

		if err := p.vectors.UpsertBatch(ctx, config.SectionCollectionName, chunks, vectors); err != nil {
			return fmt.Errorf("upserting vectors failed: %w", err)
		}
	}
	return nil
}

// extractProductInfo derives a product row from the document name and its
// first page. The piece-count convention encodes the count as a trailing
// capital letter on the first line (A=1, B=2, ...).
func extractProductInfo(docPath string, pages []rawPage) commonModels.Product {
	base := filepath.Base(docPath)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	firstPage := pages[0].Content
	firstLine := firstPage
	if idx := strings.IndexByte(firstPage, '\n'); idx >= 0 {
		firstLine = firstPage[:idx]
	}

	numPieces := 0
	if m := pieceCountPattern.FindStringSubmatch(firstLine); m != nil {
		numPieces = int(m[1][0]-'A') + 1
	}

	lowered := strings.ToLower(firstPage)
	if strings.Contains(lowered, "cordless vacuum") {
		if m := vacuumModelPattern.FindStringSubmatch(firstPage); m != nil {
			name = "Cordless Vacuum " + strings.ToUpper(m[1])
		} else {
			name = "Cordless Vacuum " + name
		}
	}

	return commonModels.Product{
		Name:         name,
		Category:     "Vacuum Cleaner",
		Manufacturer: "Unknown",
		ReleaseDate:  time.Now().Format("2006-01-02"),
		NumPieces:    numPieces,
	}
}

// extractKeywords lowercases and dedupes every word of a section.
func extractKeywords(sectionId, text string) []commonModels.Keyword {
	seen := make(map[string]bool)
	var keywords []commonModels.Keyword
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, commonModels.Keyword{
			SectionId:       sectionId,
			Keyword:         word,
			ImportanceScore: 1.0,
		})
	}
	return keywords
}
