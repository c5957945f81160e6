// Package pipeline sequences the ingestion stages for a batch of PDFs:
// partition, enrich, chunk, annotate. One bad document never aborts the
// batch, failures are logged and counted and the next file proceeds.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/WaterTechWarriors/PDMS2/internal/config"
	"github.com/WaterTechWarriors/PDMS2/internal/data/elementStore"
	"github.com/WaterTechWarriors/PDMS2/internal/domain/element"
	"github.com/WaterTechWarriors/PDMS2/internal/metrics"
	"github.com/WaterTechWarriors/PDMS2/pkg/logger_i"
)

type Partitioner interface {
	PartitionFile(ctx context.Context, pdfPath string) ([]element.Element, error)
	Chunk(ctx context.Context, name string, elements []element.Element) ([]element.Chunk, error)
}

type Enricher interface {
	EnrichDocument(ctx context.Context, id string) error
}

type Annotator interface {
	AnnotatePDF(pdfPath string, outPath string, elements []element.Element) error
}

type Renderer interface {
	Render(chunks []element.Chunk) string
}

// ExtensionNormalizer is implemented by stores whose chunk writes can leave
// doubled file extensions behind.
type ExtensionNormalizer interface {
	NormalizeExtensions(ctx context.Context) (int, error)
}

type Orchestrator struct {
	inputDir     string
	markdownDir  string
	annotatedDir string

	partitioner Partitioner
	enricher    Enricher
	annotator   Annotator
	renderer    Renderer
	store       elementStore.Store

	logger *logger_i.Logger
}

func NewOrchestrator(
	dirs config.Directories,
	partitioner Partitioner,
	enricher Enricher,
	annotator Annotator,
	renderer Renderer,
	store elementStore.Store,
) (*Orchestrator, error) {
	o := &Orchestrator{
		inputDir:     dirs.InputDir,
		markdownDir:  filepath.Join(dirs.OutputDir, config.MarkdownDirName),
		annotatedDir: filepath.Join(dirs.OutputDir, config.AnnotatedDirName),
		partitioner:  partitioner,
		enricher:     enricher,
		annotator:    annotator,
		renderer:     renderer,
		store:        store,
		logger:       logger_i.NewLogger("Pipeline"),
	}
	for _, dir := range []string{o.markdownDir, o.annotatedDir, filepath.Join(dirs.OutputDir, config.WorkDirName)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return o, nil
}

// DiscoverPDFs lists the PDF files in the input directory, sorted by name.
func (o *Orchestrator) DiscoverPDFs() ([]string, error) {
	entries, err := os.ReadDir(o.inputDir)
	if err != nil {
		return nil, fmt.Errorf("reading input dir %s: %w", o.inputDir, err)
	}
	var pdfs []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			pdfs = append(pdfs, filepath.Join(o.inputDir, entry.Name()))
		}
	}
	sort.Strings(pdfs)
	return pdfs, nil
}

// IngestBatch runs the full stage sequence for every given PDF. Per-file
// failures are isolated, the batch always completes and the failure count is
// returned for the operator.
func (o *Orchestrator) IngestBatch(ctx context.Context, pdfFiles []string) (failed int) {
	o.logger.Info("Processing PDF files", "count", len(pdfFiles))

	for _, pdfPath := range pdfFiles {
		if err := o.processFile(ctx, pdfPath); err != nil {
			o.logger.Error("Error processing file, continuing with batch", "file", pdfPath, "error", err)
			failed++
		}
	}

	// the chunk stage names its outputs after the partitioned .json inputs,
	// producing .json.json files that need one rename pass
	if normalizer, ok := o.store.(ExtensionNormalizer); ok {
		renamed, err := normalizer.NormalizeExtensions(ctx)
		if err != nil {
			o.logger.Error("Extension cleanup failed", "error", err)
		} else {
			o.logger.Info("Renamed files to remove duplicate extension", "count", renamed)
		}
	}

	o.logger.Info("Batch complete", "processed", len(pdfFiles)-failed, "failed", failed)
	return failed
}

func (o *Orchestrator) processFile(ctx context.Context, pdfPath string) error {
	name := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	log := o.logger.With("file", name)

	log.Info("Starting partitioning")
	elements, err := runStage("partition", func() ([]element.Element, error) {
		return o.partitioner.PartitionFile(ctx, pdfPath)
	})
	if err != nil {
		return fmt.Errorf("partitioning: %w", err)
	}
	if err := o.store.SaveElements(ctx, name, elements); err != nil {
		return fmt.Errorf("saving partitioned elements: %w", err)
	}

	log.Info("Enhancing element metadata")
	if _, err := runStage("enrich", func() (struct{}, error) {
		return struct{}{}, o.enricher.EnrichDocument(ctx, name)
	}); err != nil {
		return fmt.Errorf("enriching: %w", err)
	}

	log.Info("Starting chunking")
	enriched, err := o.store.LoadElements(ctx, name)
	if err != nil {
		return fmt.Errorf("reloading enriched elements: %w", err)
	}
	chunks, err := runStage("chunk", func() ([]element.Chunk, error) {
		return o.partitioner.Chunk(ctx, name, enriched)
	})
	if err != nil {
		return fmt.Errorf("chunking: %w", err)
	}
	// chunk outputs inherit the partitioned file's name, .json extension
	// included
	if err := o.store.SaveChunks(ctx, name+".json", chunks); err != nil {
		return fmt.Errorf("saving chunks: %w", err)
	}

	log.Info("Annotating source pages")
	outPath := filepath.Join(o.annotatedDir, filepath.Base(pdfPath))
	if _, err := runStage("annotate", func() (struct{}, error) {
		return struct{}{}, o.annotator.AnnotatePDF(pdfPath, outPath, enriched)
	}); err != nil {
		return fmt.Errorf("annotating: %w", err)
	}

	return nil
}

// RenderMarkdown renders every chunked document into the markdown output
// directory. Failures are per-document, the pass always completes.
func (o *Orchestrator) RenderMarkdown(ctx context.Context) (rendered int, err error) {
	ids, err := o.store.ListChunkIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing chunked documents: %w", err)
	}
	if len(ids) == 0 {
		o.logger.Warn("No chunked files to process")
		return 0, nil
	}

	for _, id := range ids {
		chunks, err := o.store.LoadChunks(ctx, id)
		if err != nil {
			o.logger.Error("Error loading chunks", "id", id, "error", err)
			metrics.CountFileFailure("markdown")
			continue
		}
		outPath := filepath.Join(o.markdownDir, id+".md")
		start := time.Now()
		content := o.renderer.Render(chunks)
		metrics.CapturePipelineStage("markdown", time.Since(start))
		if err := os.WriteFile(outPath, []byte(content), 0o640); err != nil {
			o.logger.Error("Error writing markdown", "id", id, "error", err)
			metrics.CountFileFailure("markdown")
			continue
		}
		o.logger.Info("Created markdown", "file", filepath.Base(outPath))
		rendered++
	}
	return rendered, nil
}

func runStage[T any](stage string, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := fn()
	metrics.CapturePipelineStage(stage, time.Since(start))
	if err != nil {
		metrics.CountFileFailure(stage)
	}
	return out, err
}
