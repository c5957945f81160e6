package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/WaterTechWarriors/PDMS2/internal/domain/element"
	"github.com/WaterTechWarriors/PDMS2/internal/metrics"
	"github.com/WaterTechWarriors/PDMS2/pkg/logger_i"
)

// ImageSummarizer turns an embedded image payload into a short description.
type ImageSummarizer interface {
	SummarizeImage(ctx context.Context, imageBase64 string, mimeType string) (string, error)
}

// TextSummarizer produces a tagged summary of a text passage.
type TextSummarizer interface {
	SummarizeText(ctx context.Context, text string) (string, error)
}

// Store is the slice of element persistence the engine needs.
type Store interface {
	LoadElements(ctx context.Context, id string) ([]element.Element, error)
	SaveElements(ctx context.Context, id string, elements []element.Element) error
}

// Engine enriches a document's element sequence in place. Each element is
// summarized and the whole sequence persisted before the next element is
// touched, so a crash mid-run loses at most one element's work. A failed
// summarization call skips that element and moves on - a single bad element
// never aborts the document.
type Engine struct {
	store  Store
	images ImageSummarizer
	texts  TextSummarizer
	logger *logger_i.Logger
}

func NewEngine(store Store, images ImageSummarizer, texts TextSummarizer) *Engine {
	return &Engine{
		store:  store,
		images: images,
		texts:  texts,
		logger: logger_i.NewLogger("Enrichment"),
	}
}

// EnrichDocument runs the image pass then the text pass over the stored
// sequence for id. Only a failure to load the sequence is fatal; everything
// downstream is per-element and logged.
//
// Elements that already carry a summary are skipped, so re-running after an
// interruption never re-invokes the summarizer for completed work.
func (e *Engine) EnrichDocument(ctx context.Context, id string) error {
	log := e.logger.With("document", id)

	elements, err := e.store.LoadElements(ctx, id)
	if err != nil {
		return fmt.Errorf("loading elements for enrichment: %w", err)
	}

	e.enrichImages(ctx, id, elements, log)
	e.enrichText(ctx, id, elements, log)
	return nil
}

func (e *Engine) enrichImages(ctx context.Context, id string, elements []element.Element, log *logger_i.Logger) {
	for i := range elements {
		el := &elements[i]
		if el.Type != element.TypeImage {
			continue
		}
		if el.Summary != "" {
			log.Debug("Skipping already-enriched image", "element", el.ID)
			continue
		}
		if !el.HasImagePayload() {
			log.Warn("Skipping image without payload", "element", el.ID, "text", el.Text)
			metrics.CountEnrichment("image", "skipped")
			continue
		}

		start := time.Now()
		summary, err := e.images.SummarizeImage(ctx, el.Image, el.ImageMIMEType)
		metrics.CaptureExecutionMetrics("image_summary", time.Since(start))
		if err != nil {
			log.Error("Image summarization failed", "element", el.ID, "error", err)
			metrics.CountEnrichment("image", "failed")
			continue
		}

		//the description becomes the element's text; Summary doubles as the
		//re-run marker
		el.Text = summary
		el.Summary = summary
		if err := e.store.SaveElements(ctx, id, elements); err != nil {
			log.Error("Persisting image enrichment failed", "element", el.ID, "error", err)
			continue
		}
		metrics.CountEnrichment("image", "enriched")
	}
}

func (e *Engine) enrichText(ctx context.Context, id string, elements []element.Element, log *logger_i.Logger) {
	for i := range elements {
		el := &elements[i]
		if !el.Type.IsEnrichableText() {
			continue
		}
		if el.Summary != "" {
			log.Debug("Skipping already-enriched text", "element", el.ID)
			continue
		}
		if el.Text == "" {
			log.Warn("Skipping empty text element", "element", el.ID)
			metrics.CountEnrichment("text", "skipped")
			continue
		}

		start := time.Now()
		summary, err := e.texts.SummarizeText(ctx, el.Text)
		metrics.CaptureExecutionMetrics("text_summary", time.Since(start))
		if err != nil {
			log.Error("Text summarization failed", "element", el.ID, "error", err)
			metrics.CountEnrichment("text", "failed")
			continue
		}

		el.Summary = summary
		if err := e.store.SaveElements(ctx, id, elements); err != nil {
			log.Error("Persisting text enrichment failed", "element", el.ID, "error", err)
			continue
		}
		metrics.CountEnrichment("text", "enriched")
	}
}
