package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/WaterTechWarriors/PDMS2/internal/data/elementStore"
	"github.com/WaterTechWarriors/PDMS2/internal/domain/element"
)

// --- Mocks ---

type mockImageSummarizer struct {
	calls int
	fn    func(imageBase64, mime string) (string, error)
}

func (m *mockImageSummarizer) SummarizeImage(ctx context.Context, imageBase64, mime string) (string, error) {
	m.calls++
	if m.fn != nil {
		return m.fn(imageBase64, mime)
	}
	return "An image: description", nil
}

type mockTextSummarizer struct {
	calls int
	fn    func(text string) (string, error)
}

func (m *mockTextSummarizer) SummarizeText(ctx context.Context, text string) (string, error) {
	m.calls++
	if m.fn != nil {
		return m.fn(text)
	}
	return "Product Feature: " + text, nil
}

type failingStore struct{}

func (failingStore) LoadElements(ctx context.Context, id string) ([]element.Element, error) {
	return nil, errors.New("disk on fire")
}
func (failingStore) SaveElements(ctx context.Context, id string, elements []element.Element) error {
	return nil
}

func seedStore(t *testing.T, elements []element.Element) *elementStore.MemoryStore {
	t.Helper()
	store := elementStore.NewMemoryStore()
	if err := store.SaveElements(context.Background(), "doc", elements); err != nil {
		t.Fatal(err)
	}
	return store
}

// --- Tests ---

func TestEnrichDocument_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, []element.Element{
		{ID: "img-1", Type: element.TypeImage, Text: "fig 1", Image: "cGF5bG9hZA==", ImageMIMEType: "image/png", PageNumber: 1},
		{ID: "txt-1", Type: element.TypeNarrativeText, Text: "The vacuum runs for 90 minutes.", PageNumber: 1},
	})
	seedSaves := store.SaveCount("doc")

	engine := NewEngine(store, &mockImageSummarizer{}, &mockTextSummarizer{})
	if err := engine.EnrichDocument(ctx, "doc"); err != nil {
		t.Fatalf("EnrichDocument failed: %v", err)
	}

	elements, err := store.LoadElements(ctx, "doc")
	if err != nil {
		t.Fatal(err)
	}

	// image element: text replaced by the AI description
	if elements[0].Text != "An image: description" {
		t.Errorf("image text = %q; want summarizer output", elements[0].Text)
	}
	// text element: original text preserved, summary added
	if elements[1].Text != "The vacuum runs for 90 minutes." {
		t.Errorf("narrative text was mutated: %q", elements[1].Text)
	}
	if !strings.HasPrefix(elements[1].Summary, "Product Feature:") {
		t.Errorf("narrative summary = %q; want tagged summary", elements[1].Summary)
	}

	// exactly one rewrite per enriched element
	if got := store.SaveCount("doc") - seedSaves; got != 2 {
		t.Errorf("file rewritten %d times; want exactly 2", got)
	}
}

func TestEnrichDocument_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, []element.Element{
		{ID: "img-1", Type: element.TypeImage, Image: "cGF5bG9hZA==", PageNumber: 1},
		{ID: "txt-1", Type: element.TypeTitle, Text: "Manual", PageNumber: 1},
	})

	images := &mockImageSummarizer{}
	texts := &mockTextSummarizer{}
	engine := NewEngine(store, images, texts)

	if err := engine.EnrichDocument(ctx, "doc"); err != nil {
		t.Fatal(err)
	}
	firstRun, _ := store.LoadElements(ctx, "doc")

	// second run must neither call summarizers nor change the file
	if err := engine.EnrichDocument(ctx, "doc"); err != nil {
		t.Fatal(err)
	}
	if images.calls != 1 || texts.calls != 1 {
		t.Errorf("summarizer re-invoked on rerun: image=%d text=%d calls", images.calls, texts.calls)
	}
	secondRun, _ := store.LoadElements(ctx, "doc")
	for i := range firstRun {
		if firstRun[i] != secondRun[i] {
			t.Errorf("element %d changed on rerun: %+v -> %+v", i, firstRun[i], secondRun[i])
		}
	}
}

func TestEnrichDocument_FailureIsolation(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, []element.Element{
		{ID: "t-1", Type: element.TypeNarrativeText, Text: "first", PageNumber: 1},
		{ID: "t-2", Type: element.TypeNarrativeText, Text: "boom", PageNumber: 1},
		{ID: "t-3", Type: element.TypeNarrativeText, Text: "third", PageNumber: 2},
	})

	texts := &mockTextSummarizer{fn: func(text string) (string, error) {
		if text == "boom" {
			return "", errors.New("api unavailable")
		}
		return "ok: " + text, nil
	}}
	engine := NewEngine(store, &mockImageSummarizer{}, texts)

	if err := engine.EnrichDocument(ctx, "doc"); err != nil {
		t.Fatalf("a single element failure must not abort the document: %v", err)
	}

	elements, _ := store.LoadElements(ctx, "doc")
	if elements[0].Summary != "ok: first" || elements[2].Summary != "ok: third" {
		t.Errorf("surviving elements not enriched: %+v", elements)
	}
	if elements[1].Summary != "" {
		t.Errorf("failed element should be untouched, got summary %q", elements[1].Summary)
	}
}

func TestEnrichDocument_SkipsMissingPayloadAndEmptyText(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, []element.Element{
		{ID: "img-1", Type: element.TypeImage, Text: "logo", PageNumber: 1}, //no payload
		{ID: "txt-1", Type: element.TypeUncategorizedText, Text: "", PageNumber: 1},
		{ID: "hdr-1", Type: element.TypeHeader, Text: "untouched", PageNumber: 1},
	})

	images := &mockImageSummarizer{}
	texts := &mockTextSummarizer{}
	engine := NewEngine(store, images, texts)
	if err := engine.EnrichDocument(ctx, "doc"); err != nil {
		t.Fatal(err)
	}

	if images.calls != 0 || texts.calls != 0 {
		t.Errorf("skipped elements must not reach the summarizers: image=%d text=%d", images.calls, texts.calls)
	}
	elements, _ := store.LoadElements(ctx, "doc")
	if elements[2].Text != "untouched" || elements[2].Summary != "" {
		t.Errorf("header element must be left alone: %+v", elements[2])
	}
}

func TestEnrichDocument_ReadFailureIsFatal(t *testing.T) {
	engine := NewEngine(failingStore{}, &mockImageSummarizer{}, &mockTextSummarizer{})
	if err := engine.EnrichDocument(context.Background(), "doc"); err == nil {
		t.Error("expected error when the source sequence cannot be read")
	}
}

func TestEnrichDocument_OrderPreserved(t *testing.T) {
	ctx := context.Background()
	ids := []string{"a", "b", "c", "d"}
	var elements []element.Element
	for i, id := range ids {
		elements = append(elements, element.Element{ID: id, Type: element.TypeNarrativeText, Text: "t" + id, PageNumber: i/2 + 1})
	}
	store := seedStore(t, elements)

	engine := NewEngine(store, &mockImageSummarizer{}, &mockTextSummarizer{})
	if err := engine.EnrichDocument(ctx, "doc"); err != nil {
		t.Fatal(err)
	}

	out, _ := store.LoadElements(ctx, "doc")
	for i, id := range ids {
		if out[i].ID != id {
			t.Fatalf("element order changed: position %d has %s, want %s", i, out[i].ID, id)
		}
	}
}
