package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/WaterTechWarriors/PDMS2/internal/config"
	"github.com/WaterTechWarriors/PDMS2/internal/data/elementStore"
	"github.com/WaterTechWarriors/PDMS2/internal/domain/element"
)

type mockPartitioner struct {
	partitionFn func(ctx context.Context, pdfPath string) ([]element.Element, error)
	chunkFn     func(ctx context.Context, name string, elements []element.Element) ([]element.Chunk, error)
}

func (m *mockPartitioner) PartitionFile(ctx context.Context, pdfPath string) ([]element.Element, error) {
	if m.partitionFn != nil {
		return m.partitionFn(ctx, pdfPath)
	}
	return []element.Element{{ID: "el-1", Type: element.TypeTitle, Text: "t", PageNumber: 1}}, nil
}

func (m *mockPartitioner) Chunk(ctx context.Context, name string, elements []element.Element) ([]element.Chunk, error) {
	if m.chunkFn != nil {
		return m.chunkFn(ctx, name, elements)
	}
	return []element.Chunk{{ID: "chunk-1", Text: "t", OrigElements: elements}}, nil
}

type mockEnricher struct {
	enrichFn func(ctx context.Context, id string) error
	enriched []string
}

func (m *mockEnricher) EnrichDocument(ctx context.Context, id string) error {
	m.enriched = append(m.enriched, id)
	if m.enrichFn != nil {
		return m.enrichFn(ctx, id)
	}
	return nil
}

type mockAnnotator struct {
	annotated []string
	fail      bool
}

func (m *mockAnnotator) AnnotatePDF(pdfPath string, outPath string, elements []element.Element) error {
	if m.fail {
		return fmt.Errorf("annotation backend down")
	}
	m.annotated = append(m.annotated, outPath)
	return nil
}

type staticRenderer struct{ out string }

func (r staticRenderer) Render(chunks []element.Chunk) string { return r.out }

func testDirs(t *testing.T) config.Directories {
	t.Helper()
	return config.Directories{
		InputDir:  t.TempDir(),
		OutputDir: t.TempDir(),
	}
}

func writePDFs(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	var paths []string
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o640); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, path)
	}
	return paths
}

func TestDiscoverPDFs(t *testing.T) {
	dirs := testDirs(t)
	writePDFs(t, dirs.InputDir, "b.pdf", "a.PDF", "notes.txt")

	o, err := NewOrchestrator(dirs, &mockPartitioner{}, &mockEnricher{}, &mockAnnotator{}, staticRenderer{}, elementStore.NewMemoryStore())
	if err != nil {
		t.Fatal(err)
	}
	pdfs, err := o.DiscoverPDFs()
	if err != nil {
		t.Fatal(err)
	}
	if len(pdfs) != 2 {
		t.Fatalf("found %d PDFs; want 2 (txt excluded, case-insensitive ext)", len(pdfs))
	}
	if filepath.Base(pdfs[0]) != "a.PDF" {
		t.Errorf("discovery must be sorted, got %v", pdfs)
	}
}

func TestIngestBatch_EndToEnd(t *testing.T) {
	dirs := testDirs(t)
	pdfs := writePDFs(t, dirs.InputDir, "manual.pdf", "guide.pdf")

	store := elementStore.NewMemoryStore()
	enricher := &mockEnricher{}
	annotator := &mockAnnotator{}

	o, err := NewOrchestrator(dirs, &mockPartitioner{}, enricher, annotator, staticRenderer{}, store)
	if err != nil {
		t.Fatal(err)
	}

	if failed := o.IngestBatch(context.Background(), pdfs); failed != 0 {
		t.Fatalf("failed = %d; want 0", failed)
	}

	for _, name := range []string{"manual", "guide"} {
		if _, err := store.LoadElements(context.Background(), name); err != nil {
			t.Errorf("partitioned elements missing for %s: %v", name, err)
		}
		if _, err := store.LoadChunks(context.Background(), name+".json"); err != nil {
			t.Errorf("chunks missing for %s: %v", name, err)
		}
	}
	if len(enricher.enriched) != 2 {
		t.Errorf("enriched %d documents; want 2", len(enricher.enriched))
	}
	if len(annotator.annotated) != 2 {
		t.Fatalf("annotated %d files; want 2", len(annotator.annotated))
	}
	if dir := filepath.Dir(annotator.annotated[0]); filepath.Base(dir) != config.AnnotatedDirName {
		t.Errorf("annotated output dir = %s; want %s", dir, config.AnnotatedDirName)
	}
}

func TestIngestBatch_FailureIsolation(t *testing.T) {
	dirs := testDirs(t)
	pdfs := writePDFs(t, dirs.InputDir, "a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf")

	store := elementStore.NewMemoryStore()
	partitioner := &mockPartitioner{
		partitionFn: func(ctx context.Context, pdfPath string) ([]element.Element, error) {
			if filepath.Base(pdfPath) == "c.pdf" {
				return nil, fmt.Errorf("partition API returned 500")
			}
			return []element.Element{{ID: "el", Type: element.TypeTitle, PageNumber: 1}}, nil
		},
	}

	o, err := NewOrchestrator(dirs, partitioner, &mockEnricher{}, &mockAnnotator{}, staticRenderer{}, store)
	if err != nil {
		t.Fatal(err)
	}

	if failed := o.IngestBatch(context.Background(), pdfs); failed != 1 {
		t.Fatalf("failed = %d; want 1", failed)
	}
	for _, name := range []string{"a", "b", "d", "e"} {
		if _, err := store.LoadChunks(context.Background(), name+".json"); err != nil {
			t.Errorf("file %s should have completed despite c.pdf failing: %v", name, err)
		}
	}
	if _, err := store.LoadChunks(context.Background(), "c.json"); err == nil {
		t.Error("c.pdf must not have produced chunks")
	}
}

func TestIngestBatch_NormalizesChunkExtensions(t *testing.T) {
	dirs := testDirs(t)
	pdfs := writePDFs(t, dirs.InputDir, "manual.pdf")

	store, err := elementStore.NewFileStore(
		filepath.Join(dirs.OutputDir, config.PartitionedDirName),
		filepath.Join(dirs.OutputDir, config.ChunkedDirName),
	)
	if err != nil {
		t.Fatal(err)
	}

	o, err := NewOrchestrator(dirs, &mockPartitioner{}, &mockEnricher{}, &mockAnnotator{}, staticRenderer{}, store)
	if err != nil {
		t.Fatal(err)
	}
	if failed := o.IngestBatch(context.Background(), pdfs); failed != 0 {
		t.Fatalf("failed = %d; want 0", failed)
	}

	ids, err := store.ListChunkIDs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "manual" {
		t.Errorf("chunk ids = %v; want [manual] after extension cleanup", ids)
	}
}

func TestRenderMarkdown(t *testing.T) {
	dirs := testDirs(t)
	store := elementStore.NewMemoryStore()
	ctx := context.Background()

	chunks := []element.Chunk{{ID: "c1", Text: "body", OrigElements: []element.Element{
		{ID: "e1", Type: element.TypeTitle, Text: "Title", PageNumber: 1},
	}}}
	if err := store.SaveChunks(ctx, "manual", chunks); err != nil {
		t.Fatal(err)
	}

	o, err := NewOrchestrator(dirs, &mockPartitioner{}, &mockEnricher{}, &mockAnnotator{}, staticRenderer{out: "# rendered\n"}, store)
	if err != nil {
		t.Fatal(err)
	}

	rendered, err := o.RenderMarkdown(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rendered != 1 {
		t.Fatalf("rendered = %d; want 1", rendered)
	}

	out, err := os.ReadFile(filepath.Join(dirs.OutputDir, config.MarkdownDirName, "manual.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "# rendered") {
		t.Errorf("markdown content = %q", out)
	}
}

func TestRenderMarkdown_EmptyStore(t *testing.T) {
	dirs := testDirs(t)
	o, err := NewOrchestrator(dirs, &mockPartitioner{}, &mockEnricher{}, &mockAnnotator{}, staticRenderer{}, elementStore.NewMemoryStore())
	if err != nil {
		t.Fatal(err)
	}
	rendered, err := o.RenderMarkdown(context.Background())
	if err != nil || rendered != 0 {
		t.Errorf("rendered = %d, err = %v; want 0, nil", rendered, err)
	}
}
