package partition

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/WaterTechWarriors/PDMS2/internal/config"
	"github.com/WaterTechWarriors/PDMS2/internal/domain/element"
)

func testPipeline() config.Pipeline {
	return config.Default().Pipeline
}

func writeTempPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manual.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o640); err != nil {
		t.Fatal(err)
	}
	return path
}

func encodeOrigElements(t *testing.T, elements []element.Element) string {
	t.Helper()
	raw := make([]rawElement, 0, len(elements))
	for _, el := range elements {
		raw = append(raw, unflatten(el))
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestPartitionFile(t *testing.T) {
	var gotAPIKey string
	var gotFields map[string]string
	var gotFilename string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("unstructured-api-key")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart form: %v", err)
		}
		gotFields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotFields[k] = v[0]
		}
		if files := r.MultipartForm.File["files"]; len(files) == 1 {
			gotFilename = files[0].Filename
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"type": "Title", "element_id": "el-1", "text": "Robot Manual",
			 "metadata": {"page_number": 1,
			   "coordinates": {"points": [[10,20],[10,80],[200,80],[200,20]], "layout_width": 612, "layout_height": 792}}},
			{"type": "Image", "element_id": "el-2", "text": "",
			 "metadata": {"page_number": 2, "image_base64": "aW1n", "image_mime_type": "image/png"}},
			{"type": "NarrativeText", "element_id": "el-3", "text": "Charge before use.",
			 "metadata": {"page_number": 2, "image_base64": "c2hvdWxkLWJlLWRyb3BwZWQ="}}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", testPipeline())
	elements, err := client.PartitionFile(context.Background(), writeTempPDF(t))
	if err != nil {
		t.Fatalf("PartitionFile: %v", err)
	}

	if gotAPIKey != "test-key" {
		t.Errorf("api key header = %q; want test-key", gotAPIKey)
	}
	if gotFilename != "manual.pdf" {
		t.Errorf("uploaded filename = %q; want manual.pdf", gotFilename)
	}
	for field, want := range map[string]string{
		"strategy":                       "hi_res",
		"coordinates":                    "true",
		"extract_image_block_to_payload": "true",
		"split_pdf_page":                 "true",
		"split_pdf_concurrency_level":    "15",
	} {
		if gotFields[field] != want {
			t.Errorf("form field %s = %q; want %q", field, gotFields[field], want)
		}
	}

	if len(elements) != 3 {
		t.Fatalf("got %d elements; want 3", len(elements))
	}
	title := elements[0]
	if title.Type != element.TypeTitle || title.PageNumber != 1 {
		t.Errorf("first element = %+v; want Title on page 1", title)
	}
	if title.Coordinates == nil || len(title.Coordinates.Points) != 4 {
		t.Error("title coordinates were not flattened")
	}
	if img := elements[1]; img.Image != "aW1n" || img.ImageMIMEType != "image/png" {
		t.Errorf("image payload not flattened: %+v", img)
	}
	// image payload only survives for visual element types
	if elements[2].Image != "" {
		t.Error("narrative text must not carry an image payload")
	}
}

func TestPartitionFile_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-key", testPipeline())
	_, err := client.PartitionFile(context.Background(), writeTempPDF(t))
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error should carry the status code, got: %v", err)
	}
}

func TestPartitionFile_MissingFile(t *testing.T) {
	client := NewClient("http://unused.invalid", "key", testPipeline())
	if _, err := client.PartitionFile(context.Background(), "/does/not/exist.pdf"); err == nil {
		t.Fatal("expected error for missing input file")
	}
}

func TestChunk(t *testing.T) {
	orig := []element.Element{
		{ID: "el-1", Type: element.TypeTitle, Text: "Setup", PageNumber: 3},
		{ID: "el-2", Type: element.TypeNarrativeText, Text: "Plug it in.", PageNumber: 3,
			Summary: "Instructions: initial setup"},
	}
	encoded := encodeOrigElements(t, orig)

	var gotFields map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart form: %v", err)
		}
		gotFields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotFields[k] = v[0]
		}

		resp := []rawElement{{
			Type: "CompositeElement", ElementID: "chunk-1", Text: "Setup\n\nPlug it in.",
			Metadata: rawMetadata{OrigElements: encoded},
		}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", testPipeline())
	chunks, err := client.Chunk(context.Background(), "manual", []element.Element{{ID: "el-1"}})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}

	for field, want := range map[string]string{
		"chunking_strategy":    "by_title",
		"similarity_threshold": "0.3",
		"max_characters":       "2500",
		"overlap":              "150",
	} {
		if gotFields[field] != want {
			t.Errorf("form field %s = %q; want %q", field, gotFields[field], want)
		}
	}

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks; want 1", len(chunks))
	}
	chunk := chunks[0]
	if chunk.ID != "chunk-1" || chunk.Type != "CompositeElement" {
		t.Errorf("chunk identity = %+v", chunk)
	}
	if len(chunk.OrigElements) != 2 {
		t.Fatalf("orig elements = %d; want 2", len(chunk.OrigElements))
	}
	if chunk.OrigElements[0].ID != "el-1" || chunk.OrigElements[1].Text != "Plug it in." {
		t.Error("orig elements lost content through the gzip envelope")
	}
	if chunk.PageNumber() != 3 {
		t.Errorf("chunk page = %d; want 3", chunk.PageNumber())
	}
	if chunk.Summary != "Instructions: initial setup" {
		t.Errorf("chunk summary = %q; want the text element's summary", chunk.Summary)
	}
}

func TestChunk_UndecodableOrigElements(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"type": "CompositeElement", "element_id": "chunk-1",
			"text": "whatever", "metadata": {"orig_elements": "!!not-base64!!"}}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", testPipeline())
	chunks, err := client.Chunk(context.Background(), "manual", nil)
	if err != nil {
		t.Fatalf("undecodable orig_elements must not fail the call: %v", err)
	}
	if len(chunks) != 1 || chunks[0].OrigElements != nil {
		t.Error("chunk should survive with nil orig elements")
	}
}
