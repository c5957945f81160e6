// Package partition talks to the hosted document-partitioning API. It covers
// the two passes the pipeline needs: hi_res element extraction from a PDF and
// by_title chunking of already-partitioned elements.
package partition

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/WaterTechWarriors/PDMS2/internal/config"
	"github.com/WaterTechWarriors/PDMS2/internal/customHttpClient"
	"github.com/WaterTechWarriors/PDMS2/internal/domain/element"
	"github.com/WaterTechWarriors/PDMS2/pkg/logger_i"
)

type Client struct {
	endpoint string
	apiKey   string
	pipeline config.Pipeline
	http     *http.Client
	logger   *logger_i.Logger
}

func NewClient(endpoint string, apiKey string, pipeline config.Pipeline) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		pipeline: pipeline,
		http:     customHttpClient.GetPooledClient(),
		logger:   logger_i.NewLogger("Partition"),
	}
}

// wire shapes of the remote API. Elements arrive with their positional and
// image data nested under metadata, the rest of the system works with the
// flattened element form.
type rawCoordinates struct {
	Points       [][]float64 `json:"points"`
	System       string      `json:"system,omitempty"`
	LayoutWidth  float64     `json:"layout_width,omitempty"`
	LayoutHeight float64     `json:"layout_height,omitempty"`
}

type rawMetadata struct {
	PageNumber    int             `json:"page_number,omitempty"`
	Coordinates   *rawCoordinates `json:"coordinates,omitempty"`
	ImageBase64   string          `json:"image_base64,omitempty"`
	ImageMIMEType string          `json:"image_mime_type,omitempty"`
	OrigElements  string          `json:"orig_elements,omitempty"`
}

type rawElement struct {
	Type      string      `json:"type"`
	ElementID string      `json:"element_id"`
	Text      string      `json:"text"`
	Summary   string      `json:"summary,omitempty"`
	Metadata  rawMetadata `json:"metadata"`
}

// PartitionFile uploads the PDF and returns its extracted elements in reading
// order. Image and Table elements carry their rendering as a base64 payload.
func (c *Client) PartitionFile(ctx context.Context, pdfPath string) ([]element.Element, error) {
	pdf, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", pdfPath, err)
	}
	defer pdf.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("files", filepath.Base(pdfPath))
	if err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}
	if _, err := io.Copy(part, pdf); err != nil {
		return nil, fmt.Errorf("reading %s: %w", pdfPath, err)
	}

	fields := map[string]string{
		"strategy":                       c.pipeline.Strategy,
		"coordinates":                    "true",
		"extract_image_block_types":      `["Image","Table"]`,
		"extract_image_block_to_payload": strconv.FormatBool(c.pipeline.ExtractImagePayload),
		"split_pdf_page":                 "true",
		"split_pdf_allow_failed":         "true",
		"split_pdf_concurrency_level":    strconv.Itoa(c.pipeline.SplitConcurrency),
	}
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("building upload form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}

	raw, err := c.post(ctx, &body, form.FormDataContentType())
	if err != nil {
		return nil, err
	}

	elements := make([]element.Element, 0, len(raw))
	for _, re := range raw {
		elements = append(elements, flatten(re))
	}
	c.logger.Info("Partitioned file", "file", filepath.Base(pdfPath), "elements", len(elements))
	return elements, nil
}

// Chunk groups already-partitioned elements by title. The API echoes the
// grouped source elements back gzipped inside each chunk's metadata, which is
// decoded here so downstream code never sees the wire encoding.
func (c *Client) Chunk(ctx context.Context, name string, elements []element.Element) ([]element.Chunk, error) {
	rawElements := make([]rawElement, 0, len(elements))
	for _, el := range elements {
		rawElements = append(rawElements, unflatten(el))
	}
	payload, err := json.Marshal(rawElements)
	if err != nil {
		return nil, fmt.Errorf("encoding elements for chunking: %w", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("files", name+".json")
	if err != nil {
		return nil, fmt.Errorf("building chunking form: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, fmt.Errorf("building chunking form: %w", err)
	}

	fields := map[string]string{
		"chunking_strategy":    c.pipeline.ChunkingStrategy,
		"similarity_threshold": strconv.FormatFloat(c.pipeline.SimilarityThreshold, 'f', -1, 64),
		"max_characters":       strconv.Itoa(c.pipeline.ChunkMaxCharacters),
		"overlap":              strconv.Itoa(c.pipeline.ChunkOverlap),
	}
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("building chunking form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("building chunking form: %w", err)
	}

	raw, err := c.post(ctx, &body, form.FormDataContentType())
	if err != nil {
		return nil, err
	}

	chunks := make([]element.Chunk, 0, len(raw))
	for _, rc := range raw {
		chunk := element.Chunk{
			ID:   rc.ElementID,
			Type: rc.Type,
			Text: rc.Text,
		}
		if rc.Metadata.OrigElements != "" {
			orig, err := decodeOrigElements(rc.Metadata.OrigElements)
			if err != nil {
				c.logger.Warn("Could not decode orig_elements, chunk will be skipped downstream",
					"chunk", rc.ElementID, "error", err)
			} else {
				chunk.OrigElements = orig
			}
		}
		// the chunk-level summary is whatever enrichment attached to the
		// chunk's text elements
		for _, el := range chunk.OrigElements {
			if el.Summary != "" && el.Type != element.TypeImage && el.Type != element.TypeTable {
				chunk.Summary = el.Summary
				break
			}
		}
		chunks = append(chunks, chunk)
	}
	c.logger.Info("Chunked elements", "file", name, "chunks", len(chunks))
	return chunks, nil
}

func (c *Client) post(ctx context.Context, body io.Reader, contentType string) ([]rawElement, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("building partition request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("unstructured-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling partition API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("partition API returned %d: %s", resp.StatusCode, detail)
	}

	var raw []rawElement
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding partition response: %w", err)
	}
	return raw, nil
}

func flatten(re rawElement) element.Element {
	el := element.Element{
		ID:         re.ElementID,
		Type:       element.ParseType(re.Type),
		Text:       re.Text,
		Summary:    re.Summary,
		PageNumber: re.Metadata.PageNumber,
	}
	if re.Metadata.Coordinates != nil {
		el.Coordinates = &element.Coordinates{
			Points:       re.Metadata.Coordinates.Points,
			System:       re.Metadata.Coordinates.System,
			LayoutWidth:  re.Metadata.Coordinates.LayoutWidth,
			LayoutHeight: re.Metadata.Coordinates.LayoutHeight,
		}
	}
	if el.Type == element.TypeImage || el.Type == element.TypeTable {
		el.Image = re.Metadata.ImageBase64
		el.ImageMIMEType = re.Metadata.ImageMIMEType
	}
	return el
}

func unflatten(el element.Element) rawElement {
	re := rawElement{
		Type:      string(el.Type),
		ElementID: el.ID,
		Text:      el.Text,
		Summary:   el.Summary,
		Metadata: rawMetadata{
			PageNumber:    el.PageNumber,
			ImageBase64:   el.Image,
			ImageMIMEType: el.ImageMIMEType,
		},
	}
	if el.Coordinates != nil {
		re.Metadata.Coordinates = &rawCoordinates{
			Points:       el.Coordinates.Points,
			System:       el.Coordinates.System,
			LayoutWidth:  el.Coordinates.LayoutWidth,
			LayoutHeight: el.Coordinates.LayoutHeight,
		}
	}
	return re
}

// decodeOrigElements unpacks the base64 + gzip envelope the chunking API uses
// for the grouped source elements.
func decodeOrigElements(encoded string) ([]element.Element, error) {
	compressed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer zr.Close()

	var raw []rawElement
	if err := json.NewDecoder(zr).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding elements: %w", err)
	}

	elements := make([]element.Element, 0, len(raw))
	for _, re := range raw {
		elements = append(elements, flatten(re))
	}
	return elements, nil
}
