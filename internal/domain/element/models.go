package element

// ElementType is the closed set of element categories the partitioning
// service produces. Anything outside the set is mapped to TypeUnknown so the
// renderer's dispatch never falls through silently.
type ElementType string

const (
	TypeTitle             ElementType = "Title"
	TypeHeader            ElementType = "Header"
	TypeFooter            ElementType = "Footer"
	TypeNarrativeText     ElementType = "NarrativeText"
	TypeUncategorizedText ElementType = "UncategorizedText"
	TypeListItem          ElementType = "ListItem"
	TypeTable             ElementType = "Table"
	TypeImage             ElementType = "Image"
	TypeUnknown           ElementType = "Unknown"
)

func ParseType(s string) ElementType {
	switch ElementType(s) {
	case TypeTitle, TypeHeader, TypeFooter, TypeNarrativeText,
		TypeUncategorizedText, TypeListItem, TypeTable, TypeImage:
		return ElementType(s)
	default:
		return TypeUnknown
	}
}

// IsEnrichableText reports whether a text summary should be generated for
// elements of this type.
func (t ElementType) IsEnrichableText() bool {
	switch t {
	case TypeNarrativeText, TypeTitle, TypeUncategorizedText:
		return true
	default:
		return false
	}
}

// CarriesImage reports whether elements of this type may embed an image
// payload.
func (t ElementType) CarriesImage() bool {
	return t == TypeTable || t == TypeImage
}

// Coordinates are the bounding-polygon points of an element on its page, in
// the layout system reported by the partitioner.
type Coordinates struct {
	Points       [][]float64 `json:"points,omitempty"`
	System       string      `json:"system,omitempty"`
	LayoutWidth  float64     `json:"layout_width,omitempty"`
	LayoutHeight float64     `json:"layout_height,omitempty"`
}

// Element is one extracted unit from a page. The same flattened shape is
// persisted in both the partitioned files and inside chunks; the partition
// client normalizes the remote API's nested-metadata form into this one on
// receipt.
//
// PageNumber is 1-based and monotonically non-decreasing across a document's
// sequence; no stage ever reorders elements.
type Element struct {
	ID            string       `json:"id"`
	Type          ElementType  `json:"type"`
	Text          string       `json:"text"`
	PageNumber    int          `json:"page_number"`
	Coordinates   *Coordinates `json:"coordinates,omitempty"`
	Image         string       `json:"image,omitempty"` //base64 payload, Table/Image only
	ImageMIMEType string       `json:"image_mime_type,omitempty"`
	Summary       string       `json:"summary,omitempty"` //set by enrichment, never by extraction
}

// HasImagePayload reports whether the element embeds image bytes.
func (e Element) HasImagePayload() bool {
	return e.Image != ""
}

// Chunk groups contiguous elements produced by the chunking stage. Its
// elements share the chunk's page context; the chunk's page is taken from its
// first original element.
type Chunk struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Text         string    `json:"text"`
	Summary      string    `json:"summary,omitempty"`
	OrigElements []Element `json:"orig_elements"`
}

// PageNumber returns the page of the chunk's first original element, or 0
// when the chunk carries no elements.
func (c Chunk) PageNumber() int {
	if len(c.OrigElements) == 0 {
		return 0
	}
	return c.OrigElements[0].PageNumber
}
