package commonModels

import "time"

// Product is the top of the relational hierarchy, documents hang off it.
type Product struct {
	Id           string `json:"product_id"`
	Name         string `json:"product_name"`
	Category     string `json:"product_category"`
	Manufacturer string `json:"manufacturer"`
	ReleaseDate  string `json:"release_date"`
	NumPieces    int    `json:"num_pieces,omitempty"`
}

type Document struct {
	Id                  string    `json:"document_id"`
	Title               string    `json:"title"`
	ProductId           string    `json:"product_id"`
	ProductName         string    `json:"product_name"`
	Version             string    `json:"version"`
	Language            string    `json:"language"`
	FilePath            string    `json:"file_path"`
	NumPieces           int       `json:"num_pieces,omitempty"`
	ContentType         DocType   `json:"content_type"`
	LastIngestTimestamp time.Time `json:"ingested_at"`
}

// Section is one retrievable unit of a document's text. Its id doubles as
// the vector point id.
type Section struct {
	Id         string `json:"section_id"`
	DocumentId string `json:"document_id"`
	Title      string `json:"section_title"`
	Content    string `json:"content"`
	PageNumber int    `json:"page_number"`
	Order      int    `json:"order"`
}

type Keyword struct {
	SectionId       string  `json:"section_id"`
	Keyword         string  `json:"keyword"`
	ImportanceScore float64 `json:"importance_score"`
}

// SectionChunk pairs a section row with its source document so the vector
// upsert can build a self-contained payload.
type SectionChunk struct {
	Doc     Document
	Section Section
}

// SectionMatch is one vector search hit, payload already unpacked.
type SectionMatch struct {
	Content     string
	SectionId   string
	DocumentId  string
	ProductName string
	PageNumber  int
	Order       int
	IngestedAt  int64
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var TXT DocType = "TXT"
var ERR DocType = "ERROR"
