package populate

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/WaterTechWarriors/PDMS2/internal/domain/commonModels"
	"github.com/WaterTechWarriors/PDMS2/internal/domain/element"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

// rawPage is the unit the section splitter works on, one per source page.
type rawPage struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

func getDocType(docPath string) commonModels.DocType {
	switch strings.ToLower(filepath.Ext(docPath)) {
	case ".pdf":
		return commonModels.PDF
	case ".docx", ".rtf":
		return commonModels.DOCX
	case ".txt":
		return commonModels.TXT
	default:
		return commonModels.ERR
	}
}

// pagesFromElements rebuilds per-page text from a partitioned element
// sequence. Summaries produced by enrichment ride along with the element
// text so they become searchable too.
func pagesFromElements(elements []element.Element) []rawPage {
	byPage := make(map[int]*strings.Builder)
	for _, el := range elements {
		if el.Text == "" && el.Summary == "" {
			continue
		}
		b, ok := byPage[el.PageNumber]
		if !ok {
			b = &strings.Builder{}
			byPage[el.PageNumber] = b
		}
		if el.Text != "" {
			b.WriteString(el.Text)
			b.WriteString("\n")
		}
		if el.Summary != "" && el.Summary != el.Text {
			b.WriteString(el.Summary)
			b.WriteString("\n")
		}
	}

	numbers := make([]int, 0, len(byPage))
	for n := range byPage {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	pages := make([]rawPage, 0, len(numbers))
	for _, n := range numbers {
		pages = append(pages, rawPage{Number: n, Content: strings.TrimRight(byPage[n].String(), "\n")})
	}
	return pages
}

func (p *Populator) extractDirect(docPath string, docType commonModels.DocType) ([]rawPage, error) {
	switch docType {
	case commonModels.PDF:
		return p.extractPDF(docPath)
	case commonModels.DOCX, commonModels.TXT:
		return p.extractWithCat(docPath)
	default:
		return nil, fmt.Errorf("unsupported content type: %s", docType)
	}
}

func (p *Populator) extractPDF(path string) ([]rawPage, error) {
	f, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []rawPage
	numPages := f.NumPage()
	p.logger.Debug("extractPDF", "path", path, "pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			p.logger.Error("Error parsing page content", "page", i, "error", err)
			continue
		}

		pages = append(pages, rawPage{Number: i, Content: content})
	}
	return pages, nil
}

// extractWithCat reads a .docx, .rtf or plaintext file. Page boundaries are
// lost for these formats, everything lands on page 1.
func (p *Populator) extractWithCat(path string) ([]rawPage, error) {
	text, err := cat.File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract document text: %w", err)
	}
	return []rawPage{{Number: 1, Content: text}}, nil
}

// protectExtract guards against pdf pages whose content streams make the
// parser hang.
func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(10 * time.Second):
		return "", errors.New("page extraction timed out")
	}
}

// splitIntoSections cuts page text into retrieval-sized pieces along the
// best available separator, carrying a tail overlap into the next piece.
func splitIntoSections(text string, limit int, overlap int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	// Separators ordered from "best" to "worst" for semantic meaning
	separators := []string{"\n\n", "\n", ". ", " ", ""}

	// the empty separator matches any text, so splitChar always lands
	var splitChar string
	for _, s := range separators {
		if strings.Contains(text, s) {
			splitChar = s
			break
		}
	}

	var chunks []string
	parts := strings.Split(text, splitChar)
	var currentChunk strings.Builder

	for _, part := range parts {
		if currentChunk.Len()+len(part)+len(splitChar) > limit {
			if currentChunk.Len() > 0 {
				chunks = append(chunks, currentChunk.String())
			}

			overlapContent := ""
			if currentChunk.Len() > overlap {
				tail := currentChunk.String()[currentChunk.Len()-overlap:]
				// never start the overlap mid-rune
				for len(tail) > 0 && !utf8.RuneStart(tail[0]) {
					tail = tail[1:]
				}
				overlapContent = tail
			}

			currentChunk.Reset()
			currentChunk.WriteString(overlapContent)
		}

		if currentChunk.Len() > 0 && splitChar != "" {
			currentChunk.WriteString(splitChar)
		}
		currentChunk.WriteString(part)
	}

	if currentChunk.Len() > 0 {
		chunks = append(chunks, currentChunk.String())
	}

	return chunks
}
