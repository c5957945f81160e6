package markdown

import (
	"fmt"
	"strings"

	"github.com/WaterTechWarriors/PDMS2/internal/domain/element"
	"github.com/WaterTechWarriors/PDMS2/pkg/logger_i"
)

const pageFooter = "\n\n---\nPage %d\n\n---\n\n"

const (
	chunkDetailsOpen  = "<details style='weight:bold'>\n<summary>Chunk %s</summary>\n\n"
	textDetailsOpen   = "<details style='color: #583;weight:bold;padding-left: 1em;'>\n<summary>Chunk Text</summary>\n\n%s\n\n</details>\n\n"
	elemDetailsOpen   = "<details style='color: #1010e0;weight:bold;padding-left: 1em;'>\n<summary>Original Elements</summary>\n\n"
	elementHeaderLine = "<div style='font-size: 10px; color: lightgrey; display: block;'>%s | ID: %s</div>\n\n"
	summaryCallout    = "| <p style=\"line-height:.9; bgcolor: #000\"><span style=\"font-family:Tahoma; font-size:.7em; color: #24a8fb\">%s</span></p> |\n|:--:|\n\n"
)

// Renderer turns an ordered chunk sequence into the paginated debugging
// markdown. The two-level collapsible nesting (chunk -> chunk text, original
// elements) exists so a reviewer can toggle between the machine-grouped view
// and the raw extraction - this output is QA tooling, not an end-user
// document.
type Renderer struct {
	logger *logger_i.Logger
}

func NewRenderer() *Renderer {
	return &Renderer{logger: logger_i.NewLogger("Markdown")}
}

// Render walks the chunks in input order, inserting a page-footer marker at
// every page transition and once more after the final page. Chunks without
// original elements are skipped with a warning and contribute nothing - not
// even a page transition.
func (r *Renderer) Render(chunks []element.Chunk) string {
	var out strings.Builder
	var page strings.Builder
	out.WriteString("\n")

	currentPage := 0
	havePage := false

	for _, chunk := range chunks {
		if len(chunk.OrigElements) == 0 {
			r.logger.Warn("Missing orig_elements in chunk", "chunk", chunk.ID)
			continue
		}

		pageNumber := chunk.PageNumber()
		if pageNumber <= 0 {
			r.logger.Warn("Missing page number in chunk", "chunk", chunk.ID)
			// keep the chunk on the current page rather than emitting a
			// page 0 footer
			pageNumber = currentPage
			if !havePage {
				pageNumber = 1
			}
		}
		if havePage && pageNumber != currentPage {
			out.WriteString(page.String())
			fmt.Fprintf(&out, pageFooter, currentPage)
			page.Reset()
		}
		currentPage = pageNumber
		havePage = true

		r.renderChunk(&page, chunk)
	}

	// the last page never gets a transition, flush it explicitly
	if page.Len() > 0 {
		out.WriteString(page.String())
		fmt.Fprintf(&out, pageFooter, currentPage)
	}

	return out.String()
}

func (r *Renderer) renderChunk(page *strings.Builder, chunk element.Chunk) {
	quoted := " > " + strings.Join(strings.Split(chunk.Text, "\n"), "\n> ")

	fmt.Fprintf(page, chunkDetailsOpen, chunk.ID)
	fmt.Fprintf(page, textDetailsOpen, quoted)
	page.WriteString(elemDetailsOpen)

	calloutEmitted := false
	for _, el := range chunk.OrigElements {
		fmt.Fprintf(page, elementHeaderLine, el.Type, el.ID)

		switch el.Type {
		case element.TypeTitle:
			fmt.Fprintf(page, "> # %s\n\n", el.Text)
			if chunk.Summary != "" && !calloutEmitted {
				fmt.Fprintf(page, summaryCallout, chunk.Summary)
				calloutEmitted = true
			}

		case element.TypeHeader:
			fmt.Fprintf(page, "<div style='background-color: #f7facc;color: #000;padding: 12px 2px 4px; border-bottom: 1px solid #000;'> %s\n\n</div>", el.Text)

		case element.TypeFooter:
			fmt.Fprintf(page, "<div style='background-color: #f7facc;color: #000;padding: 12px 2px 4px; border-top: 1px solid #000;'> %s\n\n</div>", el.Text)

		case element.TypeNarrativeText, element.TypeUncategorizedText:
			//the summary is chunk-scoped, emit it once no matter how many
			//text elements the chunk holds
			if chunk.Summary != "" && !calloutEmitted {
				fmt.Fprintf(page, summaryCallout, chunk.Summary)
				calloutEmitted = true
			}

		case element.TypeListItem:
			fmt.Fprintf(page, "> - %s\n", el.Text)

		case element.TypeTable, element.TypeImage:
			r.renderVisual(page, el)

		default:
			// unknown types contribute no markup but must not break the
			// chunk's closing structure
		}
	}

	page.WriteString("</details>\n\n</details>\n\n")
}

func (r *Renderer) renderVisual(page *strings.Builder, el element.Element) {
	if !el.HasImagePayload() {
		text := el.Text
		if text == "" {
			text = "?Unknown"
		}
		fmt.Fprintf(page, "> Image: %s\n\n", text)
		return
	}

	format := "jpeg"
	if el.ImageMIMEType == "image/png" {
		format = "png"
	}
	caption := fmt.Sprintf("<p style=\"line-height:.9; bgcolor: #000\"><span style=\"font-family:Tahoma; font-size:.7em; color: #24a8fb\">%s</span></p>", el.Text)
	imageTag := fmt.Sprintf("![IMAGE:](data:image/%s;base64,%s)", format, el.Image)
	fmt.Fprintf(page, "| %s  |\n|:--:|\n| %s |\n\n", imageTag, caption)
}
