// Package annotate stamps each PDF page with the layout the partitioner
// detected on it, so extraction quality can be reviewed against the source
// document page by page.
package annotate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/WaterTechWarriors/PDMS2/internal/domain/element"
	"github.com/WaterTechWarriors/PDMS2/pkg/logger_i"
)

// maxStampLines keeps dense pages readable, the remainder is summarized.
const maxStampLines = 8

const stampDesc = "points:8, pos:bl, off:10 10, fillc:#cc0000, rot:0, op:.65, scale:1 abs"

type Annotator struct {
	logger *logger_i.Logger
}

func NewAnnotator() *Annotator {
	return &Annotator{logger: logger_i.NewLogger("Annotate")}
}

// AnnotatePDF writes a copy of the source PDF with a per-page overlay
// describing the partitioned elements found on that page. Elements whose
// page number falls outside the document are skipped with a warning.
func (a *Annotator) AnnotatePDF(pdfPath string, outPath string, elements []element.Element) error {
	pageCount, err := api.PageCountFile(pdfPath)
	if err != nil {
		return fmt.Errorf("reading page count of %s: %w", pdfPath, err)
	}

	byPage := make(map[int][]element.Element)
	for _, el := range elements {
		if el.PageNumber < 1 || el.PageNumber > pageCount {
			a.logger.Warn("Element page outside document, skipping",
				"element", el.ID, "page", el.PageNumber, "pages", pageCount)
			continue
		}
		byPage[el.PageNumber] = append(byPage[el.PageNumber], el)
	}
	if len(byPage) == 0 {
		return fmt.Errorf("no annotatable elements for %s", pdfPath)
	}

	stamps := make(map[int]*model.Watermark, len(byPage))
	for page, pageElements := range byPage {
		wm, err := api.TextWatermark(stampText(pageElements), stampDesc, true, false, types.POINTS)
		if err != nil {
			return fmt.Errorf("building stamp for page %d: %w", page, err)
		}
		stamps[page] = wm
	}

	if err := api.AddWatermarksMapFile(pdfPath, outPath, stamps, nil); err != nil {
		return fmt.Errorf("stamping %s: %w", pdfPath, err)
	}
	a.logger.Info("Annotated PDF", "out", outPath, "pages", len(stamps))
	return nil
}

// stampText lists the page's elements with their bounding region, most
// page-covering first.
func stampText(elements []element.Element) string {
	sorted := make([]element.Element, len(elements))
	copy(sorted, elements)
	sort.SliceStable(sorted, func(i, j int) bool {
		return boxArea(sorted[i].Coordinates) > boxArea(sorted[j].Coordinates)
	})

	lines := []string{fmt.Sprintf("%d elements", len(sorted))}
	for i, el := range sorted {
		if i == maxStampLines {
			lines = append(lines, fmt.Sprintf("+%d more", len(sorted)-maxStampLines))
			break
		}
		lines = append(lines, elementLine(el))
	}
	return strings.Join(lines, "\n")
}

func elementLine(el element.Element) string {
	if el.Coordinates == nil || len(el.Coordinates.Points) == 0 {
		return string(el.Type)
	}
	x0, y0, x1, y1 := boundingBox(el.Coordinates.Points)
	return fmt.Sprintf("%s [%.0f,%.0f %.0fx%.0f]", el.Type, x0, y0, x1-x0, y1-y0)
}

func boundingBox(points [][]float64) (x0, y0, x1, y1 float64) {
	first := true
	for _, p := range points {
		if len(p) < 2 {
			continue
		}
		if first || p[0] < x0 {
			x0 = p[0]
		}
		if first || p[1] < y0 {
			y0 = p[1]
		}
		if first || p[0] > x1 {
			x1 = p[0]
		}
		if first || p[1] > y1 {
			y1 = p[1]
		}
		first = false
	}
	return x0, y0, x1, y1
}

func boxArea(c *element.Coordinates) float64 {
	if c == nil || len(c.Points) == 0 {
		return 0
	}
	x0, y0, x1, y1 := boundingBox(c.Points)
	return (x1 - x0) * (y1 - y0)
}
