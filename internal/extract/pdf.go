package extract

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/ledongthuc/pdf"
)

// titleFontRatio is how much larger than the dominant body font a line must be to count as a heading.
const titleFontRatio = 1.15

type pdfLine struct {
	text     string
	fontSize float64
}

// partitionPDF reads each page row by row. Rows set in a noticeably larger font than the
// document's dominant size become titles; consecutive body rows form one paragraph.
// Pages whose rows cannot be read fall back to plain-text paragraph splitting.
func partitionPDF(content []byte) ([]models.RawElement, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	var pages [][]pdfLine
	var fallback []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			text, perr := page.GetPlainText(nil)
			if perr != nil {
				return nil, fmt.Errorf("extract page %d: %w", i, perr)
			}
			fallback = append(fallback, text)
			pages = append(pages, nil)
			continue
		}
		pages = append(pages, pdfRows(rows))
		fallback = append(fallback, "")
	}

	body := dominantFontSize(pages)
	var out elementList
	for i, lines := range pages {
		if lines == nil {
			for _, el := range partitionPlain([]byte(fallback[i])) {
				out.add(el.Kind, el.Text)
			}
			continue
		}
		var para []string
		flush := func() {
			if len(para) > 0 {
				out.add(models.KindBody, strings.Join(para, "\n"))
				para = para[:0]
			}
		}
		for _, line := range lines {
			isTitle := body > 0 && line.fontSize >= body*titleFontRatio &&
				utf8.RuneCountInString(line.text) <= maxTitleRunes
			switch {
			case isTitle:
				flush()
				out.add(models.KindTitle, line.text)
			case listItemRe.MatchString(line.text):
				flush()
				out.add(models.KindListItem, line.text)
			default:
				para = append(para, line.text)
			}
		}
		flush()
	}
	return out, nil
}

func pdfRows(rows pdf.Rows) []pdfLine {
	lines := make([]pdfLine, 0, len(rows))
	for _, row := range rows {
		var b strings.Builder
		var size float64
		for _, t := range row.Content {
			b.WriteString(t.S)
			size = math.Max(size, t.FontSize)
		}
		text := strings.TrimSpace(b.String())
		if text == "" {
			continue
		}
		lines = append(lines, pdfLine{text: text, fontSize: size})
	}
	return lines
}

// dominantFontSize returns the font size covering the most characters, rounded to 0.5pt.
func dominantFontSize(pages [][]pdfLine) float64 {
	weights := make(map[float64]int)
	for _, lines := range pages {
		for _, line := range lines {
			weights[math.Round(line.fontSize*2)/2] += utf8.RuneCountInString(line.text)
		}
	}
	var best float64
	var bestWeight int
	for size, w := range weights {
		if w > bestWeight || (w == bestWeight && size < best) {
			best, bestWeight = size, w
		}
	}
	return best
}
