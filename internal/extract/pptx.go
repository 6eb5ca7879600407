package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

var (
	// slidePathRe matches ppt/slides/slideN.xml and captures N.
	slidePathRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	apTag       = regexp.MustCompile(`(?s)<a:p(?:\s[^>]*)?>(.*?)</a:p>`)
	// atTag matches <a:t>text</a:t> or <a:t xml:space="preserve">text</a:t>.
	atTag = regexp.MustCompile(`<a:t(?:\s[^>]*)?>([^<]*)</a:t>`)
)

// partitionPPTX walks slides in numeric order. The first non-empty paragraph of each
// slide is its title; the remaining paragraphs are body text.
func partitionPPTX(content []byte) ([]models.RawElement, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("partition PPTX: not a zip: %w", err)
	}

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		m := slidePathRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var out elementList
	for _, s := range slides {
		data, err := readZipFile(zr, s.file.Name)
		if err != nil {
			return nil, fmt.Errorf("partition PPTX: %w", err)
		}
		titled := false
		for _, p := range apTag.FindAllStringSubmatch(string(data), -1) {
			var b strings.Builder
			for _, t := range atTag.FindAllStringSubmatch(p[1], -1) {
				b.WriteString(html.UnescapeString(t[1]))
			}
			text := strings.TrimSpace(b.String())
			if text == "" {
				continue
			}
			if !titled {
				out.add(models.KindTitle, text)
				titled = true
				continue
			}
			out.add(models.KindBody, text)
		}
	}
	return out, nil
}
