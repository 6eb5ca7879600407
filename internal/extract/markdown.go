package extract

import (
	"regexp"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

var (
	atxHeadingRe = regexp.MustCompile(`^ {0,3}#{1,6}(?:\s+|$)`)
	fenceRe      = regexp.MustCompile("^ {0,3}(```|~~~)")
)

// partitionMarkdown walks the document line by line: ATX headings become titles,
// list lines become list items, fenced code blocks become a single other element,
// and everything else is grouped into blank-line separated body paragraphs.
func partitionMarkdown(content []byte) []models.RawElement {
	text := strings.ReplaceAll(toValidUTF8(content), "\r\n", "\n")
	var out elementList
	var para, code []string
	inFence := ""

	flushPara := func() {
		if len(para) > 0 {
			out.add(models.KindBody, strings.Join(para, "\n"))
			para = para[:0]
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if inFence != "" {
			if strings.HasPrefix(strings.TrimSpace(line), inFence) {
				out.add(models.KindOther, strings.Join(code, "\n"))
				code = code[:0]
				inFence = ""
				continue
			}
			code = append(code, line)
			continue
		}
		if m := fenceRe.FindStringSubmatch(line); m != nil {
			flushPara()
			inFence = m[1]
			continue
		}
		switch {
		case strings.TrimSpace(line) == "":
			flushPara()
		case atxHeadingRe.MatchString(line):
			flushPara()
			heading := strings.TrimLeft(strings.TrimSpace(line), "#")
			out.add(models.KindTitle, strings.TrimRight(strings.TrimSpace(heading), "# "))
		case listItemRe.MatchString(line):
			flushPara()
			out.add(models.KindListItem, line)
		default:
			para = append(para, strings.TrimRight(line, " \t"))
		}
	}
	if inFence != "" {
		out.add(models.KindOther, strings.Join(code, "\n"))
	}
	flushPara()
	return out
}
