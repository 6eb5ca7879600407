package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/models"
)

// maxTitleRunes bounds how long a line may be and still be treated as a heading.
const maxTitleRunes = 80

// listItemRe matches bullet and numbered list markers.
var listItemRe = regexp.MustCompile(`^\s*(?:[-*+•]|\d{1,3}[.)])\s+\S`)

// toValidUTF8 returns content as string, replacing invalid UTF-8 sequences with the replacement character.
func toValidUTF8(content []byte) string {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�")
	}
	return string(content)
}

// partitionPlain splits text into blank-line separated paragraphs. Short standalone
// lines that look like headings become titles and list blocks become list items.
func partitionPlain(content []byte) []models.RawElement {
	text := strings.ReplaceAll(toValidUTF8(content), "\r\n", "\n")
	var out elementList
	for _, para := range splitParagraphs(text) {
		classifyParagraph(&out, para)
	}
	return out
}

func classifyParagraph(out *elementList, para string) {
	lines := strings.Split(para, "\n")
	if len(lines) == 1 && looksLikeTitle(lines[0]) {
		out.add(models.KindTitle, lines[0])
		return
	}
	if allListItems(lines) {
		for _, line := range lines {
			out.add(models.KindListItem, line)
		}
		return
	}
	out.add(models.KindBody, para)
}

func splitParagraphs(text string) []string {
	var paras []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			paras = append(paras, strings.Join(cur, "\n"))
			cur = cur[:0]
		}
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, strings.TrimRight(line, " \t"))
	}
	flush()
	return paras
}

func allListItems(lines []string) bool {
	for _, line := range lines {
		if !listItemRe.MatchString(line) {
			return false
		}
	}
	return len(lines) > 0
}

// looksLikeTitle reports whether a standalone line reads like a heading:
// short, starting with an uppercase letter or digit, and not ending like a sentence.
func looksLikeTitle(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || utf8.RuneCountInString(line) > maxTitleRunes || listItemRe.MatchString(line) {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(line)
	if strings.ContainsRune(".,;!?", last) {
		return false
	}
	first, _ := utf8.DecodeRuneInString(line)
	if !unicode.IsUpper(first) && !unicode.IsDigit(first) {
		return false
	}
	return len(strings.Fields(line)) <= 12
}
