package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

var (
	// wpTag matches a whole paragraph, with or without attributes (<w:p w:rsidR="...">).
	wpTag = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*)?>(.*?)</w:p>`)
	// wtTag matches <w:t>text</w:t> or <w:t xml:space="preserve">text</w:t>.
	wtTag      = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	pStyleTag  = regexp.MustCompile(`<w:pStyle\s+w:val="([^"]+)"`)
	partNameRe = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	// partNameRe2 handles the case where ContentType appears before PartName.
	partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

// readZipFile returns the contents of name inside zr, or nil when absent.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		return buf.Bytes(), nil
	}
	return nil, nil
}

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
// Returns the path without leading slash, or empty string if not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	data, err := readZipFile(zr, contentTypesPath)
	if err != nil || data == nil {
		return ""
	}
	content := string(data)
	if m := partNameRe.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	if m := partNameRe2.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	return ""
}

// partitionDOCX emits one element per <w:p>. Heading and Title paragraph styles become
// titles; numbered or list-styled paragraphs become list items.
func partitionDOCX(content []byte) ([]models.RawElement, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("partition DOCX: not a zip: %w", err)
	}

	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	docXML, err := readZipFile(zr, docPath)
	if err != nil {
		return nil, fmt.Errorf("partition DOCX: %w", err)
	}
	if docXML == nil {
		return nil, fmt.Errorf("partition DOCX: %s not found", docPath)
	}

	var out elementList
	for _, p := range wpTag.FindAllStringSubmatch(string(docXML), -1) {
		inner := p[1]
		var b strings.Builder
		for _, t := range wtTag.FindAllStringSubmatch(inner, -1) {
			b.WriteString(html.UnescapeString(t[1]))
		}
		out.add(docxParagraphKind(inner), b.String())
	}
	return out, nil
}

func docxParagraphKind(paragraphXML string) models.ElementKind {
	style := ""
	if m := pStyleTag.FindStringSubmatch(paragraphXML); len(m) > 1 {
		style = strings.ToLower(m[1])
	}
	switch {
	case strings.HasPrefix(style, "heading"), style == "title", style == "subtitle":
		return models.KindTitle
	case strings.Contains(paragraphXML, "<w:numPr>"), strings.HasPrefix(style, "list"):
		return models.KindListItem
	default:
		return models.KindBody
	}
}
