package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

const (
	docxBody         = "word/document.xml"
	contentTypes     = "[Content_Types].xml"
	docxMainType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	pptxSlidePrefix  = "ppt/slides/slide"
	openDocumentBody = "content.xml"
)

var (
	wordRun  = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	slideRun = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)
	// OpenDocument paragraphs, headings and spans. A paragraph holding a span has
	// no plain inner text, so only the span matches there.
	odfText = regexp.MustCompile(`<text:(?:p|h|span)[^>]*>([^<]*)</text:(?:p|h|span)>`)

	// Either attribute order in an Override element.
	mainPartFirst  = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainType) + `"`)
	mainPartSecond = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainType) + `"[^>]+PartName="([^"]+)"`)

	xmlEntities = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")
)

type archive struct {
	kind string
	zr   *zip.Reader
}

func openArchive(content []byte, kind string) (*archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%s is not a zip archive: %w", kind, err)
	}
	return &archive{kind: kind, zr: zr}, nil
}

// read returns the named entry, or nil when the archive has no such entry.
func (a *archive) read(name string) ([]byte, error) {
	for _, f := range a.zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%s: open %s: %w", a.kind, name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%s: read %s: %w", a.kind, name, err)
		}
		return data, nil
	}
	return nil, nil
}

func (a *archive) mustRead(name string) ([]byte, error) {
	data, err := a.read(name)
	if err == nil && data == nil {
		err = fmt.Errorf("%s: %s not found", a.kind, name)
	}
	return data, err
}

// joinRuns joins the first capture of every match with single spaces.
func joinRuns(re *regexp.Regexp, xml []byte, b *strings.Builder) {
	for _, m := range re.FindAllSubmatch(xml, -1) {
		run := strings.TrimSpace(xmlEntities.Replace(string(m[1])))
		if run == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(run)
	}
}

func readDOCX(content []byte) (string, error) {
	a, err := openArchive(content, "docx")
	if err != nil {
		return "", err
	}
	body := docxBody
	types, err := a.read(contentTypes)
	if err != nil {
		return "", err
	}
	for _, re := range []*regexp.Regexp{mainPartFirst, mainPartSecond} {
		if m := re.FindSubmatch(types); m != nil {
			body = strings.TrimPrefix(string(m[1]), "/")
			break
		}
	}
	xml, err := a.mustRead(body)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	joinRuns(wordRun, xml, &b)
	return b.String(), nil
}

func readPPTX(content []byte) (string, error) {
	a, err := openArchive(content, "pptx")
	if err != nil {
		return "", err
	}
	var slides []string
	for _, f := range a.zr.File {
		if strings.HasPrefix(f.Name, pptxSlidePrefix) && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f.Name)
		}
	}
	// slide2.xml before slide10.xml
	sort.Slice(slides, func(i, j int) bool {
		if len(slides[i]) != len(slides[j]) {
			return len(slides[i]) < len(slides[j])
		}
		return slides[i] < slides[j]
	})
	var b strings.Builder
	for _, name := range slides {
		xml, err := a.mustRead(name)
		if err != nil {
			return "", err
		}
		joinRuns(slideRun, xml, &b)
	}
	return b.String(), nil
}

func readOpenDocument(content []byte, ext string) (string, error) {
	a, err := openArchive(content, strings.TrimPrefix(ext, "."))
	if err != nil {
		return "", err
	}
	xml, err := a.mustRead(openDocumentBody)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	joinRuns(odfText, xml, &b)
	return b.String(), nil
}
