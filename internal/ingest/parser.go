// Package ingest extracts plain text from documents so they can be analysed
// or added to the reference corpus.
package ingest

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"

	"github.com/darved2305/VeriTextAI/internal/corpus"
	"github.com/darved2305/VeriTextAI/internal/model"
)

type Parsed struct {
	Title      string
	SourcePath string
	Text       string
}

func ParseFile(path string) (*Parsed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	parsed, err := ParseBytes(filepath.Base(path), raw)
	if err != nil {
		return nil, err
	}
	parsed.SourcePath = path
	return parsed, nil
}

// ParseBytes picks a parser from the extension of name.
func ParseBytes(name string, raw []byte) (*Parsed, error) {
	ext := strings.ToLower(filepath.Ext(name))
	var (
		text  string
		title string
		err   error
	)
	switch ext {
	case ".docx":
		text, err = parseDOCX(raw)
	case ".pdf":
		text, err = parsePDF(raw)
	case ".html", ".htm":
		title, text, err = parseHTML(raw)
	case ".txt", ".md", "":
		text = string(raw)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
	if err != nil {
		return nil, err
	}

	if title == "" {
		title = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	return &Parsed{
		Title: title,
		Text:  normalizeWhitespace(text),
	}, nil
}

// ToSource turns parsed text into a corpus entry. The ID defaults to a hash
// of the text so re-ingesting the same document replaces it.
func (p *Parsed) ToSource(id, url string, typ model.SourceType) corpus.Source {
	if id == "" {
		sum := sha256.Sum256([]byte(p.Text))
		id = hex.EncodeToString(sum[:])[:16]
	}
	if typ == "" {
		typ = model.SourceDatabase
	}
	return corpus.Source{
		ID:    id,
		URL:   url,
		Title: p.Title,
		Type:  typ,
		Text:  p.Text,
	}
}

func parseDOCX(raw []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open docx zip: %w", err)
	}

	var xmlData []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, openErr := f.Open()
			if openErr != nil {
				return "", fmt.Errorf("open document.xml: %w", openErr)
			}
			defer rc.Close()
			xmlData, err = io.ReadAll(rc)
			if err != nil {
				return "", fmt.Errorf("read document.xml: %w", err)
			}
			break
		}
	}
	if len(xmlData) == 0 {
		return "", fmt.Errorf("word/document.xml not found")
	}

	decoder := xml.NewDecoder(bytes.NewReader(xmlData))
	var b strings.Builder
	inText := false
	for {
		tok, tokenErr := decoder.Token()
		if tokenErr == io.EOF {
			break
		}
		if tokenErr != nil {
			return "", fmt.Errorf("decode document.xml: %w", tokenErr)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "p":
				if b.Len() > 0 {
					b.WriteString("\n")
				}
			case "tab":
				b.WriteString(" ")
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

func parsePDF(raw []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, pageErr := p.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no extractable text found in pdf")
	}
	return b.String(), nil
}

// parseHTML keeps block-level text from the page body and drops scripts,
// styles and navigation chrome.
func parseHTML(raw []byte) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript, nav, header, footer, aside").Remove()
	title := strings.TrimSpace(doc.Find("title").First().Text())

	var b strings.Builder
	blocks := doc.Find("body").Find("h1, h2, h3, h4, h5, h6, p, li, blockquote, pre, td")
	blocks.Each(func(_ int, s *goquery.Selection) {
		// nested blocks are visited on their own
		if s.Find("p, li, blockquote").Length() > 0 {
			return
		}
		if line := strings.TrimSpace(s.Text()); line != "" {
			b.WriteString(line)
			b.WriteString("\n")
		}
	})
	if b.Len() == 0 {
		b.WriteString(doc.Find("body").Text())
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", "", fmt.Errorf("no text found in html")
	}
	return title, b.String(), nil
}

func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.Join(strings.Fields(line), " ")
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
