package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Aman-CERP/buscador/internal/document"
)

const wordDocumentPart = "word/document.xml"

// WordDoc reads OOXML word-processor documents.
// Paragraph texts are joined with "\n" into a single unlabeled block.
type WordDoc struct{}

// Kind implements Extractor.
func (*WordDoc) Kind() Kind { return KindWordDoc }

// Extract implements Extractor.
func (*WordDoc) Extract(_ context.Context, path string) ([]document.ContentBlock, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	part := findPart(&zr.Reader, wordDocumentPart)
	if part == nil {
		return nil, fmt.Errorf("%s not found in archive", wordDocumentPart)
	}

	rc, err := part.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", wordDocumentPart, err)
	}
	defer rc.Close()

	paragraphs, err := wordParagraphs(rc)
	if err != nil {
		return nil, err
	}
	return []document.ContentBlock{{Text: strings.Join(paragraphs, "\n")}}, nil
}

// wordParagraphs returns the text of every w:p, including empty ones.
// Text comes from w:t runs; w:tab and w:br map to whitespace.
func wordParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		cur        strings.Builder
		depth      int // nesting of w:p
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", wordDocumentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				if depth == 0 {
					cur.Reset()
				}
				depth++
			case "t":
				inText = depth > 0
			case "tab":
				if depth > 0 {
					cur.WriteByte('\t')
				}
			case "br", "cr":
				if depth > 0 {
					cur.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if depth > 0 {
					depth--
					if depth == 0 {
						paragraphs = append(paragraphs, cur.String())
					}
				}
			}
		}
	}
	return paragraphs, nil
}

func findPart(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}
