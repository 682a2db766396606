package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Aman-CERP/buscador/internal/document"
)

const (
	presentationPart     = "ppt/presentation.xml"
	presentationRelsPart = "ppt/_rels/presentation.xml.rels"
)

// Presentation reads OOXML slide decks.
// Each slide with text becomes one block labeled "Slide <n>:", where n is the
// 1-indexed position in presentation order. Shape texts appear in shape order;
// each table row contributes its non-empty cells joined with " | ".
type Presentation struct{}

// Kind implements Extractor.
func (*Presentation) Kind() Kind { return KindPresentation }

// Extract implements Extractor.
func (*Presentation) Extract(ctx context.Context, p string) ([]document.ContentBlock, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	slides, err := slideParts(&zr.Reader)
	if err != nil {
		return nil, err
	}

	var blocks []document.ContentBlock
	for i, name := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		part := findPart(&zr.Reader, name)
		if part == nil {
			return nil, fmt.Errorf("slide part %s not found in archive", name)
		}
		lines, err := readSlide(part)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", i+1, err)
		}
		if len(lines) == 0 {
			continue
		}
		blocks = append(blocks, document.ContentBlock{
			Label: document.SlideLabel(i + 1),
			Text:  strings.Join(lines, "\n"),
		})
	}
	return blocks, nil
}

type presentationXML struct {
	SlideIDs []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsXML struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// slideParts returns slide part names in presentation order.
// Without a usable slide list it falls back to ppt/slides/slideN.xml by N.
func slideParts(zr *zip.Reader) ([]string, error) {
	if findPart(zr, presentationPart) == nil {
		return nil, fmt.Errorf("%s not found in archive", presentationPart)
	}

	ordered, err := orderedSlideParts(zr)
	if err == nil && len(ordered) > 0 {
		return ordered, nil
	}
	return numberedSlideParts(zr), nil
}

func orderedSlideParts(zr *zip.Reader) ([]string, error) {
	var pres presentationXML
	if err := decodePart(zr, presentationPart, &pres); err != nil {
		return nil, err
	}
	var rels relationshipsXML
	if err := decodePart(zr, presentationRelsPart, &rels); err != nil {
		return nil, err
	}

	targets := make(map[string]string, len(rels.Relationships))
	for _, r := range rels.Relationships {
		targets[r.ID] = r.Target
	}

	parts := make([]string, 0, len(pres.SlideIDs))
	for _, s := range pres.SlideIDs {
		target, ok := targets[s.RelID]
		if !ok {
			return nil, fmt.Errorf("slide relationship %q not found", s.RelID)
		}
		if strings.HasPrefix(target, "/") {
			parts = append(parts, strings.TrimPrefix(target, "/"))
		} else {
			parts = append(parts, path.Join("ppt", target))
		}
	}
	return parts, nil
}

var slideNameRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func numberedSlideParts(zr *zip.Reader) []string {
	type numbered struct {
		name string
		n    int
	}
	var found []numbered
	for _, f := range zr.File {
		m := slideNameRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		found = append(found, numbered{f.Name, n})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	names := make([]string, len(found))
	for i, f := range found {
		names[i] = f.name
	}
	return names
}

func decodePart(zr *zip.Reader, name string, v any) error {
	part := findPart(zr, name)
	if part == nil {
		return fmt.Errorf("%s not found in archive", name)
	}
	rc, err := part.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// readSlide returns the slide's text lines in shape order: one entry per text
// shape (paragraphs joined with "\n") and one per non-empty table row.
func readSlide(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return slideLines(rc)
}

func slideLines(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		lines      []string
		inShape    bool // inside p:sp
		inCell     bool // inside a:tc
		inText     bool // inside a:t
		paragraphs []string
		para       strings.Builder
		cells      []string
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse slide: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				inShape, paragraphs = true, nil
			case "tr":
				cells = nil
			case "tc":
				inCell, paragraphs = true, nil
			case "p":
				para.Reset()
			case "t":
				inText = inShape || inCell
			case "br":
				if inShape || inCell {
					para.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inShape || inCell {
					paragraphs = append(paragraphs, para.String())
				}
			case "sp":
				if text := strings.Join(paragraphs, "\n"); strings.TrimSpace(text) != "" {
					lines = append(lines, text)
				}
				inShape = false
			case "tc":
				cells = append(cells, strings.Join(paragraphs, "\n"))
				inCell = false
			case "tr":
				if row := joinNonEmpty(cells, CellSeparator); row != "" {
					lines = append(lines, row)
				}
			}
		}
	}
	return lines, nil
}
