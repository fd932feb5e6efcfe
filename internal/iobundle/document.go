package iobundle

import (
	"encoding/xml"
	"io"
	"path"
	"time"

	"github.com/gnames/gntree/pkg/guide"
	"github.com/gnames/gntree/pkg/schema"
)

const dcNamespace = "http://purl.org/dc/elements/1.1/"

type document struct {
	XMLName     xml.Name   `xml:"INatGuide"`
	DC          string     `xml:"xmlns:dc,attr"`
	Title       string     `xml:"dc:title"`
	Description string     `xml:"dc:description,omitempty"`
	Date        string     `xml:"dc:date,omitempty"`
	Entries     []entryXML `xml:"GuideTaxon"`
}

type entryXML struct {
	Position    int        `xml:"position,attr"`
	TaxonID     *int64     `xml:"taxonID,omitempty"`
	Name        string     `xml:"name"`
	DisplayName string     `xml:"displayName,omitempty"`
	Description string     `xml:"description,omitempty"`
	Photos      []mediaXML `xml:"GuidePhoto"`
	Ranges      []mediaXML `xml:"GuideRange"`
}

type mediaXML struct {
	Position    int       `xml:"position,attr"`
	Attribution string    `xml:"attribution,omitempty"`
	Hrefs       []hrefXML `xml:"href"`
}

type hrefXML struct {
	Type string `xml:"type,attr"`
	Size string `xml:"size,attr"`
	URL  string `xml:",chardata"`
}

// localFiles tells which assets were downloaded, keyed by file name.
type localFiles map[string]bool

func newDocument(g *schema.Guide, files localFiles) document {
	doc := document{
		DC:          dcNamespace,
		Title:       g.Title,
		Description: g.Description,
	}
	if g.PublishedAt != nil {
		doc.Date = g.PublishedAt.UTC().Format(time.RFC3339)
	}

	for _, gt := range g.GuideTaxa {
		e := entryXML{
			Position:    gt.Position,
			TaxonID:     gt.TaxonID,
			Name:        gt.Name,
			DisplayName: gt.DisplayName,
			Description: gt.Description,
		}
		for _, p := range gt.Photos {
			m := newMedia(p, files)
			if p.Kind == schema.RangeKind {
				e.Ranges = append(e.Ranges, m)
				continue
			}
			e.Photos = append(e.Photos, m)
		}
		doc.Entries = append(doc.Entries, e)
	}
	return doc
}

func newMedia(p schema.GuidePhoto, files localFiles) mediaXML {
	m := mediaXML{Position: p.Position, Attribution: p.Attribution}
	for _, size := range guide.ImageSizes {
		url := guide.MediaURL(p, size)
		if url == "" {
			continue
		}
		fname := guide.AssetFilename(p, size)
		if files[fname] {
			m.Hrefs = append(m.Hrefs, hrefXML{
				Type: "local",
				Size: size,
				URL:  path.Join(assetDir, fname),
			})
		}
		m.Hrefs = append(m.Hrefs, hrefXML{Type: "remote", Size: size, URL: url})
	}
	return m
}

func (d document) write(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(d); err != nil {
		return err
	}
	return enc.Close()
}
