package epub

import (
	"encoding/xml"
	"fmt"
)

// opfPackage is the marshal model for the root <package> element.
type opfPackage struct {
	XMLName          xml.Name    `xml:"package"`
	XMLNS            string      `xml:"xmlns,attr"`
	Version          string      `xml:"version,attr"`
	Lang             string      `xml:"xml:lang,attr"`
	UniqueIdentifier string      `xml:"unique-identifier,attr"`
	Metadata         opfMetadata `xml:"metadata"`
	Manifest         opfManifest `xml:"manifest"`
	Spine            opfSpine    `xml:"spine"`
	Guide            opfGuide    `xml:"guide"`
}

// opfMetadata emits one element per non-empty Dublin Core field. Field order
// here is the emission order in the document.
type opfMetadata struct {
	XMLNSDC    string      `xml:"xmlns:dc,attr"`
	Title      *dcElement  `xml:"dc:title"`
	Creators   []dcElement `xml:"dc:creator"`
	Identifier *dcElement  `xml:"dc:identifier"`
	Language   *dcElement  `xml:"dc:language"`
	Rights     *dcElement  `xml:"dc:rights"`
	Publisher  *dcElement  `xml:"dc:publisher"`
	Date       *dcElement  `xml:"dc:date"`
	Metas      []opfMeta   `xml:"meta"`
}

type dcElement struct {
	ID    string `xml:"id,attr,omitempty"`
	Value string `xml:",chardata"`
}

// opfMeta is the EPUB2-compatibility <meta name="..." content="..."/> form.
type opfMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type opfManifest struct {
	Items []opfItem `xml:"item"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

type opfSpine struct {
	Toc      string       `xml:"toc,attr,omitempty"`
	ItemRefs []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr"`
}

type opfGuide struct {
	References []opfReference `xml:"reference"`
}

type opfReference struct {
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
	Href  string `xml:"href,attr"`
}

const (
	opfNamespace = "http://www.idpf.org/2007/opf"
	dcNamespace  = "http://purl.org/dc/elements/1.1/"

	navHref       = "TOC.xhtml"
	ncxHref       = "toc.ncx"
	titlePageHref = "titlepage.xhtml"

	xhtmlMediaType = "application/xhtml+xml"
	ncxMediaType   = "application/x-dtbncx+xml"
	cssMediaType   = "text/css"
)

// BuildOPF renders the OPS/package.opf document for p. Manifest item order is
// fixed: nav, ncx, titlepage, chapters in declaration order, images in
// enumeration order, stylesheets last. The spine references the title page
// first and then every chapter, all linear.
func BuildOPF(p *Package) ([]byte, error) {
	meta := p.Metadata.Normalized()

	md := opfMetadata{
		XMLNSDC:    dcNamespace,
		Title:      &dcElement{ID: "title", Value: meta.Title},
		Identifier: &dcElement{ID: "book-id", Value: meta.Identifier},
	}
	for i, creator := range meta.Creators {
		el := dcElement{Value: creator}
		if i == 0 {
			el.ID = "creator"
		}
		md.Creators = append(md.Creators, el)
	}
	if meta.Language != "" {
		md.Language = &dcElement{Value: meta.Language}
	}
	if meta.Rights != "" {
		md.Rights = &dcElement{Value: meta.Rights}
	}
	if meta.Publisher != "" {
		md.Publisher = &dcElement{Value: meta.Publisher}
	}
	if meta.Date != "" {
		md.Date = &dcElement{Value: meta.Date}
	}

	manifest := opfManifest{
		Items: []opfItem{
			{ID: "toc", Href: navHref, MediaType: xhtmlMediaType, Properties: "nav"},
		},
	}
	if !p.OmitNCX {
		manifest.Items = append(manifest.Items, opfItem{ID: "ncx", Href: ncxHref, MediaType: ncxMediaType})
	}
	manifest.Items = append(manifest.Items, opfItem{ID: "titlepage", Href: titlePageHref, MediaType: xhtmlMediaType})

	spine := opfSpine{
		ItemRefs: []opfItemRef{{IDRef: "titlepage", Linear: "yes"}},
	}
	if !p.OmitNCX {
		spine.Toc = "ncx"
	}

	for i, ch := range p.Chapters {
		manifest.Items = append(manifest.Items, opfItem{
			ID:        ChapterID(i),
			Href:      ChapterHref(i, ch.Stem),
			MediaType: xhtmlMediaType,
		})
		spine.ItemRefs = append(spine.ItemRefs, opfItemRef{IDRef: ChapterID(i), Linear: "yes"})
	}

	for i, img := range p.Images {
		mediaType := img.MediaType
		if mediaType == "" {
			mt, ok := MediaTypeForImage(img.Filename)
			if !ok {
				return nil, fmt.Errorf("unsupported image type for %s", img.Filename)
			}
			mediaType = mt
		}
		item := opfItem{
			ID:        ImageID(i),
			Href:      "images/" + img.Filename,
			MediaType: mediaType,
		}
		if p.CoverImage != "" && img.Filename == p.CoverImage {
			item.Properties = "cover-image"
			md.Metas = append(md.Metas, opfMeta{Name: "cover", Content: ImageID(i)})
		}
		manifest.Items = append(manifest.Items, item)
	}

	for i, css := range p.Styles {
		manifest.Items = append(manifest.Items, opfItem{
			ID:        StyleID(i),
			Href:      "css/" + css.Filename,
			MediaType: cssMediaType,
		})
	}

	guide := opfGuide{
		References: []opfReference{
			{Type: "cover", Title: "Cover image", Href: titlePageHref},
		},
	}

	doc := opfPackage{
		XMLNS:            opfNamespace,
		Version:          "3.0",
		Lang:             "en",
		UniqueIdentifier: "book-id",
		Metadata:         md,
		Manifest:         manifest,
		Spine:            spine,
		Guide:            guide,
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal package document: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
