package epub

import (
	"fmt"
	"html"
	"strings"
)

// BuildNCX renders the legacy toc.ncx navigation file kept for reader
// backward compatibility. One navPoint per chapter, same labels and hrefs
// as the navigation document.
func BuildNCX(p *Package) []byte {
	meta := p.Metadata.Normalized()

	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	fmt.Fprintf(&b, "<ncx xmlns=\"http://www.daisy.org/z3986/2005/ncx/\" xml:lang=\"%s\" version=\"2005-1\">\n",
		html.EscapeString(meta.Language))
	b.WriteString("<head>\n")
	fmt.Fprintf(&b, "<meta name=\"dtb:uid\" content=\"%s\"/>\n", html.EscapeString(meta.Identifier))
	b.WriteString("</head>\n")
	fmt.Fprintf(&b, "<docTitle>\n<text>%s</text>\n</docTitle>\n", html.EscapeString(meta.Title))
	b.WriteString("<navMap>\n")
	for i, ch := range p.Chapters {
		fmt.Fprintf(&b, "<navPoint id=\"navpoint-%d\" playOrder=\"%d\">\n", i, i+1)
		fmt.Fprintf(&b, "<navLabel>\n<text>%s</text>\n</navLabel>\n", html.EscapeString(ch.Stem))
		fmt.Fprintf(&b, "<content src=\"%s\"/>\n", ChapterHref(i, ch.Stem))
		b.WriteString("</navPoint>\n")
	}
	b.WriteString("</navMap>\n</ncx>\n")
	return []byte(b.String())
}
