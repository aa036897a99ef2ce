package epub

import (
	"fmt"
	"html"
	"strings"
)

// BuildNav renders the EPUB3 navigation document (TOC.xhtml): an ordered
// list of chapter links labeled by stem, wrapped in a nav[epub:type=toc].
// The entry order mirrors the chapter declaration order exactly; the OPF
// spine and the NCX navMap are built from the same list.
func BuildNav(p *Package) []byte {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<html xmlns=\"http://www.w3.org/1999/xhtml\" xmlns:epub=\"http://www.idpf.org/2007/ops\" lang=\"en\">\n")
	b.WriteString("<head>\n<meta http-equiv=\"default-style\" content=\"text/html; charset=utf-8\"/>\n")
	b.WriteString("<title>Contents</title>\n")
	for _, css := range p.Styles {
		fmt.Fprintf(&b, "<link rel=\"stylesheet\" href=\"css/%s\" type=\"text/css\"/>\n", html.EscapeString(css.Filename))
	}
	b.WriteString("</head>\n<body>\n")
	b.WriteString("<nav epub:type=\"toc\" role=\"doc-toc\" id=\"toc\">\n<h2>Contents</h2>\n<ol epub:type=\"list\">\n")
	for i, ch := range p.Chapters {
		fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n", ChapterHref(i, ch.Stem), html.EscapeString(ch.Stem))
	}
	b.WriteString("</ol>\n</nav>\n</body>\n</html>\n")
	return []byte(b.String())
}
