package epub

import (
	"fmt"
	"html"
	"strings"
)

// BuildTitlePage renders the synthesized cover page (titlepage.xhtml): the
// title and author line centered inside a bordered frame, styled inline so
// the page stands alone even when no stylesheet survives packaging.
func BuildTitlePage(p *Package) []byte {
	meta := p.Metadata.Normalized()
	authors := strings.Join(meta.Creators, ", ")

	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	b.WriteString("<html xmlns=\"http://www.w3.org/1999/xhtml\" xml:lang=\"en\">\n")
	b.WriteString("<head>\n<title>Cover Page</title>\n")
	b.WriteString(`<style type="text/css">
body {
    margin: 0;
    padding: 0;
    text-align: center;
    font-family: serif;
}
.cover {
    margin: 30% auto 0 auto;
    padding: 3em;
    text-align: center;
    border: 1px solid #ccc;
    max-width: 80%;
}
h1 {
    font-size: 2em;
    margin-bottom: 1em;
    line-height: 1.2;
    color: #333;
}
p {
    font-size: 1.2em;
    font-style: italic;
    color: #666;
    line-height: 1.4;
}
</style>
`)
	b.WriteString("</head>\n<body>\n<div class=\"cover\">\n")
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(meta.Title))
	if authors != "" {
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(authors))
	}
	b.WriteString("</div>\n</body>\n</html>\n")
	return []byte(b.String())
}
