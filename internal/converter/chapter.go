package converter

import (
	"bytes"
	"fmt"
	"html"
	"log"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
)

// markdownImageRe matches markdown image syntax ![alt](path).
var markdownImageRe = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)

// inlineImgSrcRe matches the src attribute of raw <img> tags embedded in
// markdown, which goldmark passes through verbatim.
var inlineImgSrcRe = regexp.MustCompile(`(<img\b[^>]*?\bsrc\s*=\s*")([^"]+)(")`)

// ChapterRenderer turns one markdown chapter into an EPUB3 XHTML document.
// It rewrites image references to the package-relative images/ form and
// reports which images the chapter actually uses. It never reads or writes
// image files itself.
type ChapterRenderer struct {
	md goldmark.Markdown
}

// NewChapterRenderer builds the renderer with tables, fenced code, and
// footnotes enabled, emitting XHTML-compatible output.
func NewChapterRenderer() *ChapterRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
		),
		goldmark.WithRendererOptions(
			ghtml.WithXHTML(),
			ghtml.WithUnsafe(),
		),
	)
	return &ChapterRenderer{md: md}
}

// Render converts markdown source into a complete XHTML document and returns
// the filenames of the images it references, in first-reference order.
// available is the set of filenames present in the source images directory;
// references that resolve to a member are rewritten to images/<filename>,
// anything else is left untouched with a warning.
func (r *ChapterRenderer) Render(source []byte, cssRefs []string, available map[string]bool) ([]byte, []string, error) {
	rewritten := rewriteImageRefs(source, available)

	var body bytes.Buffer
	if err := r.md.Convert(rewritten, &body); err != nil {
		return nil, nil, fmt.Errorf("render markdown: %w", err)
	}

	doc := wrapXHTML(body.Bytes(), cssRefs)

	// Dangling images/ references survive rendering untouched; only names
	// that resolved against the source set count as referenced.
	var refs []string
	for _, name := range collectImageRefs(doc) {
		if available[name] {
			refs = append(refs, name)
		}
	}
	return doc, refs, nil
}

// rewriteImageRefs rewrites markdown and raw-HTML image references whose
// filename exists in available to the canonical images/<filename> form. The
// directory component of the original path is discarded.
func rewriteImageRefs(source []byte, available map[string]bool) []byte {
	out := markdownImageRe.ReplaceAllFunc(source, func(match []byte) []byte {
		parts := markdownImageRe.FindSubmatch(match)
		alt, ref := string(parts[1]), strings.TrimSpace(string(parts[2]))
		name := path.Base(ref)
		if !available[name] {
			log.Printf("warning: image not found: %s, leaving reference as-is", ref)
			return match
		}
		return []byte(fmt.Sprintf("![%s](images/%s)", alt, name))
	})

	out = inlineImgSrcRe.ReplaceAllFunc(out, func(match []byte) []byte {
		parts := inlineImgSrcRe.FindSubmatch(match)
		ref := strings.TrimSpace(string(parts[2]))
		if strings.Contains(ref, "://") || strings.HasPrefix(ref, "data:") {
			return match
		}
		name := path.Base(ref)
		if !available[name] {
			log.Printf("warning: image not found: %s, leaving reference as-is", ref)
			return match
		}
		return append(parts[1], append([]byte("images/"+name), parts[3]...)...)
	})

	return out
}

// wrapXHTML embeds a rendered body fragment in the minimal EPUB3-valid
// document: xhtml and epub:ops namespaces, one stylesheet link per css ref.
func wrapXHTML(body []byte, cssRefs []string) []byte {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<html xmlns=\"http://www.w3.org/1999/xhtml\" xmlns:epub=\"http://www.idpf.org/2007/ops\" lang=\"en\">\n")
	b.WriteString("<head>\n<meta http-equiv=\"default-style\" content=\"text/html; charset=utf-8\"/>\n")
	for _, css := range cssRefs {
		fmt.Fprintf(&b, "<link rel=\"stylesheet\" href=\"css/%s\" type=\"text/css\" media=\"all\"/>\n", html.EscapeString(css))
	}
	b.WriteString("</head>\n<body>\n")
	b.Write(body)
	b.WriteString("</body>\n</html>\n")
	return []byte(b.String())
}

// collectImageRefs walks the rendered document and returns the filenames of
// all images under the package images/ namespace, deduplicated, in document
// order.
func collectImageRefs(doc []byte) []string {
	parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		log.Printf("warning: could not scan rendered chapter for images: %v", err)
		return nil
	}

	seen := make(map[string]bool)
	var refs []string
	parsed.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if !strings.HasPrefix(src, "images/") {
			return
		}
		name := strings.TrimPrefix(src, "images/")
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		refs = append(refs, name)
	})
	return refs
}
