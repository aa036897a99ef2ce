// Package epub assembles EPUB3 publications: the OPF package document, the
// navigation documents, the synthesized title page, and the zip container
// itself. Inputs are fully rendered artifacts; nothing here touches the
// source directory.
package epub

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

// Metadata holds the Dublin Core fields emitted into the package document.
// Empty fields are omitted from the OPF entirely.
type Metadata struct {
	Title      string
	Creators   []string
	Identifier string
	Language   string
	Rights     string
	Publisher  string
	Date       string
}

// Normalized returns a copy with the fields the package document must not
// omit filled with fallbacks. Title and Identifier are required for a
// conforming EPUB regardless of what the caller resolved.
func (m Metadata) Normalized() Metadata {
	if strings.TrimSpace(m.Title) == "" {
		m.Title = "Untitled Document"
	}
	if strings.TrimSpace(m.Identifier) == "" {
		m.Identifier = "id-" + strconv.FormatInt(time.Now().Unix(), 10)
	}
	if strings.TrimSpace(m.Language) == "" {
		m.Language = "en"
	}
	return m
}

// Chapter is a rendered content document ready for packaging.
type Chapter struct {
	Stem  string // source filename without extension; used in hrefs and TOC labels
	XHTML []byte
}

// Image is a finalized image asset. The container writer trusts Data as the
// exact bytes to archive; optimization happened upstream.
type Image struct {
	Filename  string
	MediaType string
	Data      []byte
}

// Stylesheet is a CSS file to be placed under OPS/css/.
type Stylesheet struct {
	Filename string
	Data     []byte
}

// Package is the root aggregate handed to the container writer. It is built
// once per conversion run and discarded after the archive is written.
type Package struct {
	Metadata Metadata
	Chapters []Chapter
	Images   []Image
	Styles   []Stylesheet

	// CoverImage names the entry in Images that carries the cover-image
	// property. Empty means no cover image is declared.
	CoverImage string

	// OmitNCX drops the legacy toc.ncx document and the spine toc attribute.
	OmitNCX bool
}

// ChapterID returns the ordinal manifest id for the i-th chapter.
func ChapterID(i int) string { return fmt.Sprintf("s%05d", i) }

// ChapterHref returns the package-relative href for the i-th chapter.
func ChapterHref(i int, stem string) string {
	return fmt.Sprintf("s%05d-%s.xhtml", i, stem)
}

// ImageID returns the ordinal manifest id for the i-th image.
func ImageID(i int) string { return fmt.Sprintf("image-%05d", i) }

// StyleID returns the ordinal manifest id for the i-th stylesheet.
func StyleID(i int) string { return fmt.Sprintf("css-%05d", i) }

// MediaTypeForImage maps an image filename to its manifest media type by
// exact extension match. Anything outside the supported set is rejected.
func MediaTypeForImage(filename string) (string, bool) {
	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg", true
	case ".png":
		return "image/png", true
	case ".gif":
		return "image/gif", true
	default:
		return "", false
	}
}
