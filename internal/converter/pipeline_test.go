package converter

import (
	"archive/zip"
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

const testDescriptor = `{
  "metadata": {
    "dc:title": "Pipeline Book",
    "dc:creator": "P. Author",
    "dc:identifier": "id-fixed",
    "dc:language": "en",
    "dc:rights": "All rights reserved",
    "dc:publisher": "mark2epub",
    "dc:date": "2024-06-01"
  },
  "default_css": ["style.css"],
  "chapters": [{"markdown": "intro.md"}],
  "cover_image": "plot.png"
}`

func writeTestBook(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeSourceFile(t, dir, "description.json", testDescriptor)
	writeSourceFile(t, dir, "intro.md", "# Intro\n\n![fig](images/plot.png)\n")
	plot := mustEncodePNG(t, makeSolidNRGBA(30, 20, color.NRGBA{R: 128, G: 64, B: 32, A: 255}))
	writeSourceFile(t, dir, "images/plot.png", string(plot))
	return dir
}

func convertBook(t *testing.T, opts ConvertOptions) *zip.ReadCloser {
	t.Helper()
	if opts.OutputPath == "" {
		opts.OutputPath = filepath.Join(t.TempDir(), "out.epub")
	}
	if err := NewPipeline(opts).Convert(); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	zr, err := zip.OpenReader(opts.OutputPath)
	if err != nil {
		t.Fatalf("zip.OpenReader() error = %v", err)
	}
	t.Cleanup(func() { zr.Close() })
	return zr
}

func archiveMember(t *testing.T, zr *zip.ReadCloser, name string) []byte {
	t.Helper()
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				t.Fatalf("open %s: %v", name, err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read %s: %v", name, err)
			}
			return data
		}
	}
	t.Fatalf("member %s not found in archive", name)
	return nil
}

func hasMember(zr *zip.ReadCloser, name string) bool {
	for _, f := range zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

func TestConvert_EndToEnd(t *testing.T) {
	dir := writeTestBook(t)
	zr := convertBook(t, ConvertOptions{SourceDir: dir})

	if zr.File[0].Name != "mimetype" || zr.File[0].Method != zip.Store {
		t.Fatalf("first member = %q method %d", zr.File[0].Name, zr.File[0].Method)
	}

	opf := string(archiveMember(t, zr, "OPS/package.opf"))
	for _, want := range []string{
		`<dc:title id="title">Pipeline Book</dc:title>`,
		`<dc:creator id="creator">P. Author</dc:creator>`,
		`<dc:identifier id="book-id">id-fixed</dc:identifier>`,
		`id="s00000" href="s00000-intro.xhtml"`,
		`id="image-00000" href="images/plot.png" media-type="image/png" properties="cover-image"`,
		`id="css-00000" href="css/style.css" media-type="text/css"`,
		`<meta name="cover" content="image-00000"`,
	} {
		if !strings.Contains(opf, want) {
			t.Fatalf("package.opf missing %q:\n%s", want, opf)
		}
	}

	chapter := string(archiveMember(t, zr, "OPS/s00000-intro.xhtml"))
	if !strings.Contains(chapter, `src="images/plot.png"`) {
		t.Fatalf("chapter image not rewritten:\n%s", chapter)
	}

	img, err := png.Decode(bytes.NewReader(archiveMember(t, zr, "OPS/images/plot.png")))
	if err != nil {
		t.Fatalf("packaged image not valid png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 30 || b.Dy() != 20 {
		t.Fatalf("packaged image = %dx%d, want 30x20 (no upscale)", b.Dx(), b.Dy())
	}

	css := string(archiveMember(t, zr, "OPS/css/style.css"))
	if !strings.Contains(css, "max-width: 45em") {
		t.Fatalf("default stylesheet not substituted:\n%s", css)
	}
}

func TestConvert_GeneratesCoverWhenUndeclared(t *testing.T) {
	dir := writeTestBook(t)
	desc, err := LoadDescriptor(filepath.Join(dir, "description.json"))
	if err != nil {
		t.Fatalf("LoadDescriptor() error = %v", err)
	}
	desc.CoverImage = ""
	if err := desc.Save(filepath.Join(dir, "description.json")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	zr := convertBook(t, ConvertOptions{SourceDir: dir})

	if !hasMember(zr, "OPS/images/cover.png") {
		t.Fatal("generated cover missing from archive")
	}
	opf := string(archiveMember(t, zr, "OPS/package.opf"))
	if !strings.Contains(opf, `href="images/cover.png" media-type="image/png" properties="cover-image"`) {
		t.Fatalf("cover-image property missing:\n%s", opf)
	}

	cover, err := png.Decode(bytes.NewReader(archiveMember(t, zr, "OPS/images/cover.png")))
	if err != nil {
		t.Fatalf("generated cover not valid png: %v", err)
	}
	if b := cover.Bounds(); b.Dx() != coverWidth || b.Dy() != coverHeight {
		t.Fatalf("cover = %dx%d, want %dx%d", b.Dx(), b.Dy(), coverWidth, coverHeight)
	}

	// The cover is persisted next to the sources and recorded in the
	// descriptor so the next build reuses it.
	updated, err := LoadDescriptor(filepath.Join(dir, "description.json"))
	if err != nil {
		t.Fatalf("LoadDescriptor() error = %v", err)
	}
	if updated.CoverImage != "cover.png" {
		t.Fatalf("descriptor cover_image = %q, want cover.png", updated.CoverImage)
	}
}

func TestConvert_SpineFollowsDeclarationOrder(t *testing.T) {
	dir := t.TempDir()
	writeSourceFile(t, dir, "b.md", "# B")
	writeSourceFile(t, dir, "a.md", "# A")
	writeSourceFile(t, dir, "description.json", `{
  "metadata": {"dc:title": "T", "dc:creator": "C", "dc:identifier": "id-1",
    "dc:language": "en", "dc:rights": "r", "dc:publisher": "p", "dc:date": "2024-01-01"},
  "default_css": [],
  "chapters": [{"markdown": "b.md"}, {"markdown": "a.md"}],
  "cover_image": "none.png"
}`)

	zr := convertBook(t, ConvertOptions{SourceDir: dir})
	opf := string(archiveMember(t, zr, "OPS/package.opf"))

	bPos := strings.Index(opf, "s00000-b.xhtml")
	aPos := strings.Index(opf, "s00001-a.xhtml")
	if bPos < 0 || aPos < 0 || bPos > aPos {
		t.Fatalf("chapters not in declaration order:\n%s", opf)
	}
}

func TestConvert_SkipsMissingChapterAndImage(t *testing.T) {
	dir := writeTestBook(t)
	desc, err := LoadDescriptor(filepath.Join(dir, "description.json"))
	if err != nil {
		t.Fatalf("LoadDescriptor() error = %v", err)
	}
	desc.Chapters = append(desc.Chapters, ChapterRef{Markdown: "missing.md"})
	if err := desc.Save(filepath.Join(dir, "description.json")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	writeSourceFile(t, dir, "intro.md", "# Intro\n\n![gone](images/nowhere.png)\n")

	zr := convertBook(t, ConvertOptions{SourceDir: dir})

	if !hasMember(zr, "OPS/s00000-intro.xhtml") {
		t.Fatal("surviving chapter missing from archive")
	}
	if hasMember(zr, "OPS/s00001-missing.xhtml") {
		t.Fatal("unreadable chapter was packaged")
	}
	if hasMember(zr, "OPS/images/nowhere.png") {
		t.Fatal("dangling image reference was packaged")
	}
}

func TestConvert_PackagesUnreferencedImages(t *testing.T) {
	dir := writeTestBook(t)
	extra := mustEncodePNG(t, makeSolidNRGBA(5, 5, color.NRGBA{A: 255}))
	writeSourceFile(t, dir, "images/unused.png", string(extra))

	zr := convertBook(t, ConvertOptions{SourceDir: dir})

	if !hasMember(zr, "OPS/images/unused.png") {
		t.Fatal("unreferenced image missing from archive")
	}
	if !bytes.Equal(archiveMember(t, zr, "OPS/images/unused.png"), extra) {
		t.Fatal("unreferenced image was re-encoded, want verbatim copy")
	}
	opf := string(archiveMember(t, zr, "OPS/package.opf"))
	if !strings.Contains(opf, `href="images/unused.png"`) {
		t.Fatalf("unreferenced image missing from manifest:\n%s", opf)
	}
}

func TestConvert_OmitNCX(t *testing.T) {
	dir := writeTestBook(t)
	zr := convertBook(t, ConvertOptions{SourceDir: dir, OmitNCX: true})

	if hasMember(zr, "OPS/toc.ncx") {
		t.Fatal("toc.ncx present with OmitNCX set")
	}
	opf := string(archiveMember(t, zr, "OPS/package.opf"))
	if strings.Contains(opf, `toc="ncx"`) {
		t.Fatalf("spine still references ncx:\n%s", opf)
	}
}

func TestConvert_DownscalesReferencedImages(t *testing.T) {
	dir := writeTestBook(t)
	big := mustEncodePNG(t, makeSolidNRGBA(200, 100, color.NRGBA{R: 9, A: 255}))
	writeSourceFile(t, dir, "images/plot.png", string(big))

	zr := convertBook(t, ConvertOptions{SourceDir: dir, MaxImageDimension: 100})

	img, err := png.Decode(bytes.NewReader(archiveMember(t, zr, "OPS/images/plot.png")))
	if err != nil {
		t.Fatalf("packaged image not valid png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Fatalf("packaged image = %dx%d, want 100x50", b.Dx(), b.Dy())
	}
}

func TestConvert_MissingSourceDir(t *testing.T) {
	opts := ConvertOptions{
		SourceDir:  filepath.Join(t.TempDir(), "absent"),
		OutputPath: filepath.Join(t.TempDir(), "out.epub"),
	}
	if err := NewPipeline(opts).Convert(); !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("Convert() error = %v, want ErrSourceNotFound", err)
	}
}

func TestConvert_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeSourceFile(t, dir, "intro.md", "# Intro\n")

	out1 := filepath.Join(t.TempDir(), "one.epub")
	out2 := filepath.Join(t.TempDir(), "two.epub")

	zr1 := convertBook(t, ConvertOptions{SourceDir: dir, OutputPath: out1})
	zr2 := convertBook(t, ConvertOptions{SourceDir: dir, OutputPath: out2})

	// The first run synthesized the descriptor and the cover; the second run
	// loads both from disk and must produce the same documents.
	for _, name := range []string{"OPS/package.opf", "OPS/s00000-intro.xhtml", "OPS/images/cover.png"} {
		if !bytes.Equal(archiveMember(t, zr1, name), archiveMember(t, zr2, name)) {
			t.Fatalf("member %s differs between runs", name)
		}
	}
}
