package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
)

// mimetypeContent is the exact payload of the mimetype entry. It must be the
// first archive member and must be stored uncompressed so readers can sniff
// the container without inflating anything.
const mimetypeContent = "application/epub+zip"

// containerXML is the fixed META-INF/container.xml pointing at the package
// document.
const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
<rootfiles>
<rootfile full-path="OPS/package.opf" media-type="application/oebps-package+xml"/>
</rootfiles>
</container>
`

// Write serializes p into w as an EPUB container. Member order: mimetype
// (stored), container.xml, package.opf, titlepage, chapters, navigation
// documents, images, stylesheets. Everything after mimetype is deflated.
func Write(w io.Writer, p *Package) error {
	opf, err := BuildOPF(p)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)

	mw, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return fmt.Errorf("create mimetype entry: %w", err)
	}
	if _, err := mw.Write([]byte(mimetypeContent)); err != nil {
		return fmt.Errorf("write mimetype entry: %w", err)
	}

	if err := writeEntry(zw, "META-INF/container.xml", []byte(containerXML)); err != nil {
		return err
	}
	if err := writeEntry(zw, "OPS/package.opf", opf); err != nil {
		return err
	}
	if err := writeEntry(zw, "OPS/titlepage.xhtml", BuildTitlePage(p)); err != nil {
		return err
	}

	for i, ch := range p.Chapters {
		if err := writeEntry(zw, "OPS/"+ChapterHref(i, ch.Stem), ch.XHTML); err != nil {
			return err
		}
	}

	if err := writeEntry(zw, "OPS/"+navHref, BuildNav(p)); err != nil {
		return err
	}
	if !p.OmitNCX {
		if err := writeEntry(zw, "OPS/"+ncxHref, BuildNCX(p)); err != nil {
			return err
		}
	}

	for _, img := range p.Images {
		if err := writeEntry(zw, "OPS/images/"+img.Filename, img.Data); err != nil {
			return err
		}
	}
	for _, css := range p.Styles {
		if err := writeEntry(zw, "OPS/css/"+css.Filename, css.Data); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}

// WriteFile writes p to an EPUB file at path. A failed write leaves whatever
// partial file exists on disk; cleanup is the caller's decision.
func WriteFile(path string, p *Package) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := Write(f, p); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	return nil
}

// writeEntry adds a deflated member to the archive.
func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("create archive entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write archive entry %s: %w", name, err)
	}
	return nil
}
