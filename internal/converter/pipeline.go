package converter

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"mark2epub/internal/epub"
)

// generatedCoverName is the filename of the synthesized cover image.
const generatedCoverName = "cover.png"

// ConvertOptions holds options for the packaging pipeline.
type ConvertOptions struct {
	SourceDir  string
	OutputPath string

	// MaxImageDimension bounds the longer side of optimized images.
	// Non-positive means DefaultMaxDimension.
	MaxImageDimension int

	MetadataPolicy MetadataPolicy
	Prompt         PromptFunc

	// OmitNCX skips the legacy toc.ncx document.
	OmitNCX bool
}

// Pipeline orchestrates the markdown to EPUB packaging run.
type Pipeline struct {
	Options ConvertOptions
}

// NewPipeline creates a new packaging pipeline.
func NewPipeline(opts ConvertOptions) *Pipeline {
	return &Pipeline{Options: opts}
}

// Convert executes the pipeline: resolve assets, render every chapter,
// optimize the referenced images, synthesize a cover when none is declared,
// and write the container. Per-asset failures are logged and skipped; only
// directory-level and archive-write failures abort the build.
func (p *Pipeline) Convert() error {
	resolver := &Resolver{
		Dir:    p.Options.SourceDir,
		Policy: p.Options.MetadataPolicy,
		Prompt: p.Options.Prompt,
	}
	assets, err := resolver.Resolve()
	if err != nil {
		return err
	}
	desc := assets.Descriptor

	available := make(map[string]bool, len(assets.Images))
	for _, name := range assets.Images {
		available[name] = true
	}

	chapters, referenced, err := p.renderChapters(assets, available)
	if err != nil {
		return err
	}

	images := p.collectImages(assets, referenced)

	coverName, coverImage := p.resolveCover(assets, desc)
	if coverImage != nil {
		found := false
		for _, img := range images {
			if img.Filename == coverName {
				found = true
				break
			}
		}
		if !found {
			images = append(images, *coverImage)
		}
	}

	creator := strings.TrimSpace(desc.Metadata.Creator)
	var creators []string
	if creator != "" {
		creators = []string{creator}
	}

	pkg := &epub.Package{
		Metadata: epub.Metadata{
			Title:      desc.Metadata.Title,
			Creators:   creators,
			Identifier: desc.Metadata.Identifier,
			Language:   desc.Metadata.Language,
			Rights:     desc.Metadata.Rights,
			Publisher:  desc.Metadata.Publisher,
			Date:       desc.Metadata.Date,
		},
		Chapters:   chapters,
		Images:     images,
		Styles:     ResolveStyles(assets.CSSDir(), p.styleFilenames(desc)),
		CoverImage: coverName,
		OmitNCX:    p.Options.OmitNCX,
	}

	if err := epub.WriteFile(p.Options.OutputPath, pkg); err != nil {
		return fmt.Errorf("write epub: %w", err)
	}

	log.Printf("EPUB created: %s", p.Options.OutputPath)
	return nil
}

// renderChapters renders every declared chapter in descriptor order,
// skipping duplicates and unreadable files, and aggregates the referenced
// image set across chapters in first-reference order.
func (p *Pipeline) renderChapters(assets *Assets, available map[string]bool) ([]epub.Chapter, []string, error) {
	renderer := NewChapterRenderer()
	desc := assets.Descriptor

	var chapters []epub.Chapter
	var referenced []string
	seenChapter := make(map[string]bool)
	seenImage := make(map[string]bool)

	for _, ref := range desc.Chapters {
		if ref.Markdown == "" || seenChapter[ref.Markdown] {
			continue
		}
		seenChapter[ref.Markdown] = true

		source, err := os.ReadFile(filepath.Join(assets.Dir, ref.Markdown))
		if err != nil {
			log.Printf("warning: could not read chapter %s: %v, skipping", ref.Markdown, err)
			continue
		}

		cssRefs := append([]string(nil), desc.DefaultCSS...)
		if ref.CSS != "" && !contains(cssRefs, ref.CSS) {
			cssRefs = append(cssRefs, ref.CSS)
		}

		xhtml, refs, err := renderer.Render(source, cssRefs, available)
		if err != nil {
			log.Printf("warning: could not render chapter %s: %v, skipping", ref.Markdown, err)
			continue
		}

		chapters = append(chapters, epub.Chapter{
			Stem:  strings.TrimSuffix(ref.Markdown, filepath.Ext(ref.Markdown)),
			XHTML: xhtml,
		})
		for _, name := range refs {
			if !seenImage[name] {
				seenImage[name] = true
				referenced = append(referenced, name)
			}
		}
	}

	if len(chapters) == 0 {
		return nil, nil, fmt.Errorf("%w: no chapter could be rendered", ErrNoChapters)
	}
	return chapters, referenced, nil
}

// collectImages produces the final image list: referenced images first, with
// optimized bytes, then every remaining file from the images directory
// copied verbatim so the manifest accounts for all of them.
func (p *Pipeline) collectImages(assets *Assets, referenced []string) []epub.Image {
	optimizer := NewImageOptimizer(p.Options.MaxImageDimension)

	var images []epub.Image
	included := make(map[string]bool)

	for _, name := range referenced {
		data, err := os.ReadFile(filepath.Join(assets.ImagesDir(), name))
		if err != nil {
			log.Printf("warning: referenced image not found: %s, skipping", name)
			continue
		}
		opt, err := optimizer.Optimize(name, data)
		if err != nil {
			log.Printf("warning: could not optimize image %s: %v, skipping", name, err)
			continue
		}
		included[name] = true
		images = append(images, epub.Image{
			Filename:  opt.Filename,
			MediaType: opt.MediaType,
			Data:      opt.Data,
		})
	}

	for _, name := range assets.Images {
		if included[name] {
			continue
		}
		mediaType, ok := epub.MediaTypeForImage(name)
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(assets.ImagesDir(), name))
		if err != nil {
			log.Printf("warning: could not read image %s: %v, skipping", name, err)
			continue
		}
		images = append(images, epub.Image{Filename: name, MediaType: mediaType, Data: data})
	}

	return images
}

// resolveCover returns the cover filename and, when a cover had to be
// synthesized, the generated image. The generated file is also written into
// the source images directory and recorded in the descriptor so the next
// build reuses it.
func (p *Pipeline) resolveCover(assets *Assets, desc *Descriptor) (string, *epub.Image) {
	if desc.CoverImage != "" {
		return desc.CoverImage, nil
	}

	data, err := GenerateCover(desc.Metadata.Title, desc.Metadata.Creator)
	if err != nil {
		log.Printf("warning: could not generate cover image: %v", err)
		return "", nil
	}

	if err := os.MkdirAll(assets.ImagesDir(), 0o755); err == nil {
		if err := os.WriteFile(filepath.Join(assets.ImagesDir(), generatedCoverName), data, 0o644); err != nil {
			log.Printf("warning: could not persist generated cover: %v", err)
		}
	}

	desc.CoverImage = generatedCoverName
	if err := desc.Save(filepath.Join(assets.Dir, descriptorFilename)); err != nil {
		log.Printf("warning: could not persist descriptor: %v", err)
	}

	return generatedCoverName, &epub.Image{
		Filename:  generatedCoverName,
		MediaType: "image/png",
		Data:      data,
	}
}

// styleFilenames lists the default stylesheets plus every distinct
// per-chapter override, preserving declaration order.
func (p *Pipeline) styleFilenames(desc *Descriptor) []string {
	names := append([]string(nil), desc.DefaultCSS...)
	for _, ref := range desc.Chapters {
		if ref.CSS != "" && !contains(names, ref.CSS) {
			names = append(names, ref.CSS)
		}
	}
	return names
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
