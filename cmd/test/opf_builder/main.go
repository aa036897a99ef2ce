// Debug helper: resolve a markdown directory and print the package.opf that
// would be generated for it, without writing an archive.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"mark2epub/internal/converter"
	"mark2epub/internal/epub"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: opf_builder <markdown_directory>")
		os.Exit(1)
	}

	resolver := &converter.Resolver{Dir: os.Args[1], Policy: converter.PolicyUseDefaults}
	assets, err := resolver.Resolve()
	if err != nil {
		log.Fatalf("resolve: %v", err)
	}
	desc := assets.Descriptor

	pkg := &epub.Package{
		Metadata: epub.Metadata{
			Title:      desc.Metadata.Title,
			Creators:   []string{desc.Metadata.Creator},
			Identifier: desc.Metadata.Identifier,
			Language:   desc.Metadata.Language,
			Rights:     desc.Metadata.Rights,
			Publisher:  desc.Metadata.Publisher,
			Date:       desc.Metadata.Date,
		},
		CoverImage: desc.CoverImage,
	}
	for _, ref := range desc.Chapters {
		pkg.Chapters = append(pkg.Chapters, epub.Chapter{
			Stem: strings.TrimSuffix(ref.Markdown, filepath.Ext(ref.Markdown)),
		})
	}
	for _, name := range assets.Images {
		mediaType, ok := epub.MediaTypeForImage(name)
		if !ok {
			continue
		}
		pkg.Images = append(pkg.Images, epub.Image{Filename: name, MediaType: mediaType})
	}
	for _, name := range desc.DefaultCSS {
		pkg.Styles = append(pkg.Styles, epub.Stylesheet{Filename: name})
	}

	opf, err := epub.BuildOPF(pkg)
	if err != nil {
		log.Fatalf("build opf: %v", err)
	}
	os.Stdout.Write(opf)
}
