// Debug helper: render a single markdown chapter to XHTML on stdout and
// list the image references it resolved.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"mark2epub/internal/converter"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: chapter_render <markdown_directory> <chapter.md>")
		os.Exit(1)
	}
	dir, name := os.Args[1], os.Args[2]

	resolver := &converter.Resolver{Dir: dir, Policy: converter.PolicyUseDefaults}
	assets, err := resolver.Resolve()
	if err != nil {
		log.Fatalf("resolve %s: %v", dir, err)
	}

	source, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		log.Fatalf("read chapter: %v", err)
	}

	available := make(map[string]bool, len(assets.Images))
	for _, img := range assets.Images {
		available[img] = true
	}

	xhtml, refs, err := converter.NewChapterRenderer().Render(source, assets.Descriptor.DefaultCSS, available)
	if err != nil {
		log.Fatalf("render: %v", err)
	}

	os.Stdout.Write(xhtml)
	fmt.Fprintf(os.Stderr, "\nreferenced images: %d\n", len(refs))
	for _, r := range refs {
		fmt.Fprintf(os.Stderr, "  %s\n", r)
	}
}
