package converter

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Sentinel errors for the fatal resolver conditions. Everything else the
// resolver encounters is a warning plus a skip.
var (
	ErrSourceNotFound  = errors.New("chapter source directory not found")
	ErrNoChapters      = errors.New("no markdown chapters found")
	ErrMetadataMissing = errors.New("required metadata missing")
)

// Fallbacks substituted when neither the descriptor nor the extraction
// sidecar provides a value.
const (
	defaultTitle     = "Untitled Document"
	defaultCreator   = "Unknown Author"
	defaultLanguage  = "en"
	defaultRights    = "All rights reserved"
	defaultPublisher = "mark2epub"
)

// MetadataPolicy decides how missing metadata fields are resolved. The
// engine itself never talks to a terminal; interactive resolution happens
// through an injected PromptFunc.
type MetadataPolicy int

const (
	// PolicyUseDefaults silently substitutes the built-in fallbacks.
	PolicyUseDefaults MetadataPolicy = iota
	// PolicyPrompt asks the injected PromptFunc for every missing field.
	PolicyPrompt
	// PolicyFailIfMissing aborts the build when title or creator is absent.
	PolicyFailIfMissing
)

// PromptFunc supplies a value for a missing metadata field. fallback is the
// value used when the returned string is empty.
type PromptFunc func(field, fallback string) (string, error)

// Resolver locates chapters, images, and metadata for one source directory.
type Resolver struct {
	Dir    string
	Policy MetadataPolicy
	Prompt PromptFunc
}

// Assets is the resolver output consumed by the pipeline.
type Assets struct {
	Dir        string
	Descriptor *Descriptor

	// Images holds the filenames available under images/, filtered to the
	// supported extensions and sorted.
	Images []string
}

// ImagesDir returns the source images directory.
func (a *Assets) ImagesDir() string { return filepath.Join(a.Dir, "images") }

// CSSDir returns the source stylesheet directory.
func (a *Assets) CSSDir() string { return filepath.Join(a.Dir, "css") }

// extractionSidecar is the minimal schema of the "<name>_metadata.json" file
// an upstream PDF extraction leaves next to the chapters.
type extractionSidecar struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// Resolve loads or synthesizes the descriptor, applies the metadata policy,
// and enumerates chapters and images. A synthesized or modified descriptor
// is persisted so the next build starts from the same state.
func (r *Resolver) Resolve() (*Assets, error) {
	info, err := os.Stat(r.Dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, r.Dir)
	}

	descPath := filepath.Join(r.Dir, descriptorFilename)
	desc, synthesized, err := r.loadOrSynthesize(descPath)
	if err != nil {
		return nil, err
	}
	if len(desc.Chapters) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoChapters, r.Dir)
	}

	changed, err := r.applyPolicy(desc)
	if err != nil {
		return nil, err
	}
	if synthesized || changed {
		if err := desc.Save(descPath); err != nil {
			log.Printf("warning: could not persist descriptor: %v", err)
		}
	}

	return &Assets{
		Dir:        r.Dir,
		Descriptor: desc,
		Images:     scanImages(filepath.Join(r.Dir, "images")),
	}, nil
}

// loadOrSynthesize returns the existing descriptor, or builds one from the
// markdown files on disk (sorted by name) and the extraction sidecar.
func (r *Resolver) loadOrSynthesize(descPath string) (*Descriptor, bool, error) {
	if _, err := os.Stat(descPath); err == nil {
		desc, err := LoadDescriptor(descPath)
		if err != nil {
			return nil, false, err
		}
		return desc, false, nil
	}

	mdFiles, err := scanMarkdown(r.Dir)
	if err != nil {
		return nil, false, err
	}
	if len(mdFiles) == 0 {
		return nil, false, fmt.Errorf("%w in %s", ErrNoChapters, r.Dir)
	}

	desc := &Descriptor{
		Metadata: DescriptorMetadata{
			Language:  defaultLanguage,
			Rights:    defaultRights,
			Publisher: defaultPublisher,
		},
		DefaultCSS: []string{"style.css"},
	}
	for _, name := range mdFiles {
		desc.Chapters = append(desc.Chapters, ChapterRef{Markdown: name})
	}

	if sidecar := r.loadSidecar(); sidecar != nil {
		desc.Metadata.Title = sidecar.Title
		desc.Metadata.Creator = sidecar.Author
	}

	return desc, true, nil
}

// loadSidecar finds the first "*_metadata.json" in the source directory.
// Absence is normal; a broken file is only a warning.
func (r *Resolver) loadSidecar() *extractionSidecar {
	matches, err := filepath.Glob(filepath.Join(r.Dir, "*_metadata.json"))
	if err != nil || len(matches) == 0 {
		return nil
	}
	sort.Strings(matches)

	data, err := os.ReadFile(matches[0])
	if err != nil {
		log.Printf("warning: could not read extraction metadata %s: %v", matches[0], err)
		return nil
	}
	var sc extractionSidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		log.Printf("warning: could not parse extraction metadata %s: %v", matches[0], err)
		return nil
	}
	return &sc
}

// applyPolicy fills the missing metadata fields according to the configured
// policy. Returns whether the descriptor was modified.
func (r *Resolver) applyPolicy(desc *Descriptor) (bool, error) {
	m := &desc.Metadata

	if r.Policy == PolicyFailIfMissing {
		if strings.TrimSpace(m.Title) == "" {
			return false, fmt.Errorf("%w: dc:title", ErrMetadataMissing)
		}
		if strings.TrimSpace(m.Creator) == "" {
			return false, fmt.Errorf("%w: dc:creator", ErrMetadataMissing)
		}
	}

	now := time.Now()
	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"dc:title", &m.Title, defaultTitle},
		{"dc:creator", &m.Creator, defaultCreator},
		{"dc:identifier", &m.Identifier, "id-" + now.Format("20060102150405")},
		{"dc:language", &m.Language, defaultLanguage},
		{"dc:rights", &m.Rights, defaultRights},
		{"dc:publisher", &m.Publisher, defaultPublisher},
		{"dc:date", &m.Date, now.Format("2006-01-02")},
	}

	changed := false
	for _, f := range fields {
		if strings.TrimSpace(*f.value) != "" {
			continue
		}
		resolved := f.fallback
		if r.Policy == PolicyPrompt && r.Prompt != nil {
			answer, err := r.Prompt(f.name, f.fallback)
			if err != nil {
				return changed, fmt.Errorf("prompt for %s: %w", f.name, err)
			}
			if strings.TrimSpace(answer) != "" {
				resolved = answer
			}
		}
		*f.value = resolved
		changed = true
	}
	return changed, nil
}

// scanMarkdown lists the *.md files of dir sorted by name.
func scanMarkdown(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, dir)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".md") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// scanImages lists the supported image files of dir sorted by name. Files
// with unsupported extensions are excluded with a warning rather than
// silently mis-tagged later.
func scanImages(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".gif", ".jpg", ".jpeg", ".png":
			files = append(files, e.Name())
		default:
			log.Printf("warning: unsupported image type %s, excluding from manifest", e.Name())
		}
	}
	sort.Strings(files)
	return files
}
