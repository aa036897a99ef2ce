package converter

import (
	"encoding/json"
	"fmt"
	"os"
)

// descriptorFilename is the per-directory build descriptor. It is synthesized
// on first run and persisted so repeated builds are reproducible and editable
// between runs.
const descriptorFilename = "description.json"

// Descriptor is the typed model of description.json. The dc-prefixed keys are
// part of the on-disk format and must not change.
type Descriptor struct {
	Metadata   DescriptorMetadata `json:"metadata"`
	DefaultCSS []string           `json:"default_css"`
	Chapters   []ChapterRef       `json:"chapters"`
	CoverImage string             `json:"cover_image"`
}

// DescriptorMetadata carries the Dublin Core fields of the descriptor.
type DescriptorMetadata struct {
	Title      string `json:"dc:title"`
	Creator    string `json:"dc:creator"`
	Identifier string `json:"dc:identifier"`
	Language   string `json:"dc:language"`
	Rights     string `json:"dc:rights"`
	Publisher  string `json:"dc:publisher"`
	Date       string `json:"dc:date"`
}

// ChapterRef declares one chapter: the markdown filename and an optional
// per-chapter stylesheet appended after the default stylesheets.
type ChapterRef struct {
	Markdown string `json:"markdown"`
	CSS      string `json:"css"`
}

// LoadDescriptor reads and decodes a description.json file.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor: %w", err)
	}
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse descriptor %s: %w", path, err)
	}
	return &d, nil
}

// Save persists the descriptor with stable two-space indentation so manual
// edits between runs stay diffable.
func (d *Descriptor) Save(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode descriptor: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write descriptor: %w", err)
	}
	return nil
}
