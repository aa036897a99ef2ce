package converter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// The dc-prefixed keys are the on-disk contract; a renamed field would
// silently orphan every existing description.json.
func TestDescriptorSave_OnDiskFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "description.json")
	d := &Descriptor{
		Metadata:   DescriptorMetadata{Title: "T", Creator: "C"},
		DefaultCSS: []string{"style.css"},
		Chapters:   []ChapterRef{{Markdown: "a.md", CSS: "a.css"}},
		CoverImage: "cover.png",
	}
	if err := d.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read descriptor: %v", err)
	}
	for _, key := range []string{
		`"dc:title"`, `"dc:creator"`, `"default_css"`,
		`"markdown"`, `"css"`, `"cover_image"`,
	} {
		if !strings.Contains(string(raw), key) {
			t.Fatalf("descriptor missing key %s:\n%s", key, raw)
		}
	}
	if !strings.HasSuffix(string(raw), "\n") {
		t.Fatal("descriptor not newline terminated")
	}

	loaded, err := LoadDescriptor(path)
	if err != nil {
		t.Fatalf("LoadDescriptor() error = %v", err)
	}
	if loaded.Metadata.Title != "T" || loaded.CoverImage != "cover.png" {
		t.Fatalf("loaded = %+v", loaded)
	}
	if len(loaded.Chapters) != 1 || loaded.Chapters[0].CSS != "a.css" {
		t.Fatalf("loaded chapters = %+v", loaded.Chapters)
	}
}

func TestLoadDescriptor_Errors(t *testing.T) {
	if _, err := LoadDescriptor(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("LoadDescriptor() error = nil, want read error")
	}

	path := filepath.Join(t.TempDir(), "description.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadDescriptor(path); err == nil {
		t.Fatal("LoadDescriptor() error = nil, want parse error")
	}
}
