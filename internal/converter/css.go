package converter

import (
	"log"
	"os"
	"path/filepath"

	"mark2epub/internal/epub"
)

// defaultStylesheet is substituted when a declared stylesheet has no source
// file, so a missing style.css never fails the build.
const defaultStylesheet = `@page { margin: 5%; }
html { font-size: 100%; }
body {
    margin: 0 auto;
    max-width: 45em;
    padding: 0.5em 1em;
    text-align: justify;
    font-family: serif;
    font-size: 1rem;
    line-height: 1.5;
    color: #222;
}
h1, h2, h3, h4, h5, h6 {
    text-align: left;
    color: #333;
    line-height: 1.2;
    margin: 1.5em 0 0.5em 0;
}
h1 { font-size: 1.5em; margin-top: 2em; }
h2 { font-size: 1.3em; }
h3 { font-size: 1.2em; }
p {
    margin: 0.75em 0;
    line-height: 1.6;
}
img {
    max-width: 100%;
    height: auto;
    display: block;
    margin: 1em auto;
}
.title {
    font-size: 1.8em;
    font-weight: bold;
    text-align: center;
    margin: 2em 0 1em 0;
}
.authors {
    font-size: 1.1em;
    text-align: center;
    font-style: italic;
    margin-bottom: 2em;
    color: #555;
}
`

// ResolveStyles reads the declared stylesheets from cssDir. A missing file
// gets the built-in default stylesheet; any other read failure skips the
// entry with a warning.
func ResolveStyles(cssDir string, filenames []string) []epub.Stylesheet {
	var styles []epub.Stylesheet
	for _, name := range filenames {
		data, err := os.ReadFile(filepath.Join(cssDir, name))
		if os.IsNotExist(err) {
			log.Printf("warning: stylesheet %s not found, using built-in default", name)
			styles = append(styles, epub.Stylesheet{Filename: name, Data: []byte(defaultStylesheet)})
			continue
		}
		if err != nil {
			log.Printf("warning: could not read stylesheet %s: %v, skipping", name, err)
			continue
		}
		styles = append(styles, epub.Stylesheet{Filename: name, Data: data})
	}
	return styles
}
