// Package templates holds the HTML pages of the web shell.
package templates

import (
	"embed"
	"html/template"
)

//go:embed *.html
var files embed.FS

// Load parses every page. Page names are the file names, e.g. "index.html".
func Load() (*template.Template, error) {
	return template.New("").ParseFS(files, "*.html")
}
