// Package views holds the console's HTML templates and the small script that
// reports tab visibility back to the server.
package views

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html
var templates embed.FS

//go:embed static
var static embed.FS

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"plus1": func(i int) int { return i + 1 },
	}).ParseFS(templates, "templates/*.html"))
}

// Static serves the console's script and stylesheet.
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
