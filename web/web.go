// Package web embeds the HTML views and static assets.
package web

import (
	"embed"
	"io/fs"
	"net/http"

	html "github.com/gofiber/template/html/v2"
)

//go:embed templates/*.html
var templates embed.FS

//go:embed static
var static embed.FS

// Engine returns the view engine over the embedded templates.
func Engine() *html.Engine {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		panic(err)
	}
	return html.NewFileSystem(http.FS(sub), ".html")
}

// Static is the file system served under /static.
func Static() http.FileSystem {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
