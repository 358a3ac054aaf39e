package site

import (
	"embed"
	"io/fs"
	"net/http"
)

// ui holds the board page, its script and stylesheet.
//
//go:embed static/index.html static/app.js static/style.css
var ui embed.FS

// FS returns the bingo UI as an http.FileSystem with index.html at its root.
func FS() http.FileSystem {
	sub, err := fs.Sub(ui, "static")
	if err != nil {
		panic("site: embedded ui: " + err.Error())
	}
	return http.FS(sub)
}
