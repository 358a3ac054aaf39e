package api

import (
	"embed"
	"io/fs"
)

// The operator dashboard page lives in static/dashboard.html.
//
//go:embed static/dashboard.html
var dashboardFiles embed.FS

// dashboardFS is dashboardFiles with the static/ prefix stripped, so the
// page is opened as "dashboard.html".
var dashboardFS = mustSub(dashboardFiles, "static")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic("api: embedded " + dir + ": " + err.Error())
	}
	return sub
}
