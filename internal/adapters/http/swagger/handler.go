// Package swagger serves the API reference.
package swagger

import (
	"context"
	"net/http"
)

// redocCDN is the ReDoc bundle loaded by the docs page.
const redocCDN = "https://cdn.redoc.ly/redoc/v2.1.5/bundles/redoc.standalone.js"

// Register mounts the reference page on /api-docs and the raw document on
// /openapi.yaml.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("swagger: nil mux")
	}
	mux.Handle("/api-docs", static("text/html; charset=utf-8", []byte(docsPage)))
	mux.Handle("/openapi.yaml", static("application/yaml; charset=utf-8", OpenAPI))
}

// static answers GET and HEAD with a fixed body.
func static(contentType string, body []byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=300")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(body)
	})
}

const docsPage = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Mobility Bingo API</title>
  <style>body { margin: 0; }</style>
</head>
<body>
  <div id="api-reference"></div>
  <script src="` + redocCDN + `"></script>
  <script>
    Redoc.init('/openapi.yaml', { hideDownloadButton: false }, document.getElementById('api-reference'));
  </script>
</body>
</html>`
