package panel

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

// indexFile is the application shell served for every unknown path.
const indexFile = "index.html"

//go:embed web/*
var content embed.FS

// Handler serves the dashboard shell and its assets.
//
// When dir names an existing directory the files are read from disk, so
// the page can be edited without a rebuild; otherwise the embedded copy is
// used. Any path that is not an existing file gets index.html with 200 so
// client-side routes resolve.
func Handler(dir string) http.Handler {
	assets := assetFS(dir)
	files := http.FileServerFS(assets)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")

		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" || !isFile(assets, name) {
			http.ServeFileFS(w, r, assets, indexFile)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// assetFS picks the on-disk directory when usable, else the embedded files.
// Panics if the embedded files are missing, which is a build error.
func assetFS(dir string) fs.FS {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir)
		}
	}

	web, err := fs.Sub(content, "web")
	if err != nil {
		panic(fmt.Sprintf("panel: failed to load embedded web assets: %v", err))
	}
	return web
}

func isFile(fsys fs.FS, name string) bool {
	if !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	return err == nil && !info.IsDir()
}
