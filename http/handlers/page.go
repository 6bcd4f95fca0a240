package handlers

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

//go:embed static
var staticFiles embed.FS

func staticRoot() fs.FS {
	root, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}

	return root
}

// Index serves the widget page.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)

		return
	}

	page, err := fs.ReadFile(staticRoot(), "index.html")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page) // nolint: errcheck
}

// Static serves page assets under /static/*filepath.
func Static() httprouter.Handle {
	fileServer := http.StripPrefix("/static", http.FileServer(http.FS(staticRoot())))

	return FromStdlib(fileServer)
}
