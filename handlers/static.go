package handlers

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

// StaticHandler serves the web UI from a directory on disk.
type StaticHandler struct {
	fs afero.Fs
}

// NewStaticHandler serves files below dir. Paths can not escape dir.
func NewStaticHandler(fs afero.Fs, dir string) *StaticHandler {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &StaticHandler{fs: afero.NewBasePathFs(fs, dir)}
}

// ServeHTTP serves static files; "/" maps to index.html.
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if strings.HasSuffix(name, "/") {
		name += "index.html"
	}

	f, err := h.fs.Open(filepath.FromSlash(name))
	if err != nil {
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "failed to open file", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	ctype := mime.TypeByExtension(path.Ext(name))
	if ctype == "" {
		detected, err := mimetype.DetectReader(f)
		if err != nil {
			http.Error(w, "failed to read file", http.StatusInternalServerError)
			return
		}
		ctype = detected.String()
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			http.Error(w, "failed to read file", http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", ctype)

	if strings.HasSuffix(name, ".html") {
		w.Header().Set("Cache-Control", "no-cache")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=3600")
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
