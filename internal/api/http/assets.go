package http

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/testbankhq/testbank/internal/storage"
)

// MountAssets serves extracted question images: GET /assets/* returns the
// blob at whatever key follows /assets/. Keys are minted during import and
// embedded in rewritten img src attributes.
func MountAssets(r chi.Router, bs storage.BlobStore) {
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		rc, err := bs.Get(key)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(filepath.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	})
}
