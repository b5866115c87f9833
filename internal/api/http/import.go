package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/testbankhq/testbank/internal/bank"
	"github.com/testbankhq/testbank/internal/qti"
	"github.com/testbankhq/testbank/internal/storage"
)

const maxUploadBytes = 64 << 20

// POST /qti/import?course=CODE (multipart: file=package.zip)
// The course must exist; packages inside the zip become Tests under it.
func ImportQTIHandler(gw bank.Gateway, bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(r.URL.Query().Get("course"))
		if code == "" {
			code = strings.TrimSpace(r.FormValue("course"))
		}
		if code == "" {
			http.Error(w, "course required", http.StatusBadRequest)
			return
		}
		course, created, err := gw.GetOrCreateCourse(r.Context(), code, bank.Course{Name: code})
		if err != nil {
			http.Error(w, "course lookup: "+err.Error(), http.StatusInternalServerError)
			return
		}

		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		im := &qti.Importer{Gateway: gw, Blobs: bs,
			TextbookOwned: r.URL.Query().Get("publisher") == "1" && course.TextbookID != ""}
		res, err := im.ImportArchive(r.Context(), data, course)
		if err != nil {
			http.Error(w, "import: "+err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"filename":       hdr.Filename,
			"course_id":      course.ID,
			"course_created": created,
			"result":         res,
		})
	}
}
