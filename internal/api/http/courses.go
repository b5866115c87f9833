package http

import (
	"encoding/json"
	"strings"

	nethttp "net/http"

	"github.com/testbankhq/testbank/internal/bank"
)

// Handlers only — routes remain in main.go

// POST /courses  get-or-create a course by code, optionally creating and
// linking a textbook in the same call.
func CreateCourseHandler(gw bank.Gateway) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req struct {
			Code     string `json:"code"`
			Name     string `json:"name"`
			CRN      string `json:"crn"`
			Semester string `json:"semester"`
			Textbook *struct {
				Title   string `json:"title"`
				Author  string `json:"author"`
				Version string `json:"version"`
				ISBN    string `json:"isbn"`
			} `json:"textbook"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Code) == "" {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}

		defaults := bank.Course{Name: req.Name, CRN: req.CRN, Semester: req.Semester}
		if req.Textbook != nil && strings.TrimSpace(req.Textbook.Title) != "" {
			tb, _, err := gw.GetOrCreateTextbook(r.Context(), bank.TextbookKey{
				Title:   req.Textbook.Title,
				Author:  req.Textbook.Author,
				Version: req.Textbook.Version,
				ISBN:    req.Textbook.ISBN,
			})
			if err != nil {
				nethttp.Error(w, "textbook: "+err.Error(), nethttp.StatusInternalServerError)
				return
			}
			defaults.TextbookID = tb.ID
		}

		course, created, err := gw.GetOrCreateCourse(r.Context(), strings.TrimSpace(req.Code), defaults)
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"course": course, "created": created})
	}
}
