package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"triptally/internal/core"
	"triptally/internal/ingest"
	"triptally/internal/report"
	"triptally/internal/services"
	"triptally/internal/store"
)

// View models for server-side rendering.
type (
	rowView struct {
		Label string
		Cells [24]int
		Total int
	}

	pivotView struct {
		Title      string
		Peak       string
		HourLabels []string
		Rows       []rowView
		Grand      rowView
	}

	summaryView struct {
		HasData bool
		Error   string
		Pickup  pivotView
		Sending pivotView
	}

	indexView struct {
		Files   []string
		Summary summaryView
	}
)

func newPivotView(p core.Pivot) pivotView {
	v := pivotView{
		Title:      string(p.Service),
		Peak:       p.PeakHour(),
		HourLabels: core.HourLabels[:],
		Grand:      rowView{Label: p.Grand.YearMonth, Cells: p.Grand.Hours, Total: p.Grand.Total},
	}
	for _, row := range p.Rows {
		v.Rows = append(v.Rows, rowView{Label: row.YearMonth, Cells: row.Hours, Total: row.Total})
	}
	return v
}

// buildSummaryView computes the cumulative tables for rendering. A missing
// required column becomes a user-visible error instead of tables.
func (s *Server) buildSummaryView(r *http.Request) summaryView {
	view := summaryView{}
	summary, err := s.getSummary(r.Context())
	if err != nil {
		var missing *ingest.MissingColumnsError
		if errors.As(err, &missing) {
			view.Error = missing.Error()
		} else {
			s.logger.ErrorContext(r.Context(), "Summary error", "error", err)
			view.Error = "failed to read stored files"
		}
		return view
	}
	view.HasData = summary.HasData
	view.Pickup = newPivotView(summary.Pickup)
	view.Sending = newPivotView(summary.Sending)
	return view
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	files, err := s.store.List(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "List stored files error", "error", err)
		http.Error(w, "failed to list stored files", http.StatusInternalServerError)
		return
	}

	data := indexView{
		Files:   files,
		Summary: s.buildSummaryView(r),
	}
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleSummaryPartial renders the pivot tables partial on its own, so the
// page can refresh the aggregation without a full reload.
func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := s.buildSummaryView(r)
	if err := s.templates.ExecuteTemplate(w, "summary.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Summary template execution failed", "error", err, "template", "summary.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		s.logger.ErrorContext(r.Context(), "Parse multipart form error", "error", err)
		http.Error(w, "invalid upload request", http.StatusBadRequest)
		return
	}
	uploads := r.MultipartForm.File["files"]
	if len(uploads) == 0 {
		http.Error(w, "no files in upload", http.StatusUnprocessableEntity)
		return
	}

	for _, fh := range uploads {
		name := filepath.Base(fh.Filename)
		if !strings.EqualFold(filepath.Ext(name), store.Extension) {
			http.Error(w, fmt.Sprintf("%s: only %s files are accepted", name, store.Extension), http.StatusUnprocessableEntity)
			return
		}
		src, err := fh.Open()
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Open uploaded file error", "error", err, "file", name)
			http.Error(w, "failed to read uploaded file", http.StatusInternalServerError)
			return
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Read uploaded file error", "error", err, "file", name)
			http.Error(w, "failed to read uploaded file", http.StatusInternalServerError)
			return
		}
		if err := s.store.Write(r.Context(), name, data); err != nil {
			if errors.Is(err, store.ErrInvalidName) {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			s.logger.ErrorContext(r.Context(), "Store write error", "error", err, "file", name)
			http.Error(w, "failed to store uploaded file", http.StatusInternalServerError)
			return
		}
		s.logger.InfoContext(r.Context(), "Stored uploaded file", "file", name, "bytes", len(data))
	}

	// Stored set changed: recompute on next read.
	s.invalidateSummary()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(r.Form.Get("name"))
	if name == "" {
		http.Error(w, "missing file name", http.StatusUnprocessableEntity)
		return
	}

	if err := s.store.Delete(r.Context(), name); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			http.Error(w, "file not found", http.StatusNotFound)
		case errors.Is(err, store.ErrInvalidName):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			s.logger.ErrorContext(r.Context(), "Store delete error", "error", err, "file", name)
			http.Error(w, "failed to delete file", http.StatusInternalServerError)
		}
		return
	}
	s.logger.InfoContext(r.Context(), "Deleted stored file", "file", name)

	s.invalidateSummary()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleFileDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/files/")
	if name == "" {
		http.NotFound(w, r)
		return
	}

	data, err := s.store.Read(r.Context(), name)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			http.NotFound(w, r)
		case errors.Is(err, store.ErrInvalidName):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			s.logger.ErrorContext(r.Context(), "Store read error", "error", err, "file", name)
			http.Error(w, "failed to read file", http.StatusInternalServerError)
		}
		return
	}
	serveWorkbook(w, name, data)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	artifact, name, err := s.svc.Workbook(r.Context())
	if err != nil {
		var missing *ingest.MissingColumnsError
		switch {
		case errors.Is(err, services.ErrNoData):
			http.Error(w, "no stored files to report on", http.StatusConflict)
		case errors.As(err, &missing):
			http.Error(w, missing.Error(), http.StatusUnprocessableEntity)
		default:
			s.logger.ErrorContext(r.Context(), "Report build error", "error", err)
			http.Error(w, "failed to build report", http.StatusInternalServerError)
		}
		return
	}
	s.logger.InfoContext(r.Context(), "Report generated", "bytes", len(artifact))
	serveWorkbook(w, name, artifact)
}

func serveWorkbook(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
