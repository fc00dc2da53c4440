package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	apierrors "volexplorer/internal/errors"
	"volexplorer/internal/exporter"
	"volexplorer/internal/middleware"
)

func renderData(w http.ResponseWriter, r *http.Request, data interface{}) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   data,
	})
}

func renderList(w http.ResponseWriter, r *http.Request, data interface{}, count int) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   data,
		"count":  count,
	})
}

// exportFormat reads the format query parameter
func exportFormat(r *http.Request) (exporter.Format, error) {
	raw, err := middleware.QueryEnum(r, "format", []string{"csv", "xlsx"}, "csv")
	if err != nil {
		return "", err
	}
	f, err := exporter.ParseFormat(raw)
	if err != nil {
		return "", apierrors.ErrValidation("format", err.Error())
	}
	return f, nil
}

// writeExport renders t into a buffer first so a failure can still become a problem response
func writeExport(w http.ResponseWriter, format exporter.Format, basename string, t exporter.Table) error {
	var buf bytes.Buffer
	if err := exporter.Write(&buf, format, t); err != nil {
		return fmt.Errorf("export %s: %w", basename, err)
	}

	h := w.Header()
	h.Set("Content-Type", format.ContentType())
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(basename)))
	h.Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	// the status is committed; a failed write means the client went away
	_, _ = buf.WriteTo(w)
	return nil
}
