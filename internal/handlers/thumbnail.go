package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"thumbnailer/internal/backend"
	"thumbnailer/internal/logging"
	"thumbnailer/internal/media"
	"thumbnailer/internal/middleware"
	"thumbnailer/internal/thumbnail"

	"github.com/gorilla/mux"
)

// GetThumbnail serves a thumbnail of the image at {path}.
//
// Query parameters: mode (fit, fill, percent, crop, center), width,
// height, percent, x, y, rotate (degrees, cw or ccw), flip, flop, format.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	filePath := mux.Vars(r)["path"]
	logging.Debug("Thumbnail requested: %s?%s", filePath, r.URL.RawQuery)

	req, err := parseThumbnailRequest(filePath, r.URL.Query())
	if err != nil {
		logging.Debug("Thumbnail: bad request for %s: %v", filePath, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.thumbGen.GetThumbnail(r.Context(), req)
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			logging.Error("Thumbnail: generation failed for %s: %v", filePath, err)
		} else {
			logging.Debug("Thumbnail: %s: %v", filePath, err)
		}
		http.Error(w, messageForStatus(status, err), status)
		return
	}

	cacheStatus := "MISS"
	if result.Cached {
		cacheStatus = "HIT"
	}

	w.Header().Set("Content-Type", result.Format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Last-Modified", result.SourceModTime.UTC().Format(http.TimeFormat))
	w.Header().Set(middleware.CacheStatusHeader, cacheStatus)
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(result.Data); err != nil {
		logging.Debug("Thumbnail: write failed for %s: %v", filePath, err)
	}
}

// GetInfo reports the dimensions and format of the image at {path}.
func (h *Handlers) GetInfo(w http.ResponseWriter, r *http.Request) {
	filePath := mux.Vars(r)["path"]

	info, err := h.thumbGen.GetInfo(r.Context(), filePath)
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			logging.Error("Info: failed for %s: %v", filePath, err)
		}
		writeJSONError(w, messageForStatus(status, err), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, info)
}

func parseThumbnailRequest(path string, q url.Values) (media.Request, error) {
	req := media.Request{Path: path}

	mode, err := media.ParseMode(q.Get("mode"))
	if err != nil {
		return req, err
	}
	req.Mode = mode

	ints := []struct {
		name string
		dst  *int
	}{
		{"width", &req.Width},
		{"height", &req.Height},
		{"percent", &req.Percent},
		{"x", &req.X},
		{"y", &req.Y},
	}
	for _, p := range ints {
		value := q.Get(p.name)
		if value == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return req, fmt.Errorf("invalid %s %q", p.name, value)
		}
		*p.dst = n
	}

	if req.Rotate, err = parseRotation(q.Get("rotate")); err != nil {
		return req, err
	}

	for name, dst := range map[string]*bool{"flip": &req.Flip, "flop": &req.Flop} {
		value := q.Get(name)
		if value == "" {
			continue
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return req, fmt.Errorf("invalid %s %q", name, value)
		}
		*dst = b
	}

	if value := q.Get("format"); value != "" {
		format, err := backend.ParseFormat(value)
		if err != nil {
			return req, err
		}
		req.Format = format
	}

	return req, nil
}

// parseRotation accepts degrees or the quarter turn names cw and ccw.
func parseRotation(value string) (float64, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "":
		return 0, nil
	case thumbnail.Clockwise:
		return 90, nil
	case thumbnail.CounterClockwise:
		return -90, nil
	}
	degrees, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rotate %q", value)
	}
	return degrees, nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, media.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, media.ErrInvalidPath),
		errors.Is(err, media.ErrInvalidRequest),
		errors.Is(err, thumbnail.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, media.ErrUnsupported), errors.Is(err, backend.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// messageForStatus hides internal error detail from clients.
func messageForStatus(status int, err error) string {
	if status >= http.StatusInternalServerError {
		return http.StatusText(status)
	}
	return err.Error()
}
