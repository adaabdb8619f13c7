package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rook-computer/kinetype/internal/export"
	"github.com/rook-computer/kinetype/internal/settings"
)

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type themeResponse struct {
	settings.Preset
	Active bool `json:"active"`
}

type statsResponse struct {
	FPS       float64 `json:"fps"`
	Frames    uint64  `json:"frames"`
	Time      float64 `json:"time"`
	Exporting bool    `json:"exporting"`
}

// settingsPatch lists the fields PATCH /settings may change. Theme changes
// go through POST /theme/{id} so presets are applied consistently.
type settingsPatch struct {
	Text              *string        `json:"text"`
	NumLines          *int           `json:"numLines"`
	MinWeight         *float64       `json:"minWeight"`
	MaxWeight         *float64       `json:"maxWeight"`
	WidthValue        *float64       `json:"widthValue"`
	CanvasSize        *float64       `json:"canvasSize"`
	Margin            *float64       `json:"margin"`
	LineSpacingFactor *float64       `json:"lineSpacingFactor"`
	VerticalOffset    *float64       `json:"verticalOffset"`
	AnimationSpeed    *float64       `json:"animationSpeed"`
	Mode              *settings.Mode `json:"mode"`
	ColorMode         *string        `json:"colorMode"`
}

func (p settingsPatch) apply(s *settings.Settings) {
	if p.Text != nil {
		s.Text = *p.Text
	}
	setInt(&s.NumLines, p.NumLines)
	setFloat(&s.MinWeight, p.MinWeight)
	setFloat(&s.MaxWeight, p.MaxWeight)
	setFloat(&s.WidthValue, p.WidthValue)
	setFloat(&s.CanvasSize, p.CanvasSize)
	setFloat(&s.Margin, p.Margin)
	setFloat(&s.LineSpacingFactor, p.LineSpacingFactor)
	setFloat(&s.VerticalOffset, p.VerticalOffset)
	setFloat(&s.AnimationSpeed, p.AnimationSpeed)
	if p.Mode != nil {
		s.Mode = *p.Mode
	}
	if p.ColorMode != nil {
		s.ColorMode = *p.ColorMode
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

const maxSettingsBody = 64 << 10

func apiV1Router(deps APIV1Deps) http.Handler {
	deps = deps.withDefaults()
	mux := http.NewServeMux()
	mux.HandleFunc("/settings", func(w http.ResponseWriter, r *http.Request) { handleSettings(w, r, deps) })
	mux.HandleFunc("/themes", func(w http.ResponseWriter, r *http.Request) { handleThemes(w, r, deps) })
	mux.HandleFunc("/theme/", func(w http.ResponseWriter, r *http.Request) { handleTheme(w, r, deps) })
	mux.HandleFunc("/frame.png", func(w http.ResponseWriter, r *http.Request) { handleFrame(w, r, deps) })
	mux.HandleFunc("/export/still", func(w http.ResponseWriter, r *http.Request) { handleExportStill(w, r, deps) })
	mux.HandleFunc("/export/video", func(w http.ResponseWriter, r *http.Request) { handleExportVideo(w, r, deps) })
	mux.HandleFunc("/export/video/file", func(w http.ResponseWriter, r *http.Request) { handleExportVideoFile(w, r, deps) })
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) { handleStats(w, r, deps) })
	mux.HandleFunc("/qr.png", handleQRCode)
	return mux
}

func handleSettings(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if deps.Settings == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "settings not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, deps.Settings.Snapshot())
	case http.MethodPatch:
		var patch settingsPatch
		dec := json.NewDecoder(io.LimitReader(r.Body, maxSettingsBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&patch); err != nil {
			writeAPIError(w, http.StatusBadRequest, "invalid_body", err.Error())
			return
		}
		s := deps.Settings.Update(patch.apply)
		deps.Logger.Infof("api", "settings updated: theme=%s lines=%d", s.Theme, s.NumLines)
		writeJSON(w, http.StatusOK, s)
	default:
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func handleThemes(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	active := ""
	if deps.Settings != nil {
		active = deps.Settings.Snapshot().Theme
	}
	presets := settings.Presets()
	out := make([]themeResponse, 0, len(presets))
	for _, p := range presets {
		out = append(out, themeResponse{Preset: p, Active: p.ID == active})
	}
	writeJSON(w, http.StatusOK, out)
}

func handleTheme(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if deps.Settings == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "settings not configured")
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/theme/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeAPIError(w, http.StatusNotFound, "not_found", "not found")
		return
	}
	s, err := deps.Settings.ApplyTheme(id)
	if errors.Is(err, settings.ErrUnknownTheme) {
		writeAPIError(w, http.StatusNotFound, "unknown_theme", err.Error())
		return
	}
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "theme_failed", err.Error())
		return
	}
	deps.Logger.Infof("api", "theme %s applied", id)
	writeJSON(w, http.StatusOK, s)
}

func handleFrame(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if deps.Frames == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "animation not running")
		return
	}
	frame, err := deps.Frames.Frame()
	if err != nil {
		writeAPIError(w, http.StatusServiceUnavailable, "no_frame", err.Error())
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func handleExportStill(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if deps.Exporter == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "export not configured")
		return
	}
	res, err := queryFloat(r, "resolution", 1)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_resolution", err.Error())
		return
	}
	result, err := deps.Exporter.Still(r.Context(), res)
	if err != nil {
		writeExportError(w, err)
		return
	}
	deps.Logger.Infof("api", "still export %s (%d bytes)", result.Filename, len(result.Data))
	writeDownload(w, result)
}

func handleExportVideo(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if deps.Exporter == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "export not configured")
		return
	}
	switch r.Method {
	case http.MethodPost:
		seconds, err := queryFloat(r, "duration", 5)
		if err != nil || seconds <= 0 {
			writeAPIError(w, http.StatusBadRequest, "invalid_duration", "duration must be a positive number of seconds")
			return
		}
		duration := time.Duration(seconds * float64(time.Second))
		if duration > deps.MaxVideoDuration {
			writeAPIError(w, http.StatusBadRequest, "invalid_duration", "duration exceeds "+deps.MaxVideoDuration.String())
			return
		}
		res, err := queryFloat(r, "resolution", 1)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, "invalid_resolution", err.Error())
			return
		}
		// The capture outlives the request.
		c, err := deps.Exporter.Timed(context.Background(), duration, res)
		if err != nil {
			writeExportError(w, err)
			return
		}
		deps.Logger.Infof("api", "video export started: %s for %s", c.Codec.Name, duration)
		writeJSON(w, http.StatusAccepted, c.Status())
	case http.MethodGet:
		c := deps.Exporter.Current()
		if c == nil {
			writeAPIError(w, http.StatusNotFound, "no_capture", "no video export has been started")
			return
		}
		writeJSON(w, http.StatusOK, c.Status())
	case http.MethodDelete:
		c := deps.Exporter.Current()
		if c == nil || c.Status().State != export.StateRecording {
			writeAPIError(w, http.StatusConflict, "not_recording", "no video export is running")
			return
		}
		c.Cancel()
		_, _ = c.Wait()
		writeJSON(w, http.StatusOK, c.Status())
	default:
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func handleExportVideoFile(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if deps.Exporter == nil {
		writeAPIError(w, http.StatusNotImplemented, "not_implemented", "export not configured")
		return
	}
	c := deps.Exporter.Current()
	if c == nil {
		writeAPIError(w, http.StatusNotFound, "no_capture", "no video export has been started")
		return
	}
	switch st := c.Status(); st.State {
	case export.StateRecording:
		writeAPIError(w, http.StatusConflict, "capture_running", "video export is still running")
		return
	case export.StateDone:
	default:
		writeAPIError(w, http.StatusGone, "no_result", "video export "+string(st.State)+": "+st.Error)
		return
	}
	result, err := c.Wait()
	if err != nil {
		writeExportError(w, err)
		return
	}
	writeDownload(w, result)
}

func handleStats(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	var resp statsResponse
	if deps.Frames != nil {
		st := deps.Frames.Stats()
		resp.FPS, resp.Frames, resp.Time = st.FPS, st.Frames, st.Time
	}
	if deps.Exporter != nil {
		resp.Exporting = deps.Exporter.Busy()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleQRCode renders a QR code for ?url=, defaulting to this server's preview page.
func handleQRCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	payload := r.URL.Query().Get("url")
	if payload == "" {
		payload = "http://" + r.Host + "/"
	}
	size, err := queryFloat(r, "size", defaultQRCodeSizePx)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_size", err.Error())
		return
	}
	img, err := GenerateQRCodeImage(payload, int(size))
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "qr_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_ = png.Encode(w, img)
}

func queryFloat(r *http.Request, key string, def float64) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New(key + " must be a number")
	}
	return v, nil
}

func writeExportError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, export.ErrExportInFlight):
		writeAPIError(w, http.StatusConflict, "export_in_flight", err.Error())
	case errors.Is(err, export.ErrNotAnimated):
		writeAPIError(w, http.StatusConflict, "not_animated", err.Error())
	case errors.Is(err, export.ErrCancelled):
		writeAPIError(w, http.StatusGone, "cancelled", err.Error())
	default:
		writeAPIError(w, http.StatusInternalServerError, "export_failed", err.Error())
	}
}

func writeDownload(w http.ResponseWriter, result export.Result) {
	setDownloadHeaders(w, result.Filename, result.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func setDownloadHeaders(w http.ResponseWriter, filename, contentType string) {
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	cd := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	w.Header().Set("Content-Disposition", cd)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Message: message})
}
