package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder for uploaded frames
	"image/png"
	"io"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/qrforge/scan-readiness/pkg/decode"
	"github.com/qrforge/scan-readiness/pkg/readiness"
	"github.com/qrforge/scan-readiness/pkg/render"
	"github.com/qrforge/scan-readiness/pkg/sizing"
	"github.com/qrforge/scan-readiness/pkg/verify"
)

// AssessRequest is the body of POST /api/v1/readiness
type AssessRequest struct {
	Style      readiness.StyleConfig `json:"style"`
	Dimensions readiness.Dimensions  `json:"dimensions"`
}

// VerifyResponse is the body returned by POST /api/v1/verify
type VerifyResponse struct {
	Status     verify.ScanStatus `json:"status"`
	Matched    bool              `json:"matched"`
	Result     *decode.Result    `json:"result"`
	Centroid   *decode.Point     `json:"centroid,omitempty"`
	OverlayPNG string            `json:"overlay_png,omitempty"` // base64 overlay layer, transparent outside the drawing
}

// OpenSessionRequest is the body of POST /api/v1/session
type OpenSessionRequest struct {
	Expected string `json:"expected"`
}

// maxFramePixels bounds the area of an uploaded frame; the header is checked
// before any pixels are allocated
const maxFramePixels = 4096 * 4096

var errFrameTooLarge = errors.New("frame exceeds 4096x4096 pixels")

type errorResponse struct {
	Error string `json:"error"`
}

// handleAssess scores a style and print context
func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req AssessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBodyError(w, err)
		return
	}

	if req.Dimensions.DistanceFt < 0 || req.Dimensions.PrintWidthIn < 0 {
		writeError(w, http.StatusBadRequest, sizing.ErrNegativeInput.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.services.Assessor.Assess(req.Style, req.Dimensions))
}

// handleVerifyFrame decodes one uploaded frame and reports what the live
// view would show for it
func (s *Server) handleVerifyFrame(w http.ResponseWriter, r *http.Request) {
	img, err := decodeUpload(r.Body)
	if errors.Is(err, errFrameTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if err != nil {
		s.writeBodyError(w, err)
		return
	}

	query := r.URL.Query()
	expected := query.Get("expected")
	frame := decode.FrameFromImage(img)

	result := s.services.Detector.DecodeFrame(frame)
	step := verify.Transition(verify.StatusScanning, result, expected)

	resp := VerifyResponse{
		Status:  step.Next,
		Matched: step.Next == verify.StatusSuccess,
		Result:  result,
	}
	if result != nil {
		c := result.Centroid()
		resp.Centroid = &c
	}

	if overlay, _ := strconv.ParseBool(query.Get("overlay")); overlay {
		canvas := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
		s.painter.Paint(canvas, step.Overlay)

		var buf bytes.Buffer
		if err := png.Encode(&buf, canvas); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to encode overlay")
			return
		}
		resp.OverlayPNG = base64.StdEncoding.EncodeToString(buf.Bytes())
	}

	s.logger.WithFields(logrus.Fields{
		"status":   resp.Status,
		"detected": result != nil,
		"width":    frame.Width,
		"height":   frame.Height,
	}).Debug("Frame verified")

	writeJSON(w, http.StatusOK, resp)
}

// decodeUpload reads an uploaded frame, rejecting dimensions above
// maxFramePixels from the image header alone
func decodeUpload(body io.Reader) (image.Image, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid image: %dx%d frame", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxFramePixels {
		return nil, errFrameTooLarge
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid image: %w", err)
	}
	return img, nil
}

// handleRender exports a styled symbol as SVG, PNG or JPEG
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	formatName := query.Get("format")
	if formatName == "" {
		formatName = s.config.Render.DefaultFormat
	}
	format, err := render.ParseFormat(formatName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	size := s.config.Render.DefaultSize
	if raw := query.Get("size"); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil || size < 64 || size > 4096 {
			writeError(w, http.StatusBadRequest, "size must be an integer between 64 and 4096")
			return
		}
	}

	var style readiness.StyleConfig
	if err := json.NewDecoder(r.Body).Decode(&style); err != nil {
		s.writeBodyError(w, err)
		return
	}
	if style.Logo != "" {
		writeError(w, http.StatusBadRequest, "logo paths are not accepted over HTTP")
		return
	}

	var buf bytes.Buffer
	if err := s.services.Renderer.Export(&buf, style, format, size); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, render.FileName(query.Get("name"), format)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleOpenSession starts a live verification session
func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBodyError(w, err)
		return
	}

	err := s.services.Controller.Open(r.Context(), req.Expected)
	info, _ := s.services.Controller.Session()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, info)
		return
	}

	writeJSON(w, http.StatusCreated, info)
}

// handleGetSession returns the active session snapshot
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, ok := s.services.Controller.Session()
	if !ok {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleCloseSession tears the active session down
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	s.services.Controller.Close()
	w.WriteHeader(http.StatusNoContent)
}

// writeBodyError maps request body failures to 400 or 413
func (s *Server) writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	s.logger.WithError(err).Debug("Rejected request body")
	writeError(w, http.StatusBadRequest, err.Error())
}

func contentType(format render.Format) string {
	switch format {
	case render.FormatSVG:
		return "image/svg+xml"
	case render.FormatJPEG:
		return "image/jpeg"
	default:
		return "image/png"
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
