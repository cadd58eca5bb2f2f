package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/menta2k/face-cropper/pkg/catalog"
	"github.com/menta2k/face-cropper/pkg/errors"
)

type cropRequest struct {
	ImageURL string `json:"imageUrl"`
	ID       int    `json:"id"`
}

type cropResponse struct {
	ImageURL string `json:"imageUrl"`
}

type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// handleHealth returns the server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePresets lists the preset catalog
func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Presets []catalog.Entry `json:"presets"`
	}{s.cropper.Catalog().All()})
}

// handleCrop crops the image at imageUrl for preset id
func (s *Server) handleCrop(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)

	var req cropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body"))
		return
	}

	req.ImageURL = strings.TrimSpace(req.ImageURL)
	if req.ImageURL == "" {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "imageUrl is required"))
		return
	}
	// never let a remote caller read local files
	if !strings.HasPrefix(req.ImageURL, "http://") && !strings.HasPrefix(req.ImageURL, "https://") {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "imageUrl must be an http or https URL"))
		return
	}

	out, err := s.cropper.Crop(r.Context(), req.ImageURL, req.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cropResponse{ImageURL: out.URL})
}

// StatusFor maps an error code to an HTTP status
func StatusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeNoFacesDetected,
		errors.ErrCodeInvalidFaceBox,
		errors.ErrCodeAspectRatioMismatch,
		errors.ErrCodeEmptyFaceSet,
		errors.ErrCodeInvalidDimension:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeImageFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := StatusFor(code)

	if status >= http.StatusInternalServerError {
		s.logger.Error("crop failed", "code", code, "err", err)
	} else {
		s.logger.Warn("crop rejected", "code", code, "err", err)
	}

	writeJSON(w, status, errorResponse{Message: errors.UserMessage(err), Code: string(code)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
