package web

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/rujoshi/zonetrack/internal/domain"
	"github.com/rujoshi/zonetrack/internal/service"
)

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniff spec (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

// readUpload parses the multipart "photo" field into a validated Upload.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (service.Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxPhotoBytes+1024)
	if err := r.ParseMultipartForm(s.maxPhotoBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to parse form"})
		return service.Upload{}, false
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "photo file required"})
		return service.Upload{}, false
	}
	defer closeWithLog(file, "upload file", s.logger)

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("read upload failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read file"})
		return service.Upload{}, false
	}

	if int64(len(data)) > s.maxPhotoBytes {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file size exceeds 10MB limit"})
		return service.Upload{}, false
	}

	mimeType, ok := allowedImageMIME(data)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file must be an image"})
		return service.Upload{}, false
	}

	return service.Upload{
		OriginalName: header.Filename,
		MimeType:     mimeType,
		Data:         data,
	}, true
}

func (s *Server) handleSubmitBeforePhoto(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}

	zoneID, err := parseZoneID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid zone id"})
		return
	}

	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	workType := domain.WorkType(r.FormValue("workType"))
	if workType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing required fields"})
		return
	}

	rec, err := s.service.SubmitBeforePhoto(r.Context(), p, zoneID, workType, up)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	photoUploadsTotal.WithLabelValues(string(domain.PhotoBefore)).Inc()

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Before photo uploaded successfully",
		"workId":  rec.ID,
		"photo":   rec.BeforePhotos[0],
	})
}

func (s *Server) handleSubmitAfterPhoto(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}

	workID := r.PathValue("workId")

	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	zoneID, err := parseFormZoneID(r)
	if err != nil {
		// The record resolves its own zone when the client omits it.
		zoneID, err = s.service.ResolveZoneForWork(r.Context(), workID)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
	}

	rec, err := s.service.SubmitAfterPhoto(r.Context(), p, zoneID, workID, up)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	photoUploadsTotal.WithLabelValues(string(domain.PhotoAfter)).Inc()

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "After photo uploaded successfully",
		"workId":  rec.ID,
		"photo":   rec.AfterPhotos[len(rec.AfterPhotos)-1],
	})
}

func (s *Server) handleDeleteAfterPhoto(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}

	workID := r.PathValue("workId")
	photoID := r.PathValue("photoId")

	zoneID, err := s.service.ResolveZoneForWork(r.Context(), workID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if err := s.service.DeleteAfterPhoto(r.Context(), p, zoneID, workID, photoID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "After photo deleted; work status reset to inprogress",
	})
}

func parseFormZoneID(r *http.Request) (int, error) {
	var zoneID int
	if _, err := fmt.Sscanf(r.FormValue("zoneId"), "%d", &zoneID); err != nil || zoneID <= 0 {
		return 0, domain.ErrValidation
	}
	return zoneID, nil
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
