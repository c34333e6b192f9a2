package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rujoshi/zonetrack/internal/domain"
)

func (s *Server) handleGetZone(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.principal(w, r); !ok {
		return
	}

	zoneID, err := parseZoneID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid zone id"})
		return
	}

	zone, err := s.service.GetZone(r.Context(), zoneID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, zone)
}

func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}

	tab := domain.ParseTab(r.URL.Query().Get("status"))
	summaries, err := s.service.ListZones(r.Context(), p, tab)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleListArchive(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}

	zoneID, err := parseZoneID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid zone id"})
		return
	}

	entries, err := s.service.ListArchive(r.Context(), p, zoneID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.ArchiveEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" || strings.Contains(key, "/") || strings.Contains(key, "..") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid photo key"})
		return
	}

	reader, mimeType, err := s.photoStore.Get(r.Context(), key)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	defer closeWithLog(reader, "photo reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write photo failed", "key", key, "error", err)
	}
}

type approveRequest struct {
	WorkID   string `json:"workId"`
	Approved *bool  `json:"approved"`
	Comment  string `json:"comment"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	p, ok := s.principal(w, r)
	if !ok {
		return
	}

	zoneID, err := parseZoneID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid zone id"})
		return
	}

	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.WorkID == "" || req.Approved == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "workId and approved are required"})
		return
	}

	rec, err := s.service.Approve(r.Context(), p, zoneID, req.WorkID, *req.Approved, req.Comment)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	outcome := "rejected"
	message := "Work rejected successfully"
	if *req.Approved {
		outcome = "approved"
		message = "Work approved successfully"
	}
	approvalsTotal.WithLabelValues(outcome).Inc()

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"status":  rec.Status,
	})
}
