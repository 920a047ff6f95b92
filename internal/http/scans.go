package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hackutd/harp-sub001/internal/checkin"
	"github.com/hackutd/harp-sub001/internal/model"
)

func (s *Server) handleGetScanTypes(w http.ResponseWriter, r *http.Request) {
	scanTypes, err := s.checkin.ScanTypes(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scan_types": scanTypes})
}

type createScanRequest struct {
	UserID   string `json:"user_id" validate:"required,uuid"`
	ScanType string `json:"scan_type" validate:"required,max=50"`
}

func (s *Server) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	var req createScanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	req.ScanType = strings.TrimSpace(req.ScanType)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_scan")
		return
	}

	scan, err := s.checkin.Record(r.Context(), userFromContext(r.Context()).ID, req.UserID, req.ScanType)
	if err != nil {
		switch {
		case errors.Is(err, checkin.ErrUnknownScanType):
			writeError(w, http.StatusBadRequest, "invalid_scan_type")
		case errors.Is(err, checkin.ErrInactiveScanType):
			writeError(w, http.StatusBadRequest, "scan_type_inactive")
		case errors.Is(err, checkin.ErrNotCheckedIn):
			writeError(w, http.StatusForbidden, "not_checked_in")
		case errors.Is(err, checkin.ErrAlreadyScanned):
			writeError(w, http.StatusConflict, "already_scanned")
		case errors.Is(err, checkin.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "user_not_found")
		default:
			s.serverError(w, r, err)
		}
		return
	}
	if s.metrics != nil {
		s.metrics.Scans.WithLabelValues(scan.ScanType).Inc()
	}
	writeJSON(w, http.StatusCreated, scan)
}

func (s *Server) handleGetUserScans(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(r, "userID")
	if !ok {
		writeError(w, http.StatusNotFound, "user_not_found")
		return
	}
	scans, err := s.scans.GetByUserID(r.Context(), userID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": scans})
}

func (s *Server) handleScanStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.scans.GetStats(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

type scanTypesPayload struct {
	ScanTypes []model.ScanType `json:"scan_types" validate:"required,min=1,dive"`
}

func (s *Server) handleUpdateScanTypes(w http.ResponseWriter, r *http.Request) {
	var req scanTypesPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_scan_types")
		return
	}
	if err := checkin.ValidateScanTypes(req.ScanTypes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_scan_types")
		return
	}

	if err := s.settings.UpdateScanTypes(r.Context(), req.ScanTypes); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.signal.Trigger()
	writeJSON(w, http.StatusOK, req)
}
