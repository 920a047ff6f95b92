package http

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hackutd/harp-sub001/internal/applications"
	"github.com/hackutd/harp-sub001/internal/model"
	"github.com/hackutd/harp-sub001/internal/render"
	"github.com/hackutd/harp-sub001/internal/store"
)

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var filters store.ApplicationListFilters
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status := model.ApplicationStatus(raw)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_status")
			return
		}
		filters.Status = &status
	}

	var cursor *store.ApplicationCursor
	if raw := query.Get("cursor"); raw != "" {
		decoded, err := store.DecodeCursor(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_cursor")
			return
		}
		cursor = decoded
	}

	direction := store.DirectionForward
	switch query.Get("direction") {
	case "", string(store.DirectionForward):
	case string(store.DirectionBackward):
		direction = store.DirectionBackward
	default:
		writeError(w, http.StatusBadRequest, "invalid_direction")
		return
	}

	limit := store.DefaultPageLimit
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		limit = parsed
	}

	result, err := s.queries.List(r.Context(), filters, cursor, direction, limit)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleApplicationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.queries.GetStats(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type applicationDetail struct {
	Application *model.Application `json:"application"`
	Sections    []render.Section   `json:"sections"`
	Notes       []store.ReviewNote `json:"notes"`
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	app, sections, ok := s.loadDetail(w, r)
	if !ok {
		return
	}
	notes, err := s.reviews.GetNotesByApplicationID(r.Context(), app.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if notes == nil {
		notes = []store.ReviewNote{}
	}
	writeJSON(w, http.StatusOK, applicationDetail{Application: app, Sections: sections, Notes: notes})
}

func (s *Server) handleApplicationDetailHTML(w http.ResponseWriter, r *http.Request) {
	_, sections, ok := s.loadDetail(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render.HTML(&buf, sections...); err != nil {
		s.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) loadDetail(w http.ResponseWriter, r *http.Request) (*model.Application, []render.Section, bool) {
	id, ok := uuidParam(r, "applicationID")
	if !ok {
		writeError(w, http.StatusNotFound, "application_not_found")
		return nil, nil, false
	}
	app, err := s.apps.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, applications.ErrNotFound) {
			writeError(w, http.StatusNotFound, "application_not_found")
		} else {
			s.serverError(w, r, err)
		}
		return nil, nil, false
	}
	questions, err := s.apps.Questions(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return nil, nil, false
	}
	return app, render.Detail(*app, questions), true
}

type setStatusRequest struct {
	Status model.ApplicationStatus `json:"status" validate:"required,oneof=accepted rejected waitlisted"`
}

func (s *Server) handleSetApplicationStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(r, "applicationID")
	if !ok {
		writeError(w, http.StatusNotFound, "application_not_found")
		return
	}
	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}

	app, err := s.apps.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, applications.ErrNotFound):
			writeError(w, http.StatusNotFound, "application_not_found")
		case errors.Is(err, applications.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, "invalid_status")
		case errors.Is(err, applications.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "invalid_status_transition")
		default:
			s.serverError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handlePendingReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.reviews.GetPendingByAdminID(r.Context(), userFromContext(r.Context()).ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeReviews(w, reviews)
}

func (s *Server) handleCompletedReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.reviews.GetCompletedByAdminID(r.Context(), userFromContext(r.Context()).ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeReviews(w, reviews)
}

func writeReviews(w http.ResponseWriter, reviews []model.ReviewWithApplicant) {
	if reviews == nil {
		reviews = []model.ReviewWithApplicant{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

func (s *Server) handleAssignNextReview(w http.ResponseWriter, r *http.Request) {
	perApp, err := s.settings.GetReviewsPerApplication(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	review, err := s.reviews.AssignNextForAdmin(r.Context(), userFromContext(r.Context()).ID, perApp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no_applications_to_review")
			return
		}
		s.serverError(w, r, err)
		return
	}
	s.signal.Trigger()
	writeJSON(w, http.StatusCreated, review)
}

type submitVoteRequest struct {
	Vote  model.ReviewVote `json:"vote" validate:"required,oneof=accept reject waitlist"`
	Notes *string          `json:"notes" validate:"omitempty,max=5000"`
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := uuidParam(r, "reviewID")
	if !ok {
		writeError(w, http.StatusNotFound, "review_not_found")
		return
	}
	var req submitVoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_vote")
		return
	}

	admin := userFromContext(r.Context())
	review, err := s.reviews.SubmitVote(r.Context(), reviewID, admin.ID, req.Vote, req.Notes)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "review_not_found")
			return
		}
		s.serverError(w, r, err)
		return
	}
	key := s.signal.Trigger()
	s.log.WithFields(logrus.Fields{"review_id": review.ID, "admin_id": admin.ID, "refresh_key": key}).Info("review vote recorded")
	writeJSON(w, http.StatusOK, review)
}
