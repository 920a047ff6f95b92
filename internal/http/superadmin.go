package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackutd/harp-sub001/internal/mailer"
	"github.com/hackutd/harp-sub001/internal/model"
	"github.com/hackutd/harp-sub001/internal/settings"
)

type questionsPayload struct {
	Questions []model.ShortAnswerQuestion `json:"questions" validate:"dive"`
}

func (s *Server) handleGetQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := s.settings.GetShortAnswerQuestions(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, questionsPayload{Questions: questions})
}

func (s *Server) handleUpdateQuestions(w http.ResponseWriter, r *http.Request) {
	var req questionsPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_questions")
		return
	}
	seen := make(map[string]struct{}, len(req.Questions))
	for _, q := range req.Questions {
		if _, dup := seen[q.ID]; dup {
			writeError(w, http.StatusBadRequest, "duplicate_question_id")
			return
		}
		seen[q.ID] = struct{}{}
	}

	if err := s.settings.UpdateShortAnswerQuestions(r.Context(), req.Questions); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.signal.Trigger()
	if req.Questions == nil {
		req.Questions = []model.ShortAnswerQuestion{}
	}
	writeJSON(w, http.StatusOK, req)
}

type reviewsPerAppPayload struct {
	ReviewsPerApplication int `json:"reviews_per_application" validate:"min=1,max=10"`
}

func (s *Server) handleGetReviewsPerApp(w http.ResponseWriter, r *http.Request) {
	value, err := s.settings.GetReviewsPerApplication(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewsPerAppPayload{ReviewsPerApplication: value})
}

func (s *Server) handleSetReviewsPerApp(w http.ResponseWriter, r *http.Request) {
	var req reviewsPerAppPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_reviews_per_application")
		return
	}
	if err := s.settings.SetReviewsPerApplication(r.Context(), req.ReviewsPerApplication); err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleGetTabs(w http.ResponseWriter, r *http.Request) {
	tabs, err := s.panels.Tabs(r.Context(), userFromContext(r.Context()).ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tabs": tabs})
}

type setToggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (s *Server) handleSetToggle(w http.ResponseWriter, r *http.Request) {
	var req setToggleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "enabled_required")
		return
	}

	toggle, err := s.panels.SetToggle(r.Context(), userFromContext(r.Context()).ID, chi.URLParam(r, "tab"), chi.URLParam(r, "toggle"), *req.Enabled)
	if err != nil {
		switch {
		case errors.Is(err, settings.ErrUnknownTab), errors.Is(err, settings.ErrUnknownToggle):
			writeError(w, http.StatusNotFound, "unknown_toggle")
		case errors.Is(err, settings.ErrInertToggle):
			writeError(w, http.StatusConflict, "toggle_not_wired")
		default:
			s.serverError(w, r, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, toggle)
}

func (s *Server) handleBatchAssign(w http.ResponseWriter, r *http.Request) {
	perApp, err := s.settings.GetReviewsPerApplication(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	result, err := s.reviews.BatchAssign(r.Context(), perApp)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if result.ReviewsCreated > 0 {
		if s.metrics != nil {
			s.metrics.ReviewsAssigned.Add(float64(result.ReviewsCreated))
		}
		s.signal.Trigger()
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSendQREmails(w http.ResponseWriter, r *http.Request) {
	users, err := s.queries.GetEmailsByStatus(r.Context(), model.StatusAccepted)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	recipients := make([]mailer.Recipient, 0, len(users))
	for _, u := range users {
		recipients = append(recipients, mailer.Recipient{UserID: u.UserID, Email: u.Email, FirstName: u.FirstName})
	}
	writeJSON(w, http.StatusOK, mailer.SendAll(r.Context(), s.mailer, recipients, s.log))
}
