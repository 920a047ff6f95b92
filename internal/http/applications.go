package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hackutd/harp-sub001/internal/applications"
	"github.com/hackutd/harp-sub001/internal/model"
	"github.com/hackutd/harp-sub001/internal/wizard"
)

type applicationWithQuestions struct {
	*model.Application
	ShortAnswerQuestions []model.ShortAnswerQuestion `json:"short_answer_questions"`
}

func (s *Server) handleGetOrCreateApplication(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	app, err := s.apps.GetOrCreate(r.Context(), user.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	questions, err := s.apps.Questions(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, applicationWithQuestions{Application: app, ShortAnswerQuestions: questions})
}

func (s *Server) handleUpdateApplication(w http.ResponseWriter, r *http.Request) {
	var patch applications.Patch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	user := userFromContext(r.Context())
	app, err := s.apps.Update(r.Context(), user.ID, patch)
	if err != nil {
		s.applicationError(w, r, err)
		return
	}
	// An open wizard still holds the draft it was seeded with; drop it so the
	// next wizard request starts from what was just saved.
	s.discardWizard(user.ID)
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	app, err := s.apps.SubmitStored(r.Context(), user.ID)
	if err != nil {
		s.recordSubmission("failed")
		s.applicationError(w, r, err)
		return
	}
	s.recordSubmission("submitted")
	s.discardWizard(user.ID)
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) applicationError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		patchErr *applications.PatchError
		verr     *wizard.ValidationError
	)
	switch {
	case errors.As(err, &patchErr):
		writeFieldErrors(w, nil, patchErr.Fields)
	case errors.As(err, &verr):
		writeFieldErrors(w, &verr.Step, verr.Fields)
	case errors.Is(err, applications.ErrNotFound):
		writeError(w, http.StatusNotFound, "application_not_found")
	case errors.Is(err, applications.ErrNotDraft):
		writeError(w, http.StatusConflict, "application_not_draft")
	default:
		s.serverError(w, r, err)
	}
}

func (s *Server) recordSubmission(outcome string) {
	if s.metrics != nil {
		s.metrics.Submissions.WithLabelValues(outcome).Inc()
	}
}

// wizardSession returns the caller's session, opening one seeded from the stored
// draft when there is none.
func (s *Server) wizardSession(r *http.Request) (*wizard.Wizard, error) {
	user := userFromContext(r.Context())
	wz, err := s.wizards.GetOrCreate(user.ID, func() (*wizard.Wizard, error) {
		app, err := s.apps.GetOrCreate(r.Context(), user.ID)
		if err != nil {
			return nil, err
		}
		if app.Status != model.StatusDraft {
			return nil, applications.ErrNotDraft
		}
		questions, err := s.apps.Questions(r.Context())
		if err != nil {
			return nil, err
		}
		return wizard.New(wizard.Options{
			Draft:     app,
			UserEmail: user.Email,
			Questions: questions,
			Submitter: s.apps,
			Validator: s.validate,
		}), nil
	})
	if err == nil && s.metrics != nil {
		s.metrics.WizardSessions.Set(float64(s.wizards.Len()))
	}
	return wz, err
}

func (s *Server) handleWizardState(w http.ResponseWriter, r *http.Request) {
	wz, err := s.wizardSession(r)
	if err != nil {
		s.applicationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wz.Snapshot())
}

func (s *Server) handleWizardDiscard(w http.ResponseWriter, r *http.Request) {
	s.discardWizard(userFromContext(r.Context()).ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) discardWizard(userID string) {
	s.wizards.Discard(userID)
	if s.metrics != nil {
		s.metrics.WizardSessions.Set(float64(s.wizards.Len()))
	}
}

type wizardStepRequest struct {
	Step  string          `json:"step"`
	Input json.RawMessage `json:"input"`
}

func decodeStepInput(r *http.Request) (wizard.Input, error) {
	var req wizardStepRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	step, err := wizard.ParseStep(req.Step)
	if err != nil {
		return nil, err
	}
	if len(req.Input) == 0 {
		req.Input = json.RawMessage("{}")
	}
	return wizard.DecodeInput(step, req.Input)
}

func (s *Server) handleWizardNext(w http.ResponseWriter, r *http.Request) {
	wz, err := s.wizardSession(r)
	if err != nil {
		s.applicationError(w, r, err)
		return
	}
	input, err := decodeStepInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	snap, err := wz.Next(input)
	if err != nil {
		s.wizardError(w, r, snap, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleWizardBack(w http.ResponseWriter, r *http.Request) {
	wz, err := s.wizardSession(r)
	if err != nil {
		s.applicationError(w, r, err)
		return
	}
	snap, err := wz.Back()
	if err != nil {
		s.wizardError(w, r, snap, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleWizardRetry(w http.ResponseWriter, r *http.Request) {
	wz, err := s.wizardSession(r)
	if err != nil {
		s.applicationError(w, r, err)
		return
	}
	snap, err := wz.Retry()
	if err != nil {
		s.wizardError(w, r, snap, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleWizardSubmit(w http.ResponseWriter, r *http.Request) {
	wz, err := s.wizardSession(r)
	if err != nil {
		s.applicationError(w, r, err)
		return
	}
	input, err := decodeStepInput(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	snap, err := wz.Submit(r.Context(), input)
	if err != nil {
		var serr *wizard.SubmissionError
		if errors.As(err, &serr) {
			s.recordSubmission("failed")
		}
		s.wizardError(w, r, snap, err)
		return
	}
	s.recordSubmission("submitted")
	writeJSON(w, http.StatusOK, snap)
}

type wizardErrorResponse struct {
	Error  string            `json:"error"`
	Wizard wizard.Snapshot   `json:"wizard"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (s *Server) wizardError(w http.ResponseWriter, r *http.Request, snap wizard.Snapshot, err error) {
	var (
		verr *wizard.ValidationError
		serr *wizard.SubmissionError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, wizardErrorResponse{Error: "validation_failed", Wizard: snap, Fields: verr.Fields})
	case errors.As(err, &serr):
		writeJSON(w, http.StatusUnprocessableEntity, wizardErrorResponse{Error: "submission_failed", Wizard: snap})
	case errors.Is(err, wizard.ErrSubmitInProgress):
		writeJSON(w, http.StatusConflict, wizardErrorResponse{Error: "submit_in_progress", Wizard: snap})
	case errors.Is(err, wizard.ErrAlreadySubmitted):
		writeJSON(w, http.StatusConflict, wizardErrorResponse{Error: "already_submitted", Wizard: snap})
	case errors.Is(err, wizard.ErrStepMismatch):
		writeJSON(w, http.StatusConflict, wizardErrorResponse{Error: "step_mismatch", Wizard: snap})
	case errors.Is(err, wizard.ErrFinalStep):
		writeJSON(w, http.StatusConflict, wizardErrorResponse{Error: "final_step", Wizard: snap})
	case errors.Is(err, wizard.ErrNotFinalStep):
		writeJSON(w, http.StatusConflict, wizardErrorResponse{Error: "not_final_step", Wizard: snap})
	case errors.Is(err, wizard.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, wizardErrorResponse{Error: "invalid_transition", Wizard: snap})
	default:
		s.serverError(w, r, err)
	}
}
