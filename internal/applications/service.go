// Package applications owns the hacker application lifecycle: drafts, partial
// updates, submission and admin decisions.
package applications

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/hackutd/harp-sub001/internal/model"
	"github.com/hackutd/harp-sub001/internal/notify"
	"github.com/hackutd/harp-sub001/internal/refresh"
	"github.com/hackutd/harp-sub001/internal/store"
	"github.com/hackutd/harp-sub001/internal/wizard"
)

var (
	ErrNotFound          = errors.New("application not found")
	ErrNotDraft          = errors.New("application is no longer a draft")
	ErrInvalidStatus     = errors.New("invalid application status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// PatchError lists the fields of a partial update that failed validation.
type PatchError struct {
	Fields map[string]string
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("invalid fields: %d", len(e.Fields))
}

type Store interface {
	GetByID(ctx context.Context, id string) (*model.Application, error)
	GetByUserID(ctx context.Context, userID string) (*model.Application, error)
	Create(ctx context.Context, app *model.Application) error
	Update(ctx context.Context, app *model.Application) error
	Submit(ctx context.Context, app *model.Application) error
	SetStatus(ctx context.Context, id string, from, to model.ApplicationStatus) (*model.Application, error)
}

type QuestionSource interface {
	GetShortAnswerQuestions(ctx context.Context) ([]model.ShortAnswerQuestion, error)
}

type Service struct {
	apps      Store
	questions QuestionSource
	signal    *refresh.Signal
	notices   *notify.Center
	validate  *validator.Validate
	log       *logrus.Entry
}

func NewService(apps Store, questions QuestionSource, signal *refresh.Signal, notices *notify.Center, log *logrus.Entry) *Service {
	return &Service{
		apps:      apps,
		questions: questions,
		signal:    signal,
		notices:   notices,
		validate:  wizard.NewValidator(),
		log:       log,
	}
}

func (s *Service) Questions(ctx context.Context) ([]model.ShortAnswerQuestion, error) {
	return s.questions.GetShortAnswerQuestions(ctx)
}

// GetOrCreate returns the user's application, creating an empty draft the
// first time.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*model.Application, error) {
	app, err := s.apps.GetByUserID(ctx, userID)
	if err == nil {
		return app, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	app = &model.Application{UserID: userID}
	if err := s.apps.Create(ctx, app); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return s.apps.GetByUserID(ctx, userID)
		}
		return nil, err
	}
	return s.apps.GetByUserID(ctx, userID)
}

func (s *Service) GetByID(ctx context.Context, id string) (*model.Application, error) {
	app, err := s.apps.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return app, err
}

// Update applies a partial update to the user's draft.
func (s *Service) Update(ctx context.Context, userID string, patch Patch) (*model.Application, error) {
	if err := s.validate.Struct(patch); err != nil {
		return nil, &PatchError{Fields: wizard.FieldErrors(err)}
	}
	app, err := s.apps.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if app.Status != model.StatusDraft {
		return nil, ErrNotDraft
	}

	patch.apply(app)
	if err := s.apps.Update(ctx, app); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrNotDraft
		}
		return nil, err
	}
	return app, nil
}

// SubmitStored submits the user's saved draft after checking it is complete.
func (s *Service) SubmitStored(ctx context.Context, userID string) (*model.Application, error) {
	app, err := s.apps.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if app.Status != model.StatusDraft {
		return nil, ErrNotDraft
	}
	questions, err := s.questions.GetShortAnswerQuestions(ctx)
	if err != nil {
		return nil, err
	}
	if missing := wizard.MissingFields(*app, questions); len(missing) > 0 {
		return nil, wizard.IncompleteError(missing)
	}
	if err := s.finish(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// Submit stores a completed wizard draft and submits it. Failures come back
// as *wizard.SubmissionError so the wizard can point at the step to fix.
func (s *Service) Submit(ctx context.Context, draft model.Application) (*model.Application, error) {
	app, err := s.apps.GetByUserID(ctx, draft.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &wizard.SubmissionError{Message: "application not found"}
		}
		return nil, err
	}
	if app.Status != model.StatusDraft {
		return nil, &wizard.SubmissionError{Message: "application has already been submitted"}
	}

	questions, err := s.questions.GetShortAnswerQuestions(ctx)
	if err != nil {
		return nil, err
	}
	if missing := wizard.MissingFields(draft, questions); len(missing) > 0 {
		return nil, &wizard.SubmissionError{Message: "some required answers are missing", Fields: missing}
	}

	merged := draft.Clone()
	merged.ID = app.ID
	merged.UserID = app.UserID
	merged.Email = app.Email
	merged.Status = app.Status
	merged.CreatedAt = app.CreatedAt
	if err := s.apps.Update(ctx, &merged); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, &wizard.SubmissionError{Message: "application has already been submitted"}
		}
		return nil, err
	}
	if err := s.finish(ctx, &merged); err != nil {
		if errors.Is(err, ErrNotDraft) {
			return nil, &wizard.SubmissionError{Message: "application has already been submitted"}
		}
		return nil, err
	}
	return &merged, nil
}

func (s *Service) finish(ctx context.Context, app *model.Application) error {
	if err := s.apps.Submit(ctx, app); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrNotDraft
		}
		return err
	}
	key := s.signal.Trigger()
	s.notices.Push(app.UserID, notify.LevelSuccess, "Your application has been submitted.")
	s.log.WithFields(logrus.Fields{"application_id": app.ID, "refresh_key": key}).Info("application submitted")
	return nil
}

// SetStatus records an admin decision. Only forward moves are allowed and
// decided applications never change again.
func (s *Service) SetStatus(ctx context.Context, id string, status model.ApplicationStatus) (*model.Application, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !app.Status.CanTransitionTo(status) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.apps.SetStatus(ctx, id, app.Status, status)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	key := s.signal.Trigger()
	s.notices.Push(updated.UserID, notify.LevelInfo, "There is an update on your application.")
	s.log.WithFields(logrus.Fields{
		"application_id": id,
		"from":           app.Status,
		"to":             status,
		"refresh_key":    key,
	}).Info("application status changed")
	return updated, nil
}
