package applications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hackutd/harp-sub001/internal/logger"
	"github.com/hackutd/harp-sub001/internal/model"
	"github.com/hackutd/harp-sub001/internal/notify"
	"github.com/hackutd/harp-sub001/internal/refresh"
	"github.com/hackutd/harp-sub001/internal/store"
	"github.com/hackutd/harp-sub001/internal/wizard"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetByID(ctx context.Context, id string) (*model.Application, error) {
	args := m.Called(ctx, id)
	app, _ := args.Get(0).(*model.Application)
	return app, args.Error(1)
}

func (m *mockStore) GetByUserID(ctx context.Context, userID string) (*model.Application, error) {
	args := m.Called(ctx, userID)
	app, _ := args.Get(0).(*model.Application)
	return app, args.Error(1)
}

func (m *mockStore) Create(ctx context.Context, app *model.Application) error {
	return m.Called(ctx, app).Error(0)
}

func (m *mockStore) Update(ctx context.Context, app *model.Application) error {
	return m.Called(ctx, app).Error(0)
}

func (m *mockStore) Submit(ctx context.Context, app *model.Application) error {
	return m.Called(ctx, app).Error(0)
}

func (m *mockStore) SetStatus(ctx context.Context, id string, from, to model.ApplicationStatus) (*model.Application, error) {
	args := m.Called(ctx, id, from, to)
	app, _ := args.Get(0).(*model.Application)
	return app, args.Error(1)
}

type staticQuestions []model.ShortAnswerQuestion

func (q staticQuestions) GetShortAnswerQuestions(context.Context) ([]model.ShortAnswerQuestion, error) {
	return q, nil
}

var questions = staticQuestions{
	{ID: "q1", Question: "Why do you want to attend?", Required: true, DisplayOrder: 1},
	{ID: "q2", Question: "Anything else?", DisplayOrder: 2},
}

func newService(apps Store) (*Service, *refresh.Signal, *notify.Center) {
	signal := refresh.NewSignal()
	notices := notify.NewCenter(10)
	return NewService(apps, questions, signal, notices, logger.Discard()), signal, notices
}

func completeDraft() *model.Application {
	return &model.Application{
		ID:                      "app-1",
		UserID:                  "user-1",
		Status:                  model.StatusDraft,
		FirstName:               model.StringPtr("Ada"),
		LastName:                model.StringPtr("Lovelace"),
		PhoneE164:               model.StringPtr("+12025551234"),
		Age:                     model.Int16Ptr(20),
		CountryOfResidence:      model.StringPtr("US"),
		Gender:                  model.StringPtr("Female"),
		Race:                    model.StringPtr("White"),
		Ethnicity:               model.StringPtr("Not Hispanic or Latino"),
		University:              model.StringPtr("UT Dallas"),
		Major:                   model.StringPtr("Computer Science"),
		LevelOfStudy:            model.StringPtr("Undergraduate"),
		HackathonsAttendedCount: model.Int16Ptr(2),
		SoftwareExperienceLevel: model.StringPtr("Intermediate"),
		HeardAbout:              model.StringPtr("Friend"),
		ShortAnswerResponses:    model.ShortAnswerResponses{"q1": "To build things"},
		ShirtSize:               model.StringPtr("M"),
		AckApplication:          true,
		AckMLHCOC:               true,
		AckMLHPrivacy:           true,
	}
}

func TestGetOrCreateCreatesDraftOnce(t *testing.T) {
	apps := &mockStore{}
	created := &model.Application{ID: "app-1", UserID: "user-1", Status: model.StatusDraft}
	apps.On("GetByUserID", mock.Anything, "user-1").Return(nil, store.ErrNotFound).Once()
	apps.On("Create", mock.Anything, mock.MatchedBy(func(app *model.Application) bool {
		return app.UserID == "user-1"
	})).Return(nil).Once()
	apps.On("GetByUserID", mock.Anything, "user-1").Return(created, nil).Once()

	svc, _, _ := newService(apps)
	app, err := svc.GetOrCreate(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "app-1", app.ID)
	apps.AssertExpectations(t)
}

func TestGetOrCreateRefetchesOnConflict(t *testing.T) {
	apps := &mockStore{}
	existing := &model.Application{ID: "app-1", UserID: "user-1", Status: model.StatusDraft}
	apps.On("GetByUserID", mock.Anything, "user-1").Return(nil, store.ErrNotFound).Once()
	apps.On("Create", mock.Anything, mock.Anything).Return(store.ErrConflict).Once()
	apps.On("GetByUserID", mock.Anything, "user-1").Return(existing, nil).Once()

	svc, _, _ := newService(apps)
	app, err := svc.GetOrCreate(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, existing, app)
}

func TestUpdateAppliesOnlyPresentFields(t *testing.T) {
	apps := &mockStore{}
	draft := completeDraft()
	apps.On("GetByUserID", mock.Anything, "user-1").Return(draft, nil)
	apps.On("Update", mock.Anything, draft).Return(nil)

	svc, _, _ := newService(apps)
	diet := []string{"vegan"}
	app, err := svc.Update(context.Background(), "user-1", Patch{
		Major:               model.StringPtr("Mathematics"),
		DietaryRestrictions: &diet,
	})
	require.NoError(t, err)
	assert.Equal(t, "Mathematics", *app.Major)
	assert.Equal(t, "Ada", *app.FirstName)
	assert.Equal(t, []string{"vegan"}, app.DietaryRestrictions)
}

func TestUpdateRejectsInvalidPatch(t *testing.T) {
	apps := &mockStore{}
	svc, _, _ := newService(apps)

	_, err := svc.Update(context.Background(), "user-1", Patch{
		PhoneE164: model.StringPtr("555-1234"),
		Github:    model.StringPtr("not a url"),
	})
	var perr *PatchError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Fields, "phone_e164")
	assert.Contains(t, perr.Fields, "github")
	apps.AssertNotCalled(t, "GetByUserID", mock.Anything, mock.Anything)
}

func TestUpdateRejectsSubmittedApplication(t *testing.T) {
	apps := &mockStore{}
	submitted := completeDraft()
	submitted.Status = model.StatusSubmitted
	apps.On("GetByUserID", mock.Anything, "user-1").Return(submitted, nil)

	svc, _, _ := newService(apps)
	_, err := svc.Update(context.Background(), "user-1", Patch{Major: model.StringPtr("Math")})
	assert.ErrorIs(t, err, ErrNotDraft)
}

func TestSubmitStoredReportsMissingFields(t *testing.T) {
	apps := &mockStore{}
	draft := completeDraft()
	draft.ShortAnswerResponses = nil
	draft.AckMLHCOC = false
	apps.On("GetByUserID", mock.Anything, "user-1").Return(draft, nil)

	svc, _, _ := newService(apps)
	_, err := svc.SubmitStored(context.Background(), "user-1")
	var verr *wizard.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, wizard.StepShortAnswers, verr.Step)
	assert.Contains(t, verr.Fields, "short_answer:q1")
	assert.Contains(t, verr.Fields, "ack_mlh_coc")
	apps.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestSubmitStoredTriggersRefreshAndNotice(t *testing.T) {
	apps := &mockStore{}
	draft := completeDraft()
	apps.On("GetByUserID", mock.Anything, "user-1").Return(draft, nil)
	apps.On("Submit", mock.Anything, draft).Return(nil).Once()

	svc, signal, notices := newService(apps)
	before := signal.Key()
	_, err := svc.SubmitStored(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Greater(t, signal.Key(), before)

	drained := notices.Drain("user-1")
	require.Len(t, drained, 1)
	assert.Equal(t, notify.LevelSuccess, drained[0].Level)
}

func TestSubmitFromWizardMapsFailures(t *testing.T) {
	apps := &mockStore{}
	stored := completeDraft()
	stored.Status = model.StatusSubmitted
	apps.On("GetByUserID", mock.Anything, "user-1").Return(stored, nil)

	svc, _, _ := newService(apps)
	_, err := svc.Submit(context.Background(), *completeDraft())
	var serr *wizard.SubmissionError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "application has already been submitted", serr.Message)
}

func TestSubmitFromWizardStoresDraft(t *testing.T) {
	apps := &mockStore{}
	stored := &model.Application{ID: "app-1", UserID: "user-1", Status: model.StatusDraft}
	apps.On("GetByUserID", mock.Anything, "user-1").Return(stored, nil)
	apps.On("Update", mock.Anything, mock.MatchedBy(func(app *model.Application) bool {
		return app.ID == "app-1" && *app.University == "UT Dallas"
	})).Return(nil).Once()
	apps.On("Submit", mock.Anything, mock.Anything).Return(nil).Once()

	svc, _, _ := newService(apps)
	draft := *completeDraft()
	draft.ID = ""
	app, err := svc.Submit(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, "app-1", app.ID)
	apps.AssertExpectations(t)
}

func TestSetStatusIsForwardOnly(t *testing.T) {
	apps := &mockStore{}
	submitted := completeDraft()
	submitted.Status = model.StatusSubmitted
	accepted := completeDraft()
	accepted.Status = model.StatusAccepted
	apps.On("GetByID", mock.Anything, "app-1").Return(submitted, nil).Once()
	apps.On("SetStatus", mock.Anything, "app-1", model.StatusSubmitted, model.StatusAccepted).Return(accepted, nil).Once()

	svc, signal, notices := newService(apps)
	app, err := svc.SetStatus(context.Background(), "app-1", model.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, app.Status)
	assert.Equal(t, uint64(1), signal.Key())
	assert.Equal(t, 1, notices.Pending("user-1"))

	apps.On("GetByID", mock.Anything, "app-1").Return(accepted, nil).Once()
	_, err = svc.SetStatus(context.Background(), "app-1", model.StatusRejected)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.SetStatus(context.Background(), "app-1", model.ApplicationStatus("maybe"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
	apps.AssertExpectations(t)
}

func TestSetStatusLosesRace(t *testing.T) {
	apps := &mockStore{}
	submitted := completeDraft()
	submitted.Status = model.StatusSubmitted
	apps.On("GetByID", mock.Anything, "app-1").Return(submitted, nil)
	apps.On("SetStatus", mock.Anything, "app-1", model.StatusSubmitted, model.StatusWaitlisted).Return(nil, store.ErrConflict)

	svc, signal, _ := newService(apps)
	_, err := svc.SetStatus(context.Background(), "app-1", model.StatusWaitlisted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Zero(t, signal.Key())
}

func TestGetByIDMapsNotFound(t *testing.T) {
	apps := &mockStore{}
	apps.On("GetByID", mock.Anything, "missing").Return(nil, store.ErrNotFound)
	apps.On("GetByID", mock.Anything, "broken").Return(nil, errors.New("boom"))

	svc, _, _ := newService(apps)
	_, err := svc.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GetByID(context.Background(), "broken")
	assert.EqualError(t, err, "boom")
}
