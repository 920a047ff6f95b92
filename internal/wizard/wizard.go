// Package wizard drives the multi-step application form: an explicit state
// machine that validates each step, merges answers into one draft, and hands
// the draft to a Submitter exactly once.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hackutd/harp-sub001/internal/model"
)

type State string

const (
	StateEditing    State = "editing"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSubmitted  State = "submitted"
	StateError      State = "error"
)

type Event string

const (
	EventNext             Event = "next"
	EventBack             Event = "back"
	EventSubmit           Event = "submit"
	EventValidationPassed Event = "validation_ok"
	EventValidationFailed Event = "validation_failed"
	EventBeginSubmit      Event = "begin_submit"
	EventSubmitSucceeded  Event = "submit_ok"
	EventSubmitFailed     Event = "submit_failed"
	EventRetry            Event = "retry"
)

var transitions = map[State]map[Event]State{
	StateEditing: {
		EventNext:   StateValidating,
		EventBack:   StateEditing,
		EventSubmit: StateValidating,
	},
	StateValidating: {
		EventValidationPassed: StateEditing,
		EventValidationFailed: StateEditing,
		EventBeginSubmit:      StateSubmitting,
	},
	StateSubmitting: {
		EventSubmitSucceeded: StateSubmitted,
		EventSubmitFailed:    StateError,
	},
	StateError: {
		EventNext:   StateValidating,
		EventBack:   StateEditing,
		EventSubmit: StateValidating,
		EventRetry:  StateEditing,
	},
	StateSubmitted: {},
}

// Transition looks up the next state for event in the transition table.
func Transition(from State, event Event) (State, bool) {
	next, ok := transitions[from][event]
	return next, ok
}

var (
	ErrInvalidTransition = errors.New("invalid wizard transition")
	ErrStepMismatch      = errors.New("input does not belong to the current step")
	ErrFinalStep         = errors.New("already on the final step")
	ErrNotFinalStep      = errors.New("submission is only possible from the final step")
	ErrSubmitInProgress  = errors.New("submission already in progress")
	ErrAlreadySubmitted  = errors.New("application already submitted")
)

// Submitter is the external create/update boundary.
type Submitter interface {
	Submit(ctx context.Context, draft model.Application) (*model.Application, error)
}

// SubmissionError is a submission failure translated for display. Fields,
// when set by the submitter, point at the step to return to.
type SubmissionError struct {
	Step    Step     `json:"step"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

func (e *SubmissionError) Error() string {
	return e.Message
}

type Options struct {
	// Draft seeds the accumulated answers, e.g. from a stored draft.
	Draft     *model.Application
	UserEmail string
	Questions []model.ShortAnswerQuestion
	Submitter Submitter
	Validator *validator.Validate
}

type Wizard struct {
	mu sync.Mutex

	state     State
	step      Step
	draft     model.Application
	userEmail string
	questions []model.ShortAnswerQuestion
	submitter Submitter
	validate  *validator.Validate
	lastErr   *SubmissionError
	result    *model.Application
}

func New(opts Options) *Wizard {
	w := &Wizard{
		state:     StateEditing,
		step:      firstStep,
		userEmail: opts.UserEmail,
		questions: append([]model.ShortAnswerQuestion(nil), opts.Questions...),
		submitter: opts.Submitter,
		validate:  opts.Validator,
	}
	if opts.Draft != nil {
		w.draft = opts.Draft.Clone()
	}
	if w.validate == nil {
		w.validate = NewValidator()
	}
	w.draft.Email = w.userEmail
	return w
}

// Snapshot is a point-in-time copy of the wizard for display.
type Snapshot struct {
	State     State              `json:"state"`
	Step      Step               `json:"step"`
	StepIndex int                `json:"step_index"`
	Steps     []string           `json:"steps"`
	Draft     model.Application  `json:"draft"`
	Error     *SubmissionError   `json:"error,omitempty"`
	Result    *model.Application `json:"result,omitempty"`
}

func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot()
}

func (w *Wizard) snapshot() Snapshot {
	snap := Snapshot{
		State:     w.state,
		Step:      w.step,
		StepIndex: int(w.step),
		Steps:     StepNames(),
		Draft:     w.draft.Clone(),
		Error:     w.lastErr,
	}
	if w.result != nil {
		result := w.result.Clone()
		snap.Result = &result
	}
	return snap
}

func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Next validates input for the current step and, when it passes, merges it
// into the draft and advances. A failing input leaves step and draft as they
// were.
func (w *Wizard) Next(input Input) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step == lastStep {
		return w.snapshot(), ErrFinalStep
	}
	if input == nil || input.Step() != w.step {
		return w.snapshot(), ErrStepMismatch
	}
	if err := w.fire(EventNext); err != nil {
		return w.snapshot(), err
	}
	if err := validateInput(w.validate, input); err != nil {
		w.mustFire(EventValidationFailed)
		return w.snapshot(), err
	}

	input.apply(&w.draft)
	w.draft.Email = w.userEmail
	w.step++
	w.lastErr = nil
	w.mustFire(EventValidationPassed)
	return w.snapshot(), nil
}

// Back moves one step backwards without validation. On the first step it
// only clears an error state.
func (w *Wizard) Back() (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.fire(EventBack); err != nil {
		return w.snapshot(), err
	}
	if w.step > firstStep {
		w.step--
	}
	return w.snapshot(), nil
}

// Retry acknowledges a submission error and returns to editing at the step
// the error pointed to.
func (w *Wizard) Retry() (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.fire(EventRetry); err != nil {
		return w.snapshot(), err
	}
	return w.snapshot(), nil
}

// Submit validates the final step and the whole draft, then calls the
// submitter once. While a submission is in flight, or after one succeeded,
// Submit does nothing and returns ErrSubmitInProgress or ErrAlreadySubmitted.
func (w *Wizard) Submit(ctx context.Context, input Input) (Snapshot, error) {
	w.mu.Lock()
	switch w.state {
	case StateSubmitting:
		snap := w.snapshot()
		w.mu.Unlock()
		return snap, ErrSubmitInProgress
	case StateSubmitted:
		snap := w.snapshot()
		w.mu.Unlock()
		return snap, ErrAlreadySubmitted
	}
	if w.step != lastStep {
		snap := w.snapshot()
		w.mu.Unlock()
		return snap, ErrNotFinalStep
	}
	if input == nil || input.Step() != w.step {
		snap := w.snapshot()
		w.mu.Unlock()
		return snap, ErrStepMismatch
	}
	if err := w.fire(EventSubmit); err != nil {
		snap := w.snapshot()
		w.mu.Unlock()
		return snap, err
	}
	if err := validateInput(w.validate, input); err != nil {
		w.mustFire(EventValidationFailed)
		snap := w.snapshot()
		w.mu.Unlock()
		return snap, err
	}
	candidate := w.draft.Clone()
	input.apply(&candidate)
	candidate.Email = w.userEmail
	if missing := MissingFields(candidate, w.questions); len(missing) > 0 {
		w.mustFire(EventValidationFailed)
		snap := w.snapshot()
		w.mu.Unlock()
		return snap, IncompleteError(missing)
	}

	w.draft = candidate
	w.lastErr = nil
	w.mustFire(EventBeginSubmit)
	payload := w.draft.Clone()
	submitter := w.submitter
	w.mu.Unlock()

	var (
		result *model.Application
		err    error
	)
	if submitter == nil {
		err = errors.New("no submitter configured")
	} else {
		result, err = submitter.Submit(ctx, payload)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.lastErr = translate(err)
		w.step = w.lastErr.Step
		w.mustFire(EventSubmitFailed)
		return w.snapshot(), w.lastErr
	}
	if result != nil {
		stored := result.Clone()
		w.result = &stored
	}
	w.mustFire(EventSubmitSucceeded)
	return w.snapshot(), nil
}

func (w *Wizard) fire(event Event) error {
	next, ok := Transition(w.state, event)
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, w.state)
	}
	w.state = next
	return nil
}

// mustFire is for transitions the methods above have already made reachable.
func (w *Wizard) mustFire(event Event) {
	if err := w.fire(event); err != nil {
		panic(err)
	}
}

// translate keeps collaborator failures from reaching the caller raw.
func translate(err error) *SubmissionError {
	var subErr *SubmissionError
	if errors.As(err, &subErr) {
		out := *subErr
		out.Step = lastStep
		for _, field := range out.Fields {
			if step, ok := StepForField(field); ok && step < out.Step {
				out.Step = step
			}
		}
		if out.Message == "" {
			out.Message = "submission failed"
		}
		return &out
	}
	return &SubmissionError{Step: lastStep, Message: "submission failed, please try again"}
}
