package wizard

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hackutd/harp-sub001/internal/model"
)

type Step int

const (
	StepPersonalInfo Step = iota
	StepSchoolInfo
	StepExperience
	StepShortAnswers
	StepEventInfo
	StepSponsorInfo
	StepReview
)

var stepNames = []string{
	"personal_info",
	"school_info",
	"experience",
	"short_answers",
	"event_info",
	"sponsor_info",
	"review",
}

const (
	firstStep = StepPersonalInfo
	lastStep  = StepReview
)

func (s Step) String() string {
	if s < firstStep || s > lastStep {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Step) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseStep(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseStep(name string) (Step, error) {
	for i, candidate := range stepNames {
		if candidate == name {
			return Step(i), nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", name)
}

func StepNames() []string {
	return append([]string(nil), stepNames...)
}

// fieldSteps maps draft JSON field names to the step that collects them.
var fieldSteps = map[string]Step{
	"first_name":                StepPersonalInfo,
	"last_name":                 StepPersonalInfo,
	"phone_e164":                StepPersonalInfo,
	"age":                       StepPersonalInfo,
	"country_of_residence":      StepPersonalInfo,
	"gender":                    StepPersonalInfo,
	"race":                      StepPersonalInfo,
	"ethnicity":                 StepPersonalInfo,
	"university":                StepSchoolInfo,
	"major":                     StepSchoolInfo,
	"level_of_study":            StepSchoolInfo,
	"hackathons_attended_count": StepExperience,
	"software_experience_level": StepExperience,
	"heard_about":               StepExperience,
	"short_answer_responses":    StepShortAnswers,
	"shirt_size":                StepEventInfo,
	"dietary_restrictions":      StepEventInfo,
	"accommodations":            StepEventInfo,
	"github":                    StepSponsorInfo,
	"linkedin":                  StepSponsorInfo,
	"website":                   StepSponsorInfo,
	"ack_application":           StepReview,
	"ack_mlh_coc":               StepReview,
	"ack_mlh_privacy":           StepReview,
	"opt_in_mlh_emails":         StepReview,
}

// StepForField returns the step that owns field. Short answer keys of the
// form "short_answer:<id>" belong to the short answers step.
func StepForField(field string) (Step, bool) {
	if strings.HasPrefix(field, "short_answer:") {
		return StepShortAnswers, true
	}
	step, ok := fieldSteps[field]
	return step, ok
}

// Input is one step's answers.
type Input interface {
	Step() Step
	apply(draft *model.Application)
}

type PersonalInfoInput struct {
	FirstName          string `json:"first_name" validate:"notblank,max=100"`
	LastName           string `json:"last_name" validate:"notblank,max=100"`
	PhoneE164          string `json:"phone_e164" validate:"required,e164"`
	Age                int16  `json:"age" validate:"required,min=1,max=150"`
	CountryOfResidence string `json:"country_of_residence" validate:"notblank"`
	Gender             string `json:"gender" validate:"notblank"`
	Race               string `json:"race" validate:"notblank"`
	Ethnicity          string `json:"ethnicity" validate:"notblank"`
}

func (PersonalInfoInput) Step() Step { return StepPersonalInfo }

func (in PersonalInfoInput) apply(draft *model.Application) {
	draft.FirstName = model.StringPtr(strings.TrimSpace(in.FirstName))
	draft.LastName = model.StringPtr(strings.TrimSpace(in.LastName))
	draft.PhoneE164 = model.StringPtr(in.PhoneE164)
	draft.Age = model.Int16Ptr(in.Age)
	draft.CountryOfResidence = model.StringPtr(strings.TrimSpace(in.CountryOfResidence))
	draft.Gender = model.StringPtr(strings.TrimSpace(in.Gender))
	draft.Race = model.StringPtr(strings.TrimSpace(in.Race))
	draft.Ethnicity = model.StringPtr(strings.TrimSpace(in.Ethnicity))
}

type SchoolInfoInput struct {
	University   string `json:"university" validate:"notblank,max=200"`
	Major        string `json:"major" validate:"notblank,max=200"`
	LevelOfStudy string `json:"level_of_study" validate:"required,oneof=high_school freshman sophomore junior senior graduate phd bootcamp other"`
}

func (SchoolInfoInput) Step() Step { return StepSchoolInfo }

func (in SchoolInfoInput) apply(draft *model.Application) {
	draft.University = model.StringPtr(strings.TrimSpace(in.University))
	draft.Major = model.StringPtr(strings.TrimSpace(in.Major))
	draft.LevelOfStudy = model.StringPtr(in.LevelOfStudy)
}

type ExperienceInput struct {
	HackathonsAttendedCount *int16 `json:"hackathons_attended_count" validate:"required,min=0"`
	SoftwareExperienceLevel string `json:"software_experience_level" validate:"required,oneof=beginner intermediate advanced expert"`
	HeardAbout              string `json:"heard_about" validate:"notblank"`
}

func (ExperienceInput) Step() Step { return StepExperience }

func (in ExperienceInput) apply(draft *model.Application) {
	draft.HackathonsAttendedCount = model.Int16Ptr(*in.HackathonsAttendedCount)
	draft.SoftwareExperienceLevel = model.StringPtr(in.SoftwareExperienceLevel)
	draft.HeardAbout = model.StringPtr(strings.TrimSpace(in.HeardAbout))
}

// ShortAnswersInput is only length-checked here; required questions are
// enforced at submission.
type ShortAnswersInput struct {
	Responses map[string]string `json:"short_answer_responses" validate:"dive,keys,required,max=50,endkeys,max=5000"`
}

func (ShortAnswersInput) Step() Step { return StepShortAnswers }

func (in ShortAnswersInput) apply(draft *model.Application) {
	responses := make(model.ShortAnswerResponses, len(in.Responses))
	for id, answer := range in.Responses {
		responses[id] = answer
	}
	draft.ShortAnswerResponses = responses
}

type EventInfoInput struct {
	ShirtSize           string   `json:"shirt_size" validate:"required,oneof=xs s m l xl xxl xxxl"`
	DietaryRestrictions []string `json:"dietary_restrictions" validate:"dive,oneof=vegan vegetarian halal nuts fish wheat dairy eggs no_beef no_pork"`
	Accommodations      string   `json:"accommodations" validate:"max=1000"`
}

func (EventInfoInput) Step() Step { return StepEventInfo }

func (in EventInfoInput) apply(draft *model.Application) {
	draft.ShirtSize = model.StringPtr(in.ShirtSize)
	draft.DietaryRestrictions = append([]string{}, in.DietaryRestrictions...)
	draft.Accommodations = nil
	if strings.TrimSpace(in.Accommodations) != "" {
		draft.Accommodations = model.StringPtr(in.Accommodations)
	}
}

type SponsorInfoInput struct {
	Github   string `json:"github" validate:"omitempty,url"`
	LinkedIn string `json:"linkedin" validate:"omitempty,url"`
	Website  string `json:"website" validate:"omitempty,url"`
}

func (SponsorInfoInput) Step() Step { return StepSponsorInfo }

func (in SponsorInfoInput) apply(draft *model.Application) {
	draft.Github = optional(in.Github)
	draft.LinkedIn = optional(in.LinkedIn)
	draft.Website = optional(in.Website)
}

type ReviewInput struct {
	AckApplication bool `json:"ack_application" validate:"accepted"`
	AckMLHCOC      bool `json:"ack_mlh_coc" validate:"accepted"`
	AckMLHPrivacy  bool `json:"ack_mlh_privacy" validate:"accepted"`
	OptInMLHEmails bool `json:"opt_in_mlh_emails"`
}

func (ReviewInput) Step() Step { return StepReview }

func (in ReviewInput) apply(draft *model.Application) {
	draft.AckApplication = in.AckApplication
	draft.AckMLHCOC = in.AckMLHCOC
	draft.AckMLHPrivacy = in.AckMLHPrivacy
	draft.OptInMLHEmails = in.OptInMLHEmails
}

// DecodeInput parses raw JSON into the input type for step.
func DecodeInput(step Step, raw json.RawMessage) (Input, error) {
	var (
		input Input
		err   error
	)
	switch step {
	case StepPersonalInfo:
		var in PersonalInfoInput
		err = json.Unmarshal(raw, &in)
		input = in
	case StepSchoolInfo:
		var in SchoolInfoInput
		err = json.Unmarshal(raw, &in)
		input = in
	case StepExperience:
		var in ExperienceInput
		err = json.Unmarshal(raw, &in)
		input = in
	case StepShortAnswers:
		var in ShortAnswersInput
		err = json.Unmarshal(raw, &in)
		input = in
	case StepEventInfo:
		var in EventInfoInput
		err = json.Unmarshal(raw, &in)
		input = in
	case StepSponsorInfo:
		var in SponsorInfoInput
		err = json.Unmarshal(raw, &in)
		input = in
	case StepReview:
		var in ReviewInput
		err = json.Unmarshal(raw, &in)
		input = in
	default:
		return nil, fmt.Errorf("unknown step %d", int(step))
	}
	if err != nil {
		return nil, err
	}
	return input, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
