package wizard

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/hackutd/harp-sub001/internal/model"
)

// ValidationError carries per-field messages keyed by JSON field name. It
// blocks navigation but never ends the session.
type ValidationError struct {
	Step   Step              `json:"step"`
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("%s: invalid fields %s", e.Step, strings.Join(keys, ", "))
}

// NewValidator returns the validator used for step input, with json tag names,
// "notblank" for free text and the "accepted" rule for acknowledgments.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("accepted", func(fl validator.FieldLevel) bool {
		return fl.Field().Kind() == reflect.Bool && fl.Field().Bool()
	})
	return v
}

func validateInput(v *validator.Validate, input Input) error {
	err := v.Struct(input)
	if err == nil {
		return nil
	}
	return &ValidationError{Step: input.Step(), Fields: FieldErrors(err)}
}

// FieldErrors turns a validator error into messages keyed by JSON field
// name.
func FieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldKey(fe)] = message(fe)
	}
	return fields
}

func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "accepted":
		return "must be accepted"
	case "e164":
		return "must be in E.164 format (e.g., +12025551234)"
	case "url":
		return "must be a valid URL"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

// MissingFields lists what a draft still needs before submission, in step
// order. Required short answers are reported as "short_answer:<id>".
func MissingFields(draft model.Application, questions []model.ShortAnswerQuestion) []string {
	var missing []string
	need := func(name string, present bool) {
		if !present {
			missing = append(missing, name)
		}
	}
	str := func(value *string) bool {
		return value != nil && strings.TrimSpace(*value) != ""
	}

	need("first_name", str(draft.FirstName))
	need("last_name", str(draft.LastName))
	need("phone_e164", str(draft.PhoneE164))
	need("age", draft.Age != nil)
	need("country_of_residence", str(draft.CountryOfResidence))
	need("gender", str(draft.Gender))
	need("race", str(draft.Race))
	need("ethnicity", str(draft.Ethnicity))
	need("university", str(draft.University))
	need("major", str(draft.Major))
	need("level_of_study", str(draft.LevelOfStudy))
	need("hackathons_attended_count", draft.HackathonsAttendedCount != nil)
	need("software_experience_level", str(draft.SoftwareExperienceLevel))
	need("heard_about", str(draft.HeardAbout))

	ordered := append([]model.ShortAnswerQuestion(nil), questions...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].DisplayOrder < ordered[j].DisplayOrder })
	for _, q := range ordered {
		if q.Required {
			need("short_answer:"+q.ID, strings.TrimSpace(draft.ShortAnswerResponses[q.ID]) != "")
		}
	}

	need("shirt_size", str(draft.ShirtSize))
	need("ack_application", draft.AckApplication)
	need("ack_mlh_coc", draft.AckMLHCOC)
	need("ack_mlh_privacy", draft.AckMLHPrivacy)
	return missing
}

// IncompleteError converts missing fields into a validation error anchored at
// the earliest step that owns one of them.
func IncompleteError(missing []string) *ValidationError {
	verr := &ValidationError{Step: lastStep, Fields: make(map[string]string, len(missing))}
	for _, field := range missing {
		verr.Fields[field] = "is required"
		if step, ok := StepForField(field); ok && step < verr.Step {
			verr.Step = step
		}
	}
	return verr
}
