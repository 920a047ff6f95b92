package applications

import "github.com/hackutd/harp-sub001/internal/model"

// Patch is a partial draft update. Absent fields keep their stored value.
type Patch struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	PhoneE164 *string `json:"phone_e164" validate:"omitempty,e164"`
	Age       *int16  `json:"age" validate:"omitempty,min=1,max=150"`

	CountryOfResidence *string `json:"country_of_residence" validate:"omitempty,min=1"`
	Gender             *string `json:"gender" validate:"omitempty,min=1"`
	Race               *string `json:"race" validate:"omitempty,min=1"`
	Ethnicity          *string `json:"ethnicity" validate:"omitempty,min=1"`

	University   *string `json:"university" validate:"omitempty,min=1"`
	Major        *string `json:"major" validate:"omitempty,min=1"`
	LevelOfStudy *string `json:"level_of_study" validate:"omitempty,min=1"`

	ShortAnswerResponses map[string]string `json:"short_answer_responses" validate:"omitempty,dive,keys,required,max=50,endkeys,max=5000"`

	HackathonsAttendedCount *int16  `json:"hackathons_attended_count" validate:"omitempty,min=0"`
	SoftwareExperienceLevel *string `json:"software_experience_level" validate:"omitempty,min=1"`
	HeardAbout              *string `json:"heard_about" validate:"omitempty,min=1"`

	ShirtSize           *string   `json:"shirt_size" validate:"omitempty,min=1"`
	DietaryRestrictions *[]string `json:"dietary_restrictions"`
	Accommodations      *string   `json:"accommodations"`

	Github   *string `json:"github" validate:"omitempty,url"`
	LinkedIn *string `json:"linkedin" validate:"omitempty,url"`
	Website  *string `json:"website" validate:"omitempty,url"`

	AckApplication *bool `json:"ack_application"`
	AckMLHCOC      *bool `json:"ack_mlh_coc"`
	AckMLHPrivacy  *bool `json:"ack_mlh_privacy"`
	OptInMLHEmails *bool `json:"opt_in_mlh_emails"`
}

func (p Patch) apply(app *model.Application) {
	setString(&app.FirstName, p.FirstName)
	setString(&app.LastName, p.LastName)
	setString(&app.PhoneE164, p.PhoneE164)
	if p.Age != nil {
		app.Age = model.Int16Ptr(*p.Age)
	}
	setString(&app.CountryOfResidence, p.CountryOfResidence)
	setString(&app.Gender, p.Gender)
	setString(&app.Race, p.Race)
	setString(&app.Ethnicity, p.Ethnicity)
	setString(&app.University, p.University)
	setString(&app.Major, p.Major)
	setString(&app.LevelOfStudy, p.LevelOfStudy)
	if p.ShortAnswerResponses != nil {
		responses := make(model.ShortAnswerResponses, len(p.ShortAnswerResponses))
		for id, answer := range p.ShortAnswerResponses {
			responses[id] = answer
		}
		app.ShortAnswerResponses = responses
	}
	if p.HackathonsAttendedCount != nil {
		app.HackathonsAttendedCount = model.Int16Ptr(*p.HackathonsAttendedCount)
	}
	setString(&app.SoftwareExperienceLevel, p.SoftwareExperienceLevel)
	setString(&app.HeardAbout, p.HeardAbout)
	setString(&app.ShirtSize, p.ShirtSize)
	if p.DietaryRestrictions != nil {
		app.DietaryRestrictions = append([]string{}, (*p.DietaryRestrictions)...)
	}
	setString(&app.Accommodations, p.Accommodations)
	setString(&app.Github, p.Github)
	setString(&app.LinkedIn, p.LinkedIn)
	setString(&app.Website, p.Website)
	setBool(&app.AckApplication, p.AckApplication)
	setBool(&app.AckMLHCOC, p.AckMLHCOC)
	setBool(&app.AckMLHPrivacy, p.AckMLHPrivacy)
	setBool(&app.OptInMLHEmails, p.OptInMLHEmails)
}

func setString(dst **string, value *string) {
	if value != nil {
		*dst = model.StringPtr(*value)
	}
}

func setBool(dst *bool, value *bool) {
	if value != nil {
		*dst = *value
	}
}
