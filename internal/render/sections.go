// Package render projects applications into read-only detail sections. Every
// function here is pure: absent optional data renders as Fallback and nothing
// returns an error.
package render

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hackutd/harp-sub001/internal/model"
)

const Fallback = "N/A"

type Field struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	Required bool   `json:"required,omitempty"`
	Missing  bool   `json:"missing,omitempty"`
	Link     bool   `json:"link,omitempty"`
}

type Section struct {
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

func (s Section) Empty() bool {
	return len(s.Fields) == 0
}

func PersonalInfo(app model.Application) Section {
	return Section{
		Title: "Personal Info",
		Fields: []Field{
			text("First Name", app.FirstName),
			text("Last Name", app.LastName),
			plain("Email", app.Email),
			text("Phone", app.PhoneE164),
			count("Age", app.Age),
			text("Country of Residence", app.CountryOfResidence),
			text("Gender", app.Gender),
		},
	}
}

func Demographics(app model.Application) Section {
	return Section{
		Title: "Demographics",
		Fields: []Field{
			text("Race", app.Race),
			text("Ethnicity", app.Ethnicity),
		},
	}
}

func Education(app model.Application) Section {
	return Section{
		Title: "Education",
		Fields: []Field{
			text("University", app.University),
			text("Major", app.Major),
			text("Level of Study", app.LevelOfStudy),
		},
	}
}

func Experience(app model.Application) Section {
	return Section{
		Title: "Experience",
		Fields: []Field{
			count("Hackathons Attended", app.HackathonsAttendedCount),
			text("Software Experience", app.SoftwareExperienceLevel),
			text("Heard About", app.HeardAbout),
		},
	}
}

// ShortAnswers renders one field per question in ascending display order.
// Required questions without an answer are flagged, not rejected.
func ShortAnswers(app model.Application, questions []model.ShortAnswerQuestion) Section {
	section := Section{Title: "Short Answers"}
	if len(questions) == 0 {
		return section
	}

	ordered := append([]model.ShortAnswerQuestion(nil), questions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DisplayOrder < ordered[j].DisplayOrder
	})

	section.Fields = make([]Field, 0, len(ordered))
	for _, q := range ordered {
		answer := strings.TrimSpace(app.ShortAnswerResponses[q.ID])
		field := Field{Label: q.Question, Value: answer, Required: q.Required}
		if answer == "" {
			field.Value = Fallback
			field.Missing = true
		}
		section.Fields = append(section.Fields, field)
	}
	return section
}

func EventPreferences(app model.Application) Section {
	dietary := Field{Label: "Dietary Restrictions", Value: "None"}
	if len(app.DietaryRestrictions) > 0 {
		dietary.Value = strings.Join(app.DietaryRestrictions, ", ")
	}
	section := Section{
		Title:  "Event Preferences",
		Fields: []Field{text("Shirt Size", app.ShirtSize), dietary},
	}
	if app.Accommodations != nil && strings.TrimSpace(*app.Accommodations) != "" {
		section.Fields = append(section.Fields, Field{Label: "Accommodations", Value: *app.Accommodations})
	}
	return section
}

// Links only lists links that are present; with none it is empty.
func Links(app model.Application) Section {
	section := Section{Title: "Links"}
	for _, link := range []struct {
		label string
		value *string
	}{
		{"GitHub", app.Github},
		{"LinkedIn", app.LinkedIn},
		{"Website", app.Website},
	} {
		if link.value == nil || strings.TrimSpace(*link.value) == "" {
			continue
		}
		section.Fields = append(section.Fields, Field{Label: link.label, Value: *link.value, Link: true})
	}
	return section
}

func Timeline(app model.Application) Section {
	return Section{
		Title: "Timeline",
		Fields: []Field{
			timestamp("Submitted", app.SubmittedAt),
			timestamp("Created", &app.CreatedAt),
			timestamp("Last Updated", &app.UpdatedAt),
		},
	}
}

// Detail returns the admin detail panel in display order, skipping empty
// optional sections.
func Detail(app model.Application, questions []model.ShortAnswerQuestion) []Section {
	all := []Section{
		PersonalInfo(app),
		Demographics(app),
		Education(app),
		Experience(app),
		ShortAnswers(app, questions),
		EventPreferences(app),
		Links(app),
		Timeline(app),
	}
	out := make([]Section, 0, len(all))
	for _, section := range all {
		if section.Empty() {
			continue
		}
		out = append(out, section)
	}
	return out
}

func text(label string, value *string) Field {
	if value == nil || strings.TrimSpace(*value) == "" {
		return Field{Label: label, Value: Fallback, Missing: true}
	}
	return Field{Label: label, Value: *value}
}

func plain(label, value string) Field {
	return text(label, &value)
}

func count(label string, value *int16) Field {
	if value == nil {
		return Field{Label: label, Value: Fallback, Missing: true}
	}
	return Field{Label: label, Value: strconv.Itoa(int(*value))}
}

func timestamp(label string, value *time.Time) Field {
	if value == nil || value.IsZero() {
		return Field{Label: label, Value: Fallback, Missing: true}
	}
	return Field{Label: label, Value: value.UTC().Format(time.RFC3339)}
}
