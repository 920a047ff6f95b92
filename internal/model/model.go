package model

import "time"

type ApplicationStatus string

const (
	StatusDraft      ApplicationStatus = "draft"
	StatusSubmitted  ApplicationStatus = "submitted"
	StatusAccepted   ApplicationStatus = "accepted"
	StatusRejected   ApplicationStatus = "rejected"
	StatusWaitlisted ApplicationStatus = "waitlisted"
)

var statusTransitions = map[ApplicationStatus][]ApplicationStatus{
	StatusDraft:     {StatusSubmitted},
	StatusSubmitted: {StatusAccepted, StatusRejected, StatusWaitlisted},
}

func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusAccepted, StatusRejected, StatusWaitlisted:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is a forward move from s. Terminal
// statuses have no outgoing transitions.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ApplicationStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusWaitlisted
}

type UserRole string

const (
	RoleHacker     UserRole = "hacker"
	RoleAdmin      UserRole = "admin"
	RoleSuperAdmin UserRole = "super_admin"
)

var roleLevel = map[UserRole]int{
	RoleHacker:     1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// AtLeast reports whether r grants at least the access of min. Unknown roles
// grant nothing.
func (r UserRole) AtLeast(min UserRole) bool {
	level, ok := roleLevel[r]
	return ok && level >= roleLevel[min]
}

type AuthMethod string

const (
	AuthMethodPasswordless AuthMethod = "passwordless"
	AuthMethodGoogle       AuthMethod = "google"
)

func (m AuthMethod) Valid() bool {
	return m == AuthMethodPasswordless || m == AuthMethodGoogle
}

type User struct {
	ID                string     `json:"id"`
	IdentityID        string     `json:"identity_id"`
	Email             string     `json:"email"`
	Role              UserRole   `json:"role"`
	AuthMethod        AuthMethod `json:"auth_method"`
	ProfilePictureURL *string    `json:"profile_picture_url"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type ShortAnswerQuestion struct {
	ID           string `json:"id" validate:"required,min=1,max=50"`
	Question     string `json:"question" validate:"required,min=1,max=500"`
	Required     bool   `json:"required"`
	DisplayOrder int    `json:"display_order" validate:"min=0"`
}

// ShortAnswerResponses maps question ids to free-text answers.
type ShortAnswerResponses map[string]string

type Application struct {
	ID     string            `json:"id"`
	UserID string            `json:"user_id"`
	Email  string            `json:"email,omitempty"`
	Status ApplicationStatus `json:"status"`

	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	PhoneE164 *string `json:"phone_e164"`
	Age       *int16  `json:"age"`

	CountryOfResidence *string `json:"country_of_residence"`
	Gender             *string `json:"gender"`
	Race               *string `json:"race"`
	Ethnicity          *string `json:"ethnicity"`

	University   *string `json:"university"`
	Major        *string `json:"major"`
	LevelOfStudy *string `json:"level_of_study"`

	ShortAnswerResponses ShortAnswerResponses `json:"short_answer_responses"`

	HackathonsAttendedCount *int16  `json:"hackathons_attended_count"`
	SoftwareExperienceLevel *string `json:"software_experience_level"`
	HeardAbout              *string `json:"heard_about"`

	ShirtSize           *string  `json:"shirt_size"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
	Accommodations      *string  `json:"accommodations"`

	Github   *string `json:"github"`
	LinkedIn *string `json:"linkedin"`
	Website  *string `json:"website"`

	AckApplication bool `json:"ack_application"`
	AckMLHCOC      bool `json:"ack_mlh_coc"`
	AckMLHPrivacy  bool `json:"ack_mlh_privacy"`
	OptInMLHEmails bool `json:"opt_in_mlh_emails"`

	SubmittedAt *time.Time `json:"submitted_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Clone returns a deep copy so drafts can be handed out without aliasing.
func (a Application) Clone() Application {
	out := a
	if a.ShortAnswerResponses != nil {
		out.ShortAnswerResponses = make(ShortAnswerResponses, len(a.ShortAnswerResponses))
		for k, v := range a.ShortAnswerResponses {
			out.ShortAnswerResponses[k] = v
		}
	}
	if a.DietaryRestrictions != nil {
		out.DietaryRestrictions = append([]string(nil), a.DietaryRestrictions...)
	}
	return out
}

type ReviewVote string

const (
	VoteAccept   ReviewVote = "accept"
	VoteReject   ReviewVote = "reject"
	VoteWaitlist ReviewVote = "waitlist"
)

type Review struct {
	ID            string      `json:"id"`
	ApplicationID string      `json:"application_id"`
	AdminID       string      `json:"admin_id"`
	Vote          *ReviewVote `json:"vote"`
	Notes         *string     `json:"notes"`
	AssignedAt    time.Time   `json:"assigned_at"`
	ReviewedAt    *time.Time  `json:"reviewed_at"`
}

type ReviewWithApplicant struct {
	Review
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Email      string  `json:"email"`
	University *string `json:"university"`
	Major      *string `json:"major"`
}

type ScanCategory string

const (
	ScanCategoryCheckIn ScanCategory = "check_in"
	ScanCategoryMeal    ScanCategory = "meal"
	ScanCategorySwag    ScanCategory = "swag"
)

// ScanType is something a hacker's QR code can be scanned for at the event.
// Every category other than check_in requires a prior check-in.
type ScanType struct {
	Name        string       `json:"name" validate:"required,min=1,max=50"`
	DisplayName string       `json:"display_name" validate:"required,min=1,max=100"`
	Category    ScanCategory `json:"category" validate:"required,oneof=check_in meal swag"`
	IsActive    bool         `json:"is_active"`
}

type Scan struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ScanType  string    `json:"scan_type"`
	ScannedBy string    `json:"scanned_by"`
	ScannedAt time.Time `json:"scanned_at"`
}

type ScanStat struct {
	ScanType string `json:"scan_type"`
	Count    int    `json:"count"`
}

func StringPtr(value string) *string {
	return &value
}

func Int16Ptr(value int16) *int16 {
	return &value
}
