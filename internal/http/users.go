package http

import (
	"net/http"
	"strings"

	"github.com/hackutd/harp-sub001/internal/model"
)

type checkEmailResponse struct {
	Exists     bool              `json:"exists"`
	AuthMethod *model.AuthMethod `json:"auth_method,omitempty"`
}

// handleCheckEmail tells the sign-in page which provider an email registered
// with, so returning users are sent to the right flow.
func (s *Server) handleCheckEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if err := s.validate.Var(email, "required,email,max=320"); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_email")
		return
	}

	users, err := s.users.GetByEmails(r.Context(), []string{email})
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if len(users) == 0 {
		writeJSON(w, http.StatusOK, checkEmailResponse{})
		return
	}
	method := users[0].AuthMethod
	writeJSON(w, http.StatusOK, checkEmailResponse{Exists: true, AuthMethod: &method})
}

type searchUsersRequest struct {
	Emails []string `json:"emails" validate:"required,min=1,max=50,dive,required,email"`
}

type searchUsersResponse struct {
	Found    []model.User `json:"found"`
	NotFound []string     `json:"not_found"`
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	var req searchUsersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	emails := make([]string, 0, len(req.Emails))
	seen := make(map[string]struct{}, len(req.Emails))
	for _, email := range req.Emails {
		email = strings.TrimSpace(email)
		key := strings.ToLower(email)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		emails = append(emails, email)
	}
	req.Emails = emails
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_emails")
		return
	}

	users, err := s.users.GetByEmails(r.Context(), req.Emails)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	found := make(map[string]struct{}, len(users))
	for _, user := range users {
		found[strings.ToLower(user.Email)] = struct{}{}
	}
	resp := searchUsersResponse{Found: users, NotFound: []string{}}
	for _, email := range req.Emails {
		if _, ok := found[strings.ToLower(email)]; !ok {
			resp.NotFound = append(resp.NotFound, email)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
