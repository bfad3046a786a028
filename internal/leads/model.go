package leads

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Status is a stage of the sales pipeline.
type Status string

const (
	StatusNew          Status = "New"
	StatusEngaged      Status = "Engaged"
	StatusProposalSent Status = "Proposal Sent"
	StatusClosedWon    Status = "Closed-Won"
	StatusClosedLost   Status = "Closed-Lost"
)

// Statuses lists every pipeline stage in display order.
var Statuses = []Status{
	StatusNew,
	StatusEngaged,
	StatusProposalSent,
	StatusClosedWon,
	StatusClosedLost,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

const (
	nameMinLength = 2
	nameMaxLength = 100
)

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// Lead is a sales prospect tracked through the pipeline.
type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateLeadRequest represents the request body for creating a lead
type CreateLeadRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status Status `json:"status,omitempty"`
}

// Normalize trims the name, lowercases the email and defaults the status.
func (r *CreateLeadRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
	if r.Status == "" {
		r.Status = StatusNew
	}
}

// Validate checks a normalized create request.
func (r *CreateLeadRequest) Validate() error {
	if r.Name == "" || r.Email == "" {
		return ValidationError("Name and email are required")
	}
	var problems []string
	if msg := validateName(r.Name); msg != "" {
		problems = append(problems, msg)
	}
	if msg := validateEmail(r.Email); msg != "" {
		problems = append(problems, msg)
	}
	if !r.Status.Valid() {
		problems = append(problems, invalidStatusMessage)
	}
	return validationProblems(problems)
}

// UpdateLeadRequest carries the fields to change; nil fields are left alone.
type UpdateLeadRequest struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Status *Status `json:"status,omitempty"`
}

// Normalize trims and lowercases the provided fields. Blank values are
// treated as absent.
func (r *UpdateLeadRequest) Normalize() {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if name == "" {
			r.Name = nil
		} else {
			r.Name = &name
		}
	}
	if r.Email != nil {
		email := NormalizeEmail(*r.Email)
		if email == "" {
			r.Email = nil
		} else {
			r.Email = &email
		}
	}
	if r.Status != nil && *r.Status == "" {
		r.Status = nil
	}
}

// Validate checks a normalized update request.
func (r *UpdateLeadRequest) Validate() error {
	var problems []string
	if r.Name != nil {
		if msg := validateName(*r.Name); msg != "" {
			problems = append(problems, msg)
		}
	}
	if r.Email != nil {
		if msg := validateEmail(*r.Email); msg != "" {
			problems = append(problems, msg)
		}
	}
	if r.Status != nil && !r.Status.Valid() {
		problems = append(problems, invalidStatusMessage)
	}
	return validationProblems(problems)
}

// Empty reports whether the request changes nothing.
func (r *UpdateLeadRequest) Empty() bool {
	return r.Name == nil && r.Email == nil && r.Status == nil
}

// Apply copies the provided fields onto lead.
func (r *UpdateLeadRequest) Apply(lead *Lead) {
	if r.Name != nil {
		lead.Name = *r.Name
	}
	if r.Email != nil {
		lead.Email = *r.Email
	}
	if r.Status != nil {
		lead.Status = *r.Status
	}
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

const invalidStatusMessage = "Status must be one of New, Engaged, Proposal Sent, Closed-Won, Closed-Lost"

func validateName(name string) string {
	n := utf8.RuneCountInString(name)
	switch {
	case n < nameMinLength:
		return "Name must be at least 2 characters long"
	case n > nameMaxLength:
		return "Name cannot exceed 100 characters"
	}
	return ""
}

func validateEmail(email string) string {
	if !emailPattern.MatchString(email) {
		return "Please enter a valid email"
	}
	return ""
}

func validationProblems(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return ValidationError(strings.Join(problems, ", "))
}
