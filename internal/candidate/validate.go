package candidate

import (
	"fmt"
	"net/mail"
	"strings"
)

// ValidationError is a client-side rejection; nothing has been sent to the
// database when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// CreateInput is what the add-candidate form submits.
type CreateInput struct {
	FirstName         string  `json:"first_name"`
	LastName          string  `json:"last_name"`
	Email             string  `json:"email"`
	Phone             string  `json:"phone"`
	Location          string  `json:"location"`
	Position          string  `json:"position"`
	Department        string  `json:"department"`
	CurrentPosition   string  `json:"current_position"`
	CurrentCompany    string  `json:"current_company"`
	YearsOfExperience float64 `json:"years_of_experience"`
	Source            string  `json:"source"`
	RecruiterID       string  `json:"recruiter_id"`
	RecruiterName     string  `json:"recruiter_name"`
}

func (in *CreateInput) Normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Position = strings.TrimSpace(in.Position)
	// recruiter_id is a uuid column; anything else is dropped
	if len(strings.TrimSpace(in.RecruiterID)) != 36 {
		in.RecruiterID = ""
	}
}

func (in CreateInput) Validate() error {
	if in.FirstName == "" {
		return invalid("first_name", "required")
	}
	if in.LastName == "" {
		return invalid("last_name", "required")
	}
	if in.Position == "" {
		return invalid("position", "required")
	}
	if err := ValidateEmail(in.Email); err != nil {
		return err
	}
	if in.YearsOfExperience < 0 {
		return invalid("years_of_experience", "must not be negative")
	}
	return nil
}

func ValidateEmail(email string) error {
	if email == "" {
		return invalid("email", "required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("email", "malformed address")
	}
	return nil
}

func ValidateRating(r int) error {
	if r < 1 || r > 5 {
		return invalid("rating", "must be between 1 and 5")
	}
	return nil
}

// StatusChange moves a candidate through the pipeline. An empty Stage takes
// DefaultStage(Status).
type StatusChange struct {
	Status Status `json:"status"`
	Stage  string `json:"stage"`
}

func (s *StatusChange) Validate() error {
	st, err := ParseStatus(string(s.Status))
	if err != nil {
		return invalid("status", err.Error())
	}
	s.Status = st
	if strings.TrimSpace(s.Stage) == "" {
		s.Stage = DefaultStage(st)
	}
	return nil
}

// Patch is an edit of profile fields. Nil fields are left untouched.
type Patch struct {
	FirstName         *string  `json:"first_name,omitempty"`
	LastName          *string  `json:"last_name,omitempty"`
	Email             *string  `json:"email,omitempty"`
	Phone             *string  `json:"phone,omitempty"`
	Location          *string  `json:"location,omitempty"`
	CurrentPosition   *string  `json:"current_position,omitempty"`
	CurrentCompany    *string  `json:"current_company,omitempty"`
	YearsOfExperience *float64 `json:"years_of_experience,omitempty"`
	ExpectedSalary    *string  `json:"expected_salary,omitempty"`
	Citizenship       *string  `json:"citizenship,omitempty"`
	LinkedIn          *string  `json:"linkedin,omitempty"`
	Portfolio         *string  `json:"portfolio,omitempty"`
	Position          *string  `json:"position,omitempty"`
	Department        *string  `json:"department,omitempty"`
	Source            *string  `json:"source,omitempty"`
	ResumeReceived    *bool    `json:"resume_received,omitempty"`
	Qualified         *string  `json:"qualified,omitempty"`
}

// Columns returns the column/value pairs to write, in a fixed order.
func (p Patch) Columns() ([]string, []any) {
	var cols []string
	var vals []any
	add := func(col string, v any) {
		cols = append(cols, col)
		vals = append(vals, v)
	}
	if p.FirstName != nil {
		add("first_name", *p.FirstName)
	}
	if p.LastName != nil {
		add("last_name", *p.LastName)
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.Phone != nil {
		add("phone", *p.Phone)
	}
	if p.Location != nil {
		add("location", *p.Location)
	}
	if p.CurrentPosition != nil {
		add("current_position", *p.CurrentPosition)
	}
	if p.CurrentCompany != nil {
		add("current_company", *p.CurrentCompany)
	}
	if p.YearsOfExperience != nil {
		add("years_of_experience", *p.YearsOfExperience)
	}
	if p.ExpectedSalary != nil {
		add("expected_salary", *p.ExpectedSalary)
	}
	if p.Citizenship != nil {
		add("citizenship", *p.Citizenship)
	}
	if p.LinkedIn != nil {
		add("linkedin", *p.LinkedIn)
	}
	if p.Portfolio != nil {
		add("portfolio", *p.Portfolio)
	}
	if p.Position != nil {
		add("position", *p.Position)
	}
	if p.Department != nil {
		add("department", *p.Department)
	}
	if p.Source != nil {
		add("source", *p.Source)
	}
	if p.ResumeReceived != nil {
		add("resume_received", *p.ResumeReceived)
	}
	if p.Qualified != nil {
		add("qualified", *p.Qualified)
	}
	return cols, vals
}

func (p Patch) Validate() error {
	if p.FirstName != nil && strings.TrimSpace(*p.FirstName) == "" {
		return invalid("first_name", "must not be empty")
	}
	if p.LastName != nil && strings.TrimSpace(*p.LastName) == "" {
		return invalid("last_name", "must not be empty")
	}
	if p.Email != nil {
		if err := ValidateEmail(*p.Email); err != nil {
			return err
		}
	}
	if p.YearsOfExperience != nil && *p.YearsOfExperience < 0 {
		return invalid("years_of_experience", "must not be negative")
	}
	if p.Qualified != nil {
		switch Qualification(*p.Qualified) {
		case Qualified, NotQualified, Pending:
		default:
			return invalid("qualified", "must be qualified, not_qualified or pending")
		}
	}
	cols, _ := p.Columns()
	if len(cols) == 0 {
		return invalid("patch", "no fields to update")
	}
	return nil
}
