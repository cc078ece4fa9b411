package candidate

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusNew       Status = "new"
	StatusScreening Status = "screening"
	StatusInterview Status = "interview"
	StatusOffer     Status = "offer"
	StatusHired     Status = "hired"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
)

// Statuses returns every pipeline status in pipeline order.
func Statuses() []Status {
	return []Status{
		StatusNew, StatusScreening, StatusInterview, StatusOffer,
		StatusHired, StatusRejected, StatusWithdrawn,
	}
}

func (s Status) Valid() bool {
	for _, v := range Statuses() {
		if s == v {
			return true
		}
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// DefaultStage is the stage label a status change writes when the caller
// does not pick one.
func DefaultStage(s Status) string {
	switch s {
	case StatusScreening:
		return "Phone Screen"
	case StatusInterview:
		return "Technical Interview"
	case StatusOffer:
		return "Offer Extended"
	case StatusHired:
		return "Offer Accepted"
	case StatusRejected:
		return "Rejected"
	case StatusWithdrawn:
		return "Withdrawn"
	default:
		return "Applied"
	}
}

type Qualification string

const (
	Qualified    Qualification = "qualified"
	NotQualified Qualification = "not_qualified"
	Pending      Qualification = "pending"
)

// Candidate is the one shape the rest of the service works with. Remote rows
// are converted with FromRecord.
type Candidate struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Location  string `json:"location,omitempty"`

	CurrentPosition   string  `json:"current_position,omitempty"`
	CurrentCompany    string  `json:"current_company,omitempty"`
	YearsOfExperience float64 `json:"years_of_experience"`
	ExpectedSalary    string  `json:"expected_salary,omitempty"`
	Citizenship       string  `json:"citizenship,omitempty"`
	LinkedIn          string  `json:"linkedin,omitempty"`
	Portfolio         string  `json:"portfolio,omitempty"`
	Avatar            string  `json:"avatar,omitempty"`

	Position       string        `json:"position"`
	Department     string        `json:"department,omitempty"`
	Source         string        `json:"source,omitempty"`
	AppliedDate    *time.Time    `json:"applied_date,omitempty"`
	ResumeReceived bool          `json:"resume_received"`
	Qualified      Qualification `json:"qualified,omitempty"`

	Status Status `json:"status"`
	Stage  string `json:"stage"`

	Rating *int `json:"rating,omitempty"`
	Viewed bool `json:"viewed"`

	RecruiterID string    `json:"recruiter_id,omitempty"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AppliedAt is the timestamp list ordering uses: the applied date when set,
// otherwise the creation time.
func (c Candidate) AppliedAt() time.Time {
	if c.AppliedDate != nil && !c.AppliedDate.IsZero() {
		return *c.AppliedDate
	}
	return c.CreatedAt
}

func (c Candidate) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
