package candidate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrMissingID = errors.New("record has no id")

// field lookups accept both the database naming and the client naming.
var aliases = map[string][]string{
	"id":                  {"id"},
	"first_name":          {"first_name", "firstName"},
	"last_name":           {"last_name", "lastName"},
	"email":               {"email"},
	"phone":               {"phone"},
	"location":            {"location"},
	"current_position":    {"current_position", "currentPosition"},
	"current_company":     {"current_company", "currentCompany"},
	"years_of_experience": {"years_of_experience", "yearsOfExperience"},
	"expected_salary":     {"expected_salary", "expectedSalary"},
	"citizenship":         {"citizenship"},
	"linkedin":            {"linkedin", "linked_in", "linkedIn"},
	"portfolio":           {"portfolio"},
	"avatar":              {"avatar", "avatar_url"},
	"position":            {"position"},
	"department":          {"department"},
	"source":              {"source"},
	"applied_date":        {"applied_date", "appliedDate"},
	"resume_received":     {"resume_received", "resumeReceived"},
	"qualified":           {"qualified"},
	"status":              {"status"},
	"stage":               {"stage"},
	"rating":              {"rating"},
	"viewed":              {"viewed"},
	"recruiter_id":        {"recruiter_id", "recruiterId", "recruiter"},
	"version":             {"version"},
	"created_at":          {"created_at", "createdAt"},
	"updated_at":          {"updated_at", "updatedAt"},
}

type record map[string]any

func (r record) lookup(field string) (any, bool) {
	for _, k := range aliases[field] {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (r record) str(field string) string {
	v, ok := r.lookup(field)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func (r record) boolean(field string) (bool, error) {
	v, ok := r.lookup(field)
	if !ok {
		return false, nil
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, fmt.Errorf("%s: %w", field, err)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%s: unexpected type %T", field, v)
	}
}

func (r record) number(field string) (float64, bool, error) {
	v, ok := r.lookup(field)
	if !ok {
		return 0, false, nil
	}
	switch t := v.(type) {
	case float64:
		return t, true, nil
	case float32:
		return float64(t), true, nil
	case int:
		return float64(t), true, nil
	case int32:
		return float64(t), true, nil
	case int64:
		return float64(t), true, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false, fmt.Errorf("%s: %w", field, err)
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("%s: unexpected type %T", field, v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (r record) timestamp(field string) (time.Time, error) {
	v, ok := r.lookup(field)
	if !ok {
		return time.Time{}, nil
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return ParseTime(t)
	default:
		return time.Time{}, fmt.Errorf("%s: unexpected type %T", field, v)
	}
}

// ParseTime accepts the timestamp formats Postgres and JSON clients produce.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", s)
}

// FromRecord converts a loosely typed row (change-feed payload or client
// JSON) into a Candidate. Only a missing id or an unparseable value is an
// error; absent optional fields stay zero.
func FromRecord(m map[string]any) (Candidate, error) {
	r := record(m)
	c := Candidate{
		ID:              r.str("id"),
		FirstName:       r.str("first_name"),
		LastName:        r.str("last_name"),
		Email:           r.str("email"),
		Phone:           r.str("phone"),
		Location:        r.str("location"),
		CurrentPosition: r.str("current_position"),
		CurrentCompany:  r.str("current_company"),
		ExpectedSalary:  r.str("expected_salary"),
		Citizenship:     r.str("citizenship"),
		LinkedIn:        r.str("linkedin"),
		Portfolio:       r.str("portfolio"),
		Avatar:          r.str("avatar"),
		Position:        r.str("position"),
		Department:      r.str("department"),
		Source:          r.str("source"),
		Qualified:       Qualification(r.str("qualified")),
		Status:          Status(strings.ToLower(r.str("status"))),
		Stage:           r.str("stage"),
		RecruiterID:     r.str("recruiter_id"),
	}
	if c.ID == "" {
		return Candidate{}, ErrMissingID
	}

	var err error
	if c.ResumeReceived, err = r.boolean("resume_received"); err != nil {
		return Candidate{}, err
	}
	if c.Viewed, err = r.boolean("viewed"); err != nil {
		return Candidate{}, err
	}
	if n, ok, err := r.number("years_of_experience"); err != nil {
		return Candidate{}, err
	} else if ok {
		c.YearsOfExperience = n
	}
	if n, ok, err := r.number("rating"); err != nil {
		return Candidate{}, err
	} else if ok {
		rating := int(n)
		c.Rating = &rating
	}
	if n, ok, err := r.number("version"); err != nil {
		return Candidate{}, err
	} else if ok {
		c.Version = int64(n)
	}
	if c.CreatedAt, err = r.timestamp("created_at"); err != nil {
		return Candidate{}, err
	}
	if c.UpdatedAt, err = r.timestamp("updated_at"); err != nil {
		return Candidate{}, err
	}
	applied, err := r.timestamp("applied_date")
	if err != nil {
		return Candidate{}, err
	}
	if !applied.IsZero() {
		c.AppliedDate = &applied
	}
	if c.Status == "" {
		c.Status = StatusNew
	}
	if !c.Status.Valid() {
		return Candidate{}, fmt.Errorf("status: unknown value %q", c.Status)
	}
	return c, nil
}
