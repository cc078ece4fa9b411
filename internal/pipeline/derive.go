package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"recruitflow/internal/candidate"
)

// FilterMode is "all", "new" (never opened) or a pipeline status.
type FilterMode string

const (
	FilterAll FilterMode = "all"
	FilterNew FilterMode = "new"
)

func ParseFilterMode(s string) (FilterMode, error) {
	m := FilterMode(strings.ToLower(strings.TrimSpace(s)))
	switch {
	case m == "":
		return FilterAll, nil
	case m == FilterAll, m == FilterNew:
		return m, nil
	case candidate.Status(m).Valid():
		return m, nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// Matches is the search predicate. The query is compared lowercased against
// names, position, qualification, stage and status. A candidate whose resume
// has been received also matches any query contained in "resume received".
func Matches(c candidate.Candidate, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, f := range []string{
		c.FirstName,
		c.LastName,
		c.Position,
		string(c.Qualified),
		c.Stage,
		string(c.Status),
	} {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return c.ResumeReceived &&
		(strings.Contains("resume received", q) || strings.Contains("received", q))
}

// PassesFilter: FilterNew looks only at viewed, never at status.
func PassesFilter(c candidate.Candidate, mode FilterMode) bool {
	switch mode {
	case FilterAll, "":
		return true
	case FilterNew:
		return !c.Viewed
	default:
		return string(c.Status) == string(mode)
	}
}

// Less orders newest applied first, then by last name ignoring case, then by
// id so that every pair is ordered.
func Less(a, b candidate.Candidate) bool {
	at, bt := a.AppliedAt(), b.AppliedAt()
	if !at.Equal(bt) {
		return at.After(bt)
	}
	al, bl := strings.ToLower(a.LastName), strings.ToLower(b.LastName)
	if al != bl {
		return al < bl
	}
	return a.ID < b.ID
}

// Derive returns the visible subset in display order. list is not modified.
func Derive(list []candidate.Candidate, query string, mode FilterMode) []candidate.Candidate {
	out := make([]candidate.Candidate, 0, len(list))
	for _, c := range list {
		if Matches(c, query) && PassesFilter(c, mode) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}
