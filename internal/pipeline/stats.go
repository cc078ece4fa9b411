package pipeline

import (
	"math"
	"time"

	"recruitflow/internal/candidate"
)

// Stats counts candidates per status. Every status is present, zero or not.
func Stats(list []candidate.Candidate) map[candidate.Status]int {
	out := make(map[candidate.Status]int, len(candidate.Statuses()))
	for _, s := range candidate.Statuses() {
		out[s] = 0
	}
	for _, c := range list {
		out[c.Status]++
	}
	return out
}

// AddedSince counts candidates created at or after t.
func AddedSince(list []candidate.Candidate, t time.Time) int {
	n := 0
	for _, c := range list {
		if !c.CreatedAt.Before(t) {
			n++
		}
	}
	return n
}

// AverageTimeToHire is the mean, in whole days, between creation and the
// last update of hired candidates. The last update stands in for the hire
// date.
func AverageTimeToHire(list []candidate.Candidate) int {
	total, n := 0, 0
	for _, c := range list {
		if c.Status != candidate.StatusHired {
			continue
		}
		total += int(c.UpdatedAt.Sub(c.CreatedAt).Hours() / 24)
		n++
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(n)))
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

// OfferAcceptanceRate is hired / (hired + offer + rejected) as a percentage.
func OfferAcceptanceRate(list []candidate.Candidate) int {
	st := Stats(list)
	hired := st[candidate.StatusHired]
	return percent(hired, hired+st[candidate.StatusOffer]+st[candidate.StatusRejected])
}

type Conversion struct {
	NewToScreening       int `json:"new_to_screening"`
	ScreeningToInterview int `json:"screening_to_interview"`
	InterviewToOffer     int `json:"interview_to_offer"`
	OfferToHired         int `json:"offer_to_hired"`
}

// ConversionRates estimates, for each adjacent pair of stages, the share of
// candidates in the pair that sit in the later one. A pair whose earlier
// stage is empty reports 0.
func ConversionRates(list []candidate.Candidate) Conversion {
	st := Stats(list)
	rate := func(from, to candidate.Status) int {
		if st[from] == 0 {
			return 0
		}
		return percent(st[to], st[from]+st[to])
	}
	return Conversion{
		NewToScreening:       rate(candidate.StatusNew, candidate.StatusScreening),
		ScreeningToInterview: rate(candidate.StatusScreening, candidate.StatusInterview),
		InterviewToOffer:     rate(candidate.StatusInterview, candidate.StatusOffer),
		OfferToHired:         rate(candidate.StatusOffer, candidate.StatusHired),
	}
}

type Analytics struct {
	Total               int                      `json:"total"`
	ThisWeek            int                      `json:"this_week"`
	AverageTimeToHire   int                      `json:"average_time_to_hire_days"`
	OfferAcceptanceRate int                      `json:"offer_acceptance_rate"`
	Conversion          Conversion               `json:"conversion"`
	ByStatus            map[candidate.Status]int `json:"by_status"`
}

func Analyze(list []candidate.Candidate, now time.Time) Analytics {
	return Analytics{
		Total:               len(list),
		ThisWeek:            AddedSince(list, now.AddDate(0, 0, -7)),
		AverageTimeToHire:   AverageTimeToHire(list),
		OfferAcceptanceRate: OfferAcceptanceRate(list),
		Conversion:          ConversionRates(list),
		ByStatus:            Stats(list),
	}
}
