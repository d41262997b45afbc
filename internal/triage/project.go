// Package triage orders and filters the patient queue. Everything here is a
// pure function over a snapshot slice; the same inputs always produce the
// same ordered output.
package triage

import (
	"sort"
	"strings"

	"arts/api/internal/models"
)

type SortKey string

const (
	// SortDefault keeps the input order. For the pending queue that is
	// the clinical triage ordering produced by Pending.
	SortDefault SortKey = ""
	SortNewest  SortKey = "newest"
	SortOldest  SortKey = "oldest"
	SortAIScore SortKey = "ai_score"
	SortName    SortKey = "name"
)

// FilterKey selects by status or, for reviewed patients, by decision.
type FilterKey string

const (
	FilterAll     FilterKey = "all"
	FilterPending FilterKey = "pending"
	FilterUrgent  FilterKey = "urgent"
)

// Filter is the transient per-view query state. It is never persisted.
type Filter struct {
	Search string
	Key    FilterKey
	Sort   SortKey
}

// Project returns the filtered, ordered view of patients. The input slice
// is not modified. An empty result is a valid outcome, not an error.
func Project(patients []models.Patient, f Filter) []models.Patient {
	out := make([]models.Patient, 0, len(patients))
	for _, p := range patients {
		if matchKey(p, f.Key) && matchSearch(p, f.Search) {
			out = append(out, p)
		}
	}

	sortPatients(out, f.Sort)
	return out
}

func matchKey(p models.Patient, key FilterKey) bool {
	switch key {
	case FilterAll, "":
		return true
	case FilterPending:
		return p.Status == models.PatientStatusPending
	case FilterUrgent:
		return p.Status == models.PatientStatusUrgent
	}

	// Remaining keys are review decisions; they only match reviewed
	// records.
	decision := models.ReviewDecision(key)
	if !decision.Valid() {
		return false
	}
	return p.Review != nil && p.Review.Decision == decision
}

func matchSearch(p models.Patient, search string) bool {
	query := strings.ToLower(strings.TrimSpace(search))
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), query) ||
		strings.Contains(strings.ToLower(p.UID), query) ||
		strings.Contains(p.Phone, query)
}

func sortPatients(patients []models.Patient, key SortKey) {
	switch key {
	case SortNewest:
		sort.SliceStable(patients, func(i, j int) bool {
			return patients[i].CreatedAt.After(patients[j].CreatedAt)
		})
	case SortOldest:
		sort.SliceStable(patients, func(i, j int) bool {
			return patients[i].CreatedAt.Before(patients[j].CreatedAt)
		})
	case SortAIScore:
		sort.SliceStable(patients, func(i, j int) bool {
			return patients[i].RiskScore() > patients[j].RiskScore()
		})
	case SortName:
		sort.SliceStable(patients, func(i, j int) bool {
			return patients[i].Name < patients[j].Name
		})
	case SortDefault:
		// Input order stands.
	}
}

// sortClinical is the fixed triage ordering for the pending queue: urgent
// records always lead regardless of score or wait time, then higher AI risk,
// then whoever has been waiting longest.
func sortClinical(patients []models.Patient) {
	sort.SliceStable(patients, func(i, j int) bool {
		a, b := patients[i], patients[j]

		aUrgent := a.Status == models.PatientStatusUrgent
		bUrgent := b.Status == models.PatientStatusUrgent
		if aUrgent != bUrgent {
			return aUrgent
		}

		if a.RiskScore() != b.RiskScore() {
			return a.RiskScore() > b.RiskScore()
		}

		return a.VisitDate.Before(b.VisitDate)
	})
}

// Pending returns the work queue: records still awaiting a decision, in
// clinical triage order.
func Pending(patients []models.Patient) []models.Patient {
	out := make([]models.Patient, 0, len(patients))
	for _, p := range patients {
		if p.Status == models.PatientStatusPending || p.Status == models.PatientStatusUrgent {
			out = append(out, p)
		}
	}
	sortClinical(out)
	return out
}

// Reviewed returns completed records, most recently reviewed first.
func Reviewed(patients []models.Patient) []models.Patient {
	out := make([]models.Patient, 0, len(patients))
	for _, p := range patients {
		if p.Status == models.PatientStatusReviewed {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		var ti, tj int64
		if out[i].Review != nil {
			ti = out[i].Review.ReviewedAt.UnixNano()
		}
		if out[j].Review != nil {
			tj = out[j].Review.ReviewedAt.UnixNano()
		}
		return ti > tj
	})
	return out
}

// Urgent returns only urgent-status records, input order preserved.
func Urgent(patients []models.Patient) []models.Patient {
	out := make([]models.Patient, 0, len(patients))
	for _, p := range patients {
		if p.Status == models.PatientStatusUrgent {
			out = append(out, p)
		}
	}
	return out
}
