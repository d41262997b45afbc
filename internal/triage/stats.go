package triage

import (
	"time"

	"arts/api/internal/models"
)

type Stats struct {
	Pending  int `json:"pending"`
	Reviewed int `json:"reviewed"`
	Urgent   int `json:"urgent"`
	Total    int `json:"total"`
	// AvgReviewMinutes is the mean visit-to-decision turnaround across
	// reviewed records, zero when nothing has been reviewed yet.
	AvgReviewMinutes float64 `json:"avgReviewMinutes"`
}

func Aggregate(patients []models.Patient) Stats {
	stats := Stats{Total: len(patients)}

	var turnaround time.Duration
	reviewedWithTimes := 0

	for _, p := range patients {
		switch p.Status {
		case models.PatientStatusPending:
			stats.Pending++
		case models.PatientStatusUrgent:
			stats.Urgent++
		case models.PatientStatusReviewed:
			stats.Reviewed++
			if p.Review != nil && p.Review.ReviewedAt.After(p.VisitDate) {
				turnaround += p.Review.ReviewedAt.Sub(p.VisitDate)
				reviewedWithTimes++
			}
		}
	}

	if reviewedWithTimes > 0 {
		stats.AvgReviewMinutes = turnaround.Minutes() / float64(reviewedWithTimes)
	}
	return stats
}
