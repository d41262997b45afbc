package models

import "time"

type PatientStatus string

const (
	PatientStatusPending  PatientStatus = "pending"
	PatientStatusUrgent   PatientStatus = "urgent"
	PatientStatusReviewed PatientStatus = "reviewed"
)

type ReviewDecision string

const (
	DecisionNormal   ReviewDecision = "normal"
	DecisionAbnormal ReviewDecision = "abnormal"
	DecisionUrgent   ReviewDecision = "urgent"
	DecisionRefer    ReviewDecision = "refer"
)

var validDecisions = map[ReviewDecision]struct{}{
	DecisionNormal:   {},
	DecisionAbnormal: {},
	DecisionUrgent:   {},
	DecisionRefer:    {},
}

func (d ReviewDecision) Valid() bool {
	_, ok := validDecisions[d]
	return ok
}

// EyeImage is a stored fundus capture for one eye.
type EyeImage struct {
	URL        string `json:"url"`
	Format     string `json:"format"`
	Resolution string `json:"resolution"`
}

// Review groups the fields that only exist once an ophthalmologist has
// recorded a decision. A patient is reviewed exactly when Review is non-nil,
// so the status/decision pairing cannot drift apart.
type Review struct {
	Decision   ReviewDecision `json:"decision"`
	Findings   string         `json:"findings"`
	ReviewedAt time.Time      `json:"reviewedAt"`
	ReviewedBy string         `json:"reviewedBy"`
}

type Patient struct {
	ID         string
	UID        string
	Name       string
	Age        int
	Gender     string
	Phone      string
	Department string
	VisitDate  time.Time
	Status     PatientStatus
	LeftEye    *EyeImage
	RightEye   *EyeImage
	// ImageSignature is an HMAC over the patient UID and stored object
	// keys, written at intake so the image references can be verified.
	ImageSignature []byte
	Condition      string
	AIScore        *int
	Review         *Review
	CreatedAt      time.Time
}

func (p Patient) Reviewed() bool {
	return p.Review != nil
}

// RiskScore returns the AI risk percentage, treating an absent score as 0
// for ordering purposes.
func (p Patient) RiskScore() int {
	if p.AIScore == nil {
		return 0
	}
	return *p.AIScore
}
