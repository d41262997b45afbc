package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arts/api/internal/models"
)

var (
	ErrPatientNotFound = errors.New("patient not found")
	// ErrAlreadyReviewed is returned when a review targets a record that
	// has left the pending/urgent states. There is no reverse transition.
	ErrAlreadyReviewed = errors.New("patient already reviewed")
)

const patientColumns = `
	id, uid, name, age, gender, phone, department, visit_date, status,
	left_eye_image_url, left_eye_format, left_eye_resolution,
	right_eye_image_url, right_eye_format, right_eye_resolution,
	image_signature, condition, ai_score,
	decision, findings, reviewed_at, reviewed_by, created_at
`

type PatientRepository struct {
	pool *pgxpool.Pool
}

func NewPatientRepository(pool *pgxpool.Pool) *PatientRepository {
	return &PatientRepository{pool: pool}
}

func (r *PatientRepository) Create(ctx context.Context, p models.Patient) error {
	const query = `
		INSERT INTO patients (
			id, uid, name, age, gender, phone, department, visit_date, status,
			left_eye_image_url, left_eye_format, left_eye_resolution,
			right_eye_image_url, right_eye_format, right_eye_resolution,
			image_signature, condition, ai_score, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			$10, $11, $12,
			$13, $14, $15,
			$16, $17, $18, $19
		)
	`

	var (
		leftURL, leftFormat, leftRes    *string
		rightURL, rightFormat, rightRes *string
	)
	if p.LeftEye != nil {
		leftURL, leftFormat, leftRes = &p.LeftEye.URL, &p.LeftEye.Format, &p.LeftEye.Resolution
	}
	if p.RightEye != nil {
		rightURL, rightFormat, rightRes = &p.RightEye.URL, &p.RightEye.Format, &p.RightEye.Resolution
	}

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.UID,
		p.Name,
		p.Age,
		p.Gender,
		p.Phone,
		p.Department,
		p.VisitDate,
		p.Status,
		leftURL, leftFormat, leftRes,
		rightURL, rightFormat, rightRes,
		p.ImageSignature,
		p.Condition,
		p.AIScore,
		p.CreatedAt,
	)
	return err
}

// List returns every patient ordered newest first. The syncer holds the
// result as the in-memory snapshot; callers never page this.
func (r *PatientRepository) List(ctx context.Context) ([]models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []models.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func (r *PatientRepository) GetByID(ctx context.Context, id string) (models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	p, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Patient{}, ErrPatientNotFound
		}
		return models.Patient{}, err
	}
	return p, nil
}

// SubmitReview transitions a record to reviewed. The status guard makes the
// transition single-shot: a concurrent reviewer losing the race gets
// ErrAlreadyReviewed instead of silently overwriting the first decision.
func (r *PatientRepository) SubmitReview(ctx context.Context, id string, decision models.ReviewDecision, findings string, reviewedBy string, reviewedAt time.Time) error {
	const query = `
		UPDATE patients
		SET status = 'reviewed',
		    decision = $2,
		    findings = $3,
		    reviewed_by = $4,
		    reviewed_at = $5
		WHERE id = $1 AND status IN ('pending', 'urgent')
	`

	cmd, err := r.pool.Exec(ctx, query, id, decision, findings, reviewedBy, reviewedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); errors.Is(err, ErrPatientNotFound) {
			return ErrPatientNotFound
		}
		return ErrAlreadyReviewed
	}
	return nil
}

func (r *PatientRepository) CountByUID(ctx context.Context, uid string) (int, error) {
	row := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE uid = $1`, uid)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PatientRepository) Count(ctx context.Context) (int, error) {
	row := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients`)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanPatient(row pgx.Row) (models.Patient, error) {
	var (
		p models.Patient

		leftURL, leftFormat, leftRes    *string
		rightURL, rightFormat, rightRes *string

		decision   *string
		findings   *string
		reviewedAt *time.Time
		reviewedBy *string
	)

	if err := row.Scan(
		&p.ID,
		&p.UID,
		&p.Name,
		&p.Age,
		&p.Gender,
		&p.Phone,
		&p.Department,
		&p.VisitDate,
		&p.Status,
		&leftURL, &leftFormat, &leftRes,
		&rightURL, &rightFormat, &rightRes,
		&p.ImageSignature,
		&p.Condition,
		&p.AIScore,
		&decision, &findings, &reviewedAt, &reviewedBy,
		&p.CreatedAt,
	); err != nil {
		return models.Patient{}, err
	}

	if leftURL != nil {
		p.LeftEye = &models.EyeImage{URL: *leftURL}
		if leftFormat != nil {
			p.LeftEye.Format = *leftFormat
		}
		if leftRes != nil {
			p.LeftEye.Resolution = *leftRes
		}
	}
	if rightURL != nil {
		p.RightEye = &models.EyeImage{URL: *rightURL}
		if rightFormat != nil {
			p.RightEye.Format = *rightFormat
		}
		if rightRes != nil {
			p.RightEye.Resolution = *rightRes
		}
	}

	if decision != nil && reviewedAt != nil && reviewedBy != nil {
		review := models.Review{
			Decision:   models.ReviewDecision(*decision),
			ReviewedAt: *reviewedAt,
			ReviewedBy: *reviewedBy,
		}
		if findings != nil {
			review.Findings = *findings
		}
		p.Review = &review
	}

	return p, nil
}
