// Package seed bootstraps a usable directory and demo queue into an empty
// database so a fresh deployment is immediately operable.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"arts/api/internal/ids"
	"arts/api/internal/models"
	"arts/api/internal/repository"
	"arts/api/internal/security"
)

type directoryEntry struct {
	Username string
	Password string
	FullName string
	Role     models.UserRole
	Email    string
}

var defaultUsers = []directoryEntry{
	{"dr.aravind", "Welcome@123", "Dr. Aravind Srinivasan", models.UserRoleOphthalmologist, "dr.aravind@aravind.org"},
	{"admin", "Admin@2024", "System Administrator", models.UserRoleAdmin, "admin@aravind.org"},
	{"tech01", "Tech@123", "Technician Ramya", models.UserRoleTechnician, "ramya.tech@aravind.org"},
}

// Users inserts the default directory when the users table is empty.
func Users(ctx context.Context, users *repository.UserRepository, log zerolog.Logger) error {
	count, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, entry := range defaultUsers {
		hash, err := security.HashPassword(entry.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", entry.Username, err)
		}
		user := models.User{
			ID:           ids.New(),
			Username:     entry.Username,
			FullName:     entry.FullName,
			Role:         entry.Role,
			Email:        entry.Email,
			PasswordHash: hash,
		}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("seed user %s: %w", entry.Username, err)
		}
	}

	log.Info().Int("users", len(defaultUsers)).Msg("user directory seeded")
	return nil
}

type demoCase struct {
	Name      string
	Gender    string
	Condition string
	AIScore   int
	Urgent    bool
}

var demoCases = []demoCase{
	{"Priya Sharma", "Female", "Diabetic Retinopathy", 85, true},
	{"Rajesh Kumar", "Male", "Normal Retina", 12, false},
	{"Lakshmi Venkatesh", "Female", "Glaucoma Suspect", 65, false},
	{"Arjun Patel", "Male", "Retinal Detachment", 95, true},
	{"Meenakshi Sundaram", "Female", "Age-related Macular Degeneration", 72, false},
	{"Suresh Rajan", "Male", "Normal Retina", 8, false},
	{"Kavitha Krishnan", "Female", "Mild NPDR", 45, false},
	{"Mohan Das", "Male", "Normal Retina", 15, false},
}

var demoDepartments = []string{"General OPD", "Retina Clinic", "Diabetic Eye Clinic", "Emergency"}

// Patients inserts a small demo queue when the patients table is empty.
// Image URLs point at placeholder captures; real intake goes through the
// object store.
func Patients(ctx context.Context, patients *repository.PatientRepository, log zerolog.Logger) error {
	count, err := patients.Count(ctx)
	if err != nil {
		return fmt.Errorf("count patients: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	datePart := now.Format("20060102")

	for i, demo := range demoCases {
		visit := now.Add(-time.Duration(len(demoCases)-i) * 30 * time.Minute)
		status := models.PatientStatusPending
		if demo.Urgent {
			status = models.PatientStatusUrgent
		}

		score := demo.AIScore
		placeholder := fmt.Sprintf("https://placeholder.arts.local/fundus/%d.jpeg", i%4)

		patient := models.Patient{
			ID:         ids.New(),
			UID:        fmt.Sprintf("PAT%s%03d", datePart, i+1),
			Name:       demo.Name,
			Age:        35 + (i*7)%40,
			Gender:     demo.Gender,
			Phone:      fmt.Sprintf("98765432%02d", i),
			Department: demoDepartments[i%len(demoDepartments)],
			VisitDate:  visit,
			Status:     status,
			LeftEye:    &models.EyeImage{URL: placeholder, Format: "JPEG", Resolution: "2048x1536"},
			RightEye:   &models.EyeImage{URL: placeholder, Format: "JPEG", Resolution: "2048x1536"},
			Condition:  demo.Condition,
			AIScore:    &score,
			CreatedAt:  visit,
		}

		if err := patients.Create(ctx, patient); err != nil {
			return fmt.Errorf("seed patient %s: %w", patient.UID, err)
		}
	}

	log.Info().Int("patients", len(demoCases)).Msg("demo queue seeded")
	return nil
}
