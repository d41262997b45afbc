package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"arts/api/internal/config"
	"arts/api/internal/feed"
	"arts/api/internal/ids"
	"arts/api/internal/media/sniffer"
	"arts/api/internal/models"
	"arts/api/internal/repository"
	"arts/api/internal/security"
	"arts/api/internal/storage"
	"arts/api/internal/store"
)

const defaultDepartment = "General OPD"

// FundusFile is one uploaded eye capture as received from the intake form.
type FundusFile struct {
	Data         []byte
	DeclaredMIME string
	Resolution   string
}

type AddPatientInput struct {
	Name       string
	UID        string
	Age        int
	Gender     string
	Phone      string
	Department string
	LeftEye    *FundusFile
	RightEye   *FundusFile
	Condition  string
	AIScore    *int
}

type PatientService struct {
	patients *repository.PatientRepository
	snapshot *store.PatientStore
	objects  *storage.ObjectStore
	cache    *redis.Client
	feed     *feed.Feed
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewPatientService(
	patients *repository.PatientRepository,
	snapshot *store.PatientStore,
	objects *storage.ObjectStore,
	cache *redis.Client,
	notifications *feed.Feed,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *PatientService {
	return &PatientService{
		patients: patients,
		snapshot: snapshot,
		objects:  objects,
		cache:    cache,
		feed:     notifications,
		cfg:      cfg,
		log:      log,
	}
}

// AddPatient uploads any supplied fundus captures and inserts the record
// with status pending. Field validation belongs to the caller; this only
// enforces what would corrupt storage. Upload happens before insert and is
// not rolled back: a failed insert leaves orphaned objects, which are
// logged with their keys.
func (s *PatientService) AddPatient(ctx context.Context, input AddPatientInput) (models.Patient, error) {
	if existing, err := s.patients.CountByUID(ctx, input.UID); err != nil {
		return models.Patient{}, fmt.Errorf("check uid: %w", err)
	} else if existing > 0 {
		return models.Patient{}, fmt.Errorf("patient uid %s already registered", input.UID)
	}

	department := input.Department
	if department == "" {
		department = defaultDepartment
	}

	now := time.Now().UTC()
	patient := models.Patient{
		ID:         ids.New(),
		UID:        input.UID,
		Name:       input.Name,
		Age:        input.Age,
		Gender:     input.Gender,
		Phone:      input.Phone,
		Department: department,
		VisitDate:  now,
		Status:     models.PatientStatusPending,
		Condition:  input.Condition,
		AIScore:    input.AIScore,
		CreatedAt:  now,
	}

	var objectKeys []string

	if input.LeftEye != nil {
		image, key, err := s.storeFundus(ctx, input.UID, "left", input.LeftEye)
		if err != nil {
			return models.Patient{}, err
		}
		patient.LeftEye = image
		objectKeys = append(objectKeys, key)
	}
	if input.RightEye != nil {
		image, key, err := s.storeFundus(ctx, input.UID, "right", input.RightEye)
		if err != nil {
			return models.Patient{}, err
		}
		patient.RightEye = image
		objectKeys = append(objectKeys, key)
	}

	if len(objectKeys) > 0 {
		parts := append([]string{patient.UID}, objectKeys...)
		patient.ImageSignature = security.SignResource(s.cfg.Security.ResourceSecret, parts...)
	}

	if err := s.patients.Create(ctx, patient); err != nil {
		s.log.Error().Err(err).
			Str("patient_uid", patient.UID).
			Strs("orphaned_objects", objectKeys).
			Msg("patient insert failed after upload")
		return models.Patient{}, fmt.Errorf("insert patient: %w", err)
	}

	s.publishChange(ctx, store.OpInsert, patient.ID)
	s.feed.Add(models.NotificationPatientAdded, fmt.Sprintf("Patient %s (%s) added to queue", patient.Name, patient.UID))

	return patient, nil
}

func (s *PatientService) storeFundus(ctx context.Context, patientUID, eye string, file *FundusFile) (*models.EyeImage, string, error) {
	head := file.Data
	if len(head) > 512 {
		head = head[:512]
	}
	detected, err := sniffer.DetectHead(head)
	if err != nil {
		return nil, "", fmt.Errorf("%s eye image: %w", eye, err)
	}
	if file.DeclaredMIME != "" && file.DeclaredMIME != detected.MIME {
		return nil, "", fmt.Errorf("%s eye image: declared %s, actual %s", eye, file.DeclaredMIME, detected.MIME)
	}

	key, url, err := s.objects.PutFundus(ctx, patientUID, eye, file.Data, detected.MIME, string(detected.Type))
	if err != nil {
		return nil, "", fmt.Errorf("upload %s eye image: %w", eye, err)
	}

	return &models.EyeImage{
		URL:        url,
		Format:     strings.ToUpper(string(detected.Type)),
		Resolution: file.Resolution,
	}, key, nil
}

// SubmitReview records a decision, moving the record pending/urgent →
// reviewed. The transition is terminal; a lost race surfaces as
// ErrAlreadyReviewed. Local state is not mutated optimistically; the
// change-notification round trip refreshes the snapshot.
func (s *PatientService) SubmitReview(ctx context.Context, patientID string, decision models.ReviewDecision, findings string, reviewer models.Principal) error {
	if !decision.Valid() {
		return fmt.Errorf("invalid decision %q", decision)
	}

	err := s.patients.SubmitReview(ctx, patientID, decision, findings, reviewer.FullName, time.Now().UTC())
	if err != nil {
		return err
	}

	s.publishChange(ctx, store.OpUpdate, patientID)
	s.feed.Add(models.NotificationReviewDone, fmt.Sprintf("%s recorded decision %q", reviewer.FullName, decision))

	s.log.Info().
		Str("patient_id", patientID).
		Str("decision", string(decision)).
		Str("reviewed_by", reviewer.Username).
		Msg("review submitted")
	return nil
}

func (s *PatientService) publishChange(ctx context.Context, op store.ChangeOp, patientID string) {
	if s.cache == nil {
		s.snapshot.Trigger()
		return
	}
	if err := store.PublishChange(ctx, s.cache, store.ChangeEvent{Op: op, PatientID: patientID}); err != nil {
		s.log.Warn().Err(err).Msg("publish change failed, triggering local refresh")
		s.snapshot.Trigger()
	}
}
