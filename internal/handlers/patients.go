package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"arts/api/internal/media/sniffer"
	"arts/api/internal/middleware"
	"arts/api/internal/models"
	"arts/api/internal/repository"
	"arts/api/internal/service"
	"arts/api/internal/triage"
)

type patientResponse struct {
	ID         string           `json:"id"`
	UID        string           `json:"uid"`
	Name       string           `json:"name"`
	Age        int              `json:"age"`
	Gender     string           `json:"gender"`
	Phone      string           `json:"phone"`
	Department string           `json:"department"`
	VisitDate  time.Time        `json:"visitDate"`
	Status     string           `json:"status"`
	LeftEye    *models.EyeImage `json:"leftEye,omitempty"`
	RightEye   *models.EyeImage `json:"rightEye,omitempty"`
	Condition  string           `json:"condition,omitempty"`
	AIScore    *int             `json:"aiScore,omitempty"`
	Review     *models.Review   `json:"review,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
}

func toPatientResponse(p models.Patient) patientResponse {
	return patientResponse{
		ID:         p.ID,
		UID:        p.UID,
		Name:       p.Name,
		Age:        p.Age,
		Gender:     p.Gender,
		Phone:      p.Phone,
		Department: p.Department,
		VisitDate:  p.VisitDate,
		Status:     string(p.Status),
		LeftEye:    p.LeftEye,
		RightEye:   p.RightEye,
		Condition:  p.Condition,
		AIScore:    p.AIScore,
		Review:     p.Review,
		CreatedAt:  p.CreatedAt,
	}
}

func toPatientResponses(patients []models.Patient) []patientResponse {
	out := make([]patientResponse, 0, len(patients))
	for _, p := range patients {
		out = append(out, toPatientResponse(p))
	}
	return out
}

// ListPatients serves the queue views from the in-memory snapshot. The
// pending view carries the clinical triage ordering unless an explicit sort
// is requested.
func (h HandlerSet) ListPatients(c *gin.Context) {
	snapshot := h.snapshot.Snapshot()

	var base []models.Patient
	switch view := c.Query("view"); view {
	case "pending":
		base = triage.Pending(snapshot)
	case "reviewed":
		base = triage.Reviewed(snapshot)
	case "urgent":
		base = triage.Urgent(snapshot)
	case "", "all":
		base = snapshot
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown view " + view})
		return
	}

	projected := triage.Project(base, triage.Filter{
		Search: c.Query("q"),
		Key:    triage.FilterKey(c.Query("filter")),
		Sort:   triage.SortKey(c.Query("sort")),
	})

	c.JSON(http.StatusOK, gin.H{
		"patients": toPatientResponses(projected),
		"total":    len(projected),
		"syncedAt": h.snapshot.SyncedAt(),
	})
}

func (h HandlerSet) GetPatient(c *gin.Context) {
	id := c.Param("id")

	for _, p := range h.snapshot.Snapshot() {
		if p.ID == id || p.UID == id {
			c.JSON(http.StatusOK, toPatientResponse(p))
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
}

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

type intakeForm struct {
	Name       string
	UID        string
	AgeRaw     string
	Gender     string
	Phone      string
	Department string
	Condition  string
	AIScoreRaw string
	HasLeft    bool
	HasRight   bool
}

// validateIntake enforces the intake form rules. It returns field-keyed
// messages so the form can annotate inputs, plus the parsed age.
func validateIntake(form intakeForm) (int, map[string]string) {
	problems := make(map[string]string)

	if strings.TrimSpace(form.Name) == "" {
		problems["name"] = "name is required"
	}
	if strings.TrimSpace(form.UID) == "" {
		problems["uid"] = "uid is required"
	}

	age, err := strconv.Atoi(strings.TrimSpace(form.AgeRaw))
	if err != nil {
		problems["age"] = "age must be a number"
	} else if age < 1 || age > 120 {
		problems["age"] = "age must be between 1 and 120"
	}

	switch form.Gender {
	case "Male", "Female", "Other":
	default:
		problems["gender"] = "gender must be Male, Female or Other"
	}

	if !phonePattern.MatchString(form.Phone) {
		problems["phone"] = "phone must be exactly 10 digits"
	}

	if !form.HasLeft && !form.HasRight {
		problems["images"] = "at least one eye image is required"
	}

	if len(problems) > 0 {
		return 0, problems
	}
	return age, nil
}

func (h HandlerSet) AddPatient(c *gin.Context) {
	leftHeader, _ := c.FormFile("leftEye")
	rightHeader, _ := c.FormFile("rightEye")

	form := intakeForm{
		Name:       c.PostForm("name"),
		UID:        c.PostForm("uid"),
		AgeRaw:     c.PostForm("age"),
		Gender:     c.PostForm("gender"),
		Phone:      c.PostForm("phone"),
		Department: c.PostForm("department"),
		Condition:  c.PostForm("condition"),
		AIScoreRaw: c.PostForm("aiScore"),
		HasLeft:    leftHeader != nil,
		HasRight:   rightHeader != nil,
	}

	age, problems := validateIntake(form)
	if problems != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": problems})
		return
	}

	var aiScore *int
	if form.AIScoreRaw != "" {
		v, err := strconv.Atoi(form.AIScoreRaw)
		if err != nil || v < 0 || v > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": gin.H{"aiScore": "aiScore must be 0-100"}})
			return
		}
		aiScore = &v
	}

	input := service.AddPatientInput{
		Name:       form.Name,
		UID:        form.UID,
		Age:        age,
		Gender:     form.Gender,
		Phone:      form.Phone,
		Department: form.Department,
		Condition:  form.Condition,
		AIScore:    aiScore,
	}

	if leftHeader != nil {
		file, err := readFundusFile(leftHeader, c.PostForm("leftEyeResolution"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "left eye image: " + err.Error()})
			return
		}
		input.LeftEye = file
	}
	if rightHeader != nil {
		file, err := readFundusFile(rightHeader, c.PostForm("rightEyeResolution"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "right eye image: " + err.Error()})
			return
		}
		input.RightEye = file
	}

	patient, err := h.patientService.AddPatient(c.Request.Context(), input)
	if err != nil {
		h.log.Error().Err(err).Str("uid", form.UID).Msg("add patient failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, toPatientResponse(patient))
}

func readFundusFile(header *multipart.FileHeader, resolution string) (*service.FundusFile, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty file")
	}

	return &service.FundusFile{
		Data:         data,
		DeclaredMIME: sniffer.MimeTypeFromHeader(header.Header),
		Resolution:   resolution,
	}, nil
}

type reviewRequest struct {
	Decision string `json:"decision" binding:"required"`
	Findings string `json:"findings"`
}

func (h HandlerSet) SubmitReview(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decision := models.ReviewDecision(req.Decision)
	if !decision.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "decision must be one of normal, abnormal, urgent, refer"})
		return
	}

	err := h.patientService.SubmitReview(c.Request.Context(), c.Param("id"), decision, req.Findings, principal)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPatientNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
		case errors.Is(err, repository.ErrAlreadyReviewed):
			c.JSON(http.StatusConflict, gin.H{"error": "patient already reviewed"})
		default:
			h.log.Error().Err(err).Str("patient_id", c.Param("id")).Msg("submit review failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}

	// The client clears its selection and returns to the queue; the
	// refreshed status arrives with the next snapshot sync.
	c.JSON(http.StatusOK, gin.H{"status": "reviewed", "clearSelection": true})
}
