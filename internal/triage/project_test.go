package triage

import (
	"reflect"
	"testing"
	"time"

	"arts/api/internal/models"
)

func intPtr(v int) *int { return &v }

func mkPatient(id, name string, status models.PatientStatus, aiScore int, visit time.Time) models.Patient {
	p := models.Patient{
		ID:        id,
		UID:       "PAT" + id,
		Name:      name,
		Phone:     "9876543210",
		Status:    status,
		VisitDate: visit,
		CreatedAt: visit,
	}
	if aiScore > 0 {
		p.AIScore = intPtr(aiScore)
	}
	return p
}

func names(patients []models.Patient) []string {
	out := make([]string, len(patients))
	for i, p := range patients {
		out[i] = p.Name
	}
	return out
}

func TestPendingUrgentDominates(t *testing.T) {
	t1 := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	// A has a far higher AI score and an earlier visit, but B's urgent
	// status must still put it first.
	a := mkPatient("1", "A", models.PatientStatusPending, 40, t1)
	b := mkPatient("2", "B", models.PatientStatusUrgent, 10, t2)

	got := Pending([]models.Patient{a, b})
	if len(got) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(got))
	}
	if got[0].Name != "B" {
		t.Errorf("expected urgent patient B first, got %s", got[0].Name)
	}
}

func TestPendingOrdering(t *testing.T) {
	base := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)

	patients := []models.Patient{
		mkPatient("1", "lowScoreEarly", models.PatientStatusPending, 10, base),
		mkPatient("2", "highScore", models.PatientStatusPending, 90, base.Add(2*time.Hour)),
		mkPatient("3", "urgentLate", models.PatientStatusUrgent, 5, base.Add(3*time.Hour)),
		mkPatient("4", "reviewedDone", models.PatientStatusReviewed, 99, base),
		mkPatient("5", "lowScoreLate", models.PatientStatusPending, 10, base.Add(time.Hour)),
	}

	got := names(Pending(patients))
	want := []string{"urgentLate", "highScore", "lowScoreEarly", "lowScoreLate"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("pending order = %v, want %v", got, want)
	}
}

func TestProjectIdempotent(t *testing.T) {
	base := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	patients := []models.Patient{
		mkPatient("1", "Priya Sharma", models.PatientStatusPending, 85, base),
		mkPatient("2", "Rajesh Kumar", models.PatientStatusUrgent, 12, base.Add(time.Hour)),
		mkPatient("3", "Arjun Patel", models.PatientStatusPending, 95, base.Add(2*time.Hour)),
	}
	f := Filter{Search: "a", Sort: SortAIScore}

	first := Project(patients, f)
	second := Project(patients, f)

	if !reflect.DeepEqual(names(first), names(second)) {
		t.Errorf("projection not idempotent: %v vs %v", names(first), names(second))
	}
}

func TestProjectSearchMatchesNameUIDPhone(t *testing.T) {
	base := time.Now()
	patients := []models.Patient{
		{ID: "1", UID: "PAT001", Name: "Priya Sharma", Phone: "9876543210", Status: models.PatientStatusPending, CreatedAt: base},
		{ID: "2", UID: "PAT002", Name: "Rajesh Kumar", Phone: "9123456789", Status: models.PatientStatusPending, CreatedAt: base},
	}

	cases := []struct {
		search string
		want   int
	}{
		{"priya", 1},
		{"PRIYA", 1},
		{"pat002", 1},
		{"912345", 1},
		{"nobody", 0},
		{"", 2},
	}

	for _, tc := range cases {
		got := Project(patients, Filter{Search: tc.search})
		if len(got) != tc.want {
			t.Errorf("search %q matched %d patients, want %d", tc.search, len(got), tc.want)
		}
	}
}

func TestProjectStatusAndDecisionFilters(t *testing.T) {
	base := time.Now()
	reviewed := mkPatient("3", "Done", models.PatientStatusReviewed, 0, base)
	reviewed.Review = &models.Review{
		Decision:   models.DecisionRefer,
		ReviewedAt: base,
		ReviewedBy: "Dr. Aravind Srinivasan",
	}

	patients := []models.Patient{
		mkPatient("1", "Waiting", models.PatientStatusPending, 0, base),
		mkPatient("2", "Critical", models.PatientStatusUrgent, 0, base),
		reviewed,
	}

	if got := Project(patients, Filter{Key: FilterAll}); len(got) != 3 {
		t.Errorf("all filter matched %d, want 3", len(got))
	}
	if got := Project(patients, Filter{Key: FilterUrgent}); len(got) != 1 || got[0].Name != "Critical" {
		t.Errorf("urgent filter = %v", names(got))
	}
	if got := Project(patients, Filter{Key: FilterPending}); len(got) != 1 || got[0].Name != "Waiting" {
		t.Errorf("pending filter = %v", names(got))
	}
	if got := Project(patients, Filter{Key: FilterKey(models.DecisionRefer)}); len(got) != 1 || got[0].Name != "Done" {
		t.Errorf("refer filter = %v", names(got))
	}
	if got := Project(patients, Filter{Key: FilterKey(models.DecisionNormal)}); len(got) != 0 {
		t.Errorf("normal filter matched %d, want 0", len(got))
	}
}

func TestProjectSortByNameStable(t *testing.T) {
	base := time.Now()
	// Two records share a name; stable sort must keep their input order.
	patients := []models.Patient{
		{ID: "1", Name: "Meena", Status: models.PatientStatusPending, CreatedAt: base},
		{ID: "2", Name: "Arjun", Status: models.PatientStatusPending, CreatedAt: base},
		{ID: "3", Name: "Meena", Status: models.PatientStatusPending, CreatedAt: base},
	}

	got := Project(patients, Filter{Sort: SortName})
	if got[0].Name != "Arjun" {
		t.Fatalf("expected Arjun first, got %s", got[0].Name)
	}
	if got[1].ID != "1" || got[2].ID != "3" {
		t.Errorf("tie not broken by input order: %s then %s", got[1].ID, got[2].ID)
	}
}

func TestProjectSortByCreatedAt(t *testing.T) {
	base := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	patients := []models.Patient{
		mkPatient("1", "old", models.PatientStatusPending, 0, base),
		mkPatient("2", "new", models.PatientStatusPending, 0, base.Add(time.Hour)),
	}

	if got := Project(patients, Filter{Sort: SortNewest}); got[0].Name != "new" {
		t.Errorf("newest first = %s", got[0].Name)
	}
	if got := Project(patients, Filter{Sort: SortOldest}); got[0].Name != "old" {
		t.Errorf("oldest first = %s", got[0].Name)
	}
}

func TestProjectMissingAIScoreSortsAsZero(t *testing.T) {
	base := time.Now()
	patients := []models.Patient{
		mkPatient("1", "noScore", models.PatientStatusPending, 0, base),
		mkPatient("2", "scored", models.PatientStatusPending, 30, base),
	}

	got := Project(patients, Filter{Sort: SortAIScore})
	if got[0].Name != "scored" {
		t.Errorf("expected scored patient first, got %s", got[0].Name)
	}
}

func TestProjectEmptyResult(t *testing.T) {
	patients := []models.Patient{
		mkPatient("1", "Priya", models.PatientStatusPending, 0, time.Now()),
	}

	got := Project(patients, Filter{Search: "no such patient"})
	if len(got) != 0 {
		t.Errorf("expected empty projection, got %d", len(got))
	}
}

func TestReviewedOrderedByReviewTime(t *testing.T) {
	base := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)

	early := mkPatient("1", "early", models.PatientStatusReviewed, 0, base)
	early.Review = &models.Review{Decision: models.DecisionNormal, ReviewedAt: base.Add(time.Hour), ReviewedBy: "dr"}
	late := mkPatient("2", "late", models.PatientStatusReviewed, 0, base)
	late.Review = &models.Review{Decision: models.DecisionNormal, ReviewedAt: base.Add(2 * time.Hour), ReviewedBy: "dr"}

	got := Reviewed([]models.Patient{early, late})
	if got[0].Name != "late" {
		t.Errorf("expected most recent review first, got %s", got[0].Name)
	}
}
