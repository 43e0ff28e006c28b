package api

import (
	"fmt"
	"net/http"
	"testing"

	"jobnest/internal/board"
	"jobnest/internal/database"
	"jobnest/internal/database/dbtest"
)

func jobBody(title string, minSalary, maxSalary float64) map[string]any {
	return map[string]any{
		"title":           title,
		"description":     "Build and operate backend services.",
		"company":         "Acme",
		"location":        "Berlin",
		"jobType":         "Contract",
		"experienceLevel": "Senior",
		"salaryRange":     map[string]float64{"min": minSalary, "max": maxSalary},
	}
}

func applyBody(jobID uint) map[string]any {
	return map[string]any{
		"jobId":       jobID,
		"resumeUrl":   "https://files.example.com/resume.pdf",
		"coverLetter": "I would love to work on this team.",
	}
}

func TestJobEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	recruiter := dbtest.CreateUser(t, env.db, "Rita", database.RoleRecruiter)
	other := dbtest.CreateUser(t, env.db, "Otto", database.RoleRecruiter)
	seeker := dbtest.CreateUser(t, env.db, "Sam", database.RoleSeeker)

	expectStatus(t, env.do(http.MethodPost, "/api/jobs", jobBody("Go Engineer", 50000, 70000), ""), http.StatusUnauthorized)
	expectStatus(t, env.do(http.MethodPost, "/api/jobs", jobBody("Go Engineer", 50000, 70000), env.tokenFor(seeker)), http.StatusForbidden)

	rec := env.do(http.MethodPost, "/api/jobs", jobBody("Go Engineer", 80000, 60000), env.tokenFor(recruiter))
	expectStatus(t, rec, http.StatusBadRequest)
	var count int64
	env.db.Model(&database.Job{}).Count(&count)
	if count != 0 {
		t.Fatalf("jobs = %d after rejected create, want 0", count)
	}

	rec = env.do(http.MethodPost, "/api/jobs", jobBody("Go Engineer", 50000, 70000), env.tokenFor(recruiter))
	expectStatus(t, rec, http.StatusCreated)
	job := decodeBody[board.JobView](t, rec)
	if job.Type != database.JobTypeRemote || !job.IsActive {
		t.Fatalf("unexpected job: %+v", job)
	}
	if len(job.Tags) != 2 || job.Tags[0] != "Senior" {
		t.Fatalf("tags = %v", job.Tags)
	}

	path := fmt.Sprintf("/api/jobs/%d", job.ID)
	expectStatus(t, env.do(http.MethodPut, path, map[string]any{"title": "Stolen"}, env.tokenFor(other)), http.StatusForbidden)

	rec = env.do(http.MethodPut, path, map[string]any{"salaryRange": map[string]float64{"min": 90000}}, env.tokenFor(recruiter))
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(http.MethodPut, path, map[string]any{"title": "Senior Go Engineer"}, env.tokenFor(recruiter))
	expectStatus(t, rec, http.StatusOK)

	rec = env.do(http.MethodGet, path, nil, "")
	expectStatus(t, rec, http.StatusOK)
	detail := decodeBody[board.JobView](t, rec)
	if detail.Title != "Senior Go Engineer" || detail.ApplicationCount == nil || *detail.ApplicationCount != 0 {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	rec = env.do(http.MethodGet, "/api/jobs?search=senior&location=ber&page=1&limit=5", nil, "")
	expectStatus(t, rec, http.StatusOK)
	page := decodeBody[board.JobPage](t, rec)
	if page.TotalJobs != 1 || page.CurrentPage != 1 || len(page.Jobs) != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}
	expectStatus(t, env.do(http.MethodGet, "/api/jobs?minSalary=abc", nil, ""), http.StatusBadRequest)

	rec = env.do(http.MethodGet, "/api/jobs/recruiter", nil, env.tokenFor(recruiter))
	expectStatus(t, rec, http.StatusOK)
	if jobs := decodeBody[map[string][]board.JobView](t, rec)["jobs"]; len(jobs) != 1 {
		t.Fatalf("recruiter jobs = %d, want 1", len(jobs))
	}

	expectStatus(t, env.do(http.MethodDelete, path, nil, env.tokenFor(other)), http.StatusForbidden)
	expectStatus(t, env.do(http.MethodDelete, path, nil, env.tokenFor(recruiter)), http.StatusOK)
	expectStatus(t, env.do(http.MethodGet, path, nil, ""), http.StatusNotFound)
}

func TestApplicationEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	recruiter := dbtest.CreateUser(t, env.db, "Rita", database.RoleRecruiter)
	other := dbtest.CreateUser(t, env.db, "Otto", database.RoleRecruiter)
	alice := dbtest.CreateUser(t, env.db, "Alice", database.RoleSeeker)
	job := dbtest.CreateJob(t, env.db, recruiter.ID, "Backend Engineer")

	expectStatus(t, env.do(http.MethodPost, "/api/applications", applyBody(job.ID), env.tokenFor(recruiter)), http.StatusForbidden)

	rec := env.do(http.MethodPost, "/api/applications", applyBody(job.ID), env.tokenFor(alice))
	expectStatus(t, rec, http.StatusCreated)
	app := decodeBody[board.ApplicationView](t, rec)
	if app.Status != database.StatusApplied || app.Name != "Alice" || app.Email != "alice@example.com" {
		t.Fatalf("unexpected application: %+v", app)
	}

	rec = env.do(http.MethodPost, "/api/applications", applyBody(job.ID), env.tokenFor(alice))
	expectStatus(t, rec, http.StatusBadRequest)
	if got := decodeBody[map[string]string](t, rec)["error"]; got != "You have already applied for this job" {
		t.Fatalf("error = %q", got)
	}

	expectStatus(t, env.do(http.MethodPost, "/api/applications", applyBody(9999), env.tokenFor(alice)), http.StatusNotFound)

	rec = env.do(http.MethodGet, "/api/applications/my", nil, env.tokenFor(alice))
	expectStatus(t, rec, http.StatusOK)
	if mine := decodeBody[[]board.ApplicationView](t, rec); len(mine) != 1 {
		t.Fatalf("my applications = %d, want 1", len(mine))
	}

	jobPath := fmt.Sprintf("/api/applications/job/%d", job.ID)
	expectStatus(t, env.do(http.MethodGet, jobPath, nil, env.tokenFor(other)), http.StatusForbidden)
	rec = env.do(http.MethodGet, jobPath, nil, env.tokenFor(recruiter))
	expectStatus(t, rec, http.StatusOK)
	if list := decodeBody[[]board.ApplicationView](t, rec); len(list) != 1 || list[0].Seeker == nil {
		t.Fatalf("unexpected list: %+v", list)
	}

	statusPath := fmt.Sprintf("/api/applications/%d/status", app.ID)
	expectStatus(t, env.do(http.MethodPut, statusPath, map[string]string{"status": "Interview"}, env.tokenFor(other)), http.StatusForbidden)
	expectStatus(t, env.do(http.MethodPut, statusPath, map[string]string{"status": "Maybe"}, env.tokenFor(recruiter)), http.StatusBadRequest)
	rec = env.do(http.MethodPut, statusPath, map[string]string{"status": "Interview"}, env.tokenFor(recruiter))
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[board.ApplicationView](t, rec).Status; got != database.StatusInterview {
		t.Fatalf("status = %q, want Interview", got)
	}

	appPath := fmt.Sprintf("/api/applications/%d", app.ID)
	rec = env.do(http.MethodPut, appPath, map[string]string{"coverLetter": "An updated and longer cover letter."}, env.tokenFor(alice))
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[board.ApplicationView](t, rec).Status; got != database.StatusInterview {
		t.Fatalf("edit changed status to %q", got)
	}

	rec = env.do(http.MethodGet, appPath+"/events", nil, env.tokenFor(recruiter))
	expectStatus(t, rec, http.StatusOK)
	expectStatus(t, env.do(http.MethodGet, appPath+"/events", nil, env.tokenFor(other)), http.StatusForbidden)

	bob := dbtest.CreateUser(t, env.db, "Bob", database.RoleSeeker)
	expectStatus(t, env.do(http.MethodDelete, appPath, nil, env.tokenFor(bob)), http.StatusForbidden)
	rec = env.do(http.MethodDelete, appPath, nil, env.tokenFor(alice))
	expectStatus(t, rec, http.StatusOK)
	expectStatus(t, env.do(http.MethodDelete, appPath, nil, env.tokenFor(alice)), http.StatusNotFound)
}

func TestSavedJobEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	recruiter := dbtest.CreateUser(t, env.db, "Rita", database.RoleRecruiter)
	seeker := dbtest.CreateUser(t, env.db, "Sam", database.RoleSeeker)
	job := dbtest.CreateJob(t, env.db, recruiter.ID, "Backend Engineer")
	token := env.tokenFor(seeker)

	checkPath := fmt.Sprintf("/api/saved-jobs/check/%d", job.ID)
	isSaved := func() bool {
		rec := env.do(http.MethodGet, checkPath, nil, token)
		expectStatus(t, rec, http.StatusOK)
		return decodeBody[map[string]bool](t, rec)["isSaved"]
	}

	expectStatus(t, env.do(http.MethodPost, "/api/saved-jobs", map[string]uint{"jobId": job.ID}, env.tokenFor(recruiter)), http.StatusForbidden)
	if isSaved() {
		t.Fatal("job saved before save")
	}

	expectStatus(t, env.do(http.MethodPost, "/api/saved-jobs", map[string]uint{"jobId": job.ID}, token), http.StatusCreated)
	expectStatus(t, env.do(http.MethodPost, "/api/saved-jobs", map[string]uint{"jobId": job.ID}, token), http.StatusBadRequest)
	if !isSaved() {
		t.Fatal("job not saved after save")
	}

	rec := env.do(http.MethodGet, "/api/saved-jobs", nil, token)
	expectStatus(t, rec, http.StatusOK)
	list := decodeBody[[]board.SavedJobView](t, rec)
	if len(list) != 1 || list[0].Job == nil || list[0].Job.ID != job.ID {
		t.Fatalf("unexpected saved list: %+v", list)
	}

	unsavePath := fmt.Sprintf("/api/saved-jobs/%d", job.ID)
	expectStatus(t, env.do(http.MethodDelete, unsavePath, nil, token), http.StatusOK)
	expectStatus(t, env.do(http.MethodDelete, unsavePath, nil, token), http.StatusNotFound)
	if isSaved() {
		t.Fatal("job still saved after unsave")
	}
}
