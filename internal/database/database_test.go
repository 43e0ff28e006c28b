package database

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm duplicated key", fmt.Errorf("create: %w", gorm.ErrDuplicatedKey), true},
		{"postgres", &pgconn.PgError{Code: "23505"}, true},
		{"postgres other", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite text", errors.New("UNIQUE constraint failed: saved_jobs.seeker_id, saved_jobs.job_id"), true},
		{"other", errors.New("connection reset"), false},
	}

	for _, tc := range cases {
		if got := IsUniqueViolation(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v got %v", tc.name, tc.want, got)
		}
	}
}

func TestSeekerJobUniqueIndexes(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	seeker := User{Name: "Alice", Email: "a@x.com", PasswordHash: "x", Role: RoleSeeker}
	recruiter := User{Name: "Rita", Email: "r@x.com", PasswordHash: "x", Role: RoleRecruiter}
	if err := db.Create(&seeker).Error; err != nil {
		t.Fatalf("create seeker: %v", err)
	}
	if err := db.Create(&recruiter).Error; err != nil {
		t.Fatalf("create recruiter: %v", err)
	}
	job := Job{Title: "Go Engineer", Description: "Build services", Company: "Acme", RecruiterID: recruiter.ID, Location: "Remote", Type: JobTypeRemote, SalaryMin: 1, SalaryMax: 2, IsActive: true}
	if err := db.Omit("Recruiter").Create(&job).Error; err != nil {
		t.Fatalf("create job: %v", err)
	}

	first := Application{SeekerID: seeker.ID, JobID: job.ID, Name: "Alice", Email: "a@x.com", ResumeURL: "https://x/r.pdf", CoverLetter: "hello there", Status: StatusApplied}
	if err := db.Omit("Seeker", "Job").Create(&first).Error; err != nil {
		t.Fatalf("create application: %v", err)
	}
	second := first
	second.ID = 0
	err := db.Omit("Seeker", "Job").Create(&second).Error
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}

	saved := SavedJob{SeekerID: seeker.ID, JobID: job.ID}
	if err := db.Omit("Seeker", "Job").Create(&saved).Error; err != nil {
		t.Fatalf("create saved job: %v", err)
	}
	duplicate := SavedJob{SeekerID: seeker.ID, JobID: job.ID}
	err = db.Omit("Seeker", "Job").Create(&duplicate).Error
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation on saved_jobs, got %v", err)
	}

	// 同一求职者收藏其他职位不受影响。
	other := Job{Title: "SRE", Description: "Keep things up", Company: "Acme", RecruiterID: recruiter.ID, Location: "Remote", Type: JobTypeRemote, SalaryMin: 1, SalaryMax: 2, IsActive: true}
	if err := db.Omit("Recruiter").Create(&other).Error; err != nil {
		t.Fatalf("create second job: %v", err)
	}
	if err := db.Omit("Seeker", "Job").Create(&SavedJob{SeekerID: seeker.ID, JobID: other.ID}).Error; err != nil {
		t.Fatalf("save second job: %v", err)
	}
}
