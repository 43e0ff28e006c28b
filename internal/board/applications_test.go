package board

import (
	"context"
	"errors"
	"sync"
	"testing"

	"jobnest/internal/database"
	"jobnest/internal/database/dbtest"
	"jobnest/internal/errcode"
	"jobnest/internal/tasks"
)

type recordingPublisher struct {
	mu       sync.Mutex
	payloads []tasks.ApplicationStatusChangedPayload
	err      error
}

func (p *recordingPublisher) PublishStatusChange(_ context.Context, payload tasks.ApplicationStatusChangedPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return p.err
}

func validApplication(jobID uint) ApplicationInput {
	return ApplicationInput{
		JobID:       jobID,
		ResumeURL:   "https://files.example.com/resume.pdf",
		CoverLetter: "I would love to work on this team.",
	}
}

func TestApplyDefaultsAndPublishes(t *testing.T) {
	t.Parallel()

	db := dbtest.Open(t)
	recruiter := dbtest.CreateUser(t, db, "Rita", database.RoleRecruiter)
	seeker := dbtest.CreateUser(t, db, "Alice", database.RoleSeeker)
	job := dbtest.CreateJob(t, db, recruiter.ID, "Platform Engineer")
	publisher := &recordingPublisher{}
	svc := NewApplicationService(db, publisher, nil)

	ctx := tasks.WithCorrelationID(context.Background(), "cid-42")
	view, err := svc.Apply(ctx, seeker.ID, validApplication(job.ID))
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if view.Status != database.StatusApplied {
		t.Fatalf("expected Applied, got %q", view.Status)
	}
	if view.Name != "Alice" || view.Email != "alice@example.com" {
		t.Fatalf("expected account defaults, got %q <%s>", view.Name, view.Email)
	}
	if view.Job == nil || view.Job.Title != "Platform Engineer" {
		t.Fatalf("expected job summary, got %+v", view.Job)
	}

	if len(publisher.payloads) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.payloads))
	}
	got := publisher.payloads[0]
	if got.ApplicationID != view.ID || got.FromStatus != "" || got.ToStatus != "Applied" || got.CorrelationID != "cid-42" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestApplyTwiceConflicts(t *testing.T) {
	t.Parallel()

	db := dbtest.Open(t)
	recruiter := dbtest.CreateUser(t, db, "Rita", database.RoleRecruiter)
	seeker := dbtest.CreateUser(t, db, "Alice", database.RoleSeeker)
	job := dbtest.CreateJob(t, db, recruiter.ID, "Platform Engineer")
	svc := NewApplicationService(db, nil, nil)
	ctx := context.Background()

	if _, err := svc.Apply(ctx, seeker.ID, validApplication(job.ID)); err != nil {
		t.Fatalf("first Apply error: %v", err)
	}
	_, err := svc.Apply(ctx, seeker.ID, validApplication(job.ID))
	if !errcode.Is(err, errcode.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if errcode.MessageOf(err) != "You have already applied for this job" {
		t.Fatalf("unexpected message %q", errcode.MessageOf(err))
	}
}

func TestApplyConcurrentCreatesOneRow(t *testing.T) {
	t.Parallel()

	db := dbtest.Open(t)
	recruiter := dbtest.CreateUser(t, db, "Rita", database.RoleRecruiter)
	seeker := dbtest.CreateUser(t, db, "Alice", database.RoleSeeker)
	job := dbtest.CreateJob(t, db, recruiter.ID, "Platform Engineer")
	svc := NewApplicationService(db, nil, nil)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Apply(context.Background(), seeker.ID, validApplication(job.ID))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errcode.Is(err, errcode.CodeConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != attempts-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d and %d", attempts-1, ok, conflicts)
	}

	var count int64
	db.Model(&database.Application{}).Where("seeker_id = ? AND job_id = ?", seeker.ID, job.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected one row, got %d", count)
	}
}

func TestApplyValidation(t *testing.T) {
	t.Parallel()

	db := dbtest.Open(t)
	recruiter := dbtest.CreateUser(t, db, "Rita", database.RoleRecruiter)
	seeker := dbtest.CreateUser(t, db, "Alice", database.RoleSeeker)
	job := dbtest.CreateJob(t, db, recruiter.ID, "Platform Engineer")
	svc := NewApplicationService(db, nil, nil)
	ctx := context.Background()

	if _, err := svc.Apply(ctx, seeker.ID, validApplication(job.ID+99)); !errcode.Is(err, errcode.CodeNotFound) {
		t.Fatalf("expected not found for missing job, got %v", err)
	}

	cases := map[string]func(*ApplicationInput){
		"short cover letter": func(in *ApplicationInput) { in.CoverLetter = "hi" },
		"bad resume url":     func(in *ApplicationInput) { in.ResumeURL = "resume.pdf" },
		"bad email":          func(in *ApplicationInput) { in.Email = "not-an-email" },
		"short name":         func(in *ApplicationInput) { in.Name = "A" },
	}
	for name, mutate := range cases {
		input := validApplication(job.ID)
		mutate(&input)
		if _, err := svc.Apply(ctx, seeker.ID, input); !errcode.Is(err, errcode.CodeValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestSetApplicationStatusOwnerOnly(t *testing.T) {
	t.Parallel()

	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "Rita", database.RoleRecruiter)
	other := dbtest.CreateUser(t, db, "Otto", database.RoleRecruiter)
	alice := dbtest.CreateUser(t, db, "Alice", database.RoleSeeker)
	job := dbtest.CreateJob(t, db, owner.ID, "Platform Engineer")
	publisher := &recordingPublisher{}
	svc := NewApplicationService(db, publisher, nil)
	ctx := context.Background()

	app, err := svc.Apply(ctx, alice.ID, validApplication(job.ID))
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}

	if _, err := svc.SetApplicationStatus(ctx, other.ID, app.ID, database.StatusInterview); !errcode.Is(err, errcode.CodeForbidden) {
		t.Fatalf("expected forbidden for foreign recruiter, got %v", err)
	}
	if _, err := svc.SetApplicationStatus(ctx, alice.ID, app.ID, database.StatusHired); !errcode.Is(err, errcode.CodeForbidden) {
		t.Fatalf("expected forbidden for the seeker, got %v", err)
	}
	if _, err := svc.SetApplicationStatus(ctx, owner.ID, app.ID, "Ghosted"); !errcode.Is(err, errcode.CodeValidation) {
		t.Fatalf("expected validation for unknown status, got %v", err)
	}
	if _, err := svc.SetApplicationStatus(ctx, owner.ID, app.ID+50, database.StatusInterview); !errcode.Is(err, errcode.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	view, err := svc.SetApplicationStatus(ctx, owner.ID, app.ID, database.StatusInterview)
	if err != nil {
		t.Fatalf("SetApplicationStatus error: %v", err)
	}
	if view.Status != database.StatusInterview {
		t.Fatalf("expected Interview, got %q", view.Status)
	}

	// Alice 查看自己的申请时看到新状态。
	mine, err := svc.ListMyApplications(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListMyApplications error: %v", err)
	}
	if len(mine) != 1 || mine[0].Status != database.StatusInterview {
		t.Fatalf("unexpected applications: %+v", mine)
	}

	// 不校验状态先后顺序。
	if _, err := svc.SetApplicationStatus(ctx, owner.ID, app.ID, database.StatusApplied); err != nil {
		t.Fatalf("backward status change should be allowed: %v", err)
	}

	if len(publisher.payloads) != 3 {
		t.Fatalf("expected 3 events, got %d", len(publisher.payloads))
	}
	if p := publisher.payloads[1]; p.FromStatus != "Applied" || p.ToStatus != "Interview" || p.ActorID != owner.ID {
		t.Fatalf("unexpected status event: %+v", p)
	}
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	t.Parallel()

	db := dbtest.Open(t)
	recruiter := dbtest.CreateUser(t, db, "Rita", database.RoleRecruiter)
	seeker := dbtest.CreateUser(t, db, "Alice", database.RoleSeeker)
	job := dbtest.CreateJob(t, db, recruiter.ID, "Platform Engineer")
	svc := NewApplicationService(db, &recordingPublisher{err: errors.New("redis down")}, nil)

	if _, err := svc.Apply(context.Background(), seeker.ID, validApplication(job.ID)); err != nil {
		t.Fatalf("Apply should succeed when publishing fails: %v", err)
	}
}

func TestEditAndWithdrawSeekerOnly(t *testing.T) {
	t.Parallel()

	db := dbtest.Open(t)
	recruiter := dbtest.CreateUser(t, db, "Rita", database.RoleRecruiter)
	alice := dbtest.CreateUser(t, db, "Alice", database.RoleSeeker)
	bob := dbtest.CreateUser(t, db, "Bob", database.RoleSeeker)
	job := dbtest.CreateJob(t, db, recruiter.ID, "Platform Engineer")
	svc := NewApplicationService(db, nil, nil)
	ctx := context.Background()

	app, err := svc.Apply(ctx, alice.ID, validApplication(job.ID))
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if _, err := svc.SetApplicationStatus(ctx, recruiter.ID, app.ID, database.StatusShortlisted); err != nil {
		t.Fatalf("SetApplicationStatus error: %v", err)
	}

	letter := "An updated and much longer cover letter."
	if _, err := svc.EditApplication(ctx, bob.ID, app.ID, ApplicationPatch{CoverLetter: &letter}); !errcode.Is(err, errcode.CodeForbidden) {
		t.Fatalf("expected forbidden edit, got %v", err)
	}
	if _, err := svc.EditApplication(ctx, recruiter.ID, app.ID, ApplicationPatch{CoverLetter: &letter}); !errcode.Is(err, errcode.CodeForbidden) {
		t.Fatalf("expected forbidden edit by recruiter, got %v", err)
	}

	edited, err := svc.EditApplication(ctx, alice.ID, app.ID, ApplicationPatch{
		CoverLetter:   &letter,
		CustomAnswers: map[string]any{"q1": "five years"},
	})
	if err != nil {
		t.Fatalf("EditApplication error: %v", err)
	}
	if edited.CoverLetter != letter || edited.CustomAnswers["q1"] != "five years" {
		t.Fatalf("edit not applied: %+v", edited)
	}
	if edited.Status != database.StatusShortlisted {
		t.Fatalf("edit must not touch status, got %q", edited.Status)
	}

	if err := svc.Withdraw(ctx, bob.ID, app.ID); !errcode.Is(err, errcode.CodeForbidden) {
		t.Fatalf("expected forbidden withdraw, got %v", err)
	}
	if err := svc.Withdraw(ctx, alice.ID, app.ID); err != nil {
		t.Fatalf("Withdraw error: %v", err)
	}
	if err := svc.Withdraw(ctx, alice.ID, app.ID); !errcode.Is(err, errcode.CodeNotFound) {
		t.Fatalf("expected not found after withdraw, got %v", err)
	}
}

func TestListJobApplicationsOwnerOnly(t *testing.T) {
	t.Parallel()

	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "Rita", database.RoleRecruiter)
	other := dbtest.CreateUser(t, db, "Otto", database.RoleRecruiter)
	alice := dbtest.CreateUser(t, db, "Alice", database.RoleSeeker)
	bob := dbtest.CreateUser(t, db, "Bob", database.RoleSeeker)
	job := dbtest.CreateJob(t, db, owner.ID, "Platform Engineer")
	svc := NewApplicationService(db, nil, nil)
	ctx := context.Background()

	first, err := svc.Apply(ctx, alice.ID, validApplication(job.ID))
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	second, err := svc.Apply(ctx, bob.ID, validApplication(job.ID))
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}

	if _, err := svc.ListJobApplications(ctx, other.ID, job.ID); !errcode.Is(err, errcode.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	apps, err := svc.ListJobApplications(ctx, owner.ID, job.ID)
	if err != nil {
		t.Fatalf("ListJobApplications error: %v", err)
	}
	if len(apps) != 2 || apps[0].ID != second.ID || apps[1].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", apps)
	}
	if apps[0].Seeker == nil || apps[0].Seeker.Name != "Bob" {
		t.Fatalf("expected seeker profile, got %+v", apps[0].Seeker)
	}
}

func TestListApplicationEventsVisibility(t *testing.T) {
	t.Parallel()

	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "Rita", database.RoleRecruiter)
	alice := dbtest.CreateUser(t, db, "Alice", database.RoleSeeker)
	bob := dbtest.CreateUser(t, db, "Bob", database.RoleSeeker)
	job := dbtest.CreateJob(t, db, owner.ID, "Platform Engineer")
	svc := NewApplicationService(db, nil, nil)
	ctx := context.Background()

	app, err := svc.Apply(ctx, alice.ID, validApplication(job.ID))
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	events := []database.ApplicationEvent{
		{ApplicationID: app.ID, ActorID: alice.ID, ToStatus: database.StatusApplied},
		{ApplicationID: app.ID, ActorID: owner.ID, FromStatus: database.StatusApplied, ToStatus: database.StatusViewed},
	}
	if err := db.Create(&events).Error; err != nil {
		t.Fatalf("seed events: %v", err)
	}

	for _, viewer := range []uint{alice.ID, owner.ID} {
		got, err := svc.ListApplicationEvents(ctx, viewer, app.ID)
		if err != nil {
			t.Fatalf("ListApplicationEvents(%d) error: %v", viewer, err)
		}
		if len(got) != 2 || got[1].ToStatus != database.StatusViewed {
			t.Fatalf("unexpected events: %+v", got)
		}
	}
	if _, err := svc.ListApplicationEvents(ctx, bob.ID, app.ID); !errcode.Is(err, errcode.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
