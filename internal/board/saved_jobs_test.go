package board

import (
	"context"
	"testing"

	"jobnest/internal/database"
	"jobnest/internal/database/dbtest"
	"jobnest/internal/errcode"
)

func TestSavedJobRoundTrip(t *testing.T) {
	t.Parallel()

	db := dbtest.Open(t)
	recruiter := dbtest.CreateUser(t, db, "Rita", database.RoleRecruiter)
	seeker := dbtest.CreateUser(t, db, "Sam", database.RoleSeeker)
	first := dbtest.CreateJob(t, db, recruiter.ID, "First Job")
	second := dbtest.CreateJob(t, db, recruiter.ID, "Second Job")
	svc := NewSavedJobService(db)
	ctx := context.Background()

	saved, err := svc.SaveJob(ctx, seeker.ID, first.ID)
	if err != nil {
		t.Fatalf("SaveJob error: %v", err)
	}
	if saved.Job == nil || saved.Job.Title != "First Job" {
		t.Fatalf("expected job summary, got %+v", saved.Job)
	}
	if _, err := svc.SaveJob(ctx, seeker.ID, second.ID); err != nil {
		t.Fatalf("SaveJob error: %v", err)
	}
	if _, err := svc.SaveJob(ctx, seeker.ID, first.ID); !errcode.Is(err, errcode.CodeConflict) {
		t.Fatalf("expected conflict on second save, got %v", err)
	}
	if _, err := svc.SaveJob(ctx, seeker.ID, second.ID+10); !errcode.Is(err, errcode.CodeNotFound) {
		t.Fatalf("expected not found for missing job, got %v", err)
	}

	list, err := svc.ListSavedJobs(ctx, seeker.ID)
	if err != nil {
		t.Fatalf("ListSavedJobs error: %v", err)
	}
	if len(list) != 2 || list[0].JobID != second.ID || list[1].JobID != first.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}

	isSaved, err := svc.IsSaved(ctx, seeker.ID, first.ID)
	if err != nil || !isSaved {
		t.Fatalf("IsSaved = %v, %v; want true", isSaved, err)
	}

	if err := svc.UnsaveJob(ctx, seeker.ID, first.ID); err != nil {
		t.Fatalf("UnsaveJob error: %v", err)
	}
	if err := svc.UnsaveJob(ctx, seeker.ID, first.ID); !errcode.Is(err, errcode.CodeNotFound) {
		t.Fatalf("expected not found on second unsave, got %v", err)
	}

	isSaved, err = svc.IsSaved(ctx, seeker.ID, first.ID)
	if err != nil || isSaved {
		t.Fatalf("IsSaved = %v, %v; want false", isSaved, err)
	}
}
