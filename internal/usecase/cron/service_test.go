package cron

import (
	"context"
	"testing"
	"time"

	robcron "github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tg-anime-bot/internal/domain"
)

type fakeScheduler struct {
	next    robcron.EntryID
	added   map[robcron.EntryID]string
	removed []robcron.EntryID
	funcs   map[robcron.EntryID]func()
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		added: map[robcron.EntryID]string{},
		funcs: map[robcron.EntryID]func(){},
	}
}

func (f *fakeScheduler) AddFunc(spec string, cmd func()) (robcron.EntryID, error) {
	if _, err := robcron.ParseStandard(spec); err != nil {
		return 0, err
	}
	f.next++
	f.added[f.next] = spec
	f.funcs[f.next] = cmd
	return f.next, nil
}

func (f *fakeScheduler) Remove(id robcron.EntryID) {
	f.removed = append(f.removed, id)
	delete(f.added, id)
}

func (f *fakeScheduler) Start() {}

func (f *fakeScheduler) Stop() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

type fakeJobs struct {
	domain.CronJobRepo
	jobs     map[string]domain.CronJob
	statuses []domain.CronJobStatus
}

func (f *fakeJobs) GetJob(_ context.Context, id string) (domain.CronJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return domain.CronJob{}, domain.ErrNotFound
	}
	return job, nil
}

func (f *fakeJobs) SetJobStatus(_ context.Context, id string, status domain.CronJobStatus, _ *time.Time) error {
	f.statuses = append(f.statuses, status)
	return nil
}

type fakeBroadcaster struct {
	targets []int64
	posts   []domain.Post
}

func (f *fakeBroadcaster) SendTo(_ context.Context, chatIDs []int64, post domain.Post) domain.BroadcastReport {
	f.targets = chatIDs
	f.posts = append(f.posts, post)
	return domain.BroadcastReport{Total: len(chatIDs), Success: len(chatIDs)}
}

func TestValidateSpec(t *testing.T) {
	if err := ValidateSpec("*/5 * * * *"); err != nil {
		t.Errorf("valid spec rejected: %v", err)
	}
	if err := ValidateSpec("not a schedule"); err == nil {
		t.Error("invalid spec accepted")
	}
}

func TestApplySchedulesAndCancels(t *testing.T) {
	sched := newFakeScheduler()
	svc := NewService(&fakeJobs{}, nil, nil, nil, 1, sched, zerolog.Nop())

	job := domain.CronJob{
		ID:       primitive.NewObjectID(),
		Name:     "nightly",
		Schedule: "0 3 * * *",
		Enabled:  true,
	}
	if err := svc.Apply(job); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(sched.added) != 1 {
		t.Fatalf("expected 1 scheduled entry, got %d", len(sched.added))
	}

	// re-applying replaces the old entry
	job.Schedule = "0 4 * * *"
	if err := svc.Apply(job); err != nil {
		t.Fatalf("Apply update: %v", err)
	}
	if len(sched.removed) != 1 || len(sched.added) != 1 {
		t.Errorf("removed=%v added=%v", sched.removed, sched.added)
	}

	// disabling cancels without rescheduling
	job.Enabled = false
	if err := svc.Apply(job); err != nil {
		t.Fatalf("Apply disable: %v", err)
	}
	if len(sched.added) != 0 {
		t.Errorf("disabled job still scheduled: %v", sched.added)
	}
}

func TestApplyRejectsBadSchedule(t *testing.T) {
	svc := NewService(&fakeJobs{}, nil, nil, nil, 1, newFakeScheduler(), zerolog.Nop())
	job := domain.CronJob{ID: primitive.NewObjectID(), Schedule: "garbage", Enabled: true}
	if err := svc.Apply(job); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestRunMarksStatusAndBroadcastsToOwner(t *testing.T) {
	job := domain.CronJob{
		ID:        primitive.NewObjectID(),
		Name:      "report",
		Type:      domain.CronJobScript,
		Action:    domain.CronAction{Code: `"done: " + (2+2)`},
		Enabled:   true,
		Broadcast: domain.CronBroadcast{Enabled: true, Target: "owner"},
	}
	jobs := &fakeJobs{jobs: map[string]domain.CronJob{job.ID.Hex(): job}}
	bcast := &fakeBroadcaster{}
	execs := map[domain.CronJobType]Executor{domain.CronJobScript: NewScriptExecutor()}
	svc := NewService(jobs, nil, execs, bcast, 42, newFakeScheduler(), zerolog.Nop())

	svc.run(job.ID.Hex())

	if len(jobs.statuses) != 2 || jobs.statuses[0] != domain.CronStatusRunning || jobs.statuses[1] != domain.CronStatusSuccess {
		t.Errorf("statuses = %v", jobs.statuses)
	}
	if len(bcast.targets) != 1 || bcast.targets[0] != 42 {
		t.Errorf("targets = %v, want owner", bcast.targets)
	}
	if len(bcast.posts) != 1 || bcast.posts[0].Text != "done: 4" {
		t.Errorf("posts = %+v", bcast.posts)
	}
}

func TestRunRecordsFailure(t *testing.T) {
	job := domain.CronJob{
		ID:        primitive.NewObjectID(),
		Name:      "broken",
		Type:      domain.CronJobScript,
		Action:    domain.CronAction{Code: `throw new Error("boom")`},
		Broadcast: domain.CronBroadcast{Enabled: true, Target: "owner"},
	}
	jobs := &fakeJobs{jobs: map[string]domain.CronJob{job.ID.Hex(): job}}
	bcast := &fakeBroadcaster{}
	execs := map[domain.CronJobType]Executor{domain.CronJobScript: NewScriptExecutor()}
	svc := NewService(jobs, nil, execs, bcast, 42, newFakeScheduler(), zerolog.Nop())

	svc.run(job.ID.Hex())

	if len(jobs.statuses) != 2 || jobs.statuses[1] != domain.CronStatusError {
		t.Errorf("statuses = %v", jobs.statuses)
	}
	if len(bcast.posts) != 0 {
		t.Errorf("failed job was broadcast: %+v", bcast.posts)
	}
}

func TestRunCustomTargets(t *testing.T) {
	job := domain.CronJob{
		ID:     primitive.NewObjectID(),
		Name:   "custom",
		Type:   domain.CronJobScript,
		Action: domain.CronAction{Code: `"ping"`},
		Broadcast: domain.CronBroadcast{
			Enabled:   true,
			Target:    "custom",
			CustomIDs: []int64{5, 6},
		},
	}
	jobs := &fakeJobs{jobs: map[string]domain.CronJob{job.ID.Hex(): job}}
	bcast := &fakeBroadcaster{}
	execs := map[domain.CronJobType]Executor{domain.CronJobScript: NewScriptExecutor()}
	svc := NewService(jobs, nil, execs, bcast, 42, newFakeScheduler(), zerolog.Nop())

	svc.run(job.ID.Hex())

	if len(bcast.targets) != 2 || bcast.targets[0] != 5 || bcast.targets[1] != 6 {
		t.Errorf("targets = %v", bcast.targets)
	}
}
