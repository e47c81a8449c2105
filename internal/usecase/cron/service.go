// Package cron schedules admin-defined jobs: stored bot commands and scripts,
// optionally broadcasting the result.
package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"tg-anime-bot/internal/domain"
	"tg-anime-bot/internal/infra/metrics"
)

// Executor runs one job type and returns its textual output.
type Executor interface {
	Execute(ctx context.Context, job domain.CronJob) (string, error)
}

// Broadcaster fans a result post out to the resolved recipients.
type Broadcaster interface {
	SendTo(ctx context.Context, chatIDs []int64, post domain.Post) domain.BroadcastReport
}

// Scheduler is the subset of the cron runner the service needs. *cron.Cron
// satisfies it.
type Scheduler interface {
	AddFunc(spec string, cmd func()) (cron.EntryID, error)
	Remove(id cron.EntryID)
	Start()
	Stop() context.Context
}

// runTimeout bounds one job execution end to end, result broadcast included.
const runTimeout = 5 * time.Minute

// Service keeps the schedule in sync with the job store and runs due jobs.
type Service struct {
	jobs      domain.CronJobRepo
	users     domain.UserRepo
	executors map[domain.CronJobType]Executor
	bcast     Broadcaster
	ownerID   int64
	sched     Scheduler
	log       zerolog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewService creates the service. sched may be nil, in which case a standard
// five-field cron runner is used.
func NewService(
	jobs domain.CronJobRepo,
	users domain.UserRepo,
	executors map[domain.CronJobType]Executor,
	bcast Broadcaster,
	ownerID int64,
	sched Scheduler,
	log zerolog.Logger,
) *Service {
	if sched == nil {
		sched = cron.New()
	}
	return &Service{
		jobs:      jobs,
		users:     users,
		executors: executors,
		bcast:     bcast,
		ownerID:   ownerID,
		sched:     sched,
		log:       log,
		entries:   map[string]cron.EntryID{},
	}
}

// ValidateSpec reports whether spec parses as a standard cron expression.
func ValidateSpec(spec string) error {
	_, err := cron.ParseStandard(spec)
	return err
}

// Start loads every enabled job, schedules it and starts the runner.
func (s *Service) Start(ctx context.Context) error {
	jobs, err := s.jobs.ListJobs(ctx, true)
	if err != nil {
		return fmt.Errorf("load cron jobs: %w", err)
	}
	for _, job := range jobs {
		if err := s.Apply(job); err != nil {
			s.log.Error().Err(err).Str("job", job.Name).Msg("skipping unschedulable job")
		}
	}
	s.sched.Start()
	s.log.Info().Int("jobs", len(jobs)).Msg("cron started")
	return nil
}

// Stop halts the runner and waits for in-flight jobs.
func (s *Service) Stop() {
	<-s.sched.Stop().Done()
}

// Apply brings the schedule in line with the job: enabled jobs are
// (re)scheduled, disabled ones cancelled.
func (s *Service) Apply(job domain.CronJob) error {
	id := job.ID.Hex()
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[id]; ok {
		s.sched.Remove(entry)
		delete(s.entries, id)
	}
	if !job.Enabled {
		return nil
	}

	entry, err := s.sched.AddFunc(job.Schedule, func() { s.run(id) })
	if err != nil {
		return fmt.Errorf("schedule job %q: %w", job.Name, err)
	}
	s.entries[id] = entry
	return nil
}

// Unschedule cancels the job if it is scheduled, used on delete.
func (s *Service) Unschedule(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[jobID]; ok {
		s.sched.Remove(entry)
		delete(s.entries, jobID)
	}
}

// RunNow executes the job immediately, outside its schedule.
func (s *Service) RunNow(jobID string) {
	go s.run(jobID)
}

func (s *Service) run(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		s.log.Error().Err(err).Str("job", jobID).Msg("cron job vanished")
		return
	}
	log := s.log.With().Str("job", job.Name).Logger()

	if err := s.jobs.SetJobStatus(ctx, jobID, domain.CronStatusRunning, nil); err != nil {
		log.Error().Err(err).Msg("mark job running")
	}

	exec, ok := s.executors[job.Type]
	if !ok {
		s.finish(ctx, job, "", fmt.Errorf("no executor for job type %q", job.Type))
		return
	}

	out, err := exec.Execute(ctx, job)
	s.finish(ctx, job, out, err)
}

func (s *Service) finish(ctx context.Context, job domain.CronJob, out string, runErr error) {
	now := time.Now().UTC()
	status := domain.CronStatusSuccess
	outcome := "ok"
	if runErr != nil {
		status = domain.CronStatusError
		outcome = "error"
		s.log.Error().Err(runErr).Str("job", job.Name).Msg("cron job failed")
	}
	metrics.CronRunsTotal.WithLabelValues(job.Name, outcome).Inc()

	if err := s.jobs.SetJobStatus(ctx, job.ID.Hex(), status, &now); err != nil {
		s.log.Error().Err(err).Str("job", job.Name).Msg("record job outcome")
	}

	// failures stay in the log and the job status, they are never broadcast
	if !job.Broadcast.Enabled || runErr != nil {
		return
	}
	text := out
	if text == "" {
		text = fmt.Sprintf("Job %q finished.", job.Name)
	}
	targets, err := s.resolveTargets(ctx, job.Broadcast)
	if err != nil {
		s.log.Error().Err(err).Str("job", job.Name).Msg("resolve broadcast targets")
		return
	}
	s.bcast.SendTo(ctx, targets, domain.Post{Type: domain.PostText, Text: text})
}

func (s *Service) resolveTargets(ctx context.Context, b domain.CronBroadcast) ([]int64, error) {
	switch b.Target {
	case "all":
		return s.users.ListUserIDs(ctx, false)
	case "custom":
		return b.CustomIDs, nil
	default:
		return []int64{s.ownerID}, nil
	}
}
