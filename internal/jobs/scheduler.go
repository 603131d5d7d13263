package jobs

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"dytto/internal/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"
)

// Job interface that all scheduled jobs must implement
type Job interface {
	Run(ctx context.Context) error
	// Schedule is a standard five-field cron expression
	Schedule() string
}

// cronParser validates job schedules before they reach gocron
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// JobStatus represents the status of a job
type JobStatus struct {
	Name        string    `json:"name"`
	Schedule    string    `json:"schedule"`
	NextRunTime time.Time `json:"next_run_time"`
	LastRunTime time.Time `json:"last_run_time,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	Runs        int       `json:"runs"`
}

type registeredJob struct {
	job      Job
	schedule cron.Schedule
	handle   gocron.Job
	lastRun  time.Time
	lastErr  error
	runs     int
}

// JobScheduler runs registered jobs on their cron schedules
type JobScheduler struct {
	scheduler gocron.Scheduler
	jobs      map[string]*registeredJob
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	running   bool
	stopped   bool
	now       func() time.Time
}

// NewJobScheduler creates a new job scheduler
func NewJobScheduler() (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &JobScheduler{
		scheduler: scheduler,
		jobs:      make(map[string]*registeredJob),
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
	}, nil
}

// Register adds a job to the scheduler after validating its cron expression
func (s *JobScheduler) Register(name string, job Job) error {
	schedule, err := cronParser.Parse(job.Schedule())
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", job.Schedule(), name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	handle, err := s.scheduler.NewJob(
		gocron.CronJob(job.Schedule(), false),
		gocron.NewTask(func() {
			s.runJob(name)
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", name, err)
	}

	s.jobs[name] = &registeredJob{job: job, schedule: schedule, handle: handle}
	log.Printf("✅ [SCHEDULER] Registered job: %s (cron: %s)", name, job.Schedule())
	return nil
}

// Start begins running all registered jobs
func (s *JobScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || s.stopped {
		return
	}
	s.running = true
	s.scheduler.Start()
	log.Printf("🚀 [SCHEDULER] Starting job scheduler with %d jobs", len(s.jobs))
}

// runJob executes a job and records the outcome
func (s *JobScheduler) runJob(name string) error {
	s.mu.Lock()
	entry, exists := s.jobs[name]
	s.mu.Unlock()
	if !exists {
		return models.NotFoundf("job %s", name)
	}

	log.Printf("▶️  [SCHEDULER] Running job: %s", name)
	startTime := s.now()
	err := entry.job.Run(s.ctx)
	if err != nil {
		log.Printf("❌ [SCHEDULER] Job '%s' failed: %v", name, err)
	} else {
		log.Printf("✅ [SCHEDULER] Job '%s' completed in %v", name, time.Since(startTime))
	}

	s.mu.Lock()
	entry.lastRun = startTime
	entry.lastErr = err
	entry.runs++
	s.mu.Unlock()
	return err
}

// RunNow immediately runs a specific job and returns its error
func (s *JobScheduler) RunNow(name string) error {
	log.Printf("🚀 [SCHEDULER] Running job '%s' immediately", name)
	return s.runJob(name)
}

// GetStatus returns the status of all jobs sorted by name
func (s *JobScheduler) GetStatus() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	status := make([]JobStatus, 0, len(s.jobs))
	for name, entry := range s.jobs {
		next := entry.schedule.Next(now)
		if s.running {
			if scheduled, err := entry.handle.NextRun(); err == nil && !scheduled.IsZero() {
				next = scheduled
			}
		}

		st := JobStatus{
			Name:        name,
			Schedule:    entry.job.Schedule(),
			NextRunTime: next,
			LastRunTime: entry.lastRun,
			Runs:        entry.runs,
		}
		if entry.lastErr != nil {
			st.LastError = entry.lastErr.Error()
		}
		status = append(status, st)
	}

	sort.Slice(status, func(i, j int) bool { return status[i].Name < status[j].Name })
	return status
}

// Stop gracefully stops all jobs, waiting for running ones
func (s *JobScheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.running = false
	s.mu.Unlock()

	log.Println("🛑 [SCHEDULER] Stopping job scheduler...")
	s.cancel()
	if err := s.scheduler.Shutdown(); err != nil {
		log.Printf("⚠️ [SCHEDULER] Shutdown error: %v", err)
	}
	log.Println("✅ [SCHEDULER] Job scheduler stopped")
}
