// Package scheduler fires fault jobs on a cron expression or once at a fixed time.
package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/litmuschaos/fault-orchestrator/pkg/cerrors"
	"github.com/litmuschaos/fault-orchestrator/pkg/log"
	"github.com/litmuschaos/fault-orchestrator/pkg/types"
)

// Scheduler keeps one entry per job id, either a cron entry or a one shot timer
type Scheduler struct {
	cron *cron.Cron
	mu   sync.Mutex
	jobs map[string]*job
	now  func() time.Time
}

type job struct {
	id      string
	fire    func()
	entry   cron.EntryID
	timer   *time.Timer
	paused  bool
	pending bool
	once    bool
	s       *Scheduler
}

// Run implements cron.Job, a paused job skips its firings
func (j *job) Run() {
	j.s.mu.Lock()
	if j.s.jobs[j.id] != j {
		// cancelled or replaced after the timer fired
		j.s.mu.Unlock()
		return
	}
	if j.paused {
		// a one shot firing is kept for Resume, cron firings are dropped
		j.pending = j.once
		j.s.mu.Unlock()
		log.Infof("[Scheduler]: job %s is paused, skipping the firing", j.id)
		return
	}
	if j.once {
		delete(j.s.jobs, j.id)
	}
	j.s.mu.Unlock()

	log.Infof("[Scheduler]: firing job %s", j.id)
	j.fire()
}

// New returns a stopped scheduler
func New() *Scheduler {
	logger := cron.PrintfLogger(logrus.StandardLogger())
	return &Scheduler{
		cron: cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger))),
		jobs: map[string]*job{},
		now:  time.Now,
	}
}

// Start runs the cron loop in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron loop and every pending timer, running jobs are waited for
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for _, j := range s.jobs {
		if j.timer != nil {
			j.timer.Stop()
		}
	}
	s.mu.Unlock()
	<-s.cron.Stop().Done()
}

// Schedule registers fire under jobID. A job id already scheduled is replaced.
func (s *Scheduler) Schedule(jobID string, schedule *types.Schedule, fire func()) error {
	if schedule == nil || (schedule.CronExpression == "" && schedule.TimeInMillis <= 0) {
		return cerrors.Specification{Target: jobID, Reason: "schedule needs a cron expression or a fixed time"}
	}
	if schedule.CronExpression != "" && schedule.TimeInMillis > 0 {
		return cerrors.Specification{Target: jobID, Reason: "schedule takes either a cron expression or a fixed time, not both"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(jobID)

	j := &job{id: jobID, fire: fire, s: s}
	if schedule.CronExpression != "" {
		entry, err := s.cron.AddJob(schedule.CronExpression, j)
		if err != nil {
			return cerrors.Specification{Target: jobID, Reason: fmt.Sprintf("invalid cron expression '%s': %v", schedule.CronExpression, err)}
		}
		j.entry = entry
	} else {
		at := time.UnixMilli(schedule.TimeInMillis)
		delay := at.Sub(s.now())
		if delay < 0 {
			return cerrors.Specification{Target: jobID, Reason: fmt.Sprintf("fixed time %s is in the past", at.Format(time.RFC3339))}
		}
		j.once = true
		j.timer = time.AfterFunc(delay, j.Run)
	}
	s.jobs[jobID] = j

	log.InfoWithValues("[Scheduler]: Scheduled job", logrus.Fields{
		"Job ID":      jobID,
		"Cron":        schedule.CronExpression,
		"Time":        schedule.TimeInMillis,
		"Description": schedule.Description,
	})
	return nil
}

// Cancel removes the job, it never fires again
func (s *Scheduler) Cancel(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return unknown(jobID)
	}
	s.remove(jobID)
	log.Infof("[Scheduler]: cancelled job %s", jobID)
	return nil
}

// Pause keeps the job registered but skips its firings until Resume
func (s *Scheduler) Pause(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return unknown(jobID)
	}
	j.paused = true
	return nil
}

// Resume re-enables a paused job. A one shot job whose time passed while paused fires now.
func (s *Scheduler) Resume(jobID string) error {
	s.mu.Lock()
	j, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return unknown(jobID)
	}
	j.paused = false
	pending := j.pending
	j.pending = false
	s.mu.Unlock()

	if pending {
		go j.Run()
	}
	return nil
}

// Jobs returns the scheduled job ids in order
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Next returns the next firing time of a cron job, zero for one shot jobs
func (s *Scheduler) Next(jobID string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return time.Time{}, unknown(jobID)
	}
	if j.once {
		return time.Time{}, nil
	}
	return s.cron.Entry(j.entry).Next, nil
}

// remove must be called with the lock held
func (s *Scheduler) remove(jobID string) {
	j, ok := s.jobs[jobID]
	if !ok {
		return
	}
	if j.timer != nil {
		j.timer.Stop()
	} else {
		s.cron.Remove(j.entry)
	}
	delete(s.jobs, jobID)
}

func unknown(jobID string) error {
	return cerrors.Specification{Target: jobID, Reason: "no job is scheduled under this id"}
}
