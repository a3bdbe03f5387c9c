package service

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// SchedulerService runs the periodic background jobs: reminder scans and auto theme.
type SchedulerService struct {
	cron *cron.Cron
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	logger := cron.PrintfLogger(log.StandardLogger())
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to return.
func (s *SchedulerService) Stop() {
	<-s.cron.Stop().Done()
}

// ScheduleInterval runs job every interval. The cron clock has one-second resolution.
func (s *SchedulerService) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval < time.Second {
		return 0, fmt.Errorf("interval %s is shorter than one second", interval)
	}
	return s.cron.Schedule(cron.Every(interval), cron.FuncJob(job)), nil
}

func (s *SchedulerService) Remove(id cron.EntryID) {
	s.cron.Remove(id)
}

func (s *SchedulerService) Entries() int {
	return len(s.cron.Entries())
}
