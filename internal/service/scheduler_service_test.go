package service

import (
	"testing"
	"time"
)

func TestScheduleInterval(t *testing.T) {
	s := NewSchedulerService(time.UTC)

	for _, interval := range []time.Duration{0, -time.Second, 500 * time.Millisecond} {
		if _, err := s.ScheduleInterval(interval, func() {}); err == nil {
			t.Fatalf("expected error for interval %s", interval)
		}
	}
	id, err := s.ScheduleInterval(30*time.Second, func() {})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if _, err := s.ScheduleInterval(time.Minute, func() {}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if s.Entries() != 2 {
		t.Fatalf("expected 2 entries, got %d", s.Entries())
	}
	s.Remove(id)
	if s.Entries() != 1 {
		t.Fatalf("expected 1 entry after remove, got %d", s.Entries())
	}
}

func TestSchedulerRunsJob(t *testing.T) {
	s := NewSchedulerService(time.UTC)
	ran := make(chan struct{}, 1)
	if _, err := s.ScheduleInterval(time.Second, func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	s.Start()
	defer s.Stop()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not run")
	}
}
