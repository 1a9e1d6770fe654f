package jobs

import (
	"errors"
	"strings"
	"testing"
)

func TestRunJobExecutesRegisteredJob(t *testing.T) {
	t.Parallel()

	manager := NewJobManager()
	ran := false
	manager.Cron("0 * * * *", "testjob", func() error {
		ran = true
		return nil
	}, false)

	if err := manager.RunJob("testjob"); err != nil {
		t.Fatalf("run job failed: %v", err)
	}
	if !ran {
		t.Errorf("expected the job to have run")
	}
}

func TestRunJobReturnsJobError(t *testing.T) {
	t.Parallel()

	manager := NewJobManager()
	jobErr := errors.New("broken")
	manager.Cron("0 * * * *", "failingjob", func() error {
		return jobErr
	}, false)

	err := manager.RunJob("failingjob")
	if !errors.Is(err, jobErr) {
		t.Errorf("got err %v, want the job's error", err)
	}
}

func TestRunJobUnknownName(t *testing.T) {
	t.Parallel()

	manager := NewJobManager()
	err := manager.RunJob("nope")
	if err == nil {
		t.Fatalf("expected an error for an unregistered job")
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Errorf("error should name the job, got %v", err)
	}
}

func TestRunJobRecoversFromPanic(t *testing.T) {
	t.Parallel()

	manager := NewJobManager()
	manager.Cron("0 * * * *", "panicjob", func() error {
		panic("boom")
	}, false)

	// must not crash the scheduler goroutine
	manager.RunJob("panicjob")
}
